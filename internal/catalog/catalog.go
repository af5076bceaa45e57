// Package catalog loads the static content tables (classes, enemies,
// spells, items and hub locations) from YAML.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Spell kinds.
const (
	SpellDamage    = "damage"
	SpellHeal      = "heal"
	SpellResurrect = "resurrect"
)

// Item kinds.
const (
	ItemHeal = "heal"
	ItemMana = "mana"
	ItemGear = "gear"
)

// Catalog holds every content table.
type Catalog struct {
	Classes   map[string]Class    `yaml:"classes"`
	Spells    map[string]Spell    `yaml:"spells"`
	Items     map[string]Item     `yaml:"items"`
	Enemies   []EnemyTemplate     `yaml:"enemies"`
	Locations map[string]Location `yaml:"locations"`
}

// Class is a playable class template.
type Class struct {
	HP         int            `yaml:"hp"`
	MP         int            `yaml:"mp"`
	Gold       int            `yaml:"gold"`
	Healer     bool           `yaml:"healer"`
	SneakBonus int            `yaml:"sneak_bonus"`
	Stats      map[string]int `yaml:"stats"`
	Skills     map[string]int `yaml:"skills"`
	Spells     []string       `yaml:"spells"`
	Items      []string       `yaml:"items"`
}

// Spell describes a castable spell. Dice and Sides are zero for spells
// without a rolled effect.
type Spell struct {
	MP    int    `yaml:"mp"`
	Kind  string `yaml:"kind"`
	Dice  int    `yaml:"dice"`
	Sides int    `yaml:"sides"`
}

// Item is a purchasable item.
type Item struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Power int    `yaml:"power"`
	Price int    `yaml:"price"`
}

// EnemyTemplate is the blueprint for spawned enemies.
type EnemyTemplate struct {
	Name       string `yaml:"name"`
	Faction    string `yaml:"faction"`
	Tactics    string `yaml:"tactics"`
	HP         int    `yaml:"hp"`
	Attack     int    `yaml:"attack"`
	Dodge      int    `yaml:"dodge"`
	XP         int    `yaml:"xp"`
	Negotiable bool   `yaml:"negotiable"`
	MinDepth   int    `yaml:"min_depth"`
	Boss       bool   `yaml:"boss"`
}

// Location is a hub town location.
type Location struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Classes) == 0 {
		return fmt.Errorf("catalog has no classes")
	}
	for name, class := range c.Classes {
		if class.HP <= 0 {
			return fmt.Errorf("class %s: hp must be positive", name)
		}
		for skill, v := range class.Skills {
			if v < 1 || v > 100 {
				return fmt.Errorf("class %s: skill %s out of range: %d", name, skill, v)
			}
		}
		for _, spell := range class.Spells {
			if _, ok := c.Spells[spell]; !ok {
				return fmt.Errorf("class %s: unknown spell %s", name, spell)
			}
		}
		for _, item := range class.Items {
			if _, ok := c.Items[item]; !ok {
				return fmt.Errorf("class %s: unknown item %s", name, item)
			}
		}
	}
	for _, e := range c.Enemies {
		if e.HP <= 0 {
			return fmt.Errorf("enemy %s: hp must be positive", e.Name)
		}
	}
	return nil
}

// ClassNames returns the sorted class keys.
func (c *Catalog) ClassNames() []string {
	names := make([]string, 0, len(c.Classes))
	for name := range c.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnemiesFor returns the templates available at depth, split into regular
// enemies and bosses.
func (c *Catalog) EnemiesFor(depth int) (regular, bosses []EnemyTemplate) {
	for _, e := range c.Enemies {
		if e.MinDepth > depth {
			continue
		}
		if e.Boss {
			bosses = append(bosses, e)
		} else {
			regular = append(regular, e)
		}
	}
	return regular, bosses
}

// DisplayName title-cases a catalog key such as "first_aid".
func DisplayName(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		if r == '_' {
			r = ' '
		}
		out = append(out, r)
	}
	return cases.Title(language.English).String(string(out))
}
