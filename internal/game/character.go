package game

import (
	"fmt"
	"sort"

	"github.com/yourusername/agent-dungeon/internal/catalog"
)

// Level progression
const (
	XPPerLevel    = 100
	HPPerLevel    = 5
	MPPerLevel    = 2
	StartingLevel = 1
)

// NewCharacter creates a level one character from a class template
func NewCharacter(name, agentID, className string, class catalog.Class, items map[string]catalog.Item) *Character {
	c := &Character{
		Name:       name,
		AgentID:    agentID,
		Class:      className,
		Level:      StartingLevel,
		HP:         class.HP,
		MaxHP:      class.HP,
		MP:         class.MP,
		MaxMP:      class.MP,
		Gold:       class.Gold,
		Healer:     class.Healer,
		SneakBonus: class.SneakBonus,
		Skills:     make(map[string]int, len(class.Skills)),
		Spells:     append([]string(nil), class.Spells...),
		Inventory:  []Item{},
		Stats: Stats{
			STR: class.Stats["str"],
			DEX: class.Stats["dex"],
			CON: class.Stats["con"],
			INT: class.Stats["int"],
			WIS: class.Stats["wis"],
			CHA: class.Stats["cha"],
		},
	}
	for skill, v := range class.Skills {
		c.Skills[skill] = ClampSkill(v)
	}
	for _, key := range class.Items {
		if it, ok := items[key]; ok {
			c.AddItem(key, it)
		}
	}
	return c
}

// Identity returns the character's dual identity
func (c *Character) Identity() Identity {
	return Identity{Name: c.Name, AgentID: c.AgentID}
}

// Key returns the identity key used in turn order
func (c *Character) Key() string {
	return c.Identity().Key()
}

// IsAlive reports whether the character has hit points left
func (c *Character) IsAlive() bool {
	return c.HP > 0
}

// TakeDamage applies damage and reports whether it killed the character
func (c *Character) TakeDamage(damage int, cause string) bool {
	if damage <= 0 || !c.IsAlive() {
		return false
	}
	c.HP -= damage
	if c.HP > 0 {
		return false
	}
	c.HP = 0
	c.DiedThisAdventure = true
	c.DeathCause = cause
	return true
}

// Heal restores HP up to the maximum and returns the amount healed
func (c *Character) Heal(amount int) int {
	if !c.IsAlive() || amount <= 0 {
		return 0
	}
	before := c.HP
	c.HP += amount
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	return c.HP - before
}

// RestoreMP restores MP up to the maximum and returns the amount restored
func (c *Character) RestoreMP(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := c.MP
	c.MP += amount
	if c.MP > c.MaxMP {
		c.MP = c.MaxMP
	}
	return c.MP - before
}

// Skill returns the effective value of a skill, including the resurrection
// weakness penalty
func (c *Character) Skill(name string) (int, bool) {
	base, ok := c.Skills[name]
	if !ok {
		return 0, false
	}
	if c.ResurrectionWeakness {
		base -= WeaknessPenalty
	}
	return ClampSkill(base), true
}

// Improve applies a check's improvement to the base skill
func (c *Character) Improve(name string, check SkillCheck) {
	if !check.Success {
		return
	}
	if base, ok := c.Skills[name]; ok {
		c.Skills[name] = improvedSkill(base)
	}
}

// SkillNames returns the character's skills sorted by name
func (c *Character) SkillNames() []string {
	names := make([]string, 0, len(c.Skills))
	for name := range c.Skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnowsSpell reports whether the spell is in the character's list
func (c *Character) KnowsSpell(spell string) bool {
	for _, s := range c.Spells {
		if s == spell {
			return true
		}
	}
	return false
}

// AddItem puts a catalog item into the inventory. Item ids come from a
// per-character counter so a replayed game hands out the same ids.
func (c *Character) AddItem(key string, it catalog.Item) Item {
	c.ItemSeq++
	item := Item{
		ID:    fmt.Sprintf("%s-%d", key, c.ItemSeq),
		Key:   key,
		Name:  it.Name,
		Kind:  it.Kind,
		Power: it.Power,
		Price: it.Price,
	}
	c.Inventory = append(c.Inventory, item)
	return item
}

// FindItem looks up an inventory item by id, key or name
func (c *Character) FindItem(ref string) (int, *Item) {
	for i := range c.Inventory {
		it := &c.Inventory[i]
		if it.ID == ref || it.Key == ref || it.Name == ref {
			return i, it
		}
	}
	return -1, nil
}

// RemoveItem drops the inventory entry at index
func (c *Character) RemoveItem(index int) Item {
	it := c.Inventory[index]
	c.Inventory = append(c.Inventory[:index], c.Inventory[index+1:]...)
	return it
}

// ResetAdventure clears the per-adventure flags
func (c *Character) ResetAdventure() {
	c.DiedThisAdventure = false
	c.ResurrectionFailed = false
	c.ResurrectionWeakness = false
	c.DeathCause = ""
}

// CommitXP adds earned XP, applies level ups and returns levels gained
func (c *Character) CommitXP(earned int) int {
	if earned < 0 {
		earned = 0
	}
	c.XP += earned
	level := StartingLevel + c.XP/XPPerLevel
	gained := level - c.Level
	if gained <= 0 {
		return 0
	}
	c.Level = level
	c.MaxHP += gained * HPPerLevel
	c.MaxMP += gained * MPPerLevel
	if c.IsAlive() {
		c.HP += gained * HPPerLevel
		c.MP += gained * MPPerLevel
	}
	return gained
}
