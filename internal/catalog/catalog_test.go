package catalog

import (
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	if got := c.ClassNames(); strings.Join(got, ",") != "cleric,fighter,mage,scout" {
		t.Fatalf("classes = %v", got)
	}
	if !c.Classes["cleric"].Healer {
		t.Fatal("cleric must be a healer")
	}
	if c.Classes["scout"].SneakBonus != 15 {
		t.Fatalf("scout sneak bonus = %d", c.Classes["scout"].SneakBonus)
	}
	if c.Spells["resurrect"].MP != 10 {
		t.Fatalf("resurrect cost = %d", c.Spells["resurrect"].MP)
	}
}

func TestEnemiesForDepth(t *testing.T) {
	c := Default()
	regular, bosses := c.EnemiesFor(1)
	if len(bosses) != 1 || bosses[0].Name != "Goblin Chieftain" {
		t.Fatalf("depth 1 bosses = %+v", bosses)
	}
	for _, e := range regular {
		if e.MinDepth > 1 {
			t.Fatalf("%s leaked into depth 1", e.Name)
		}
	}
	_, bosses = c.EnemiesFor(3)
	if len(bosses) != 2 {
		t.Fatalf("depth 3 bosses = %d", len(bosses))
	}
}

func TestParseRejectsInvalidContent(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no classes", "spells: {}\n"},
		{"bad skill", "classes:\n  x: {hp: 5, skills: {attack: 140}}\n"},
		{"unknown spell", "classes:\n  x: {hp: 5, spells: [nova]}\n"},
		{"zero hp enemy", "classes:\n  x: {hp: 5}\nenemies:\n  - {name: Wisp, hp: 0}\n"},
		{"malformed", "classes: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("first_aid"); got != "First Aid" {
		t.Fatalf("got %q", got)
	}
}
