package game

import (
	"testing"

	"github.com/yourusername/agent-dungeon/internal/dice"
)

func TestResolveSkillCheck(t *testing.T) {
	tests := []struct {
		name      string
		skill     int
		roll      int
		success   bool
		nextSkill int
	}{
		{"roll equals skill succeeds", 50, 50, true, 51},
		{"roll above skill fails", 50, 51, false, 50},
		{"capped at 100", 100, 100, true, 100},
		{"natural one", 1, 1, true, 2},
		{"skill below range clamps to 1", -20, 2, false, 1},
		{"skill above range clamps to 100", 150, 99, true, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSkillCheck(tt.skill, dice.NewScript(tt.roll))
			if got.Roll != tt.roll || got.Success != tt.success || got.NextSkill != tt.nextSkill {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestSkillNeverDecreases(t *testing.T) {
	src := dice.NewSeeded(99)
	skill := 30
	for i := 0; i < 2000; i++ {
		check := ResolveSkillCheck(skill, src)
		if check.NextSkill < skill || check.NextSkill > SkillMax {
			t.Fatalf("skill went from %d to %d", skill, check.NextSkill)
		}
		if !check.Success && check.NextSkill != skill {
			t.Fatal("failure must not improve the skill")
		}
		skill = check.NextSkill
	}
}

func TestOpposedHit(t *testing.T) {
	tests := []struct {
		name              string
		attSkill, attRoll int
		defSkill, defRoll int
		want              bool
	}{
		{"attacker fails", 40, 41, 30, 90, false},
		{"defender fails", 40, 10, 30, 31, true},
		{"attacker larger margin", 60, 10, 50, 30, true},
		{"equal margins favor defender", 60, 30, 50, 20, false},
		{"defender larger margin", 60, 50, 50, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := dice.NewScript(tt.attRoll, tt.defRoll)
			att := ResolveSkillCheck(tt.attSkill, src)
			def := ResolveSkillCheck(tt.defSkill, src)
			if got := OpposedHit(att, def); got != tt.want {
				t.Fatalf("hit = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeaknessLowersEffectiveSkillButImprovesBase(t *testing.T) {
	c := member("Ash", 50)
	c.ResurrectionWeakness = true
	if got, _ := c.Skill("attack"); got != 40 {
		t.Fatalf("effective attack = %d", got)
	}
	c.Improve("attack", SkillCheck{Success: true})
	if c.Skills["attack"] != 51 {
		t.Fatalf("base attack = %d", c.Skills["attack"])
	}
	c.Skills["dodge"] = 5
	if got, _ := c.Skill("dodge"); got != 1 {
		t.Fatalf("effective dodge = %d", got)
	}
}
