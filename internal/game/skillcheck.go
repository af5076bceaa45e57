package game

import (
	"math"

	"github.com/yourusername/agent-dungeon/internal/dice"
)

// Skill check constants
const (
	SkillMin        = 1
	SkillMax        = 100
	SkillGain       = 1  // improvement applied on a successful check
	WeaknessPenalty = 10 // applied to every skill after a resurrection
)

// SkillCheck is the outcome of a percentile check
type SkillCheck struct {
	Skill     int  `json:"skill"`
	Roll      int  `json:"roll"`
	Success   bool `json:"success"`
	NextSkill int  `json:"next_skill"`
}

// Margin is skill minus roll on success. A failed check has no margin and
// compares below every success.
func (c SkillCheck) Margin() int {
	if !c.Success {
		return math.MinInt
	}
	return c.Skill - c.Roll
}

// ClampSkill forces a value into the percentile skill range
func ClampSkill(v int) int {
	if v < SkillMin {
		return SkillMin
	}
	if v > SkillMax {
		return SkillMax
	}
	return v
}

func improvedSkill(skill int) int {
	if skill+SkillGain > SkillMax {
		return SkillMax
	}
	return skill + SkillGain
}

// ResolveSkillCheck rolls a d100 against skill. The skill only improves on
// success and never past SkillMax.
func ResolveSkillCheck(skill int, src dice.Source) SkillCheck {
	skill = ClampSkill(skill)
	roll := dice.Percentile(src)
	check := SkillCheck{
		Skill:     skill,
		Roll:      roll,
		Success:   roll <= skill,
		NextSkill: skill,
	}
	if check.Success {
		check.NextSkill = improvedSkill(skill)
	}
	return check
}

// OpposedHit reports whether an attack check beats a defense check: the
// attacker must succeed and either the defender fails or the attacker's
// margin is strictly larger.
func OpposedHit(attack, defense SkillCheck) bool {
	if !attack.Success {
		return false
	}
	if !defense.Success {
		return true
	}
	return attack.Margin() > defense.Margin()
}
