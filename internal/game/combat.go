package game

import (
	"fmt"
	"math"

	"github.com/yourusername/agent-dungeon/internal/dice"
)

// Combat constants
const (
	StrengthDivisor  = 25 // player damage adds floor(STR/25)
	IntellectDivisor = 25 // spell damage adds floor(INT/25)
	SoloMaxFactor    = 2.0
	SoloFullParty    = 3
)

// IsAlive reports whether the enemy is still in the fight
func (e *Enemy) IsAlive() bool {
	return e.HP > 0 && !e.Routed
}

// Morale derives the enemy's morale from its hit point ratio
func (e *Enemy) Morale() Morale {
	if e.MaxHP <= 0 {
		return MoraleSteady
	}
	ratio := float64(e.HP) / float64(e.MaxHP)
	switch {
	case ratio > 0.5:
		return MoraleSteady
	case ratio > 0.25:
		return MoraleWounded
	default:
		return MoraleShaken
	}
}

// AttackSkill is the enemy's attack percentile including bonuses
func (e *Enemy) AttackSkill() int {
	return ClampSkill(e.Attack + e.AttackBonus)
}

// TakeDamage lowers enemy HP and reports whether it died
func (e *Enemy) TakeDamage(damage int) bool {
	if damage <= 0 || e.HP <= 0 {
		return false
	}
	e.HP -= damage
	if e.HP < 0 {
		e.HP = 0
	}
	return e.HP == 0
}

// SoloMultiplier scales enemy damage for small parties: 2.0 alone, 1.0 at
// three or more members, linear in between.
func SoloMultiplier(partySize int) float64 {
	if partySize <= 1 {
		return SoloMaxFactor
	}
	if partySize >= SoloFullParty {
		return 1.0
	}
	step := (SoloMaxFactor - 1.0) / float64(SoloFullParty-1)
	return SoloMaxFactor - step*float64(partySize-1)
}

// PlayerDamage rolls d6 + floor(STR/25)
func PlayerDamage(src dice.Source, strength int) int {
	return dice.Roll(src, dice.D6) + strength/StrengthDivisor
}

// CounterDamage rolls floor(d6 * SoloMultiplier(partySize)), never negative
func CounterDamage(src dice.Source, partySize int) int {
	dmg := int(math.Floor(float64(dice.Roll(src, dice.D6)) * SoloMultiplier(partySize)))
	if dmg < 0 {
		return 0
	}
	return dmg
}

// Exchange records one opposed attack
type Exchange struct {
	Attacker string     `json:"attacker"`
	Defender string     `json:"defender"`
	Attack   SkillCheck `json:"attack"`
	Defense  SkillCheck `json:"defense"`
	Hit      bool       `json:"hit"`
	Damage   int        `json:"damage"`
	Killed   bool       `json:"killed"`
}

// StartCombat spawns the room's enemies and puts the game in combat mode
func (gs *GameState) StartCombat(room *Room) {
	enemies := make([]*Enemy, 0, len(room.Enemies))
	for i := range room.Enemies {
		if !room.Enemies[i].IsAlive() {
			continue
		}
		e := room.Enemies[i]
		enemies = append(enemies, &e)
	}
	gs.Mode = ModeCombat
	gs.Combat = &Combat{RoomIndex: room.Index, Enemies: enemies}
	names := make([]string, len(enemies))
	for i, e := range enemies {
		names[i] = e.Name
	}
	gs.Logf(EventCombat, "", "Combat begins in %s against %s!", room.Name, joinNames(names))
}

// ResolvePlayerAttack draws, in order: attacker check, defender dodge and,
// only on a hit, the damage roll.
func (gs *GameState) ResolvePlayerAttack(actor *Character, target *Enemy, src dice.Source) Exchange {
	skill, _ := actor.Skill("attack")
	attack := ResolveSkillCheck(skill, src)
	defense := ResolveSkillCheck(target.Dodge, src)
	actor.Improve("attack", attack)

	ex := Exchange{Attacker: actor.Name, Defender: target.Name, Attack: attack, Defense: defense}
	ex.Hit = OpposedHit(attack, defense)
	if !ex.Hit {
		gs.Logf(EventCombat, actor.Name, "%s attacks %s and misses.", actor.Name, target.Name)
		return ex
	}
	ex.Damage = PlayerDamage(src, actor.Stats.STR)
	ex.Killed = target.TakeDamage(ex.Damage)
	gs.Logf(EventCombat, actor.Name, "%s hits %s for %d damage.", actor.Name, target.Name, ex.Damage)
	if ex.Killed {
		gs.enemySlain(target, actor.Name)
	}
	return ex
}

// ResolveSpellAttack draws the cast check, the defender dodge and on a hit
// count dice of the given size plus floor(INT/25).
func (gs *GameState) ResolveSpellAttack(actor *Character, target *Enemy, spell string, count, sides int, src dice.Source) Exchange {
	skill, _ := actor.Skill("cast")
	attack := ResolveSkillCheck(skill, src)
	defense := ResolveSkillCheck(target.Dodge, src)
	actor.Improve("cast", attack)

	ex := Exchange{Attacker: actor.Name, Defender: target.Name, Attack: attack, Defense: defense}
	ex.Hit = OpposedHit(attack, defense)
	if !ex.Hit {
		gs.Logf(EventCombat, actor.Name, "%s casts %s at %s, but it goes wide.", actor.Name, spell, target.Name)
		return ex
	}
	ex.Damage = dice.RollN(src, count, sides, actor.Stats.INT/IntellectDivisor)
	ex.Killed = target.TakeDamage(ex.Damage)
	gs.Logf(EventCombat, actor.Name, "%s's %s scorches %s for %d damage.", actor.Name, spell, target.Name, ex.Damage)
	if ex.Killed {
		gs.enemySlain(target, actor.Name)
	}
	return ex
}

func (gs *GameState) enemySlain(e *Enemy, by string) {
	gs.Logf(EventCombat, by, "%s falls.", e.Name)
	gs.AdjustReputation(e.Faction, -1)
}

// EnemyRound lets every living enemy act once. Each enemy draws a target
// among living members (initiative order), then its attack check, the
// member's dodge and on a hit the counter damage.
func (gs *GameState) EnemyRound(src dice.Source) []Exchange {
	if gs.Mode != ModeCombat || gs.Combat == nil {
		return nil
	}
	partySize := len(gs.Party)
	var out []Exchange
	for _, e := range gs.Combat.Enemies {
		if !e.IsAlive() {
			continue
		}
		living := gs.LivingMembers()
		if len(living) == 0 {
			break
		}
		target := living[dice.Roll(src, len(living))-1]
		attack := ResolveSkillCheck(e.AttackSkill(), src)
		dodgeSkill, _ := target.Skill("dodge")
		defense := ResolveSkillCheck(dodgeSkill, src)
		target.Improve("dodge", defense)

		ex := Exchange{Attacker: e.Name, Defender: target.Name, Attack: attack, Defense: defense}
		ex.Hit = OpposedHit(attack, defense)
		if ex.Hit {
			ex.Damage = CounterDamage(src, partySize)
			ex.Killed = target.TakeDamage(ex.Damage, fmt.Sprintf("Slain by %s", e.Name))
			gs.Logf(EventCombat, e.Name, "%s strikes %s for %d damage.", e.Name, target.Name, ex.Damage)
			if ex.Killed {
				gs.Logf(EventDeath, target.Name, "%s has died. %s.", target.Name, target.DeathCause)
			}
		} else {
			gs.Logf(EventCombat, e.Name, "%s lunges at %s and misses.", e.Name, target.Name)
		}
		out = append(out, ex)
	}
	return out
}

// EncounterXP sums enemy XP: full for the slain, half for the routed and
// nothing for the living.
func (c *Combat) EncounterXP() int {
	total := 0
	for _, e := range c.Enemies {
		switch {
		case e.HP <= 0:
			total += e.XP
		case e.Routed:
			total += e.XP / 2
		}
	}
	return total
}

// TotalXP sums the XP of every enemy in the encounter
func (c *Combat) TotalXP() int {
	total := 0
	for _, e := range c.Enemies {
		total += e.XP
	}
	return total
}

// CheckVictory ends combat when no enemy is left standing, awards the
// encounter XP and clears the room. Returns true on victory.
func (gs *GameState) CheckVictory() bool {
	if gs.Mode != ModeCombat || gs.Combat == nil {
		return false
	}
	if len(gs.LivingEnemies()) > 0 {
		return false
	}
	xp := gs.Combat.EncounterXP()
	gs.Logf(EventCombat, "", "The fight is won.")
	gs.EndCombat()
	gs.AwardXP(xp, "victory")
	return true
}

// EndCombat clears the encounter and the room it was fought in
func (gs *GameState) EndCombat() {
	if gs.Combat != nil && gs.Combat.RoomIndex >= 0 && gs.Combat.RoomIndex < len(gs.Dungeon) {
		room := &gs.Dungeon[gs.Combat.RoomIndex]
		room.Enemies = nil
		gs.clearRoom(room)
	}
	gs.Combat = nil
	if gs.Mode == ModeCombat {
		gs.Mode = ModeExploring
	}
}

// withdrawCombat leaves combat without clearing the room, writing enemy
// state back so the encounter resumes on return.
func (gs *GameState) withdrawCombat() {
	if gs.Combat != nil && gs.Combat.RoomIndex >= 0 && gs.Combat.RoomIndex < len(gs.Dungeon) {
		room := &gs.Dungeon[gs.Combat.RoomIndex]
		room.Enemies = room.Enemies[:0]
		for _, e := range gs.Combat.Enemies {
			e.AttackBonus = 0
			room.Enemies = append(room.Enemies, *e)
		}
	}
	gs.Combat = nil
	gs.Mode = ModeExploring
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return "nothing"
	case 1:
		return names[0]
	}
	out := ""
	for i, n := range names {
		switch {
		case i == 0:
			out = n
		case i == len(names)-1:
			out += " and " + n
		default:
			out += ", " + n
		}
	}
	return out
}
