package game

import (
	"fmt"

	"github.com/yourusername/agent-dungeon/internal/dice"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
)

// Alternative resolution constants
const (
	NegotiateXPPercent  = 75
	NegotiateLevelStep  = 5 // persuade bonus per average party level above 1
	NegotiateReputation = 2
	FleeTarget          = 50
	FleeXP              = 10
	IntimidateBonus     = 10 // attack bonus granted to enemies on a failed intimidation
	ResurrectMPCost     = 10
	ResurrectPenalty    = 20
)

// Outcome summarizes an alternative resolution
type Outcome struct {
	Check   SkillCheck `json:"check"`
	Success bool       `json:"success"`
	Summary string     `json:"summary"`
}

func requireCombat(gs *GameState) error {
	if gs.Mode != ModeCombat || gs.Combat == nil {
		return apperrors.New(apperrors.CodeWrongMode, "You are not in combat.")
	}
	return nil
}

// NegotiationEligible reports whether an enemy is willing to talk: it must
// be negotiable, not a boss, and not already panicking.
func (e *Enemy) NegotiationEligible() bool {
	return e.Negotiable && e.Tactics != TacticsBoss && e.Morale() != MoraleShaken
}

// IntimidationEligible reports whether an enemy is hurt enough to be routed
func (e *Enemy) IntimidationEligible() bool {
	if e.Tactics == TacticsBoss || !e.IsAlive() {
		return false
	}
	m := e.Morale()
	return m == MoraleWounded || m == MoraleShaken
}

// Negotiate tries to talk every living enemy down. Success ends combat with
// 75% of the encounter XP; failure changes nothing and the caller grants
// the enemies a free round.
func (gs *GameState) Negotiate(actor *Character, src dice.Source) (Outcome, error) {
	if err := requireCombat(gs); err != nil {
		return Outcome{}, err
	}
	for _, e := range gs.LivingEnemies() {
		if !e.NegotiationEligible() {
			return Outcome{}, apperrors.New(apperrors.CodeNotNegotiable,
				fmt.Sprintf("%s will not negotiate.", e.Name))
		}
	}
	skill, _ := actor.Skill("persuade")
	target := skill + int(float64(NegotiateLevelStep)*(gs.AverageLevel()-1))
	check := ResolveSkillCheck(target, src)
	actor.Improve("persuade", check)

	if !check.Success {
		gs.Logf(EventCombat, actor.Name, "%s's words fall on deaf ears.", actor.Name)
		return Outcome{Check: check, Summary: "Negotiation failed. The enemies press the attack."}, nil
	}
	xp := gs.Combat.TotalXP() * NegotiateXPPercent / 100
	factions := map[string]bool{}
	for _, e := range gs.LivingEnemies() {
		if !factions[e.Faction] {
			factions[e.Faction] = true
			gs.AdjustReputation(e.Faction, NegotiateReputation)
		}
	}
	gs.Logf(EventCombat, actor.Name, "%s talks the enemies into standing down.", actor.Name)
	gs.EndCombat()
	gs.AwardXP(xp, "negotiation")
	return Outcome{Check: check, Success: true, Summary: "The enemies stand down."}, nil
}

// Flee attempts a retreat at a fixed 50% target. Bosses block it.
func (gs *GameState) Flee(actor *Character, src dice.Source) (Outcome, error) {
	if err := requireCombat(gs); err != nil {
		return Outcome{}, err
	}
	if gs.HasBoss() {
		return Outcome{}, apperrors.New(apperrors.CodeBossPresent, "There is no escaping a boss.")
	}
	check := ResolveSkillCheck(FleeTarget, src)
	if !check.Success {
		gs.Logf(EventCombat, actor.Name, "%s tries to flee but the way is cut off.", actor.Name)
		return Outcome{Check: check, Summary: "Escape failed."}, nil
	}
	gs.withdrawCombat()
	if gs.RoomIndex > 0 {
		gs.RoomIndex--
	}
	gs.Logf(EventCombat, actor.Name, "%s leads the party back to %s.", actor.Name, gs.CurrentRoom().Name)
	gs.AwardXP(FleeXP, "escape")
	return Outcome{Check: check, Success: true, Summary: "The party escapes."}, nil
}

// Sneak tries to slip past the encounter in the next room. Success lands the
// party in the room after it (or at the dungeon end); failure walks straight
// into the encounter.
func (gs *GameState) Sneak(actor *Character, src dice.Source) (Outcome, bool, error) {
	if gs.Mode != ModeExploring {
		return Outcome{}, false, apperrors.New(apperrors.CodeWrongMode, "You can only sneak while exploring.")
	}
	next := gs.RoomIndex + 1
	if next >= len(gs.Dungeon) {
		return Outcome{}, false, apperrors.New(apperrors.CodeInvalidTarget, "There is nothing ahead to sneak past.")
	}
	ahead := &gs.Dungeon[next]
	if ahead.Cleared || ahead.Bypassed || !hasLivingSpawn(ahead) {
		return Outcome{}, false, apperrors.New(apperrors.CodeInvalidTarget, "The way ahead is clear. Just explore.")
	}
	skill, _ := actor.Skill("sneak")
	check := ResolveSkillCheck(skill+actor.SneakBonus, src)
	actor.Improve("sneak", check)

	if !check.Success {
		gs.Logf(EventNarrative, actor.Name, "%s stumbles and the party is spotted!", actor.Name)
		started := gs.EnterRoom(next)
		return Outcome{Check: check, Summary: "The party was spotted."}, started, nil
	}
	ahead.Bypassed = true
	landing := next + 1
	if landing > gs.LastRoomIndex() {
		landing = gs.LastRoomIndex()
	}
	gs.Logf(EventNarrative, actor.Name, "%s guides the party unseen past %s.", actor.Name, ahead.Name)
	started := false
	if landing != next {
		started = gs.EnterRoom(landing)
	} else {
		gs.RoomIndex = landing
	}
	return Outcome{Check: check, Success: true, Summary: "The party slips past unseen."}, started, nil
}

// Intimidate routs every wounded or shaken non-boss enemy on success; on
// failure the remaining enemies gain +10 attack.
func (gs *GameState) Intimidate(actor *Character, src dice.Source) (Outcome, error) {
	if err := requireCombat(gs); err != nil {
		return Outcome{}, err
	}
	var eligible []*Enemy
	for _, e := range gs.LivingEnemies() {
		if e.IntimidationEligible() {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return Outcome{}, apperrors.New(apperrors.CodeNoEligibleEnemies, "No enemy is shaken enough to be intimidated.")
	}
	skill, _ := actor.Skill("intimidate")
	check := ResolveSkillCheck(skill, src)
	actor.Improve("intimidate", check)

	if !check.Success {
		for _, e := range gs.LivingEnemies() {
			e.AttackBonus += IntimidateBonus
		}
		gs.Logf(EventCombat, actor.Name, "%s's threats only enrage the enemy.", actor.Name)
		return Outcome{Check: check, Summary: "The enemies are enraged."}, nil
	}
	for _, e := range eligible {
		e.Routed = true
		gs.AdjustReputation(e.Faction, -1)
		gs.Logf(EventCombat, actor.Name, "%s flees in terror.", e.Name)
	}
	return Outcome{Check: check, Success: true, Summary: fmt.Sprintf("%d enemies flee.", len(eligible))}, nil
}

// Resurrect lets a healer attempt to raise a fallen member once per
// adventure. A refused target cannot be tried again until the next one.
func (gs *GameState) Resurrect(healer, target *Character, src dice.Source) (Outcome, error) {
	if !healer.Healer {
		return Outcome{}, apperrors.New(apperrors.CodeNotHealer, "Only a healer can resurrect.")
	}
	if target.IsAlive() {
		return Outcome{}, apperrors.New(apperrors.CodeInvalidTarget, fmt.Sprintf("%s is not dead.", target.Name))
	}
	if target.ResurrectionFailed {
		return Outcome{}, apperrors.New(apperrors.CodeResurrectionBlock,
			fmt.Sprintf("The gods have already refused %s this adventure.", target.Name))
	}
	if healer.MP < ResurrectMPCost {
		return Outcome{}, apperrors.New(apperrors.CodeInsufficientMP,
			fmt.Sprintf("Resurrection needs %d MP.", ResurrectMPCost))
	}
	healer.MP -= ResurrectMPCost
	skill, _ := healer.Skill("cast")
	check := ResolveSkillCheck(skill-ResurrectPenalty, src)
	healer.Improve("cast", check)

	if !check.Success {
		target.ResurrectionFailed = true
		gs.Logf(EventNarrative, healer.Name, "%s prays over %s, but the gods refuse.", healer.Name, target.Name)
		return Outcome{Check: check, Summary: fmt.Sprintf("%s cannot be raised this adventure.", target.Name)}, nil
	}
	target.HP = 1
	target.ResurrectionWeakness = true
	if gs.XPEarned != nil {
		gs.XPEarned[target.Key()] /= 2
	}
	gs.Logf(EventNarrative, healer.Name, "%s returns to life, weakened.", target.Name)
	return Outcome{Check: check, Success: true, Summary: fmt.Sprintf("%s lives again.", target.Name)}, nil
}

// ForceResolve ends the current obstacle without a roll: enemies withdraw
// from combat (no XP), or the party is moved forward one room.
func (gs *GameState) ForceResolve() string {
	if gs.Mode == ModeCombat && gs.Combat != nil {
		for _, e := range gs.LivingEnemies() {
			e.Routed = true
		}
		for _, e := range gs.Combat.Enemies {
			e.XP = 0
		}
		gs.EndCombat()
		return "The enemies lose interest and melt into the shadows."
	}
	if gs.RoomIndex < gs.LastRoomIndex() {
		next := gs.RoomIndex + 1
		gs.Dungeon[next].Bypassed = true
		gs.EnterRoom(next)
		return fmt.Sprintf("A hidden passage carries the party into %s.", gs.Dungeon[next].Name)
	}
	if room := gs.CurrentRoom(); room != nil {
		room.Cleared = true
	}
	return "The party finds the way out."
}
