package engine

import (
	"fmt"
	"strings"

	"github.com/yourusername/agent-dungeon/internal/catalog"
	"github.com/yourusername/agent-dungeon/internal/dice"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/game"
)

// Out-of-combat skill and rest tuning
const (
	PerceptionGoldDie = dice.D6
	FirstAidDie       = 4
	RestFraction      = 4 // a dungeon rest restores a quarter of max HP and MP
)

func (e *Engine) handleExplore(c *call) error {
	gs := c.gs
	if gs.RoomIndex >= gs.LastRoomIndex() {
		return apperrors.New(apperrors.CodeInvalidTarget, "There is nowhere further to go.")
	}
	started := gs.EnterRoom(gs.RoomIndex + 1)
	c.detail("room", gs.CurrentRoom())
	c.detail("combat_started", started)
	return nil
}

func (e *Engine) targetEnemy(c *call) (*game.Enemy, error) {
	target := c.gs.FindEnemy(c.cmd.Target)
	if target == nil {
		return nil, apperrors.New(apperrors.CodeInvalidTarget, fmt.Sprintf("No enemy called %q is standing.", c.cmd.Target))
	}
	return target, nil
}

func (e *Engine) handleAttack(c *call) error {
	target, err := e.targetEnemy(c)
	if err != nil {
		return err
	}
	c.detail("attack", c.gs.ResolvePlayerAttack(c.actor, target, c.src))
	return nil
}

func (e *Engine) handleNegotiate(c *call) error {
	out, err := c.gs.Negotiate(c.actor, c.src)
	if err != nil {
		return err
	}
	c.detail("outcome", out)
	return nil
}

func (e *Engine) handleFlee(c *call) error {
	out, err := c.gs.Flee(c.actor, c.src)
	if err != nil {
		return err
	}
	c.detail("outcome", out)
	return nil
}

func (e *Engine) handleSneak(c *call) error {
	out, started, err := c.gs.Sneak(c.actor, c.src)
	if err != nil {
		return err
	}
	c.detail("outcome", out)
	c.detail("combat_started", started)
	return nil
}

func (e *Engine) handleIntimidate(c *call) error {
	out, err := c.gs.Intimidate(c.actor, c.src)
	if err != nil {
		return err
	}
	c.detail("outcome", out)
	return nil
}

func (e *Engine) handleResurrect(c *call) error {
	target := c.gs.Member(c.cmd.Target)
	if target == nil {
		return apperrors.New(apperrors.CodeInvalidTarget, fmt.Sprintf("No party member called %q.", c.cmd.Target))
	}
	out, err := c.gs.Resurrect(c.actor, target, c.src)
	if err != nil {
		return err
	}
	c.detail("outcome", out)
	return nil
}

func (e *Engine) targetMember(c *call) (*game.Character, error) {
	if c.cmd.Target == "" {
		return c.actor, nil
	}
	target := c.gs.Member(c.cmd.Target)
	if target == nil {
		return nil, apperrors.New(apperrors.CodeInvalidTarget, fmt.Sprintf("No party member called %q.", c.cmd.Target))
	}
	if !target.IsAlive() {
		return nil, apperrors.New(apperrors.CodeInvalidTarget, fmt.Sprintf("%s is dead.", target.Name))
	}
	return target, nil
}

func (e *Engine) handleCastSpell(c *call) error {
	gs := c.gs
	name := strings.ToLower(c.cmd.Spell)
	spell, ok := e.catalog.Spells[name]
	if !ok || !c.actor.KnowsSpell(name) {
		return apperrors.New(apperrors.CodeUnknownSpell, fmt.Sprintf("%s does not know %q.", c.actor.Name, c.cmd.Spell))
	}
	if spell.Kind == catalog.SpellResurrect {
		return e.handleResurrect(c)
	}
	if c.actor.MP < spell.MP {
		return apperrors.New(apperrors.CodeInsufficientMP, fmt.Sprintf("%s needs %d MP.", name, spell.MP))
	}

	switch spell.Kind {
	case catalog.SpellDamage:
		if gs.Mode != game.ModeCombat {
			return apperrors.New(apperrors.CodeWrongMode, "There is nothing to attack.")
		}
		target, err := e.targetEnemy(c)
		if err != nil {
			return err
		}
		c.actor.MP -= spell.MP
		c.detail("attack", gs.ResolveSpellAttack(c.actor, target, name, spell.Dice, spell.Sides, c.src))
	case catalog.SpellHeal:
		target, err := e.targetMember(c)
		if err != nil {
			return err
		}
		c.actor.MP -= spell.MP
		skill, _ := c.actor.Skill("cast")
		check := game.ResolveSkillCheck(skill, c.src)
		c.actor.Improve("cast", check)
		c.detail("check", check)
		if !check.Success {
			gs.Logf(game.EventNarrative, c.actor.Name, "%s's prayer fizzles.", c.actor.Name)
			return nil
		}
		healed := target.Heal(dice.RollN(c.src, spell.Dice, spell.Sides, c.actor.Stats.WIS/game.StrengthDivisor))
		gs.Logf(game.EventNarrative, c.actor.Name, "%s heals %s for %d.", c.actor.Name, target.Name, healed)
		c.detail("healed", healed)
	default:
		return apperrors.New(apperrors.CodeUnknownSpell, fmt.Sprintf("%q cannot be cast here.", name))
	}
	return nil
}

func (e *Engine) handleUseSkill(c *call) error {
	gs := c.gs
	switch strings.ToLower(c.cmd.Skill) {
	case "perception":
		room := gs.CurrentRoom()
		if room == nil || room.Searched {
			return apperrors.New(apperrors.CodeNotAllowed, "This room has already been searched.")
		}
		skill, _ := c.actor.Skill("perception")
		check := game.ResolveSkillCheck(skill, c.src)
		c.actor.Improve("perception", check)
		room.Searched = true
		c.detail("check", check)
		if !check.Success {
			gs.Logf(game.EventNarrative, c.actor.Name, "%s searches %s and finds nothing.", c.actor.Name, room.Name)
			return nil
		}
		gold := dice.Roll(c.src, PerceptionGoldDie) * gs.Depth
		c.actor.Gold += gold
		gs.Logf(game.EventLoot, c.actor.Name, "%s finds %d gold hidden in %s.", c.actor.Name, gold, room.Name)
		c.detail("gold", gold)
	case "first_aid":
		target, err := e.targetMember(c)
		if err != nil {
			return err
		}
		if target.HP >= target.MaxHP {
			return apperrors.New(apperrors.CodeInvalidTarget, fmt.Sprintf("%s is not hurt.", target.Name))
		}
		skill, _ := c.actor.Skill("first_aid")
		check := game.ResolveSkillCheck(skill, c.src)
		c.actor.Improve("first_aid", check)
		c.detail("check", check)
		if !check.Success {
			gs.Logf(game.EventNarrative, c.actor.Name, "%s fumbles the bandages.", c.actor.Name)
			return nil
		}
		healed := target.Heal(dice.Roll(c.src, FirstAidDie))
		gs.Logf(game.EventNarrative, c.actor.Name, "%s patches up %s for %d.", c.actor.Name, target.Name, healed)
		c.detail("healed", healed)
	default:
		return apperrors.New(apperrors.CodeUnknownSkill, fmt.Sprintf("Unknown skill %q. Try perception or first_aid.", c.cmd.Skill))
	}
	return nil
}

func (e *Engine) handleUseItem(c *call) error {
	gs := c.gs
	idx, item := c.actor.FindItem(c.cmd.Item)
	if item == nil {
		return apperrors.New(apperrors.CodeUnknownItem, fmt.Sprintf("%s has no %q.", c.actor.Name, c.cmd.Item))
	}
	target, err := e.targetMember(c)
	if err != nil {
		return err
	}
	switch item.Kind {
	case catalog.ItemHeal:
		healed := target.Heal(item.Power)
		gs.Logf(game.EventNarrative, c.actor.Name, "%s uses %s on %s, restoring %d HP.", c.actor.Name, item.Name, target.Name, healed)
	case catalog.ItemMana:
		restored := target.RestoreMP(item.Power)
		gs.Logf(game.EventNarrative, c.actor.Name, "%s uses %s on %s, restoring %d MP.", c.actor.Name, item.Name, target.Name, restored)
	default:
		return apperrors.New(apperrors.CodeNotAllowed, fmt.Sprintf("%s cannot be used like that.", item.Name))
	}
	c.detail("item", c.actor.RemoveItem(idx))
	return nil
}

func (e *Engine) handleRest(c *call) error {
	if c.gs.Phase == game.PhaseHubTown {
		return e.restInTown(c)
	}
	gs := c.gs
	room := gs.CurrentRoom()
	if room == nil || room.Rested {
		return apperrors.New(apperrors.CodeNotAllowed, "The party has already rested here.")
	}
	room.Rested = true
	for _, m := range gs.LivingMembers() {
		hp := m.Heal(max(1, m.MaxHP/RestFraction))
		mp := m.RestoreMP(m.MaxMP / RestFraction)
		gs.Logf(game.EventNarrative, m.Name, "%s rests, recovering %d HP and %d MP.", m.Name, hp, mp)
	}
	return nil
}

func (e *Engine) handleMessage(c *call) error {
	text := strings.TrimSpace(c.cmd.Text)
	if text == "" {
		return apperrors.New(apperrors.CodeInvalidTarget, "Message text is empty.")
	}
	gs := c.gs
	if c.cmd.Actor != gs.HostAgent && !gs.HasPlayer(c.cmd.Actor) && gs.Member(c.cmd.Actor) == nil {
		return apperrors.New(apperrors.CodeNotInParty, "Only the table can speak here.")
	}
	gs.Logf(game.EventMessage, c.cmd.Actor, "%s", text)
	return nil
}
