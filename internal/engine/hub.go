package engine

import (
	"fmt"
	"strings"

	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/game"
)

// Town prices
const (
	InnCostPerMember = 5
	TempleReviveCost = 50
	SellDivisor      = 2
)

// Town locations
const (
	LocationSquare = "square"
	LocationMarket = "market"
	LocationInn    = "inn"
	LocationTemple = "temple"
	LocationGuild  = "guild"
)

func (e *Engine) hub(gs *game.GameState) *game.Hub {
	if gs.Hub == nil {
		gs.Hub = &game.Hub{Location: LocationSquare}
	}
	return gs.Hub
}

func (e *Engine) requireLocation(c *call, location string) error {
	if here := e.hub(c.gs).Location; here != location {
		return apperrors.New(apperrors.CodeNotAllowed,
			fmt.Sprintf("You must be at the %s (you are at the %s).", location, here))
	}
	return nil
}

func (e *Engine) handleVisit(c *call) error {
	key := strings.ToLower(strings.TrimSpace(c.cmd.Location))
	loc, ok := e.catalog.Locations[key]
	if !ok {
		return apperrors.New(apperrors.CodeUnknownLocation, fmt.Sprintf("There is no %q in town.", c.cmd.Location))
	}
	e.hub(c.gs).Location = key
	c.gs.Logf(game.EventHub, c.actor.Name, "The party heads to %s. %s", loc.Name, loc.Description)
	c.detail("location", loc)
	return nil
}

func (e *Engine) handleBuy(c *call) error {
	if err := e.requireLocation(c, LocationMarket); err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(c.cmd.Item))
	it, ok := e.catalog.Items[key]
	if !ok {
		return apperrors.New(apperrors.CodeUnknownItem, fmt.Sprintf("Nobody sells %q here.", c.cmd.Item))
	}
	if c.actor.Gold < it.Price {
		return apperrors.New(apperrors.CodeInsufficientGold,
			fmt.Sprintf("%s costs %d gold; %s has %d.", it.Name, it.Price, c.actor.Name, c.actor.Gold))
	}
	c.actor.Gold -= it.Price
	bought := c.actor.AddItem(key, it)
	c.gs.Logf(game.EventHub, c.actor.Name, "%s buys %s for %d gold.", c.actor.Name, it.Name, it.Price)
	c.detail("item", bought)
	return nil
}

func (e *Engine) handleSell(c *call) error {
	if err := e.requireLocation(c, LocationMarket); err != nil {
		return err
	}
	idx, item := c.actor.FindItem(c.cmd.Item)
	if item == nil {
		return apperrors.New(apperrors.CodeUnknownItem, fmt.Sprintf("%s has no %q.", c.actor.Name, c.cmd.Item))
	}
	price := item.Price / SellDivisor
	sold := c.actor.RemoveItem(idx)
	c.actor.Gold += price
	c.gs.Logf(game.EventHub, c.actor.Name, "%s sells %s for %d gold.", c.actor.Name, sold.Name, price)
	c.detail("gold", c.actor.Gold)
	return nil
}

func (e *Engine) restInTown(c *call) error {
	gs := c.gs
	switch e.hub(gs).Location {
	case LocationInn:
		living := gs.LivingMembers()
		cost := InnCostPerMember * len(living)
		if c.actor.Gold < cost {
			return apperrors.New(apperrors.CodeInsufficientGold, fmt.Sprintf("Beds for the party cost %d gold.", cost))
		}
		c.actor.Gold -= cost
		for _, m := range living {
			m.HP, m.MP = m.MaxHP, m.MaxMP
		}
		gs.Logf(game.EventHub, c.actor.Name, "%s pays %d gold and the party sleeps soundly.", c.actor.Name, cost)
	case LocationTemple:
		dead := gs.DeadMembers()
		if len(dead) == 0 {
			return apperrors.New(apperrors.CodeNotAllowed, "Nobody here needs the priests.")
		}
		cost := TempleReviveCost * len(dead)
		if c.actor.Gold < cost {
			return apperrors.New(apperrors.CodeInsufficientGold, fmt.Sprintf("The priests ask %d gold.", cost))
		}
		c.actor.Gold -= cost
		for _, m := range dead {
			m.HP, m.MP = m.MaxHP, m.MaxMP
			m.ResetAdventure()
			gs.Logf(game.EventHub, m.Name, "The priests return %s to the living.", m.Name)
		}
	default:
		return apperrors.New(apperrors.CodeNotAllowed, "Rest at the inn, or visit the temple for the fallen.")
	}
	return nil
}

func (e *Engine) handleEmbark(c *call) error {
	if len(c.gs.LivingMembers()) == 0 {
		return apperrors.New(apperrors.CodeNotAllowed, "Nobody is fit to travel.")
	}
	e.embark(c.gs, fmt.Sprintf("%s leads the party out of town.", c.actor.Name))
	return nil
}

func (e *Engine) embark(gs *game.GameState, reason string) {
	gs.Logf(game.EventHub, "", "%s", reason)
	gs.Depth++
	for _, m := range gs.Party {
		m.ResetAdventure()
	}
	e.startAdventure(gs)
}

// hubIdle counts town commands and sends the party off once the idle limit
// is reached.
func (e *Engine) hubIdle(c *call) {
	gs := c.gs
	if gs.Phase != game.PhaseHubTown || c.handler.name == ActionEmbark {
		return
	}
	h := e.hub(gs)
	h.IdleTurns++
	if h.IdleTurns < e.cfg.HubIdleLimit || len(gs.LivingMembers()) == 0 {
		return
	}
	e.embark(gs, "The party grows restless in town and sets out again.")
	c.detail("auto_embark", true)
}
