package engine

import (
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/game"
	"github.com/yourusername/agent-dungeon/internal/phase"
)

// gate checks phase, mode, party membership and turn for a call. During a
// running setup interview a non-setup command from the active agent is
// coerced into the expected setup command.
func (e *Engine) gate(c *call) error {
	gs := c.gs
	sp := c.handler

	if gs.Phase == game.PhaseSetup && !sp.setup && !sp.readOnly && !sp.chat && sp.name != ActionNewGame {
		return e.coerceSetup(c)
	}
	if !containsPhase(sp.phases, gs.Phase) {
		return apperrors.WithMetadata(apperrors.CodeWrongPhase,
			fmt.Sprintf("%s is not available during %s.", sp.name, gs.Phase),
			map[string]string{"phase": string(gs.Phase)})
	}
	if !sp.party {
		return nil
	}

	actor := gs.Member(c.cmd.Actor)
	if actor == nil {
		return apperrors.New(apperrors.CodeNotInParty, "You have no character in this party.")
	}
	c.actor = actor
	if !actor.IsAlive() {
		return apperrors.New(apperrors.CodeCharacterDead, fmt.Sprintf("%s is dead.", actor.Name))
	}
	if !containsMode(sp.modes, gs.Mode) {
		return apperrors.New(apperrors.CodeWrongMode, fmt.Sprintf("%s is not available while %s.", sp.name, gs.Mode))
	}
	if gs.Phase != game.PhasePlaying || !sp.turnGated {
		return nil
	}
	if sp.exploration && gs.Freeform && gs.Mode == game.ModeExploring {
		return nil
	}
	if gs.CurrentPlayer != actor.Key() {
		return apperrors.New(apperrors.CodeNotYourTurn, fmt.Sprintf("It is %s's turn.", gs.CurrentPlayer))
	}
	return nil
}

// coerceSetup handles gameplay commands sent while setup is running
func (e *Engine) coerceSetup(c *call) error {
	gs := c.gs
	m, err := setupMachine(gs)
	if err != nil {
		return err
	}
	if m == nil || m.IsComplete() {
		return apperrors.New(apperrors.CodeWrongPhase, "The game is still being set up. Join and create a character first.")
	}
	def, _ := m.Definition()
	if def.ActiveAgent != c.cmd.Actor {
		return apperrors.New(apperrors.CodeWrongPhase,
			fmt.Sprintf("Setup in progress: waiting for %s to %s.", def.ActiveAgent, def.TransitionOn))
	}
	original := c.cmd.Action
	c.cmd.Action = def.TransitionOn
	if c.cmd.Text == "" {
		c.cmd.Text = fmt.Sprintf("(%s)", original)
	}
	c.handler = e.registry[def.TransitionOn]
	gs.Logf(game.EventRecovery, c.cmd.Actor, "Setup expected %s; treating %s as %s.", def.TransitionOn, original, def.TransitionOn)
	e.logger.Info("coerced setup command",
		zap.String("game_id", gs.ID),
		zap.String("agent", c.cmd.Actor),
		zap.String("from", original),
		zap.String("to", def.TransitionOn),
		zap.String("setup_phase", m.Current()),
	)
	c.detail("coerced_from", original)
	return nil
}

// AvailableActions lists the commands identity may issue right now
func (e *Engine) AvailableActions(gs *game.GameState, identity string) []string {
	if gs == nil {
		return []string{ActionNewGame}
	}
	if gs.Phase == game.PhaseSetup {
		if m, err := setupMachine(gs); err == nil && m != nil && !m.IsComplete() {
			tools := m.AvailableTools(identity)
			return append(tools, ActionStatus, ActionSendMessage, ActionGetReputation)
		}
	}
	var out []string
	for _, name := range e.CommandNames() {
		sp := e.registry[name]
		if name == ActionNewGame {
			continue
		}
		if sp.setup && gs.Phase == game.PhaseSetup {
			if e.setupCommandFits(gs, sp.name, identity) {
				out = append(out, name)
			}
			continue
		}
		probe := &call{gs: gs, cmd: Command{Action: name, Actor: identity}, handler: sp, res: &Result{}}
		if gs.Phase == game.PhaseSetup && !sp.readOnly && !sp.chat {
			continue
		}
		if e.gate(probe) == nil {
			out = append(out, name)
		}
	}
	return out
}

func (e *Engine) setupCommandFits(gs *game.GameState, name, identity string) bool {
	switch name {
	case ActionJoinGame:
		return identity != gs.HostAgent && !gs.HasPlayer(identity)
	case ActionCreateCharacter:
		return gs.HasPlayer(identity) && gs.Member(identity) == nil
	case phase.ToolNarrate:
		return identity == gs.HostAgent && len(gs.Party) > 0
	}
	return false
}
