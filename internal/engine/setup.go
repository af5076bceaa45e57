package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/catalog"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/game"
	"github.com/yourusername/agent-dungeon/internal/generator"
	"github.com/yourusername/agent-dungeon/internal/phase"
)

func (e *Engine) handleNewGame(c *call) error {
	return apperrors.New(apperrors.CodeNotAllowed, "A game is already running here.")
}

func (e *Engine) handleJoin(c *call) error {
	gs := c.gs
	agent := c.cmd.Actor
	if agent == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "agent_id is required")
	}
	if gs.Setup != nil {
		return apperrors.New(apperrors.CodeWrongPhase, "The setup interview has already started.")
	}
	if agent == gs.HostAgent {
		return apperrors.New(apperrors.CodeNotAllowed, "The host narrates; it cannot join as a player.")
	}
	if gs.HasPlayer(agent) {
		return apperrors.New(apperrors.CodeAlreadyJoined, "You already joined this game.")
	}
	if len(gs.Players) >= e.cfg.MaxPartySize {
		return apperrors.New(apperrors.CodePartyFull, fmt.Sprintf("The party is full (%d players).", e.cfg.MaxPartySize))
	}
	gs.Players = append(gs.Players, agent)
	gs.Logf(game.EventSetup, agent, "%s joins the game.", agent)
	c.detail("players", append([]string(nil), gs.Players...))
	c.detail("classes", e.catalog.ClassNames())
	return nil
}

func (e *Engine) handleCreateCharacter(c *call) error {
	gs := c.gs
	agent := c.cmd.Actor
	if gs.Setup != nil {
		return apperrors.New(apperrors.CodeWrongPhase, "The setup interview has already started.")
	}
	if !gs.HasPlayer(agent) {
		return apperrors.New(apperrors.CodeNotInParty, "Join the game before creating a character.")
	}
	if gs.Member(agent) != nil {
		return apperrors.New(apperrors.CodeAlreadyJoined, "You already have a character.")
	}
	name := strings.TrimSpace(c.cmd.Name)
	if name == "" {
		return apperrors.New(apperrors.CodeInvalidTarget, "A character needs a name.")
	}
	if name == game.NoPlayer || gs.Member(name) != nil {
		return apperrors.New(apperrors.CodeInvalidTarget, fmt.Sprintf("The name %q is taken.", name))
	}
	className := strings.ToLower(strings.TrimSpace(c.cmd.Class))
	class, ok := e.catalog.Classes[className]
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeInvalidTarget,
			fmt.Sprintf("Unknown class %q. Choose one of: %s.", c.cmd.Class, strings.Join(e.catalog.ClassNames(), ", ")),
			map[string]string{"class": c.cmd.Class})
	}
	ch := game.NewCharacter(name, agent, className, class, e.catalog.Items)
	gs.Party = append(gs.Party, ch)
	gs.Logf(game.EventSetup, agent, "%s creates %s the %s.", agent, name, catalog.DisplayName(className))
	c.detail("character", ch)
	return nil
}

// handleSetup advances the interview. The host's first narration freezes the
// roster and builds the interview from every player with a character.
func (e *Engine) handleSetup(c *call) error {
	gs := c.gs
	m, err := setupMachine(gs)
	if err != nil {
		return err
	}
	if m == nil {
		if c.cmd.Action != phase.ToolNarrate || c.cmd.Actor != gs.HostAgent {
			return apperrors.New(apperrors.CodeSetupOutOfTurn,
				fmt.Sprintf("Waiting for %s to open the interview with setup_narrate.", gs.HostAgent))
		}
		if len(gs.Party) == 0 {
			return apperrors.New(apperrors.CodeNotAllowed, "Nobody has created a character yet.")
		}
		players := make([]string, 0, len(gs.Party))
		for _, ch := range gs.Party {
			players = append(players, ch.AgentID)
		}
		m = phase.Interview(gs.HostAgent, players, e.cfg.SetupExchanges)
	}
	def, ok := m.Definition()
	if !ok {
		return apperrors.New(apperrors.CodeWrongPhase, "Setup is already complete.")
	}
	if def.ActiveAgent != c.cmd.Actor || def.TransitionOn != c.cmd.Action {
		return apperrors.WithMetadata(apperrors.CodeSetupOutOfTurn,
			fmt.Sprintf("Setup is waiting for %s to %s.", def.ActiveAgent, def.TransitionOn),
			map[string]string{"setup_phase": m.Current()})
	}
	return e.advanceSetup(c, m, phase.Result{
		Action: c.cmd.Action,
		Agent:  c.cmd.Actor,
		Text:   c.cmd.Text,
		Done:   c.cmd.Done,
	})
}

func (e *Engine) advanceSetup(c *call, m *phase.Machine, result phase.Result) error {
	gs := c.gs
	from := m.Current()
	if result.Text != "" {
		gs.Logf(game.EventSetup, result.Agent, "%s", result.Text)
	}
	next, err := m.Advance(result)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStateCorrupt, "advance setup", err)
	}
	e.logger.Debug("setup advanced",
		zap.String("game_id", gs.ID),
		zap.String("from", from),
		zap.String("to", next),
	)
	if m.IsComplete() {
		gs.Setup = nil
		e.startAdventure(gs)
		c.detail("setup_complete", true)
		return nil
	}
	snap := m.Snapshot()
	gs.Setup = &snap
	def, _ := m.Definition()
	gs.CurrentPlayer = def.ActiveAgent
	c.detail("setup_phase", next)
	c.detail("prompt", def.Prompt)
	c.detail("waiting_for", def.ActiveAgent)
	return nil
}

// startAdventure generates a dungeon and moves the party into its entrance
func (e *Engine) startAdventure(gs *game.GameState) {
	if gs.Depth < 1 {
		gs.Depth = 1
	}
	gen := generator.NewDungeonGenerator(gs.Seed+int64(gs.Depth), e.catalog)
	gs.Dungeon = gen.GenerateDungeon(gs.Depth)
	gs.Phase = game.PhasePlaying
	gs.Mode = game.ModeExploring
	gs.Combat = nil
	gs.Hub = nil
	gs.RoomIndex = 0
	gs.Winner = ""
	gs.XPEarned = make(map[string]int)
	gs.CurrentPlayer = game.NoPlayer
	gs.Logf(game.EventPhase, "", "The adventure begins: %d rooms lie ahead.", len(gs.Dungeon))
	gs.EnterRoom(0)
	game.NormalizeTurnState(gs)
}
