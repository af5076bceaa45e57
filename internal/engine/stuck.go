package engine

import (
	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/game"
	"github.com/yourusername/agent-dungeon/internal/phase"
)

// canGetStuck reports whether submissions from agent count toward a stuck
// loop: setup participants while setting up, living members afterwards.
func (e *Engine) canGetStuck(gs *game.GameState, agent string) bool {
	if gs.Phase == game.PhaseSetup {
		return agent == gs.HostAgent || gs.HasPlayer(agent)
	}
	m := gs.Member(agent)
	return m != nil && m.IsAlive()
}

// progress is what an accepted command has to change to count as moving the
// game forward. Turn rotation alone does not.
type progress struct {
	phase       game.Phase
	mode        game.Mode
	room        int
	players     int
	party       int
	setup       string
	transitions int
	location    string
	enemyHP     int
	partyHP     int
	partyMP     int
	gold        int
	items       int
}

func snapshotProgress(gs *game.GameState) progress {
	p := progress{
		phase:   gs.Phase,
		mode:    gs.Mode,
		room:    gs.RoomIndex,
		players: len(gs.Players),
		party:   len(gs.Party),
	}
	if gs.Setup != nil {
		p.setup = gs.Setup.Current
		p.transitions = gs.Setup.Transitions
	}
	if gs.Hub != nil {
		p.location = gs.Hub.Location
	}
	if gs.Combat != nil {
		for _, en := range gs.Combat.Enemies {
			if !en.Routed {
				p.enemyHP += en.HP
			}
		}
	}
	for _, m := range gs.Party {
		p.partyHP += m.HP
		p.partyMP += m.MP
		p.gold += m.Gold
		p.items += len(m.Inventory)
	}
	return p
}

// trackStuck records the submission and reports whether the same action
// and target have now been submitted StuckThreshold times in a row.
func (e *Engine) trackStuck(gs *game.GameState, cmd Command) bool {
	target := cmd.stuckTarget()
	if gs.Stuck.Action == cmd.Action && gs.Stuck.Target == target {
		gs.Stuck.Count++
	} else {
		gs.Stuck = game.StuckTracker{Action: cmd.Action, Target: target, Count: 1}
	}
	return gs.Stuck.Count >= e.cfg.StuckThreshold
}

// intervene forcibly resolves whatever the table is stuck on, logs both the
// warning and the resolution and returns the resolution narrative.
func (e *Engine) intervene(c *call) string {
	gs := c.gs
	gs.Logf(game.EventWarning, c.cmd.Actor, "stuck: %s %q submitted %d times in a row",
		gs.Stuck.Action, gs.Stuck.Target, gs.Stuck.Count)
	e.logger.Warn("stuck game detected",
		zap.String("game_id", gs.ID),
		zap.String("agent", c.cmd.Actor),
		zap.String("action", gs.Stuck.Action),
		zap.String("target", gs.Stuck.Target),
		zap.Int("count", gs.Stuck.Count),
	)
	gs.Stuck = game.StuckTracker{}

	narrative := "The table pauses, then play moves on."
	switch gs.Phase {
	case game.PhaseSetup:
		narrative = e.unstickSetup(c)
	case game.PhasePlaying:
		narrative = gs.ForceResolve()
		gs.CheckVictory()
		game.NormalizeTurnState(gs)
		if gs.Phase == game.PhasePlaying && gs.DungeonComplete() {
			gs.CompleteAdventure()
		}
	case game.PhaseHubTown:
		if len(gs.LivingMembers()) > 0 {
			e.embark(gs, "The guild master hurries the party back on the road.")
			narrative = "The party is sent on its next adventure."
		}
	}
	gs.Logf(game.EventIntervention, "", "%s", narrative)
	gs.Sequence++
	c.detail("intervention", true)
	c.res.Mutated = true
	return narrative
}

func (e *Engine) unstickSetup(c *call) string {
	gs := c.gs
	m, err := setupMachine(gs)
	if err != nil || m == nil {
		return "Setup is waiting on the host to begin the interview."
	}
	def, ok := m.Definition()
	if !ok {
		return "Setup is already complete."
	}
	res := phase.Result{Action: def.TransitionOn, Agent: def.ActiveAgent, Done: true}
	if err := e.advanceSetup(c, m, res); err != nil {
		return "Setup could not be advanced."
	}
	return "The narrator moves the interview along."
}
