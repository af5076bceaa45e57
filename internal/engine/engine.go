// Package engine is the lifecycle dispatcher. It validates a command against
// the game's phase, mode and turn, applies it to the state, repairs turn
// order and detects phase transitions. Dispatch is a synchronous transform of
// the state it is given; persistence and notifications live in the service
// layer.
package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/catalog"
	"github.com/yourusername/agent-dungeon/internal/dice"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/game"
	"github.com/yourusername/agent-dungeon/internal/phase"
)

// Config tunes the dispatcher
type Config struct {
	SetupExchanges int
	MaxPartySize   int
	HubIdleLimit   int
	StuckThreshold int
	Freeform       bool
}

// DefaultConfig returns the standard rules configuration
func DefaultConfig() Config {
	return Config{
		SetupExchanges: 2,
		MaxPartySize:   4,
		HubIdleLimit:   8,
		StuckThreshold: 5,
	}
}

// Command is one action submitted by an agent
type Command struct {
	Action       string `json:"action"`
	Actor        string `json:"agent_id"`
	Target       string `json:"target,omitempty"`
	Text         string `json:"text,omitempty"`
	Name         string `json:"name,omitempty"`
	Class        string `json:"class,omitempty"`
	Spell        string `json:"spell,omitempty"`
	Skill        string `json:"skill,omitempty"`
	Item         string `json:"item,omitempty"`
	Location     string `json:"location,omitempty"`
	Done         bool   `json:"done,omitempty"`
	Campaign     bool   `json:"campaign,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
	Freeform     bool   `json:"freeform,omitempty"`
}

// stuckTarget is the part of a command compared when detecting loops
func (c Command) stuckTarget() string {
	for _, v := range []string{c.Target, c.Spell, c.Skill, c.Item, c.Location, c.Class} {
		if v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// Result is the payload returned for every dispatched command
type Result struct {
	OK          bool           `json:"ok"`
	Error       string         `json:"error,omitempty"`
	Code        string         `json:"code,omitempty"`
	Action      string         `json:"action"`
	Narrative   string         `json:"narrative,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Events      []Event        `json:"events,omitempty"`
	PhaseBefore game.Phase     `json:"phase_before"`
	PhaseAfter  game.Phase     `json:"phase_after"`
	Completed   bool           `json:"completed,omitempty"`
	Mutated     bool           `json:"-"`
}

// Engine dispatches commands against game states
type Engine struct {
	catalog  *catalog.Catalog
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	registry map[string]*handler
}

// New creates an engine
func New(cat *catalog.Catalog, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	def := DefaultConfig()
	if cfg.SetupExchanges < 0 {
		cfg.SetupExchanges = def.SetupExchanges
	}
	if cfg.MaxPartySize <= 0 {
		cfg.MaxPartySize = def.MaxPartySize
	}
	if cfg.HubIdleLimit <= 0 {
		cfg.HubIdleLimit = def.HubIdleLimit
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = def.StuckThreshold
	}
	return &Engine{
		catalog:  cat,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		registry: newRegistry(),
	}
}

// SetClock overrides the clock used for log timestamps
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Catalog returns the content tables in use
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// NewGame creates a game in setup with cmd.Actor as host
func (e *Engine) NewGame(id string, cmd Command, seed int64) (*game.GameState, Result, error) {
	if cmd.Actor == "" {
		return nil, Result{}, apperrors.New(apperrors.CodeInvalidArgument, "agent_id is required to host a game")
	}
	if id == "" {
		id = uuid.NewString()
	}
	gs := game.NewGameState(id, cmd.Actor, seed)
	gs.SetClock(e.now)
	gs.Freeform = cmd.Freeform || e.cfg.Freeform
	if cmd.Campaign {
		name := cmd.CampaignName
		if name == "" {
			name = "Campaign of " + cmd.Actor
		}
		gs.Campaign = &game.Campaign{ID: uuid.NewString(), Name: name, Reputation: map[string]int{}}
	}
	gs.Logf(game.EventPhase, cmd.Actor, "%s opens a new game. Waiting for players to join.", cmd.Actor)

	res := Result{
		OK:          true,
		Action:      ActionNewGame,
		PhaseBefore: "",
		PhaseAfter:  gs.Phase,
		Narrative:   gs.Log[len(gs.Log)-1].Message,
		Details:     map[string]any{"game_id": gs.ID, "status": e.Status(gs, cmd.Actor)},
		Mutated:     true,
	}
	res.Events = append(res.Events, Event{Type: EventPhaseChange, GameID: gs.ID, Phase: gs.Phase,
		Data: map[string]any{"from": "", "to": string(gs.Phase)}})
	return gs, res, nil
}

// call carries one dispatch through its handler
type call struct {
	gs      *game.GameState
	cmd     Command
	src     dice.Source
	handler *handler
	actor   *game.Character
	res     *Result
	logLen  int
	before  marks
}

func (c *call) detail(key string, v any) {
	if c.res.Details == nil {
		c.res.Details = make(map[string]any)
	}
	c.res.Details[key] = v
}

// Dispatch applies cmd to gs. Game-rule violations come back as a Result
// with OK false; missing games and unknown commands are returned as errors.
// gs is modified in place.
func (e *Engine) Dispatch(gs *game.GameState, cmd Command, src dice.Source) (Result, error) {
	if gs == nil {
		return Result{}, apperrors.New(apperrors.CodeNoActiveGame, "No active game. Start one with new_game.")
	}
	sp, ok := e.registry[cmd.Action]
	if !ok {
		return Result{}, apperrors.WithMetadata(apperrors.CodeUnknownCommand,
			"unknown command: "+cmd.Action, map[string]string{"action": cmd.Action})
	}
	gs.SetClock(e.now)
	res := &Result{Action: cmd.Action, PhaseBefore: gs.Phase}
	c := &call{gs: gs, cmd: cmd, src: src, handler: sp, res: res, logLen: len(gs.Log), before: snapshotMarks(gs)}

	// Turn state left inconsistent by an earlier writer is repaired first; a
	// repair that ends the game still reports the completion.
	if game.NormalizeTurnState(gs) {
		res.Mutated = true
	}
	tracked := !sp.readOnly && !sp.chat && e.canGetStuck(gs, cmd.Actor)

	if err := e.gate(c); err != nil {
		return e.rejectOrIntervene(c, err, tracked)
	}
	wasCurrent := c.actor != nil && gs.CurrentPlayer == c.actor.Key()
	progressBefore := snapshotProgress(gs)

	if err := c.handler.handle(e, c); err != nil {
		return e.rejectOrIntervene(c, err, tracked)
	}
	if sp.readOnly {
		res.OK = true
		res.PhaseAfter = gs.Phase
		e.transitions(c)
		return *res, nil
	}
	res.Mutated = true

	e.settle(c, wasCurrent)
	if !sp.chat {
		switch {
		case snapshotProgress(gs) != progressBefore:
			gs.Stuck = game.StuckTracker{}
		case tracked && e.trackStuck(gs, c.cmd):
			e.intervene(c)
			return e.finish(c), nil
		}
	}
	gs.Sequence++
	return e.finish(c), nil
}

// rejectOrIntervene turns a rule violation into a rejection, unless the
// submission completes a stuck loop.
func (e *Engine) rejectOrIntervene(c *call, err error, tracked bool) (Result, error) {
	if !tracked || !apperrors.IsRule(err) {
		return e.reject(c, err)
	}
	c.res.Mutated = true
	if !e.trackStuck(c.gs, c.cmd) {
		return e.reject(c, err)
	}
	c.res.Details = nil
	c.res.Narrative = e.intervene(c)
	return e.finish(c), nil
}

// settle runs the shared post-action steps: town idling, the victory check,
// the enemy response, turn repair and advancement, then adventure completion.
func (e *Engine) settle(c *call, wasCurrent bool) {
	gs := c.gs
	if gs.Phase == game.PhaseHubTown && !c.handler.chat {
		e.hubIdle(c)
	}
	if gs.Phase != game.PhasePlaying {
		return
	}
	gs.CheckVictory()
	if c.handler.combat && gs.Mode == game.ModeCombat {
		if ex := gs.EnemyRound(c.src); len(ex) > 0 {
			c.detail("enemy_round", ex)
		}
	}
	game.NormalizeTurnState(gs)
	if c.handler.consumesTurn && wasCurrent {
		game.AdvanceTurn(gs)
	}
	if gs.Phase == game.PhasePlaying && gs.DungeonComplete() {
		gs.CompleteAdventure()
	}
}

func (e *Engine) reject(c *call, err error) (Result, error) {
	if !apperrors.IsRule(err) {
		return Result{}, err
	}
	c.res.OK = false
	c.res.Error = err.Error()
	c.res.Code = string(apperrors.CodeOf(err))
	c.res.PhaseAfter = c.gs.Phase
	c.res.Details = nil
	e.transitions(c)
	return *c.res, nil
}

type marks struct {
	phase   game.Phase
	mode    game.Mode
	current string
}

func snapshotMarks(gs *game.GameState) marks {
	return marks{phase: gs.Phase, mode: gs.Mode, current: gs.CurrentPlayer}
}

// finish fills the result of an accepted command from the state delta.
func (e *Engine) finish(c *call) Result {
	gs := c.gs
	res := c.res
	res.OK = true
	res.PhaseAfter = gs.Phase

	lines := make([]string, 0)
	for _, entry := range gs.LogSince(c.logLen) {
		if entry.Type == game.EventMessage || entry.Type == game.EventWarning {
			continue
		}
		lines = append(lines, entry.Message)
	}
	if res.Narrative == "" {
		res.Narrative = strings.Join(lines, " ")
	}
	e.transitions(c)
	return *res
}

// transitions appends the events implied by the state delta. Completion is
// detected by comparing the phase before and after, so it fires once per
// adventure.
func (e *Engine) transitions(c *call) {
	gs := c.gs
	res := c.res
	before := c.before
	if before.phase != gs.Phase {
		res.Events = append(res.Events, Event{Type: EventPhaseChange, GameID: gs.ID, Phase: gs.Phase,
			Data: map[string]any{"from": string(before.phase), "to": string(gs.Phase)}})
		if before.phase == game.PhasePlaying && (gs.Phase == game.PhaseFinished || gs.Phase == game.PhaseHubTown) {
			res.Completed = true
			outcome := "victory"
			if gs.Winner == "" {
				outcome = "defeat"
			}
			res.Events = append(res.Events, Event{Type: EventAdventureComplete, GameID: gs.ID, Phase: gs.Phase,
				Data: map[string]any{"outcome": outcome, "round": gs.Round}})
		}
	}
	if before.mode != game.ModeCombat && gs.Mode == game.ModeCombat && gs.Combat != nil {
		names := make([]string, 0, len(gs.Combat.Enemies))
		for _, en := range gs.Combat.Enemies {
			names = append(names, en.Name)
		}
		res.Events = append(res.Events, Event{Type: EventCombatStart, GameID: gs.ID, Phase: gs.Phase,
			Data: map[string]any{"room": gs.RoomIndex, "enemies": names}})
	}
	if before.current != gs.CurrentPlayer && gs.CurrentPlayer != game.NoPlayer {
		res.Events = append(res.Events, Event{Type: EventTurnAdvance, GameID: gs.ID, Phase: gs.Phase,
			CurrentPlayer: gs.CurrentPlayer, Data: map[string]any{"round": gs.Round}})
	}
}

// setupMachine restores the interview machine stored in the state
func setupMachine(gs *game.GameState) (*phase.Machine, error) {
	if gs.Setup == nil {
		return nil, nil
	}
	m, err := phase.Restore(*gs.Setup, phase.InterviewResolvers())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStateCorrupt, "setup phase cannot be restored", err)
	}
	return m, nil
}
