// Package service runs commands against persisted games: it loads the
// record, dispatches through the engine, writes the new state back with an
// optimistic version check and publishes the resulting events.
package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yourusername/agent-dungeon/internal/dice"
	"github.com/yourusername/agent-dungeon/internal/engine"
	apperrors "github.com/yourusername/agent-dungeon/internal/errors"
	"github.com/yourusername/agent-dungeon/internal/game"
	"github.com/yourusername/agent-dungeon/internal/notify"
	"github.com/yourusername/agent-dungeon/internal/storage"
)

// MaxWriteAttempts bounds the read-dispatch-write retries on version conflicts
const MaxWriteAttempts = 3

// Options configures optional collaborators
type Options struct {
	Characters  storage.CharacterStore
	Broadcaster notify.Broadcaster
	Logger      *zap.Logger
	// Seed returns the seed of a new game; defaults to crypto/rand.
	Seed func() int64
}

// Service coordinates engine, storage and notifications
type Service struct {
	engine      *engine.Engine
	store       storage.Store
	characters  storage.CharacterStore
	broadcaster notify.Broadcaster
	logger      *zap.Logger
	tracer      trace.Tracer
	locks       *keyedMutex
	seed        func() int64
}

// New creates a service
func New(eng *engine.Engine, store storage.Store, opts Options) *Service {
	s := &Service{
		engine:      eng,
		store:       store,
		characters:  opts.Characters,
		broadcaster: opts.Broadcaster,
		logger:      opts.Logger,
		tracer:      otel.Tracer("github.com/yourusername/agent-dungeon/internal/service"),
		locks:       newKeyedMutex(),
		seed:        opts.Seed,
	}
	if s.broadcaster == nil {
		s.broadcaster = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.seed == nil {
		s.seed = randomSeed
	}
	return s
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

// Engine exposes the dispatcher for catalogs and command listings
func (s *Service) Engine() *engine.Engine {
	return s.engine
}

// Execute runs cmd against gameID. new_game creates the game (a blank
// gameID gets a fresh uuid); every other command requires an existing game.
func (s *Service) Execute(ctx context.Context, gameID string, cmd engine.Command) (res engine.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Execute", trace.WithAttributes(
		attribute.String("game.id", gameID),
		attribute.String("game.action", cmd.Action),
		attribute.String("game.agent", cmd.Actor),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Bool("game.ok", res.OK))
		}
		span.End()
	}()

	cmd.Action = strings.TrimSpace(strings.ToLower(cmd.Action))
	if cmd.Action == engine.ActionNewGame {
		return s.create(ctx, gameID, cmd)
	}
	if strings.TrimSpace(gameID) == "" {
		return engine.Result{}, apperrors.New(apperrors.CodeNoActiveGame, "No active game. Start one with new_game.")
	}

	unlock := s.locks.Lock(gameID)
	defer unlock()

	for attempt := 1; attempt <= MaxWriteAttempts; attempt++ {
		rec, gs, err := s.load(ctx, gameID)
		if err != nil {
			return engine.Result{}, err
		}
		src := dice.NewSeeded(dice.CommandSeed(gs.Seed, gs.Sequence))
		res, err := s.engine.Dispatch(gs, cmd, src)
		if err != nil {
			return engine.Result{}, err
		}
		if !res.Mutated {
			return res, nil
		}
		err = s.save(ctx, rec, gs)
		if errors.Is(err, storage.ErrConflict) {
			s.logger.Info("version conflict, retrying",
				zap.String("game_id", gameID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return engine.Result{}, err
		}
		s.after(ctx, gs, res)
		return res, nil
	}
	return engine.Result{}, apperrors.New(apperrors.CodeConflict, "the game changed concurrently; try again")
}

func (s *Service) create(ctx context.Context, gameID string, cmd engine.Command) (engine.Result, error) {
	if gameID == "" {
		gameID = uuid.NewString()
	}
	unlock := s.locks.Lock(gameID)
	defer unlock()

	gs, res, err := s.engine.NewGame(gameID, cmd, s.seed())
	if err != nil {
		return engine.Result{}, err
	}
	err = s.save(ctx, storage.Record{}, gs)
	if errors.Is(err, storage.ErrConflict) {
		return engine.Result{}, apperrors.WithMetadata(apperrors.CodeGameAlreadyExist,
			"a game with this id already exists", map[string]string{"game_id": gameID})
	}
	if err != nil {
		return engine.Result{}, err
	}
	s.logger.Info("game created",
		zap.String("game_id", gs.ID),
		zap.String("host", gs.HostAgent),
		zap.Bool("campaign", gs.Campaign != nil),
	)
	s.after(ctx, gs, res)
	return res, nil
}

// load reads and decodes a game. Turn state is left as stored; Dispatch
// repairs it so a repair that ends the game is reported as a completion.
func (s *Service) load(ctx context.Context, gameID string) (storage.Record, *game.GameState, error) {
	rec, err := s.store.Get(ctx, gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Record{}, nil, apperrors.WithMetadata(apperrors.CodeNoActiveGame,
			"No active game. Start one with new_game.", map[string]string{"game_id": gameID})
	}
	if err != nil {
		return storage.Record{}, nil, apperrors.Wrap(apperrors.CodeStorageFailure, "load game", err)
	}
	gs, err := decodeState(rec)
	if err != nil {
		return storage.Record{}, nil, err
	}
	return rec, gs, nil
}

func decodeState(rec storage.Record) (*game.GameState, error) {
	var gs game.GameState
	if err := json.Unmarshal(rec.State, &gs); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStateCorrupt, "game state cannot be decoded", err)
	}
	if gs.ID == "" {
		gs.ID = rec.ID
	}
	return &gs, nil
}

// save writes gs over rec. A zero rec.Version creates the row.
func (s *Service) save(ctx context.Context, rec storage.Record, gs *game.GameState) error {
	state, err := json.Marshal(gs)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStateCorrupt, "encode game state", err)
	}
	next := storage.Record{
		ID:        gs.ID,
		Type:      storage.RecordTypeDungeon,
		Phase:     string(gs.Phase),
		Players:   append([]string{}, gs.Players...),
		HostAgent: gs.HostAgent,
		State:     state,
		Winner:    gs.Winner,
	}
	if _, err := s.store.Put(ctx, next, rec.Version); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return err
		}
		return apperrors.Wrap(apperrors.CodeStorageFailure, "save game", err)
	}
	return nil
}

// after runs the best-effort work that follows a successful write
func (s *Service) after(ctx context.Context, gs *game.GameState, res engine.Result) {
	if len(res.Events) > 0 {
		if err := s.broadcaster.Publish(ctx, gs.ID, res.Events); err != nil {
			s.logger.Warn("publish events failed", zap.String("game_id", gs.ID), zap.Error(err))
		}
	}
	if res.Completed {
		s.recordCharacters(ctx, gs)
	}
}

// recordCharacters updates the long-lived character summaries once an
// adventure completes.
func (s *Service) recordCharacters(ctx context.Context, gs *game.GameState) {
	if s.characters == nil {
		return
	}
	for _, c := range gs.Party {
		sum, err := s.characters.GetCharacter(ctx, c.AgentID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("load character summary failed", zap.String("agent", c.AgentID), zap.Error(err))
			continue
		}
		sum.AgentID = c.AgentID
		sum.Name = c.Name
		sum.Class = c.Class
		sum.Level = c.Level
		sum.XP = c.XP
		sum.Gold = c.Gold
		sum.Adventures++
		if !c.IsAlive() {
			sum.Deaths++
		}
		sum.LastGameID = gs.ID
		sum.UpdatedAt = time.Now().UTC()
		if err := s.characters.PutCharacter(ctx, sum); err != nil {
			s.logger.Warn("save character summary failed", zap.String("agent", c.AgentID), zap.Error(err))
		}
	}
}

// Status returns the view of gameID for identity
func (s *Service) Status(ctx context.Context, gameID, identity string) (engine.StatusView, error) {
	_, gs, err := s.load(ctx, gameID)
	if err != nil {
		return engine.StatusView{}, err
	}
	game.NormalizeTurnState(gs)
	return s.engine.Status(gs, identity), nil
}

// GameSummary is one row of a game listing
type GameSummary struct {
	ID            string    `json:"id"`
	Phase         string    `json:"phase"`
	Mode          string    `json:"mode"`
	HostAgent     string    `json:"host_agent"`
	Players       []string  `json:"players"`
	CurrentPlayer string    `json:"current_player"`
	Round         int       `json:"round"`
	Winner        string    `json:"winner,omitempty"`
	Version       int64     `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// List summarizes games in phases (all when empty). Rows whose state cannot
// be decoded are logged and skipped.
func (s *Service) List(ctx context.Context, phases ...string) ([]GameSummary, error) {
	recs, err := s.store.ListByPhase(ctx, phases...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "list games", err)
	}
	out := make([]GameSummary, 0, len(recs))
	for _, rec := range recs {
		gs, err := decodeState(rec)
		if err != nil {
			s.logger.Warn("skipping corrupt game", zap.String("game_id", rec.ID), zap.Error(err))
			continue
		}
		players := rec.Players
		if players == nil {
			players = append([]string{}, gs.Players...)
		}
		out = append(out, GameSummary{
			ID:            rec.ID,
			Phase:         rec.Phase,
			Mode:          string(gs.Mode),
			HostAgent:     rec.HostAgent,
			Players:       players,
			CurrentPlayer: gs.CurrentPlayer,
			Round:         gs.Round,
			Winner:        rec.Winner,
			Version:       rec.Version,
			UpdatedAt:     rec.UpdatedAt,
		})
	}
	return out, nil
}

// Character returns an agent's character summary
func (s *Service) Character(ctx context.Context, agentID string) (storage.CharacterSummary, error) {
	if s.characters == nil {
		return storage.CharacterSummary{}, apperrors.New(apperrors.CodeNotFound, "character store is not configured")
	}
	sum, err := s.characters.GetCharacter(ctx, agentID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.CharacterSummary{}, apperrors.New(apperrors.CodeNotFound, "no character recorded for "+agentID)
	}
	if err != nil {
		return storage.CharacterSummary{}, apperrors.Wrap(apperrors.CodeStorageFailure, "load character", err)
	}
	return sum, nil
}
