// Package memory is an in-process implementation of the storage contracts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/agent-dungeon/internal/storage"
)

// Store keeps records in maps guarded by a RWMutex
type Store struct {
	mu         sync.RWMutex
	records    map[string]storage.Record
	characters map[string]storage.CharacterSummary
	now        func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		records:    make(map[string]storage.Record),
		characters: make(map[string]storage.CharacterSummary),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func clone(rec storage.Record) storage.Record {
	rec.Players = append([]string(nil), rec.Players...)
	rec.State = append([]byte(nil), rec.State...)
	return rec
}

// Get returns a copy of the record
func (s *Store) Get(ctx context.Context, id string) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return clone(rec), nil
}

// Put performs a versioned write
func (s *Store) Put(ctx context.Context, rec storage.Record, expected int64) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	current, exists := s.records[rec.ID]
	switch {
	case expected == 0 && exists:
		return storage.Record{}, storage.ErrConflict
	case expected != 0 && !exists:
		return storage.Record{}, storage.ErrNotFound
	case exists && current.Version != expected:
		return storage.Record{}, storage.ErrConflict
	}
	if exists {
		rec.CreatedAt = current.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Version = expected + 1
	s.records[rec.ID] = clone(rec)
	return clone(rec), nil
}

// ListByPhase returns matching records, most recently updated first
func (s *Store) ListByPhase(ctx context.Context, phases ...string) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Record, 0, len(s.records))
	for _, rec := range s.records {
		if storage.MatchesPhase(rec.Phase, phases) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetCharacter returns a character summary
func (s *Store) GetCharacter(ctx context.Context, agentID string) (storage.CharacterSummary, error) {
	if err := ctx.Err(); err != nil {
		return storage.CharacterSummary{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.characters[agentID]
	if !ok {
		return storage.CharacterSummary{}, storage.ErrNotFound
	}
	return sum, nil
}

// PutCharacter stores a character summary
func (s *Store) PutCharacter(ctx context.Context, summary storage.CharacterSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters[summary.AgentID] = summary
	return nil
}

// ListCharacters returns every summary sorted by agent id
func (s *Store) ListCharacters(ctx context.Context) ([]storage.CharacterSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.CharacterSummary, 0, len(s.characters))
	for _, sum := range s.characters {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}
