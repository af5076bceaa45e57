// Package storage defines the persisted game row and character summary
// contracts shared by the store implementations.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RecordTypeDungeon tags rows written by the dungeon engine
const RecordTypeDungeon = "dungeon"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a versioned write loses a race.
	ErrConflict = errors.New("record version conflict")
)

// Record is one persisted game row. State holds the serialized game state;
// the other columns are denormalized for listing.
type Record struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Phase     string          `json:"phase"`
	Players   []string        `json:"players"`
	HostAgent string          `json:"host_agent"`
	State     json.RawMessage `json:"state"`
	Winner    string          `json:"winner,omitempty"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists game records.
//
// Put writes rec only if the stored version equals expected; expected 0
// means the record must not exist yet. On success it returns the record as
// stored, with Version incremented.
type Store interface {
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, rec Record, expected int64) (Record, error)
	ListByPhase(ctx context.Context, phases ...string) ([]Record, error)
	Close() error
}

// CharacterSummary is the long-lived record of an agent's character,
// updated whenever an adventure completes.
type CharacterSummary struct {
	AgentID    string    `json:"agent_id"`
	Name       string    `json:"name"`
	Class      string    `json:"class"`
	Level      int       `json:"level"`
	XP         int       `json:"xp"`
	Gold       int       `json:"gold"`
	Adventures int       `json:"adventures"`
	Deaths     int       `json:"deaths"`
	LastGameID string    `json:"last_game_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CharacterStore persists character summaries keyed by agent id.
type CharacterStore interface {
	GetCharacter(ctx context.Context, agentID string) (CharacterSummary, error)
	PutCharacter(ctx context.Context, summary CharacterSummary) error
	ListCharacters(ctx context.Context) ([]CharacterSummary, error)
	Close() error
}

// MatchesPhase reports whether phase is in phases; no phases matches all.
func MatchesPhase(phase string, phases []string) bool {
	if len(phases) == 0 {
		return true
	}
	for _, p := range phases {
		if p == phase {
			return true
		}
	}
	return false
}
