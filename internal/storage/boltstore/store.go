// Package boltstore keeps character summaries in a BoltDB file.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/yourusername/agent-dungeon/internal/storage"
)

const characterBucket = "character"

// Store provides a BoltDB-backed character store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutCharacter persists a character summary.
func (s *Store) PutCharacter(ctx context.Context, summary storage.CharacterSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(summary.AgentID) == "" {
		return fmt.Errorf("agent id is required")
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal character: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(characterBucket))
		if bucket == nil {
			return fmt.Errorf("character bucket is missing")
		}
		return bucket.Put([]byte(summary.AgentID), payload)
	})
}

// GetCharacter fetches a character summary by agent id.
func (s *Store) GetCharacter(ctx context.Context, agentID string) (storage.CharacterSummary, error) {
	if err := ctx.Err(); err != nil {
		return storage.CharacterSummary{}, err
	}
	if s == nil || s.db == nil {
		return storage.CharacterSummary{}, fmt.Errorf("storage is not configured")
	}

	var summary storage.CharacterSummary
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(characterBucket))
		if bucket == nil {
			return fmt.Errorf("character bucket is missing")
		}
		payload := bucket.Get([]byte(agentID))
		if payload == nil {
			return storage.ErrNotFound
		}
		if err := json.Unmarshal(payload, &summary); err != nil {
			return fmt.Errorf("unmarshal character: %w", err)
		}
		return nil
	})
	if err != nil {
		return storage.CharacterSummary{}, err
	}
	return summary, nil
}

// ListCharacters returns every summary in key order.
func (s *Store) ListCharacters(ctx context.Context) ([]storage.CharacterSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var out []storage.CharacterSummary
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(characterBucket))
		if bucket == nil {
			return fmt.Errorf("character bucket is missing")
		}
		return bucket.ForEach(func(_, v []byte) error {
			var summary storage.CharacterSummary
			if err := json.Unmarshal(v, &summary); err != nil {
				return fmt.Errorf("unmarshal character: %w", err)
			}
			out = append(out, summary)
			return nil
		})
	})
	return out, err
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(characterBucket)); err != nil {
			return fmt.Errorf("create character bucket: %w", err)
		}
		return nil
	})
}
