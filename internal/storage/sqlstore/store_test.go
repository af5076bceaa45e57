package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/yourusername/agent-dungeon/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	if got := pg.rebind("SELECT 1 WHERE a = ? AND b = ?"); got != "SELECT 1 WHERE a = $1 AND b = $2" {
		t.Fatalf("postgres rebind = %q", got)
	}
	lite := &Store{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestExtractUpMigration(t *testing.T) {
	got := extractUpMigration("-- +migrate Up\nCREATE TABLE x (id int);\n-- +migrate Down\nDROP TABLE x;\n")
	if stmts := splitStatements(got); len(stmts) != 1 || stmts[0] != "CREATE TABLE x (id int)" {
		t.Fatalf("statements = %q", stmts)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	rec := storage.Record{
		ID:        "g1",
		Type:      storage.RecordTypeDungeon,
		Phase:     "setup",
		Players:   []string{"p1", "p2"},
		HostAgent: "dm",
		State:     []byte(`{"id":"g1"}`),
	}
	stored, err := s.Put(ctx, rec, 0)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.Version != 1 {
		t.Fatalf("version = %d, want 1", stored.Version)
	}
	if _, err := s.Put(ctx, rec, 0); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate insert: %v", err)
	}

	got, err := s.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HostAgent != "dm" || len(got.Players) != 2 || string(got.State) != `{"id":"g1"}` {
		t.Fatalf("got %+v", got)
	}
	if !got.CreatedAt.Equal(s.now()) {
		t.Fatalf("created_at = %v", got.CreatedAt)
	}

	rec.Phase = "finished"
	rec.Winner = "party"
	updated, err := s.Put(ctx, rec, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Winner != "party" {
		t.Fatalf("updated = %+v", updated)
	}
	if _, err := s.Put(ctx, rec, 1); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale update: %v", err)
	}
	if _, err := s.Put(ctx, storage.Record{ID: "nope"}, 3); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update of missing row: %v", err)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
}

func TestListByPhase(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for _, r := range []storage.Record{
		{ID: "a", Type: storage.RecordTypeDungeon, Phase: "setup"},
		{ID: "b", Type: storage.RecordTypeDungeon, Phase: "playing"},
		{ID: "c", Type: storage.RecordTypeDungeon, Phase: "finished"},
	} {
		if _, err := s.Put(ctx, r, 0); err != nil {
			t.Fatalf("insert %s: %v", r.ID, err)
		}
	}

	active, err := s.ListByPhase(ctx, "setup", "playing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d records, want 2", len(active))
	}
	all, err := s.ListByPhase(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %d records, %v", len(all), err)
	}
}

func TestListByPhaseToleratesBadPlayersColumn(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for _, id := range []string{"a", "b"} {
		rec := storage.Record{ID: id, Type: storage.RecordTypeDungeon, Phase: "playing", Players: []string{"p1"}}
		if _, err := s.Put(ctx, rec, 0); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE games SET players = 'not json' WHERE id = 'b'"); err != nil {
		t.Fatalf("break row: %v", err)
	}

	recs, err := s.ListByPhase(ctx, "playing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("list = %d records, want 2", len(recs))
	}
	got, err := s.Get(ctx, "b")
	if err != nil || got.Players != nil {
		t.Fatalf("get b = %+v, %v", got, err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sqlite primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, false},
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"postgres foreign key", &pq.Error{Code: "23503"}, false},
		{"message only", errors.New("UNIQUE constraint failed: games.id"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Fatalf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.applyMigrations(context.Background(), migrations, "migrations"); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}
