// Package sqlstore persists game records in SQLite (mattn/go-sqlite3) or
// Postgres (lib/pq). Both dialects share one schema; queries are written
// with ? placeholders and rebound for Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/yourusername/agent-dungeon/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect selects driver-specific SQL
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Store is a database/sql backed storage.Store
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// OpenSQLite opens (or creates) a SQLite database file. Use ":memory:" for a
// throwaway database.
func OpenSQLite(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sql.Open(string(DialectSQLite), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	return open(db, DialectSQLite)
}

// OpenPostgres connects to the database named by url
func OpenPostgres(url string) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open(string(DialectPostgres), url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return open(db, DialectPostgres)
}

func open(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if err := s.applyMigrations(ctx, migrations, "migrations"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for Postgres
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const selectColumns = "id, type, phase, players, host_agent, state, winner, version, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (storage.Record, error) {
	var (
		rec                  storage.Record
		players, state       string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &rec.Type, &rec.Phase, &players, &rec.HostAgent, &state,
		&rec.Winner, &rec.Version, &createdAt, &updatedAt); err != nil {
		return storage.Record{}, err
	}
	// players only indexes the state column; an undecodable value leaves
	// Players nil and the state decides.
	if err := json.Unmarshal([]byte(players), &rec.Players); err != nil {
		rec.Players = nil
	}
	rec.State = json.RawMessage(state)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

// Get loads a record by id
func (s *Store) Get(ctx context.Context, id string) (storage.Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+selectColumns+" FROM games WHERE id = ?"), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("get game %s: %w", id, err)
	}
	return rec, nil
}

// Put inserts (expected 0) or updates the row at version expected
func (s *Store) Put(ctx context.Context, rec storage.Record, expected int64) (storage.Record, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return storage.Record{}, fmt.Errorf("record id is required")
	}
	if rec.Players == nil {
		rec.Players = []string{}
	}
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return storage.Record{}, fmt.Errorf("encode players: %w", err)
	}
	if len(rec.State) == 0 {
		rec.State = json.RawMessage("{}")
	}
	now := s.now()
	rec.UpdatedAt = now
	rec.Version = expected + 1

	if expected == 0 {
		rec.CreatedAt = now
		_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO games (`+selectColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			rec.ID, rec.Type, rec.Phase, string(players), rec.HostAgent, string(rec.State),
			rec.Winner, rec.Version, now.UnixMilli(), now.UnixMilli())
		if err != nil {
			if isUniqueViolation(err) {
				return storage.Record{}, storage.ErrConflict
			}
			return storage.Record{}, fmt.Errorf("insert game %s: %w", rec.ID, err)
		}
		return rec, nil
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE games
SET type = ?, phase = ?, players = ?, host_agent = ?, state = ?, winner = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?`),
		rec.Type, rec.Phase, string(players), rec.HostAgent, string(rec.State), rec.Winner,
		rec.Version, now.UnixMilli(), rec.ID, expected)
	if err != nil {
		return storage.Record{}, fmt.Errorf("update game %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Record{}, fmt.Errorf("update game %s: %w", rec.ID, err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, rec.ID); err != nil {
			return storage.Record{}, err
		}
		return storage.Record{}, storage.ErrConflict
	}
	stored, err := s.Get(ctx, rec.ID)
	if err != nil {
		return storage.Record{}, err
	}
	return stored, nil
}

// ListByPhase returns records in any of phases (all when empty), most
// recently updated first
func (s *Store) ListByPhase(ctx context.Context, phases ...string) ([]storage.Record, error) {
	query := "SELECT " + selectColumns + " FROM games"
	args := make([]any, 0, len(phases))
	if len(phases) > 0 {
		marks := make([]string, len(phases))
		for i, p := range phases {
			marks[i] = "?"
			args = append(args, p)
		}
		query += " WHERE phase IN (" + strings.Join(marks, ", ") + ")"
	}
	query += " ORDER BY updated_at DESC, id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()
	var out []storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
