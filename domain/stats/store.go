// Package stats persists per-session counters in a local SQLite database.
package stats

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/soocke/autodl-bot-go/domain/session"
)

// ErrUnknownSession is returned by Save for an id Begin never issued.
var ErrUnknownSession = errors.New("unknown stats session")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER NOT NULL,
	cycles     INTEGER NOT NULL DEFAULT 0,
	matches    INTEGER NOT NULL DEFAULT 0,
	clicks     INTEGER NOT NULL DEFAULT 0,
	errors     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
`

// Record is one persisted session row.
type Record struct {
	ID        string
	Profile   string
	StartedAt time.Time
	EndedAt   time.Time
	session.Counters
}

// Totals sums counters across every stored session.
type Totals struct {
	Sessions int64
	session.Counters
}

// Store wraps the SQLite connection.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create stats directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping stats db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply stats schema: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Begin inserts a new session row and returns its id.
func (s *Store) Begin(profile string) (string, error) {
	id := uuid.NewString()
	now := s.now().UnixMilli()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, profile, started_at, ended_at) VALUES (?, ?, ?, ?)`,
		id, profile, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("begin stats session: %w", err)
	}
	return id, nil
}

// Save overwrites the counters of session id and bumps its end time.
func (s *Store) Save(id string, c session.Counters) error {
	res, err := s.db.Exec(`
		UPDATE sessions
		SET cycles = ?, matches = ?, clicks = ?, errors = ?, ended_at = ?
		WHERE id = ?`,
		c.Cycles, c.Matches, c.Clicks, c.Errors, s.now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("save stats session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save stats session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return nil
}

// Totals returns counters summed across all sessions.
func (s *Store) Totals() (Totals, error) { return s.TotalsExcept("") }

// TotalsExcept sums every session other than id.
func (s *Store) TotalsExcept(id string) (Totals, error) {
	var t Totals
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(cycles), 0), COALESCE(SUM(matches), 0),
		       COALESCE(SUM(clicks), 0), COALESCE(SUM(errors), 0)
		FROM sessions
		WHERE id <> ?`, id,
	).Scan(&t.Sessions, &t.Cycles, &t.Matches, &t.Clicks, &t.Errors)
	if err != nil {
		return Totals{}, fmt.Errorf("query stats totals: %w", err)
	}
	return t, nil
}

// Recent returns up to n sessions, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, profile, started_at, ended_at, cycles, matches, clicks, errors
		FROM sessions
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r          Record
			start, end int64
		)
		if err := rows.Scan(&r.ID, &r.Profile, &start, &end, &r.Cycles, &r.Matches, &r.Clicks, &r.Errors); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		r.StartedAt = time.UnixMilli(start)
		r.EndedAt = time.UnixMilli(end)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
