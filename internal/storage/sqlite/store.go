// Package sqlite is a single-file backend with the same schema and method
// set as the Postgres repository. It backs dev mode and in-process tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

const dateLayout = "2006-01-02"

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS exercises (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS participants (
		id            TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		session_date  TEXT NOT NULL,
		start_time    TEXT,
		end_time      TEXT
	);

	CREATE TABLE IF NOT EXISTS session_exercises (
		id                  TEXT PRIMARY KEY,
		session_id          TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		exercise_id         TEXT NOT NULL REFERENCES exercises(id),
		order_in_session    INTEGER NOT NULL,
		planned_sets        INTEGER NOT NULL DEFAULT 0,
		planned_reps        INTEGER NOT NULL DEFAULT 0,
		planned_weight_lbs  REAL NOT NULL DEFAULT 0,
		rest_seconds        INTEGER NOT NULL DEFAULT 0,
		UNIQUE(session_id, order_in_session)
	);

	CREATE TABLE IF NOT EXISTS session_participants (
		session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		participant_id  TEXT NOT NULL REFERENCES participants(id),
		position        INTEGER NOT NULL,
		PRIMARY KEY (session_id, participant_id)
	);

	CREATE TABLE IF NOT EXISTS set_logs (
		session_exercise_id  TEXT NOT NULL REFERENCES session_exercises(id) ON DELETE CASCADE,
		participant_id       TEXT NOT NULL REFERENCES participants(id),
		set_number           INTEGER NOT NULL CHECK (set_number >= 1),
		reps_completed       INTEGER NOT NULL CHECK (reps_completed >= 0),
		weight_used_lbs      REAL NOT NULL CHECK (weight_used_lbs >= 0),
		rpe                  INTEGER CHECK (rpe BETWEEN 1 AND 10),
		notes                TEXT NOT NULL DEFAULT '',
		updated_at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		PRIMARY KEY (session_exercise_id, participant_id, set_number)
	);

	CREATE INDEX IF NOT EXISTS idx_set_logs_participant ON set_logs(participant_id);

	CREATE TABLE IF NOT EXISTS history_sets (
		participant_id   TEXT NOT NULL REFERENCES participants(id),
		exercise_id      TEXT NOT NULL REFERENCES exercises(id),
		session_date     TEXT NOT NULL,
		set_number       INTEGER NOT NULL,
		reps_completed   INTEGER NOT NULL,
		weight_used_lbs  REAL NOT NULL,
		source           TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (participant_id, exercise_id, session_date, set_number)
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableRPE(rpe *int) any {
	if rpe == nil {
		return nil
	}
	return *rpe
}

func rpeFrom(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
