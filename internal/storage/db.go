package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claude/setlog/internal/models"
)

// Repository is the persistence surface shared by the Postgres and SQLite backends.
type Repository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	QuerySessionSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error)
	QueryHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error)
	UpsertSetLog(ctx context.Context, e models.SetLogEntry) error
	UpsertSetLogs(ctx context.Context, entries []models.SetLogEntry) (int, error)
	FinishSession(ctx context.Context, id uuid.UUID, endTime time.Time) error
	CreateSession(ctx context.Context, s *models.Session) error
	EnsureExercise(ctx context.Context, name string) (uuid.UUID, error)
	EnsureParticipant(ctx context.Context, p models.Participant) error
	InsertHistorySets(ctx context.Context, rows []models.HistorySetRow) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ Repository = (*DB)(nil)

// DB wraps a pgxpool.Pool and provides repository methods.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
