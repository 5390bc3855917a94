package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/storage/sqlite"
)

var _ Repository = (*sqlite.Store)(nil)

// Open connects to the configured backend. Postgres migrations are applied
// first unless skipMigrations is set; SQLite migrates itself on open.
func Open(ctx context.Context, cfg config.DatabaseConfig, skipMigrations bool, log *slog.Logger) (Repository, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		log.Info("sqlite store opened", "path", cfg.Path)
		return s, nil

	case config.DriverPostgres:
		dsn := cfg.DSN()
		if !skipMigrations {
			if err := RunMigrations(dsn, cfg.Migrations); err != nil {
				return nil, err
			}
			log.Info("migrations applied")
		}
		db, err := New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		log.Info("connected to database")
		return db, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
