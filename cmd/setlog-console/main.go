package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/client"
	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/console"
	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/workoutlog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sessionFlag := flag.String("session", "", "session UUID to log (required)")
	local := flag.Bool("local", false, "log straight into the configured database instead of the REST API")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	// stdout belongs to the console.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sessionID, err := uuid.Parse(*sessionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: setlog-console -config config.yaml -session <uuid> [-local]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*configPath, sessionID, *local, log); err != nil {
		log.Error("console failed", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, sessionID uuid.UUID, local bool, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	identity := workoutlog.Identity{DisplayName: cfg.Trainer.Name}
	if cfg.Trainer.ID != "" {
		if identity.TrainerID, err = uuid.Parse(cfg.Trainer.ID); err != nil {
			return fmt.Errorf("trainer.id: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var deps workoutlog.Deps
	if local {
		if err := cfg.CheckDatabase(); err != nil {
			return err
		}
		repo, err := storage.Open(ctx, cfg.Database, true, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := repo.Close(); err != nil {
				log.Error("close error", "error", err)
			}
		}()
		deps = storage.Local{Repository: repo}.Deps()
	} else {
		if err := cfg.CheckClient(); err != nil {
			return err
		}
		deps = client.New(cfg.Client.ServerURL, cfg.Auth.APIKey, client.Options{
			Timeout: cfg.Client.Timeout,
			Retries: cfg.Client.Retries,
		}).Deps()
	}

	con := console.New(os.Stdout, log)
	eng, err := workoutlog.Open(ctx, deps, sessionID, identity, log,
		workoutlog.WithNotifier(con.Notify),
		workoutlog.WithDefaultRest(cfg.Trainer.RestDefaultSeconds),
	)
	if err != nil {
		return err
	}
	defer eng.Close()
	con.Attach(eng)

	if err := con.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
