package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/ingest/alpha"
	"github.com/claude/setlog/internal/ingest/fixture"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	alphaPath := flag.String("alpha", "", "Alpha Progression CSV export to import as history")
	participant := flag.String("participant", "", "participant UUID the history belongs to (with -alpha)")
	participantName := flag.String("participant-name", "", "display name to register the participant under (with -alpha)")
	sessionPath := flag.String("session", "", "YAML session fixture to create")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*alphaPath == "") == (*sessionPath == "") {
		fmt.Fprintf(os.Stderr, "Usage: setlog-import -config config.yaml (-alpha export.csv -participant <uuid> | -session fixture.yaml)\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.CheckDatabase()
	}
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo, err := storage.Open(ctx, cfg.Database, false, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	if *alphaPath != "" {
		err = importAlpha(ctx, repo, *alphaPath, *participant, *participantName, log)
	} else {
		err = importSession(ctx, repo, *sessionPath, log)
	}
	if cerr := repo.Close(); cerr != nil {
		log.Warn("closing database", "error", cerr)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}
	log.Info("import complete")
}

func importAlpha(ctx context.Context, repo storage.Repository, path, participant, name string, log *slog.Logger) error {
	pid, err := uuid.Parse(participant)
	if err != nil {
		return fmt.Errorf("-participant must be a UUID: %w", err)
	}
	if name != "" {
		if err := repo.EnsureParticipant(ctx, models.Participant{ID: pid, DisplayName: name}); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	res, err := alpha.NewProvider(repo, log).Ingest(ctx, f, pid)
	if res != nil {
		log.Info("alpha history",
			"sessions", res.SessionsReceived,
			"sets_received", res.SetsReceived,
			"sets_inserted", res.SetsInserted,
			"sets_skipped", res.SetsSkipped,
			"warmups_dropped", res.WarmupsDropped,
			"exercises_skipped", res.ExercisesSkipped,
		)
	}
	return err
}

func importSession(ctx context.Context, repo storage.Repository, path string, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fx, err := fixture.Decode(f)
	if err != nil {
		return err
	}
	sess, err := fixture.Import(ctx, repo, fx)
	if err != nil {
		return err
	}

	log.Info("session created", "session_id", sess.ID, "name", sess.Name, "date", sess.Date.Format("2006-01-02"))
	for _, ex := range sess.Exercises {
		log.Info("exercise", "order", ex.OrderInSession, "name", ex.Name, "session_exercise_id", ex.ID)
	}
	for _, p := range sess.Participants {
		log.Info("participant", "name", p.DisplayName, "participant_id", p.ID)
	}
	return nil
}
