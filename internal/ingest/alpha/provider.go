package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/claude/setlog/internal/ingest"
	"github.com/claude/setlog/internal/models"
)

const (
	lbsPerKg = 2.20462
	source   = "alpha"
)

// HistoryWriter is the storage the importer needs.
type HistoryWriter interface {
	EnsureExercise(ctx context.Context, name string) (uuid.UUID, error)
	InsertHistorySets(ctx context.Context, rows []models.HistorySetRow) (int64, error)
}

// Provider imports Alpha Progression CSV exports as a participant's history.
type Provider struct {
	db  HistoryWriter
	log *slog.Logger
}

// NewProvider creates an Alpha Progression history importer.
func NewProvider(db HistoryWriter, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// KgToLbs converts kilograms to pounds rounded to 0.1.
func KgToLbs(kg float64) float64 {
	return math.Round(kg*lbsPerKg*10) / 10
}

// Ingest parses an export and stores its working sets for participantID.
// Warm-ups are dropped and the remaining sets are numbered densely per
// exercise and day. Re-importing the same export inserts nothing new.
// Exercises whose catalog entry cannot be resolved are skipped and their
// errors returned together with the result of everything else.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, participantID uuid.UUID) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	catalog := make(map[string]uuid.UUID)
	next := make(map[string]int)
	var rows []models.HistorySetRow
	var errs error

	for _, s := range sessions {
		day := time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
		for _, ex := range s.Exercises {
			working := ex.WorkingSets()
			result.WarmupsDropped += len(ex.Sets) - len(working)
			if len(working) == 0 {
				continue
			}

			exerciseID, ok := catalog[ex.Name]
			if !ok {
				exerciseID, err = p.db.EnsureExercise(ctx, ex.Name)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("exercise %q: %w", ex.Name, err))
					result.ExercisesSkipped++
					continue
				}
				catalog[ex.Name] = exerciseID
			}

			key := exerciseID.String() + day.Format("2006-01-02")
			for _, set := range working {
				next[key]++
				rows = append(rows, models.HistorySetRow{
					ParticipantID: participantID,
					ExerciseID:    exerciseID,
					SessionDate:   day,
					SetNumber:     next[key],
					RepsCompleted: set.Reps,
					WeightUsedLbs: KgToLbs(set.WeightKg),
					Source:        source,
				})
			}
		}
	}

	result.SetsReceived = len(rows)
	if len(rows) > 0 {
		inserted, err := p.db.InsertHistorySets(ctx, rows)
		if err != nil {
			return nil, multierr.Append(errs, fmt.Errorf("inserting sets: %w", err))
		}
		result.SetsInserted = inserted
		result.SetsSkipped = int64(len(rows)) - inserted
	}

	p.log.Info("alpha import complete",
		"participant_id", participantID,
		"sessions", result.SessionsReceived,
		"sets_inserted", result.SetsInserted,
		"sets_skipped", result.SetsSkipped,
		"warmups_dropped", result.WarmupsDropped,
	)
	return result, errs
}
