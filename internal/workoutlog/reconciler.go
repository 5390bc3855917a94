package workoutlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// SetSaver upserts one set by its natural key.
type SetSaver interface {
	SaveSet(ctx context.Context, entry models.SetLogEntry) error
}

// BulkSaver upserts many sets as one all-or-nothing operation.
type BulkSaver interface {
	SaveSets(ctx context.Context, entries []models.SetLogEntry) error
}

// SessionFinalizer records a session's end time.
type SessionFinalizer interface {
	FinishSession(ctx context.Context, sessionID uuid.UUID, endTime time.Time) error
}

// SaveAllResult summarizes a bulk save.
type SaveAllResult struct {
	Saved         int
	NothingToSave bool
	// Clean is false when the store was edited while the save was in flight.
	Clean bool
}

// Reconciler pushes store contents to the backing collaborators.
type Reconciler struct {
	store  *Store
	single SetSaver
	bulk   BulkSaver
	log    *slog.Logger
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store *Store, single SetSaver, bulk BulkSaver, log *slog.Logger) *Reconciler {
	return &Reconciler{store: store, single: single, bulk: bulk, log: log}
}

// SaveSet sends the current values of one set. Local state and the dirty
// flag are left alone whatever the outcome.
func (r *Reconciler) SaveSet(ctx context.Context, pair Pair, index int) (models.SetLogEntry, error) {
	entry, err := r.store.Entry(pair, index)
	if err != nil {
		return models.SetLogEntry{}, err
	}
	if err := r.single.SaveSet(ctx, entry); err != nil {
		r.log.Warn("set save failed", "pair", pair.String(), "set_number", entry.SetNumber, "error", err)
		return entry, fmt.Errorf("saving set %d: %w: %w", entry.SetNumber, ErrNetwork, err)
	}
	r.log.Debug("set saved", "pair", pair.String(), "set_number", entry.SetNumber)
	return entry, nil
}

// SaveAll submits every set in the store as one batch and clears the dirty
// flag on success. An empty store is reported as NothingToSave without any call.
func (r *Reconciler) SaveAll(ctx context.Context) (SaveAllResult, error) {
	entries, rev := r.store.Snapshot()
	if len(entries) == 0 {
		return SaveAllResult{NothingToSave: true}, nil
	}

	if err := r.bulk.SaveSets(ctx, entries); err != nil {
		r.log.Warn("bulk save failed", "entries", len(entries), "error", err)
		return SaveAllResult{}, fmt.Errorf("saving %d sets: %w: %w", len(entries), ErrNetwork, err)
	}

	clean := r.store.MarkClean(rev)
	r.log.Info("bulk save complete", "entries", len(entries), "clean", clean)
	return SaveAllResult{Saved: len(entries), Clean: clean}, nil
}
