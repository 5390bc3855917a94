package workoutlog

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/claude/setlog/internal/models"
)

// HistoryService returns a participant's previously performed sets for a
// catalog exercise.
type HistoryService interface {
	FetchHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error)
}

// HistoryAdapter reads history and guarantees its ordering. Concurrent
// requests for the same (participant, exercise) share one call.
type HistoryAdapter struct {
	svc   HistoryService
	group singleflight.Group
}

// NewHistoryAdapter wraps a history service.
func NewHistoryAdapter(svc HistoryService) *HistoryAdapter {
	return &HistoryAdapter{svc: svc}
}

// Fetch returns history ordered by session date descending, then set number
// ascending. Failures wrap ErrNetwork.
func (a *HistoryAdapter) Fetch(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error) {
	if a.svc == nil {
		return nil, fmt.Errorf("no history service configured: %w", ErrNetwork)
	}

	// The shared call outlives any one caller's cancellation; each caller
	// still stops waiting when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	key := participantID.String() + ":" + exerciseID.String()
	ch := a.group.DoChan(key, func() (any, error) {
		records, err := a.svc.FetchHistory(shared, participantID, exerciseID)
		if err != nil {
			return nil, err
		}
		SortHistory(records)
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetching history: %w: %w", ErrNetwork, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetching history: %w: %w", ErrNetwork, res.Err)
		}
		records := res.Val.([]models.HistoryRecord)
		out := make([]models.HistoryRecord, len(records))
		copy(out, records)
		return out, nil
	}
}

// SortHistory orders records by UTC calendar day descending, then set number ascending.
func SortHistory(records []models.HistoryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := dayKey(records[i]), dayKey(records[j])
		if di != dj {
			return di > dj
		}
		return records[i].SetNumber < records[j].SetNumber
	})
}

func dayKey(r models.HistoryRecord) string {
	return r.SessionDate.UTC().Format("2006-01-02")
}
