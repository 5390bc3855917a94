package workoutlog

import (
	"sort"

	"github.com/claude/setlog/internal/models"
)

// PrefillOutcome describes what FocusPair did about pre-filling a bucket.
type PrefillOutcome int

const (
	// PrefillNotNeeded means the bucket already had sets; history was not fetched.
	PrefillNotNeeded PrefillOutcome = iota
	// PrefillNoHistory means the participant has never performed the exercise.
	PrefillNoHistory
	// PrefillUnavailable means the history fetch failed; the bucket stays empty.
	PrefillUnavailable
	// PrefillDiscarded means another pair became active while the fetch was in flight.
	PrefillDiscarded
	// PrefillSkipped means the bucket was edited while the fetch was in flight.
	PrefillSkipped
	// PrefillApplied means last session's sets were written into the bucket.
	PrefillApplied
)

func (o PrefillOutcome) String() string {
	switch o {
	case PrefillNotNeeded:
		return "not needed"
	case PrefillNoHistory:
		return "no history"
	case PrefillUnavailable:
		return "history unavailable"
	case PrefillDiscarded:
		return "discarded"
	case PrefillSkipped:
		return "skipped"
	case PrefillApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Prefill derives starting sets for pair from history ordered most recent
// first. Only the sets from the most recent day are used, renumbered from 1.
// RPE and notes are never carried forward. Empty history yields nil.
func Prefill(records []models.HistoryRecord, pair Pair) []models.SetLogEntry {
	if len(records) == 0 {
		return nil
	}

	latest := dayKey(records[0])
	var last []models.HistoryRecord
	for _, r := range records {
		if dayKey(r) == latest {
			last = append(last, r)
		}
	}
	sort.SliceStable(last, func(i, j int) bool {
		return last[i].SetNumber < last[j].SetNumber
	})

	entries := make([]models.SetLogEntry, len(last))
	for i, r := range last {
		entries[i] = models.SetLogEntry{
			SessionExerciseID: pair.SessionExerciseID,
			ParticipantID:     pair.ParticipantID,
			SetNumber:         i + 1,
			RepsCompleted:     r.RepsCompleted,
			WeightUsedLbs:     r.WeightUsedLbs,
		}
	}
	return entries
}
