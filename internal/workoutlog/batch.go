package workoutlog

import (
	"fmt"

	"github.com/claude/setlog/internal/models"
)

// BatchForm holds the trainer's template for generating uniform sets.
type BatchForm struct {
	SetCount  int
	Reps      int
	WeightLbs float64
}

// DefaultBatchForm seeds the form from an exercise's planned targets.
func DefaultBatchForm(ex models.SessionExercise) BatchForm {
	form := BatchForm{
		SetCount:  ex.PlannedSets,
		Reps:      ex.PlannedReps,
		WeightLbs: ex.PlannedWeightLbs,
	}
	if form.SetCount < 1 {
		form.SetCount = 1
	}
	return form
}

// Validate checks the template.
func (f BatchForm) Validate() error {
	if f.SetCount < 1 {
		return fmt.Errorf("set count must be >= 1, got %d: %w", f.SetCount, ErrValidation)
	}
	if f.Reps < 0 {
		return fmt.Errorf("reps must be >= 0, got %d: %w", f.Reps, ErrValidation)
	}
	if f.WeightLbs < 0 {
		return fmt.Errorf("weight must be >= 0, got %v: %w", f.WeightLbs, ErrValidation)
	}
	return nil
}

// Entries builds SetCount identical sets numbered 1..SetCount for pair.
func (f BatchForm) Entries(pair Pair) []models.SetLogEntry {
	entries := make([]models.SetLogEntry, f.SetCount)
	for i := range entries {
		entries[i] = models.SetLogEntry{
			SessionExerciseID: pair.SessionExerciseID,
			ParticipantID:     pair.ParticipantID,
			SetNumber:         i + 1,
			RepsCompleted:     f.Reps,
			WeightUsedLbs:     f.WeightLbs,
		}
	}
	return entries
}
