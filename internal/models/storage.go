package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories and clients when a session or
// other addressed row does not exist.
var ErrNotFound = errors.New("not found")

// SetLogEntry is one recorded (or drafted) set for one participant on one
// session exercise. The natural key is (SessionExerciseID, ParticipantID, SetNumber).
type SetLogEntry struct {
	SessionExerciseID uuid.UUID `json:"session_exercise_id"`
	ParticipantID     uuid.UUID `json:"participant_id"`
	SetNumber         int       `json:"set_number"`
	RepsCompleted     int       `json:"reps_completed"`
	WeightUsedLbs     float64   `json:"weight_used_lbs"`
	RPE               *int      `json:"rpe,omitempty"`
	Notes             string    `json:"notes"`
}

// Validate checks field ranges. It does not check that the key refers to an
// existing session exercise or participant.
func (e SetLogEntry) Validate() error {
	if e.SessionExerciseID == uuid.Nil {
		return errors.New("session_exercise_id is required")
	}
	if e.ParticipantID == uuid.Nil {
		return errors.New("participant_id is required")
	}
	if e.SetNumber < 1 {
		return errors.New("set_number must be >= 1")
	}
	if e.RepsCompleted < 0 {
		return errors.New("reps_completed must be >= 0")
	}
	if e.WeightUsedLbs < 0 {
		return errors.New("weight_used_lbs must be >= 0")
	}
	if e.RPE != nil && (*e.RPE < 1 || *e.RPE > 10) {
		return errors.New("rpe must be between 1 and 10")
	}
	return nil
}

// HistoryRecord is one previously performed set, as returned by the history service.
type HistoryRecord struct {
	SessionDate   time.Time `json:"session_date"`
	SetNumber     int       `json:"set_number"`
	RepsCompleted int       `json:"reps_completed"`
	WeightUsedLbs float64   `json:"weight_used_lbs"`
}

// HistorySetRow is a row for the history_sets table (imported history).
type HistorySetRow struct {
	ParticipantID uuid.UUID
	ExerciseID    uuid.UUID
	SessionDate   time.Time
	SetNumber     int
	RepsCompleted int
	WeightUsedLbs float64
	Source        string
}
