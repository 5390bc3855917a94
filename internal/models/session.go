package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Session is one scheduled training occasion with its exercises and participants.
type Session struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Date         time.Time         `json:"session_date"`
	StartTime    *time.Time        `json:"start_time,omitempty"`
	EndTime      *time.Time        `json:"end_time,omitempty"`
	Exercises    []SessionExercise `json:"exercises"`
	Participants []Participant     `json:"participants"`
}

// SessionExercise is one exercise slot within a session, with planned targets.
type SessionExercise struct {
	ID               uuid.UUID `json:"id"`
	SessionID        uuid.UUID `json:"session_id"`
	ExerciseID       uuid.UUID `json:"exercise_id"`
	Name             string    `json:"name"`
	OrderInSession   int       `json:"order_in_session"`
	PlannedSets      int       `json:"planned_sets"`
	PlannedReps      int       `json:"planned_reps"`
	PlannedWeightLbs float64   `json:"planned_weight_lbs"`
	RestSeconds      int       `json:"rest_seconds"`
}

// Participant is a client attending a session.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
}

// Finished reports whether the session's end time has been recorded.
func (s *Session) Finished() bool {
	return s.EndTime != nil
}

// Exercise looks up a session exercise by its slot ID.
func (s *Session) Exercise(id uuid.UUID) (SessionExercise, bool) {
	for _, ex := range s.Exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return SessionExercise{}, false
}

// Participant looks up a participant by ID.
func (s *Session) Participant(id uuid.UUID) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// SortExercises orders exercises by their position in the session.
func (s *Session) SortExercises() {
	sort.SliceStable(s.Exercises, func(i, j int) bool {
		return s.Exercises[i].OrderInSession < s.Exercises[j].OrderInSession
	})
}
