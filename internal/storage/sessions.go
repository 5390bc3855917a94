package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/setlog/internal/models"
)

// GetSession loads a session with its exercises (in session order) and participants.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s := &models.Session{ID: id}
	err := db.Pool.QueryRow(ctx,
		`SELECT name, session_date, start_time, end_time FROM sessions WHERE id = $1`,
		id).Scan(&s.Name, &s.Date, &s.StartTime, &s.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT se.id, se.exercise_id, e.name, se.order_in_session,
		 se.planned_sets, se.planned_reps, se.planned_weight_lbs, se.rest_seconds
		 FROM session_exercises se
		 JOIN exercises e ON e.id = se.exercise_id
		 WHERE se.session_id = $1
		 ORDER BY se.order_in_session ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ex := models.SessionExercise{SessionID: id}
		if err := rows.Scan(&ex.ID, &ex.ExerciseID, &ex.Name, &ex.OrderInSession,
			&ex.PlannedSets, &ex.PlannedReps, &ex.PlannedWeightLbs, &ex.RestSeconds); err != nil {
			return nil, fmt.Errorf("scanning session exercise: %w", err)
		}
		s.Exercises = append(s.Exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pRows, err := db.Pool.Query(ctx,
		`SELECT p.id, p.display_name, p.email
		 FROM session_participants sp
		 JOIN participants p ON p.id = sp.participant_id
		 WHERE sp.session_id = $1
		 ORDER BY sp.position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session participants: %w", err)
	}
	defer pRows.Close()

	for pRows.Next() {
		var p models.Participant
		if err := pRows.Scan(&p.ID, &p.DisplayName, &p.Email); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		s.Participants = append(s.Participants, p)
	}
	return s, pRows.Err()
}

// FinishSession records the session's end time.
func (db *DB) FinishSession(ctx context.Context, id uuid.UUID, endTime time.Time) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE sessions SET end_time = $2 WHERE id = $1`, id, endTime)
	if err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateSession inserts a scheduled session with its exercise slots and
// participant roster. Exercises and participants must already exist.
func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, name, session_date, start_time, end_time) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Name, s.Date, s.StartTime, s.EndTime); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	for _, ex := range s.Exercises {
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_exercises (id, session_id, exercise_id, order_in_session,
			 planned_sets, planned_reps, planned_weight_lbs, rest_seconds)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			ex.ID, s.ID, ex.ExerciseID, ex.OrderInSession,
			ex.PlannedSets, ex.PlannedReps, ex.PlannedWeightLbs, ex.RestSeconds); err != nil {
			return fmt.Errorf("inserting session exercise %q: %w", ex.Name, err)
		}
	}
	for i, p := range s.Participants {
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_participants (session_id, participant_id, position) VALUES ($1, $2, $3)`,
			s.ID, p.ID, i); err != nil {
			return fmt.Errorf("inserting session participant: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// EnsureExercise returns the ID of the catalog exercise with this name, creating it if needed.
func (db *DB) EnsureExercise(ctx context.Context, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO exercises (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, uuid.New(), name).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensuring exercise %q: %w", name, err)
	}
	return id, nil
}

// EnsureParticipant inserts a participant or refreshes its display fields.
func (db *DB) EnsureParticipant(ctx context.Context, p models.Participant) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO participants (id, display_name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
			SET display_name = EXCLUDED.display_name, email = EXCLUDED.email
	`, p.ID, p.DisplayName, p.Email)
	if err != nil {
		return fmt.Errorf("ensuring participant: %w", err)
	}
	return nil
}
