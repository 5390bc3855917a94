package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// GetSession loads a session with its exercises (in session order) and participants.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess := &models.Session{ID: id}
	var date string
	var start, end sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT name, session_date, start_time, end_time FROM sessions WHERE id = ?`, id,
	).Scan(&sess.Name, &date, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	if sess.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("parse session date: %w", err)
	}
	if sess.StartTime, err = parseTime(start); err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	if sess.EndTime, err = parseTime(end); err != nil {
		return nil, fmt.Errorf("parse end time: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT se.id, se.exercise_id, e.name, se.order_in_session,
		 se.planned_sets, se.planned_reps, se.planned_weight_lbs, se.rest_seconds
		 FROM session_exercises se
		 JOIN exercises e ON e.id = se.exercise_id
		 WHERE se.session_id = ?
		 ORDER BY se.order_in_session ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query session exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ex := models.SessionExercise{SessionID: id}
		if err := rows.Scan(&ex.ID, &ex.ExerciseID, &ex.Name, &ex.OrderInSession,
			&ex.PlannedSets, &ex.PlannedReps, &ex.PlannedWeightLbs, &ex.RestSeconds); err != nil {
			return nil, fmt.Errorf("scan session exercise: %w", err)
		}
		sess.Exercises = append(sess.Exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pRows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.display_name, p.email
		 FROM session_participants sp
		 JOIN participants p ON p.id = sp.participant_id
		 WHERE sp.session_id = ?
		 ORDER BY sp.position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query session participants: %w", err)
	}
	defer pRows.Close()

	for pRows.Next() {
		var p models.Participant
		if err := pRows.Scan(&p.ID, &p.DisplayName, &p.Email); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		sess.Participants = append(sess.Participants, p)
	}
	return sess, pRows.Err()
}

// FinishSession records the session's end time.
func (s *Store) FinishSession(ctx context.Context, id uuid.UUID, endTime time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET end_time = ? WHERE id = ?`, formatTime(&endTime), id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateSession inserts a scheduled session with its exercise slots and roster.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, name, session_date, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.Date.Format(dateLayout), formatTime(sess.StartTime), formatTime(sess.EndTime)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	for _, ex := range sess.Exercises {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_exercises (id, session_id, exercise_id, order_in_session,
			 planned_sets, planned_reps, planned_weight_lbs, rest_seconds)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ex.ID, sess.ID, ex.ExerciseID, ex.OrderInSession,
			ex.PlannedSets, ex.PlannedReps, ex.PlannedWeightLbs, ex.RestSeconds); err != nil {
			return fmt.Errorf("insert session exercise %q: %w", ex.Name, err)
		}
	}
	for i, p := range sess.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_participants (session_id, participant_id, position) VALUES (?, ?, ?)`,
			sess.ID, p.ID, i); err != nil {
			return fmt.Errorf("insert session participant: %w", err)
		}
	}
	return tx.Commit()
}

// EnsureExercise returns the ID of the catalog exercise with this name, creating it if needed.
func (s *Store) EnsureExercise(ctx context.Context, name string) (uuid.UUID, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO exercises (id, name) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		uuid.New(), name); err != nil {
		return uuid.Nil, fmt.Errorf("insert exercise %q: %w", name, err)
	}
	var id uuid.UUID
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM exercises WHERE name = ?`, name).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("query exercise %q: %w", name, err)
	}
	return id, nil
}

// EnsureParticipant inserts a participant or refreshes its display fields.
func (s *Store) EnsureParticipant(ctx context.Context, p models.Participant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (id, display_name, email) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, email = excluded.email`,
		p.ID, p.DisplayName, p.Email)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}
