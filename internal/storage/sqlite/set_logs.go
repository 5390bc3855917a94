package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// QuerySessionSetLogs returns every persisted set of a session, in session
// order then participant order then set number.
func (s *Store) QuerySessionSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sl.session_exercise_id, sl.participant_id, sl.set_number,
		 sl.reps_completed, sl.weight_used_lbs, sl.rpe, sl.notes
		 FROM set_logs sl
		 JOIN session_exercises se ON se.id = sl.session_exercise_id
		 LEFT JOIN session_participants sp
		   ON sp.session_id = se.session_id AND sp.participant_id = sl.participant_id
		 WHERE se.session_id = ?
		 ORDER BY se.order_in_session ASC, sp.position ASC, sl.set_number ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query set logs: %w", err)
	}
	defer rows.Close()

	result := []models.SetLogEntry{}
	for rows.Next() {
		var e models.SetLogEntry
		var rpe sql.NullInt64
		if err := rows.Scan(&e.SessionExerciseID, &e.ParticipantID, &e.SetNumber,
			&e.RepsCompleted, &e.WeightUsedLbs, &rpe, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan set log: %w", err)
		}
		e.RPE = rpeFrom(rpe)
		result = append(result, e)
	}
	return result, rows.Err()
}

// UpsertSetLog writes one set, replacing any row with the same natural key.
func (s *Store) UpsertSetLog(ctx context.Context, e models.SetLogEntry) error {
	_, err := s.upsertSetLogs(ctx, []models.SetLogEntry{e}, false)
	return err
}

// UpsertSetLogs writes all entries in one transaction. Each submitted pair's
// list replaces the stored one: rows above its highest submitted set number
// are deleted. It returns models.ErrNotFound if any entry refers to a
// participant that is not on the exercise's session.
func (s *Store) UpsertSetLogs(ctx context.Context, entries []models.SetLogEntry) (int, error) {
	return s.upsertSetLogs(ctx, entries, true)
}

func (s *Store) upsertSetLogs(ctx context.Context, entries []models.SetLogEntry, trim bool) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	type pairKey struct{ exID, pID uuid.UUID }
	highest := make(map[pairKey]int)
	for _, e := range entries {
		k := pairKey{e.SessionExerciseID, e.ParticipantID}
		if n, ok := highest[k]; ok {
			highest[k] = max(n, e.SetNumber)
			continue
		}
		highest[k] = e.SetNumber

		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM session_exercises se
			 JOIN session_participants sp ON sp.session_id = se.session_id
			 WHERE se.id = ? AND sp.participant_id = ?`,
			e.SessionExerciseID, e.ParticipantID).Scan(&n); err != nil {
			return 0, fmt.Errorf("check set pair: %w", err)
		}
		if n == 0 {
			return 0, fmt.Errorf("exercise %s / participant %s: %w", e.SessionExerciseID, e.ParticipantID, models.ErrNotFound)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO set_logs (session_exercise_id, participant_id, set_number,
		 reps_completed, weight_used_lbs, rpe, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_exercise_id, participant_id, set_number) DO UPDATE SET
			reps_completed = excluded.reps_completed,
			weight_used_lbs = excluded.weight_used_lbs,
			rpe = excluded.rpe,
			notes = excluded.notes,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.SessionExerciseID, e.ParticipantID, e.SetNumber,
			e.RepsCompleted, e.WeightUsedLbs, nullableRPE(e.RPE), e.Notes); err != nil {
			return 0, fmt.Errorf("upsert set %d: %w", e.SetNumber, err)
		}
	}
	if trim {
		for k, n := range highest {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM set_logs
				 WHERE session_exercise_id = ? AND participant_id = ? AND set_number > ?`,
				k.exID, k.pID, n); err != nil {
				return 0, fmt.Errorf("trim sets above %d: %w", n, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit set logs: %w", err)
	}
	return len(entries), nil
}
