package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// QueryHistory returns sets from finished sessions plus imported history,
// most recent day first and set number ascending within a day.
func (s *Store) QueryHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.session_date, sl.set_number, sl.reps_completed, sl.weight_used_lbs
		 FROM set_logs sl
		 JOIN session_exercises se ON se.id = sl.session_exercise_id
		 JOIN sessions s ON s.id = se.session_id
		 WHERE sl.participant_id = ?1 AND se.exercise_id = ?2 AND s.end_time IS NOT NULL
		 UNION ALL
		 SELECT session_date, set_number, reps_completed, weight_used_lbs
		 FROM history_sets
		 WHERE participant_id = ?1 AND exercise_id = ?2
		 ORDER BY 1 DESC, 2 ASC`,
		participantID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	result := []models.HistoryRecord{}
	for rows.Next() {
		var r models.HistoryRecord
		var date string
		if err := rows.Scan(&date, &r.SetNumber, &r.RepsCompleted, &r.WeightUsedLbs); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if r.SessionDate, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse history date: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// InsertHistorySets inserts imported history. Rows already present are skipped.
func (s *Store) InsertHistorySets(ctx context.Context, rows []models.HistorySetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO history_sets (participant_id, exercise_id, session_date,
		 set_number, reps_completed, weight_used_lbs, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx, r.ParticipantID, r.ExerciseID, r.SessionDate.Format(dateLayout),
			r.SetNumber, r.RepsCompleted, r.WeightUsedLbs, r.Source)
		if err != nil {
			return 0, fmt.Errorf("insert history set: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit history: %w", err)
	}
	return inserted, nil
}
