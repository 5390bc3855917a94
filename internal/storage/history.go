package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// QueryHistory returns a participant's prior sets for a catalog exercise:
// sets logged in finished sessions plus imported history, most recent day
// first and set number ascending within a day.
func (db *DB) QueryHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT s.session_date, sl.set_number, sl.reps_completed, sl.weight_used_lbs
		 FROM set_logs sl
		 JOIN session_exercises se ON se.id = sl.session_exercise_id
		 JOIN sessions s ON s.id = se.session_id
		 WHERE sl.participant_id = $1 AND se.exercise_id = $2 AND s.end_time IS NOT NULL
		 UNION ALL
		 SELECT session_date, set_number, reps_completed, weight_used_lbs
		 FROM history_sets
		 WHERE participant_id = $1 AND exercise_id = $2
		 ORDER BY 1 DESC, 2 ASC`,
		participantID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	result := []models.HistoryRecord{}
	for rows.Next() {
		var r models.HistoryRecord
		if err := rows.Scan(&r.SessionDate, &r.SetNumber, &r.RepsCompleted, &r.WeightUsedLbs); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// InsertHistorySets batch-inserts imported history. Rows already present are skipped.
func (db *DB) InsertHistorySets(ctx context.Context, rows []models.HistorySetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO history_sets (participant_id, exercise_id, session_date,
		set_number, reps_completed, weight_used_lbs, source) VALUES `
	args := make([]any, 0, len(rows)*7)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 7
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, r.ParticipantID, r.ExerciseID, r.SessionDate,
			r.SetNumber, r.RepsCompleted, r.WeightUsedLbs, r.Source)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting history sets: %w", err)
	}
	return tag.RowsAffected(), nil
}
