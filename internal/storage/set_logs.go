package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/setlog/internal/models"
)

const setLogColumns = 7

// QuerySessionSetLogs returns every persisted set of a session, in session
// order then participant order then set number.
func (db *DB) QuerySessionSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT sl.session_exercise_id, sl.participant_id, sl.set_number,
		 sl.reps_completed, sl.weight_used_lbs, sl.rpe, sl.notes
		 FROM set_logs sl
		 JOIN session_exercises se ON se.id = sl.session_exercise_id
		 LEFT JOIN session_participants sp
		   ON sp.session_id = se.session_id AND sp.participant_id = sl.participant_id
		 WHERE se.session_id = $1
		 ORDER BY se.order_in_session ASC, sp.position ASC, sl.set_number ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying set logs: %w", err)
	}
	defer rows.Close()

	result := []models.SetLogEntry{}
	for rows.Next() {
		var e models.SetLogEntry
		if err := rows.Scan(&e.SessionExerciseID, &e.ParticipantID, &e.SetNumber,
			&e.RepsCompleted, &e.WeightUsedLbs, &e.RPE, &e.Notes); err != nil {
			return nil, fmt.Errorf("scanning set log: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// UpsertSetLog writes one set, replacing any row with the same natural key.
func (db *DB) UpsertSetLog(ctx context.Context, e models.SetLogEntry) error {
	_, err := db.upsertSetLogs(ctx, []models.SetLogEntry{e}, false)
	return err
}

// UpsertSetLogs writes all entries in one transaction. Either every entry is
// stored or none is. Each submitted pair's list replaces the stored one, so
// rows above its highest submitted set number are deleted. It returns
// models.ErrNotFound if any entry refers to a participant that is not on the
// exercise's session.
func (db *DB) UpsertSetLogs(ctx context.Context, entries []models.SetLogEntry) (int, error) {
	return db.upsertSetLogs(ctx, entries, true)
}

func (db *DB) upsertSetLogs(ctx context.Context, entries []models.SetLogEntry, trim bool) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := checkPairs(ctx, tx, entries); err != nil {
		return 0, err
	}

	query, args := buildUpsertSetLogs(entries)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("upserting set logs: %w", err)
	}
	if trim {
		for k, n := range highestSetNumbers(entries) {
			if _, err := tx.Exec(ctx,
				`DELETE FROM set_logs
				 WHERE session_exercise_id = $1 AND participant_id = $2 AND set_number > $3`,
				k.exID, k.pID, n); err != nil {
				return 0, fmt.Errorf("trimming sets above %d: %w", n, err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing set logs: %w", err)
	}
	return len(entries), nil
}

// buildUpsertSetLogs renders one multi-row upsert. A natural key repeated in
// the batch keeps only its last entry: ON CONFLICT cannot update a row twice
// in one statement.
func buildUpsertSetLogs(entries []models.SetLogEntry) (string, []any) {
	type naturalKey struct {
		pair pairKey
		set  int
	}
	last := make(map[naturalKey]int, len(entries))
	for i, e := range entries {
		last[naturalKey{pairKey{e.SessionExerciseID, e.ParticipantID}, e.SetNumber}] = i
	}

	args := make([]any, 0, len(last)*setLogColumns)
	valueStrings := make([]string, 0, len(last))
	for i, e := range entries {
		if last[naturalKey{pairKey{e.SessionExerciseID, e.ParticipantID}, e.SetNumber}] != i {
			continue
		}
		base := len(valueStrings) * setLogColumns
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, e.SessionExerciseID, e.ParticipantID, e.SetNumber,
			e.RepsCompleted, e.WeightUsedLbs, e.RPE, e.Notes)
	}

	query := `INSERT INTO set_logs (session_exercise_id, participant_id, set_number,
		reps_completed, weight_used_lbs, rpe, notes) VALUES ` +
		strings.Join(valueStrings, ",") + `
		ON CONFLICT (session_exercise_id, participant_id, set_number) DO UPDATE SET
			reps_completed = EXCLUDED.reps_completed,
			weight_used_lbs = EXCLUDED.weight_used_lbs,
			rpe = EXCLUDED.rpe,
			notes = EXCLUDED.notes,
			updated_at = NOW()`
	return query, args
}

type pairKey struct {
	exID, pID uuid.UUID
}

// highestSetNumbers maps each pair in entries to its largest set number.
func highestSetNumbers(entries []models.SetLogEntry) map[pairKey]int {
	out := make(map[pairKey]int)
	for _, e := range entries {
		k := pairKey{e.SessionExerciseID, e.ParticipantID}
		if n, ok := out[k]; !ok || e.SetNumber > n {
			out[k] = e.SetNumber
		}
	}
	return out
}

// checkPairs verifies each distinct (session exercise, participant) pair
// belongs to one session.
func checkPairs(ctx context.Context, tx pgx.Tx, entries []models.SetLogEntry) error {
	seen := make(map[pairKey]bool)
	for _, e := range entries {
		k := pairKey{e.SessionExerciseID, e.ParticipantID}
		if seen[k] {
			continue
		}
		seen[k] = true

		var n int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM session_exercises se
			 JOIN session_participants sp ON sp.session_id = se.session_id
			 WHERE se.id = $1 AND sp.participant_id = $2`,
			e.SessionExerciseID, e.ParticipantID).Scan(&n)
		if err != nil {
			return fmt.Errorf("checking set pair: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("exercise %s / participant %s: %w", e.SessionExerciseID, e.ParticipantID, models.ErrNotFound)
		}
	}
	return nil
}
