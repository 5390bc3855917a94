package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// TestBuildUpsertSetLogsPlaceholders verifies placeholders are numbered
// across rows and args line up with columns.
func TestBuildUpsertSetLogsPlaceholders(t *testing.T) {
	ex, p := uuid.New(), uuid.New()
	rpe := 8
	entries := []models.SetLogEntry{
		{SessionExerciseID: ex, ParticipantID: p, SetNumber: 1, RepsCompleted: 5, WeightUsedLbs: 185},
		{SessionExerciseID: ex, ParticipantID: p, SetNumber: 2, RepsCompleted: 5, WeightUsedLbs: 185, RPE: &rpe, Notes: "grind"},
	}

	query, args := buildUpsertSetLogs(entries)
	if !strings.Contains(query, "($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14)") {
		t.Errorf("unexpected values clause in:\n%s", query)
	}
	if !strings.Contains(query, "ON CONFLICT (session_exercise_id, participant_id, set_number) DO UPDATE") {
		t.Error("missing upsert clause")
	}
	if len(args) != 2*setLogColumns {
		t.Fatalf("args = %d, want %d", len(args), 2*setLogColumns)
	}
	if args[9] != 2 || args[13] != "grind" {
		t.Errorf("second row args = %v", args[7:])
	}
}

// TestBuildUpsertSetLogsLastWins verifies a repeated natural key keeps the
// last entry only.
func TestBuildUpsertSetLogsLastWins(t *testing.T) {
	ex, p := uuid.New(), uuid.New()
	entries := []models.SetLogEntry{
		{SessionExerciseID: ex, ParticipantID: p, SetNumber: 1, RepsCompleted: 5, WeightUsedLbs: 100},
		{SessionExerciseID: ex, ParticipantID: p, SetNumber: 2, RepsCompleted: 5, WeightUsedLbs: 100},
		{SessionExerciseID: ex, ParticipantID: p, SetNumber: 1, RepsCompleted: 3, WeightUsedLbs: 120},
	}

	query, args := buildUpsertSetLogs(entries)
	if strings.Contains(query, "$15") {
		t.Errorf("duplicate row rendered:\n%s", query)
	}
	if len(args) != 2*setLogColumns {
		t.Fatalf("args = %d, want %d", len(args), 2*setLogColumns)
	}
	// Order follows the surviving entries: set 2, then the later set 1.
	if args[2] != 2 || args[9] != 1 || args[11] != 120.0 {
		t.Errorf("args = %v", args)
	}
}

// TestHighestSetNumbers verifies each pair maps to its largest set number
// regardless of entry order.
func TestHighestSetNumbers(t *testing.T) {
	ex, p1, p2 := uuid.New(), uuid.New(), uuid.New()
	entries := []models.SetLogEntry{
		{SessionExerciseID: ex, ParticipantID: p1, SetNumber: 2},
		{SessionExerciseID: ex, ParticipantID: p1, SetNumber: 1},
		{SessionExerciseID: ex, ParticipantID: p2, SetNumber: 1},
	}

	got := highestSetNumbers(entries)
	if len(got) != 2 {
		t.Fatalf("pairs = %d, want 2", len(got))
	}
	if got[pairKey{ex, p1}] != 2 || got[pairKey{ex, p2}] != 1 {
		t.Errorf("highest = %v", got)
	}
}
