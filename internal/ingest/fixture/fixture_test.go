package fixture

import (
	"context"
	"strings"
	"testing"

	"github.com/claude/setlog/internal/storage/sqlite"
)

const sampleFixture = `
name: Tuesday strength
date: 2026-03-14
exercises:
  - name: Back Squat
    sets: 5
    reps: 5
    weight_lbs: 185
    rest_seconds: 120
  - name: Barbell Row
    sets: 3
    reps: 10
    weight_lbs: 95
participants:
  - id: 4f9d6a55-2c1e-4d7b-9a3e-1b2c3d4e5f60
    name: Alex
  - name: Jordan
    email: jordan@example.com
`

// TestDecodeValid verifies a complete fixture decodes.
func TestDecodeValid(t *testing.T) {
	f, err := Decode(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "Tuesday strength" || len(f.Exercises) != 2 || len(f.Participants) != 2 {
		t.Errorf("fixture = %+v", f)
	}
	if f.Exercises[0].WeightLbs != 185 || f.Exercises[1].RestSeconds != 0 {
		t.Errorf("exercises = %+v", f.Exercises)
	}
}

// TestDecodeReportsAllProblems verifies validation collects every error.
func TestDecodeReportsAllProblems(t *testing.T) {
	_, err := Decode(strings.NewReader(`
name: ""
date: 14/03/2026
exercises:
  - name: Squat
    sets: -1
participants: []
`))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"name is required", "date must be", "planned values", "participant is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

// TestDecodeUnknownField verifies typos are rejected.
func TestDecodeUnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("name: x\ndate: 2026-03-14\nexcercises: []\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

// TestImportCreatesSession verifies the session reads back in order with
// its roster.
func TestImportCreatesSession(t *testing.T) {
	store, err := sqlite.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f, err := Decode(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	created, err := Import(ctx, store, f)
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Tuesday strength" || got.Date.Format("2006-01-02") != "2026-03-14" {
		t.Errorf("session = %+v", got)
	}
	got.SortExercises()
	if len(got.Exercises) != 2 || got.Exercises[0].Name != "Back Squat" || got.Exercises[0].RestSeconds != 120 {
		t.Errorf("exercises = %+v", got.Exercises)
	}
	if len(got.Participants) != 2 || got.Participants[0].ID.String() != "4f9d6a55-2c1e-4d7b-9a3e-1b2c3d4e5f60" {
		t.Errorf("participants = %+v", got.Participants)
	}
	if got.Finished() {
		t.Error("new session should not be finished")
	}
}
