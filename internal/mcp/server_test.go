package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/setlog/internal/models"
)

type fakeSource struct {
	sessions map[uuid.UUID]*models.Session
	logs     map[uuid.UUID][]models.SetLogEntry
	history  []models.HistoryRecord
}

func (f *fakeSource) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSource) QuerySessionSetLogs(_ context.Context, id uuid.UUID) ([]models.SetLogEntry, error) {
	return f.logs[id], nil
}

func (f *fakeSource) QueryHistory(_ context.Context, _, _ uuid.UUID) ([]models.HistoryRecord, error) {
	out := make([]models.HistoryRecord, len(f.history))
	copy(out, f.history)
	return out, nil
}

func newTestHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("content type %T, want text", res.Content[0])
		return ""
	}
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	ds          *fakeSource
	sessionID   uuid.UUID
	exercise    models.SessionExercise
	participant models.Participant
}

func newFixture() fixture {
	sid := uuid.New()
	ex := models.SessionExercise{ID: uuid.New(), SessionID: sid, ExerciseID: uuid.New(), Name: "Bench Press", OrderInSession: 1}
	p := models.Participant{ID: uuid.New(), DisplayName: "Dana"}
	ds := &fakeSource{
		sessions: map[uuid.UUID]*models.Session{
			sid: {ID: sid, Name: "Push", Date: day(10), Exercises: []models.SessionExercise{ex}, Participants: []models.Participant{p}},
		},
		logs: map[uuid.UUID][]models.SetLogEntry{},
		history: []models.HistoryRecord{
			{SessionDate: day(1), SetNumber: 1, RepsCompleted: 10, WeightUsedLbs: 95},
			{SessionDate: day(5), SetNumber: 2, RepsCompleted: 6, WeightUsedLbs: 115},
			{SessionDate: day(5), SetNumber: 1, RepsCompleted: 8, WeightUsedLbs: 105},
		},
	}
	return fixture{ds: ds, sessionID: sid, exercise: ex, participant: p}
}

// TestGetSessionTool verifies the session is returned as JSON.
func TestGetSessionTool(t *testing.T) {
	f := newFixture()
	h := newTestHandlers(f.ds)

	res, err := h.getSession(context.Background(), callRequest(map[string]any{"session_id": f.sessionID.String()}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	var got models.Session
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != f.sessionID || len(got.Exercises) != 1 || got.Exercises[0].Name != "Bench Press" {
		t.Errorf("got %+v", got)
	}
}

// TestGetSessionToolErrors verifies argument and lookup failures become
// error results rather than protocol errors.
func TestGetSessionToolErrors(t *testing.T) {
	h := newTestHandlers(newFixture().ds)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing", map[string]any{}},
		{"malformed", map[string]any{"session_id": "nope"}},
		{"unknown", map[string]any{"session_id": uuid.NewString()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.getSession(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError {
				t.Error("expected error result")
			}
		})
	}
}

// TestGetSessionSetsEmpty verifies an empty session yields an empty array.
func TestGetSessionSetsEmpty(t *testing.T) {
	f := newFixture()
	h := newTestHandlers(f.ds)

	res, err := h.getSessionSets(context.Background(), callRequest(map[string]any{"session_id": f.sessionID.String()}))
	if err != nil {
		t.Fatal(err)
	}
	var got []models.SetLogEntry
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty array", got)
	}
}

// TestGetExerciseHistoryOrdered verifies history is most recent day first,
// then ascending set number.
func TestGetExerciseHistoryOrdered(t *testing.T) {
	f := newFixture()
	h := newTestHandlers(f.ds)

	res, err := h.getExerciseHistory(context.Background(), callRequest(map[string]any{
		"participant_id": f.participant.ID.String(),
		"exercise_id":    f.exercise.ExerciseID.String(),
	}))
	if err != nil {
		t.Fatal(err)
	}
	var got []models.HistoryRecord
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if !got[0].SessionDate.Equal(day(5)) || got[0].SetNumber != 1 || got[1].SetNumber != 2 || !got[2].SessionDate.Equal(day(1)) {
		t.Errorf("order = %+v", got)
	}
}

// TestPreviewPrefill verifies only the latest day's sets are proposed,
// renumbered and keyed to the requested pair.
func TestPreviewPrefill(t *testing.T) {
	f := newFixture()
	h := newTestHandlers(f.ds)

	res, err := h.previewPrefill(context.Background(), callRequest(map[string]any{
		"session_id":          f.sessionID.String(),
		"session_exercise_id": f.exercise.ID.String(),
		"participant_id":      f.participant.ID.String(),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	var got prefillPreview
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Exercise != "Bench Press" || got.Participant != "Dana" {
		t.Errorf("labels = %q/%q", got.Exercise, got.Participant)
	}
	if len(got.Sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(got.Sets))
	}
	if got.Sets[0].WeightUsedLbs != 105 || got.Sets[1].WeightUsedLbs != 115 {
		t.Errorf("weights = %v, %v", got.Sets[0].WeightUsedLbs, got.Sets[1].WeightUsedLbs)
	}
	for i, s := range got.Sets {
		if s.SetNumber != i+1 || s.SessionExerciseID != f.exercise.ID || s.ParticipantID != f.participant.ID || s.RPE != nil {
			t.Errorf("set %d = %+v", i, s)
		}
	}
}

// TestPreviewPrefillForeignParticipant verifies participants outside the
// session are rejected.
func TestPreviewPrefillForeignParticipant(t *testing.T) {
	f := newFixture()
	h := newTestHandlers(f.ds)

	res, err := h.previewPrefill(context.Background(), callRequest(map[string]any{
		"session_id":          f.sessionID.String(),
		"session_exercise_id": f.exercise.ID.String(),
		"participant_id":      uuid.NewString(),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error result")
	}
}
