package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// newTestServer creates an httptest server that routes requests to handler
// functions keyed by path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Error(err)
	}
}

func newTestClient(url string) *Client {
	return New(url, "secret", Options{Retries: 3, Backoff: time.Millisecond})
}

func testEntry() models.SetLogEntry {
	return models.SetLogEntry{
		SessionExerciseID: uuid.New(),
		ParticipantID:     uuid.New(),
		SetNumber:         1,
		RepsCompleted:     8,
		WeightUsedLbs:     135,
	}
}

// TestGetSession verifies the API key header and session decoding.
func TestGetSession(t *testing.T) {
	id := uuid.New()
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "secret" {
				t.Errorf("X-API-Key=%q, want secret", got)
			}
			writeTestJSON(t, w, models.Session{ID: id, Name: "Push"})
		},
	})

	s, err := newTestClient(ts.URL).LoadSession(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != id || s.Name != "Push" {
		t.Errorf("got %+v", s)
	}
}

// TestGetSessionNotFound verifies that a 404 matches models.ErrNotFound and
// is not retried.
func TestGetSessionNotFound(t *testing.T) {
	id := uuid.New()
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		},
	})

	_, err := newTestClient(ts.URL).GetSession(context.Background(), id)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("err = %v, want StatusError 404", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

// TestQueryHistory verifies query parameters and record decoding.
func TestQueryHistory(t *testing.T) {
	pid, eid := uuid.New(), uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/history": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("participant_id"); got != pid.String() {
				t.Errorf("participant_id=%q", got)
			}
			if got := r.URL.Query().Get("exercise_id"); got != eid.String() {
				t.Errorf("exercise_id=%q", got)
			}
			writeTestJSON(t, w, []models.HistoryRecord{
				{SessionDate: day, SetNumber: 1, RepsCompleted: 5, WeightUsedLbs: 225},
			})
		},
	})

	got, err := newTestClient(ts.URL).FetchHistory(context.Background(), pid, eid)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].WeightUsedLbs != 225 || !got[0].SessionDate.Equal(day) {
		t.Errorf("got %+v", got)
	}
}

// TestSaveSetRetriesServerErrors verifies that 5xx responses are retried
// until the write succeeds.
func TestSaveSetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("method = %s, want PUT", r.Method)
			}
			var e models.SetLogEntry
			if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
				t.Errorf("decode: %v", err)
			}
			if calls.Add(1) < 3 {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			writeTestJSON(t, w, map[string]int{"saved": 1})
		},
	})

	if err := newTestClient(ts.URL).SaveSet(context.Background(), testEntry()); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

// TestSaveSetGivesUp verifies the error after all attempts fail.
func TestSaveSetGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})

	err := newTestClient(ts.URL).SaveSet(context.Background(), testEntry())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("err = %v, want StatusError 500", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

// TestSaveSetNoRetryOnBadRequest verifies that client errors fail fast.
func TestSaveSetNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "bad", http.StatusBadRequest)
		},
	})

	if err := newTestClient(ts.URL).SaveSet(context.Background(), testEntry()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

// TestSaveSetsCancelledDuringBackoff verifies that a cancelled context stops
// the retry loop.
func TestSaveSetsCancelledDuringBackoff(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets/bulk": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		},
	})
	c := New(ts.URL, "secret", Options{Retries: 5, Backoff: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.SaveSets(ctx, []models.SetLogEntry{testEntry()})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

// TestSaveSetsCountMismatch verifies that a short write is reported.
func TestSaveSetsCountMismatch(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets/bulk": func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Entries []models.SetLogEntry `json:"entries"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode: %v", err)
			}
			if len(req.Entries) != 2 {
				t.Errorf("entries = %d, want 2", len(req.Entries))
			}
			writeTestJSON(t, w, map[string]int{"saved": 1})
		},
	})

	err := newTestClient(ts.URL).SaveSets(context.Background(), []models.SetLogEntry{testEntry(), testEntry()})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

// TestFinishSession verifies the end time is sent in the body.
func TestFinishSession(t *testing.T) {
	id := uuid.New()
	end := time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC)
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sessions/" + id.String() + "/finish": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			var body struct {
				EndTime time.Time `json:"end_time"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
			}
			if !body.EndTime.Equal(end) {
				t.Errorf("end_time = %v, want %v", body.EndTime, end)
			}
			writeTestJSON(t, w, map[string]any{"session_id": id})
		},
	})

	if err := newTestClient(ts.URL).FinishSession(context.Background(), id, end); err != nil {
		t.Fatal(err)
	}
}
