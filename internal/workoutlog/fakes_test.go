package workoutlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

var errUnreachable = errors.New("connection refused")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testDay = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

// testSession builds a session with two exercises and two participants. The
// exercises are listed out of order to exercise sorting.
func testSession() *models.Session {
	sessID := uuid.New()
	return &models.Session{
		ID:   sessID,
		Name: "Tuesday strength",
		Date: testDay,
		Exercises: []models.SessionExercise{
			{ID: uuid.New(), SessionID: sessID, ExerciseID: uuid.New(), Name: "Row", OrderInSession: 2, PlannedSets: 3, PlannedReps: 10, PlannedWeightLbs: 95, RestSeconds: 60},
			{ID: uuid.New(), SessionID: sessID, ExerciseID: uuid.New(), Name: "Squat", OrderInSession: 1, PlannedSets: 5, PlannedReps: 5, PlannedWeightLbs: 185},
		},
		Participants: []models.Participant{
			{ID: uuid.New(), DisplayName: "Alex"},
			{ID: uuid.New(), DisplayName: "Jordan"},
		},
	}
}

// fakeHistory serves canned history per catalog exercise. When gate is set,
// calls block until it is closed; started receives one value per call.
type fakeHistory struct {
	mu      sync.Mutex
	records map[uuid.UUID][]models.HistoryRecord
	err     error
	gate    chan struct{}
	started chan struct{}
	calls   int
}

func (f *fakeHistory) FetchHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error) {
	f.mu.Lock()
	f.calls++
	gate, started, err := f.gate, f.started, f.err
	recs := append([]models.HistoryRecord(nil), f.records[exerciseID]...)
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (f *fakeHistory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type setKey struct {
	exID, pID uuid.UUID
	n         int
}

// fakeBackend records saves keyed by natural key, like the real API.
type fakeBackend struct {
	mu        sync.Mutex
	session   *models.Session
	persisted []models.SetLogEntry

	saveErr   error
	bulkErr   error
	finishErr error

	rows       map[setKey]models.SetLogEntry
	singleCall int
	bulkCalls  int
	finishedAt []time.Time
}

func newFakeBackend(sess *models.Session) *fakeBackend {
	return &fakeBackend{session: sess, rows: make(map[setKey]models.SetLogEntry)}
}

func (f *fakeBackend) LoadSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	if f.session == nil || f.session.ID != id {
		return nil, models.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeBackend) LoadSetLogs(_ context.Context, _ uuid.UUID) ([]models.SetLogEntry, error) {
	return f.persisted, nil
}

func (f *fakeBackend) SaveSet(_ context.Context, e models.SetLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singleCall++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rows[setKey{e.SessionExerciseID, e.ParticipantID, e.SetNumber}] = e
	return nil
}

func (f *fakeBackend) SaveSets(_ context.Context, entries []models.SetLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	if f.bulkErr != nil {
		return f.bulkErr
	}
	for _, e := range entries {
		f.rows[setKey{e.SessionExerciseID, e.ParticipantID, e.SetNumber}] = e
	}
	return nil
}

func (f *fakeBackend) FinishSession(_ context.Context, _ uuid.UUID, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finishErr != nil {
		return f.finishErr
	}
	f.finishedAt = append(f.finishedAt, end)
	return nil
}

func (f *fakeBackend) deps(h HistoryService) Deps {
	return Deps{Sessions: f, Drafts: f, History: h, Sets: f, Bulk: f, Finalizer: f}
}

// noticeRecorder collects notices from any goroutine.
type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
	expired chan struct{}
}

func newNoticeRecorder() *noticeRecorder {
	return &noticeRecorder{expired: make(chan struct{}, 4)}
}

func (r *noticeRecorder) record(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
	if n.Kind == NoticeRestExpired {
		r.expired <- struct{}{}
	}
}

func (r *noticeRecorder) kinds() []NoticeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NoticeKind, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Kind
	}
	return out
}

func (r *noticeRecorder) has(k NoticeKind) bool {
	for _, got := range r.kinds() {
		if got == k {
			return true
		}
	}
	return false
}
