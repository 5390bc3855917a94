package workoutlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// DefaultRestSeconds is used when an exercise has no rest_seconds of its own.
const DefaultRestSeconds = 90

// Identity is the trainer operating the logging screen.
type Identity struct {
	TrainerID   uuid.UUID
	DisplayName string
}

// SessionLoader returns a session with its exercises and participants.
type SessionLoader interface {
	LoadSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
}

// SetLogLoader returns sets already persisted for a session.
type SetLogLoader interface {
	LoadSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error)
}

// Deps are the external collaborators of an Engine. Drafts and Sessions are
// only needed by Open.
type Deps struct {
	Sessions  SessionLoader
	Drafts    SetLogLoader
	History   HistoryService
	Sets      SetSaver
	Bulk      BulkSaver
	Finalizer SessionFinalizer
}

// NoticeKind identifies an asynchronous signal for the UI.
type NoticeKind int

const (
	NoticePrefilled NoticeKind = iota
	NoticeSetSaved
	NoticeSetSaveFailed
	NoticeDraftSaved
	NoticeNothingToSave
	NoticeDraftSaveFailed
	NoticeRestExpired
	NoticeFinished
)

func (k NoticeKind) String() string {
	switch k {
	case NoticePrefilled:
		return "prefilled"
	case NoticeSetSaved:
		return "set saved"
	case NoticeSetSaveFailed:
		return "set save failed"
	case NoticeDraftSaved:
		return "draft saved"
	case NoticeNothingToSave:
		return "nothing to save"
	case NoticeDraftSaveFailed:
		return "draft save failed"
	case NoticeRestExpired:
		return "rest over"
	case NoticeFinished:
		return "session finished"
	default:
		return "unknown"
	}
}

// Notice is delivered to the notifier. Pair and SetNumber are set for
// per-set notices, Count for bulk ones.
type Notice struct {
	Kind      NoticeKind
	Pair      Pair
	SetNumber int
	Count     int
	Err       error
	At        time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier registers a callback for notices. It may be called from the
// rest timer's goroutine and must not block.
func WithNotifier(fn func(Notice)) Option {
	return func(e *Engine) { e.notify = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTickInterval sets the length of one rest timer second.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithDefaultRest sets the rest length for exercises without rest_seconds.
func WithDefaultRest(seconds int) Option {
	return func(e *Engine) {
		if seconds > 0 {
			e.defaultRest = seconds
		}
	}
}

// Engine drives logging for one session: the set store, pre-fill on focus,
// batch generation, the rest timer and persistence.
type Engine struct {
	session   *models.Session
	identity  Identity
	log       *slog.Logger
	store     *Store
	history   *HistoryAdapter
	recon     *Reconciler
	finalizer SessionFinalizer
	timer     *RestTimer

	notify       func(Notice)
	now          func() time.Time
	tickInterval time.Duration
	defaultRest  int

	mu        sync.Mutex
	active    Pair
	hasActive bool
	form      BatchForm
	finished  bool
}

// New creates an engine for a loaded session.
func New(sess *models.Session, identity Identity, deps Deps, log *slog.Logger, opts ...Option) (*Engine, error) {
	if sess == nil {
		return nil, errors.New("workoutlog: nil session")
	}
	if deps.Sets == nil || deps.Bulk == nil || deps.Finalizer == nil {
		return nil, errors.New("workoutlog: set, bulk and finalize collaborators are required")
	}

	e := &Engine{
		session:      sess,
		identity:     identity,
		log:          log.With("session_id", sess.ID.String(), "trainer", identity.DisplayName),
		store:        NewStore(sess),
		history:      NewHistoryAdapter(deps.History),
		finalizer:    deps.Finalizer,
		now:          time.Now,
		tickInterval: time.Second,
		defaultRest:  DefaultRestSeconds,
		finished:     sess.Finished(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.recon = NewReconciler(e.store, deps.Sets, deps.Bulk, e.log)
	e.timer = NewRestTimer(
		WithInterval(e.tickInterval),
		WithOnExpire(func() { e.emit(Notice{Kind: NoticeRestExpired}) }),
	)
	return e, nil
}

// Open loads a session and, when a SetLogLoader is given, resumes its
// persisted sets.
func Open(ctx context.Context, deps Deps, sessionID uuid.UUID, identity Identity, log *slog.Logger, opts ...Option) (*Engine, error) {
	if deps.Sessions == nil {
		return nil, errors.New("workoutlog: session loader is required")
	}
	sess, err := deps.Sessions.LoadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("loading session %s: %w: %w", sessionID, ErrNotFound, err)
		}
		return nil, fmt.Errorf("loading session %s: %w: %w", sessionID, ErrNetwork, err)
	}

	e, err := New(sess, identity, deps, log, opts...)
	if err != nil {
		return nil, err
	}

	if deps.Drafts != nil {
		logs, err := deps.Drafts.LoadSetLogs(ctx, sessionID)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("loading set logs: %w: %w", ErrNetwork, err)
		}
		if ignored := e.store.Seed(logs); ignored > 0 {
			e.log.Warn("ignored persisted sets outside session", "count", ignored)
		}
		e.log.Info("session opened", "persisted_sets", len(logs))
	}
	return e, nil
}

// Close stops the rest timer. Outstanding saves are not awaited.
func (e *Engine) Close() {
	e.timer.Close()
}

// Session returns the loaded session.
func (e *Engine) Session() *models.Session { return e.session }

// Identity returns the trainer the engine was opened for.
func (e *Engine) Identity() Identity { return e.identity }

// Active returns the focused pair, if any.
func (e *Engine) Active() (Pair, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active, e.hasActive
}

// BatchForm returns the batch template seeded for the active exercise.
func (e *Engine) BatchForm() BatchForm {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// Dirty reports whether there are edits not yet confirmed by a bulk save.
func (e *Engine) Dirty() bool { return e.store.Dirty() }

// Finished reports whether the session has been finalized.
func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// Logs returns the sets of one pair.
func (e *Engine) Logs(sessionExerciseID, participantID uuid.UUID) ([]models.SetLogEntry, error) {
	return e.store.Logs(Pair{sessionExerciseID, participantID})
}

// FocusResult is the outcome of a pre-fill started by StartFocus.
type FocusResult struct {
	Outcome PrefillOutcome
	Err     error
}

// FocusPair makes a pair active. If its bucket is empty, the participant's
// last session on that exercise is fetched and written into the bucket,
// unless the bucket was edited or another pair was focused in the meantime.
// A failed fetch is logged and reported as PrefillUnavailable, never as an error.
func (e *Engine) FocusPair(ctx context.Context, sessionExerciseID, participantID uuid.UUID) (PrefillOutcome, error) {
	ch, err := e.StartFocus(ctx, sessionExerciseID, participantID)
	if err != nil {
		return PrefillNotNeeded, err
	}
	res := <-ch
	return res.Outcome, res.Err
}

// StartFocus makes a pair active before returning and runs any history fetch
// in the background, so edits and further focus changes can interleave with
// it. The channel receives exactly one result.
func (e *Engine) StartFocus(ctx context.Context, sessionExerciseID, participantID uuid.UUID) (<-chan FocusResult, error) {
	pair := Pair{sessionExerciseID, participantID}

	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return nil, ErrFinished
	}
	logs, err := e.store.Logs(pair)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	ex, _ := e.store.Exercise(sessionExerciseID)
	if !e.hasActive || e.active.SessionExerciseID != sessionExerciseID {
		e.form = DefaultBatchForm(ex)
	}
	e.active = pair
	e.hasActive = true
	e.mu.Unlock()

	ch := make(chan FocusResult, 1)
	if len(logs) > 0 {
		ch <- FocusResult{Outcome: PrefillNotNeeded}
		return ch, nil
	}
	go func() {
		outcome, err := e.prefill(ctx, pair, ex.ExerciseID)
		ch <- FocusResult{Outcome: outcome, Err: err}
	}()
	return ch, nil
}

func (e *Engine) prefill(ctx context.Context, pair Pair, exerciseID uuid.UUID) (PrefillOutcome, error) {
	records, err := e.history.Fetch(ctx, pair.ParticipantID, exerciseID)
	if err != nil {
		e.log.Warn("history unavailable, skipping prefill", "pair", pair.String(), "error", err)
		return PrefillUnavailable, nil
	}
	entries := Prefill(records, pair)
	if len(entries) == 0 {
		return PrefillNoHistory, nil
	}

	e.mu.Lock()
	if e.finished || !e.hasActive || e.active != pair {
		e.mu.Unlock()
		e.log.Debug("prefill discarded, pair no longer active", "pair", pair.String())
		return PrefillDiscarded, nil
	}
	written, err := e.store.ReplaceIfEmpty(pair, entries)
	e.mu.Unlock()
	if err != nil {
		return PrefillNotNeeded, err
	}
	if !written {
		e.log.Debug("prefill skipped, sets logged during fetch", "pair", pair.String())
		return PrefillSkipped, nil
	}
	e.emit(Notice{Kind: NoticePrefilled, Pair: pair, Count: len(entries)})
	return PrefillApplied, nil
}

// AddSet appends a set to a pair.
func (e *Engine) AddSet(sessionExerciseID, participantID uuid.UUID, defaults SetDefaults) (models.SetLogEntry, error) {
	if err := e.checkOpen(); err != nil {
		return models.SetLogEntry{}, err
	}
	return e.store.AddSet(Pair{sessionExerciseID, participantID}, defaults)
}

// UpdateSet edits one field of the set at a 0-based index.
func (e *Engine) UpdateSet(sessionExerciseID, participantID uuid.UUID, index int, field Field, value any) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.store.UpdateSet(Pair{sessionExerciseID, participantID}, index, field, value)
}

// RemoveSet deletes the set at a 0-based index.
func (e *Engine) RemoveSet(sessionExerciseID, participantID uuid.UUID, index int) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	return e.store.RemoveSet(Pair{sessionExerciseID, participantID}, index)
}

// GenerateBatch replaces a pair's sets with setCount identical sets.
func (e *Engine) GenerateBatch(sessionExerciseID, participantID uuid.UUID, setCount, reps int, weightLbs float64) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	pair := Pair{sessionExerciseID, participantID}
	if _, err := e.store.Logs(pair); err != nil {
		return err
	}
	form := BatchForm{SetCount: setCount, Reps: reps, WeightLbs: weightLbs}
	if err := form.Validate(); err != nil {
		return err
	}
	return e.store.ReplaceAll(pair, form.Entries(pair))
}

// StartRest starts the rest countdown for an exercise, replacing any running one.
// It returns the countdown length.
func (e *Engine) StartRest(sessionExerciseID uuid.UUID) (int, error) {
	ex, ok := e.store.Exercise(sessionExerciseID)
	if !ok {
		return 0, fmt.Errorf("exercise %s: %w", sessionExerciseID, ErrNotFound)
	}
	seconds := ex.RestSeconds
	if seconds < 1 {
		seconds = e.defaultRest
	}
	if err := e.timer.Start(seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

// StartRestSeconds starts a countdown of an explicit length.
func (e *Engine) StartRestSeconds(seconds int) error {
	return e.timer.Start(seconds)
}

// CancelRest stops the rest countdown.
func (e *Engine) CancelRest() bool { return e.timer.Cancel() }

// Rest returns the timer state and seconds left.
func (e *Engine) Rest() (TimerState, int) {
	return e.timer.State(), e.timer.Remaining()
}

// SaveSet persists one set immediately. On failure the set keeps its values
// and the draft stays dirty so the save can be retried.
func (e *Engine) SaveSet(ctx context.Context, sessionExerciseID, participantID uuid.UUID, index int) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	pair := Pair{sessionExerciseID, participantID}
	entry, err := e.recon.SaveSet(ctx, pair, index)
	if err != nil {
		if errors.Is(err, ErrNetwork) {
			e.emit(Notice{Kind: NoticeSetSaveFailed, Pair: pair, SetNumber: entry.SetNumber, Err: err})
		}
		return err
	}
	e.emit(Notice{Kind: NoticeSetSaved, Pair: pair, SetNumber: entry.SetNumber})
	return nil
}

// SaveAll persists the whole draft as one batch.
func (e *Engine) SaveAll(ctx context.Context) (SaveAllResult, error) {
	if err := e.checkOpen(); err != nil {
		return SaveAllResult{}, err
	}
	res, err := e.recon.SaveAll(ctx)
	switch {
	case err != nil:
		e.emit(Notice{Kind: NoticeDraftSaveFailed, Err: err})
	case res.NothingToSave:
		e.emit(Notice{Kind: NoticeNothingToSave})
	default:
		e.emit(Notice{Kind: NoticeDraftSaved, Count: res.Saved})
	}
	return res, err
}

// Finish bulk-saves the draft and then records the session's end time. If
// the save fails the session is not finalized.
func (e *Engine) Finish(ctx context.Context) error {
	if _, err := e.SaveAll(ctx); err != nil {
		return fmt.Errorf("finishing session: %w", err)
	}

	end := e.now()
	if err := e.finalizer.FinishSession(ctx, e.session.ID, end); err != nil {
		return fmt.Errorf("finalizing session: %w: %w", ErrNetwork, err)
	}

	e.timer.Cancel()
	e.mu.Lock()
	e.finished = true
	e.mu.Unlock()

	e.log.Info("session finished", "end_time", end)
	e.emit(Notice{Kind: NoticeFinished})
	return nil
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return ErrFinished
	}
	return nil
}

func (e *Engine) emit(n Notice) {
	if e.notify == nil {
		return
	}
	n.At = e.now()
	e.notify(n)
}
