package workoutlog

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// TimerState is the rest timer's resting state. Expiry is a transition back
// to TimerIdle, reported through the expire callback.
type TimerState int

const (
	TimerIdle TimerState = iota
	TimerRunning
)

func (s TimerState) String() string {
	if s == TimerRunning {
		return "running"
	}
	return "idle"
}

var errTimerClosed = errors.New("rest timer closed")

// RestTimer is a single countdown. Starting it again replaces the running countdown.
type RestTimer struct {
	interval time.Duration
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	state     TimerState
	remaining int
	gen       uint64
	stop      chan struct{}
	closed    bool
	wg        sync.WaitGroup
}

// TimerOption configures a RestTimer.
type TimerOption func(*RestTimer)

// WithInterval sets how long one countdown second lasts. Defaults to time.Second.
func WithInterval(d time.Duration) TimerOption {
	return func(t *RestTimer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithOnTick registers a callback invoked after every tick with the seconds left.
func WithOnTick(fn func(remaining int)) TimerOption {
	return func(t *RestTimer) { t.onTick = fn }
}

// WithOnExpire registers a callback invoked when a countdown reaches zero.
func WithOnExpire(fn func()) TimerOption {
	return func(t *RestTimer) { t.onExpire = fn }
}

// NewRestTimer creates an idle timer.
func NewRestTimer(opts ...TimerOption) *RestTimer {
	t := &RestTimer{interval: time.Second}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins a countdown of seconds, cancelling any countdown in progress.
func (t *RestTimer) Start(seconds int) error {
	if seconds < 1 {
		return fmt.Errorf("rest seconds must be >= 1, got %d: %w", seconds, ErrValidation)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTimerClosed
	}

	t.cancelLocked()
	t.gen++
	stop := make(chan struct{})
	t.stop = stop
	t.state = TimerRunning
	t.remaining = seconds

	t.wg.Add(1)
	go t.run(t.gen, stop)
	return nil
}

// Cancel stops a running countdown. It reports whether one was running.
func (t *RestTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	running := t.state == TimerRunning
	t.cancelLocked()
	return running
}

// Close cancels the countdown and waits for its goroutine to exit. The timer
// cannot be started again.
func (t *RestTimer) Close() {
	t.mu.Lock()
	t.closed = true
	t.cancelLocked()
	t.mu.Unlock()
	t.wg.Wait()
}

// State returns the current state.
func (t *RestTimer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the seconds left, or 0 when idle.
func (t *RestTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *RestTimer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
	t.state = TimerIdle
	t.remaining = 0
}

// current reports whether gen is still the latest countdown. A Start or
// Cancel that ran after expiry was decided supersedes it.
func (t *RestTimer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}

func (t *RestTimer) run(gen uint64, stop <-chan struct{}) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.remaining--
		remaining := t.remaining
		expired := remaining <= 0
		if expired {
			t.state = TimerIdle
			t.remaining = 0
			t.stop = nil
		}
		t.mu.Unlock()

		if t.onTick != nil {
			t.onTick(remaining)
		}
		if expired {
			if t.onExpire != nil && t.current(gen) {
				t.onExpire()
			}
			return
		}
	}
}
