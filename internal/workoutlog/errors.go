package workoutlog

import "errors"

// Error kinds surfaced to the caller. Check them with errors.Is.
var (
	// ErrNotFound means the exercise/participant pair or set index is not part of the session.
	ErrNotFound = errors.New("workoutlog: not found")
	// ErrValidation means an argument was out of range (set count, reps, rpe, ...).
	ErrValidation = errors.New("workoutlog: validation failed")
	// ErrNetwork means a backing collaborator could not be reached or rejected the call.
	ErrNetwork = errors.New("workoutlog: network failure")
	// ErrFinished means the session has been finalized and no longer accepts edits.
	ErrFinished = errors.New("workoutlog: session finished")
)
