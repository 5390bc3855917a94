// Package ingest holds what history importers share.
package ingest

// Result holds the outcome of a history import.
type Result struct {
	SessionsReceived int   `json:"sessions_received"`
	ExercisesSkipped int   `json:"exercises_skipped,omitempty"`
	WarmupsDropped   int   `json:"warmups_dropped"`
	SetsReceived     int   `json:"sets_received"`
	SetsInserted     int64 `json:"sets_inserted"`
	SetsSkipped      int64 `json:"sets_skipped"`
}
