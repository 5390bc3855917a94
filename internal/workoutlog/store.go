package workoutlog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

// Pair addresses one log bucket: a session exercise slot and a participant.
type Pair struct {
	SessionExerciseID uuid.UUID
	ParticipantID     uuid.UUID
}

func (p Pair) String() string {
	return p.SessionExerciseID.String() + "/" + p.ParticipantID.String()
}

// Field names an editable column of a SetLogEntry.
type Field int

const (
	FieldReps Field = iota
	FieldWeight
	FieldRPE
	FieldNotes
)

func (f Field) String() string {
	switch f {
	case FieldReps:
		return "reps"
	case FieldWeight:
		return "weight"
	case FieldRPE:
		return "rpe"
	case FieldNotes:
		return "notes"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField maps a column name to a Field.
func ParseField(s string) (Field, error) {
	switch s {
	case "reps", "reps_completed":
		return FieldReps, nil
	case "weight", "weight_used_lbs":
		return FieldWeight, nil
	case "rpe":
		return FieldRPE, nil
	case "notes":
		return FieldNotes, nil
	}
	return 0, fmt.Errorf("unknown field %q: %w", s, ErrValidation)
}

// SetDefaults overrides the planned targets used to seed a new set.
type SetDefaults struct {
	Reps      *int
	WeightLbs *float64
}

// Store holds the draft set logs for every exercise × participant pair of one
// session. It is the single owner of SetLogEntry data while a session is being logged.
type Store struct {
	mu sync.Mutex

	exercises    map[uuid.UUID]models.SessionExercise
	exerciseIDs  []uuid.UUID
	participants []uuid.UUID
	buckets      map[Pair][]models.SetLogEntry

	dirty    bool
	revision uint64
}

// NewStore creates an empty bucket for every pair in the session.
func NewStore(sess *models.Session) *Store {
	exercises := make([]models.SessionExercise, len(sess.Exercises))
	copy(exercises, sess.Exercises)
	sort.SliceStable(exercises, func(i, j int) bool {
		return exercises[i].OrderInSession < exercises[j].OrderInSession
	})

	s := &Store{
		exercises: make(map[uuid.UUID]models.SessionExercise, len(exercises)),
		buckets:   make(map[Pair][]models.SetLogEntry),
	}
	for _, ex := range exercises {
		s.exercises[ex.ID] = ex
		s.exerciseIDs = append(s.exerciseIDs, ex.ID)
	}
	for _, p := range sess.Participants {
		s.participants = append(s.participants, p.ID)
	}
	for _, exID := range s.exerciseIDs {
		for _, pID := range s.participants {
			s.buckets[Pair{exID, pID}] = nil
		}
	}
	return s
}

// Exercise returns the session exercise for a slot ID.
func (s *Store) Exercise(id uuid.UUID) (models.SessionExercise, bool) {
	ex, ok := s.exercises[id]
	return ex, ok
}

func (s *Store) bucket(pair Pair) ([]models.SetLogEntry, error) {
	logs, ok := s.buckets[pair]
	if !ok {
		return nil, fmt.Errorf("pair %s: %w", pair, ErrNotFound)
	}
	return logs, nil
}

// Logs returns a copy of the ordered sets for a pair. The slice is empty, not
// nil, when nothing has been logged.
func (s *Store) Logs(pair Pair) ([]models.SetLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.bucket(pair)
	if err != nil {
		return nil, err
	}
	return cloneEntries(logs), nil
}

// Entry returns a copy of the set at a 0-based index.
func (s *Store) Entry(pair Pair, index int) (models.SetLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.bucket(pair)
	if err != nil {
		return models.SetLogEntry{}, err
	}
	if index < 0 || index >= len(logs) {
		return models.SetLogEntry{}, fmt.Errorf("set index %d of %s: %w", index, pair, ErrNotFound)
	}
	return cloneEntry(logs[index]), nil
}

// AddSet appends a set numbered len+1, seeded from the exercise's planned
// targets unless defaults override them.
func (s *Store) AddSet(pair Pair, defaults SetDefaults) (models.SetLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.bucket(pair)
	if err != nil {
		return models.SetLogEntry{}, err
	}
	ex := s.exercises[pair.SessionExerciseID]

	entry := models.SetLogEntry{
		SessionExerciseID: pair.SessionExerciseID,
		ParticipantID:     pair.ParticipantID,
		SetNumber:         len(logs) + 1,
		RepsCompleted:     ex.PlannedReps,
		WeightUsedLbs:     ex.PlannedWeightLbs,
	}
	if defaults.Reps != nil {
		entry.RepsCompleted = *defaults.Reps
	}
	if defaults.WeightLbs != nil {
		entry.WeightUsedLbs = *defaults.WeightLbs
	}
	if err := entry.Validate(); err != nil {
		return models.SetLogEntry{}, fmt.Errorf("adding set: %w: %w", ErrValidation, err)
	}

	s.buckets[pair] = append(logs, entry)
	s.touch()
	return entry, nil
}

// UpdateSet changes one field of the set at a 0-based index. Reps and RPE take
// an int, weight a float64 (an int is accepted), notes a string. A nil RPE clears it.
func (s *Store) UpdateSet(pair Pair, index int, field Field, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.bucket(pair)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(logs) {
		return fmt.Errorf("set index %d of %s: %w", index, pair, ErrNotFound)
	}

	entry := logs[index]
	switch field {
	case FieldReps:
		v, ok := value.(int)
		if !ok || v < 0 {
			return fmt.Errorf("reps must be a non-negative int, got %v: %w", value, ErrValidation)
		}
		entry.RepsCompleted = v
	case FieldWeight:
		var v float64
		switch n := value.(type) {
		case float64:
			v = n
		case int:
			v = float64(n)
		default:
			return fmt.Errorf("weight must be a number, got %T: %w", value, ErrValidation)
		}
		if v < 0 {
			return fmt.Errorf("weight must be >= 0, got %v: %w", v, ErrValidation)
		}
		entry.WeightUsedLbs = v
	case FieldRPE:
		switch v := value.(type) {
		case nil:
			entry.RPE = nil
		case *int:
			if v != nil && (*v < 1 || *v > 10) {
				return fmt.Errorf("rpe must be 1-10, got %d: %w", *v, ErrValidation)
			}
			if v == nil {
				entry.RPE = nil
			} else {
				rpe := *v
				entry.RPE = &rpe
			}
		case int:
			if v < 1 || v > 10 {
				return fmt.Errorf("rpe must be 1-10, got %d: %w", v, ErrValidation)
			}
			entry.RPE = &v
		default:
			return fmt.Errorf("rpe must be an int, got %T: %w", value, ErrValidation)
		}
	case FieldNotes:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("notes must be a string, got %T: %w", value, ErrValidation)
		}
		entry.Notes = v
	default:
		return fmt.Errorf("unknown field %v: %w", field, ErrValidation)
	}

	logs[index] = entry
	s.touch()
	return nil
}

// RemoveSet deletes the set at a 0-based index and renumbers the rest.
func (s *Store) RemoveSet(pair Pair, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.bucket(pair)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(logs) {
		return fmt.Errorf("set index %d of %s: %w", index, pair, ErrNotFound)
	}

	next := make([]models.SetLogEntry, 0, len(logs)-1)
	next = append(next, logs[:index]...)
	next = append(next, logs[index+1:]...)
	renumber(next)
	s.buckets[pair] = next
	s.touch()
	return nil
}

// ReplaceAll swaps the whole bucket for entries, renumbered 1..n and keyed to pair.
func (s *Store) ReplaceAll(pair Pair, entries []models.SetLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.bucket(pair); err != nil {
		return err
	}
	next, err := rekey(pair, entries)
	if err != nil {
		return err
	}
	s.buckets[pair] = next
	s.touch()
	return nil
}

// ReplaceIfEmpty is ReplaceAll that only writes when the bucket is still
// empty. It reports whether the write happened.
func (s *Store) ReplaceIfEmpty(pair Pair, entries []models.SetLogEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.bucket(pair)
	if err != nil {
		return false, err
	}
	if len(logs) > 0 {
		return false, nil
	}
	next, err := rekey(pair, entries)
	if err != nil {
		return false, err
	}
	s.buckets[pair] = next
	s.touch()
	return true, nil
}

// Seed loads already-persisted sets without marking the store dirty. Entries
// for pairs outside the session are ignored; the count of ignored entries is returned.
func (s *Store) Seed(entries []models.SetLogEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped := make(map[Pair][]models.SetLogEntry)
	ignored := 0
	for _, e := range entries {
		pair := Pair{e.SessionExerciseID, e.ParticipantID}
		if _, ok := s.buckets[pair]; !ok {
			ignored++
			continue
		}
		grouped[pair] = append(grouped[pair], cloneEntry(e))
	}
	for pair, logs := range grouped {
		sort.SliceStable(logs, func(i, j int) bool {
			return logs[i].SetNumber < logs[j].SetNumber
		})
		renumber(logs)
		s.buckets[pair] = logs
	}
	return ignored
}

// Snapshot flattens every bucket in session order (exercise position, then
// participant position, then set number) and returns the current revision.
func (s *Store) Snapshot() ([]models.SetLogEntry, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SetLogEntry
	for _, exID := range s.exerciseIDs {
		for _, pID := range s.participants {
			out = append(out, cloneEntries(s.buckets[Pair{exID, pID}])...)
		}
	}
	return out, s.revision
}

// MarkClean clears the dirty flag if nothing changed since revision was taken.
func (s *Store) MarkClean(revision uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revision != revision {
		return false
	}
	s.dirty = false
	return true
}

// Dirty reports whether there are mutations not yet confirmed by a bulk save.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Revision returns the mutation counter.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *Store) touch() {
	s.dirty = true
	s.revision++
}

func rekey(pair Pair, entries []models.SetLogEntry) ([]models.SetLogEntry, error) {
	next := make([]models.SetLogEntry, len(entries))
	for i, e := range entries {
		e = cloneEntry(e)
		e.SessionExerciseID = pair.SessionExerciseID
		e.ParticipantID = pair.ParticipantID
		e.SetNumber = i + 1
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("set %d: %w: %w", i+1, ErrValidation, err)
		}
		next[i] = e
	}
	return next, nil
}

func renumber(logs []models.SetLogEntry) {
	for i := range logs {
		logs[i].SetNumber = i + 1
	}
}

func cloneEntry(e models.SetLogEntry) models.SetLogEntry {
	if e.RPE != nil {
		rpe := *e.RPE
		e.RPE = &rpe
	}
	return e
}

func cloneEntries(logs []models.SetLogEntry) []models.SetLogEntry {
	out := make([]models.SetLogEntry, len(logs))
	for i, e := range logs {
		out[i] = cloneEntry(e)
	}
	return out
}
