// Package fixture creates scheduled sessions from YAML files. It stands in for
// the scheduling flow that normally creates sessions.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/claude/setlog/internal/models"
)

// Fixture is the YAML shape of a session.
type Fixture struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Date         string        `yaml:"date"`
	Exercises    []Exercise    `yaml:"exercises"`
	Participants []Participant `yaml:"participants"`
}

// Exercise is one slot of the session, in listed order.
type Exercise struct {
	Name        string  `yaml:"name"`
	Sets        int     `yaml:"sets"`
	Reps        int     `yaml:"reps"`
	WeightLbs   float64 `yaml:"weight_lbs"`
	RestSeconds int     `yaml:"rest_seconds"`
}

type Participant struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Writer is the storage a fixture import needs.
type Writer interface {
	EnsureExercise(ctx context.Context, name string) (uuid.UUID, error)
	EnsureParticipant(ctx context.Context, p models.Participant) error
	CreateSession(ctx context.Context, s *models.Session) error
}

// Decode reads and validates a fixture.
func Decode(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// validate reports every problem at once.
func (f *Fixture) validate() error {
	var errs error
	if strings.TrimSpace(f.Name) == "" {
		errs = multierr.Append(errs, errors.New("name is required"))
	}
	if _, err := time.Parse(time.DateOnly, f.Date); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("date must be YYYY-MM-DD: %w", err))
	}
	if f.ID != "" {
		if _, err := uuid.Parse(f.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("id: %w", err))
		}
	}
	if len(f.Exercises) == 0 {
		errs = multierr.Append(errs, errors.New("at least one exercise is required"))
	}
	for i, ex := range f.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			errs = multierr.Append(errs, fmt.Errorf("exercises[%d]: name is required", i))
		}
		if ex.Sets < 0 || ex.Reps < 0 || ex.WeightLbs < 0 || ex.RestSeconds < 0 {
			errs = multierr.Append(errs, fmt.Errorf("exercises[%d]: planned values must be >= 0", i))
		}
	}
	if len(f.Participants) == 0 {
		errs = multierr.Append(errs, errors.New("at least one participant is required"))
	}
	for i, p := range f.Participants {
		if strings.TrimSpace(p.Name) == "" {
			errs = multierr.Append(errs, fmt.Errorf("participants[%d]: name is required", i))
		}
		if p.ID != "" {
			if _, err := uuid.Parse(p.ID); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("participants[%d].id: %w", i, err))
			}
		}
	}
	return errs
}

// Import creates the fixture's catalog exercises, participants and session.
// Missing IDs are generated.
func Import(ctx context.Context, w Writer, f *Fixture) (*models.Session, error) {
	date, _ := time.Parse(time.DateOnly, f.Date)
	sess := &models.Session{
		ID:   uuid.New(),
		Name: f.Name,
		Date: date,
	}
	if f.ID != "" {
		sess.ID = uuid.MustParse(f.ID)
	}

	for i, ex := range f.Exercises {
		exerciseID, err := w.EnsureExercise(ctx, ex.Name)
		if err != nil {
			return nil, fmt.Errorf("exercise %q: %w", ex.Name, err)
		}
		sess.Exercises = append(sess.Exercises, models.SessionExercise{
			ID:               uuid.New(),
			SessionID:        sess.ID,
			ExerciseID:       exerciseID,
			Name:             ex.Name,
			OrderInSession:   i + 1,
			PlannedSets:      ex.Sets,
			PlannedReps:      ex.Reps,
			PlannedWeightLbs: ex.WeightLbs,
			RestSeconds:      ex.RestSeconds,
		})
	}

	for _, fp := range f.Participants {
		p := models.Participant{ID: uuid.New(), DisplayName: fp.Name, Email: fp.Email}
		if fp.ID != "" {
			p.ID = uuid.MustParse(fp.ID)
		}
		if err := w.EnsureParticipant(ctx, p); err != nil {
			return nil, fmt.Errorf("participant %q: %w", fp.Name, err)
		}
		sess.Participants = append(sess.Participants, p)
	}

	if err := w.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}
