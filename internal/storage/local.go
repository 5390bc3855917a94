package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workoutlog"
)

// Local serves a Repository under the engine's collaborator names, so an
// engine can log straight into a database without going through the API.
type Local struct {
	Repository
}

var (
	_ workoutlog.SessionLoader    = Local{}
	_ workoutlog.SetLogLoader     = Local{}
	_ workoutlog.HistoryService   = Local{}
	_ workoutlog.SetSaver         = Local{}
	_ workoutlog.BulkSaver        = Local{}
	_ workoutlog.SessionFinalizer = Local{}
)

func (l Local) LoadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return l.GetSession(ctx, id)
}

func (l Local) LoadSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error) {
	return l.QuerySessionSetLogs(ctx, sessionID)
}

func (l Local) FetchHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error) {
	return l.QueryHistory(ctx, participantID, exerciseID)
}

func (l Local) SaveSet(ctx context.Context, e models.SetLogEntry) error {
	return l.UpsertSetLog(ctx, e)
}

func (l Local) SaveSets(ctx context.Context, entries []models.SetLogEntry) error {
	_, err := l.UpsertSetLogs(ctx, entries)
	return err
}

// Deps wires every engine collaborator to the repository.
func (l Local) Deps() workoutlog.Deps {
	return workoutlog.Deps{Sessions: l, Drafts: l, History: l, Sets: l, Bulk: l, Finalizer: l}
}
