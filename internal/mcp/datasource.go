package mcp

import (
	"context"

	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
	"github.com/claude/setlog/internal/storage/sqlite"
)

// DataSource abstracts the data layer for MCP tools. The local repositories
// and client.Client (remote via REST API) satisfy this interface.
type DataSource interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	QuerySessionSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error)
	QueryHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error)
}

// Compile-time checks: the local repositories satisfy DataSource.
var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*sqlite.Store)(nil)
)
