package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/setlog/internal/metrics"
	"github.com/claude/setlog/internal/models"
)

// Repository is the persistence the API needs. Both storage backends satisfy it.
type Repository interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	QuerySessionSetLogs(ctx context.Context, sessionID uuid.UUID) ([]models.SetLogEntry, error)
	QueryHistory(ctx context.Context, participantID, exerciseID uuid.UUID) ([]models.HistoryRecord, error)
	UpsertSetLog(ctx context.Context, e models.SetLogEntry) error
	UpsertSetLogs(ctx context.Context, entries []models.SetLogEntry) (int, error)
	FinishSession(ctx context.Context, id uuid.UUID, endTime time.Time) error
	Ping(ctx context.Context) error
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	repo    Repository
	metrics *metrics.Metrics
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(repo Repository, m *metrics.Metrics, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		repo:    repo,
		metrics: m,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))

		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/sets", s.handleSessionSets)
		r.Post("/sessions/{id}/finish", s.handleFinishSession)
		r.Get("/history", s.handleHistory)
		r.Put("/sets", s.handleUpsertSet)
		r.Post("/sets/bulk", s.handleBulkUpsert)
	})
}
