package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/setlog/internal/models"
)

const maxBodyBytes = 10 << 20

// FinishRequest is the body of POST /sessions/{id}/finish. A zero EndTime
// means now.
type FinishRequest struct {
	EndTime time.Time `json:"end_time"`
}

// BulkRequest is the body of POST /sets/bulk.
type BulkRequest struct {
	Entries []models.SetLogEntry `json:"entries"`
}

// SaveResponse reports how many sets were written.
type SaveResponse struct {
	Saved int `json:"saved"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.repo.GetSession(r.Context(), id)
	if err != nil {
		s.writeRepoError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionSets(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if _, err := s.repo.GetSession(r.Context(), id); err != nil {
		s.writeRepoError(w, "get session", err)
		return
	}
	logs, err := s.repo.QuerySessionSetLogs(r.Context(), id)
	if err != nil {
		s.writeRepoError(w, "query set logs", err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req FinishRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.EndTime.IsZero() {
		req.EndTime = time.Now().UTC()
	}

	if err := s.repo.FinishSession(r.Context(), id, req.EndTime); err != nil {
		s.writeRepoError(w, "finish session", err)
		return
	}
	s.log.Info("session finished", "session_id", id, "end_time", req.EndTime)
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "end_time": req.EndTime})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	participantID, err := uuid.Parse(r.URL.Query().Get("participant_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid participant_id")
		return
	}
	exerciseID, err := uuid.Parse(r.URL.Query().Get("exercise_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exercise_id")
		return
	}

	records, err := s.repo.QueryHistory(r.Context(), participantID, exerciseID)
	if err != nil {
		s.writeRepoError(w, "query history", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUpsertSet(w http.ResponseWriter, r *http.Request) {
	var entry models.SetLogEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := entry.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.UpsertSetLog(r.Context(), entry); err != nil {
		s.writeRepoError(w, "upsert set", err)
		return
	}
	s.metrics.SetsUpserted.WithLabelValues("single").Inc()
	writeJSON(w, http.StatusOK, SaveResponse{Saved: 1})
}

func (s *Server) handleBulkUpsert(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	for i, e := range req.Entries {
		if err := e.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("entries[%d]: %v", i, err))
			return
		}
	}

	n, err := s.repo.UpsertSetLogs(r.Context(), req.Entries)
	if err != nil {
		s.writeRepoError(w, "bulk upsert", err)
		return
	}
	s.metrics.BulkBatchSize.Observe(float64(len(req.Entries)))
	s.metrics.SetsUpserted.WithLabelValues("bulk").Add(float64(n))
	writeJSON(w, http.StatusOK, SaveResponse{Saved: n})
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeRepoError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
