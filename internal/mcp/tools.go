package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workoutlog"
)

// --- Tool definitions ---

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Retrieve a scheduled session: name, date, start/end time, the ordered exercises with their planned sets/reps/weight/rest, and the participants."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetSessionSets = mcp.NewTool("get_session_sets",
	mcp.WithDescription("List the sets persisted for a session. Each set carries its session exercise, participant, set number, reps, weight in lbs, and optional RPE and notes."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("A participant's prior sets on a catalog exercise, most recent session first and ascending set number within a session."),
	mcp.WithString("participant_id", mcp.Required(), mcp.Description("Participant UUID")),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Catalog exercise UUID")),
)

var toolPreviewPrefill = mcp.NewTool("preview_prefill",
	mcp.WithDescription("Show the sets that would be pre-filled when a participant starts an exercise in a session: the reps and weight of each set from their most recent prior session of that exercise."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
	mcp.WithString("session_exercise_id", mcp.Required(), mcp.Description("Session exercise UUID")),
	mcp.WithString("participant_id", mcp.Required(), mcp.Description("Participant UUID")),
)

// --- Helpers ---

func requireUUID(req mcp.CallToolRequest, name string) (uuid.UUID, *mcp.CallToolResult) {
	s, err := req.RequireString(name)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(name + " parameter is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return id, nil
}

func (h *handlers) queryFailed(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, models.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

// --- Handlers ---

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireUUID(req, "session_id")
	if bad != nil {
		return bad, nil
	}

	sess, err := h.ds.GetSession(ctx, id)
	if err != nil {
		return h.queryFailed("get_session", err), nil
	}
	sess.SortExercises()
	return jsonResult(sess), nil
}

func (h *handlers) getSessionSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireUUID(req, "session_id")
	if bad != nil {
		return bad, nil
	}

	logs, err := h.ds.QuerySessionSetLogs(ctx, id)
	if err != nil {
		return h.queryFailed("get_session_sets", err), nil
	}
	if logs == nil {
		logs = []models.SetLogEntry{}
	}
	return jsonResult(logs), nil
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	participantID, bad := requireUUID(req, "participant_id")
	if bad != nil {
		return bad, nil
	}
	exerciseID, bad := requireUUID(req, "exercise_id")
	if bad != nil {
		return bad, nil
	}

	records, err := h.ds.QueryHistory(ctx, participantID, exerciseID)
	if err != nil {
		return h.queryFailed("get_exercise_history", err), nil
	}
	workoutlog.SortHistory(records)
	if records == nil {
		records = []models.HistoryRecord{}
	}
	return jsonResult(records), nil
}

// prefillPreview is the preview_prefill result.
type prefillPreview struct {
	Exercise    string               `json:"exercise"`
	Participant string               `json:"participant"`
	Sets        []models.SetLogEntry `json:"sets"`
}

func (h *handlers) previewPrefill(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, bad := requireUUID(req, "session_id")
	if bad != nil {
		return bad, nil
	}
	pair := workoutlog.Pair{}
	if pair.SessionExerciseID, bad = requireUUID(req, "session_exercise_id"); bad != nil {
		return bad, nil
	}
	if pair.ParticipantID, bad = requireUUID(req, "participant_id"); bad != nil {
		return bad, nil
	}

	sess, err := h.ds.GetSession(ctx, sessionID)
	if err != nil {
		return h.queryFailed("preview_prefill", err), nil
	}
	ex, ok := sess.Exercise(pair.SessionExerciseID)
	if !ok {
		return mcp.NewToolResultError("session exercise is not part of this session"), nil
	}
	p, ok := sess.Participant(pair.ParticipantID)
	if !ok {
		return mcp.NewToolResultError("participant is not part of this session"), nil
	}

	records, err := h.ds.QueryHistory(ctx, pair.ParticipantID, ex.ExerciseID)
	if err != nil {
		return h.queryFailed("preview_prefill", err), nil
	}
	workoutlog.SortHistory(records)

	sets := workoutlog.Prefill(records, pair)
	if sets == nil {
		sets = []models.SetLogEntry{}
	}
	return jsonResult(prefillPreview{Exercise: ex.Name, Participant: p.DisplayName, Sets: sets}), nil
}
