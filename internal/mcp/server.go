// Package mcp exposes sessions, logged sets and exercise history as MCP tools.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("setlog", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("setlog workout logging server. Look up scheduled sessions, the sets logged in them, a participant's history on an exercise, and the sets that would be pre-filled the next time they perform it."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetSessionSets, Handler: h.getSessionSets},
		server.ServerTool{Tool: toolGetExerciseHistory, Handler: h.getExerciseHistory},
		server.ServerTool{Tool: toolPreviewPrefill, Handler: h.previewPrefill},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}
