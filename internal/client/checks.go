package client

import (
	"github.com/claude/setlog/internal/mcp"
	"github.com/claude/setlog/internal/workoutlog"
)

// Compile-time checks: Client satisfies the engine's collaborators and the MCP data source.
var (
	_ workoutlog.SessionLoader    = (*Client)(nil)
	_ workoutlog.SetLogLoader     = (*Client)(nil)
	_ workoutlog.HistoryService   = (*Client)(nil)
	_ workoutlog.SetSaver         = (*Client)(nil)
	_ workoutlog.BulkSaver        = (*Client)(nil)
	_ workoutlog.SessionFinalizer = (*Client)(nil)
	_ mcp.DataSource              = (*Client)(nil)
)
