package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/truereps/internal/calibration"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, eng *calibration.Engine, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("TrueReps", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("TrueReps effort calibration server. Query per-exercise RIR calibration state, adjusted rep-in-reserve targets, and set history. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, eng: eng, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetAdjustedTarget, Handler: h.getAdjustedTarget},
		server.ServerTool{Tool: toolGetCalibrationStatus, Handler: h.getCalibrationStatus},
		server.ServerTool{Tool: toolListCalibrations, Handler: h.listCalibrations},
		server.ServerTool{Tool: toolGetSetHistory, Handler: h.getSetHistory},
		server.ServerTool{Tool: toolGetCalibrationHistory, Handler: h.getCalibrationHistory},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resCalibrationSummary, Handler: h.calibrationSummary},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	eng *calibration.Engine
	log *slog.Logger
}

// --- Resource definitions ---

var resCalibrationSummary = mcp.NewResource(
	"truereps://calibration_summary",
	"Calibration Summary",
	mcp.WithResourceDescription("Current calibration state for every tracked exercise: smoothed bias, interpretation, confidence, and data point counts"),
	mcp.WithMIMEType("application/json"),
)
