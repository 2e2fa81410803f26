package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Mapty", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Mapty workout tracker. Record running and cycling workouts at map coordinates, edit or delete them, and re-center the map on one. Distances are miles, durations minutes."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolCreateWorkout, Handler: h.createWorkout},
		server.ServerTool{Tool: toolUpdateWorkout, Handler: h.updateWorkout},
		server.ServerTool{Tool: toolDeleteWorkout, Handler: h.deleteWorkout},
		server.ServerTool{Tool: toolDeleteAllWorkouts, Handler: h.deleteAllWorkouts},
		server.ServerTool{Tool: toolFocusWorkout, Handler: h.focusWorkout},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.workoutsResource},
		server.ServerResource{Resource: resState, Handler: h.stateResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resWorkouts = mcp.NewResource(
	"mapty://workouts",
	"Workouts",
	mcp.WithResourceDescription("Every recorded workout in creation order, with derived pace or speed"),
	mcp.WithMIMEType("application/json"),
)

var resState = mcp.NewResource(
	"mapty://state",
	"UI State",
	mcp.WithResourceDescription("Map readiness, open forms, pending prompt and the current notification"),
	mcp.WithMIMEType("application/json"),
)
