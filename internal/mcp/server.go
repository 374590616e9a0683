package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("liftlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("liftlog workout logging server. Inspect workouts with their exercises and sets, compose exercises into workouts, log new sets and update logged ones. Weights are in kilograms."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolListWorkoutExercises, Handler: h.listWorkoutExercises},
		server.ServerTool{Tool: toolAddExerciseToWorkout, Handler: h.addExerciseToWorkout},
		server.ServerTool{Tool: toolLogSet, Handler: h.logSet},
		server.ServerTool{Tool: toolUpdateSet, Handler: h.updateSet},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.workouts},
		server.ServerResource{Resource: resExerciseLibrary, Handler: h.exerciseLibrary},
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
	"liftlog://workouts",
	"Workouts",
	mcp.WithResourceDescription("All workouts, newest first"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseLibrary = mcp.NewResource(
	"liftlog://exercises",
	"Exercise Library",
	mcp.WithResourceDescription("Every exercise in the library, ordered by name"),
	mcp.WithMIMEType("application/json"),
)
