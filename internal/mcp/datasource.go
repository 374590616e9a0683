package mcp

import (
	"context"

	"github.com/claude/liftlog/internal/client"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and *client.Client (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]models.Workout, error)
	GetWorkoutDetail(ctx context.Context, workoutID string) (*models.WorkoutDetail, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	ListWorkoutExercises(ctx context.Context, workoutID string) ([]models.WorkoutExercise, error)
	AddWorkoutExercise(ctx context.Context, workoutID, exerciseID string) error
	AppendSet(ctx context.Context, workoutID string, in models.NewSet) (*models.Set, error)
	PatchSet(ctx context.Context, setID string, patch models.SetPatch) error
}

// Compile-time checks: both the database and the REST client satisfy DataSource.
var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*client.Client)(nil)
)
