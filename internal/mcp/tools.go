package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/claude/liftlog/internal/client"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List all workouts (id, name, description, created time), newest first."),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get a workout with its exercises in order and, for each exercise, its sets (id, weightKg, reps, done) in logged order."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout id (the seeded demo workout is 'active')")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the exercise library ordered by name."),
)

var toolListWorkoutExercises = mcp.NewTool("list_workout_exercises",
	mcp.WithDescription("List the exercises composed into a workout with their sort order."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout id")),
)

var toolAddExerciseToWorkout = mcp.NewTool("add_exercise_to_workout",
	mcp.WithDescription("Append a library exercise to the end of a workout. Adding an exercise that is already part of the workout moves it to the end."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout id")),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise id from list_exercises")),
)

var toolLogSet = mcp.NewTool("log_set",
	mcp.WithDescription("Log a new set for an exercise of a workout. The set is appended after existing sets and starts not done."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout id")),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise id")),
	mcp.WithNumber("weight_kg", mcp.Required(), mcp.Description("Weight in kilograms")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Repetitions (whole number)")),
)

var toolUpdateSet = mcp.NewTool("update_set",
	mcp.WithDescription("Update any subset of weight, reps and done on a logged set. Omitted fields are left unchanged; at least one is required."),
	mcp.WithString("set_id", mcp.Required(), mcp.Description("Set id from get_workout")),
	mcp.WithNumber("weight_kg", mcp.Description("New weight in kilograms")),
	mcp.WithNumber("reps", mcp.Description("New repetitions (whole number)")),
	mcp.WithBoolean("done", mcp.Description("Whether the set is completed")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workouts, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		return h.failed("list_workouts", err), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	detail, err := h.ds.GetWorkoutDetail(ctx, workoutID)
	if err != nil {
		return h.failed("get_workout", err), nil
	}
	return jsonResult(detail)
}

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.ListExercises(ctx)
	if err != nil {
		return h.failed("list_exercises", err), nil
	}
	return jsonResult(exercises)
}

func (h *handlers) listWorkoutExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	items, err := h.ds.ListWorkoutExercises(ctx, workoutID)
	if err != nil {
		return h.failed("list_workout_exercises", err), nil
	}
	return jsonResult(items)
}

func (h *handlers) addExerciseToWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}

	if err := h.ds.AddWorkoutExercise(ctx, workoutID, exerciseID); err != nil {
		return h.failed("add_exercise_to_workout", err), nil
	}
	return jsonResult(map[string]bool{"ok": true})
}

func (h *handlers) logSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workoutID, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	weight, err := req.RequireFloat("weight_kg")
	if err != nil || !models.IsFinite(weight) {
		return mcp.NewToolResultError("weight_kg must be a number"), nil
	}
	repsF, err := req.RequireFloat("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	reps, err := models.WholeNumber(repsF)
	if err != nil {
		return mcp.NewToolResultError("reps must be a whole number"), nil
	}

	set, err := h.ds.AppendSet(ctx, workoutID, models.NewSet{ExerciseID: exerciseID, WeightKg: weight, Reps: reps})
	if err != nil {
		return h.failed("log_set", err), nil
	}
	return jsonResult(set)
}

func (h *handlers) updateSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	setID, err := req.RequireString("set_id")
	if err != nil {
		return mcp.NewToolResultError("set_id parameter is required"), nil
	}

	args := req.GetArguments()
	var patch models.SetPatch
	if _, ok := args["weight_kg"]; ok {
		w, err := req.RequireFloat("weight_kg")
		if err != nil {
			return mcp.NewToolResultError("weight_kg must be a number"), nil
		}
		patch.WeightKg = &w
	}
	if _, ok := args["reps"]; ok {
		f, err := req.RequireFloat("reps")
		if err != nil {
			return mcp.NewToolResultError("reps must be a number"), nil
		}
		reps, err := models.WholeNumber(f)
		if err != nil {
			return mcp.NewToolResultError("reps must be a whole number"), nil
		}
		patch.Reps = &reps
	}
	if _, ok := args["done"]; ok {
		done, err := req.RequireBool("done")
		if err != nil {
			return mcp.NewToolResultError("done must be a boolean"), nil
		}
		patch.Done = &done
	}
	if patch.Empty() {
		return mcp.NewToolResultError("provide at least one of weight_kg, reps, done"), nil
	}

	if err := h.ds.PatchSet(ctx, setID, patch); err != nil {
		return h.failed("update_set", err), nil
	}
	return jsonResult(map[string]bool{"ok": true})
}

// failed turns a data source error into a tool error. Not-found errors from
// either backend get a short message; anything else is logged.
func (h *handlers) failed(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, storage.ErrWorkoutNotFound):
		return mcp.NewToolResultError("workout not found")
	case errors.Is(err, storage.ErrExerciseNotFound):
		return mcp.NewToolResultError("exercise not found")
	case errors.Is(err, storage.ErrSetNotFound):
		return mcp.NewToolResultError("set not found")
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case client.IsNotFound(err) && apiErr.Code != "":
			// workout_not_found reads as "workout not found", like the local errors.
			return mcp.NewToolResultError(strings.ReplaceAll(apiErr.Code, "_", " "))
		case apiErr.Status < 500:
			return mcp.NewToolResultError("request rejected: " + apiErr.Code)
		}
	}
	h.log.Error("mcp "+tool, "error", err)
	return mcp.NewToolResultError("query failed: " + err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
