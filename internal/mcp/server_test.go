package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/liftlog/internal/client"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// fakeSource is an in-memory DataSource that records writes.
type fakeSource struct {
	detail  *models.WorkoutDetail
	appends []models.NewSet
	patches map[string]models.SetPatch
	added   [][2]string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		detail: &models.WorkoutDetail{
			ID:   "w1",
			Name: "Push",
			Exercises: []models.ExerciseSets{
				{ID: "e1", Name: "Bench Press", Sets: []models.Set{{ID: "s1", WeightKg: 80, Reps: 5}}},
			},
		},
		patches: map[string]models.SetPatch{},
	}
}

func (f *fakeSource) ListWorkouts(context.Context) ([]models.Workout, error) {
	return []models.Workout{{ID: "w1", Name: "Push"}}, nil
}

func (f *fakeSource) GetWorkoutDetail(_ context.Context, id string) (*models.WorkoutDetail, error) {
	if id != f.detail.ID {
		return nil, storage.ErrWorkoutNotFound
	}
	return f.detail, nil
}

func (f *fakeSource) ListExercises(context.Context) ([]models.Exercise, error) {
	return []models.Exercise{{ID: "e1", Name: "Bench Press"}}, nil
}

func (f *fakeSource) ListWorkoutExercises(_ context.Context, id string) ([]models.WorkoutExercise, error) {
	if id != f.detail.ID {
		return nil, storage.ErrWorkoutNotFound
	}
	return []models.WorkoutExercise{{ID: "e1", Name: "Bench Press", SortOrder: 1}}, nil
}

func (f *fakeSource) AddWorkoutExercise(_ context.Context, workoutID, exerciseID string) error {
	if exerciseID != "e1" {
		return storage.ErrExerciseNotFound
	}
	f.added = append(f.added, [2]string{workoutID, exerciseID})
	return nil
}

func (f *fakeSource) AppendSet(_ context.Context, workoutID string, in models.NewSet) (*models.Set, error) {
	if workoutID != f.detail.ID {
		return nil, storage.ErrWorkoutNotFound
	}
	f.appends = append(f.appends, in)
	return &models.Set{ID: "s2", WeightKg: in.WeightKg, Reps: in.Reps}, nil
}

func (f *fakeSource) PatchSet(_ context.Context, setID string, patch models.SetPatch) error {
	if setID != "s1" {
		return storage.ErrSetNotFound
	}
	f.patches[setID] = patch
	return nil
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestGetWorkout verifies the workout detail is returned as JSON.
func TestGetWorkout(t *testing.T) {
	h := newHandlers(newFakeSource())
	res, err := h.getWorkout(context.Background(), call("get_workout", map[string]any{"workout_id": "w1"}))
	if err != nil {
		t.Fatalf("getWorkout: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var detail models.WorkoutDetail
	if err := json.Unmarshal([]byte(resultText(t, res)), &detail); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(detail.Exercises) != 1 || detail.Exercises[0].Sets[0].WeightKg != 80 {
		t.Errorf("detail = %+v, want one exercise with an 80kg set", detail)
	}
}

// TestGetWorkoutErrors verifies missing arguments and unknown workouts become
// tool errors rather than protocol errors.
func TestGetWorkoutErrors(t *testing.T) {
	h := newHandlers(newFakeSource())
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing id", map[string]any{}, "workout_id parameter is required"},
		{"unknown", map[string]any{"workout_id": "nope"}, "workout not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.getWorkout(context.Background(), call("get_workout", tt.args))
			if err != nil {
				t.Fatalf("getWorkout: %v", err)
			}
			if !res.IsError {
				t.Fatal("IsError = false, want true")
			}
			if got := resultText(t, res); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestLogSet verifies arguments are converted into a NewSet.
func TestLogSet(t *testing.T) {
	src := newFakeSource()
	h := newHandlers(src)
	res, err := h.logSet(context.Background(), call("log_set", map[string]any{
		"workout_id":  "w1",
		"exercise_id": "e1",
		"weight_kg":   82.5,
		"reps":        float64(5),
	}))
	if err != nil {
		t.Fatalf("logSet: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if len(src.appends) != 1 {
		t.Fatalf("appends = %d, want 1", len(src.appends))
	}
	got := src.appends[0]
	if got.ExerciseID != "e1" || got.WeightKg != 82.5 || got.Reps != 5 {
		t.Errorf("append = %+v, want e1 82.5x5", got)
	}
}

// TestLogSetFractionalReps verifies reps must be a whole number.
func TestLogSetFractionalReps(t *testing.T) {
	src := newFakeSource()
	h := newHandlers(src)
	res, _ := h.logSet(context.Background(), call("log_set", map[string]any{
		"workout_id":  "w1",
		"exercise_id": "e1",
		"weight_kg":   80.0,
		"reps":        5.5,
	}))
	if !res.IsError {
		t.Error("IsError = false, want true")
	}
	if len(src.appends) != 0 {
		t.Errorf("appends = %d, want 0", len(src.appends))
	}
}

// TestUpdateSetPartial verifies only provided fields end up in the patch.
func TestUpdateSetPartial(t *testing.T) {
	src := newFakeSource()
	h := newHandlers(src)
	res, err := h.updateSet(context.Background(), call("update_set", map[string]any{
		"set_id": "s1",
		"done":   true,
	}))
	if err != nil {
		t.Fatalf("updateSet: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	p := src.patches["s1"]
	if p.Done == nil || !*p.Done {
		t.Errorf("patch.Done = %v, want true", p.Done)
	}
	if p.WeightKg != nil || p.Reps != nil {
		t.Errorf("patch = %+v, want only done", p)
	}
}

// TestUpdateSetErrors covers empty patches and unknown sets.
func TestUpdateSetErrors(t *testing.T) {
	h := newHandlers(newFakeSource())
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no fields", map[string]any{"set_id": "s1"}, "provide at least one of weight_kg, reps, done"},
		{"unknown set", map[string]any{"set_id": "s9", "reps": float64(3)}, "set not found"},
		{"bad reps", map[string]any{"set_id": "s1", "reps": 2.5}, "reps must be a whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.updateSet(context.Background(), call("update_set", tt.args))
			if err != nil {
				t.Fatalf("updateSet: %v", err)
			}
			if !res.IsError {
				t.Fatal("IsError = false, want true")
			}
			if got := resultText(t, res); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestAddExerciseToWorkout verifies composition calls reach the data source.
func TestAddExerciseToWorkout(t *testing.T) {
	src := newFakeSource()
	h := newHandlers(src)

	res, _ := h.addExerciseToWorkout(context.Background(), call("add_exercise_to_workout", map[string]any{
		"workout_id": "w1", "exercise_id": "e1",
	}))
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if len(src.added) != 1 || src.added[0] != [2]string{"w1", "e1"} {
		t.Errorf("added = %v, want [[w1 e1]]", src.added)
	}

	res, _ = h.addExerciseToWorkout(context.Background(), call("add_exercise_to_workout", map[string]any{
		"workout_id": "w1", "exercise_id": "e9",
	}))
	if got := resultText(t, res); !res.IsError || got != "exercise not found" {
		t.Errorf("unknown exercise: IsError=%v text=%q", res.IsError, got)
	}
}

// TestExerciseLibraryResource verifies the resource is served as JSON text.
func TestExerciseLibraryResource(t *testing.T) {
	h := newHandlers(newFakeSource())
	var req mcp.ReadResourceRequest
	req.Params.URI = "liftlog://exercises"

	contents, err := h.exerciseLibrary(context.Background(), req)
	if err != nil {
		t.Fatalf("exerciseLibrary: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T, want TextResourceContents", contents[0])
	}
	if text.URI != "liftlog://exercises" || !strings.Contains(text.Text, "Bench Press") {
		t.Errorf("resource = %+v", text)
	}
}

// remoteSource reports every set update as rejected by a remote server.
type remoteSource struct {
	*fakeSource
	err error
}

func (r remoteSource) PatchSet(context.Context, string, models.SetPatch) error {
	return r.err
}

// TestRemoteErrors verifies API errors from a remote server map to the same
// tool errors as local ones.
func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &client.APIError{Status: 404, Code: "set_not_found"}, "set not found"},
		{"rejected", &client.APIError{Status: 400, Code: "no_updates"}, "request rejected: no_updates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandlers(remoteSource{fakeSource: newFakeSource(), err: tt.err})
			res, err := h.updateSet(context.Background(), call("update_set", map[string]any{
				"set_id": "s1", "done": true,
			}))
			if err != nil {
				t.Fatalf("updateSet: %v", err)
			}
			if got := resultText(t, res); !res.IsError || got != tt.want {
				t.Errorf("IsError=%v text=%q, want %q", res.IsError, got, tt.want)
			}
		})
	}
}
