package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

type testEnv struct {
	srv *Server
	db  *storage.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "server.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if err := storage.RunMigrations(storage.DriverSQLite, dsn); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	db, err := storage.New(context.Background(), storage.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{srv: New(db, metrics.NewTestManager(), log), db: db}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rec)["error"]
}

// seed creates workout w with exercises in composition order and returns their ids.
func (e *testEnv) seed(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	ctx := context.Background()
	w, err := e.db.CreateWorkout(ctx, "w1", nil)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, n := range names {
		ex, err := e.db.CreateExercise(ctx, n)
		if err != nil {
			t.Fatal(err)
		}
		if err := e.db.AddWorkoutExercise(ctx, w.ID, ex.ID); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, ex.ID)
	}
	return w.ID, ids
}

// TestAppendAndAggregate covers the append scenario over HTTP: two sets on
// e1 come back from the workout endpoint in logged order.
func TestAppendAndAggregate(t *testing.T) {
	env := newTestEnv(t)
	w, ex := env.seed(t, "Bench", "Dip")

	rec := env.do(t, http.MethodPost, "/api/workouts/"+w+"/sets",
		`{"exerciseId":"`+ex[0]+`","weightKg":80,"reps":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body)
	}
	created := decodeBody[models.Set](t, rec)
	if created.ID == "" || created.WeightKg != 80 || created.Reps != 5 || created.Done {
		t.Errorf("created = %+v, want {id 80 5 false}", created)
	}

	rec = env.do(t, http.MethodPost, "/api/workouts/"+w+"/sets",
		`{"exerciseId":"`+ex[0]+`","weightKg":82.5,"reps":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second append status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/workouts/"+w, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	detail := decodeBody[models.WorkoutDetail](t, rec)
	if len(detail.Exercises) != 2 {
		t.Fatalf("got %d exercises, want 2", len(detail.Exercises))
	}
	sets := detail.Exercises[0].Sets
	if len(sets) != 2 || sets[0].WeightKg != 80 || sets[1].WeightKg != 82.5 {
		t.Errorf("sets = %+v, want weights [80 82.5]", sets)
	}
}

// TestGetWorkoutEmptySetsSerializeAsArray verifies an exercise with no sets
// is rendered as [] rather than null.
func TestGetWorkoutEmptySetsSerializeAsArray(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.seed(t, "Plank")

	rec := env.do(t, http.MethodGet, "/api/workouts/"+w, "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"sets":[]`)) {
		t.Errorf("body = %s, want empty sets array", rec.Body)
	}
}

func TestAppendSetValidation(t *testing.T) {
	env := newTestEnv(t)
	w, ex := env.seed(t, "Bench")

	tests := []struct {
		name string
		body string
	}{
		{"missing weight", `{"exerciseId":"` + ex[0] + `","reps":5}`},
		{"missing reps", `{"exerciseId":"` + ex[0] + `","weightKg":5}`},
		{"missing exercise", `{"weightKg":5,"reps":5}`},
		{"string weight", `{"exerciseId":"` + ex[0] + `","weightKg":"heavy","reps":5}`},
		{"fractional reps", `{"exerciseId":"` + ex[0] + `","weightKg":5,"reps":5.5}`},
		{"huge reps", `{"exerciseId":"` + ex[0] + `","weightKg":5,"reps":1e20}`},
		{"not an object", `[1,2]`},
		{"malformed", `{"exerciseId":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/workouts/"+w+"/sets", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if code := errorCode(t, rec); code != "invalid_body" {
				t.Errorf("error = %q, want invalid_body", code)
			}
		})
	}
}

func TestAppendSetUnknownWorkout(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/workouts/nope/sets", `{"exerciseId":"e","weightKg":1,"reps":1}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "workout_not_found" {
		t.Errorf("error = %q, want workout_not_found", code)
	}
}

func TestPatchSet(t *testing.T) {
	env := newTestEnv(t)
	w, ex := env.seed(t, "Bench")
	set, err := env.db.AppendSet(context.Background(), w, models.NewSet{ExerciseID: ex[0], WeightKg: 80, Reps: 5})
	if err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodPatch, "/api/sets/"+set.ID, `{"done":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	if !decodeBody[okResponse](t, rec).OK {
		t.Error("ok = false")
	}

	row, err := env.db.GetSet(context.Background(), set.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !row.Done || row.WeightKg != 80 || row.Reps != 5 {
		t.Errorf("row = %+v, want only done changed", row)
	}
}

func TestPatchSetErrors(t *testing.T) {
	env := newTestEnv(t)
	w, ex := env.seed(t, "Bench")
	set, _ := env.db.AppendSet(context.Background(), w, models.NewSet{ExerciseID: ex[0], WeightKg: 80, Reps: 5})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown set", "/api/sets/nope", `{"reps":3}`, http.StatusNotFound, "set_not_found"},
		{"empty object", "/api/sets/" + set.ID, `{}`, http.StatusBadRequest, "no_updates"},
		{"empty body", "/api/sets/" + set.ID, ``, http.StatusBadRequest, "no_updates"},
		{"unknown fields only", "/api/sets/" + set.ID, `{"note":"x"}`, http.StatusBadRequest, "no_updates"},
		{"wrong type", "/api/sets/" + set.ID, `{"done":"yes"}`, http.StatusBadRequest, "invalid_body"},
		{"fractional reps", "/api/sets/" + set.ID, `{"reps":2.5}`, http.StatusBadRequest, "invalid_body"},
		{"huge reps", "/api/sets/" + set.ID, `{"reps":1e20}`, http.StatusBadRequest, "invalid_body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("error = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestCompositionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	w, ex := env.seed(t, "Row", "Curl")

	// Re-adding the first exercise moves it to the end.
	rec := env.do(t, http.MethodPost, "/api/workouts/"+w+"/exercises", `{"exerciseId":"`+ex[0]+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/workouts/"+w+"/exercises", "")
	items := decodeBody[itemsResponse[models.WorkoutExercise]](t, rec).Items
	if len(items) != 2 || items[1].ID != ex[0] || items[1].SortOrder != 3 {
		t.Errorf("items = %+v, want %s last at 3", items, ex[0])
	}

	rec = env.do(t, http.MethodDelete, "/api/workouts/"+w+"/exercises/"+ex[1], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/workouts/"+w+"/exercises/"+ex[1], "")
	if rec.Code != http.StatusOK {
		t.Errorf("second remove status = %d, want 200", rec.Code)
	}
}

func TestCompositionErrors(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.seed(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing exerciseId", "/api/workouts/" + w + "/exercises", `{}`, http.StatusBadRequest, "invalid_body"},
		{"unknown exercise", "/api/workouts/" + w + "/exercises", `{"exerciseId":"nope"}`, http.StatusNotFound, "exercise_not_found"},
		{"unknown workout", "/api/workouts/nope/exercises", `{"exerciseId":"nope"}`, http.StatusNotFound, "workout_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("error = %q, want %q", code, tt.wantCode)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/api/workouts/nope/exercises", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("list unknown workout status = %d, want 404", rec.Code)
	}
}

func TestWorkoutAndExerciseCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/exercises", `{"name":"  Squat "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exercise status = %d", rec.Code)
	}
	if got := decodeBody[map[string]string](t, rec)["name"]; got != "Squat" {
		t.Errorf("exercise name = %q, want Squat", got)
	}
	rec = env.do(t, http.MethodPost, "/api/exercises", `{"name":" "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank exercise status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/workouts", `{"name":"Legs","description":"heavy"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create workout status = %d", rec.Code)
	}
	id, _ := decodeBody[map[string]any](t, rec)["id"].(string)

	rec = env.do(t, http.MethodPut, "/api/workouts/"+id, `{"name":"Legs B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodPut, "/api/workouts/nope", `{"name":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update unknown status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/workouts", "")
	list := decodeBody[itemsResponse[models.Workout]](t, rec).Items
	if len(list) != 1 || list[0].Name != "Legs B" {
		t.Errorf("list = %+v, want one workout named Legs B", list)
	}

	rec = env.do(t, http.MethodDelete, "/api/workouts/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/workouts/"+id, "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "workout_not_found" {
		t.Errorf("get deleted: status = %d", rec.Code)
	}
}

func TestHealthAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || !decodeBody[okResponse](t, rec).OK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/nothing-here", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "not_found" {
		t.Errorf("error = %q, want not_found", code)
	}
}

// TestMetricsEndpoint verifies request and domain counters are exposed.
func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w, ex := env.seed(t, "Bench")
	env.do(t, http.MethodPost, "/api/workouts/"+w+"/sets", `{"exerciseId":"`+ex[0]+`","weightKg":1,"reps":1}`)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"liftlog_test_sets_logged_total 1", "liftlog_test_requests_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
