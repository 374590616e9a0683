package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid body")

type okResponse struct {
	OK bool `json:"ok"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.db.ListWorkouts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[models.Workout]{Items: workouts})
}

type workoutRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (req *workoutRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", errInvalidBody)
	}
	return nil
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var req workoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	workout, err := s.db.CreateWorkout(r.Context(), req.Name, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          workout.ID,
		"name":        workout.Name,
		"description": workout.Description,
	})
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	detail, err := s.db.GetWorkoutDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	var req workoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.db.UpdateWorkout(r.Context(), chi.URLParam(r, "id"), req.Name, req.Description); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteWorkout(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.db.ListExercises(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[models.Exercise]{Items: exercises})
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeCode(w, http.StatusBadRequest, "invalid_body")
		return
	}

	exercise, err := s.db.CreateExercise(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": exercise.ID, "name": exercise.Name})
}

func (s *Server) handleListWorkoutExercises(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.ListWorkoutExercises(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[models.WorkoutExercise]{Items: items})
}

func (s *Server) handleAddWorkoutExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID string `json:"exerciseId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.ExerciseID) == "" {
		writeCode(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if err := s.db.AddWorkoutExercise(r.Context(), chi.URLParam(r, "id"), req.ExerciseID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.CounterCompositionOps.WithLabelValues("add").Inc()
	writeJSON(w, http.StatusCreated, okResponse{OK: true})
}

func (s *Server) handleRemoveWorkoutExercise(w http.ResponseWriter, r *http.Request) {
	err := s.db.RemoveWorkoutExercise(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "exerciseId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.CounterCompositionOps.WithLabelValues("remove").Inc()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// appendSetRequest keeps numeric fields as pointers so a missing field can be
// told apart from zero.
type appendSetRequest struct {
	ExerciseID string   `json:"exerciseId"`
	WeightKg   *float64 `json:"weightKg"`
	Reps       *float64 `json:"reps"`
}

func (req appendSetRequest) toNewSet() (models.NewSet, error) {
	if strings.TrimSpace(req.ExerciseID) == "" || req.WeightKg == nil || req.Reps == nil {
		return models.NewSet{}, fmt.Errorf("exerciseId, weightKg and reps are required: %w", errInvalidBody)
	}
	if !models.IsFinite(*req.WeightKg) {
		return models.NewSet{}, fmt.Errorf("weightKg must be finite: %w", errInvalidBody)
	}
	reps, err := models.WholeNumber(*req.Reps)
	if err != nil {
		return models.NewSet{}, fmt.Errorf("reps: %w: %w", errInvalidBody, err)
	}
	return models.NewSet{ExerciseID: req.ExerciseID, WeightKg: *req.WeightKg, Reps: reps}, nil
}

func (s *Server) handleAppendSet(w http.ResponseWriter, r *http.Request) {
	var req appendSetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.toNewSet()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	set, err := s.db.AppendSet(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.CounterSetsLogged.Inc()
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handlePatchSet(w http.ResponseWriter, r *http.Request) {
	var patch models.SetPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.db.PatchSet(r.Context(), chi.URLParam(r, "setId"), patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.CounterSetPatches.Inc()
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// decodeJSON reads a JSON object body into v. An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading body: %w: %w", errInvalidBody, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	if data[0] != '{' {
		return fmt.Errorf("body must be a JSON object: %w", errInvalidBody)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}

// writeError maps domain errors to status codes and stable error codes.
// Unexpected errors are logged and reported as internal_error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, errInvalidBody), errors.Is(err, storage.ErrInvalid):
		status, code = http.StatusBadRequest, "invalid_body"
	case errors.Is(err, storage.ErrNoUpdates):
		status, code = http.StatusBadRequest, "no_updates"
	case errors.Is(err, storage.ErrWorkoutNotFound):
		status, code = http.StatusNotFound, "workout_not_found"
	case errors.Is(err, storage.ErrExerciseNotFound):
		status, code = http.StatusNotFound, "exercise_not_found"
	case errors.Is(err, storage.ErrSetNotFound):
		status, code = http.StatusNotFound, "set_not_found"
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.log.Debug("request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	writeCode(w, status, code)
}

func writeCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
