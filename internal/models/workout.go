package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Workout is a workout template row.
type Workout struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Exercise is an entry in the exercise library.
type Exercise struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkoutExercise is one composition edge as seen from its workout.
type WorkoutExercise struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// Set is a logged set as exposed over the API. The set index is not part of
// the wire shape; array order encodes it.
type Set struct {
	ID       string  `json:"id"`
	WeightKg float64 `json:"weightKg"`
	Reps     int     `json:"reps"`
	Done     bool    `json:"done"`
}

// SetRow is a row of the sets table.
type SetRow struct {
	ID         string
	WorkoutID  string
	ExerciseID string
	SetIndex   int
	WeightKg   float64
	Reps       int
	Done       bool
}

// NewSet is the payload for appending a set to a workout.
type NewSet struct {
	ExerciseID string  `json:"exerciseId"`
	WeightKg   float64 `json:"weightKg"`
	Reps       int     `json:"reps"`
}

// ExerciseSets is an exercise of a workout with its sets in set-index order.
type ExerciseSets struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

// WorkoutDetail is the nested workout returned by the aggregation query.
type WorkoutDetail struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	Exercises   []ExerciseSets `json:"exercises"`
}

// SetPatch is a partial update of a set. A nil field means "no change".
type SetPatch struct {
	WeightKg *float64 `json:"weightKg,omitempty"`
	Reps     *int     `json:"reps,omitempty"`
	Done     *bool    `json:"done,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p SetPatch) Empty() bool {
	return p.WeightKg == nil && p.Reps == nil && p.Done == nil
}

// Merge returns p overlaid with the fields present in next.
func (p SetPatch) Merge(next SetPatch) SetPatch {
	if next.WeightKg != nil {
		v := *next.WeightKg
		p.WeightKg = &v
	}
	if next.Reps != nil {
		v := *next.Reps
		p.Reps = &v
	}
	if next.Done != nil {
		v := *next.Done
		p.Done = &v
	}
	return p
}

// Validate checks the present fields. Absent fields are never an error.
func (p SetPatch) Validate() error {
	if p.WeightKg != nil && !IsFinite(*p.WeightKg) {
		return fmt.Errorf("weightKg must be a finite number")
	}
	return nil
}

// UnmarshalJSON decodes the recognized keys one by one. Unknown keys and
// null values are ignored; a recognized key of the wrong type is an error.
func (p *SetPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out SetPatch
	if v, ok := present(raw, "weightKg"); ok {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("weightKg: %w", err)
		}
		out.WeightKg = &f
	}
	if v, ok := present(raw, "reps"); ok {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("reps: %w", err)
		}
		reps, err := WholeNumber(f)
		if err != nil {
			return fmt.Errorf("reps: %w", err)
		}
		out.Reps = &reps
	}
	if v, ok := present(raw, "done"); ok {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return fmt.Errorf("done: %w", err)
		}
		out.Done = &b
	}

	*p = out
	return nil
}

func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// WholeNumber converts f to an int when it has no fractional part and fits
// in 32 bits.
func WholeNumber(f float64) (int, error) {
	if !IsFinite(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%v is out of range", f)
	}
	return int(f), nil
}
