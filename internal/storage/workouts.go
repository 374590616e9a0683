package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// ListWorkouts returns all workouts, newest first.
func (db *DB) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM workouts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	result := []models.Workout{}
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

// CreateWorkout inserts a workout with a fresh id.
func (db *DB) CreateWorkout(ctx context.Context, name string, description *string) (*models.Workout, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("workout name is required: %w", ErrInvalid)
	}
	w := models.Workout{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.insertWorkout(ctx, db.sql, w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (db *DB) insertWorkout(ctx context.Context, ex execer, w models.Workout) error {
	_, err := ex.ExecContext(ctx,
		db.q(`INSERT INTO workouts (id, name, description, created_at) VALUES (?, ?, ?, ?)`),
		w.ID, w.Name, w.Description, formatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	return nil
}

// UpdateWorkout replaces the name and description of a workout.
func (db *DB) UpdateWorkout(ctx context.Context, workoutID, name string, description *string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("workout name is required: %w", ErrInvalid)
	}
	res, err := db.sql.ExecContext(ctx,
		db.q(`UPDATE workouts SET name = ?, description = ? WHERE id = ?`),
		name, description, workoutID)
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", workoutID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", workoutID, err)
	}
	if n == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// DeleteWorkout removes a workout together with its compositions and sets.
// Deleting a missing workout is not an error.
func (db *DB) DeleteWorkout(ctx context.Context, workoutID string) error {
	_, err := db.sql.ExecContext(ctx, db.q(`DELETE FROM workouts WHERE id = ?`), workoutID)
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", workoutID, err)
	}
	return nil
}

// GetWorkout retrieves a single workout row.
func (db *DB) GetWorkout(ctx context.Context, workoutID string) (*models.Workout, error) {
	row := db.sql.QueryRowContext(ctx,
		db.q(`SELECT id, name, description, created_at FROM workouts WHERE id = ?`),
		workoutID)
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// FindWorkoutByName returns the newest workout with exactly this name.
func (db *DB) FindWorkoutByName(ctx context.Context, name string) (*models.Workout, error) {
	row := db.sql.QueryRowContext(ctx,
		db.q(`SELECT id, name, description, created_at FROM workouts WHERE name = ? ORDER BY created_at DESC LIMIT 1`),
		strings.TrimSpace(name))
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetWorkoutDetail assembles a workout with its exercises, ordered by
// composition sort order, each carrying its sets ordered by set index.
//
// The three reads are independent; under concurrent writers the result is
// not guaranteed to be a single snapshot.
func (db *DB) GetWorkoutDetail(ctx context.Context, workoutID string) (*models.WorkoutDetail, error) {
	w, err := db.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	exercises, err := db.ListWorkoutExercises(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	rows, err := db.sql.QueryContext(ctx,
		db.q(`SELECT id, exercise_id, set_index, weight_kg, reps, done
		 FROM sets
		 WHERE workout_id = ?
		 ORDER BY exercise_id ASC, set_index ASC`),
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	setsByExercise := map[string][]models.Set{}
	for rows.Next() {
		var s models.SetRow
		if err := rows.Scan(&s.ID, &s.ExerciseID, &s.SetIndex, &s.WeightKg, &s.Reps, &s.Done); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		setsByExercise[s.ExerciseID] = append(setsByExercise[s.ExerciseID], models.Set{
			ID:       s.ID,
			WeightKg: s.WeightKg,
			Reps:     s.Reps,
			Done:     s.Done,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	detail := &models.WorkoutDetail{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		CreatedAt:   w.CreatedAt,
		Exercises:   make([]models.ExerciseSets, 0, len(exercises)),
	}
	for _, e := range exercises {
		sets := setsByExercise[e.ID]
		if sets == nil {
			sets = []models.Set{}
		}
		detail.Exercises = append(detail.Exercises, models.ExerciseSets{
			ID:   e.ID,
			Name: e.Name,
			Sets: sets,
		})
	}
	return detail, nil
}

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanWorkout(row scanner) (*models.Workout, error) {
	var (
		w         models.Workout
		desc      sql.NullString
		createdAt string
	)
	if err := row.Scan(&w.ID, &w.Name, &desc, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning workout: %w", err)
	}
	if desc.Valid {
		w.Description = &desc.String
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing workout created_at: %w", err)
	}
	w.CreatedAt = t
	return &w, nil
}
