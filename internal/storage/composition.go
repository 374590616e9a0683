package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// ListWorkoutExercises returns the exercises composed into a workout in
// ascending sort order. Sort orders may have gaps.
func (db *DB) ListWorkoutExercises(ctx context.Context, workoutID string) ([]models.WorkoutExercise, error) {
	ok, err := db.workoutExists(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWorkoutNotFound
	}

	rows, err := db.sql.QueryContext(ctx,
		db.q(`SELECT e.id, e.name, we.sort_order
		 FROM workout_exercises we
		 JOIN exercises e ON e.id = we.exercise_id
		 WHERE we.workout_id = ?
		 ORDER BY we.sort_order ASC`),
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout exercises: %w", err)
	}
	defer rows.Close()

	result := []models.WorkoutExercise{}
	for rows.Next() {
		var e models.WorkoutExercise
		if err := rows.Scan(&e.ID, &e.Name, &e.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning workout exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// AddWorkoutExercise composes an exercise into a workout at max(sort_order)+1.
//
// The edge is upserted: re-adding an exercise that is already composed moves
// it to the end instead of leaving it in place.
func (db *DB) AddWorkoutExercise(ctx context.Context, workoutID, exerciseID string) error {
	return db.addWorkoutExercise(ctx, db.sql, workoutID, exerciseID)
}

func (db *DB) addWorkoutExercise(ctx context.Context, tx queryExecer, workoutID, exerciseID string) error {
	ok, err := db.rowExists(ctx, tx, `SELECT 1 FROM workouts WHERE id = ?`, workoutID)
	if err != nil {
		return fmt.Errorf("checking workout %s: %w", workoutID, err)
	}
	if !ok {
		return ErrWorkoutNotFound
	}
	ok, err = db.rowExists(ctx, tx, `SELECT 1 FROM exercises WHERE id = ?`, exerciseID)
	if err != nil {
		return fmt.Errorf("checking exercise %s: %w", exerciseID, err)
	}
	if !ok {
		return ErrExerciseNotFound
	}

	var maxSort int
	err = tx.QueryRowContext(ctx,
		db.q(`SELECT COALESCE(MAX(sort_order), 0) FROM workout_exercises WHERE workout_id = ?`),
		workoutID).Scan(&maxSort)
	if err != nil {
		return fmt.Errorf("reading max sort order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		db.q(`INSERT INTO workout_exercises (workout_id, exercise_id, sort_order) VALUES (?, ?, ?)
		 ON CONFLICT (workout_id, exercise_id) DO UPDATE SET sort_order = excluded.sort_order`),
		workoutID, exerciseID, maxSort+1)
	if err != nil {
		return fmt.Errorf("upserting workout exercise: %w", err)
	}
	return nil
}

// RemoveWorkoutExercise deletes a composition edge if present. Remaining
// sort orders are left untouched.
func (db *DB) RemoveWorkoutExercise(ctx context.Context, workoutID, exerciseID string) error {
	_, err := db.sql.ExecContext(ctx,
		db.q(`DELETE FROM workout_exercises WHERE workout_id = ? AND exercise_id = ?`),
		workoutID, exerciseID)
	if err != nil {
		return fmt.Errorf("removing workout exercise: %w", err)
	}
	return nil
}

func (db *DB) workoutExists(ctx context.Context, workoutID string) (bool, error) {
	ok, err := db.exists(ctx, `SELECT 1 FROM workouts WHERE id = ?`, workoutID)
	if err != nil {
		return false, fmt.Errorf("checking workout %s: %w", workoutID, err)
	}
	return ok, nil
}
