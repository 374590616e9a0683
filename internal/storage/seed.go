package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// DemoWorkoutID is the id of the seeded demo workout. The focus client
// opens it when no workout id is given.
const DemoWorkoutID = "active"

// SeedDemo inserts the demo push-day workout unless it already exists.
func (db *DB) SeedDemo(ctx context.Context, log *slog.Logger) error {
	ok, err := db.workoutExists(ctx, DemoWorkoutID)
	if err != nil {
		return err
	}
	if ok {
		log.Debug("demo workout already seeded")
		return nil
	}

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting seed transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	desc := "Seeded demo workout for focus-mode logging"
	now := time.Now().UTC()
	if err := db.insertWorkout(ctx, tx, models.Workout{
		ID:          DemoWorkoutID,
		Name:        models.DemoWorkoutName,
		Description: &desc,
		CreatedAt:   now,
	}); err != nil {
		return err
	}

	exercises := models.DemoExercises()
	for _, ex := range exercises {
		if err := db.seedExercise(ctx, tx, ex, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}
	log.Info("seeded demo workout", "id", DemoWorkoutID, "exercises", len(exercises))
	return nil
}

func (db *DB) seedExercise(ctx context.Context, tx *sql.Tx, ex models.ExerciseSets, now time.Time) error {
	// The exercise may survive from an earlier seed whose workout was deleted.
	found, err := db.rowExists(ctx, tx, `SELECT 1 FROM exercises WHERE id = ?`, ex.ID)
	if err != nil {
		return fmt.Errorf("checking demo exercise %s: %w", ex.ID, err)
	}
	if !found {
		if err := db.insertExercise(ctx, tx, models.Exercise{ID: ex.ID, Name: ex.Name, CreatedAt: now}); err != nil {
			return err
		}
	}
	if err := db.addWorkoutExercise(ctx, tx, DemoWorkoutID, ex.ID); err != nil {
		return fmt.Errorf("composing demo exercise %s: %w", ex.ID, err)
	}
	for _, s := range ex.Sets {
		row := models.SetRow{
			ID:         s.ID,
			WorkoutID:  DemoWorkoutID,
			ExerciseID: ex.ID,
			WeightKg:   s.WeightKg,
			Reps:       s.Reps,
			Done:       s.Done,
		}
		if err := db.insertSet(ctx, tx, &row); err != nil {
			return err
		}
	}
	return nil
}
