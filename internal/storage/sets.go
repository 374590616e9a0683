package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// AppendSet logs a new set for an exercise of a workout. The set index is
// the number of sets already logged for the pair plus one, and done starts
// false. The exercise id is not checked against the library or the
// workout's composition.
func (db *DB) AppendSet(ctx context.Context, workoutID string, in models.NewSet) (*models.Set, error) {
	if strings.TrimSpace(in.ExerciseID) == "" {
		return nil, fmt.Errorf("exerciseId is required: %w", ErrInvalid)
	}
	if !models.IsFinite(in.WeightKg) {
		return nil, fmt.Errorf("weightKg must be finite: %w", ErrInvalid)
	}

	ok, err := db.workoutExists(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWorkoutNotFound
	}

	row := models.SetRow{
		ID:         uuid.NewString(),
		WorkoutID:  workoutID,
		ExerciseID: in.ExerciseID,
		WeightKg:   in.WeightKg,
		Reps:       in.Reps,
	}
	if err := db.insertSet(ctx, db.sql, &row); err != nil {
		return nil, err
	}

	return &models.Set{ID: row.ID, WeightKg: row.WeightKg, Reps: row.Reps, Done: false}, nil
}

// insertSet assigns the next set index for the row's pair and inserts it.
func (db *DB) insertSet(ctx context.Context, qe queryExecer, row *models.SetRow) error {
	var count int
	err := qe.QueryRowContext(ctx,
		db.q(`SELECT COUNT(1) FROM sets WHERE workout_id = ? AND exercise_id = ?`),
		row.WorkoutID, row.ExerciseID).Scan(&count)
	if err != nil {
		return fmt.Errorf("counting sets: %w", err)
	}
	row.SetIndex = count + 1

	_, err = qe.ExecContext(ctx,
		db.q(`INSERT INTO sets (id, workout_id, exercise_id, set_index, weight_kg, reps, done)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		row.ID, row.WorkoutID, row.ExerciseID, row.SetIndex, row.WeightKg, row.Reps, row.Done)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

// PatchSet updates only the fields present in the patch.
func (db *DB) PatchSet(ctx context.Context, setID string, patch models.SetPatch) error {
	ok, err := db.exists(ctx, `SELECT 1 FROM sets WHERE id = ?`, setID)
	if err != nil {
		return fmt.Errorf("checking set %s: %w", setID, err)
	}
	if !ok {
		return ErrSetNotFound
	}

	if patch.Empty() {
		return ErrNoUpdates
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var (
		updates []string
		args    []any
	)
	if patch.WeightKg != nil {
		updates = append(updates, "weight_kg = ?")
		args = append(args, *patch.WeightKg)
	}
	if patch.Reps != nil {
		updates = append(updates, "reps = ?")
		args = append(args, *patch.Reps)
	}
	if patch.Done != nil {
		updates = append(updates, "done = ?")
		args = append(args, *patch.Done)
	}
	args = append(args, setID)

	_, err = db.sql.ExecContext(ctx,
		db.q(`UPDATE sets SET `+strings.Join(updates, ", ")+` WHERE id = ?`),
		args...)
	if err != nil {
		return fmt.Errorf("updating set %s: %w", setID, err)
	}
	return nil
}

// GetSet returns a single set row, including its set index.
func (db *DB) GetSet(ctx context.Context, setID string) (*models.SetRow, error) {
	var s models.SetRow
	err := db.sql.QueryRowContext(ctx,
		db.q(`SELECT id, workout_id, exercise_id, set_index, weight_kg, reps, done FROM sets WHERE id = ?`),
		setID).Scan(&s.ID, &s.WorkoutID, &s.ExerciseID, &s.SetIndex, &s.WeightKg, &s.Reps, &s.Done)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("querying set %s: %w", setID, err)
	}
	return &s, nil
}
