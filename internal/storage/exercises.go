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

// ListExercises returns the exercise library ordered by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT id, name, created_at FROM exercises ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

// CreateExercise adds a named exercise to the library. The name is trimmed.
func (db *DB) CreateExercise(ctx context.Context, name string) (*models.Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("exercise name is required: %w", ErrInvalid)
	}
	e := models.Exercise{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.insertExercise(ctx, db.sql, e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (db *DB) insertExercise(ctx context.Context, ex execer, e models.Exercise) error {
	_, err := ex.ExecContext(ctx,
		db.q(`INSERT INTO exercises (id, name, created_at) VALUES (?, ?, ?)`),
		e.ID, e.Name, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", err)
	}
	return nil
}

// FindExerciseByName returns the oldest exercise with exactly this name.
func (db *DB) FindExerciseByName(ctx context.Context, name string) (*models.Exercise, error) {
	row := db.sql.QueryRowContext(ctx,
		db.q(`SELECT id, name, created_at FROM exercises WHERE name = ? ORDER BY created_at ASC LIMIT 1`),
		strings.TrimSpace(name))
	e, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExerciseNotFound
	}
	return e, err
}

func scanExercise(row scanner) (*models.Exercise, error) {
	var (
		e         models.Exercise
		createdAt string
	)
	if err := row.Scan(&e.ID, &e.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning exercise: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing exercise created_at: %w", err)
	}
	e.CreatedAt = t
	return &e, nil
}
