package storage

import "errors"

var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrSetNotFound      = errors.New("set not found")

	// ErrNoUpdates is returned for a patch that carries no recognized field.
	ErrNoUpdates = errors.New("no updates")

	// ErrInvalid wraps every input validation failure.
	ErrInvalid = errors.New("invalid input")
)
