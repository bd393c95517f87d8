package repository

import "errors"

// Common repository errors
var (
	// ErrTaskNotFound is returned when no task matches both the id and the
	// predicate. An ownership mismatch is reported the same way.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidID is returned when an id is not in the backend's format
	ErrInvalidID = errors.New("invalid id format")

	// ErrEmailTaken is returned when a user with the same email exists
	ErrEmailTaken = errors.New("email already in use")
)
