// Package domain holds the inventory entities and the error values shared by
// the repository, service and HTTP layers. Errors are wrapped with %w at the
// call site so handlers can branch with errors.Is.
package domain

import "errors"

var (
	// ErrNotFound a referenced id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrValidation missing required field, structural-mode mismatch or empty destination.
	ErrValidation = errors.New("validation error")
	// ErrNoOp transfer to the room the equipment is already in.
	ErrNoOp = errors.New("no-op")
	// ErrConflict inventory code collision.
	ErrConflict = errors.New("conflict")
)
