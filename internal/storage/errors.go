package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeTrial indicates a trial index below zero.
	ErrNegativeTrial = errors.New("storage: trial must be non-negative")

	// ErrClaimExhausted indicates every candidate trial directory was taken.
	ErrClaimExhausted = errors.New("storage: no free trial directory")

	// ErrTrialExists indicates an explicit trial directory is already present.
	ErrTrialExists = errors.New("storage: trial directory already exists")
)

// StorageError wraps a filesystem failure with the step and path involved.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TrialConflictError is returned when an explicitly requested trial already
// has a directory and overwriting was not allowed.
type TrialConflictError struct {
	Trial int
	Path  string
}

func (e *TrialConflictError) Error() string {
	return fmt.Sprintf("storage: trial %d already exists at %s", e.Trial, e.Path)
}

func (e *TrialConflictError) Unwrap() error {
	return ErrTrialExists
}
