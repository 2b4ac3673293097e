package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("error not found")
	ErrAlreadyExists      = errors.New("error already exists")
	ErrFundClientMismatch = errors.New("fund does not belong to client")
	ErrSnapshotExists     = errors.New("snapshot already exists for fund and date")
	ErrNoValidRows        = errors.New("no valid rows in import")
	ErrEmptyLedger        = errors.New("no allocations to commit")
	ErrStorageDisabled    = errors.New("report storage is not configured")
)

// ValidationError is returned before any side effect happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
