package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")

	// ErrAlreadyActive and ErrNoActiveSession guard the one-open-session
	// invariant of a ledger. Both are recoverable: callers treat the
	// duplicate transition as a no-op.
	ErrAlreadyActive   = errors.New("session already active")
	ErrNoActiveSession = errors.New("no active session")

	ErrInvalidDate = errors.New("invalid date")
)

func NewError(model string, err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(model), err)
}
