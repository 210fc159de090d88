package db

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when no session has the requested ID
var ErrSessionNotFound = errors.New("session not found")

// SessionConflictError reports that a session changed since it was loaded
type SessionConflictError struct {
	SessionID       uuid.UUID
	ExpectedVersion int64
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("session %s was modified concurrently (expected version %d)", e.SessionID, e.ExpectedVersion)
}
