// Package matching ranks mentor profiles against a learner's extracted needs.
package matching

import (
	"errors"
	"fmt"
)

// ErrInvalidLimit is returned when the requested result cap is not positive.
var ErrInvalidLimit = errors.New("limit must be at least 1")

// InvalidNeedsError indicates the engine was invoked without any usable signal.
// The conversation gate should make this unreachable.
type InvalidNeedsError struct {
	Message string
}

func (e *InvalidNeedsError) Error() string {
	return fmt.Sprintf("invalid needs: %s", e.Message)
}

// EmptyCatalogError indicates there were no mentors to rank
type EmptyCatalogError struct{}

func (e *EmptyCatalogError) Error() string {
	return "mentor catalog is empty"
}
