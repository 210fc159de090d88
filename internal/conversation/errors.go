package conversation

import (
	"errors"
	"fmt"

	"github.com/jonathan/mentor-match/internal/types"
)

// ErrSessionClosed is returned when an action targets a completed or abandoned session
var ErrSessionClosed = errors.New("session is closed")

// ErrUnknownMentor is returned when a selection names a mentor that was not presented
var ErrUnknownMentor = errors.New("mentor was not among the presented suggestions")

// TransitionError reports a step change the state machine does not allow
type TransitionError struct {
	From types.MatchingStep
	To   types.MatchingStep
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// StepError reports an action that is not available in the session's current step
type StepError struct {
	Action string
	Step   types.MatchingStep
}

func (e *StepError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Action, e.Step)
}

// ConfigError reports an invalid controller configuration
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid conversation config: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid conversation config: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
