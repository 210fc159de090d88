package conversation

import "github.com/jonathan/mentor-match/internal/types"

// Transition is one step change made while processing a request
type Transition struct {
	From types.MatchingStep `json:"from"`
	To   types.MatchingStep `json:"to"`
}

// StepRegistry lists the steps each step may move to
var StepRegistry = map[types.MatchingStep][]types.MatchingStep{
	types.StepCollecting: {
		types.StepClarifying,
		types.StepReadyToSearch,
		types.StepAbandoned,
	},
	types.StepClarifying: {
		types.StepCollecting,
		types.StepReadyToSearch,
		types.StepAbandoned,
	},
	types.StepReadyToSearch: {
		types.StepSearching,
		types.StepAbandoned,
	},
	types.StepSearching: {
		types.StepPresenting,
		types.StepClarifying,
	},
	types.StepPresenting: {
		types.StepCollecting,
		types.StepClarifying,
		types.StepReadyToSearch,
		types.StepCompleted,
		types.StepAbandoned,
	},
	types.StepCompleted: {},
	types.StepAbandoned: {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to types.MatchingStep) bool {
	for _, next := range StepRegistry[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when from may not move to to.
func ValidateTransition(from, to types.MatchingStep) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
