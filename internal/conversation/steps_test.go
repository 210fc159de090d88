package conversation

import (
	"errors"
	"testing"

	"github.com/jonathan/mentor-match/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRegistryCoversEveryStep(t *testing.T) {
	for _, step := range []types.MatchingStep{
		types.StepCollecting, types.StepClarifying, types.StepReadyToSearch, types.StepSearching,
		types.StepPresenting, types.StepCompleted, types.StepAbandoned,
	} {
		_, ok := StepRegistry[step]
		assert.True(t, ok, "missing registry entry for %s", step)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to types.MatchingStep
		want     bool
	}{
		{types.StepCollecting, types.StepClarifying, true},
		{types.StepClarifying, types.StepReadyToSearch, true},
		{types.StepReadyToSearch, types.StepSearching, true},
		{types.StepSearching, types.StepPresenting, true},
		{types.StepSearching, types.StepClarifying, true},
		{types.StepPresenting, types.StepReadyToSearch, true},
		{types.StepPresenting, types.StepCompleted, true},
		{types.StepCollecting, types.StepPresenting, false},
		{types.StepSearching, types.StepAbandoned, false},
		{types.StepClarifying, types.StepCompleted, false},
		{types.StepCompleted, types.StepCollecting, false},
		{types.StepAbandoned, types.StepClarifying, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalStepsHaveNoExits(t *testing.T) {
	for step, next := range StepRegistry {
		if step.Terminal() {
			assert.Empty(t, next, step)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(types.StepCollecting, types.StepAbandoned))

	err := ValidateTransition(types.StepCompleted, types.StepAbandoned)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.StepCompleted, te.From)
	assert.Equal(t, "invalid transition from completed to abandoned", err.Error())
}
