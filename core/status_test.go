package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusRunning))
	assert.True(t, StatusPending.CanTransition(StatusCancelled))
	assert.True(t, StatusRunning.CanTransition(StatusSucceeded))
	assert.True(t, StatusRunning.CanTransition(StatusFailed))
	assert.True(t, StatusRunning.CanTransition(StatusNeedsReview))
	assert.True(t, StatusRunning.CanTransition(StatusCancelled))

	assert.False(t, StatusPending.CanTransition(StatusSucceeded))
	assert.False(t, StatusRunning.CanTransition(StatusPending))
}

func TestStatus_TerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	terminals := []Status{StatusSucceeded, StatusFailed, StatusNeedsReview, StatusCancelled}
	all := []Status{StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusNeedsReview, StatusCancelled}

	for _, from := range terminals {
		assert.True(t, from.Terminal())
		for _, to := range all {
			assert.False(t, from.CanTransition(to), "%s -> %s must be rejected", from, to)
		}
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusRunning.Valid())
	assert.False(t, Status("bogus").Valid())
}
