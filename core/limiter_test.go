package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallLimiter_EnforcesLimit(t *testing.T) {
	cl := NewCallLimiter(2)

	require.NoError(t, cl.Increment())
	require.NoError(t, cl.Increment())
	assert.Error(t, cl.Increment())
	assert.Equal(t, 3, cl.Count())
}

func TestCallLimiter_ZeroMeansUnlimited(t *testing.T) {
	cl := NewCallLimiter(0)

	for i := 0; i < 100; i++ {
		require.NoError(t, cl.Increment())
	}
	assert.Equal(t, -1, cl.Remaining())
}

func TestCallLimiter_LimitWrapsCaller(t *testing.T) {
	calls := 0
	caller := CallerFunc(func(context.Context, string, Profile) (string, error) {
		calls++
		return "ok", nil
	})

	limited := NewCallLimiter(1).Limit(caller)

	_, err := limited.Call(context.Background(), "p", Profile{})
	require.NoError(t, err)

	_, err = limited.Call(context.Background(), "p", Profile{})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "call over budget must not reach the caller")
}
