package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestCached_RepeatedCallHitsCache(t *testing.T) {
	mock := NewMock()
	cached := NewCached(mock, time.Minute)
	profile := core.Profile{Name: "balanced", Model: "m", Temperature: 0.7}

	first, err := cached.Call(context.Background(), "same prompt", profile)
	require.NoError(t, err)
	second, err := cached.Call(context.Background(), "same prompt", profile)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.CallCount())
}

func TestCached_KeyIncludesModelAndTemperature(t *testing.T) {
	mock := NewMock()
	cached := NewCached(mock, time.Minute)

	_, err := cached.Call(context.Background(), "p", core.Profile{Model: "a", Temperature: 0.2})
	require.NoError(t, err)
	_, err = cached.Call(context.Background(), "p", core.Profile{Model: "b", Temperature: 0.2})
	require.NoError(t, err)
	_, err = cached.Call(context.Background(), "p", core.Profile{Model: "a", Temperature: 0.9})
	require.NoError(t, err)

	assert.Equal(t, 3, mock.CallCount())
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	mock := NewMock()
	mock.Fail(errors.New("upstream down"))
	cached := NewCached(mock, time.Minute)

	_, err := cached.Call(context.Background(), "p", core.Profile{})
	require.Error(t, err)

	mock.Fail(nil)
	got, err := cached.Call(context.Background(), "p", core.Profile{})
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, 2, mock.CallCount())
}

func TestCached_ExpiredEntryRefetched(t *testing.T) {
	mock := NewMock()
	cached := NewCached(mock, time.Nanosecond)

	_, err := cached.Call(context.Background(), "p", core.Profile{})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	_, err = cached.Call(context.Background(), "p", core.Profile{})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount())
}

func TestCached_ZeroTTLCachesForever(t *testing.T) {
	mock := NewMock()
	cached := NewCached(mock, 0)

	_, err := cached.Call(context.Background(), "p", core.Profile{})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	_, err = cached.Call(context.Background(), "p", core.Profile{})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestMock_CannedResponses(t *testing.T) {
	mock := NewMock()
	mock.AddResponse("exact prompt", "canned")
	mock.AddResponse("needle", "substring match")

	got, err := mock.Call(context.Background(), "exact prompt", core.Profile{})
	require.NoError(t, err)
	assert.Equal(t, "canned", got)

	got, err = mock.Call(context.Background(), "hay needle stack", core.Profile{})
	require.NoError(t, err)
	assert.Equal(t, "substring match", got)

	got, err = mock.Call(context.Background(), "unregistered", core.Profile{})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: unregistered", got)

	calls := mock.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "exact prompt", calls[0].Prompt)
}
