package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

// collectFrames drains the stream until the complete frame or the deadline.
func collectFrames(t *testing.T, frames <-chan core.StreamFrame) []core.StreamFrame {
	t.Helper()
	var out []core.StreamFrame
	deadline := time.After(5 * time.Second)
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return out
			}
			out = append(out, frame)
			if frame.Type == "complete" {
				return out
			}
		case <-deadline:
			t.Fatalf("stream did not complete, got %d frames", len(out))
		}
	}
}

func TestStream_UnknownSession(t *testing.T) {
	m := New(model.NewMock())
	_, err := m.Stream(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStream_LiveSessionEndsWithComplete(t *testing.T) {
	m := New(model.NewMock(), func(o *Options) {
		o.Scorer = fixedScorer(0.9)
		o.TickInterval = time.Hour // no placeholder noise
	})

	id, err := m.Start(context.Background(), "stream me", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames, err := m.Stream(ctx, id)
	require.NoError(t, err)

	got := collectFrames(t, frames)
	require.NotEmpty(t, got)

	last := got[len(got)-1]
	assert.Equal(t, "complete", last.Type)
	assert.Equal(t, core.StatusSucceeded, last.Status)

	var messages []string
	for _, frame := range got {
		if frame.Type == "event" {
			require.NotNil(t, frame.Event)
			messages = append(messages, frame.Event.Message)
		}
	}
	assert.Contains(t, messages, "session started")
	assert.Contains(t, messages, "exploration started")
	assert.Contains(t, messages, "orchestration complete")
}

func TestStream_EventsAreNotDuplicatedAcrossReplayBoundary(t *testing.T) {
	m := New(model.NewMock(), func(o *Options) {
		o.Scorer = fixedScorer(0.9)
		o.TickInterval = time.Hour
	})

	id, err := m.Start(context.Background(), "dedupe", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames, err := m.Stream(ctx, id)
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, frame := range collectFrames(t, frames) {
		if frame.Type != "event" {
			continue
		}
		require.NotNil(t, frame.Event)
		assert.False(t, seen[frame.Event.Seq], "seq %d delivered twice", frame.Event.Seq)
		seen[frame.Event.Seq] = true
	}
}

func TestStream_TerminalSessionReplaysThenCompletes(t *testing.T) {
	m := New(model.NewMock(), func(o *Options) {
		o.Scorer = fixedScorer(0.9)
		o.TickInterval = time.Hour
	})

	id, err := m.Start(context.Background(), "done already", "", nil)
	require.NoError(t, err)
	waitTerminal(t, m, id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames, err := m.Stream(ctx, id)
	require.NoError(t, err)

	got := collectFrames(t, frames)
	require.NotEmpty(t, got)
	assert.Equal(t, "complete", got[len(got)-1].Type)

	// replayed snapshot is in order
	lastSeq := 0
	for _, frame := range got {
		if frame.Type != "event" {
			continue
		}
		assert.Greater(t, frame.Event.Seq, lastSeq)
		lastSeq = frame.Event.Seq
	}
	assert.GreaterOrEqual(t, lastSeq, 1)
}

func TestStream_PlaceholdersWhileRunning(t *testing.T) {
	release := make(chan struct{})
	m := New(gatedCaller(release), func(o *Options) {
		o.Scorer = fixedScorer(0.9)
		o.TickInterval = 10 * time.Millisecond
	})

	id, err := m.Start(context.Background(), "slow task", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames, err := m.Stream(ctx, id)
	require.NoError(t, err)

	var placeholderSeen bool
	deadline := time.After(5 * time.Second)
	for !placeholderSeen {
		select {
		case frame := <-frames:
			if frame.Type == "placeholder" {
				placeholderSeen = true
				assert.NotEmpty(t, frame.Message)
			}
		case <-deadline:
			t.Fatal("no placeholder frame while session was running")
		}
	}

	close(release)
	got := collectFrames(t, frames)
	assert.Equal(t, "complete", got[len(got)-1].Type)
}

func TestStream_LateLowerSeqEventStillDelivered(t *testing.T) {
	bus := NewBus()
	release := make(chan struct{})
	defer close(release)
	m := New(gatedCaller(release), func(o *Options) {
		o.Bus = bus
		o.Scorer = fixedScorer(0.9)
		o.TickInterval = time.Hour
	})

	id, err := m.Start(context.Background(), "task", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames, err := m.Stream(ctx, id)
	require.NoError(t, err)

	// two appenders racing on the bus can deliver the higher seq first
	require.NoError(t, bus.Publish(id, core.StreamFrame{Type: "event", Event: &core.Event{Seq: 41, Message: "higher seq, published first"}}))
	require.NoError(t, bus.Publish(id, core.StreamFrame{Type: "event", Event: &core.Event{Seq: 40, Message: "lower seq, published second"}}))

	got := map[int]int{}
	deadline := time.After(5 * time.Second)
	for got[40] == 0 || got[41] == 0 {
		select {
		case frame := <-frames:
			if frame.Type == "event" && frame.Event != nil {
				got[frame.Event.Seq]++
			}
		case <-deadline:
			t.Fatalf("event frames missing after reordered publish, got seqs %v", got)
		}
	}
	assert.Equal(t, 1, got[40])
	assert.Equal(t, 1, got[41])
}

func TestStream_CancelledConsumerClosesChannel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := New(gatedCaller(release), func(o *Options) {
		o.Scorer = fixedScorer(0.9)
		o.TickInterval = time.Hour
	})

	id, err := m.Start(context.Background(), "task", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	frames, err := m.Stream(ctx, id)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-frames:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStream_CancelSessionDeliversCompleteCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	m := New(gatedCaller(release), func(o *Options) {
		o.Scorer = fixedScorer(0.9)
		o.TickInterval = time.Hour
	})

	id, err := m.Start(context.Background(), "task", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	frames, err := m.Stream(ctx, id)
	require.NoError(t, err)

	require.NoError(t, m.Cancel(context.Background(), id))

	got := collectFrames(t, frames)
	last := got[len(got)-1]
	assert.Equal(t, "complete", last.Type)
	assert.Equal(t, core.StatusCancelled, last.Status)
}
