package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// placeholders rotate through stream output while a session is still
// running, so clients always see motion between real events.
var placeholders = []string{
	"Analyzing task requirements...",
	"Exploring candidate strategies...",
	"Scoring responses...",
	"Refining the strongest result...",
	"Almost there...",
}

// Stream opens a long-lived frame channel for one session. Already-persisted
// events are replayed first, then live frames are forwarded as they are
// published; duplicates across the replay/live boundary are dropped by
// sequence number. While the session is running a rotating placeholder frame
// is emitted every tick. The channel closes after the final "complete" frame
// or when ctx is cancelled.
func (m *Manager) Stream(ctx context.Context, id string) (<-chan core.StreamFrame, error) {
	state, err := m.state(ctx, id)
	if err != nil {
		return nil, err
	}

	// Subscribe before snapshotting so nothing published in between is lost.
	msgs, err := m.bus.Subscribe(ctx, id)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	status := state.meta.Status
	snapshot := state.log.Events()
	state.mu.Unlock()

	out := make(chan core.StreamFrame, 64)

	go func() {
		defer close(out)

		// Racing appenders can publish out of sequence order, so duplicates
		// are filtered by a seen set pruned to a trailing window, not a
		// monotonic cutoff that would discard a late lower seq.
		seen := make(map[int]struct{}, len(snapshot))
		maxSeq := 0
		mark := func(seq int) {
			seen[seq] = struct{}{}
			if seq > maxSeq {
				maxSeq = seq
			}
			if len(seen) > 2*core.MaxEvents {
				for s := range seen {
					if s <= maxSeq-2*core.MaxEvents {
						delete(seen, s)
					}
				}
			}
		}

		for i := range snapshot {
			ev := snapshot[i]
			if !send(ctx, out, core.StreamFrame{Type: "event", Event: &ev}) {
				return
			}
			mark(ev.Seq)
		}

		if status.Terminal() {
			send(ctx, out, core.StreamFrame{Type: "complete", Status: status})
			return
		}

		ticker := time.NewTicker(m.tick)
		defer ticker.Stop()
		placeholder := 0

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				state.mu.Lock()
				running := state.meta.Status == core.StatusRunning
				state.mu.Unlock()
				if !running {
					continue
				}
				frame := core.StreamFrame{Type: "placeholder", Message: placeholders[placeholder%len(placeholders)]}
				placeholder++
				if !send(ctx, out, frame) {
					return
				}

			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var frame core.StreamFrame
				err := json.Unmarshal(msg.Payload, &frame)
				msg.Ack()
				if err != nil {
					m.logger.Warn("decode stream frame", "session_id", id, "err", err)
					continue
				}

				if frame.Type == "event" && frame.Event != nil {
					if _, dup := seen[frame.Event.Seq]; dup {
						continue
					}
					mark(frame.Event.Seq)
				}

				if !send(ctx, out, frame) {
					return
				}
				if frame.Type == "complete" {
					return
				}
			}
		}
	}()

	return out, nil
}

// send delivers a frame unless the consumer context is gone.
func send(ctx context.Context, out chan<- core.StreamFrame, frame core.StreamFrame) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- frame:
		return true
	}
}
