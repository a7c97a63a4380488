package core

import (
	"sync"
	"time"
)

// Level classifies the severity of a session event.
type Level string

// Event severity levels.
const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// MaxEvents caps the per-session event log. Once reached, the oldest events
// are evicted first (ring-buffer semantics).
const MaxEvents = 100

// Event is one entry of a session's append-only observability log. Seq is
// assigned by the log and increases monotonically per session, surviving
// eviction, so stream consumers can deduplicate replayed events.
type Event struct {
	Seq     int            `json:"seq"`
	Time    time.Time      `json:"time"`
	Level   Level          `json:"level"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventLog is a concurrency-safe, seq-numbered event log capped at MaxEvents
// entries. The zero value is not usable; construct with NewEventLog.
type EventLog struct {
	mu     sync.RWMutex
	next   int
	events []Event
}

// NewEventLog constructs an empty log. Restore restores persisted state.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Restore rebuilds a log from persisted events. The next sequence number
// continues after the highest restored one.
func Restore(events []Event) *EventLog {
	l := &EventLog{events: append([]Event(nil), events...)}
	for _, ev := range events {
		if ev.Seq > l.next {
			l.next = ev.Seq
		}
	}
	return l
}

// Append records an event, evicting the oldest entry when the cap is hit,
// and returns the stored event with its assigned sequence number.
func (l *EventLog) Append(level Level, message string, data map[string]any) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	ev := Event{
		Seq:     l.next,
		Time:    time.Now().UTC(),
		Level:   level,
		Message: message,
		Data:    data,
	}
	l.events = append(l.events, ev)
	if len(l.events) > MaxEvents {
		l.events = l.events[len(l.events)-MaxEvents:]
	}
	return ev
}

// Events returns a defensive copy of the log in append order.
func (l *EventLog) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := make([]Event, len(l.events))
	copy(events, l.events)
	return events
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// StreamFrame is one chunk delivered to a stream consumer. Exactly one of the
// payload fields is meaningful depending on Type.
type StreamFrame struct {
	Type    string `json:"type"` // "event", "placeholder" or "complete"
	Event   *Event `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
	Status  Status `json:"status,omitempty"`
}
