package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/evaluation"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/store"
)

// Session operation errors.
var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidRequest marks malformed client input, distinct from internal
	// failures so transports can map it to a 4xx.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTerminal is returned when an operation targets a session whose
	// status admits no further transitions.
	ErrTerminal = errors.New("session already terminal")
)

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Store persists session meta and events.
	Store store.KV
	// Bus carries stream frames to subscribers.
	Bus *Bus
	// Logger receives structured diagnostics.
	Logger logging.Logger
	// Scorer overrides the default model-based exploration scorer.
	Scorer evaluation.Scorer
	// Evaluator overrides the default model-based refinement evaluator.
	Evaluator evaluation.Evaluator
	// Secret is the shared secret for inbound callback signatures. Callbacks
	// are rejected outright when it is empty.
	Secret string
	// PersistedConfig is the middle configuration layer merged between the
	// built-in defaults and per-request overrides.
	PersistedConfig map[string]any
	// TickInterval is the cadence of placeholder frames while a streamed
	// session is still running.
	TickInterval time.Duration
}

// Manager owns all sessions: it resolves configuration, drives the staged
// orchestration asynchronously, guards every status transition through the
// core transition table and serves reads. Public methods are safe for
// concurrent use.
type Manager struct {
	caller    core.Caller
	store     store.KV
	bus       *Bus
	logger    logging.Logger
	scorer    evaluation.Scorer
	evaluator evaluation.Evaluator
	secret    string
	persisted map[string]any
	tick      time.Duration

	mu       sync.RWMutex
	sessions map[string]*sessionState
	active   map[string]context.CancelFunc
}

// sessionState is the lock-guarded in-memory state of one session. All meta
// mutations happen under mu so cancel() and orchestrate() cannot interleave
// a lost write.
type sessionState struct {
	mu   sync.Mutex
	meta core.SessionMeta
	log  *core.EventLog
}

// storedSession is the persisted JSON blob.
type storedSession struct {
	Meta   core.SessionMeta `json:"meta"`
	Events []core.Event     `json:"events"`
}

// New constructs a Manager with optional overrides.
func New(caller core.Caller, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Store:        store.NewMemory(),
		Bus:          NewBus(),
		Logger:       logging.NoOpLogger{},
		TickInterval: time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		caller:    caller,
		store:     opts.Store,
		bus:       opts.Bus,
		logger:    opts.Logger,
		scorer:    opts.Scorer,
		evaluator: opts.Evaluator,
		secret:    opts.Secret,
		persisted: opts.PersistedConfig,
		tick:      opts.TickInterval,
		sessions:  make(map[string]*sessionState),
		active:    make(map[string]context.CancelFunc),
	}
}

// Start creates a session, persists it as running and begins orchestration
// without blocking the caller. It fails only on malformed input. Any error
// escaping orchestration is caught here and forces status=failed plus an
// error event.
func (m *Manager) Start(ctx context.Context, prompt, mode string, overrides map[string]any) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	request := overrides
	if mode != "" {
		request = config.Merge(request, map[string]any{
			"orchestration": map[string]any{"mode": mode},
		})
	}

	cfg, err := config.Resolve(m.persisted, request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	id := ulid.Make().String()
	state := &sessionState{
		meta: core.SessionMeta{
			ID:      id,
			Prompt:  prompt,
			Mode:    cfg.Orchestration.Mode,
			Config:  cfg,
			Status:  core.StatusRunning,
			Created: time.Now().UTC(),
		},
		log: core.NewEventLog(),
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.sessions[id] = state
	m.active[id] = cancel
	m.mu.Unlock()

	m.appendEvent(state, core.LevelInfo, "session started", map[string]any{"mode": cfg.Orchestration.Mode})
	m.persist(state)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.finish(state, core.StatusFailed, fmt.Sprintf("orchestration panic: %v", r))
			}
			cancel()
			m.mu.Lock()
			delete(m.active, id)
			m.mu.Unlock()
		}()

		if err := m.orchestrate(runCtx, state); err != nil {
			m.finish(state, core.StatusFailed, err.Error())
		}
	}()

	return id, nil
}

// Status returns a copy of the session meta and the full retained event list.
func (m *Manager) Status(ctx context.Context, id string) (core.SessionMeta, []core.Event, error) {
	state, err := m.state(ctx, id)
	if err != nil {
		return core.SessionMeta{}, nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.meta.Clone(), state.log.Events(), nil
}

// Cancel moves a running session to cancelled and interrupts its in-flight
// work. Cancelling an already-terminal session returns ErrTerminal.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	state, err := m.state(ctx, id)
	if err != nil {
		return err
	}

	state.mu.Lock()
	if state.meta.Status.Terminal() {
		state.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTerminal, state.meta.Status)
	}
	state.meta.Status = core.StatusCancelled
	ev := state.log.Append(core.LevelInfo, "session cancelled", nil)
	m.persistLocked(state)
	state.mu.Unlock()

	// Status flip first, context cancel second: the orchestration goroutine
	// observes the terminal status and drops any pending writes.
	m.mu.Lock()
	cancel := m.active[id]
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	m.publishEvent(state.meta.ID, ev)
	m.publishComplete(state.meta.ID, core.StatusCancelled)
	return nil
}

// Callback verifies and records an inbound signed callback. Verification
// happens before any state mutation: a missing secret or a bad signature
// rejects the payload and leaves the session untouched.
func (m *Manager) Callback(ctx context.Context, id string, body []byte, signature string) error {
	if m.secret == "" {
		return ErrMissingSecret
	}
	if !Verify([]byte(m.secret), body, signature) {
		return ErrBadSignature
	}
	if !json.Valid(body) {
		return fmt.Errorf("%w: callback body is not valid JSON", ErrInvalidRequest)
	}

	state, err := m.state(ctx, id)
	if err != nil {
		return err
	}

	state.mu.Lock()
	state.meta.Callbacks = append(state.meta.Callbacks, core.CallbackEntry{
		Time:    time.Now().UTC(),
		Payload: append(json.RawMessage(nil), body...),
	})
	ev := state.log.Append(core.LevelInfo, "callback received", map[string]any{"bytes": len(body)})
	m.persistLocked(state)
	state.mu.Unlock()

	m.publishEvent(id, ev)
	return nil
}

// state returns the in-memory state for id, rehydrating from the store when
// the session is not resident (e.g. after a restart).
func (m *Manager) state(ctx context.Context, id string) (*sessionState, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return state, nil
	}

	raw, err := m.store.Get(ctx, sessionKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	state = &sessionState{meta: stored.Meta, log: core.Restore(stored.Events)}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		state = existing
	} else {
		m.sessions[id] = state
	}
	m.mu.Unlock()

	return state, nil
}

func sessionKey(id string) string { return "session:" + id }

// appendEvent records an event and publishes it; callers must NOT hold
// state.mu.
func (m *Manager) appendEvent(state *sessionState, level core.Level, msg string, data map[string]any) {
	state.mu.Lock()
	ev := state.log.Append(level, msg, data)
	m.persistLocked(state)
	state.mu.Unlock()

	m.publishEvent(state.meta.ID, ev)
}

// persist serializes the session under state.mu.
func (m *Manager) persist(state *sessionState) {
	state.mu.Lock()
	defer state.mu.Unlock()
	m.persistLocked(state)
}

func (m *Manager) persistLocked(state *sessionState) {
	blob, err := json.Marshal(storedSession{Meta: state.meta, Events: state.log.Events()})
	if err != nil {
		m.logger.Error("marshal session", "session_id", state.meta.ID, "err", err)
		return
	}
	if err := m.store.Put(context.Background(), sessionKey(state.meta.ID), blob); err != nil {
		m.logger.Error("persist session", "session_id", state.meta.ID, "err", err)
	}
}

func (m *Manager) publishEvent(id string, ev core.Event) {
	if err := m.bus.Publish(id, core.StreamFrame{Type: "event", Event: &ev}); err != nil {
		m.logger.Warn("publish event frame", "session_id", id, "err", err)
	}
}

func (m *Manager) publishComplete(id string, status core.Status) {
	if err := m.bus.Publish(id, core.StreamFrame{Type: "complete", Status: status}); err != nil {
		m.logger.Warn("publish complete frame", "session_id", id, "err", err)
	}
}

// finish moves the session to a terminal status, recording errMsg when the
// status is failed. Transitions not admitted by the status table (e.g. a
// failure arriving after cancel) are dropped, with the event still logged
// for observability.
func (m *Manager) finish(state *sessionState, status core.Status, errMsg string) {
	state.mu.Lock()
	allowed := state.meta.Status.CanTransition(status)
	var ev core.Event
	if allowed {
		state.meta.Status = status
		if errMsg != "" {
			state.meta.Error = errMsg
			ev = state.log.Append(core.LevelError, "orchestration failed", map[string]any{"error": errMsg})
		} else {
			ev = state.log.Append(core.LevelInfo, "orchestration complete", map[string]any{"status": string(status)})
		}
		m.persistLocked(state)
	} else if errMsg != "" {
		ev = state.log.Append(core.LevelError, "orchestration error after terminal status", map[string]any{"error": errMsg})
		m.persistLocked(state)
	}
	current := state.meta.Status
	state.mu.Unlock()

	if ev.Seq != 0 {
		m.publishEvent(state.meta.ID, ev)
	}
	if allowed {
		m.publishComplete(state.meta.ID, current)
	}
}
