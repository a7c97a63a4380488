package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// Mock is a lightweight in-memory Caller useful for tests and examples. It
// returns canned responses registered per prompt (or prompt substring) and
// records every call it receives.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     []MockCall
}

// MockCall records one invocation of the mock.
type MockCall struct {
	Prompt  string
	Profile core.Profile
}

// NewMock constructs a Mock with no canned responses.
func NewMock() *Mock {
	return &Mock{responses: make(map[string]string)}
}

// AddResponse registers a deterministic canned completion for a prompt. The
// key matches exactly or as a substring of the incoming prompt.
func (m *Mock) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Fail makes every subsequent call return err. Pass nil to clear.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns the number of calls received.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Call implements core.Caller.
func (m *Mock) Call(ctx context.Context, prompt string, profile core.Profile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, Profile: profile})

	if m.err != nil {
		return "", m.err
	}
	if response, ok := m.responses[prompt]; ok {
		return response, nil
	}
	for key, response := range m.responses {
		if key != "" && strings.Contains(prompt, key) {
			return response, nil
		}
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}
