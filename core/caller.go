package core

import (
	"context"

	"github.com/google/uuid"
)

// Profile selects the model and sampling behavior for a single agent call.
type Profile struct {
	Name        string  `json:"name,omitempty"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// Caller is the "call an agent, get a response" collaborator. Implementations
// must be safe for concurrent use and must tolerate being retried with the
// same prompt. Cancellation is threaded through ctx so an in-flight call can
// be interrupted by session cancel.
type Caller interface {
	Call(ctx context.Context, prompt string, profile Profile) (string, error)
}

// CallerFunc adapts a plain function to the Caller interface.
type CallerFunc func(ctx context.Context, prompt string, profile Profile) (string, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, prompt string, profile Profile) (string, error) {
	return f(ctx, prompt, profile)
}

// NewID generates a unique identifier for events and runs.
func NewID() string { return uuid.NewString() }
