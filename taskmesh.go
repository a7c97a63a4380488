// Package taskmesh provides a high-level façade over the session manager and
// its collaborators, enabling rapid construction of AI-task orchestration
// services. Most applications interact with this package by:
//  1. Creating a TaskMesh via New() with an agent Caller (optionally
//     overriding the default in-memory store, bus and logger)
//  2. Starting sessions and reading their status
//  3. Streaming progress frames until the session reaches a terminal status
//
// The façade delegates orchestration to session.Manager while keeping setup
// ergonomics concise. All defaults are safe for local development and tests;
// production deployments typically supply a durable store, a callback secret
// and a structured logger.
package taskmesh

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/session"
)

// TaskMesh is the high-level façade aggregating the session manager and its
// collaborators.
type TaskMesh struct {
	manager *session.Manager
}

// New creates a TaskMesh instance around the given agent caller. Any unset
// collaborator defaults to an in-memory implementation.
func New(caller core.Caller, optFns ...func(o *session.Options)) *TaskMesh {
	return &TaskMesh{manager: session.New(caller, optFns...)}
}

// Manager exposes the underlying session manager for transports.
func (t *TaskMesh) Manager() *session.Manager { return t.manager }

// Start creates a session and begins orchestration without blocking.
func (t *TaskMesh) Start(ctx context.Context, prompt, mode string, overrides map[string]any) (string, error) {
	return t.manager.Start(ctx, prompt, mode, overrides)
}

// Status returns the session meta and its retained events.
func (t *TaskMesh) Status(ctx context.Context, id string) (core.SessionMeta, []core.Event, error) {
	return t.manager.Status(ctx, id)
}

// Cancel cancels a running session.
func (t *TaskMesh) Cancel(ctx context.Context, id string) error {
	return t.manager.Cancel(ctx, id)
}

// Stream opens a progress frame channel for a session.
func (t *TaskMesh) Stream(ctx context.Context, id string) (<-chan core.StreamFrame, error) {
	return t.manager.Stream(ctx, id)
}
