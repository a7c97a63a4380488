// Package core contains the shared domain model of TaskMesh: session
// metadata and its status machine, the capped event log, exploration and
// refinement records, the agent Caller collaborator interface and the
// per-run call limiter. Higher-level packages (stage, session, server)
// depend on core; core depends only on config.
package core
