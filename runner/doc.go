// Package runner provides the low-level execution primitives the
// orchestration stages are built from: a bounded worker pool with per-item
// failure isolation, a jittered exponential-backoff retry helper and a
// deterministic best-of selector.
package runner
