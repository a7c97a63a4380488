// Package session owns the durable orchestration session: its status
// machine, capped event log, inbound-callback verification and the
// start/status/cancel/callback/stream operations. The Manager drives the
// exploration and refinement stages asynchronously and publishes progress
// frames over an in-process pub/sub bus consumed by Stream.
package session
