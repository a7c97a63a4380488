// Package model provides core.Caller implementations: a deterministic mock
// for tests and a TTL response cache wrapper. Provider adapters live in the
// anthropic and openai subpackages.
package model
