package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// Cached wraps a Caller with a TTL response cache keyed on prompt + profile.
// Only successful responses are cached. Driven by the caching config section.
type Cached struct {
	caller core.Caller
	ttl    time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	response string
	expires  time.Time
}

// NewCached wraps caller with a response cache. A ttl of 0 caches forever.
func NewCached(caller core.Caller, ttl time.Duration) *Cached {
	return &Cached{caller: caller, ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Call implements core.Caller.
func (c *Cached) Call(ctx context.Context, prompt string, profile core.Profile) (string, error) {
	key := cacheKey(prompt, profile)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && (c.ttl == 0 || time.Now().Before(entry.expires)) {
		c.mu.Unlock()
		return entry.response, nil
	}
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	response, err := c.caller.Call(ctx, prompt, profile)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{response: response, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return response, nil
}

func cacheKey(prompt string, profile core.Profile) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%g", prompt, profile.Model, profile.Temperature))
	return hex.EncodeToString(sum[:])
}
