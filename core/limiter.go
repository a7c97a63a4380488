package core

import (
	"context"
	"fmt"
	"sync"
)

// CallLimiter enforces the budget.maxModelCalls ceiling for one orchestration
// run. If max == 0, unlimited calls are allowed.
type CallLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallLimiter creates a limiter allowing at most max agent calls.
func NewCallLimiter(max int) *CallLimiter {
	return &CallLimiter{max: max}
}

// Increment increases the call counter and returns an error once the limit
// is exceeded.
func (cl *CallLimiter) Increment() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.count++
	if cl.max > 0 && cl.count > cl.max {
		return fmt.Errorf("exceeded max model calls: %d", cl.max)
	}

	return nil
}

// Count returns the number of calls made so far.
func (cl *CallLimiter) Count() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	return cl.count
}

// Remaining returns how many calls are left, or -1 for unlimited.
func (cl *CallLimiter) Remaining() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.max == 0 {
		return -1
	}

	return cl.max - cl.count
}

// Limit wraps a Caller so every call is counted against the limiter before
// it is issued.
func (cl *CallLimiter) Limit(caller Caller) Caller {
	return CallerFunc(func(ctx context.Context, prompt string, profile Profile) (string, error) {
		if err := cl.Increment(); err != nil {
			return "", err
		}
		return caller.Call(ctx, prompt, profile)
	})
}
