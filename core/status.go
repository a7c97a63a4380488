package core

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusPending indicates a session that has been created but not started.
	StatusPending Status = "pending"
	// StatusRunning indicates orchestration is in flight.
	StatusRunning Status = "running"
	// StatusSucceeded indicates orchestration finished at or above the quality threshold.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates orchestration aborted with an error.
	StatusFailed Status = "failed"
	// StatusNeedsReview indicates refinement exhausted its attempts below threshold.
	StatusNeedsReview Status = "needs_review"
	// StatusCancelled indicates the client cancelled the session.
	StatusCancelled Status = "cancelled"
)

// transitions is the exhaustive status-transition table. Terminal states have
// no outgoing edges, so a terminal session can never be written again.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusSucceeded, StatusFailed, StatusNeedsReview, StatusCancelled},
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusNeedsReview, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal edge of the
// status machine.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusNeedsReview, StatusCancelled:
		return true
	}
	return false
}
