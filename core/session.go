package core

import (
	"encoding/json"
	"time"

	"github.com/hupe1980/taskmesh/config"
)

// SessionMeta is the durable record of one orchestration session. It is
// mutated only by the session manager under its per-session lock; everything
// handed to callers is a copy.
type SessionMeta struct {
	ID      string        `json:"id"`
	Prompt  string        `json:"prompt"`
	Mode    string        `json:"mode"`
	Config  config.Config `json:"config"`
	Status  Status        `json:"status"`
	Created time.Time     `json:"created"`

	// Callbacks is the ordered log of accepted inbound callbacks. It is a
	// separate entity from the refinement attempt chain.
	Callbacks []CallbackEntry `json:"callbacks,omitempty"`

	Exploration *ExploreResult `json:"exploration,omitempty"`
	Refinement  *RefineResult  `json:"refinement,omitempty"`
	Dual        *DualResult    `json:"dual,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (m SessionMeta) Clone() SessionMeta {
	clone := m
	clone.Callbacks = append([]CallbackEntry(nil), m.Callbacks...)
	if m.Exploration != nil {
		e := *m.Exploration
		e.Candidates = append([]Candidate(nil), m.Exploration.Candidates...)
		if m.Exploration.Winner != nil {
			w := *m.Exploration.Winner
			e.Winner = &w
		}
		clone.Exploration = &e
	}
	if m.Refinement != nil {
		r := *m.Refinement
		r.Chain = append([]RefinementAttempt(nil), m.Refinement.Chain...)
		clone.Refinement = &r
	}
	if m.Dual != nil {
		d := *m.Dual
		clone.Dual = &d
	}
	return clone
}

// CallbackEntry records one verified inbound callback payload.
type CallbackEntry struct {
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// Candidate is one scored output produced during parallel exploration.
// Immutable once produced.
type Candidate struct {
	Name     string        `json:"name"`
	Prompt   string        `json:"prompt"`
	Profile  Profile       `json:"profile"`
	Response string        `json:"response,omitempty"`
	Score    float64       `json:"score"`
	Duration time.Duration `json:"duration"`
	Failed   bool          `json:"failed,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ExploreResult is the outcome of one parallel exploration run. Candidates
// are in completion order, not input order. Winner is nil only when every
// variant failed.
type ExploreResult struct {
	Candidates []Candidate `json:"candidates"`
	Winner     *Candidate  `json:"winner,omitempty"`
	Polished   string      `json:"polished,omitempty"`
}

// FinalText returns the polished text when present, otherwise the winner's
// raw response, otherwise "".
func (r *ExploreResult) FinalText() string {
	if r.Polished != "" {
		return r.Polished
	}
	if r.Winner != nil {
		return r.Winner.Response
	}
	return ""
}

// RefinementAttempt records one iteration of the refinement loop. Appended
// once, never mutated.
type RefinementAttempt struct {
	Attempt    int         `json:"attempt"`
	Response   string      `json:"response,omitempty"`
	Score      float64     `json:"score"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Failed     bool        `json:"failed,omitempty"`
}

// RefineResult is the outcome of the iterative refinement loop. Chain is the
// ordered attempt log (distinct from the inbound-callback log).
type RefineResult struct {
	OK       bool                `json:"ok"`
	Chain    []RefinementAttempt `json:"chain"`
	Best     string              `json:"best,omitempty"`
	Attempts int                 `json:"attempts"`
}

// DualResult holds the three raw outputs of the dual-perspective pipeline
// plus length metadata for observability.
type DualResult struct {
	Draft       string `json:"draft"`
	Critique    string `json:"critique"`
	Final       string `json:"final"`
	DraftLen    int    `json:"draftLen"`
	CritiqueLen int    `json:"critiqueLen"`
	FinalLen    int    `json:"finalLen"`
}

// Evaluation is a structured quality assessment of a response. Metrics is
// optional; a nil Metrics means only a scalar score was produced.
type Evaluation struct {
	TotalScore float64  `json:"totalScore"`
	Metrics    *Metrics `json:"metrics,omitempty"`
}

// Metrics breaks a total score down into sub-scores, each in [0,1].
type Metrics struct {
	Correctness float64 `json:"correctness"`
	Performance float64 `json:"performance"`
	Style       float64 `json:"style"`
}
