package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/evaluation"
	"github.com/hupe1980/taskmesh/runner"
)

// ErrNoWinner is returned by Explore when every variant failed, so no
// candidate could be selected.
var ErrNoWinner = errors.New("all variants failed, no winner")

// Variant is one named prompt / agent-profile combination explored
// concurrently.
type Variant struct {
	Name    string
	Prompt  string
	Profile core.Profile
}

// ExploreOptions configure an exploration run.
type ExploreOptions struct {
	// Concurrency bounds the worker pool. Defaults to 3 lanes.
	Concurrency int
	// PolishProfile, when set, triggers one extra call that polishes the
	// winner. A polish failure is swallowed; it never fails the stage.
	PolishProfile *core.Profile
}

const polishPrompt = `Polish the draft below into its final form. Fix rough edges without changing the substance. Return only the polished version.

Draft:
%s`

// Explore runs every variant through a bounded worker pool, scores each
// response and selects the highest-scoring non-failed candidate (ties keep
// the earliest). A variant's failure is recorded as a failed candidate with
// score 0 and never aborts the batch. Candidates are collected in completion
// order. When all variants fail, ErrNoWinner is returned together with the
// partial result so callers can still inspect the candidates.
func Explore(ctx context.Context, caller core.Caller, scorer evaluation.Scorer, variants []Variant, optFns ...func(o *ExploreOptions)) (*core.ExploreResult, error) {
	opts := ExploreOptions{Concurrency: 3}
	for _, fn := range optFns {
		fn(&opts)
	}

	results := runner.Pool(ctx, variants, opts.Concurrency, func(ctx context.Context, v Variant) (core.Candidate, error) {
		started := time.Now()
		response, err := caller.Call(ctx, v.Prompt, v.Profile)
		if err != nil {
			return core.Candidate{}, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		score, err := scorer.Score(ctx, response)
		if err != nil {
			return core.Candidate{}, fmt.Errorf("score variant %s: %w", v.Name, err)
		}
		return core.Candidate{
			Name:     v.Name,
			Prompt:   v.Prompt,
			Profile:  v.Profile,
			Response: response,
			Score:    score,
			Duration: time.Since(started),
		}, nil
	})

	out := &core.ExploreResult{}
	for _, res := range results {
		if res.Failed {
			out.Candidates = append(out.Candidates, core.Candidate{
				Name:    res.Item.Name,
				Prompt:  res.Item.Prompt,
				Profile: res.Item.Profile,
				Failed:  true,
				Error:   res.Err.Error(),
			})
			continue
		}
		out.Candidates = append(out.Candidates, res.Value)
	}

	var viable []core.Candidate
	for _, c := range out.Candidates {
		if !c.Failed {
			viable = append(viable, c)
		}
	}
	winner, ok := runner.Best(viable, func(c core.Candidate) float64 { return c.Score })
	if !ok {
		return out, ErrNoWinner
	}
	out.Winner = &winner

	if opts.PolishProfile != nil {
		polished, err := caller.Call(ctx, fmt.Sprintf(polishPrompt, winner.Response), *opts.PolishProfile)
		if err == nil {
			out.Polished = polished
		}
	}

	return out, nil
}
