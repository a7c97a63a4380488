package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/evaluation"
	"github.com/hupe1980/taskmesh/runner"
)

// Per-metric cutoffs used to derive targeted feedback from a structured
// evaluation.
const (
	correctnessCutoff = 0.8
	performanceCutoff = 0.7
	styleCutoff       = 0.7
)

// RefineOptions configure the refinement loop.
type RefineOptions struct {
	// MaxAttempts bounds the loop. Defaults to 3.
	MaxAttempts int
	// Threshold is the score at which refinement stops early. Defaults to 0.8.
	Threshold float64
	// Profile runs the refinement calls. Zero value lets the caller decide.
	Profile core.Profile
	// RetryAttempts and RetryBaseDelay wrap each agent call in bounded
	// retries with jittered exponential backoff.
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

const refinePrompt = `The previous response scored %.2f. Feedback: %s

Previous response:
%s

Improve the response based on the feedback. Return only the improved version.`

// Refine runs the sequential feedback loop: call the agent, evaluate the
// response, and re-prompt with score plus targeted feedback until the quality
// threshold is met or attempts are exhausted. A failed attempt is recorded
// with score 0 and the loop continues. When the loop exhausts MaxAttempts the
// best-scoring non-failed attempt is selected as the result with OK=false.
func Refine(ctx context.Context, caller core.Caller, evaluator evaluation.Evaluator, prompt string, optFns ...func(o *RefineOptions)) (*core.RefineResult, error) {
	opts := RefineOptions{MaxAttempts: 3, Threshold: 0.8, RetryAttempts: 1, RetryBaseDelay: time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	result := &core.RefineResult{}
	current := prompt

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		response, score, eval, err := runAttempt(ctx, caller, evaluator, current, opts)
		if err != nil {
			result.Chain = append(result.Chain, core.RefinementAttempt{
				Attempt:   attempt,
				Timestamp: time.Now().UTC(),
				Failed:    true,
			})
			continue
		}

		result.Chain = append(result.Chain, core.RefinementAttempt{
			Attempt:    attempt,
			Response:   response,
			Score:      score,
			Evaluation: eval,
			Timestamp:  time.Now().UTC(),
		})

		if score >= opts.Threshold {
			result.OK = true
			result.Best = response
			result.Attempts = attempt
			return result, nil
		}

		current = fmt.Sprintf(refinePrompt, score, feedback(score, eval), response)
	}

	result.Attempts = opts.MaxAttempts

	var viable []core.RefinementAttempt
	for _, a := range result.Chain {
		if !a.Failed {
			viable = append(viable, a)
		}
	}
	if best, ok := runner.Best(viable, func(a core.RefinementAttempt) float64 { return a.Score }); ok {
		result.Best = best.Response
	}
	return result, nil
}

// runAttempt issues one refinement call plus its evaluation, with the
// configured retry policy applied to the agent call only.
func runAttempt(ctx context.Context, caller core.Caller, evaluator evaluation.Evaluator, prompt string, opts RefineOptions) (string, float64, *core.Evaluation, error) {
	response, err := runner.Retry(ctx, opts.RetryAttempts, opts.RetryBaseDelay, func(ctx context.Context) (string, error) {
		return caller.Call(ctx, prompt, opts.Profile)
	})
	if err != nil {
		return "", 0, nil, fmt.Errorf("refinement call: %w", err)
	}

	eval, err := evaluator.Evaluate(ctx, response)
	if err != nil {
		return "", 0, nil, fmt.Errorf("evaluate refinement attempt: %w", err)
	}

	out := eval
	return response, eval.TotalScore, &out, nil
}

// feedback derives the feedback sentence for the next prompt. A structured
// evaluation with metrics yields one clause per sub-metric below its cutoff;
// otherwise a fixed score-band message is used.
func feedback(score float64, eval *core.Evaluation) string {
	if eval != nil && eval.Metrics != nil {
		var clauses []string
		if eval.Metrics.Correctness < correctnessCutoff {
			clauses = append(clauses, "fix correctness issues")
		}
		if eval.Metrics.Performance < performanceCutoff {
			clauses = append(clauses, "improve performance characteristics")
		}
		if eval.Metrics.Style < styleCutoff {
			clauses = append(clauses, "clean up style and structure")
		}
		if len(clauses) == 0 {
			clauses = append(clauses, "general improvements needed")
		}
		return strings.Join(clauses, ", ") + "."
	}

	switch {
	case score < 0.5:
		return "the response misses the mark and needs a substantial rework."
	case score < 0.7:
		return "the response is on track but has notable gaps to close."
	default:
		return "the response is close; apply final polish."
	}
}
