package evaluation

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
)

const gradingPrompt = `You are a strict quality grader. Assess the response below and return ONLY a JSON object of the form
{"totalScore": <0..1>, "metrics": {"correctness": <0..1>, "performance": <0..1>, "style": <0..1>}}
with no additional text.

Response to grade:
%s`

// ModelEvaluator grades responses by asking a grading agent profile for a
// structured JSON assessment. It implements both Evaluator and Scorer.
type ModelEvaluator struct {
	caller  core.Caller
	profile core.Profile
}

// NewModelEvaluator constructs an evaluator backed by the given caller and
// grading profile (typically a low-temperature one).
func NewModelEvaluator(caller core.Caller, profile core.Profile) *ModelEvaluator {
	return &ModelEvaluator{caller: caller, profile: profile}
}

// Evaluate implements Evaluator.
func (e *ModelEvaluator) Evaluate(ctx context.Context, response string) (core.Evaluation, error) {
	raw, err := e.caller.Call(ctx, fmt.Sprintf(gradingPrompt, response), e.profile)
	if err != nil {
		return core.Evaluation{}, fmt.Errorf("grading call failed: %w", err)
	}
	ev, err := Parse(raw)
	if err != nil {
		return core.Evaluation{}, fmt.Errorf("parse grading output: %w", err)
	}
	return ev, nil
}

// Score implements Scorer by reducing the structured evaluation to its total.
func (e *ModelEvaluator) Score(ctx context.Context, response string) (float64, error) {
	ev, err := e.Evaluate(ctx, response)
	if err != nil {
		return 0, err
	}
	return ev.TotalScore, nil
}
