package stage

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
)

// DualProfiles selects the agent profiles of the three dual-perspective
// steps: a creative generator, a skeptical critic and a synthesizer.
type DualProfiles struct {
	Generate   core.Profile
	Critique   core.Profile
	Synthesize core.Profile
}

const generatePrompt = `Produce a complete, high-quality solution for the task below.

Task:
%s`

const critiquePrompt = `Review the candidate solution below against this checklist: correctness, edge cases, performance, security, overall quality. Return a structured list of concrete issues; be adversarial.

Task:
%s

Candidate solution:
%s`

const synthesizePrompt = `Combine the candidate solution and the critique below into one corrected final answer. Address every raised issue. Return only the final answer.

Candidate solution:
%s

Critique:
%s`

// Dual runs the fixed three-step generate, critique, synthesize pipeline.
// There is no scoring, no looping and no failure isolation between steps:
// any step's error propagates to the caller.
func Dual(ctx context.Context, caller core.Caller, profiles DualProfiles, prompt string) (*core.DualResult, error) {
	draft, err := caller.Call(ctx, fmt.Sprintf(generatePrompt, prompt), profiles.Generate)
	if err != nil {
		return nil, fmt.Errorf("generate step: %w", err)
	}

	critique, err := caller.Call(ctx, fmt.Sprintf(critiquePrompt, prompt, draft), profiles.Critique)
	if err != nil {
		return nil, fmt.Errorf("critique step: %w", err)
	}

	final, err := caller.Call(ctx, fmt.Sprintf(synthesizePrompt, draft, critique), profiles.Synthesize)
	if err != nil {
		return nil, fmt.Errorf("synthesize step: %w", err)
	}

	return &core.DualResult{
		Draft:       draft,
		Critique:    critique,
		Final:       final,
		DraftLen:    len(draft),
		CritiqueLen: len(critique),
		FinalLen:    len(final),
	}, nil
}
