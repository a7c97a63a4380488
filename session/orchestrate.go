package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/evaluation"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/stage"
)

// fastModeVariants is how many variants survive trimming in fast mode.
const fastModeVariants = 2

const refineSeedPrompt = `Task:
%s

Current draft:
%s

Improve the draft so it fully solves the task. Return only the improved version.`

// orchestrate drives one session end to end: phase 1 parallel exploration,
// then, when the winning score is below the quality threshold, phase 2
// iterative refinement seeded with the exploration output. Mode "dual" runs
// the dual-perspective pipeline instead. Returning an error causes the spawn
// site to mark the session failed.
func (m *Manager) orchestrate(ctx context.Context, state *sessionState) error {
	state.mu.Lock()
	cfg := state.meta.Config
	prompt := state.meta.Prompt
	state.mu.Unlock()

	caller := m.caller
	if cfg.Budget.MaxModelCalls > 0 {
		caller = core.NewCallLimiter(cfg.Budget.MaxModelCalls).Limit(caller)
	}
	if cfg.Caching.Enabled {
		caller = model.NewCached(caller, cfg.Caching.TTL)
	}

	if cfg.Orchestration.Mode == config.ModeDual {
		return m.runDual(ctx, state, caller, cfg, prompt)
	}

	scorer := m.scorer
	if scorer == nil {
		scorer = evaluation.NewModelEvaluator(caller, profile(cfg, "precise"))
	}

	variants := buildVariants(cfg, prompt)
	m.appendEvent(state, core.LevelInfo, "exploration started", map[string]any{
		"variants":    len(variants),
		"concurrency": cfg.Orchestration.ParallelConcurrency,
	})

	exp, err := stage.Explore(ctx, caller, scorer, variants, func(o *stage.ExploreOptions) {
		o.Concurrency = cfg.Orchestration.ParallelConcurrency
		if polish, ok := cfg.Agents["polish"]; ok {
			o.PolishProfile = &core.Profile{Name: "polish", Model: polish.Model, Temperature: polish.Temperature}
		}
	})
	if err := ctx.Err(); err != nil {
		// cancel() already owns the terminal status
		return nil
	}
	if errors.Is(err, stage.ErrNoWinner) {
		state.mu.Lock()
		state.meta.Exploration = exp
		m.persistLocked(state)
		state.mu.Unlock()
		return fmt.Errorf("exploration produced no winner: %w", err)
	}
	if err != nil {
		return fmt.Errorf("exploration: %w", err)
	}

	state.mu.Lock()
	state.meta.Exploration = exp
	m.persistLocked(state)
	state.mu.Unlock()

	m.appendEvent(state, core.LevelInfo, "exploration complete", map[string]any{
		"winner": exp.Winner.Name,
		"score":  exp.Winner.Score,
	})

	if exp.Winner.Score >= cfg.Quality.Threshold {
		m.finish(state, core.StatusSucceeded, "")
		return nil
	}

	evaluator := m.evaluator
	if evaluator == nil {
		evaluator = evaluation.NewModelEvaluator(caller, profile(cfg, "precise"))
	}

	m.appendEvent(state, core.LevelInfo, "refinement started", map[string]any{
		"score":     exp.Winner.Score,
		"threshold": cfg.Quality.Threshold,
	})

	seed := fmt.Sprintf(refineSeedPrompt, prompt, exp.FinalText())
	ref, err := stage.Refine(ctx, caller, evaluator, seed, func(o *stage.RefineOptions) {
		o.MaxAttempts = cfg.Orchestration.MaxIterations
		o.Threshold = cfg.Quality.Threshold
		o.Profile = profile(cfg, "balanced")
	})
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("refinement: %w", err)
	}

	state.mu.Lock()
	state.meta.Refinement = ref
	m.persistLocked(state)
	state.mu.Unlock()

	m.appendEvent(state, core.LevelInfo, "refinement complete", map[string]any{
		"ok":       ref.OK,
		"attempts": ref.Attempts,
	})

	if ref.OK {
		m.finish(state, core.StatusSucceeded, "")
	} else {
		m.finish(state, core.StatusNeedsReview, "")
	}
	return nil
}

// runDual executes the dual-perspective pipeline. Its steps have no failure
// isolation: any error propagates and fails the session.
func (m *Manager) runDual(ctx context.Context, state *sessionState, caller core.Caller, cfg config.Config, prompt string) error {
	m.appendEvent(state, core.LevelInfo, "dual-perspective started", nil)

	res, err := stage.Dual(ctx, caller, stage.DualProfiles{
		Generate:   profile(cfg, "creative"),
		Critique:   profile(cfg, "precise"),
		Synthesize: profile(cfg, "balanced"),
	}, prompt)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dual-perspective: %w", err)
	}

	state.mu.Lock()
	state.meta.Dual = res
	m.persistLocked(state)
	state.mu.Unlock()

	m.appendEvent(state, core.LevelInfo, "dual-perspective complete", map[string]any{
		"draft_len":    res.DraftLen,
		"critique_len": res.CritiqueLen,
		"final_len":    res.FinalLen,
	})

	m.finish(state, core.StatusSucceeded, "")
	return nil
}

// buildVariants expands the configured variant set into concrete prompts,
// trimming the set in fast mode.
func buildVariants(cfg config.Config, prompt string) []stage.Variant {
	configured := cfg.Variants
	if cfg.Orchestration.Mode == config.ModeFast && len(configured) > fastModeVariants {
		configured = configured[:fastModeVariants]
	}

	variants := make([]stage.Variant, 0, len(configured))
	for _, vc := range configured {
		variants = append(variants, stage.Variant{
			Name:    vc.Name,
			Prompt:  fmt.Sprintf("%s\n\nTask:\n%s", vc.Modifier, prompt),
			Profile: profile(cfg, vc.AgentConfig),
		})
	}
	return variants
}

// profile resolves a named agent profile, falling back to "balanced" and
// then to the zero profile.
func profile(cfg config.Config, name string) core.Profile {
	if ac, ok := cfg.Agents[name]; ok {
		return core.Profile{Name: name, Model: ac.Model, Temperature: ac.Temperature}
	}
	if ac, ok := cfg.Agents["balanced"]; ok {
		return core.Profile{Name: "balanced", Model: ac.Model, Temperature: ac.Temperature}
	}
	return core.Profile{}
}
