// Package evaluation scores agent responses. It defines the Scorer and
// Evaluator collaborator interfaces consumed by the orchestration stages and
// a ModelEvaluator that grades responses with a second agent call.
package evaluation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/taskmesh/core"
)

// Scorer reduces a response to a scalar quality score in [0,1].
type Scorer interface {
	Score(ctx context.Context, response string) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, response string) (float64, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, response string) (float64, error) {
	return f(ctx, response)
}

// Evaluator produces a structured quality assessment of a response.
type Evaluator interface {
	Evaluate(ctx context.Context, response string) (core.Evaluation, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, response string) (core.Evaluation, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, response string) (core.Evaluation, error) {
	return f(ctx, response)
}

// Parse extracts an Evaluation from a grading agent's raw output. It accepts
// either a bare number or a JSON object with totalScore and optional
// metrics.{correctness,performance,style}; the object may be wrapped in
// surrounding prose or a code fence. Scores are clamped to [0,1].
func Parse(raw string) (core.Evaluation, error) {
	trimmed := strings.TrimSpace(raw)

	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return core.Evaluation{TotalScore: clamp(v)}, nil
	}

	obj := firstJSONObject(trimmed)
	if obj == "" || !gjson.Valid(obj) {
		return core.Evaluation{}, fmt.Errorf("no score found in evaluation output")
	}

	total := gjson.Get(obj, "totalScore")
	if !total.Exists() {
		total = gjson.Get(obj, "score")
	}
	if !total.Exists() {
		return core.Evaluation{}, fmt.Errorf("evaluation output has no totalScore")
	}

	ev := core.Evaluation{TotalScore: clamp(total.Float())}
	if metrics := gjson.Get(obj, "metrics"); metrics.IsObject() {
		ev.Metrics = &core.Metrics{
			Correctness: clamp(metrics.Get("correctness").Float()),
			Performance: clamp(metrics.Get("performance").Float()),
			Style:       clamp(metrics.Get("style").Float()),
		}
	}
	return ev, nil
}

// firstJSONObject returns the first balanced {...} block in s, or "".
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
