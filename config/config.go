// Package config implements the layered orchestration configuration. A
// resolved Config is built by deep-merging three layers in order: built-in
// defaults, persisted overrides (file or store blob) and per-request
// overrides. Object values merge key-by-key recursively; every other value
// type, arrays included, is replaced wholesale by the later layer.
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Config is the resolved configuration snapshot attached to a session.
type Config struct {
	Orchestration OrchestrationConfig    `json:"orchestration" mapstructure:"orchestration"`
	Quality       QualityConfig          `json:"quality" mapstructure:"quality"`
	Agents        map[string]AgentConfig `json:"agents" mapstructure:"agents"`
	Variants      []VariantConfig        `json:"variants" mapstructure:"variants"`
	Caching       CachingConfig          `json:"caching" mapstructure:"caching"`
	Budget        BudgetConfig           `json:"budget" mapstructure:"budget"`
}

// OrchestrationConfig controls the pipeline shape.
type OrchestrationConfig struct {
	// ParallelConcurrency bounds the exploration worker pool.
	ParallelConcurrency int `json:"parallelConcurrency" mapstructure:"parallelConcurrency"`
	// MaxIterations bounds the refinement loop.
	MaxIterations int `json:"maxIterations" mapstructure:"maxIterations"`
	// Mode is one of "standard", "fast" or "dual".
	Mode string `json:"mode" mapstructure:"mode"`
}

// QualityConfig holds the acceptance threshold for refinement.
type QualityConfig struct {
	Threshold float64 `json:"threshold" mapstructure:"threshold"`
}

// AgentConfig is a named agent profile.
type AgentConfig struct {
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
}

// VariantConfig describes one exploration variant: a prompt modifier plus the
// name of the agent profile it runs under.
type VariantConfig struct {
	Name        string `json:"name" mapstructure:"name"`
	Modifier    string `json:"modifier" mapstructure:"modifier"`
	AgentConfig string `json:"agentConfig" mapstructure:"agentConfig"`
}

// CachingConfig enables response caching for repeated identical agent calls.
type CachingConfig struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `json:"ttl" mapstructure:"ttl"`
}

// BudgetConfig caps resource usage per orchestration run.
type BudgetConfig struct {
	// MaxModelCalls caps agent calls per run; 0 means unlimited.
	MaxModelCalls int `json:"maxModelCalls" mapstructure:"maxModelCalls"`
}

// Modes accepted by OrchestrationConfig.Mode.
const (
	ModeStandard = "standard"
	ModeFast     = "fast"
	ModeDual     = "dual"
)

// defaults is the built-in base layer, expressed as a map so it participates
// in the same merge as the override layers.
func defaults() map[string]any {
	return map[string]any{
		"orchestration": map[string]any{
			"parallelConcurrency": 3,
			"maxIterations":       3,
			"mode":                ModeStandard,
		},
		"quality": map[string]any{
			"threshold": 0.8,
		},
		"agents": map[string]any{
			"balanced": map[string]any{"model": "claude-3-5-sonnet-20241022", "temperature": 0.7},
			"creative": map[string]any{"model": "claude-3-5-sonnet-20241022", "temperature": 1.0},
			"precise":  map[string]any{"model": "claude-3-5-sonnet-20241022", "temperature": 0.2},
		},
		"variants": []any{
			map[string]any{"name": "direct", "modifier": "Answer the task directly and completely.", "agentConfig": "balanced"},
			map[string]any{"name": "analytical", "modifier": "Break the task down step by step before answering.", "agentConfig": "precise"},
			map[string]any{"name": "creative", "modifier": "Explore an unconventional approach to the task.", "agentConfig": "creative"},
			map[string]any{"name": "robust", "modifier": "Handle every edge case you can think of.", "agentConfig": "precise"},
		},
		"caching": map[string]any{
			"enabled": false,
			"ttl":     "5m",
		},
		"budget": map[string]any{
			"maxModelCalls": 0,
		},
	}
}

// Default returns the fully resolved built-in configuration.
func Default() Config {
	cfg, err := Resolve(nil, nil)
	if err != nil {
		// defaults() must always decode
		panic(err)
	}
	return cfg
}

// Resolve merges defaults, the persisted override layer and the per-request
// override layer (either may be nil) and decodes the result.
func Resolve(persisted, request map[string]any) (Config, error) {
	merged := Merge(defaults(), persisted)
	merged = Merge(merged, request)

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, fmt.Errorf("build config decoder: %w", err)
	}
	if err := dec.Decode(merged); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Orchestration.ParallelConcurrency < 1 {
		return fmt.Errorf("orchestration.parallelConcurrency must be >= 1, got %d", c.Orchestration.ParallelConcurrency)
	}
	if c.Orchestration.MaxIterations < 1 {
		return fmt.Errorf("orchestration.maxIterations must be >= 1, got %d", c.Orchestration.MaxIterations)
	}
	switch c.Orchestration.Mode {
	case ModeStandard, ModeFast, ModeDual:
	default:
		return fmt.Errorf("orchestration.mode %q is not one of standard, fast, dual", c.Orchestration.Mode)
	}
	if c.Quality.Threshold < 0 || c.Quality.Threshold > 1 {
		return fmt.Errorf("quality.threshold must be in [0,1], got %v", c.Quality.Threshold)
	}
	return nil
}

// Merge deep-merges src over dst and returns the result without mutating
// either input. Nested maps merge recursively; any other value in src,
// slices included, replaces the dst value wholesale.
func Merge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		srcMap, srcOK := v.(map[string]any)
		dstMap, dstOK := out[k].(map[string]any)
		if srcOK && dstOK {
			out[k] = Merge(dstMap, srcMap)
			continue
		}
		out[k] = v
	}
	return out
}
