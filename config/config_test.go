package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_NestedMapsMergeRecursively(t *testing.T) {
	dst := map[string]any{
		"orchestration": map[string]any{"mode": "standard", "parallelConcurrency": 3},
		"quality":       map[string]any{"threshold": 0.8},
	}
	src := map[string]any{
		"orchestration": map[string]any{"mode": "fast"},
	}

	out := Merge(dst, src)

	orch := out["orchestration"].(map[string]any)
	assert.Equal(t, "fast", orch["mode"])
	assert.Equal(t, 3, orch["parallelConcurrency"], "sibling keys survive the merge")
	assert.Equal(t, 0.8, out["quality"].(map[string]any)["threshold"])
}

func TestMerge_ArraysReplacedWholesale(t *testing.T) {
	dst := map[string]any{"variants": []any{"a", "b", "c"}}
	src := map[string]any{"variants": []any{"x"}}

	out := Merge(dst, src)

	assert.Equal(t, []any{"x"}, out["variants"])
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	dst := map[string]any{"quality": map[string]any{"threshold": 0.8}}
	src := map[string]any{"quality": map[string]any{"threshold": 0.5}}

	_ = Merge(dst, src)

	assert.Equal(t, 0.8, dst["quality"].(map[string]any)["threshold"])
}

func TestResolve_LayerPrecedence(t *testing.T) {
	persisted := map[string]any{
		"quality":       map[string]any{"threshold": 0.9},
		"orchestration": map[string]any{"maxIterations": 5},
	}
	request := map[string]any{
		"quality": map[string]any{"threshold": 0.6},
	}

	cfg, err := Resolve(persisted, request)
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Quality.Threshold, "request layer wins")
	assert.Equal(t, 5, cfg.Orchestration.MaxIterations, "persisted layer beats defaults")
	assert.Equal(t, 3, cfg.Orchestration.ParallelConcurrency, "defaults fill the rest")
}

func TestResolve_DefaultsAreComplete(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ModeStandard, cfg.Orchestration.Mode)
	assert.Equal(t, 0.8, cfg.Quality.Threshold)
	assert.NotEmpty(t, cfg.Agents)
	assert.NotEmpty(t, cfg.Variants)
	assert.Equal(t, 5*time.Minute, cfg.Caching.TTL)
}

func TestResolve_RejectsInvalidValues(t *testing.T) {
	_, err := Resolve(nil, map[string]any{
		"orchestration": map[string]any{"mode": "warp"},
	})
	require.Error(t, err)

	_, err = Resolve(nil, map[string]any{
		"quality": map[string]any{"threshold": 1.5},
	})
	require.Error(t, err)

	_, err = Resolve(nil, map[string]any{
		"orchestration": map[string]any{"parallelConcurrency": 0},
	})
	require.Error(t, err)
}

func TestLoadFile_ReadsYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quality:\n  threshold: 0.95\n"), 0o600))

	overrides, err := LoadFile(path)
	require.NoError(t, err)

	cfg, err := Resolve(overrides, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.95, cfg.Quality.Threshold)
}

func TestLoadFile_CamelCaseKeysSurviveLowercasing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"orchestration:\n  maxIterations: 7\n  parallelConcurrency: 9\nbudget:\n  maxModelCalls: 11\n"), 0o600))

	overrides, err := LoadFile(path)
	require.NoError(t, err)

	orch, ok := overrides["orchestration"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, orch, "maxIterations", "keys come back in canonical form")
	assert.NotContains(t, orch, "maxiterations")

	cfg, err := Resolve(overrides, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Orchestration.MaxIterations)
	assert.Equal(t, 9, cfg.Orchestration.ParallelConcurrency)
	assert.Equal(t, 11, cfg.Budget.MaxModelCalls)
}

func TestLoadFile_VariantListKeysCanonicalized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"variants:\n  - name: solo\n    modifier: Just answer.\n    agentConfig: precise\n"), 0o600))

	overrides, err := LoadFile(path)
	require.NoError(t, err)

	cfg, err := Resolve(overrides, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Variants, 1)
	assert.Equal(t, "solo", cfg.Variants[0].Name)
	assert.Equal(t, "precise", cfg.Variants[0].AgentConfig)
}

func TestLoadFile_EmptyPathIsNoOverrides(t *testing.T) {
	overrides, err := LoadFile("")
	require.NoError(t, err)
	assert.Nil(t, overrides)
}
