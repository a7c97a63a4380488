package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scored struct {
	name  string
	score float64
}

func TestBest_UniqueMaximum(t *testing.T) {
	items := []scored{{"a", 0.2}, {"b", 0.9}, {"c", 0.5}}

	best, ok := Best(items, func(s scored) float64 { return s.score })

	require.True(t, ok)
	assert.Equal(t, "b", best.name)
}

func TestBest_TieKeepsEarliest(t *testing.T) {
	items := []scored{{"first", 0.7}, {"second", 0.7}, {"third", 0.3}}

	best, ok := Best(items, func(s scored) float64 { return s.score })

	require.True(t, ok)
	assert.Equal(t, "first", best.name)
}

func TestBest_EmptyInput(t *testing.T) {
	_, ok := Best(nil, func(s scored) float64 { return s.score })
	assert.False(t, ok)
}

func TestBest_SingleElement(t *testing.T) {
	best, ok := Best([]scored{{"only", 0}}, func(s scored) float64 { return s.score })
	require.True(t, ok)
	assert.Equal(t, "only", best.name)
}
