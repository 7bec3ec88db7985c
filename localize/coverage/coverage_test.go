package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/faultloc/localize/domain"
)

func TestParameterSubsets(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {1, 2}}, parameterSubsets(3, 2))
	assert.Equal(t, [][]int{{0}, {1}}, parameterSubsets(2, 1))
	assert.Nil(t, parameterSubsets(2, 3))
	assert.Len(t, parameterSubsets(6, 3), 20)
}

func TestMap_PairwiseBoolean(t *testing.T) {
	model := domain.UniformModel("m", 3, 2)
	m := NewMap(model)

	total, covered, excluded := m.Stats()
	assert.Equal(t, 12, total)
	assert.Equal(t, 0, covered)
	assert.Equal(t, 0, excluded)

	assert.Equal(t, 3, m.UpdateCoverage(domain.Combination{0, 0, 0}))
	assert.Equal(t, 0, m.UpdateCoverage(domain.Combination{0, 0, 0}))
	assert.Equal(t, 3, m.UpdateCoverage(domain.Combination{0, 1, 1}))
	assert.Equal(t, 3, m.UpdateCoverage(domain.Combination{1, 0, 1}))
	assert.Equal(t, 1, m.UpdateCoverage(domain.Combination{1, 1, 1}))
	assert.False(t, m.AllCombinationsCovered())
	assert.Len(t, m.Uncovered(), 2)

	assert.Equal(t, 2, m.UpdateCoverage(domain.Combination{1, 1, 0}))
	uncovered := m.Uncovered()
	require.Len(t, uncovered, 0)
	assert.True(t, m.AllCombinationsCovered())
}

func TestMap_ExcludeCombination(t *testing.T) {
	model := domain.UniformModel("m", 3, 2)
	m := NewMap(model)

	// (1,_,1) appears in one pair tuple only.
	assert.Equal(t, 1, m.ExcludeCombination(domain.Combination{1, domain.Unset, 1}))
	// p0=1 appears in four tuples, one of them already excluded.
	assert.Equal(t, 3, m.ExcludeCombination(domain.Combination{1, domain.Unset, domain.Unset}))

	total, covered, excluded := m.Stats()
	assert.Equal(t, 12, total)
	assert.Equal(t, 0, covered)
	assert.Equal(t, 4, excluded)
	for _, tuple := range m.Uncovered() {
		assert.NotEqual(t, 1, tuple[0])
	}
}

func TestMap_StrengthClamped(t *testing.T) {
	model := domain.UniformModel("m", 2, 3)
	model.Strength = 5
	m := NewMap(model)
	assert.Equal(t, 2, m.Strength())

	total, _, _ := m.Stats()
	assert.Equal(t, 9, total)
}
