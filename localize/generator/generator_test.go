package generator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/faultloc/localize/constraint"
	"github.com/example/faultloc/localize/coverage"
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/synth"
)

func TestSuiteGenerator_PlaybackSkipsInvalid(t *testing.T) {
	model := domain.UniformModel("m", 2, 2)
	checker, err := constraint.NewChecker(model)
	require.NoError(t, err)

	suite := []domain.Combination{{0, 0}, {1, 1}, {0, 1}}
	g := NewSuiteGenerator(suite, checker, nil, nil, nil)

	input, ok := g.Next()
	require.True(t, ok)
	assert.Equal(t, domain.Combination{0, 0}, input)

	// A constraint learned mid-run invalidates a pending suite input.
	_, err = checker.AddConstraint(domain.Combination{1, domain.Unset})
	require.NoError(t, err)

	input, ok = g.Next()
	require.True(t, ok)
	assert.Equal(t, domain.Combination{0, 1}, input)
	assert.Equal(t, 1, g.Skipped())
	assert.Equal(t, 0, g.Remaining())

	_, ok = g.Next()
	assert.False(t, ok)
	assert.True(t, g.Exhausted())
}

func TestSuiteGenerator_FillsCoverageGaps(t *testing.T) {
	model := domain.UniformModel("m", 3, 2)
	checker, err := constraint.NewChecker(model)
	require.NoError(t, err)
	cov := coverage.NewMap(model)
	s := synth.New(model, checker, rand.New(rand.NewSource(5)), 10)

	g := NewSuiteGenerator([]domain.Combination{{0, 0, 0}}, checker, cov, s, synth.Random(model.DomainSizes()))

	produced := 0
	for {
		input, ok := g.Next()
		if !ok {
			break
		}
		produced++
		require.Less(t, produced, 20)
		cov.UpdateCoverage(input)
	}
	assert.True(t, cov.AllCombinationsCovered())
	assert.True(t, g.Exhausted())
}

func TestSuiteGenerator_ExcludesInfeasibleTuples(t *testing.T) {
	model := domain.UniformModel("m", 2, 2)
	checker, err := constraint.NewChecker(model, domain.Combination{1, 1})
	require.NoError(t, err)
	cov := coverage.NewMap(model)
	s := synth.New(model, checker, rand.New(rand.NewSource(5)), 5)

	g := NewSuiteGenerator(nil, checker, cov, s, synth.Random(model.DomainSizes()))
	for {
		input, ok := g.Next()
		if !ok {
			break
		}
		assert.NotEqual(t, domain.Combination{1, 1}, input)
		cov.UpdateCoverage(input)
	}
	_, _, excluded := cov.Stats()
	assert.Equal(t, 1, excluded)
}
