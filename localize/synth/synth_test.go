package synth

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/faultloc/localize/constraint"
	"github.com/example/faultloc/localize/domain"
)

func newSynth(t *testing.T, model *domain.TestModel, forbidden ...domain.Combination) *Synthesizer {
	t.Helper()
	checker, err := constraint.NewChecker(model, forbidden...)
	require.NoError(t, err)
	return New(model, checker, rand.New(rand.NewSource(1)), 20)
}

func TestComplete_KeepsFixedValues(t *testing.T) {
	model := domain.UniformModel("m", 5, 3)
	s := newSynth(t, model)

	partial := domain.Combination{2, domain.Unset, 1, domain.Unset, domain.Unset}
	for i := 0; i < 20; i++ {
		input, err := s.Complete(partial, Random(model.DomainSizes()))
		require.NoError(t, err)
		assert.True(t, input.IsFull())
		assert.True(t, input.Contains(partial))
	}
}

func TestComplete_RespectsConstraints(t *testing.T) {
	model := domain.UniformModel("m", 3, 2)
	s := newSynth(t, model, domain.Combination{1, 0, domain.Unset})

	for i := 0; i < 20; i++ {
		input, err := s.Complete(domain.Combination{1, domain.Unset, domain.Unset}, Random(model.DomainSizes()))
		require.NoError(t, err)
		assert.Equal(t, 1, input[1], "p1=0 is forbidden with p0=1")
	}
}

func TestComplete_Exhausted(t *testing.T) {
	model := domain.UniformModel("m", 2, 2)
	s := newSynth(t, model,
		domain.Combination{1, 0},
		domain.Combination{1, 1})

	_, err := s.Complete(domain.Combination{1, domain.Unset}, Random(model.DomainSizes()))
	assert.ErrorIs(t, err, domain.ErrSynthesisExhausted)

	_, err = s.Complete(domain.Combination{1}, Random(model.DomainSizes()))
	assert.ErrorIs(t, err, domain.ErrInvalidCombination)
}

func TestCompleteExcept_SkipsSeen(t *testing.T) {
	model := domain.UniformModel("m", 2, 2)
	s := newSynth(t, model)

	seen := map[string]bool{"1,0": true}
	input, err := s.CompleteExcept(domain.Combination{1, domain.Unset}, Random(model.DomainSizes()), seen)
	require.NoError(t, err)
	assert.Equal(t, domain.Combination{1, 1}, input)

	// Every completion seen: nothing is replayed.
	seen["1,1"] = true
	_, err = s.CompleteExcept(domain.Combination{1, domain.Unset}, Random(model.DomainSizes()), seen)
	assert.ErrorIs(t, err, domain.ErrSynthesisExhausted)

	// A full combination only completes to itself.
	_, err = s.CompleteExcept(domain.Combination{1, 1}, Random(model.DomainSizes()), seen)
	assert.ErrorIs(t, err, domain.ErrSynthesisExhausted)
}

func TestCompleteExcept_EnumeratesWhenSamplingRepeats(t *testing.T) {
	model := domain.UniformModel("m", 4, 2)
	checker, err := constraint.NewChecker(model)
	require.NoError(t, err)
	s := New(model, checker, rand.New(rand.NewSource(3)), 1)

	// AvoidValues over booleans always samples 0,0,0,0 first.
	order := AvoidValues(model.DomainSizes(), domain.Combination{1, 1, 1, 1})
	partial := domain.NewCombination(4)
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		input, err := s.CompleteExcept(partial, order, seen)
		require.NoError(t, err, "completion %d", i)
		require.False(t, seen[input.Key()], "%s returned twice", input)
		seen[input.Key()] = true
	}
	_, err = s.CompleteExcept(partial, order, seen)
	assert.ErrorIs(t, err, domain.ErrSynthesisExhausted)
}

func TestAvoidValues(t *testing.T) {
	sizes := []int{3, 3}
	order := AvoidValues(sizes, domain.Combination{2, domain.Unset})
	rng := rand.New(rand.NewSource(7))

	values := order(0, rng)
	require.Len(t, values, 3)
	assert.Equal(t, 2, values[2], "reference value is tried last")
	assert.ElementsMatch(t, []int{0, 1, 2}, values)

	assert.ElementsMatch(t, []int{0, 1, 2}, order(1, rng))
}

func TestLeastUsed(t *testing.T) {
	sizes := []int{3}
	h := NewHistory(sizes)
	h.Record(domain.Combination{0})
	h.Record(domain.Combination{0})
	h.Record(domain.Combination{1})
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Count(0, 0))
	assert.Equal(t, 0, h.Count(4, 0))

	values := LeastUsed(sizes, h)(0, rand.New(rand.NewSource(3)))
	assert.Equal(t, []int{2, 1, 0}, values)
}
