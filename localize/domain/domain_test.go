package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombination_Contains(t *testing.T) {
	input := Combination{1, 0, 1}
	tests := []struct {
		name string
		sub  Combination
		want bool
	}{
		{"empty", NewCombination(3), true},
		{"itself", Combination{1, 0, 1}, true},
		{"pair", Combination{1, Unset, 1}, true},
		{"mismatch", Combination{Unset, 1, Unset}, false},
		{"longer", Combination{1, 0, 1, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, input.Contains(tt.sub))
		})
	}
}

func TestCombination_KeyRoundTrip(t *testing.T) {
	c := Combination{2, Unset, 0, Unset}
	assert.Equal(t, "2,_,0,_", c.Key())
	assert.Equal(t, "[2,_,0,_]", c.String())

	parsed, err := ParseCombination(c.Key())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(c))

	for _, bad := range []string{"1,x", "1,-2", ",,"} {
		_, err := ParseCombination(bad)
		assert.ErrorIs(t, err, ErrInvalidCombination, bad)
	}
}

func TestCombination_Helpers(t *testing.T) {
	c := Combination{Unset, 3, Unset, 1}
	assert.False(t, c.IsFull())
	assert.False(t, c.IsEmpty())
	assert.Equal(t, 2, c.NumFixed())
	assert.Equal(t, []int{1, 3}, c.FixedParameters())

	full := Combination{4, 3, 2, 1}
	assert.True(t, full.IsFull())
	assert.Equal(t, Combination{4, Unset, 2, Unset}, full.Restrict([]int{0, 2, 9}))

	clone := full.Clone()
	clone[0] = 0
	assert.Equal(t, 4, full[0])
	assert.True(t, NewCombination(2).IsEmpty())
}

func TestPhase_CanTransition(t *testing.T) {
	allowed := map[Phase][]Phase{
		PhaseGeneration:     {PhaseIdentification, PhaseClassification, PhaseComplete},
		PhaseIdentification: {PhaseVerification, PhaseGeneration},
		PhaseVerification:   {PhaseGeneration, PhaseIdentification},
		PhaseClassification: {PhaseComplete},
		PhaseComplete:       nil,
	}
	for from := PhaseGeneration; from <= PhaseComplete; from++ {
		for to := PhaseGeneration; to <= PhaseComplete; to++ {
			want := false
			for _, p := range allowed[from] {
				if p == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
		assert.Equal(t, from, ParsePhase(from.String()))
	}
}

func TestRun_SetPhase(t *testing.T) {
	run := NewRun("run-1", "model")
	assert.Equal(t, PhaseGeneration, run.Phase)

	require.NoError(t, run.SetPhase(PhaseComplete))
	err := run.SetPhase(PhaseGeneration)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.MaxIterations)
	assert.Equal(t, 10, cfg.DiscardThreshold(Combination{1, Unset}))
	assert.Equal(t, 30, cfg.DiscardThreshold(NewCombination(2)))

	partial := Config{VerificationThreshold: 4}.WithDefaults()
	assert.Equal(t, 4, partial.VerificationThreshold)
	assert.Equal(t, 30, partial.EmptyCombinationThreshold)
	assert.False(t, partial.EnableClassification)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"max iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"threshold", func(c *Config) { c.LargeModelThreshold = 0 }},
		{"ceiling", func(c *Config) { c.LayerCeiling = 0 }},
		{"build timeout", func(c *Config) { c.BuildTimeout = 0 }},
		{"search timeout", func(c *Config) { c.SearchTimeout = -1 }},
		{"workers", func(c *Config) { c.Workers = -1 }},
		{"synthesis", func(c *Config) { c.SynthesisAttempts = 0 }},
		{"verification", func(c *Config) { c.VerificationThreshold = -1 }},
		{"empty", func(c *Config) { c.EmptyCombinationThreshold = -1 }},
		{"checks", func(c *Config) { c.ClassificationChecks = 0 }},
		{"restarts", func(c *Config) { c.MaxRestarts = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestTestModel(t *testing.T) {
	m := &TestModel{
		Name:     "checkout",
		Strength: 3,
		Parameters: []Parameter{
			{Name: "browser", Values: []string{"chrome", "firefox"}},
			{Name: "os", Values: []string{"linux", "mac"}},
		},
	}
	require.NoError(t, m.Validate())
	assert.Equal(t, 2, m.EffectiveStrength())
	assert.Equal(t, "{browser=firefox}", m.Describe(Combination{1, Unset}))
	assert.Equal(t, 1, m.ParameterIndex("os"))
	assert.Equal(t, 1, m.ValueIndex(1, "mac"))

	m.Parameters = append(m.Parameters, Parameter{Name: "os", Values: []string{"x"}})
	assert.ErrorIs(t, m.Validate(), ErrInvalidModel)
	assert.ErrorIs(t, (&TestModel{Strength: 2}).Validate(), ErrInvalidModel)
}

func TestResults(t *testing.T) {
	assert.True(t, Success().IsSuccess())
	assert.False(t, Success().IsFailing())

	f := Failure("assertion")
	assert.True(t, f.IsFailing())
	assert.False(t, f.IsExceptional())
	assert.Equal(t, "assertion", f.CauseType())

	cv := ConstraintViolation("Overflow")
	assert.Equal(t, OutcomeExceptionalSuccess, cv.Outcome)
	assert.False(t, cv.IsSuccess())
	assert.True(t, cv.IsFailing())
	assert.True(t, cv.IsExceptional())
	assert.Equal(t, OutcomeExceptionalSuccess, ParseOutcome(cv.Outcome.String()))

	// The outcome alone marks an exception.
	bare := &TestResult{Outcome: OutcomeExceptionalSuccess}
	assert.True(t, bare.IsExceptional())

	var missing *TestResult
	assert.False(t, missing.IsFailing())
	assert.Equal(t, "", missing.CauseType())
}

func keys(m CombinationMap) []string {
	var out []string
	for _, ic := range m.Sorted() {
		out = append(out, ic.Combination.Key())
	}
	return out
}

func TestCombinationMap(t *testing.T) {
	m := CombinationMap{}
	m.Add(Combination{1, Unset}, KindExceptionInducing)
	m.Add(Combination{1, Unset}, KindFailureInducing)
	m.Add(Combination{Unset, 0}, KindFailureInducing)

	assert.Equal(t, KindExceptionInducing, m["1,_"].Kind, "first kind wins")
	assert.True(t, m.Has(Combination{Unset, 0}))
	assert.True(t, m.AnyContainedIn(Combination{1, 1}))
	assert.False(t, m.AnyContainedIn(Combination{0, 1}))

	sorted := m.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "1,_", sorted[0].Combination.Key())
	assert.Equal(t, "_,0", sorted[1].Combination.Key())

	// Supersets give way to a newly added subset; later supersets are
	// rejected.
	minimal := CombinationMap{}
	require.True(t, minimal.AddMinimal(Combination{1, 1, Unset}, KindFailureInducing))
	require.True(t, minimal.AddMinimal(Combination{0, Unset, 0}, KindFailureInducing))
	require.True(t, minimal.AddMinimal(Combination{1, Unset, Unset}, KindFailureInducing))
	assert.False(t, minimal.AddMinimal(Combination{1, Unset, 1}, KindFailureInducing))
	assert.False(t, minimal.AddMinimal(Combination{1, Unset, Unset}, KindExceptionInducing))
	assert.Equal(t, []string{"0,_,0", "1,_,_"}, keys(minimal))

	assert.True(t, StatusFaulty.IsInducing())
	assert.False(t, StatusHealthy.IsInducing())
	assert.Equal(t, KindExceptionInducing, StatusExceptional.Kind())
}
