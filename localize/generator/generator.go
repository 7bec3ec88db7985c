// Package generator supplies Generation-phase inputs.
//
// A SuiteGenerator plays back a supplied test suite (typically a covering
// array produced elsewhere) and then fills remaining coverage gaps one
// tuple at a time. It does not construct covering arrays itself.
package generator

import (
	"errors"

	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/synth"
)

// Validator rejects inputs that violate learned constraints.
type Validator interface {
	IsValid(input domain.Combination) bool
}

// Coverage is the part of the coverage map the generator consults.
type Coverage interface {
	AllCombinationsCovered() bool
	Uncovered() []domain.Combination
	ExcludeCombination(c domain.Combination) int
}

// SuiteGenerator yields suite inputs in order, skipping any the validator
// now rejects, then synthesizes inputs for uncovered tuples.
type SuiteGenerator struct {
	suite     []domain.Combination
	pos       int
	validator Validator
	coverage  Coverage
	synth     *synth.Synthesizer
	order     synth.Ordering
	skipped   int
}

// NewSuiteGenerator creates a generator. coverage and s may be nil, in
// which case only the suite is played back.
func NewSuiteGenerator(suite []domain.Combination, validator Validator, coverage Coverage, s *synth.Synthesizer, order synth.Ordering) *SuiteGenerator {
	return &SuiteGenerator{
		suite:     suite,
		validator: validator,
		coverage:  coverage,
		synth:     s,
		order:     order,
	}
}

// Next returns the next input, or false when generation is exhausted.
func (g *SuiteGenerator) Next() (domain.Combination, bool) {
	for g.pos < len(g.suite) {
		input := g.suite[g.pos]
		g.pos++
		if g.validator.IsValid(input) {
			return input.Clone(), true
		}
		g.skipped++
	}

	if g.coverage == nil || g.synth == nil {
		return nil, false
	}
	for !g.coverage.AllCombinationsCovered() {
		tuple := g.coverage.Uncovered()[0]
		input, err := g.synth.Complete(tuple, g.order)
		if err == nil {
			return input, true
		}
		if !errors.Is(err, domain.ErrSynthesisExhausted) {
			return nil, false
		}
		// No valid input contains the tuple.
		g.coverage.ExcludeCombination(tuple)
	}
	return nil, false
}

// Exhausted reports whether Next would return false without synthesizing.
func (g *SuiteGenerator) Exhausted() bool {
	if g.pos < len(g.suite) {
		return false
	}
	return g.coverage == nil || g.synth == nil || g.coverage.AllCombinationsCovered()
}

// Skipped returns how many suite inputs were dropped as invalid.
func (g *SuiteGenerator) Skipped() int {
	return g.skipped
}

// Remaining returns how many suite inputs have not been played back.
func (g *SuiteGenerator) Remaining() int {
	return len(g.suite) - g.pos
}
