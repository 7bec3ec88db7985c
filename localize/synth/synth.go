// Package synth completes partial assignments into full, constraint-valid
// test inputs.
package synth

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/example/faultloc/localize/domain"
)

// Checker is the subset of the constraint checker used for synthesis.
type Checker interface {
	IsValid(input domain.Combination) bool
	IsExtensionValid(partial domain.Combination, param, value int) bool
}

// Ordering returns the candidate values for a parameter, most preferred
// first.
type Ordering func(param int, rng *rand.Rand) []int

// Synthesizer fills unset slots of partial assignments.
type Synthesizer struct {
	sizes    []int
	checker  Checker
	rng      *rand.Rand
	attempts int
}

// New creates a Synthesizer. attempts bounds the randomized retries per
// completion.
func New(model *domain.TestModel, checker Checker, rng *rand.Rand, attempts int) *Synthesizer {
	if attempts < 1 {
		attempts = 1
	}
	return &Synthesizer{
		sizes:    model.DomainSizes(),
		checker:  checker,
		rng:      rng,
		attempts: attempts,
	}
}

// Complete returns a valid full input that contains partial.
func (s *Synthesizer) Complete(partial domain.Combination, order Ordering) (domain.Combination, error) {
	return s.CompleteExcept(partial, order, nil)
}

// CompleteExcept is Complete restricted to inputs whose keys are not in
// seen. Randomized attempts come first; when they fail, the completions
// are enumerated in order until an unseen valid one turns up.
// ErrSynthesisExhausted means no unseen valid completion was found.
func (s *Synthesizer) CompleteExcept(partial domain.Combination, order Ordering, seen map[string]bool) (domain.Combination, error) {
	if len(partial) != len(s.sizes) {
		return nil, fmt.Errorf("%w: %s has %d slots, model has %d parameters",
			domain.ErrInvalidCombination, partial, len(partial), len(s.sizes))
	}

	for attempt := 0; attempt < s.attempts; attempt++ {
		input, ok := s.fill(partial, order)
		if !ok || !s.checker.IsValid(input) {
			continue
		}
		if !seen[input.Key()] {
			return input, nil
		}
	}
	budget := enumerationBudget
	if input, ok := s.enumerate(partial.Clone(), 0, order, seen, &budget); ok {
		return input, nil
	}
	return nil, fmt.Errorf("%w: no unseen valid input contains %s after %d attempts",
		domain.ErrSynthesisExhausted, partial, s.attempts)
}

// enumerationBudget bounds the assignments tried by enumerate.
const enumerationBudget = 1 << 16

// enumerate fills the unset slots from param onwards depth first and
// returns the first valid completion not in seen.
func (s *Synthesizer) enumerate(input domain.Combination, param int, order Ordering, seen map[string]bool, budget *int) (domain.Combination, bool) {
	for param < len(input) && input[param] != domain.Unset {
		param++
	}
	if param == len(input) {
		if seen[input.Key()] || !s.checker.IsValid(input) {
			return nil, false
		}
		return input.Clone(), true
	}
	for _, v := range order(param, s.rng) {
		if *budget <= 0 {
			return nil, false
		}
		*budget--
		if v < 0 || v >= s.sizes[param] || !s.checker.IsExtensionValid(input, param, v) {
			continue
		}
		input[param] = v
		if found, ok := s.enumerate(input, param+1, order, seen, budget); ok {
			return found, true
		}
	}
	input[param] = domain.Unset
	return nil, false
}

func (s *Synthesizer) fill(partial domain.Combination, order Ordering) (domain.Combination, bool) {
	input := partial.Clone()
	for _, p := range s.rng.Perm(len(input)) {
		if input[p] != domain.Unset {
			continue
		}
		placed := false
		for _, v := range order(p, s.rng) {
			if v < 0 || v >= s.sizes[p] {
				continue
			}
			if s.checker.IsExtensionValid(input, p, v) {
				input[p] = v
				placed = true
				break
			}
		}
		if !placed {
			return nil, false
		}
	}
	return input, true
}

// Random tries values in uniformly random order.
func Random(sizes []int) Ordering {
	return func(param int, rng *rand.Rand) []int {
		return rng.Perm(sizes[param])
	}
}

// AvoidValues prefers values that differ from reference, in random order,
// and falls back to the reference value last.
func AvoidValues(sizes []int, reference domain.Combination) Ordering {
	return func(param int, rng *rand.Rand) []int {
		values := rng.Perm(sizes[param])
		if param >= len(reference) || reference[param] == domain.Unset {
			return values
		}
		ref := reference[param]
		out := make([]int, 0, len(values))
		for _, v := range values {
			if v != ref {
				out = append(out, v)
			}
		}
		if ref >= 0 && ref < sizes[param] {
			out = append(out, ref)
		}
		return out
	}
}

// LeastUsed prefers the values seen least often in history. Ties are broken
// randomly.
func LeastUsed(sizes []int, history *History) Ordering {
	return func(param int, rng *rand.Rand) []int {
		values := rng.Perm(sizes[param])
		sort.SliceStable(values, func(i, j int) bool {
			return history.Count(param, values[i]) < history.Count(param, values[j])
		})
		return values
	}
}

// History counts how often each parameter value appeared in executed
// inputs.
type History struct {
	counts [][]int
	inputs int
}

// NewHistory creates an empty history for the given domain sizes.
func NewHistory(sizes []int) *History {
	h := &History{counts: make([][]int, len(sizes))}
	for p, n := range sizes {
		h.counts[p] = make([]int, n)
	}
	return h
}

// Record adds an executed input.
func (h *History) Record(input domain.Combination) {
	for p, v := range input {
		if p < len(h.counts) && v >= 0 && v < len(h.counts[p]) {
			h.counts[p][v]++
		}
	}
	h.inputs++
}

// Count returns how often value v of parameter p was recorded.
func (h *History) Count(p, v int) int {
	if p < 0 || p >= len(h.counts) || v < 0 || v >= len(h.counts[p]) {
		return 0
	}
	return h.counts[p][v]
}

// Len returns the number of recorded inputs.
func (h *History) Len() int {
	return h.inputs
}
