// Package constraint implements a forbidden-tuple constraint checker.
//
// A constraint is a partial assignment that must never appear in a test
// input. Confirmed inducing combinations are added as constraints so that
// later inputs steer around faults that are already known.
package constraint

import (
	"fmt"

	"github.com/example/faultloc/localize/domain"
)

// Checker validates full and partial assignments against forbidden tuples.
// It is not safe for concurrent mutation.
type Checker struct {
	sizes     []int
	forbidden []domain.Combination
	keys      map[string]bool
}

// NewChecker creates a checker for the model with the given initial
// forbidden tuples.
func NewChecker(model *domain.TestModel, forbidden ...domain.Combination) (*Checker, error) {
	c := &Checker{
		sizes: model.DomainSizes(),
		keys:  make(map[string]bool),
	}
	for _, f := range forbidden {
		if _, err := c.AddConstraint(f); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddConstraint registers a forbidden tuple. It returns false when the tuple
// was already known.
func (c *Checker) AddConstraint(tuple domain.Combination) (bool, error) {
	if err := c.check(tuple); err != nil {
		return false, err
	}
	key := tuple.Key()
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	c.forbidden = append(c.forbidden, tuple.Clone())
	return true, nil
}

// Constraints returns a copy of the registered forbidden tuples.
func (c *Checker) Constraints() []domain.Combination {
	out := make([]domain.Combination, len(c.forbidden))
	for i, f := range c.forbidden {
		out[i] = f.Clone()
	}
	return out
}

// Len returns the number of forbidden tuples.
func (c *Checker) Len() int {
	return len(c.forbidden)
}

// IsValid reports whether a full input is in range and matches no
// forbidden tuple.
func (c *Checker) IsValid(input domain.Combination) bool {
	if len(input) != len(c.sizes) || !input.IsFull() {
		return false
	}
	for p, v := range input {
		if v >= c.sizes[p] {
			return false
		}
	}
	_, violated := c.Violation(input)
	return !violated
}

// IsExtensionValid reports whether setting param to value in partial keeps
// the assignment free of fully matched forbidden tuples.
func (c *Checker) IsExtensionValid(partial domain.Combination, param, value int) bool {
	if len(partial) != len(c.sizes) || param < 0 || param >= len(c.sizes) {
		return false
	}
	if value < 0 || value >= c.sizes[param] {
		return false
	}
	extended := partial.Clone()
	extended[param] = value
	_, violated := c.Violation(extended)
	return !violated
}

// Violation returns the first forbidden tuple contained in the assignment.
func (c *Checker) Violation(assignment domain.Combination) (domain.Combination, bool) {
	for _, f := range c.forbidden {
		if assignment.Contains(f) {
			return f, true
		}
	}
	return nil, false
}

func (c *Checker) check(tuple domain.Combination) error {
	if len(tuple) != len(c.sizes) {
		return fmt.Errorf("%w: constraint %s has %d slots, model has %d parameters",
			domain.ErrInvalidCombination, tuple, len(tuple), len(c.sizes))
	}
	for p, v := range tuple {
		if v == domain.Unset {
			continue
		}
		if v < 0 || v >= c.sizes[p] {
			return fmt.Errorf("%w: constraint %s: value %d out of range for parameter %d",
				domain.ErrInvalidCombination, tuple, v, p)
		}
	}
	return nil
}

// Excluding returns a copy of the checker without the given tuples.
func (c *Checker) Excluding(tuples ...domain.Combination) *Checker {
	drop := make(map[string]bool, len(tuples))
	for _, t := range tuples {
		drop[t.Key()] = true
	}
	out := &Checker{
		sizes: c.sizes,
		keys:  make(map[string]bool, len(c.keys)),
	}
	for _, f := range c.forbidden {
		key := f.Key()
		if drop[key] {
			continue
		}
		out.keys[key] = true
		out.forbidden = append(out.forbidden, f)
	}
	return out
}
