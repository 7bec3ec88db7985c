// Package coverage tracks which t-way value tuples of a test model have
// appeared in executed inputs.
package coverage

import (
	"sort"

	"github.com/example/faultloc/localize/domain"
)

// Map is a t-way coverage map. Tuples that contain a forbidden combination
// are excluded and never need covering.
type Map struct {
	sizes     []int
	strength  int
	subsets   [][]int
	uncovered map[string]domain.Combination
	total     int
	excluded  int
}

// NewMap enumerates every t-way tuple of the model, where t is the model
// strength clamped to the parameter count.
func NewMap(model *domain.TestModel) *Map {
	m := &Map{
		sizes:     model.DomainSizes(),
		strength:  model.EffectiveStrength(),
		uncovered: make(map[string]domain.Combination),
	}
	m.subsets = parameterSubsets(len(m.sizes), m.strength)
	for _, params := range m.subsets {
		m.enumerate(params, 0, domain.NewCombination(len(m.sizes)))
	}
	m.total = len(m.uncovered)
	return m
}

func (m *Map) enumerate(params []int, i int, tuple domain.Combination) {
	if i == len(params) {
		m.uncovered[tuple.Key()] = tuple.Clone()
		return
	}
	p := params[i]
	for v := 0; v < m.sizes[p]; v++ {
		tuple[p] = v
		m.enumerate(params, i+1, tuple)
	}
	tuple[p] = domain.Unset
}

// parameterSubsets returns all size-t subsets of [0, n) in lexicographic
// order.
func parameterSubsets(n, t int) [][]int {
	if t <= 0 || t > n {
		return nil
	}
	var out [][]int
	cur := make([]int, 0, t)
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == t {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for p := start; p <= n-(t-len(cur)); p++ {
			cur = append(cur, p)
			rec(p + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

// Strength returns the tuple size tracked.
func (m *Map) Strength() int {
	return m.strength
}

// UpdateCoverage marks every tuple of a full input as covered. It returns
// the number of newly covered tuples.
func (m *Map) UpdateCoverage(input domain.Combination) int {
	if len(input) != len(m.sizes) {
		return 0
	}
	covered := 0
	for _, params := range m.subsets {
		key := input.Restrict(params).Key()
		if _, ok := m.uncovered[key]; ok {
			delete(m.uncovered, key)
			covered++
		}
	}
	return covered
}

// ExcludeCombination drops every uncovered tuple containing c. It returns
// the number of tuples dropped.
func (m *Map) ExcludeCombination(c domain.Combination) int {
	dropped := 0
	for key, tuple := range m.uncovered {
		if tuple.Contains(c) {
			delete(m.uncovered, key)
			dropped++
		}
	}
	m.excluded += dropped
	return dropped
}

// AllCombinationsCovered reports whether nothing is left to cover.
func (m *Map) AllCombinationsCovered() bool {
	return len(m.uncovered) == 0
}

// Uncovered returns the uncovered tuples ordered by key.
func (m *Map) Uncovered() []domain.Combination {
	keys := make([]string, 0, len(m.uncovered))
	for k := range m.uncovered {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.Combination, len(keys))
	for i, k := range keys {
		out[i] = m.uncovered[k].Clone()
	}
	return out
}

// Stats reports total, covered and excluded tuple counts.
func (m *Map) Stats() (total, covered, excluded int) {
	return m.total, m.total - m.excluded - len(m.uncovered), m.excluded
}
