package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubsetBasics(t *testing.T) {
	s := SubsetOf(3, 0, 70)

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(0))
	assert.True(t, s.Has(3))
	assert.True(t, s.Has(70))
	assert.False(t, s.Has(1))
	assert.False(t, s.Has(-1))
	assert.False(t, s.Has(500))
	assert.Equal(t, []int{0, 3, 70}, s.Indices())
	assert.Equal(t, 70, s.Max())
	assert.Equal(t, "{0,3,70}", s.String())
}

func TestSubsetImmutable(t *testing.T) {
	s := SubsetOf(1, 2)
	grown := s.With(5)
	shrunk := s.Without(1)

	assert.Equal(t, []int{1, 2}, s.Indices(), "receiver must not change")
	assert.Equal(t, []int{1, 2, 5}, grown.Indices())
	assert.Equal(t, []int{2}, shrunk.Indices())
}

func TestSubsetContainment(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Subset
		subset     bool
		strict     bool
		equalSizes bool
	}{
		{"strict", SubsetOf(1), SubsetOf(1, 2), true, true, false},
		{"equal", SubsetOf(1, 2), SubsetOf(2, 1), true, false, true},
		{"disjoint", SubsetOf(0), SubsetOf(1, 2), false, false, false},
		{"empty in anything", Subset{}, SubsetOf(4), true, true, false},
		{"wide words", SubsetOf(65), SubsetOf(1, 65, 130), true, true, false},
		{"larger not subset", SubsetOf(1, 2, 3), SubsetOf(1, 2), false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.subset, tc.a.IsSubsetOf(tc.b))
			assert.Equal(t, tc.strict, tc.a.IsStrictSubsetOf(tc.b))
			assert.Equal(t, tc.equalSizes, tc.a.Equal(tc.b))
		})
	}
}

func TestSubsetKeyIgnoresTrailingWords(t *testing.T) {
	a := SubsetOf(2)
	b := SubsetOf(2, 100).Without(100)

	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Equal(b))
}

func TestFullSubset(t *testing.T) {
	s := FullSubset(67)
	assert.Equal(t, 67, s.Len())
	assert.Equal(t, 66, s.Max())
	assert.Equal(t, -1, Subset{}.Max())
}
