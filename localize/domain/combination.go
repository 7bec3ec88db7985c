package domain

import (
	"strconv"
	"strings"
)

// Unset marks a parameter slot that is not fixed ("don't care").
const Unset = -1

// Combination is a (possibly partial) assignment of value indices to
// parameters. Slot i holds the value index for parameter i, or Unset.
// A combination with every slot set is a full test input.
type Combination []int

// NewCombination returns a combination of the given size with every slot unset.
func NewCombination(size int) Combination {
	c := make(Combination, size)
	for i := range c {
		c[i] = Unset
	}
	return c
}

// Clone returns an independent copy of the combination.
func (c Combination) Clone() Combination {
	out := make(Combination, len(c))
	copy(out, c)
	return out
}

// IsFull reports whether every slot is set.
func (c Combination) IsFull() bool {
	for _, v := range c {
		if v == Unset {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no slot is set.
func (c Combination) IsEmpty() bool {
	for _, v := range c {
		if v != Unset {
			return false
		}
	}
	return true
}

// NumFixed returns the number of set slots.
func (c Combination) NumFixed() int {
	n := 0
	for _, v := range c {
		if v != Unset {
			n++
		}
	}
	return n
}

// FixedParameters returns the indices of set slots in ascending order.
func (c Combination) FixedParameters() []int {
	params := make([]int, 0, len(c))
	for i, v := range c {
		if v != Unset {
			params = append(params, i)
		}
	}
	return params
}

// Contains reports whether every set slot of sub holds the same value in c.
// The empty combination is contained in everything.
func (c Combination) Contains(sub Combination) bool {
	for i, v := range sub {
		if v == Unset {
			continue
		}
		if i >= len(c) || c[i] != v {
			return false
		}
	}
	return true
}

// Restrict returns the sub-combination of c over the given parameters.
func (c Combination) Restrict(params []int) Combination {
	out := NewCombination(len(c))
	for _, p := range params {
		if p >= 0 && p < len(c) {
			out[p] = c[p]
		}
	}
	return out
}

// Equal reports whether both combinations assign the same slots.
func (c Combination) Equal(other Combination) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns a stable string identity usable as a map key.
func (c Combination) Key() string {
	var b strings.Builder
	for i, v := range c {
		if i > 0 {
			b.WriteByte(',')
		}
		if v == Unset {
			b.WriteByte('_')
			continue
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// String renders the combination as [v0,v1,_,...].
func (c Combination) String() string {
	return "[" + c.Key() + "]"
}

// ParseCombination parses a key produced by Key.
func ParseCombination(key string) (Combination, error) {
	if key == "" {
		return Combination{}, nil
	}
	parts := strings.Split(key, ",")
	c := make(Combination, len(parts))
	for i, part := range parts {
		if part == "_" {
			c[i] = Unset
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return nil, ErrInvalidCombination
		}
		c[i] = v
	}
	return c, nil
}
