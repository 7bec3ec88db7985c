package lattice

import (
	"math/bits"
	"strconv"
	"strings"
)

// Subset is an immutable bitset over parameter indices: the set of
// parameters a sub-combination fixes. Methods never modify the receiver.
type Subset struct {
	words []uint64
}

// SubsetOf returns the subset holding the given parameter indices.
// Negative indices are ignored.
func SubsetOf(indices ...int) Subset {
	var s Subset
	for _, i := range indices {
		if i < 0 {
			continue
		}
		s = s.With(i)
	}
	return s
}

// FullSubset returns the subset {0, ..., n-1}.
func FullSubset(n int) Subset {
	s := Subset{words: make([]uint64, (n+63)/64)}
	for i := 0; i < n; i++ {
		s.words[i/64] |= 1 << uint(i%64)
	}
	return s
}

// With returns a copy of s with index i added.
func (s Subset) With(i int) Subset {
	w := i / 64
	size := len(s.words)
	if w+1 > size {
		size = w + 1
	}
	words := make([]uint64, size)
	copy(words, s.words)
	words[w] |= 1 << uint(i%64)
	return Subset{words: words}
}

// Without returns a copy of s with index i removed.
func (s Subset) Without(i int) Subset {
	words := make([]uint64, len(s.words))
	copy(words, s.words)
	if w := i / 64; w < len(words) {
		words[w] &^= 1 << uint(i%64)
	}
	return Subset{words: words}
}

// Has reports whether index i is in the subset.
func (s Subset) Has(i int) bool {
	if i < 0 {
		return false
	}
	w := i / 64
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<uint(i%64)) != 0
}

// Len returns the number of indices in the subset.
func (s Subset) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Max returns the largest index in the subset, or -1 when empty.
func (s Subset) Max() int {
	for w := len(s.words) - 1; w >= 0; w-- {
		if s.words[w] != 0 {
			return w*64 + 63 - bits.LeadingZeros64(s.words[w])
		}
	}
	return -1
}

// Indices returns the indices in ascending order.
func (s Subset) Indices() []int {
	out := make([]int, 0, s.Len())
	for w, word := range s.words {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			out = append(out, w*64+b)
			word &= word - 1
		}
	}
	return out
}

// IsSubsetOf reports whether every index of s is in other.
func (s Subset) IsSubsetOf(other Subset) bool {
	for w, word := range s.words {
		var o uint64
		if w < len(other.words) {
			o = other.words[w]
		}
		if word&^o != 0 {
			return false
		}
	}
	return true
}

// IsStrictSubsetOf reports whether s is a subset of other and smaller.
func (s Subset) IsStrictSubsetOf(other Subset) bool {
	return s.IsSubsetOf(other) && s.Len() < other.Len()
}

// Equal reports whether both subsets hold the same indices.
func (s Subset) Equal(other Subset) bool {
	return s.IsSubsetOf(other) && other.IsSubsetOf(s)
}

// Key returns a stable string identity, independent of trailing zero words.
func (s Subset) Key() string {
	idx := s.Indices()
	var b strings.Builder
	for i, v := range idx {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// String renders the subset as {i,j,...}.
func (s Subset) String() string {
	return "{" + s.Key() + "}"
}
