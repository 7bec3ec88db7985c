package domain

import "sort"

// Status is the classification of a sub-combination within one
// identification round.
type Status int

const (
	StatusUnknown     Status = iota // Not yet classified
	StatusHealthy                   // Observed in a passing input
	StatusFaulty                    // Induces a generic failure
	StatusExceptional               // Induces a constraint-violation exception
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "HEALTHY"
	case StatusFaulty:
		return "FAULTY"
	case StatusExceptional:
		return "EXCEPTIONAL"
	default:
		return "UNKNOWN"
	}
}

// IsInducing reports whether the status marks a failure- or
// exception-inducing combination.
func (s Status) IsInducing() bool {
	return s == StatusFaulty || s == StatusExceptional
}

// Kind returns the combination kind for an inducing status.
func (s Status) Kind() Kind {
	if s == StatusExceptional {
		return KindExceptionInducing
	}
	return KindFailureInducing
}

// Kind distinguishes failure-inducing from exception-inducing combinations.
type Kind int

const (
	KindFailureInducing Kind = iota
	KindExceptionInducing
)

func (k Kind) String() string {
	if k == KindExceptionInducing {
		return "EXCEPTION_INDUCING"
	}
	return "FAILURE_INDUCING"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) Kind {
	if s == "EXCEPTION_INDUCING" {
		return KindExceptionInducing
	}
	return KindFailureInducing
}

// IdentifiedCombination is a minimal inducing sub-combination.
type IdentifiedCombination struct {
	Combination Combination
	Kind        Kind
}

// CombinationMap maps Combination.Key() to identified combinations.
type CombinationMap map[string]IdentifiedCombination

// Add records a combination, keeping the first kind seen for it.
func (m CombinationMap) Add(c Combination, kind Kind) {
	key := c.Key()
	if _, ok := m[key]; ok {
		return
	}
	m[key] = IdentifiedCombination{Combination: c.Clone(), Kind: kind}
}

// AddMinimal records c unless an entry is contained in it, and removes the
// entries that contain c. It reports whether c was added.
func (m CombinationMap) AddMinimal(c Combination, kind Kind) bool {
	if m.AnyContainedIn(c) {
		return false
	}
	for key, ic := range m {
		if ic.Combination.Contains(c) {
			delete(m, key)
		}
	}
	m.Add(c, kind)
	return true
}

// Has reports whether the combination is present.
func (m CombinationMap) Has(c Combination) bool {
	_, ok := m[c.Key()]
	return ok
}

// Merge adds every entry of other.
func (m CombinationMap) Merge(other CombinationMap) {
	for _, ic := range other {
		m.Add(ic.Combination, ic.Kind)
	}
}

// AnyContainedIn reports whether some combination in the map is contained
// in the given input.
func (m CombinationMap) AnyContainedIn(input Combination) bool {
	for _, ic := range m {
		if input.Contains(ic.Combination) {
			return true
		}
	}
	return false
}

// Sorted returns the entries ordered by key.
func (m CombinationMap) Sorted() []IdentifiedCombination {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]IdentifiedCombination, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
