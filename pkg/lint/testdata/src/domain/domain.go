// Package domain is a stub for testing the trt linter.
package domain

// Unset marks a parameter slot that is not fixed.
const Unset = -1

// Combination is a partial assignment.
type Combination []int

// NewCombination returns a combination with every slot unset.
func NewCombination(size int) Combination { return nil }

// ParseCombination parses a combination key.
func ParseCombination(key string) (Combination, error) { return nil, nil }
