// Package lattice is a stub for testing the trt linter.
package lattice

// Subset is a set of parameter indices.
type Subset struct{}

// SubsetOf returns the subset holding the given indices.
func SubsetOf(indices ...int) Subset { return Subset{} }

// FullSubset returns the subset {0, ..., n-1}.
func FullSubset(n int) Subset { return Subset{} }
