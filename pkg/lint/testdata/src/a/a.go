// Package a is a test package for the trt linter.
package a

import (
	"domain"
	"lattice"
)

const last = 2

// Test cases

func negativeIndex() {
	lattice.SubsetOf(0, -1) // want "SubsetOf called with negative index -1"
}

func unsetIndex() {
	lattice.SubsetOf(domain.Unset) // want "SubsetOf called with negative index -1"
}

func duplicateIndex() {
	lattice.SubsetOf(0, last, 2) // want `duplicate index 2 in SubsetOf`
}

func emptyCombination() {
	domain.NewCombination(0) // want "NewCombination called with non-positive size 0"
}

func emptyFullSubset() {
	lattice.FullSubset(-3) // want "FullSubset called with non-positive size -3"
}

func emptyKey() {
	domain.ParseCombination("") // want "ParseCombination called with empty string literal"
}

// Valid cases - should NOT produce warnings

func validSubset(i int) {
	lattice.SubsetOf(0, 1, last+1)
	lattice.SubsetOf(i, i)
}

func validSpread(indices []int) {
	lattice.SubsetOf(indices...)
}

func validCombination(n int) {
	domain.NewCombination(3)
	domain.NewCombination(n)
	domain.ParseCombination("1,_,0")
}
