package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModify is returned when an optimistic update loses a race.
	ErrConcurrentModify = errors.New("concurrent modification")

	// ErrInvalidState is returned when an operation is not allowed in the current phase.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidModel is returned when a test model is unusable.
	ErrInvalidModel = errors.New("invalid test model")

	// ErrInvalidCombination is returned when a combination does not fit the model.
	ErrInvalidCombination = errors.New("invalid combination")

	// ErrMissingResult is returned when an input that must carry a result has none.
	ErrMissingResult = errors.New("missing test result")

	// ErrBuildTimeout is returned when lattice construction exceeds its deadline.
	ErrBuildTimeout = errors.New("lattice build exceeded time limit")

	// ErrSearchTimeout is returned when the longest-path search exceeds its deadline.
	ErrSearchTimeout = errors.New("path search exceeded time limit")

	// ErrSynthesisExhausted is returned when no constraint-satisfying input
	// could be synthesized within the retry budget.
	ErrSynthesisExhausted = errors.New("input synthesis exhausted")

	// ErrNoFailingInput is returned when identification starts from a passing input.
	ErrNoFailingInput = errors.New("input did not fail")

	// ErrTestExecutionFailed is returned when an input could not be executed at all.
	ErrTestExecutionFailed = errors.New("test execution failed")

	// ErrRunNotFound is returned when a run record doesn't exist.
	ErrRunNotFound = errors.New("run not found")
)
