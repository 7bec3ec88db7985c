package domain

import "time"

// TestOutcome represents the result of a single test execution.
type TestOutcome int

const (
	OutcomeUnknown            TestOutcome = iota
	OutcomeSuccess                        // Test passed
	OutcomeFailure                        // Test failed with a cause
	OutcomeExceptionalSuccess             // Test raised an expected (declared) exception
)

func (o TestOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeFailure:
		return "FAILURE"
	case OutcomeExceptionalSuccess:
		return "EXCEPTIONAL_SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// ParseOutcome is the inverse of TestOutcome.String.
func ParseOutcome(s string) TestOutcome {
	switch s {
	case "SUCCESS":
		return OutcomeSuccess
	case "FAILURE":
		return OutcomeFailure
	case "EXCEPTIONAL_SUCCESS":
		return OutcomeExceptionalSuccess
	default:
		return OutcomeUnknown
	}
}

// Cause describes why an execution did not succeed.
type Cause struct {
	// Type is the exception or failure type (e.g. "IllegalArgument", "exit-3").
	Type string

	// Message is a free-form description.
	Message string

	// ConstraintViolation marks a declared constraint-violation exception
	// as opposed to a generic failure.
	ConstraintViolation bool
}

// TestResult captures the outcome of executing one full test input.
type TestResult struct {
	// Outcome is the tri-state result.
	Outcome TestOutcome

	// Cause is set for failures and exceptional successes.
	Cause *Cause

	// Duration is how long the execution took.
	Duration time.Duration

	// Logs contains any captured output.
	Logs string

	// ExecutedAt is when the input was executed.
	ExecutedAt time.Time
}

// Success returns a passing result.
func Success() *TestResult {
	return &TestResult{Outcome: OutcomeSuccess, ExecutedAt: time.Now().UTC()}
}

// Failure returns a generic failing result with the given cause type.
func Failure(causeType string) *TestResult {
	return &TestResult{
		Outcome:    OutcomeFailure,
		Cause:      &Cause{Type: causeType},
		ExecutedAt: time.Now().UTC(),
	}
}

// ConstraintViolation returns an exceptional success: the input was
// rejected with a declared constraint-violation exception.
func ConstraintViolation(causeType string) *TestResult {
	return &TestResult{
		Outcome:    OutcomeExceptionalSuccess,
		Cause:      &Cause{Type: causeType, ConstraintViolation: true},
		ExecutedAt: time.Now().UTC(),
	}
}

// IsSuccess reports whether the execution passed.
func (r *TestResult) IsSuccess() bool {
	return r != nil && r.Outcome == OutcomeSuccess
}

// IsFailing reports whether the execution is evidence of an inducing
// combination (anything other than a plain success).
func (r *TestResult) IsFailing() bool {
	return r != nil && (r.Outcome == OutcomeFailure || r.Outcome == OutcomeExceptionalSuccess)
}

// IsExceptional reports whether the execution ended in a declared
// constraint-violation exception.
func (r *TestResult) IsExceptional() bool {
	if r == nil {
		return false
	}
	return r.Outcome == OutcomeExceptionalSuccess || (r.Cause != nil && r.Cause.ConstraintViolation)
}

// CauseType returns the cause type, or "" when there is none.
func (r *TestResult) CauseType() string {
	if r == nil || r.Cause == nil {
		return ""
	}
	return r.Cause.Type
}
