package domain

import (
	"fmt"
	"time"
)

// Phase is the orchestration phase of a localization run.
type Phase int

const (
	PhaseGeneration     Phase = iota // Executing the initial test suite
	PhaseIdentification              // Localizing the cause of a failing input
	PhaseVerification                // Re-checking candidates for false positives
	PhaseClassification              // Disambiguating exception types
	PhaseComplete                    // Nothing left to execute
)

func (p Phase) String() string {
	switch p {
	case PhaseGeneration:
		return "GENERATION"
	case PhaseIdentification:
		return "IDENTIFICATION"
	case PhaseVerification:
		return "VERIFICATION"
	case PhaseClassification:
		return "CLASSIFICATION"
	case PhaseComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) Phase {
	for p := PhaseGeneration; p <= PhaseComplete; p++ {
		if p.String() == s {
			return p
		}
	}
	return PhaseGeneration
}

// IsTerminal returns true if this is a final phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete
}

// CanTransition reports whether the state machine allows moving from p to next.
func (p Phase) CanTransition(next Phase) bool {
	switch p {
	case PhaseGeneration:
		return next == PhaseIdentification || next == PhaseClassification || next == PhaseComplete
	case PhaseIdentification:
		return next == PhaseVerification || next == PhaseGeneration
	case PhaseVerification:
		return next == PhaseGeneration || next == PhaseIdentification
	case PhaseClassification:
		return next == PhaseComplete
	default:
		return false
	}
}

// PhaseTransition records one state machine transition.
type PhaseTransition struct {
	From Phase
	To   Phase
	At   time.Time
}

// ExceptionClass is the exception type attributed to an exception-inducing
// combination during classification.
type ExceptionClass struct {
	// Type is the majority cause type.
	Type string

	// Votes is the number of checks that observed Type.
	Votes int

	// Checks is the number of checks executed.
	Checks int
}

// Report summarizes a completed localization run.
type Report struct {
	// RunID identifies the run.
	RunID string

	// Confirmed are the verified minimal inducing combinations.
	Confirmed CombinationMap

	// Discarded are candidates dropped as false positives.
	Discarded CombinationMap

	// ExceptionClasses maps Combination.Key() to classification results.
	ExceptionClasses map[string]ExceptionClass

	// Executions is the number of inputs actually executed.
	Executions int

	// CacheHits is the number of inputs answered from the result cache.
	CacheHits int

	// Rounds is the number of identification rounds started.
	Rounds int

	// Transitions is the phase history.
	Transitions []PhaseTransition

	// CompletedAt is when the run finished.
	CompletedAt time.Time
}

// Run is a persisted localization run record.
type Run struct {
	ID         string
	ModelName  string
	Phase      Phase
	Executions int
	CacheHits  int
	Rounds     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int
}

// NewRun creates a new run record in the generation phase.
func NewRun(id, modelName string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        id,
		ModelName: modelName,
		Phase:     PhaseGeneration,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// SetPhase transitions the run to a new phase.
func (r *Run) SetPhase(next Phase) error {
	if r.Phase.IsTerminal() {
		return fmt.Errorf("%w: cannot transition from terminal phase %s",
			ErrInvalidState, r.Phase)
	}
	r.Phase = next
	r.UpdatedAt = time.Now().UTC()
	return nil
}
