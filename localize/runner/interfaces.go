package runner

import (
	"context"
	"time"

	"github.com/example/faultloc/localize/domain"
)

// Identifier localizes the inducing combinations of one failing input at a
// time. It is implemented by trt.Engine.
type Identifier interface {
	// StartIdentification begins a round and returns the first probe, or
	// nil when the round resolved without probing.
	StartIdentification(ctx context.Context, input domain.Combination, result *domain.TestResult) (domain.Combination, error)

	// NextTestInput consumes a probe result and returns the next probe, or
	// nil when the round is complete.
	NextTestInput(ctx context.Context, probe domain.Combination, result *domain.TestResult) (domain.Combination, error)

	// RestartIdentification starts a new round for the same failing input.
	RestartIdentification(ctx context.Context) (domain.Combination, error)

	// IdentifiedCombinations returns the combinations proven minimal so far.
	IdentifiedCombinations() domain.CombinationMap

	// RecordPassing adds an input to the passing corpus.
	RecordPassing(input domain.Combination)
}

// ConstraintChecker validates inputs and learns forbidden tuples.
type ConstraintChecker interface {
	IsValid(input domain.Combination) bool
	IsExtensionValid(partial domain.Combination, param, value int) bool
	AddConstraint(tuple domain.Combination) (bool, error)
}

// CoverageMap tracks t-way coverage of executed inputs.
type CoverageMap interface {
	UpdateCoverage(input domain.Combination) int
	ExcludeCombination(c domain.Combination) int
	AllCombinationsCovered() bool
}

// Generator yields Generation-phase inputs.
type Generator interface {
	// Next returns the next input, or false when generation is exhausted.
	Next() (domain.Combination, bool)
}

// Verifier re-tests identified candidates.
type Verifier interface {
	Start(candidates domain.CombinationMap, executed map[string]bool)
	Next(ctx context.Context) (domain.Combination, error)
	Submit(input domain.Combination, result *domain.TestResult) error
	Confirmed() domain.CombinationMap
	Discarded() domain.CombinationMap
}

// Classifier attributes exception types to exception-inducing
// combinations.
type Classifier interface {
	Start(candidates domain.CombinationMap)
	Next(ctx context.Context) (domain.Combination, error)
	Submit(input domain.Combination, result *domain.TestResult) error
	Classes() map[string]domain.ExceptionClass
}

// Executor runs a full test input against the system under test.
type Executor interface {
	// Execute runs the input. An error means the input could not be run at
	// all; test failures are reported through the result.
	Execute(ctx context.Context, input domain.Combination) (*domain.TestResult, error)
}

// ResultCache remembers execution results so that no input runs twice.
type ResultCache interface {
	// Get returns the cached result for an input.
	Get(ctx context.Context, input domain.Combination) (*domain.TestResult, bool, error)

	// Put stores the result of an input executed during phase.
	Put(ctx context.Context, input domain.Combination, phase domain.Phase, result *domain.TestResult) error
}

// Recorder persists run progress.
type Recorder interface {
	// Begin records a new run.
	Begin(ctx context.Context, run *domain.Run) error

	// Progress records the run's current phase and counters.
	Progress(ctx context.Context, run *domain.Run) error

	// Finish records the final report.
	Finish(ctx context.Context, run *domain.Run, report *domain.Report) error
}

// ExecConfig specifies how a CommandExecutor runs the test command.
type ExecConfig struct {
	// Command is the shell command to execute.
	Command string

	// Timeout is the maximum time to wait for one execution.
	Timeout time.Duration

	// ExceptionExitCode marks a declared constraint-violation exception.
	// Zero disables exception detection.
	ExceptionExitCode int

	// Environment contains additional environment variables.
	Environment map[string]string

	// WorkDir is the directory to run the command in.
	WorkDir string
}
