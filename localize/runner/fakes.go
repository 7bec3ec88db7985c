package runner

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/example/faultloc/localize/domain"
)

// FakeExecutor is a test double for Executor.
// It simulates outcomes from configured inducing combinations and a flake
// rate.
type FakeExecutor struct {
	mu sync.RWMutex

	// Faults fail any input containing them with a generic failure.
	Faults []domain.Combination

	// Exceptions fail any input containing them with a constraint-violation
	// cause of the mapped type.
	Exceptions map[string]string

	// FlakeRate is the probability of a random flake (0-1).
	// Both false positives and false negatives use this rate.
	FlakeRate float64

	// Delay adds artificial delay to Execute calls.
	Delay time.Duration

	// Seed is the random seed for reproducibility (0 for random).
	Seed int64

	// Executed tracks all executed inputs in order.
	Executed []domain.Combination

	rng *rand.Rand
}

// NewFakeExecutor creates a new FakeExecutor where every input passes.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		Exceptions: make(map[string]string),
	}
}

// WithFaults adds failure-inducing combinations.
func (e *FakeExecutor) WithFaults(faults ...domain.Combination) *FakeExecutor {
	e.Faults = append(e.Faults, faults...)
	return e
}

// WithException adds an exception-inducing combination raising causeType.
func (e *FakeExecutor) WithException(c domain.Combination, causeType string) *FakeExecutor {
	e.Exceptions[c.Key()] = causeType
	return e
}

// WithFlakeRate sets the flake rate.
func (e *FakeExecutor) WithFlakeRate(rate float64) *FakeExecutor {
	e.FlakeRate = rate
	return e
}

// WithSeed sets the random seed for reproducibility.
func (e *FakeExecutor) WithSeed(seed int64) *FakeExecutor {
	e.Seed = seed
	return e
}

// WithDelay sets an artificial delay for executions.
func (e *FakeExecutor) WithDelay(delay time.Duration) *FakeExecutor {
	e.Delay = delay
	return e
}

// Execute implements Executor.
func (e *FakeExecutor) Execute(ctx context.Context, input domain.Combination) (*domain.TestResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Initialize RNG if needed
	if e.rng == nil {
		if e.Seed == 0 {
			e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		} else {
			e.rng = rand.New(rand.NewSource(e.Seed))
		}
	}

	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e.Executed = append(e.Executed, input.Clone())

	result := e.outcome(input)
	if e.FlakeRate > 0 && e.rng.Float64() < e.FlakeRate {
		if result.IsFailing() {
			result = domain.Success()
		} else {
			result = domain.Failure("flake")
		}
	}
	result.Duration = time.Millisecond
	return result, nil
}

func (e *FakeExecutor) outcome(input domain.Combination) *domain.TestResult {
	// Exceptions take precedence so that their type is observable.
	for _, key := range sortedKeys(e.Exceptions) {
		c, err := domain.ParseCombination(key)
		if err == nil && input.Contains(c) {
			return domain.ConstraintViolation(e.Exceptions[key])
		}
	}
	for _, f := range e.Faults {
		if input.Contains(f) {
			return domain.Failure("assertion")
		}
	}
	return domain.Success()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns how many times input was executed.
func (e *FakeExecutor) Count(input domain.Combination) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, x := range e.Executed {
		if x.Equal(input) {
			n++
		}
	}
	return n
}

// Executions returns the number of executions so far.
func (e *FakeExecutor) Executions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.Executed)
}

// Reset clears all state.
func (e *FakeExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Executed = nil
	e.rng = nil
}

// FakeRecorder is a test double for Recorder.
type FakeRecorder struct {
	mu sync.Mutex

	Runs     []string
	Phases   []domain.Phase
	Reports  []*domain.Report
	FailWith error
}

// Begin implements Recorder.
func (r *FakeRecorder) Begin(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.Runs = append(r.Runs, run.ID)
	return nil
}

// Progress implements Recorder.
func (r *FakeRecorder) Progress(ctx context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Phases = append(r.Phases, run.Phase)
	return nil
}

// Finish implements Recorder.
func (r *FakeRecorder) Finish(ctx context.Context, run *domain.Run, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Reports = append(r.Reports, report)
	return nil
}

// FakeIDGenerator generates sequential IDs for testing.
type FakeIDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

// NewFakeIDGenerator creates a FakeIDGenerator.
func NewFakeIDGenerator(prefix string) *FakeIDGenerator {
	return &FakeIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *FakeIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}
