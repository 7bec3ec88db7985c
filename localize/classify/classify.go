// Package classify attributes an exception type to each exception-inducing
// combination.
package classify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/example/faultloc/localize/constraint"
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/synth"
)

// TypeClassifier re-tests each exception-inducing combination a fixed
// number of times and keeps the majority cause type.
type TypeClassifier struct {
	model    *domain.TestModel
	checker  *constraint.Checker
	rng      *rand.Rand
	order    synth.Ordering
	attempts int
	checks   int
	logger   *zap.Logger

	pending []domain.IdentifiedCombination
	current *classification
	classes map[string]domain.ExceptionClass
}

type classification struct {
	candidate domain.IdentifiedCombination
	synth     *synth.Synthesizer
	votes     map[string]int
	executed  int
	input     domain.Combination
	tried     map[string]bool
}

// New creates a TypeClassifier. Confirmed combinations are usually
// registered as constraints by the time classification runs, so each
// candidate is synthesized against checker minus the candidate itself.
func New(model *domain.TestModel, checker *constraint.Checker, rng *rand.Rand, order synth.Ordering, config domain.Config, logger *zap.Logger) *TypeClassifier {
	config = config.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeClassifier{
		model:    model,
		checker:  checker,
		rng:      rng,
		order:    order,
		attempts: config.SynthesisAttempts,
		checks:   config.ClassificationChecks,
		logger:   logger,
		classes:  make(map[string]domain.ExceptionClass),
	}
}

// Start queues the exception-inducing entries of candidates.
func (c *TypeClassifier) Start(candidates domain.CombinationMap) {
	c.pending = c.pending[:0]
	for _, ic := range candidates.Sorted() {
		if ic.Kind == domain.KindExceptionInducing {
			c.pending = append(c.pending, ic)
		}
	}
	c.current = nil
}

// Next returns the next classification input, or nil when done.
func (c *TypeClassifier) Next(ctx context.Context) (domain.Combination, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.current == nil {
			if len(c.pending) == 0 {
				return nil, nil
			}
			ic := c.pending[0]
			c.pending = c.pending[1:]
			c.current = &classification{
				candidate: ic,
				synth:     synth.New(c.model, c.checker.Excluding(ic.Combination), c.rng, c.attempts),
				votes:     make(map[string]int),
				tried:     make(map[string]bool),
			}
		}
		if c.current.input != nil {
			return c.current.input, nil
		}

		cur := c.current
		input, err := cur.synth.CompleteExcept(cur.candidate.Combination, c.order, cur.tried)
		if err != nil {
			if !errors.Is(err, domain.ErrSynthesisExhausted) {
				return nil, err
			}
			c.logger.Debug("classification abandoned",
				zap.Stringer("combination", cur.candidate.Combination),
				zap.Error(err))
			c.finish()
			continue
		}
		cur.input = input
		cur.tried[input.Key()] = true
		return input, nil
	}
}

// Submit records the result of the outstanding classification input.
func (c *TypeClassifier) Submit(input domain.Combination, result *domain.TestResult) error {
	if c.current == nil || c.current.input == nil {
		return fmt.Errorf("%w: no classification outstanding", domain.ErrInvalidState)
	}
	if result == nil {
		return fmt.Errorf("%w: classification input %s", domain.ErrMissingResult, input)
	}
	if !input.Equal(c.current.input) {
		return fmt.Errorf("%w: result for %s, expected %s",
			domain.ErrInvalidState, input, c.current.input)
	}

	cur := c.current
	cur.input = nil
	cur.executed++
	if result.IsFailing() {
		cur.votes[result.CauseType()]++
	}
	if cur.executed >= c.checks {
		c.finish()
	}
	return nil
}

func (c *TypeClassifier) finish() {
	cur := c.current
	c.current = nil
	if cur.executed == 0 {
		return
	}
	typ, votes := Majority(cur.votes)
	c.classes[cur.candidate.Combination.Key()] = domain.ExceptionClass{
		Type:   typ,
		Votes:  votes,
		Checks: cur.executed,
	}
	c.logger.Debug("combination classified",
		zap.Stringer("combination", cur.candidate.Combination),
		zap.String("type", typ),
		zap.Int("votes", votes),
		zap.Int("checks", cur.executed))
}

// Done reports whether every queued combination is classified.
func (c *TypeClassifier) Done() bool {
	return c.current == nil && len(c.pending) == 0
}

// Classes returns the classification results keyed by combination key.
func (c *TypeClassifier) Classes() map[string]domain.ExceptionClass {
	return c.classes
}

// Majority returns the type with the most votes. Ties go to the
// lexicographically first type. An empty tally yields "".
func Majority(votes map[string]int) (string, int) {
	best, bestVotes := "", 0
	for typ, n := range votes {
		if n > bestVotes || (n == bestVotes && typ < best) {
			best, bestVotes = typ, n
		}
	}
	return best, bestVotes
}
