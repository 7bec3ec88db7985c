// Package verify re-tests candidate inducing combinations in dissimilar
// inputs to weed out false positives.
package verify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/synth"
)

// Checker verifies candidates one at a time. A single failing check
// confirms a candidate; more passing checks than the discard threshold
// drop it. Check inputs are never inputs already executed in the run, so a
// replayed failure cannot confirm a candidate.
type Checker struct {
	synth   *synth.Synthesizer
	order   synth.Ordering
	config  domain.Config
	logger  *zap.Logger
	metrics *observability.Metrics

	pending   []domain.IdentifiedCombination
	current   *check
	confirmed domain.CombinationMap
	discarded domain.CombinationMap
	seen      map[string]bool
}

type check struct {
	candidate domain.IdentifiedCombination
	passes    int
	input     domain.Combination
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the checker's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithMetrics counts discarded candidates.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// New creates a Checker. order chooses the values outside each candidate,
// typically synth.LeastUsed over the execution history.
func New(s *synth.Synthesizer, order synth.Ordering, config domain.Config, opts ...Option) *Checker {
	c := &Checker{
		synth:     s,
		order:     order,
		config:    config.WithDefaults(),
		logger:    zap.NewNop(),
		confirmed: make(domain.CombinationMap),
		discarded: make(domain.CombinationMap),
		seen:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start queues candidates for verification, in key order, and clears the
// results of any previous verification. executed holds the keys of the
// inputs already run; none of them is chosen as a check input.
func (c *Checker) Start(candidates domain.CombinationMap, executed map[string]bool) {
	c.pending = candidates.Sorted()
	c.current = nil
	c.confirmed = make(domain.CombinationMap)
	c.discarded = make(domain.CombinationMap)
	c.seen = make(map[string]bool, len(executed))
	for k := range executed {
		c.seen[k] = true
	}
}

// Next returns the next check input, or nil when every candidate is
// decided.
func (c *Checker) Next(ctx context.Context) (domain.Combination, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.current == nil {
			if len(c.pending) == 0 {
				return nil, nil
			}
			c.current = &check{candidate: c.pending[0]}
			c.pending = c.pending[1:]
		}
		if c.current.input != nil {
			return c.current.input, nil
		}

		input, err := c.synth.CompleteExcept(c.current.candidate.Combination, c.order, c.seen)
		if err != nil {
			if !errors.Is(err, domain.ErrSynthesisExhausted) {
				return nil, err
			}
			c.logger.Debug("candidate dropped, no check input",
				zap.Stringer("candidate", c.current.candidate.Combination),
				zap.Error(err))
			c.discard()
			continue
		}
		c.current.input = input
		c.seen[input.Key()] = true
		return input, nil
	}
}

// Submit records the result of the outstanding check input.
func (c *Checker) Submit(input domain.Combination, result *domain.TestResult) error {
	if c.current == nil || c.current.input == nil {
		return fmt.Errorf("%w: no check outstanding", domain.ErrInvalidState)
	}
	if result == nil {
		return fmt.Errorf("%w: check %s", domain.ErrMissingResult, input)
	}
	if !input.Equal(c.current.input) {
		return fmt.Errorf("%w: result for %s, expected %s",
			domain.ErrInvalidState, input, c.current.input)
	}

	cur := c.current
	cur.input = nil
	if result.IsFailing() {
		c.confirmed.Add(cur.candidate.Combination, cur.candidate.Kind)
		c.logger.Debug("candidate confirmed",
			zap.Stringer("candidate", cur.candidate.Combination),
			zap.Stringer("kind", cur.candidate.Kind),
			zap.Int("passes", cur.passes))
		c.current = nil
		return nil
	}

	cur.passes++
	if cur.passes > c.config.DiscardThreshold(cur.candidate.Combination) {
		c.logger.Debug("candidate discarded",
			zap.Stringer("candidate", cur.candidate.Combination),
			zap.Int("passes", cur.passes))
		c.discard()
	}
	return nil
}

func (c *Checker) discard() {
	c.discarded.Add(c.current.candidate.Combination, c.current.candidate.Kind)
	if c.metrics != nil {
		c.metrics.Discarded().Inc()
	}
	c.current = nil
}

// Done reports whether every candidate is decided.
func (c *Checker) Done() bool {
	return c.current == nil && len(c.pending) == 0
}

// Confirmed returns the candidates that reproduced a failure.
func (c *Checker) Confirmed() domain.CombinationMap {
	return c.confirmed
}

// Discarded returns the candidates dropped as false positives.
func (c *Checker) Discarded() domain.CombinationMap {
	return c.discarded
}
