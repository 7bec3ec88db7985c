// Package trt implements fault identification over the
// Tuple-Relationship-Tree.
//
// An Engine localizes the minimal inducing sub-combinations of one failing
// input at a time. It is a synchronous pull generator: the caller executes
// each probe it returns and hands back the result before the next probe is
// chosen. Only the longest-path search runs on worker goroutines, and those
// read a snapshot of the round's statuses.
package trt

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/lattice"
	"github.com/example/faultloc/localize/synth"
)

// Engine runs identification rounds against a shared template lattice.
type Engine struct {
	lattice *lattice.Lattice
	model   *domain.TestModel
	synth   *synth.Synthesizer
	config  domain.Config
	logger  *zap.Logger
	metrics *observability.Metrics

	// passing is the corpus of passing inputs, shared across rounds.
	passing []domain.Combination

	// Round state.
	failing  domain.Combination
	result   *domain.TestResult
	statuses []domain.Status
	skipped  map[lattice.NodeID]bool
	search   *pathSearch
	trial    *trial
	active   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records probe and search metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine for the model. The lattice must have been built for
// the model's parameter count.
func New(l *lattice.Lattice, model *domain.TestModel, s *synth.Synthesizer, config domain.Config, opts ...Option) (*Engine, error) {
	if l.NumParameters() != model.NumParameters() {
		return nil, fmt.Errorf("%w: lattice built for %d parameters, model has %d",
			domain.ErrInvalidModel, l.NumParameters(), model.NumParameters())
	}
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		lattice: l,
		model:   model,
		synth:   s,
		config:  config,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RecordPassing adds an input to the passing corpus used to seed Healthy
// statuses at the start of each round.
func (e *Engine) RecordPassing(input domain.Combination) {
	e.passing = append(e.passing, input.Clone())
}

// Active reports whether a round is in progress.
func (e *Engine) Active() bool {
	return e.active
}

// StartIdentification begins a round for a failing input. It returns the
// first probe, or nil when the round resolved without probing.
func (e *Engine) StartIdentification(ctx context.Context, input domain.Combination, result *domain.TestResult) (domain.Combination, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: failing input %s", domain.ErrMissingResult, input)
	}
	if !result.IsFailing() {
		return nil, fmt.Errorf("%w: %s finished with %s", domain.ErrNoFailingInput, input, result.Outcome)
	}
	if len(input) != e.model.NumParameters() || !input.IsFull() {
		return nil, fmt.Errorf("%w: %s is not a full input for %d parameters",
			domain.ErrInvalidCombination, input, e.model.NumParameters())
	}

	e.failing = input.Clone()
	e.result = result
	e.seed()
	e.active = true

	e.logger.Debug("identification started",
		zap.Stringer("input", e.failing),
		zap.Stringer("root", e.statuses[e.lattice.Root()]),
		zap.Int("passing", len(e.passing)))
	return e.advance(ctx)
}

// RestartIdentification starts a new round for the current failing input,
// taking into account passing inputs recorded since the last start.
func (e *Engine) RestartIdentification(ctx context.Context) (domain.Combination, error) {
	if e.failing == nil {
		return nil, fmt.Errorf("%w: no identification to restart", domain.ErrInvalidState)
	}
	if e.metrics != nil {
		e.metrics.Restarts().Inc()
	}
	return e.StartIdentification(ctx, e.failing, e.result)
}

// NextTestInput consumes the result of the last probe and returns the next
// one, or nil when the round is complete.
func (e *Engine) NextTestInput(ctx context.Context, probe domain.Combination, result *domain.TestResult) (domain.Combination, error) {
	if !e.active || e.trial == nil {
		return nil, fmt.Errorf("%w: no probe outstanding", domain.ErrInvalidState)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: probe %s", domain.ErrMissingResult, probe)
	}
	if !probe.Equal(e.trial.input) {
		return nil, fmt.Errorf("%w: result for %s, expected %s",
			domain.ErrInvalidState, probe, e.trial.input)
	}

	t := e.trial
	if e.metrics != nil {
		e.metrics.Probes().WithLabels(result.Outcome.String()).Inc()
	}

	if !result.IsFailing() {
		e.markHealthy(t.node.id)
		e.trial = nil
		e.logger.Debug("probe passed",
			zap.Stringer("node", t.node.sub),
			zap.Int("trials", t.tally.Total()))
		return e.advance(ctx)
	}

	t.tally.Record(result)
	if t.tally.Total() < e.config.MaxIterations {
		input, err := e.synth.CompleteExcept(t.node.sub, e.avoidFailing(), t.tried)
		if err == nil {
			t.input = input
			t.tried[input.Key()] = true
			return input, nil
		}
		if !errors.Is(err, domain.ErrSynthesisExhausted) {
			return nil, err
		}
		// Every completion of the node has been tried once.
		e.logger.Debug("repeated trials exhausted",
			zap.Stringer("node", t.node.sub),
			zap.Int("trials", t.tally.Total()))
	}

	status := t.tally.Classify()
	e.markInducing(t.node.id, status)
	e.trial = nil
	e.logger.Debug("probe classified",
		zap.Stringer("node", t.node.sub),
		zap.Stringer("status", status),
		zap.Int("trials", t.tally.Total()),
		zap.Int("exceptions", t.tally.exceptions))
	return e.advance(ctx)
}

// IdentifiedCombinations returns the inducing combinations proven minimal
// so far: inducing nodes with no children or only Healthy children. It does
// not change any state.
func (e *Engine) IdentifiedCombinations() domain.CombinationMap {
	out := make(domain.CombinationMap)
	if e.statuses == nil {
		return out
	}
	for i := 0; i < e.lattice.Len(); i++ {
		id := lattice.NodeID(i)
		status := e.statuses[id]
		if !status.IsInducing() || !isMinimal(e.lattice, e.statuses, id) {
			continue
		}
		out.Add(e.combination(id), status.Kind())
	}
	return out
}

// Status returns the round status of the node for the given subset.
func (e *Engine) Status(s lattice.Subset) (domain.Status, bool) {
	id, ok := e.lattice.Lookup(s)
	if !ok || e.statuses == nil {
		return domain.StatusUnknown, false
	}
	return e.statuses[id], true
}

// seed resets every status for a new round. Nodes whose sub-combination
// appears in a passing input are Healthy; the root takes the failing
// result's kind.
func (e *Engine) seed() {
	e.statuses = make([]domain.Status, e.lattice.Len())
	e.skipped = make(map[lattice.NodeID]bool)
	e.search = nil
	e.trial = nil

	agreements := make([]lattice.Subset, 0, len(e.passing))
	seen := make(map[string]bool)
	for _, p := range e.passing {
		var agree []int
		for i, v := range p {
			if i < len(e.failing) && v == e.failing[i] {
				agree = append(agree, i)
			}
		}
		s := lattice.SubsetOf(agree...)
		if len(agree) == 0 || seen[s.Key()] {
			continue
		}
		seen[s.Key()] = true
		agreements = append(agreements, s)
	}

	for i := 0; i < e.lattice.Len(); i++ {
		node := e.lattice.Node(lattice.NodeID(i))
		for _, a := range agreements {
			if node.Subset.IsSubsetOf(a) {
				e.statuses[i] = domain.StatusHealthy
				break
			}
		}
	}

	root := domain.StatusFaulty
	if e.result.IsExceptional() {
		root = domain.StatusExceptional
	}
	e.statuses[e.lattice.Root()] = root
}

// advance selects the next target and synthesizes a probe for it. The
// failing input itself is never a probe. Targets whose probe cannot be
// synthesized are skipped for the rest of the round.
func (e *Engine) advance(ctx context.Context) (domain.Combination, error) {
	for {
		id, err := e.nextTarget(ctx)
		if err != nil {
			e.active = false
			return nil, err
		}
		if id == lattice.NoNode {
			e.active = false
			e.logger.Debug("identification round complete",
				zap.Stringer("input", e.failing),
				zap.Int("identified", len(e.IdentifiedCombinations())),
				zap.Int("skipped", len(e.skipped)))
			return nil, nil
		}

		ref := nodeRef{id: id, sub: e.combination(id)}
		tried := map[string]bool{e.failing.Key(): true}
		input, err := e.synth.CompleteExcept(ref.sub, e.avoidFailing(), tried)
		if err != nil {
			if !errors.Is(err, domain.ErrSynthesisExhausted) {
				e.active = false
				return nil, err
			}
			e.abandon(ref, err)
			continue
		}
		tried[input.Key()] = true
		e.trial = &trial{
			node:  ref,
			input: input,
			tried: tried,
		}
		return input, nil
	}
}

// nextTarget runs the binary search along the current path, recomputing
// the path whenever it is exhausted.
func (e *Engine) nextTarget(ctx context.Context) (lattice.NodeID, error) {
	for {
		if e.search == nil || e.search.Exhausted() {
			path, err := e.longestPath(ctx)
			if err != nil {
				return lattice.NoNode, err
			}
			if len(path) == 0 {
				e.search = nil
				return lattice.NoNode, nil
			}
			e.search = newPathSearch(path)
		}

		for !e.search.Exhausted() {
			m := e.search.Middle()
			id := e.search.path[m]
			status := e.statuses[id]
			switch {
			case status == domain.StatusHealthy:
				e.search.Healthy(m)
			case status.IsInducing():
				e.search.Inducing(m)
			case e.skipped[id]:
				e.search = nil
			default:
				return id, nil
			}
			if e.search == nil {
				break
			}
		}
	}
}

// longestPath runs the concurrent search for the longest open path.
func (e *Engine) longestPath(ctx context.Context) ([]lattice.NodeID, error) {
	start := time.Now()
	searchCtx, cancel := context.WithTimeout(ctx, e.config.SearchTimeout)
	defer cancel()

	s := newSearcher(e.lattice, e.statuses, e.skipped)
	path, err := s.run(searchCtx, e.workers())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.Error("path search timed out",
				zap.Stringer("input", e.failing),
				zap.Duration("limit", e.config.SearchTimeout))
			return nil, fmt.Errorf("%w: after %s", domain.ErrSearchTimeout, time.Since(start).Round(time.Millisecond))
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.PathSearchDuration().Observe(time.Since(start))
		e.metrics.PathLength().Observe(float64(len(path)))
	}
	return path, nil
}

func (e *Engine) workers() int {
	if e.config.Workers > 0 {
		return e.config.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// markHealthy marks id and its Unknown descendants Healthy.
func (e *Engine) markHealthy(id lattice.NodeID) {
	e.setIfUnknown(id, domain.StatusHealthy)
	for _, d := range e.lattice.Descendants(id) {
		e.setIfUnknown(d, domain.StatusHealthy)
	}
}

// markInducing marks id and its Unknown ancestors with status.
func (e *Engine) markInducing(id lattice.NodeID, status domain.Status) {
	e.setIfUnknown(id, status)
	for _, a := range e.lattice.Ancestors(id) {
		e.setIfUnknown(a, status)
	}
}

// setIfUnknown keeps statuses monotone within a round.
func (e *Engine) setIfUnknown(id lattice.NodeID, status domain.Status) {
	if e.statuses[id] == domain.StatusUnknown {
		e.statuses[id] = status
	}
}

func (e *Engine) abandon(ref nodeRef, err error) {
	e.skipped[ref.id] = true
	e.logger.Debug("probe abandoned",
		zap.Stringer("node", ref.sub),
		zap.Error(err))
}

// combination returns the failing input restricted to the node's subset.
func (e *Engine) combination(id lattice.NodeID) domain.Combination {
	return e.failing.Restrict(e.lattice.Node(id).Subset.Indices())
}

func (e *Engine) avoidFailing() synth.Ordering {
	return synth.AvoidValues(e.model.DomainSizes(), e.failing)
}
