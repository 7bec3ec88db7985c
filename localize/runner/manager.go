// Package runner drives a localization run through the Generation,
// Identification, Verification and Classification phases.
package runner

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/localize/classify"
	"github.com/example/faultloc/localize/constraint"
	"github.com/example/faultloc/localize/coverage"
	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/generator"
	"github.com/example/faultloc/localize/lattice"
	"github.com/example/faultloc/localize/synth"
	"github.com/example/faultloc/localize/trt"
	"github.com/example/faultloc/localize/verify"
	"github.com/example/faultloc/pkg/id"
)

// Components are the collaborators a Manager delegates to. Classifier and
// History are optional.
type Components struct {
	Model      *domain.TestModel
	Identifier Identifier
	Checker    ConstraintChecker
	Coverage   CoverageMap
	Generator  Generator
	Verifier   Verifier
	Classifier Classifier
	History    *synth.History
}

var (
	_ Identifier        = (*trt.Engine)(nil)
	_ ConstraintChecker = (*constraint.Checker)(nil)
	_ CoverageMap       = (*coverage.Map)(nil)
	_ Generator         = (*generator.SuiteGenerator)(nil)
	_ Verifier          = (*verify.Checker)(nil)
	_ Classifier        = (*classify.TypeClassifier)(nil)
)

// Manager is the orchestration state machine. It is a pull generator like
// the engine it drives: Next returns one input, the caller executes it and
// hands the result to Submit. Run wraps that loop around an Executor and a
// ResultCache.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	c        Components
	config   domain.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	recorder Recorder
	newID    id.Generator

	run         *domain.Run
	pending     domain.Combination
	confirmed   domain.CombinationMap
	discarded   domain.CombinationMap
	classes     map[string]domain.ExceptionClass
	restarts    int
	transitions []domain.PhaseTransition
	// executed holds the keys of every input submitted in this run.
	executed map[string]bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger. NewDefault passes it on to every
// component it assembles.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records execution and phase metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithRecorder persists run progress.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithIDGenerator overrides how run ids are generated.
func WithIDGenerator(gen id.Generator) Option {
	return func(m *Manager) {
		m.newID = gen
	}
}

// NewManager creates a Manager over the given components.
func NewManager(c Components, config domain.Config, opts ...Option) (*Manager, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if c.Model == nil || c.Identifier == nil || c.Checker == nil || c.Coverage == nil ||
		c.Generator == nil || c.Verifier == nil {
		return nil, fmt.Errorf("%w: manager requires model, identifier, checker, coverage, generator and verifier",
			domain.ErrInvalidConfig)
	}

	m := &Manager{
		c:         c,
		config:    config,
		logger:    zap.NewNop(),
		newID:     id.RunID,
		confirmed: make(domain.CombinationMap),
		discarded: make(domain.CombinationMap),
		classes:   make(map[string]domain.ExceptionClass),
		executed:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.run = domain.NewRun(m.newID(), c.Model.Name)
	return m, nil
}

// NewDefault assembles the standard components for a model: a forbidden
// tuple checker seeded with forbidden, a coverage map, a TRT engine over a
// freshly built lattice, a verifier and classifier choosing maximally
// dissimilar inputs, and a generator that plays back suite.
func NewDefault(ctx context.Context, model *domain.TestModel, suite []domain.Combination, forbidden []domain.Combination, config domain.Config, opts ...Option) (*Manager, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	settings := &Manager{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(settings)
	}
	logger, metrics := settings.logger, settings.metrics

	checker, err := constraint.NewChecker(model, forbidden...)
	if err != nil {
		return nil, err
	}
	cov := coverage.NewMap(model)
	for _, f := range forbidden {
		cov.ExcludeCombination(f)
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	sizes := model.DomainSizes()
	history := synth.NewHistory(sizes)
	dissimilar := synth.LeastUsed(sizes, history)
	s := synth.New(model, checker, rng, config.SynthesisAttempts)

	builderOpts := []lattice.Option{lattice.WithLogger(logger)}
	engineOpts := []trt.Option{trt.WithLogger(logger)}
	verifyOpts := []verify.Option{verify.WithLogger(logger)}
	if metrics != nil {
		builderOpts = append(builderOpts, lattice.WithMetrics(metrics))
		engineOpts = append(engineOpts, trt.WithMetrics(metrics))
		verifyOpts = append(verifyOpts, verify.WithMetrics(metrics))
	}
	l, err := lattice.NewBuilder(config, builderOpts...).Build(ctx, model.NumParameters())
	if err != nil {
		return nil, err
	}
	engine, err := trt.New(l, model, s, config, engineOpts...)
	if err != nil {
		return nil, err
	}

	c := Components{
		Model:      model,
		Identifier: engine,
		Checker:    checker,
		Coverage:   cov,
		Generator:  generator.NewSuiteGenerator(suite, checker, cov, s, dissimilar),
		Verifier:   verify.New(s, dissimilar, config, verifyOpts...),
		History:    history,
	}
	if config.EnableClassification {
		c.Classifier = classify.New(model, checker, rng, dissimilar, config, logger)
	}

	logger.Info("localization assembled",
		zap.String("model", model.Name),
		zap.Int("parameters", model.NumParameters()),
		zap.Int("lattice_nodes", l.Len()),
		zap.Int("suite", len(suite)),
		zap.Int("forbidden", len(forbidden)),
		zap.Int64("seed", seed))
	return NewManager(c, config, opts...)
}

// RunID returns the id of the run driven by this manager.
func (m *Manager) RunID() string {
	return m.run.ID
}

// Phase returns the current phase.
func (m *Manager) Phase() domain.Phase {
	return m.run.Phase
}

// Confirmed returns the verified inducing combinations found so far.
func (m *Manager) Confirmed() domain.CombinationMap {
	return m.confirmed
}

// Discarded returns the candidates dropped as false positives.
func (m *Manager) Discarded() domain.CombinationMap {
	return m.discarded
}

// Classes returns the exception types attributed during classification.
func (m *Manager) Classes() map[string]domain.ExceptionClass {
	return m.classes
}

// Next returns the next input to execute, or nil once the run is complete.
// Calling Next again before Submit returns the same input.
func (m *Manager) Next(ctx context.Context) (domain.Combination, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.pending != nil {
			return m.pending, nil
		}

		switch m.run.Phase {
		case domain.PhaseGeneration:
			input, ok := m.c.Generator.Next()
			if ok {
				m.pending = input
				continue
			}
			if m.classifying() {
				m.c.Classifier.Start(m.confirmed)
				if err := m.transition(ctx, domain.PhaseClassification); err != nil {
					return nil, err
				}
				continue
			}
			if err := m.transition(ctx, domain.PhaseComplete); err != nil {
				return nil, err
			}

		case domain.PhaseIdentification:
			// The engine returned no further probe: the round is over.
			if err := m.endRound(ctx); err != nil {
				return nil, err
			}

		case domain.PhaseVerification:
			input, err := m.c.Verifier.Next(ctx)
			if err != nil {
				return nil, err
			}
			if input != nil {
				m.pending = input
				continue
			}
			if err := m.endVerification(ctx); err != nil {
				return nil, err
			}

		case domain.PhaseClassification:
			input, err := m.c.Classifier.Next(ctx)
			if err != nil {
				return nil, err
			}
			if input != nil {
				m.pending = input
				continue
			}
			for k, class := range m.c.Classifier.Classes() {
				m.classes[k] = class
			}
			if err := m.transition(ctx, domain.PhaseComplete); err != nil {
				return nil, err
			}

		case domain.PhaseComplete:
			return nil, nil
		}
	}
}

// Submit hands back the result of the input returned by Next.
func (m *Manager) Submit(ctx context.Context, input domain.Combination, result *domain.TestResult) error {
	if m.pending == nil {
		return fmt.Errorf("%w: no input outstanding", domain.ErrInvalidState)
	}
	if !input.Equal(m.pending) {
		return fmt.Errorf("%w: result for %s, expected %s", domain.ErrInvalidState, input, m.pending)
	}
	if result == nil {
		return fmt.Errorf("%w: input %s", domain.ErrMissingResult, input)
	}
	m.pending = nil
	m.executed[input.Key()] = true

	if m.c.History != nil {
		m.c.History.Record(input)
	}
	m.c.Coverage.UpdateCoverage(input)
	if result.IsSuccess() {
		m.c.Identifier.RecordPassing(input)
	}

	switch m.run.Phase {
	case domain.PhaseGeneration:
		if !result.IsFailing() {
			return nil
		}
		if m.confirmed.AnyContainedIn(input) {
			m.logger.Debug("failure explained by a confirmed combination",
				zap.Stringer("input", input))
			return nil
		}
		probe, err := m.c.Identifier.StartIdentification(ctx, input, result)
		if err != nil {
			return err
		}
		m.restarts = 0
		m.beginRound()
		m.pending = probe
		return m.transition(ctx, domain.PhaseIdentification)

	case domain.PhaseIdentification:
		probe, err := m.c.Identifier.NextTestInput(ctx, input, result)
		if err != nil {
			return err
		}
		m.pending = probe
		return nil

	case domain.PhaseVerification:
		return m.c.Verifier.Submit(input, result)

	case domain.PhaseClassification:
		return m.c.Classifier.Submit(input, result)

	default:
		return fmt.Errorf("%w: submit in phase %s", domain.ErrInvalidState, m.run.Phase)
	}
}

// Run executes inputs until the run completes. Results are looked up in
// cache before execution and stored after it, so that no input is executed
// twice.
func (m *Manager) Run(ctx context.Context, executor Executor, cache ResultCache) (*domain.Report, error) {
	if m.recorder != nil {
		if err := m.recorder.Begin(ctx, m.run); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}
	m.logger.Info("localization started",
		zap.String("run_id", m.run.ID),
		zap.String("model", m.run.ModelName))

	for {
		input, err := m.Next(ctx)
		if err != nil {
			return nil, err
		}
		if input == nil {
			break
		}

		result, err := m.execute(ctx, input, executor, cache)
		if err != nil {
			return nil, err
		}
		if err := m.Submit(ctx, input, result); err != nil {
			return nil, err
		}
	}

	report := m.Report()
	if m.recorder != nil {
		if err := m.recorder.Finish(ctx, m.run, report); err != nil {
			return nil, fmt.Errorf("failed to record report: %w", err)
		}
	}
	m.logger.Info("localization complete",
		zap.String("run_id", m.run.ID),
		zap.Int("confirmed", len(report.Confirmed)),
		zap.Int("discarded", len(report.Discarded)),
		zap.Int("executions", report.Executions),
		zap.Int("cache_hits", report.CacheHits),
		zap.Int("rounds", report.Rounds))
	return report, nil
}

func (m *Manager) execute(ctx context.Context, input domain.Combination, executor Executor, cache ResultCache) (*domain.TestResult, error) {
	if cache != nil {
		cached, ok, err := cache.Get(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("result cache: %w", err)
		}
		if ok {
			m.run.CacheHits++
			if m.metrics != nil {
				m.metrics.CacheHits().Inc()
			}
			return cached, nil
		}
	}

	start := time.Now()
	result, err := executor.Execute(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTestExecutionFailed, input, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: executor returned no result for %s", domain.ErrMissingResult, input)
	}
	m.run.Executions++
	if m.metrics != nil {
		m.metrics.Executions().WithLabels(m.run.Phase.String()).Inc()
		m.metrics.ExecutionDuration().Observe(time.Since(start))
	}
	m.logger.Debug("input executed",
		zap.Stringer("phase", m.run.Phase),
		zap.Stringer("input", input),
		zap.Stringer("outcome", result.Outcome),
		zap.String("cause", result.CauseType()))

	if cache != nil {
		if err := cache.Put(ctx, input, m.run.Phase, result); err != nil {
			return nil, fmt.Errorf("result cache: %w", err)
		}
	}
	return result, nil
}

// Report summarizes the run so far.
func (m *Manager) Report() *domain.Report {
	confirmed := make(domain.CombinationMap, len(m.confirmed))
	confirmed.Merge(m.confirmed)
	discarded := make(domain.CombinationMap, len(m.discarded))
	discarded.Merge(m.discarded)
	classes := make(map[string]domain.ExceptionClass, len(m.classes))
	for k, v := range m.classes {
		classes[k] = v
	}
	transitions := make([]domain.PhaseTransition, len(m.transitions))
	copy(transitions, m.transitions)

	return &domain.Report{
		RunID:            m.run.ID,
		Confirmed:        confirmed,
		Discarded:        discarded,
		ExceptionClasses: classes,
		Executions:       m.run.Executions,
		CacheHits:        m.run.CacheHits,
		Rounds:           m.run.Rounds,
		Transitions:      transitions,
		CompletedAt:      time.Now().UTC(),
	}
}

// endRound hands the round's new candidates to verification.
func (m *Manager) endRound(ctx context.Context) error {
	candidates := make(domain.CombinationMap)
	for k, ic := range m.c.Identifier.IdentifiedCombinations() {
		if _, ok := m.confirmed[k]; !ok {
			candidates[k] = ic
		}
	}
	if len(candidates) == 0 {
		m.logger.Info("identification round found no new candidates")
		return m.transition(ctx, domain.PhaseGeneration)
	}

	m.logger.Debug("verifying candidates", zap.Int("candidates", len(candidates)))
	m.c.Verifier.Start(candidates, m.executed)
	return m.transition(ctx, domain.PhaseVerification)
}

// endVerification registers confirmed candidates as constraints, or
// restarts identification when every candidate was disputed.
func (m *Manager) endVerification(ctx context.Context) error {
	m.discarded.Merge(m.c.Verifier.Discarded())
	confirmed := m.c.Verifier.Confirmed()
	if len(confirmed) > 0 {
		// Smaller combinations first so that supersets in the same batch
		// are subsumed.
		batch := confirmed.Sorted()
		sort.SliceStable(batch, func(i, j int) bool {
			return batch[i].Combination.NumFixed() < batch[j].Combination.NumFixed()
		})
		for _, ic := range batch {
			if !m.confirmed.AddMinimal(ic.Combination, ic.Kind) {
				m.logger.Debug("confirmed combination subsumed",
					zap.Stringer("combination", ic.Combination))
				continue
			}
			if _, err := m.c.Checker.AddConstraint(ic.Combination); err != nil {
				return err
			}
			m.c.Coverage.ExcludeCombination(ic.Combination)
			if m.metrics != nil {
				m.metrics.Confirmed().WithLabels(ic.Kind.String()).Inc()
			}
			m.logger.Info("combination confirmed",
				zap.String("combination", m.c.Model.Describe(ic.Combination)),
				zap.Stringer("kind", ic.Kind))
		}
		return m.transition(ctx, domain.PhaseGeneration)
	}

	if m.restarts >= m.config.MaxRestarts {
		m.logger.Warn("identification abandoned, every candidate disputed",
			zap.Int("restarts", m.restarts))
		return m.transition(ctx, domain.PhaseGeneration)
	}
	m.restarts++
	probe, err := m.c.Identifier.RestartIdentification(ctx)
	if err != nil {
		return err
	}
	m.beginRound()
	m.pending = probe
	return m.transition(ctx, domain.PhaseIdentification)
}

func (m *Manager) beginRound() {
	m.run.Rounds++
	if m.metrics != nil {
		m.metrics.Rounds().Inc()
	}
}

func (m *Manager) classifying() bool {
	if m.c.Classifier == nil || !m.config.EnableClassification {
		return false
	}
	for _, ic := range m.confirmed {
		if ic.Kind == domain.KindExceptionInducing {
			return true
		}
	}
	return false
}

func (m *Manager) transition(ctx context.Context, next domain.Phase) error {
	from := m.run.Phase
	if !from.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, from, next)
	}
	if err := m.run.SetPhase(next); err != nil {
		return err
	}
	m.transitions = append(m.transitions, domain.PhaseTransition{From: from, To: next, At: m.run.UpdatedAt})
	if m.metrics != nil {
		m.metrics.CurrentPhase().Set(int64(next))
	}
	m.logger.Info("phase transition",
		zap.String("run_id", m.run.ID),
		zap.Stringer("from", from),
		zap.Stringer("to", next))

	if m.recorder != nil {
		if err := m.recorder.Progress(ctx, m.run); err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
	}
	return nil
}
