package lattice

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/localize/domain"
)

// Builder constructs lattices for test models.
type Builder struct {
	config  domain.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithMetrics records build durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// NewBuilder creates a new Builder.
func NewBuilder(config domain.Config, opts ...Option) *Builder {
	b := &Builder{
		config: config.WithDefaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MaxSubsetSize returns the size of the largest non-root subsets built for
// n parameters. Small models get every size up to n-1. Models with more
// than threshold parameters stop at the largest size k whose layer
// (C(n, k) subsets) stays within ceiling.
func MaxSubsetSize(n, threshold, ceiling int) int {
	if n <= 1 {
		return n
	}
	limit := n - 1
	if n <= threshold {
		return limit
	}
	k := 1
	for k < limit && binomial(n, k+1, ceiling) <= ceiling {
		k++
	}
	return k
}

// binomial computes C(n, k), saturating just above limit.
func binomial(n, k, limit int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1
	for i := 1; i <= k; i++ {
		result = result * (n - k + i) / i
		if result > limit {
			return limit + 1
		}
	}
	return result
}

// Build creates the lattice for a model with n parameters.
//
// Layers are grown bottom-up: singletons first, then every subset of the
// previous layer extended by one higher-indexed parameter. The full set is
// added as the root and the layer order reversed. Extension and wiring run
// on a bounded worker pool; exceeding BuildTimeout is fatal.
func (b *Builder) Build(ctx context.Context, n int) (*Lattice, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: lattice needs at least one parameter, got %d",
			domain.ErrInvalidModel, n)
	}
	start := time.Now()
	if b.metrics != nil {
		defer func() { b.metrics.LatticeBuildDuration().Observe(time.Since(start)) }()
	}

	buildCtx, cancel := context.WithTimeout(ctx, b.config.BuildTimeout)
	defer cancel()

	maxSize := MaxSubsetSize(n, b.config.LargeModelThreshold, b.config.LayerCeiling)
	workers := b.workers()

	// Bottom-up layers of subsets.
	layers := make([][]Subset, 0, maxSize+1)
	first := make([]Subset, n)
	for i := 0; i < n; i++ {
		first[i] = SubsetOf(i)
	}
	layers = append(layers, first)
	for size := 2; size <= maxSize; size++ {
		next, err := extendLayer(buildCtx, layers[len(layers)-1], n, workers)
		if err != nil {
			return nil, b.wrapDeadline(ctx, err, n)
		}
		layers = append(layers, next)
	}
	if n > 1 {
		layers = append(layers, []Subset{FullSubset(n)})
	}

	l := &Lattice{
		numParameters: n,
		maxSubsetSize: maxSize,
		layers:        make([][]NodeID, len(layers)),
		index:         make(map[string]NodeID),
	}
	for i := len(layers) - 1; i >= 0; i-- {
		layerIdx := len(layers) - 1 - i
		ids := make([]NodeID, len(layers[i]))
		for j, s := range layers[i] {
			id := NodeID(len(l.nodes))
			l.nodes = append(l.nodes, Node{ID: id, Subset: s, Layer: layerIdx})
			l.index[s.Key()] = id
			ids[j] = id
		}
		l.layers[layerIdx] = ids
	}

	if err := l.wire(buildCtx, workers); err != nil {
		return nil, b.wrapDeadline(ctx, err, n)
	}

	b.logger.Debug("lattice built",
		zap.Int("parameters", n),
		zap.Int("max_subset_size", maxSize),
		zap.Int("nodes", l.Len()),
		zap.Int("layers", l.NumLayers()),
		zap.Duration("elapsed", time.Since(start)))
	return l, nil
}

func (b *Builder) workers() int {
	if b.config.Workers > 0 {
		return b.config.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (b *Builder) wrapDeadline(parent context.Context, err error, n int) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		b.logger.Error("lattice build timed out",
			zap.Int("parameters", n), zap.Duration("limit", b.config.BuildTimeout))
		return fmt.Errorf("%w: %d parameters after %s", domain.ErrBuildTimeout, n, b.config.BuildTimeout)
	}
	return err
}

// extendLayer extends every subset by each parameter above its maximum.
// Siblings are independent, so the layer is split into chunks and each
// chunk is extended on its own worker. Output order is deterministic.
func extendLayer(ctx context.Context, prev []Subset, n, workers int) ([]Subset, error) {
	chunks := chunkRanges(len(prev), workers)
	parts := make([][]Subset, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c, r := range chunks {
		g.Go(func() error {
			var out []Subset
			for _, s := range prev[r[0]:r[1]] {
				if err := gCtx.Err(); err != nil {
					return err
				}
				for j := s.Max() + 1; j < n; j++ {
					out = append(out, s.With(j))
				}
			}
			parts[c] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	next := make([]Subset, 0, total)
	for _, p := range parts {
		next = append(next, p...)
	}
	return next, nil
}

// wire fills Children and Parents. Each node's neighbors are found by
// filtering the adjacent layer for containment; every worker writes only
// the nodes of its own chunk.
func (l *Lattice) wire(ctx context.Context, workers int) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for layerIdx, ids := range l.layers {
		for _, r := range chunkRanges(len(ids), workers) {
			g.Go(func() error {
				for _, id := range ids[r[0]:r[1]] {
					if err := gCtx.Err(); err != nil {
						return err
					}
					l.wireNode(id, layerIdx)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

func (l *Lattice) wireNode(id NodeID, layerIdx int) {
	node := &l.nodes[id]
	last := len(l.layers) - 1

	switch {
	case layerIdx == 0:
		if last >= 1 {
			node.Children = append([]NodeID(nil), l.layers[1]...)
		}
	default:
		if layerIdx == 1 {
			node.Parents = []NodeID{0}
		} else {
			for j := 0; j < l.numParameters; j++ {
				if node.Subset.Has(j) {
					continue
				}
				if p, ok := l.Lookup(node.Subset.With(j)); ok && l.nodes[p].Layer == layerIdx-1 {
					node.Parents = append(node.Parents, p)
				}
			}
		}
		if layerIdx < last {
			for _, j := range node.Subset.Indices() {
				if c, ok := l.Lookup(node.Subset.Without(j)); ok && l.nodes[c].Layer == layerIdx+1 {
					node.Children = append(node.Children, c)
				}
			}
		}
	}
}

// chunkRanges splits [0, n) into at most parts contiguous ranges.
func chunkRanges(n, parts int) [][2]int {
	if n == 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	size := (n + parts - 1) / parts
	ranges := make([][2]int, 0, parts)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
