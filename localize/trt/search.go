package trt

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/lattice"
)

// pathSearch is a binary search over one path of Unknown nodes. path[0] is
// the most specific node (a child of the root) and the last entry the most
// general.
type pathSearch struct {
	path []lattice.NodeID
	head int
	tail int
}

func newPathSearch(path []lattice.NodeID) *pathSearch {
	return &pathSearch{path: path, head: 0, tail: len(path) - 1}
}

// Exhausted reports whether the search range is empty.
func (s *pathSearch) Exhausted() bool {
	return s.head > s.tail
}

// Middle returns the index to probe next.
func (s *pathSearch) Middle() int {
	return (s.head + s.tail) / 2
}

// Healthy narrows the search to the root side of m. Everything more
// general than a healthy node is healthy.
func (s *pathSearch) Healthy(m int) {
	s.tail = m - 1
}

// Inducing narrows the search to the leaf side of m. Everything more
// specific than an inducing node is inducing.
func (s *pathSearch) Inducing(m int) {
	s.head = m + 1
}

// searcher finds the longest chain of open (Unknown, not skipped) nodes.
// It reads a snapshot of the round's statuses and never mutates it, so its
// tasks need no locking. Memo entries are published atomically; concurrent
// tasks computing the same entry store identical values.
type searcher struct {
	lattice  *lattice.Lattice
	statuses []domain.Status
	skipped  map[lattice.NodeID]bool

	longest  []atomic.Int32 // chain length starting at a node, 0 = not computed
	next     []atomic.Int32 // best child + 1, 0 = none
	explored []atomic.Bool  // inducing nodes already expanded
	limit    int32
	found    atomic.Bool
}

// candidate is the best chain a task has seen.
type candidate struct {
	start  lattice.NodeID
	length int32
}

func newSearcher(l *lattice.Lattice, statuses []domain.Status, skipped map[lattice.NodeID]bool) *searcher {
	return &searcher{
		lattice:  l,
		statuses: statuses,
		skipped:  skipped,
		longest:  make([]atomic.Int32, l.Len()),
		next:     make([]atomic.Int32, l.Len()),
		explored: make([]atomic.Bool, l.Len()),
		limit:    int32(l.MaxPathLength()),
	}
}

func (s *searcher) open(id lattice.NodeID) bool {
	return s.statuses[id] == domain.StatusUnknown && !s.skipped[id]
}

// run starts one task per child of the root and joins them. It returns the
// longest open path, or nil when none is reachable.
func (s *searcher) run(ctx context.Context, workers int) ([]lattice.NodeID, error) {
	roots := s.lattice.Node(s.lattice.Root()).Children
	bests := make([]candidate, len(roots))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, child := range roots {
		bests[i] = candidate{start: lattice.NoNode}
		g.Go(func() error {
			return s.explore(gCtx, child, &bests[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := candidate{start: lattice.NoNode}
	for _, c := range bests {
		if c.length > best.length || (c.length == best.length && c.length > 0 && c.start < best.start) {
			best = c
		}
	}
	if best.start == lattice.NoNode {
		return nil, nil
	}

	path := make([]lattice.NodeID, 0, best.length)
	for id := best.start; id != lattice.NoNode; {
		path = append(path, id)
		id = lattice.NodeID(s.next[id].Load() - 1)
	}
	return path, nil
}

// explore descends from id. Open nodes start a chain. Inducing nodes that
// are not minimal, and skipped nodes, are expanded since their open
// descendants may hide independent faults.
func (s *searcher) explore(ctx context.Context, id lattice.NodeID, best *candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.found.Load() {
		return nil
	}

	if s.open(id) {
		length, err := s.chain(ctx, id)
		if err != nil {
			return err
		}
		if length > best.length || (length == best.length && id < best.start) {
			*best = candidate{start: id, length: length}
		}
		if length >= s.limit {
			s.found.Store(true)
		}
		return nil
	}

	status := s.statuses[id]
	if status == domain.StatusHealthy {
		return nil
	}
	if status.IsInducing() && isMinimal(s.lattice, s.statuses, id) {
		return nil
	}
	if !s.explored[id].CompareAndSwap(false, true) {
		return nil
	}
	for _, c := range s.lattice.Node(id).Children {
		if err := s.explore(ctx, c, best); err != nil {
			return err
		}
	}
	return nil
}

// chain returns the length of the longest open chain starting at id.
func (s *searcher) chain(ctx context.Context, id lattice.NodeID) (int32, error) {
	if n := s.longest[id].Load(); n > 0 {
		return n, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var best int32
	bestChild := lattice.NoNode
	for _, c := range s.lattice.Node(id).Children {
		if !s.open(c) {
			continue
		}
		n, err := s.chain(ctx, c)
		if err != nil {
			return 0, err
		}
		if n > best {
			best, bestChild = n, c
		}
	}
	s.next[id].Store(int32(bestChild) + 1)
	s.longest[id].Store(best + 1)
	return best + 1, nil
}

// isMinimal reports whether an inducing node has no children or only
// Healthy children.
func isMinimal(l *lattice.Lattice, statuses []domain.Status, id lattice.NodeID) bool {
	for _, c := range l.Node(id).Children {
		if statuses[c] != domain.StatusHealthy {
			return false
		}
	}
	return true
}
