package lattice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/localize/domain"
)

func build(t *testing.T, n int, config domain.Config) *Lattice {
	t.Helper()
	l, err := NewBuilder(config).Build(context.Background(), n)
	require.NoError(t, err)
	return l
}

func subsetsOf(l *Lattice, ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = l.Node(id).Subset.String()
	}
	return out
}

func TestMaxSubsetSize(t *testing.T) {
	tests := []struct {
		name                 string
		n, threshold, ceiling int
		want                 int
	}{
		{"single parameter", 1, 16, 100, 1},
		{"two parameters", 2, 16, 100, 1},
		{"small model unbounded", 10, 16, 100, 9},
		{"large model bounded", 30, 16, 50000, 4},
		{"ceiling too small for pairs", 6, 4, 10, 1},
		{"ceiling allows everything", 20, 16, 1 << 30, 19},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaxSubsetSize(tc.n, tc.threshold, tc.ceiling))
		})
	}
}

func TestBuildThreeParameters(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := build(t, 3, domain.DefaultConfig())

	require.Equal(t, 7, l.Len())
	require.Equal(t, 3, l.NumLayers())
	assert.Equal(t, 2, l.MaxPathLength())
	assert.Equal(t, "{0,1,2}", l.Node(l.Root()).Subset.String())
	assert.Equal(t, []string{"{0,1}", "{0,2}", "{1,2}"}, subsetsOf(l, l.Layer(1)))
	assert.Equal(t, []string{"{0}", "{1}", "{2}"}, subsetsOf(l, l.Layer(2)))

	root := l.Node(l.Root())
	assert.Equal(t, []string{"{0,1}", "{0,2}", "{1,2}"}, subsetsOf(l, root.Children))
	assert.Empty(t, root.Parents)

	pair, ok := l.Lookup(SubsetOf(0, 2))
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"{0}", "{2}"}, subsetsOf(l, l.Node(pair).Children))
	assert.Equal(t, []string{"{0,1,2}"}, subsetsOf(l, l.Node(pair).Parents))

	single, ok := l.Lookup(SubsetOf(0))
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"{0,1}", "{0,2}"}, subsetsOf(l, l.Node(single).Parents))
	assert.Empty(t, l.Node(single).Children)
}

func TestBuildContainmentInvariants(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := build(t, 6, domain.Config{Workers: 3})
	require.Equal(t, 1<<6-1, l.Len())

	for id := NodeID(0); int(id) < l.Len(); id++ {
		node := l.Node(id)
		for _, c := range node.Children {
			child := l.Node(c)
			assert.True(t, child.Subset.IsStrictSubsetOf(node.Subset), "%s -> %s", node.Subset, child.Subset)
			assert.Equal(t, node.Layer+1, child.Layer)
			assert.Contains(t, child.Parents, id)
			if id != l.Root() {
				assert.Equal(t, node.Subset.Len()-1, child.Subset.Len())
			}
		}
		for _, p := range node.Parents {
			assert.Contains(t, l.Node(p).Children, id)
		}
	}

	for id := NodeID(1); int(id) < l.Len(); id++ {
		assert.True(t, l.IsParentOf(l.Root(), id))
	}
}

func TestBuildSingleParameter(t *testing.T) {
	l := build(t, 1, domain.DefaultConfig())

	require.Equal(t, 1, l.Len())
	assert.Equal(t, "{0}", l.Node(l.Root()).Subset.String())
	assert.Empty(t, l.Node(l.Root()).Children)
	assert.Equal(t, 0, l.MaxPathLength())
}

func TestBuildBoundedDepth(t *testing.T) {
	config := domain.Config{LargeModelThreshold: 4, LayerCeiling: 10}
	l := build(t, 6, config)

	assert.Equal(t, 1, l.MaxSubsetSize())
	require.Equal(t, 2, l.NumLayers())
	assert.Len(t, l.Node(l.Root()).Children, 6)
	for _, id := range l.Layer(1) {
		assert.Equal(t, []NodeID{l.Root()}, l.Node(id).Parents)
	}
}

func TestBuildRejectsEmptyModel(t *testing.T) {
	_, err := NewBuilder(domain.DefaultConfig()).Build(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidModel)
}

func TestBuildTimeoutIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	config := domain.Config{BuildTimeout: time.Nanosecond}
	_, err := NewBuilder(config).Build(context.Background(), 14)
	assert.ErrorIs(t, err, domain.ErrBuildTimeout)
}

func TestBuildRecordsMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	_, err := NewBuilder(domain.DefaultConfig(), WithMetrics(metrics)).Build(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.LatticeBuildDuration().Snapshot().Count)
}

func TestAncestorsAndDescendants(t *testing.T) {
	l := build(t, 4, domain.DefaultConfig())

	pair, ok := l.Lookup(SubsetOf(1, 3))
	require.True(t, ok)

	assert.ElementsMatch(t, []string{"{1}", "{3}"}, subsetsOf(l, l.Descendants(pair)))
	assert.ElementsMatch(t, []string{"{0,1,3}", "{1,2,3}", "{0,1,2,3}"}, subsetsOf(l, l.Ancestors(pair)))
}

func TestChunkRanges(t *testing.T) {
	assert.Nil(t, chunkRanges(0, 4))
	assert.Equal(t, [][2]int{{0, 3}}, chunkRanges(3, 1))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}}, chunkRanges(3, 8))
	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, chunkRanges(10, 3))
}
