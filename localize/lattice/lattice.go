// Package lattice builds the Tuple-Relationship-Tree: a layered containment
// DAG over the parameter subsets of a test model.
//
// Nodes live in an arena addressed by stable NodeIDs. Layer 0 holds the
// root (all parameters fixed) and the last layer holds the singletons.
// Children and parents are computed once at build time; a built Lattice is
// read-only and safe to share between goroutines and identification rounds.
package lattice

// NodeID addresses a node inside a Lattice.
type NodeID int32

// NoNode is returned by lookups that find nothing.
const NoNode NodeID = -1

// Node is a parameter subset plus its precomputed neighbors.
type Node struct {
	// ID is the node's position in the arena.
	ID NodeID

	// Subset is the set of fixed parameters.
	Subset Subset

	// Layer is the node's layer index (0 = root).
	Layer int

	// Children are the strict subsets in the next layer. For regular nodes
	// these differ by exactly one parameter; the root's children are the
	// whole second layer.
	Children []NodeID

	// Parents are the inverse of Children.
	Parents []NodeID
}

// Lattice is the immutable template shared by all identification rounds.
type Lattice struct {
	numParameters int
	maxSubsetSize int
	nodes         []Node
	layers        [][]NodeID
	index         map[string]NodeID
}

// Root returns the id of the root node (the full parameter set).
func (l *Lattice) Root() NodeID {
	return 0
}

// Node returns the node with the given id.
func (l *Lattice) Node(id NodeID) *Node {
	return &l.nodes[id]
}

// Len returns the number of nodes.
func (l *Lattice) Len() int {
	return len(l.nodes)
}

// NumParameters returns the parameter count the lattice was built for.
func (l *Lattice) NumParameters() int {
	return l.numParameters
}

// MaxSubsetSize returns the size of the largest non-root subsets.
func (l *Lattice) MaxSubsetSize() int {
	return l.maxSubsetSize
}

// NumLayers returns the number of layers including the root layer.
func (l *Lattice) NumLayers() int {
	return len(l.layers)
}

// Layer returns the node ids of layer i.
func (l *Lattice) Layer(i int) []NodeID {
	if i < 0 || i >= len(l.layers) {
		return nil
	}
	return l.layers[i]
}

// MaxPathLength is the length of the longest chain from a child of the
// root down to a singleton.
func (l *Lattice) MaxPathLength() int {
	return len(l.layers) - 1
}

// Lookup returns the node holding the given subset.
func (l *Lattice) Lookup(s Subset) (NodeID, bool) {
	id, ok := l.index[s.Key()]
	if !ok {
		return NoNode, false
	}
	return id, true
}

// IsParentOf reports whether a is a (direct or indirect) parent of b:
// b's fixed parameters are a strict subset of a's.
func (l *Lattice) IsParentOf(a, b NodeID) bool {
	return l.nodes[b].Subset.IsStrictSubsetOf(l.nodes[a].Subset)
}

// Ancestors returns every node reachable through Parents, excluding id.
func (l *Lattice) Ancestors(id NodeID) []NodeID {
	return l.walk(id, func(n *Node) []NodeID { return n.Parents })
}

// Descendants returns every node reachable through Children, excluding id.
func (l *Lattice) Descendants(id NodeID) []NodeID {
	return l.walk(id, func(n *Node) []NodeID { return n.Children })
}

func (l *Lattice) walk(id NodeID, next func(*Node) []NodeID) []NodeID {
	seen := map[NodeID]bool{id: true}
	var out []NodeID
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range next(&l.nodes[cur]) {
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
			stack = append(stack, n)
		}
	}
	return out
}
