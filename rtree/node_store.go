package rtree

import (
	"github.com/dannyswat/fsrtree/rtree/geometry"
	"github.com/dannyswat/fsrtree/rtree/splittype"
)

// NodeStore abstracts node persistence for the R-tree engine. Nodes cross the
// store boundary by value: a node returned by ReadNode is never shared with
// the store, so every change must be persisted with WriteNode.
type NodeStore interface {
	// CreateNode allocates a record. A nil boundary on a node with children
	// is computed as the union of the children linked from child.
	CreateNode(boundary geometry.Box, kind NodeKind, parent, sibling, child NodeID) (*Node, error)
	ReadNode(id NodeID) (*Node, error)
	WriteNode(n *Node) error
	// FreeNode releases a record so that its id can be handed out again.
	FreeNode(id NodeID) error

	// Root returns nil for an empty tree.
	Root() (*Node, error)
	SetRoot(n *Node) error
	ElementsNumber() int
	SetElementsNumber(n int) error

	MaxElements() int
	SplitChoice() splittype.SplitType
	CRS() string
	Dimension() int

	// Close flushes the metadata and releases resources. It is idempotent.
	Close() error
}

// prepareNode validates the arguments of CreateNode and builds the unsaved
// node. Children are linked from child when kind is not DataNode.
func prepareNode(read func(NodeID) (*Node, error), dim int, boundary geometry.Box, kind NodeKind, parent, sibling, child NodeID) (*Node, error) {
	if !validKind(kind) {
		return nil, invalidArgument("unknown node kind %q", kind)
	}
	if boundary != nil && (len(boundary) != 2*dim || !boundary.Valid()) {
		return nil, invalidArgument("boundary %v does not describe a %dD box", []float64(boundary), dim)
	}
	n := &Node{
		Kind:       kind,
		Boundary:   boundary.Clone(),
		Parent:     parent,
		Sibling:    sibling,
		FirstChild: child,
	}
	if kind == DataNode {
		if boundary == nil {
			return nil, invalidArgument("data node needs a boundary")
		}
		return n, nil
	}
	if child == NoNode {
		return n, nil
	}
	var union geometry.Box
	for id := child; id != NoNode; {
		c, err := read(id)
		if err != nil {
			return nil, err
		}
		n.ChildCount++
		if union == nil {
			union = c.Boundary.Clone()
		} else {
			union.Expand(c.Boundary)
		}
		id = c.Sibling
	}
	if n.Boundary == nil {
		n.Boundary = union
	}
	return n, nil
}
