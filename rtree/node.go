package rtree

import (
	"fmt"

	"github.com/dannyswat/fsrtree/rtree/geometry"
)

// NodeID addresses a node record inside a NodeStore.
type NodeID int64

// NoNode is the "no parent / no sibling / no child" sentinel.
const NoNode NodeID = 0

// NodeKind represents the role of an R-tree node
type NodeKind string

const (
	// InternalNode children are leaf or internal nodes.
	InternalNode NodeKind = "internal"
	// LeafNode children are data nodes.
	LeafNode NodeKind = "leaf"
	// DataNode is one stored entry; it has no children.
	DataNode NodeKind = "data"
)

// Node represents a node in the R-tree.
//
// Children form a singly linked list: FirstChild names the head and each
// child's Sibling names the next one, terminated by NoNode. A data node reuses
// FirstChild to hold the negated object id of its entry.
type Node struct {
	ID         NodeID       `json:"id"`
	Kind       NodeKind     `json:"kind"`
	Boundary   geometry.Box `json:"boundary"`
	Parent     NodeID       `json:"parent"`
	Sibling    NodeID       `json:"sibling"`
	FirstChild NodeID       `json:"first_child"`
	ChildCount int          `json:"child_count"`
}

// IsLeaf returns true if this is a leaf node
func (n *Node) IsLeaf() bool {
	return n.Kind == LeafNode
}

// IsData returns true if this node stores an entry
func (n *Node) IsData() bool {
	return n.Kind == DataNode
}

// ObjectID decodes the entry identifier of a data node.
func (n *Node) ObjectID() int64 {
	return int64(-n.FirstChild)
}

// IsOverflowing reports whether the node holds more children than allowed.
func (n *Node) IsOverflowing(maxElements int) bool {
	return n.ChildCount > maxElements
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Boundary = n.Boundary.Clone()
	return &c
}

func (n *Node) String() string {
	if n.IsData() {
		return fmt.Sprintf("data#%d{object=%d parent=%d next=%d box=%v}",
			n.ID, n.ObjectID(), n.Parent, n.Sibling, []float64(n.Boundary))
	}
	return fmt.Sprintf("%s#%d{children=%d first=%d parent=%d next=%d box=%v}",
		n.Kind, n.ID, n.ChildCount, n.FirstChild, n.Parent, n.Sibling, []float64(n.Boundary))
}

func validKind(kind NodeKind) bool {
	return kind == InternalNode || kind == LeafNode || kind == DataNode
}
