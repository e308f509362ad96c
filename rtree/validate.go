package rtree

import (
	"fmt"

	"github.com/dannyswat/fsrtree/rtree/geometry"
)

// Validate walks the whole tree and returns an ErrCorruptIndex error naming
// the first broken invariant, or nil when the tree is sound.
func (t *RTree) Validate() error {
	root, err := t.store.Root()
	if err != nil {
		return fmt.Errorf("rtree validate: %w", err)
	}
	if root == nil {
		if n := t.store.ElementsNumber(); n != 0 {
			return corrupt("empty tree counts %d elements", n)
		}
		return nil
	}
	if root.Parent != NoNode {
		return corrupt("root %d has parent %d", root.ID, root.Parent)
	}
	if root.IsData() {
		return corrupt("root %d is a data node", root.ID)
	}
	entries, err := t.validateNode(root)
	if err != nil {
		return err
	}
	if n := t.store.ElementsNumber(); n != entries {
		return corrupt("tree counts %d elements but holds %d data nodes", n, entries)
	}
	return nil
}

// validateNode checks n and its subtree and returns the number of data nodes
// below it.
func (t *RTree) validateNode(n *Node) (int, error) {
	if n.ChildCount > t.store.MaxElements() {
		return 0, corrupt("node %d has %d children, more than %d", n.ID, n.ChildCount, t.store.MaxElements())
	}
	children, err := t.children(n)
	if err != nil {
		return 0, err
	}
	if len(children) != n.ChildCount {
		return 0, corrupt("node %d links %d children but counts %d", n.ID, len(children), n.ChildCount)
	}
	if len(children) == 0 {
		return 0, corrupt("%s node %d has no children", n.Kind, n.ID)
	}
	entries := 0
	boxes := make([]geometry.Box, 0, len(children))
	for _, c := range children {
		if c.Parent != n.ID {
			return 0, corrupt("node %d lists child %d whose parent is %d", n.ID, c.ID, c.Parent)
		}
		if !c.Boundary.Valid() {
			return 0, corrupt("node %d has no valid boundary", c.ID)
		}
		boxes = append(boxes, c.Boundary)
		switch {
		case n.IsLeaf():
			if !c.IsData() {
				return 0, corrupt("leaf %d holds %s node %d", n.ID, c.Kind, c.ID)
			}
			if c.ObjectID() <= 0 {
				return 0, corrupt("data node %d holds object id %d", c.ID, c.ObjectID())
			}
			entries++
		case c.IsData():
			return 0, corrupt("internal node %d holds data node %d", n.ID, c.ID)
		default:
			below, err := t.validateNode(c)
			if err != nil {
				return 0, err
			}
			entries += below
		}
	}
	if union := geometry.UnionAll(boxes); !geometry.Equal(n.Boundary, union) {
		return 0, corrupt("boundary %v of node %d is not the union %v of its children", []float64(n.Boundary), n.ID, []float64(union))
	}
	return entries, nil
}
