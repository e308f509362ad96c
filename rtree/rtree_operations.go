package rtree

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/dannyswat/fsrtree/rtree/geometry"
)

// children loads the child list of n in link order.
func (t *RTree) children(n *Node) ([]*Node, error) {
	if n.IsData() {
		return nil, nil
	}
	limit := t.store.MaxElements() + 1
	children := make([]*Node, 0, n.ChildCount)
	for id := n.FirstChild; id != NoNode; {
		if len(children) == limit {
			return nil, corrupt("node %d links more than %d children", n.ID, limit)
		}
		c, err := t.store.ReadNode(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load child %d of node %d: %w", id, n.ID, err)
		}
		children = append(children, c)
		id = c.Sibling
	}
	return children, nil
}

// appendChild links the already persisted node c at the tail of n's list.
// n itself is left for the caller to persist.
func (t *RTree) appendChild(n, c *Node) error {
	if n.FirstChild == NoNode {
		n.FirstChild = c.ID
	} else {
		tail, err := t.store.ReadNode(n.FirstChild)
		if err != nil {
			return err
		}
		for tail.Sibling != NoNode {
			if tail, err = t.store.ReadNode(tail.Sibling); err != nil {
				return err
			}
		}
		tail.Sibling = c.ID
		if err := t.store.WriteNode(tail); err != nil {
			return err
		}
	}
	n.ChildCount++
	return nil
}

// adopt makes kids the complete child list of n, in order, and recomputes
// n's boundary. Every kid is persisted; n is left for the caller.
func (t *RTree) adopt(n *Node, kids []*Node) error {
	n.FirstChild = NoNode
	n.ChildCount = len(kids)
	n.Boundary = nil
	for i := len(kids) - 1; i >= 0; i-- {
		c := kids[i]
		c.Parent = n.ID
		c.Sibling = n.FirstChild
		if err := t.store.WriteNode(c); err != nil {
			return err
		}
		n.FirstChild = c.ID
		if n.Boundary == nil {
			n.Boundary = c.Boundary.Clone()
		} else {
			n.Boundary.Expand(c.Boundary)
		}
	}
	return nil
}

// replaceChild swaps old for the nodes in with, at old's position in the
// child list of parent. parent is left for the caller to persist.
func (t *RTree) replaceChild(parent, old *Node, with ...*Node) error {
	var prev *Node
	for id := parent.FirstChild; id != old.ID; {
		if id == NoNode {
			return corrupt("node %d is not a child of node %d", old.ID, parent.ID)
		}
		p, err := t.store.ReadNode(id)
		if err != nil {
			return err
		}
		prev = p
		id = p.Sibling
	}
	head := old.Sibling
	for i := len(with) - 1; i >= 0; i-- {
		w := with[i]
		w.Parent = parent.ID
		w.Sibling = head
		if err := t.store.WriteNode(w); err != nil {
			return err
		}
		head = w.ID
	}
	if prev == nil {
		parent.FirstChild = head
	} else {
		prev.Sibling = head
		if err := t.store.WriteNode(prev); err != nil {
			return err
		}
	}
	parent.ChildCount += len(with) - 1
	return nil
}

// resolveOverflow deals with a child of parent holding one child too many:
// by grafting onto a sibling leaf when enabled and possible, by splitting
// otherwise.
func (t *RTree) resolveOverflow(parent, child *Node) error {
	if t.BranchGrafting && child.IsLeaf() {
		grafted, err := t.graftWithSibling(parent, child)
		if err != nil || grafted {
			return err
		}
	}
	left, right, err := t.splitNode(child)
	if err != nil {
		return err
	}
	if err := t.replaceChild(parent, child, left, right); err != nil {
		return err
	}
	return t.store.FreeNode(child.ID)
}

// splitNode divides the children of an overflowing node into two nodes
// carrying n's kind and parent. A group that is a single child of an
// internal node is returned as is instead of being wrapped. The caller links
// the results into place and frees n.
func (t *RTree) splitNode(n *Node) (*Node, *Node, error) {
	children, err := t.children(n)
	if err != nil {
		return nil, nil, err
	}
	boxes := make([]geometry.Box, len(children))
	for i, c := range children {
		boxes[i] = c.Boundary
	}
	groupA, groupB, err := partition(t.strategy, boxes, t.store.MaxElements())
	if err != nil {
		return nil, nil, err
	}
	left, err := t.buildGroup(n, children, groupA)
	if err != nil {
		return nil, nil, err
	}
	right, err := t.buildGroup(n, children, groupB)
	if err != nil {
		return nil, nil, err
	}
	t.log.WithFields(logrus.Fields{
		"node":  n.ID,
		"kind":  n.Kind,
		"left":  fmt.Sprintf("%d(%d)", left.ID, len(groupA)),
		"right": fmt.Sprintf("%d(%d)", right.ID, len(groupB)),
	}).Debug("split node")
	return left, right, nil
}

func (t *RTree) buildGroup(n *Node, children []*Node, group []int) (*Node, error) {
	members := make([]*Node, len(group))
	boxes := make([]geometry.Box, len(group))
	for i, idx := range group {
		members[i] = children[idx]
		boxes[i] = children[idx].Boundary
	}
	if n.Kind == InternalNode && len(members) == 1 {
		promoted := members[0]
		promoted.Parent = n.Parent
		promoted.Sibling = NoNode
		return promoted, t.store.WriteNode(promoted)
	}
	g, err := t.store.CreateNode(geometry.UnionAll(boxes), n.Kind, n.Parent, NoNode, NoNode)
	if err != nil {
		return nil, err
	}
	if err := t.adopt(g, members); err != nil {
		return nil, err
	}
	return g, t.store.WriteNode(g)
}

// graftWithSibling tries branchGrafting between child and each sibling leaf
// in turn and reports whether one of them took the overflow.
func (t *RTree) graftWithSibling(parent, child *Node) (bool, error) {
	siblings, err := t.children(parent)
	if err != nil {
		return false, err
	}
	for _, s := range siblings {
		if s.ID == child.ID || !s.IsLeaf() {
			continue
		}
		grafted, err := t.branchGrafting(child, s)
		if err != nil || grafted {
			return grafted, err
		}
	}
	return false, nil
}

// branchGrafting redistributes the entries of two sibling leaves. The pooled
// entries are sorted along the widest axis of their union and cut where the
// two resulting boxes overlap least, with neither side above the fan-out
// bound. The leaves are only rewritten when the best cut does not overlap
// more than the current pair does.
func (t *RTree) branchGrafting(a, b *Node) (bool, error) {
	if !a.IsLeaf() || !b.IsLeaf() || a.Parent != b.Parent || a.ID == b.ID {
		return false, invalidArgument("branch grafting needs two distinct sibling leaves, got %d and %d", a.ID, b.ID)
	}
	entriesA, err := t.children(a)
	if err != nil {
		return false, err
	}
	entriesB, err := t.children(b)
	if err != nil {
		return false, err
	}
	maxElements := t.store.MaxElements()
	pool := append(append(make([]*Node, 0, len(entriesA)+len(entriesB)), entriesA...), entriesB...)
	total := len(pool)
	if total < 2 || total > 2*maxElements {
		return false, nil
	}
	boxOf := func(n *Node) geometry.Box { return n.Boundary }
	current := geometry.Overlap(unionOf(entriesA), unionOf(entriesB))

	geometry.SortByAxis(geometry.LargestAxis(unionOf(pool)), true, pool, boxOf)
	prefix := make([]geometry.Box, total)
	suffix := make([]geometry.Box, total)
	for i := range pool {
		prefix[i] = pool[i].Boundary.Clone()
		if i > 0 {
			prefix[i].Expand(prefix[i-1])
		}
	}
	for i := total - 1; i >= 0; i-- {
		suffix[i] = pool[i].Boundary.Clone()
		if i < total-1 {
			suffix[i].Expand(suffix[i+1])
		}
	}
	cut, best := -1, math.Inf(1)
	for k := max(1, total-maxElements); k <= min(maxElements, total-1); k++ {
		if o := geometry.Overlap(prefix[k-1], suffix[k]); o < best {
			cut, best = k, o
		}
	}
	if cut < 0 || best > current {
		return false, nil
	}
	if err := t.adopt(a, pool[:cut]); err != nil {
		return false, err
	}
	if err := t.adopt(b, pool[cut:]); err != nil {
		return false, err
	}
	if err := t.store.WriteNode(a); err != nil {
		return false, err
	}
	if err := t.store.WriteNode(b); err != nil {
		return false, err
	}
	t.log.WithFields(logrus.Fields{
		"leaf":    a.ID,
		"sibling": b.ID,
		"cut":     cut,
		"overlap": best,
	}).Debug("grafted leaves")
	return true, nil
}

func unionOf(nodes []*Node) geometry.Box {
	boxes := make([]geometry.Box, len(nodes))
	for i, n := range nodes {
		boxes[i] = n.Boundary
	}
	return geometry.UnionAll(boxes)
}

// Remove deletes the entry of element stored under exactly coordinates. It
// reports false when there is no such entry.
func (t *RTree) Remove(element any, coordinates ...float64) (bool, error) {
	box, err := t.checkBox(coordinates)
	if err != nil {
		return false, err
	}
	id, err := t.objectID(element)
	if err != nil {
		return false, err
	}
	root, err := t.store.Root()
	if err != nil {
		return false, fmt.Errorf("rtree remove object %d: %w", id, err)
	}
	if root == nil {
		return false, nil
	}
	found, err := t.removeFrom(root, box, id)
	if err != nil {
		return false, fmt.Errorf("rtree remove object %d: %w", id, err)
	}
	return found, nil
}

// removeFrom searches below n, skipping subtrees whose boundary does not
// cover box. Ancestors must not persist anything after a successful removal
// because trim has already rewritten them.
func (t *RTree) removeFrom(n *Node, box geometry.Box, objectID int64) (bool, error) {
	if n.Boundary == nil || !geometry.Contains(n.Boundary, box) {
		return false, nil
	}
	children, err := t.children(n)
	if err != nil {
		return false, err
	}
	if !n.IsLeaf() {
		for _, c := range children {
			found, err := t.removeFrom(c, box, objectID)
			if err != nil || found {
				return found, err
			}
		}
		return false, nil
	}
	for i, c := range children {
		if c.ObjectID() != objectID || !geometry.Equal(c.Boundary, box) {
			continue
		}
		if i == 0 {
			n.FirstChild = c.Sibling
		} else {
			prev := children[i-1]
			prev.Sibling = c.Sibling
			if err := t.store.WriteNode(prev); err != nil {
				return false, err
			}
		}
		n.ChildCount--
		if err := t.store.WriteNode(n); err != nil {
			return false, err
		}
		if err := t.store.FreeNode(c.ID); err != nil {
			return false, err
		}
		if err := t.store.SetElementsNumber(t.store.ElementsNumber() - 1); err != nil {
			return false, err
		}
		return true, t.trim(n)
	}
	return false, nil
}

type orphan struct {
	box      geometry.Box
	objectID int64
}

// trim condenses the tree from n up to the root after a removal. At every
// level, empty children are dropped, underfull leaves are dissolved with
// their entries set aside, and internal children left with a single child
// are spliced out. The set-aside entries are inserted again once the walk has
// reached the root.
func (t *RTree) trim(n *Node) error {
	maxElements := t.store.MaxElements()
	var orphans []orphan
	node := n
	for {
		kids, err := t.children(node)
		if err != nil {
			return err
		}
		survivors := make([]*Node, 0, len(kids))
		changed := false
		for _, c := range kids {
			switch {
			case c.IsData():
				survivors = append(survivors, c)
			case c.ChildCount == 0:
				changed = true
				if err := t.store.FreeNode(c.ID); err != nil {
					return err
				}
			case c.IsLeaf() && c.ChildCount <= maxElements/3:
				changed = true
				entries, err := t.dissolve(c)
				if err != nil {
					return err
				}
				orphans = append(orphans, entries...)
			case !c.IsLeaf() && c.ChildCount == 1:
				changed = true
				only, err := t.store.ReadNode(c.FirstChild)
				if err != nil {
					return err
				}
				if err := t.store.FreeNode(c.ID); err != nil {
					return err
				}
				survivors = append(survivors, only)
			default:
				survivors = append(survivors, c)
			}
		}
		if changed {
			if err := t.adopt(node, survivors); err != nil {
				return err
			}
		} else {
			node.Boundary = unionOf(survivors)
		}
		if err := t.store.WriteNode(node); err != nil {
			return err
		}
		if node.Parent == NoNode {
			break
		}
		if node, err = t.store.ReadNode(node.Parent); err != nil {
			return err
		}
	}
	if err := t.shortenRoot(node); err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}
	t.log.WithField("entries", len(orphans)).Debug("reinserting entries of dissolved leaves")
	if err := t.store.SetElementsNumber(t.store.ElementsNumber() - len(orphans)); err != nil {
		return err
	}
	for _, o := range orphans {
		if err := t.insertEntry(o.box, o.objectID); err != nil {
			return err
		}
	}
	return nil
}

// dissolve frees an underfull leaf and its data nodes and returns the entries
// they held.
func (t *RTree) dissolve(leaf *Node) ([]orphan, error) {
	entries, err := t.children(leaf)
	if err != nil {
		return nil, err
	}
	orphans := make([]orphan, 0, len(entries))
	for _, e := range entries {
		orphans = append(orphans, orphan{box: e.Boundary, objectID: e.ObjectID()})
		if err := t.store.FreeNode(e.ID); err != nil {
			return nil, err
		}
	}
	t.log.WithFields(logrus.Fields{
		"leaf":    leaf.ID,
		"entries": len(entries),
	}).Debug("dissolved underfull leaf")
	return orphans, t.store.FreeNode(leaf.ID)
}

// shortenRoot drops an empty root and replaces an internal root that has a
// single child by that child.
func (t *RTree) shortenRoot(root *Node) error {
	for {
		switch {
		case root.ChildCount == 0:
			if err := t.store.FreeNode(root.ID); err != nil {
				return err
			}
			t.log.Debug("tree is empty")
			return t.store.SetRoot(nil)
		case !root.IsLeaf() && root.ChildCount == 1:
			child, err := t.store.ReadNode(root.FirstChild)
			if err != nil {
				return err
			}
			child.Parent = NoNode
			child.Sibling = NoNode
			if err := t.store.WriteNode(child); err != nil {
				return err
			}
			if err := t.store.FreeNode(root.ID); err != nil {
				return err
			}
			if err := t.store.SetRoot(child); err != nil {
				return err
			}
			t.log.WithFields(logrus.Fields{
				"old_root": root.ID,
				"root":     child.ID,
			}).Debug("shortened tree")
			root = child
		default:
			return nil
		}
	}
}
