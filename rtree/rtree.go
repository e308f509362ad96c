package rtree

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dannyswat/fsrtree/rtree/geometry"
)

// RTree provides R-tree operations over a pluggable node store.
//
// An RTree is not safe for concurrent use: each call assumes exclusive access
// to the store until it returns. IndexManager adds the locking.
type RTree struct {
	store    NodeStore
	mapper   ElementMapper
	strategy SplitStrategy
	log      logrus.FieldLogger

	// BranchGrafting lets an overflowing leaf hand entries over to a sibling
	// leaf before it is split.
	BranchGrafting bool
}

// NewRTree creates an R-tree on top of store. A nil mapper means elements are
// integer identifiers; a nil logger uses the logrus standard logger.
func NewRTree(store NodeStore, mapper ElementMapper, logger logrus.FieldLogger) (*RTree, error) {
	if store == nil {
		return nil, invalidArgument("node store is nil")
	}
	if mapper == nil {
		mapper = IdentityMapper{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	strategy, err := NewSplitStrategy(store.SplitChoice())
	if err != nil {
		return nil, err
	}
	return &RTree{
		store:    store,
		mapper:   mapper,
		strategy: strategy,
		log:      logger,
	}, nil
}

// Len returns the number of stored entries.
func (t *RTree) Len() int {
	return t.store.ElementsNumber()
}

// Dimension returns the number of axes every box must have.
func (t *RTree) Dimension() int {
	return t.store.Dimension()
}

// Store returns the underlying node store.
func (t *RTree) Store() NodeStore {
	return t.store
}

// Close closes the node store.
func (t *RTree) Close() error {
	return t.store.Close()
}

// checkBox validates caller coordinates and returns a private copy of them.
func (t *RTree) checkBox(coordinates []float64) (geometry.Box, error) {
	if coordinates == nil {
		return nil, invalidArgument("coordinates are nil")
	}
	if want := 2 * t.store.Dimension(); len(coordinates) != want {
		return nil, invalidArgument("got %d coordinates, want %d", len(coordinates), want)
	}
	box := geometry.Box(coordinates).Clone()
	if !box.Valid() {
		return nil, invalidArgument("coordinates %v do not describe a box", coordinates)
	}
	return box, nil
}

func (t *RTree) objectID(element any) (int64, error) {
	if element == nil {
		return 0, invalidArgument("element is nil")
	}
	id, err := t.mapper.ObjectID(element)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, invalidArgument("object id must be positive, got %d", id)
	}
	return id, nil
}

// Insert stores element under the box given by coordinates (all minimums,
// then all maximums).
func (t *RTree) Insert(element any, coordinates ...float64) error {
	box, err := t.checkBox(coordinates)
	if err != nil {
		return err
	}
	id, err := t.objectID(element)
	if err != nil {
		return err
	}
	if err := t.insertEntry(box, id); err != nil {
		return fmt.Errorf("rtree insert object %d: %w", id, err)
	}
	return nil
}

// insertEntry adds one data node and counts it.
func (t *RTree) insertEntry(box geometry.Box, objectID int64) error {
	root, err := t.store.Root()
	if err != nil {
		return err
	}
	if root == nil {
		if err := t.plantRoot(box, objectID); err != nil {
			return err
		}
	} else {
		if err := t.nodeInsert(root, box, objectID); err != nil {
			return err
		}
		if root.IsOverflowing(t.store.MaxElements()) {
			if err := t.growRoot(root); err != nil {
				return err
			}
		}
	}
	return t.store.SetElementsNumber(t.store.ElementsNumber() + 1)
}

// plantRoot starts an empty tree with a leaf root holding one entry.
func (t *RTree) plantRoot(box geometry.Box, objectID int64) error {
	leaf, err := t.store.CreateNode(box, LeafNode, NoNode, NoNode, NoNode)
	if err != nil {
		return err
	}
	data, err := t.store.CreateNode(box, DataNode, leaf.ID, NoNode, NodeID(-objectID))
	if err != nil {
		return err
	}
	leaf.FirstChild = data.ID
	leaf.ChildCount = 1
	if err := t.store.WriteNode(leaf); err != nil {
		return err
	}
	t.log.WithField("root", leaf.ID).Debug("planted root leaf")
	return t.store.SetRoot(leaf)
}

// nodeInsert places the entry below n and persists n. On return n may hold
// one child more than allowed; the caller resolves that overflow because it
// owns the list n is linked into.
func (t *RTree) nodeInsert(n *Node, box geometry.Box, objectID int64) error {
	if n.IsLeaf() {
		data, err := t.store.CreateNode(box, DataNode, n.ID, NoNode, NodeID(-objectID))
		if err != nil {
			return err
		}
		if err := t.appendChild(n, data); err != nil {
			return err
		}
	} else {
		child, err := t.chooseSubtree(n, box)
		if err != nil {
			return err
		}
		if err := t.nodeInsert(child, box, objectID); err != nil {
			return err
		}
		if child.IsOverflowing(t.store.MaxElements()) {
			if err := t.resolveOverflow(n, child); err != nil {
				return err
			}
		}
	}
	if n.Boundary == nil {
		n.Boundary = box.Clone()
	} else {
		n.Boundary.Expand(box)
	}
	return t.store.WriteNode(n)
}

// chooseSubtree picks the child of n needing the least enlargement to cover
// box. Fewer children breaks ties, then the first child wins.
func (t *RTree) chooseSubtree(n *Node, box geometry.Box) (*Node, error) {
	children, err := t.children(n)
	if err != nil {
		return nil, err
	}
	var best *Node
	var bestCost float64
	for _, c := range children {
		cost := geometry.Enlargement(c.Boundary, box)
		if best == nil || cost < bestCost || (cost == bestCost && c.ChildCount < best.ChildCount) {
			best, bestCost = c, cost
		}
	}
	if best == nil {
		return nil, corrupt("internal node %d has no children", n.ID)
	}
	return best, nil
}

// growRoot splits an overflowing root and puts a new root above the halves.
func (t *RTree) growRoot(root *Node) error {
	left, right, err := t.splitNode(root)
	if err != nil {
		return err
	}
	left.Sibling = right.ID
	right.Sibling = NoNode
	if err := t.store.WriteNode(left); err != nil {
		return err
	}
	if err := t.store.WriteNode(right); err != nil {
		return err
	}
	newRoot, err := t.store.CreateNode(nil, InternalNode, NoNode, NoNode, left.ID)
	if err != nil {
		return err
	}
	for _, half := range []*Node{left, right} {
		half.Parent = newRoot.ID
		if err := t.store.WriteNode(half); err != nil {
			return err
		}
	}
	if err := t.store.FreeNode(root.ID); err != nil {
		return err
	}
	t.log.WithFields(logrus.Fields{
		"old_root": root.ID,
		"root":     newRoot.ID,
	}).Debug("grew new root")
	return t.store.SetRoot(newRoot)
}

// SearchID returns the object ids of every entry whose box intersects region.
// The result is empty for an empty tree.
func (t *RTree) SearchID(region ...float64) ([]int64, error) {
	box, err := t.checkBox(region)
	if err != nil {
		return nil, err
	}
	root, err := t.store.Root()
	if err != nil {
		return nil, fmt.Errorf("rtree search: %w", err)
	}
	if root == nil || !geometry.Intersects(root.Boundary, box) {
		return nil, nil
	}
	var ids []int64
	var walk func(n *Node) error
	walk = func(n *Node) error {
		children, err := t.children(n)
		if err != nil {
			return err
		}
		for _, c := range children {
			if !geometry.Intersects(c.Boundary, box) {
				continue
			}
			if c.IsData() {
				ids = append(ids, c.ObjectID())
				continue
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, fmt.Errorf("rtree search: %w", err)
	}
	return ids, nil
}

// Search is SearchID with every id mapped back to its element.
func (t *RTree) Search(region ...float64) ([]any, error) {
	ids, err := t.SearchID(region...)
	if err != nil {
		return nil, err
	}
	elements := make([]any, 0, len(ids))
	for _, id := range ids {
		element, err := t.mapper.ObjectFromID(id)
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}
	return elements, nil
}

// Update moves element from oldCoordinates to newCoordinates. It reports
// false, and inserts nothing, when element was not stored at oldCoordinates.
// When the insert at newCoordinates fails the entry is stored again under
// oldCoordinates.
func (t *RTree) Update(element any, oldCoordinates, newCoordinates []float64) (bool, error) {
	if _, err := t.checkBox(newCoordinates); err != nil {
		return false, err
	}
	removed, err := t.Remove(element, oldCoordinates...)
	if err != nil || !removed {
		return false, err
	}
	if err := t.Insert(element, newCoordinates...); err != nil {
		if restoreErr := t.Insert(element, oldCoordinates...); restoreErr != nil {
			return false, fmt.Errorf("%w; restoring old box: %w", err, restoreErr)
		}
		return false, err
	}
	return true, nil
}
