package rtree

import "github.com/dannyswat/fsrtree/rtree/geometry"

// MinGroupSize reexports the internal [minGroupSize] function.
var MinGroupSize = minGroupSize

// Partition reexports the internal [partition] function.
func Partition(strategy SplitStrategy, boxes []geometry.Box, maxElements int) ([]int, []int, error) {
	return partition(strategy, boxes, maxElements)
}

// Children reexports the internal [RTree.children] method.
func (t *RTree) Children(n *Node) ([]*Node, error) {
	return t.children(n)
}

// GraftLeaves reexports the internal [RTree.branchGrafting] method.
func (t *RTree) GraftLeaves(a, b *Node) (bool, error) {
	return t.branchGrafting(a, b)
}

// ChooseSubtree reexports the internal [RTree.chooseSubtree] method.
func (t *RTree) ChooseSubtree(n *Node, box geometry.Box) (*Node, error) {
	return t.chooseSubtree(n, box)
}

// SplitNode reexports the internal [RTree.splitNode] method.
func (t *RTree) SplitNode(n *Node) (*Node, *Node, error) {
	return t.splitNode(n)
}
