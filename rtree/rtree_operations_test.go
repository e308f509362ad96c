package rtree_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dannyswat/fsrtree/rtree"
	"github.com/dannyswat/fsrtree/rtree/geometry"
	"github.com/dannyswat/fsrtree/rtree/splittype"
)

// buildParent links kids, in order, under a new node of the given kind.
func buildParent(t *testing.T, store rtree.NodeStore, kind rtree.NodeKind, kids ...*rtree.Node) *rtree.Node {
	t.Helper()

	for i, k := range kids {
		k.Sibling = rtree.NoNode
		if i+1 < len(kids) {
			k.Sibling = kids[i+1].ID
		}
		require.NoError(t, store.WriteNode(k))
	}

	parent, err := store.CreateNode(nil, kind, rtree.NoNode, rtree.NoNode, kids[0].ID)
	require.NoError(t, err)
	require.Equal(t, len(kids), parent.ChildCount)

	for _, k := range kids {
		k.Parent = parent.ID
		require.NoError(t, store.WriteNode(k))
	}

	return parent
}

// buildLeaf creates a leaf holding one data node per entry, ordered by id.
func buildLeaf(t *testing.T, store rtree.NodeStore, entries map[int64][]float64) *rtree.Node {
	t.Helper()

	ids := make([]int64, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	data := make([]*rtree.Node, len(ids))
	for i, id := range ids {
		n, err := store.CreateNode(entries[id], rtree.DataNode, rtree.NoNode, rtree.NoNode, rtree.NodeID(-id))
		require.NoError(t, err)
		data[i] = n
	}

	return buildParent(t, store, rtree.LeafNode, data...)
}

func leafObjects(t *testing.T, tree *rtree.RTree, id rtree.NodeID) []int64 {
	t.Helper()

	leaf, err := tree.Store().ReadNode(id)
	require.NoError(t, err)
	entries, err := tree.Children(leaf)
	require.NoError(t, err)

	objects := make([]int64, len(entries))
	for i, e := range entries {
		objects[i] = e.ObjectID()
	}
	slices.Sort(objects)

	return objects
}

func TestGraftLeaves_separatesInterleavedLeaves(t *testing.T) {
	t.Parallel()

	tree := newMemoryTree(t, 4, splittype.Linear)
	store := tree.Store()

	a := buildLeaf(t, store, map[int64][]float64{
		1: {0, 0, 2, 1},
		2: {10, 0, 12, 1},
	})
	b := buildLeaf(t, store, map[int64][]float64{
		3: {1, 0, 3, 1},
		4: {11, 0, 13, 1},
	})
	root := buildParent(t, store, rtree.InternalNode, a, b)
	require.NoError(t, store.SetRoot(root))
	require.NoError(t, store.SetElementsNumber(4))
	requireValid(t, tree)

	a, err := store.ReadNode(a.ID)
	require.NoError(t, err)
	b, err = store.ReadNode(b.ID)
	require.NoError(t, err)
	require.Equal(t, 11.0, geometry.Overlap(a.Boundary, b.Boundary))

	grafted, err := tree.GraftLeaves(a, b)
	require.NoError(t, err)
	require.True(t, grafted)
	requireValid(t, tree)

	require.Equal(t, []int64{1, 3}, leafObjects(t, tree, a.ID))
	require.Equal(t, []int64{2, 4}, leafObjects(t, tree, b.ID))

	a, err = store.ReadNode(a.ID)
	require.NoError(t, err)
	b, err = store.ReadNode(b.ID)
	require.NoError(t, err)
	require.Equal(t, geometry.Box{0, 0, 3, 1}, a.Boundary)
	require.Equal(t, geometry.Box{10, 0, 13, 1}, b.Boundary)
	require.Zero(t, geometry.Overlap(a.Boundary, b.Boundary))

	ids, err := tree.SearchID(everything...)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2, 3, 4}, ids)
}

func TestGraftLeaves_rejectsNonSiblings(t *testing.T) {
	t.Parallel()

	tree := newMemoryTree(t, 4, splittype.Linear)
	store := tree.Store()

	a := buildLeaf(t, store, map[int64][]float64{1: {0, 0, 1, 1}})
	b := buildLeaf(t, store, map[int64][]float64{2: {2, 2, 3, 3}})

	_, err := tree.GraftLeaves(a, a)
	require.ErrorIs(t, err, rtree.ErrInvalidArgument)

	parent := buildParent(t, store, rtree.InternalNode, a, b)
	_, err = tree.GraftLeaves(parent, b)
	require.ErrorIs(t, err, rtree.ErrInvalidArgument)
}

func TestInsert_graftingAvoidsSplit(t *testing.T) {
	t.Parallel()

	tree := newMemoryTree(t, 4, splittype.Linear)
	tree.BranchGrafting = true
	store := tree.Store()

	a := buildLeaf(t, store, map[int64][]float64{
		1: {0, 0, 1, 1},
		2: {2, 0, 3, 1},
		3: {20, 0, 21, 1},
		4: {22, 0, 23, 1},
	})
	b := buildLeaf(t, store, map[int64][]float64{
		5: {30, 0, 31, 1},
	})
	root := buildParent(t, store, rtree.InternalNode, a, b)
	require.NoError(t, store.SetRoot(root))
	require.NoError(t, store.SetElementsNumber(5))
	requireValid(t, tree)

	// The new entry lands in a, which overflows. Handing the far entries of a
	// over to b leaves no overlap, so no new leaf is created.
	require.NoError(t, tree.Insert(6, 2.5, 0, 3.5, 1))
	requireValid(t, tree)

	root, err := store.Root()
	require.NoError(t, err)
	require.Equal(t, 2, root.ChildCount)

	require.Equal(t, []int64{1, 2, 6}, leafObjects(t, tree, a.ID))
	require.Equal(t, []int64{3, 4, 5}, leafObjects(t, tree, b.ID))
}

func childIDs(t *testing.T, tree *rtree.RTree, n *rtree.Node) []rtree.NodeID {
	t.Helper()

	children, err := tree.Children(n)
	require.NoError(t, err)

	ids := make([]rtree.NodeID, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}

	return ids
}

func TestRemove_dissolvesUnderfullLeaf(t *testing.T) {
	t.Parallel()

	tree := newMemoryTree(t, 4, splittype.Quadratic)
	store := tree.Store()

	a := buildLeaf(t, store, map[int64][]float64{
		1: {0, 0, 1, 1},
		2: {10, 0, 11, 1},
	})
	b := buildLeaf(t, store, map[int64][]float64{
		3: {9, 0, 10, 1},
		4: {11, 0, 12, 1},
		5: {12, 0, 13, 1},
	})
	c := buildLeaf(t, store, map[int64][]float64{
		6: {50, 0, 51, 1},
		7: {52, 0, 53, 1},
		8: {54, 0, 55, 1},
	})
	root := buildParent(t, store, rtree.InternalNode, a, b, c)
	require.NoError(t, store.SetRoot(root))
	require.NoError(t, store.SetElementsNumber(8))
	requireValid(t, tree)

	// a keeps a single entry, which is at most 4/3: the leaf goes away and
	// entry 2 moves into b, the leaf that covers it already.
	removed, err := tree.Remove(1, 0, 0, 1, 1)
	require.NoError(t, err)
	require.True(t, removed)
	requireValid(t, tree)

	root, err = store.Root()
	require.NoError(t, err)
	require.Equal(t, []rtree.NodeID{b.ID, c.ID}, childIDs(t, tree, root))
	require.Equal(t, []int64{2, 3, 4, 5}, leafObjects(t, tree, b.ID))
	require.Equal(t, []int64{6, 7, 8}, leafObjects(t, tree, c.ID))
	require.Equal(t, 7, tree.Len())

	// root, two leaves and seven data nodes
	require.Equal(t, 10, store.(*rtree.MemoryNodeStore).Len())

	ids, err := tree.SearchID(everything...)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{2, 3, 4, 5, 6, 7, 8}, ids)
}

func TestRemove_splicesOutSingleChildNode(t *testing.T) {
	t.Parallel()

	tree := newMemoryTree(t, 2, splittype.Linear)
	store := tree.Store()

	l1 := buildLeaf(t, store, map[int64][]float64{1: {0, 0, 1, 1}})
	l2 := buildLeaf(t, store, map[int64][]float64{
		2: {2, 0, 3, 1},
		3: {4, 0, 5, 1},
	})
	i1 := buildParent(t, store, rtree.InternalNode, l1, l2)
	l3 := buildLeaf(t, store, map[int64][]float64{
		4: {20, 0, 21, 1},
		5: {22, 0, 23, 1},
	})
	l4 := buildLeaf(t, store, map[int64][]float64{
		6: {24, 0, 25, 1},
		7: {26, 0, 27, 1},
	})
	i2 := buildParent(t, store, rtree.InternalNode, l3, l4)
	root := buildParent(t, store, rtree.InternalNode, i1, i2)
	require.NoError(t, store.SetRoot(root))
	require.NoError(t, store.SetElementsNumber(7))
	requireValid(t, tree)

	// l1 empties and is dropped, leaving i1 with l2 only.
	removed, err := tree.Remove(1, 0, 0, 1, 1)
	require.NoError(t, err)
	require.True(t, removed)
	requireValid(t, tree)

	root, err = store.Root()
	require.NoError(t, err)
	require.Equal(t, []rtree.NodeID{l2.ID, i2.ID}, childIDs(t, tree, root))
	require.Equal(t, geometry.Box{2, 0, 27, 1}, root.Boundary)

	got, err := store.ReadNode(l2.ID)
	require.NoError(t, err)
	require.Equal(t, root.ID, got.Parent)
	require.True(t, got.IsLeaf())

	for _, gone := range []rtree.NodeID{l1.ID, i1.ID} {
		_, err := store.ReadNode(gone)
		require.ErrorIs(t, err, rtree.ErrNotFound)
	}

	require.Equal(t, 6, tree.Len())
	ids, err := tree.SearchID(everything...)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{2, 3, 4, 5, 6, 7}, ids)
}

func TestSplitNode_promotesLoneChild(t *testing.T) {
	t.Parallel()

	for _, split := range []splittype.SplitType{splittype.Linear, splittype.Quadratic} {
		t.Run(string(split), func(t *testing.T) {
			t.Parallel()

			tree := newMemoryTree(t, 2, split)
			store := tree.Store()

			far := buildLeaf(t, store, map[int64][]float64{1: {0, 0, 1, 1}})
			near := buildLeaf(t, store, map[int64][]float64{2: {10, 0, 11, 1}})
			nearer := buildLeaf(t, store, map[int64][]float64{3: {11, 0, 12, 1}})
			n := buildParent(t, store, rtree.InternalNode, far, near, nearer)

			left, right, err := tree.SplitNode(n)
			require.NoError(t, err)

			promoted, group := left, right
			if right.ID == far.ID {
				promoted, group = right, left
			}
			require.Equal(t, far.ID, promoted.ID)
			require.True(t, promoted.IsLeaf())
			require.Equal(t, n.Parent, promoted.Parent)
			require.Equal(t, rtree.NoNode, promoted.Sibling)

			require.Equal(t, rtree.InternalNode, group.Kind)
			require.NotContains(t, []rtree.NodeID{n.ID, far.ID, near.ID, nearer.ID}, group.ID)
			require.ElementsMatch(t, []rtree.NodeID{near.ID, nearer.ID}, childIDs(t, tree, group))
			require.Equal(t, geometry.Box{10, 0, 12, 1}, group.Boundary)
		})
	}
}

func TestInsert_rootSplitPromotesLoneLeaf(t *testing.T) {
	t.Parallel()

	tree := newMemoryTree(t, 2, splittype.Quadratic)
	store := tree.Store()

	l1 := buildLeaf(t, store, map[int64][]float64{1: {0, 0, 1, 1}})
	l2 := buildLeaf(t, store, map[int64][]float64{
		2: {10, 0, 11, 1},
		3: {12, 0, 13, 1},
	})
	root := buildParent(t, store, rtree.InternalNode, l1, l2)
	require.NoError(t, store.SetRoot(root))
	require.NoError(t, store.SetElementsNumber(3))

	// l2 splits, the root then holds three leaves and splits in turn.
	require.NoError(t, tree.Insert(4, 14, 0, 15, 1))
	requireValid(t, tree)

	root, err := store.Root()
	require.NoError(t, err)
	require.Contains(t, childIDs(t, tree, root), l1.ID)

	got, err := store.ReadNode(l1.ID)
	require.NoError(t, err)
	require.Equal(t, root.ID, got.Parent)

	// four data nodes, three leaves, one internal node and the root
	require.Equal(t, 9, store.(*rtree.MemoryNodeStore).Len())
	require.Equal(t, 4, tree.Len())
}
