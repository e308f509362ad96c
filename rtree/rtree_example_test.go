package rtree_test

import (
	"fmt"
	"slices"

	"github.com/dannyswat/fsrtree/rtree"
	"github.com/dannyswat/fsrtree/rtree/splittype"
)

func Example() {
	store, err := rtree.NewMemoryNodeStore(rtree.StoreConfig{MaxElements: 2, Split: splittype.Linear})
	if err != nil {
		panic(err)
	}
	tree, err := rtree.NewRTree(store, nil, nil)
	if err != nil {
		panic(err)
	}
	defer tree.Close()

	tree.Insert(1, 0, 0, 1, 1)
	tree.Insert(2, 5, 5, 6, 6)
	tree.Insert(3, 10, 10, 11, 11)

	ids, _ := tree.SearchID(0, 0, 6, 6)

	// Order depends on the shape of the tree.
	slices.Sort(ids)
	fmt.Printf("Entries: %d, found: %v\n", tree.Len(), ids)

	removed, _ := tree.Remove(2, 5, 5, 6, 6)
	ids, _ = tree.SearchID(0, 0, 11, 11)
	slices.Sort(ids)
	fmt.Printf("Removed: %t, left: %v\n", removed, ids)

	// Output:
	// Entries: 3, found: [1 2]
	// Removed: true, left: [1 3]
}
