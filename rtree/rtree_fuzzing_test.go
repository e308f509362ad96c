package rtree_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dannyswat/fsrtree/rtree"
	"github.com/dannyswat/fsrtree/rtree/geometry"
	"github.com/dannyswat/fsrtree/rtree/splittype"
)

func FuzzTree(f *testing.F) {
	f.Add(uint8(2), false, uint16(50), uint64(1))
	f.Add(uint8(4), true, uint16(200), uint64(2))
	f.Add(uint8(9), true, uint16(300), uint64(3))

	f.Fuzz(func(
		t *testing.T,
		maxElements uint8,
		quadratic bool,
		operations uint16,
		seed uint64,
	) {
		split := splittype.Linear
		if quadratic {
			split = splittype.Quadratic
		}
		tree := newMemoryTree(t, int(maxElements%15)+2, split)
		tree.BranchGrafting = seed%2 == 0
		rnd := rand.New(rand.NewPCG(seed, uint64(operations)))

		live := make(map[int64]geometry.Box)
		for i := range int(operations % 500) {
			if len(live) > 0 && rnd.IntN(4) == 0 {
				var id int64
				for id = range live {
					break
				}
				removed, err := tree.Remove(id, live[id]...)
				require.NoError(t, err)
				require.True(t, removed)
				delete(live, id)
			} else {
				id := int64(i + 1)
				box := geometry.Box(randomBox(rnd, 15))
				require.NoError(t, tree.Insert(id, box...))
				live[id] = box
			}
		}

		requireValid(t, tree)
		require.Equal(t, len(live), tree.Len())

		query := geometry.Box(randomBox(rnd, 40))
		var want []int64
		for id, box := range live {
			if geometry.Intersects(box, query) {
				want = append(want, id)
			}
		}

		got, err := tree.SearchID(query...)
		require.NoError(t, err)
		require.ElementsMatch(t, want, got)
	})
}

func BenchmarkInsert(b *testing.B) {
	rnd := rand.New(rand.NewPCG(16, 17))
	boxes := make([][]float64, 10_000)
	for i := range boxes {
		boxes[i] = randomBox(rnd, 1)
	}

	for _, split := range []splittype.SplitType{splittype.Linear, splittype.Quadratic} {
		b.Run(string(split), func(b *testing.B) {
			for range b.N {
				store, err := rtree.NewMemoryNodeStore(rtree.StoreConfig{MaxElements: 16, Split: split})
				require.NoError(b, err)
				tree, err := rtree.NewRTree(store, nil, nil)
				require.NoError(b, err)
				for i, box := range boxes {
					require.NoError(b, tree.Insert(i+1, box...))
				}
			}
		})
	}
}
