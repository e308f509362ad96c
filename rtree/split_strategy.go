package rtree

import (
	"math"

	"github.com/dannyswat/fsrtree/rtree/geometry"
	"github.com/dannyswat/fsrtree/rtree/splittype"
)

// SplitStrategy picks the two seed entries an overflowing node is split
// around.
type SplitStrategy interface {
	PickSeeds(boxes []geometry.Box) (int, int)
}

// linearSplit seeds with the two most separated entries.
type linearSplit struct{}

// quadraticSplit seeds with the pair that wastes the most space when grouped.
type quadraticSplit struct{}

var (
	_ SplitStrategy = linearSplit{}
	_ SplitStrategy = quadraticSplit{}
)

// NewSplitStrategy returns the strategy for choice.
func NewSplitStrategy(choice splittype.SplitType) (SplitStrategy, error) {
	switch choice {
	case splittype.Linear:
		return linearSplit{}, nil
	case splittype.Quadratic:
		return quadraticSplit{}, nil
	}
	return nil, invalidArgument("unknown split type %q", choice)
}

func (linearSplit) PickSeeds(boxes []geometry.Box) (int, int) {
	return pickPair(boxes, geometry.Distance)
}

func (quadraticSplit) PickSeeds(boxes []geometry.Box) (int, int) {
	return pickPair(boxes, func(a, b geometry.Box) float64 {
		return geometry.Space(geometry.Union(a, b)) - geometry.Space(a) - geometry.Space(b)
	})
}

// pickPair scans every pair and keeps the first one with the strictly
// greatest cost.
func pickPair(boxes []geometry.Box, cost func(a, b geometry.Box) float64) (int, int) {
	first, second := 0, 1
	best := math.Inf(-1)
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			if c := cost(boxes[i], boxes[j]); c > best {
				best = c
				first, second = i, j
			}
		}
	}
	return first, second
}

// minGroupSize is the fewest entries either half of a split may receive.
func minGroupSize(maxElements int) int {
	return max(maxElements/3, 1)
}

// partition distributes boxes into two groups of indices around the seeds
// chosen by strategy. Each group gets at least minGroupSize(maxElements)
// entries while enough entries are left to allow it.
func partition(strategy SplitStrategy, boxes []geometry.Box, maxElements int) ([]int, []int, error) {
	if len(boxes) < 2 {
		return nil, nil, invalidArgument("cannot split %d children", len(boxes))
	}
	s1, s2 := strategy.PickSeeds(boxes)
	groupA, groupB := []int{s1}, []int{s2}
	boxA, boxB := boxes[s1].Clone(), boxes[s2].Clone()

	minGroup := min(minGroupSize(maxElements), len(boxes)/2)
	remaining := len(boxes) - 2
	for i, box := range boxes {
		if i == s1 || i == s2 {
			continue
		}
		var toA bool
		switch {
		case len(groupA)+remaining <= minGroup:
			toA = true
		case len(groupB)+remaining <= minGroup:
			toA = false
		default:
			enlargeA := geometry.Enlargement(boxA, box)
			enlargeB := geometry.Enlargement(boxB, box)
			switch {
			case enlargeA != enlargeB:
				toA = enlargeA < enlargeB
			case len(groupA) != len(groupB):
				toA = len(groupA) < len(groupB)
			default:
				toA = true
			}
		}
		if toA {
			groupA = append(groupA, i)
			boxA.Expand(box)
		} else {
			groupB = append(groupB, i)
			boxB.Expand(box)
		}
		remaining--
	}
	return groupA, groupB, nil
}
