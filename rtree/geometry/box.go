// Package geometry holds the bounding box arithmetic used by the R-tree.
//
// A Box is laid out as all minimums followed by all maximums, so a 2D box is
// [minX, minY, maxX, maxY]. Every function here is pure: inputs are never
// modified unless the name says so (Expand).
package geometry

import (
	"math"
	"slices"
)

// Box is an axis-aligned bounding box of length 2*dim.
type Box []float64

// Dimension returns the number of axes of b.
func (b Box) Dimension() int {
	return len(b) / 2
}

// Min returns the lower bound of b along axis.
func (b Box) Min(axis int) float64 {
	return b[axis]
}

// Max returns the upper bound of b along axis.
func (b Box) Max(axis int) float64 {
	return b[b.Dimension()+axis]
}

// Span returns the width of b along axis.
func (b Box) Span(axis int) float64 {
	return b.Max(axis) - b.Min(axis)
}

// Clone returns a copy of b that shares no memory with it.
func (b Box) Clone() Box {
	if b == nil {
		return nil
	}
	return slices.Clone(b)
}

// Valid reports whether b has an even, non-zero length, holds no NaN and has
// every minimum at or below its maximum.
func (b Box) Valid() bool {
	if len(b) == 0 || len(b)%2 != 0 {
		return false
	}
	dim := b.Dimension()
	for axis := 0; axis < dim; axis++ {
		lo, hi := b[axis], b[dim+axis]
		if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
			return false
		}
	}
	return true
}

// Expand grows b in place so that it also covers other.
func (b Box) Expand(other Box) {
	dim := b.Dimension()
	for axis := 0; axis < dim; axis++ {
		b[axis] = math.Min(b[axis], other[axis])
		b[dim+axis] = math.Max(b[dim+axis], other[dim+axis])
	}
}

// Union gives the smallest box containing both a and b.
func Union(a, b Box) Box {
	u := a.Clone()
	u.Expand(b)
	return u
}

// UnionAll gives the smallest box containing every box in boxes, or nil when
// boxes is empty.
func UnionAll(boxes []Box) Box {
	if len(boxes) == 0 {
		return nil
	}
	u := boxes[0].Clone()
	for _, b := range boxes[1:] {
		u.Expand(b)
	}
	return u
}

// Space returns the hyper-volume of b (area in 2D).
func Space(b Box) float64 {
	dim := b.Dimension()
	if dim == 0 {
		return 0
	}
	space := 1.0
	for axis := 0; axis < dim; axis++ {
		space *= b.Span(axis)
	}
	return space
}

// Enlargement returns how much space existing would have to gain to also
// cover with.
func Enlargement(existing, with Box) float64 {
	return Space(Union(existing, with)) - Space(existing)
}

// Intersects reports whether a and b share at least one point. Boxes that only
// touch on an edge intersect.
func Intersects(a, b Box) bool {
	dim := a.Dimension()
	for axis := 0; axis < dim; axis++ {
		if a.Min(axis) > b.Max(axis) || a.Max(axis) < b.Min(axis) {
			return false
		}
	}
	return true
}

// Contains reports whether outer fully covers inner.
func Contains(outer, inner Box) bool {
	dim := outer.Dimension()
	for axis := 0; axis < dim; axis++ {
		if inner.Min(axis) < outer.Min(axis) || inner.Max(axis) > outer.Max(axis) {
			return false
		}
	}
	return true
}

// Overlap returns the hyper-volume shared by a and b.
func Overlap(a, b Box) float64 {
	dim := a.Dimension()
	overlap := 1.0
	for axis := 0; axis < dim; axis++ {
		lo := math.Max(a.Min(axis), b.Min(axis))
		hi := math.Min(a.Max(axis), b.Max(axis))
		if hi <= lo {
			return 0
		}
		overlap *= hi - lo
	}
	return overlap
}

// Distance returns the euclidean length of the gap between a and b, which is
// 0 when they touch or overlap.
func Distance(a, b Box) float64 {
	dim := a.Dimension()
	var sum float64
	for axis := 0; axis < dim; axis++ {
		var gap float64
		switch {
		case a.Max(axis) < b.Min(axis):
			gap = b.Min(axis) - a.Max(axis)
		case b.Max(axis) < a.Min(axis):
			gap = a.Min(axis) - b.Max(axis)
		}
		sum += gap * gap
	}
	return math.Sqrt(sum)
}

// Equal reports whether a and b describe exactly the same box.
func Equal(a, b Box) bool {
	return slices.Equal(a, b)
}

// LargestAxis returns the axis along which b is widest. The first axis wins
// ties.
func LargestAxis(b Box) int {
	best := 0
	for axis := 1; axis < b.Dimension(); axis++ {
		if b.Span(axis) > b.Span(best) {
			best = axis
		}
	}
	return best
}

// SortByAxis stably sorts items by the lower bound of their box along axis,
// using the upper bound to order equal lower bounds.
func SortByAxis[T any](axis int, ascending bool, items []T, boxOf func(T) Box) {
	slices.SortStableFunc(items, func(x, y T) int {
		bx, by := boxOf(x), boxOf(y)
		c := compareFloat(bx.Min(axis), by.Min(axis))
		if c == 0 {
			c = compareFloat(bx.Max(axis), by.Max(axis))
		}
		if !ascending {
			c = -c
		}
		return c
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
