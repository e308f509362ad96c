package rtree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dannyswat/fsrtree/rtree"
)

func TestIdentityMapper(t *testing.T) {
	t.Parallel()

	var m rtree.IdentityMapper

	for _, element := range []any{int(5), int32(5), int64(5), uint32(5), uint64(5)} {
		id, err := m.ObjectID(element)
		require.NoError(t, err)
		require.Equal(t, int64(5), id)
	}

	for _, element := range []any{0, -1, "5", 5.0, uint64(1 << 63)} {
		_, err := m.ObjectID(element)
		require.ErrorIs(t, err, rtree.ErrInvalidArgument, "element %v", element)
	}

	element, err := m.ObjectFromID(9)
	require.NoError(t, err)
	require.Equal(t, int64(9), element)
}

func TestSequenceMapper(t *testing.T) {
	t.Parallel()

	m := rtree.NewSequenceMapper()

	type point struct{ x, y int }

	first, err := m.ObjectID("a")
	require.NoError(t, err)
	second, err := m.ObjectID(point{1, 2})
	require.NoError(t, err)
	again, err := m.ObjectID("a")
	require.NoError(t, err)

	require.Equal(t, int64(1), first)
	require.Equal(t, int64(2), second)
	require.Equal(t, first, again)

	element, err := m.ObjectFromID(second)
	require.NoError(t, err)
	require.Equal(t, point{1, 2}, element)

	_, err = m.ObjectFromID(3)
	require.ErrorIs(t, err, rtree.ErrNotFound)

	_, err = m.ObjectID([]int{1})
	require.ErrorIs(t, err, rtree.ErrInvalidArgument)

	_, err = m.ObjectID(nil)
	require.ErrorIs(t, err, rtree.ErrInvalidArgument)
}
