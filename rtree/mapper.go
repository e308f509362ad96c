package rtree

import (
	"fmt"
	"reflect"
)

// ElementMapper converts caller elements to the integer identifiers stored in
// data nodes and back. The tree never looks inside an element.
type ElementMapper interface {
	ObjectID(element any) (int64, error)
	ObjectFromID(id int64) (any, error)
}

// IdentityMapper treats integer elements as their own identifiers. Ids must be
// positive because 0 is the "no child" sentinel.
type IdentityMapper struct{}

var _ ElementMapper = IdentityMapper{}

func (IdentityMapper) ObjectID(element any) (int64, error) {
	var id int64
	switch v := element.(type) {
	case int:
		id = int64(v)
	case int32:
		id = int64(v)
	case int64:
		id = v
	case uint32:
		id = int64(v)
	case uint64:
		if v > 1<<62 {
			return 0, invalidArgument("element %d is out of range", v)
		}
		id = int64(v)
	default:
		return 0, invalidArgument("element of type %T is not an integer identifier", element)
	}
	if id <= 0 {
		return 0, invalidArgument("element identifier must be positive, got %d", id)
	}
	return id, nil
}

func (IdentityMapper) ObjectFromID(id int64) (any, error) {
	return id, nil
}

// SequenceMapper hands out identifiers 1, 2, 3, ... to comparable elements the
// first time it sees them and remembers the mapping in memory.
type SequenceMapper struct {
	ids      map[any]int64
	elements map[int64]any
	next     int64
}

var _ ElementMapper = (*SequenceMapper)(nil)

func NewSequenceMapper() *SequenceMapper {
	return &SequenceMapper{
		ids:      make(map[any]int64),
		elements: make(map[int64]any),
		next:     1,
	}
}

func (m *SequenceMapper) ObjectID(element any) (int64, error) {
	if element == nil {
		return 0, invalidArgument("element is nil")
	}
	if !reflect.TypeOf(element).Comparable() {
		return 0, invalidArgument("element of type %T is not comparable", element)
	}
	if id, ok := m.ids[element]; ok {
		return id, nil
	}
	id := m.next
	m.next++
	m.ids[element] = id
	m.elements[id] = element
	return id, nil
}

func (m *SequenceMapper) ObjectFromID(id int64) (any, error) {
	element, ok := m.elements[id]
	if !ok {
		return nil, fmt.Errorf("%w: no element for object id %d", ErrNotFound, id)
	}
	return element, nil
}
