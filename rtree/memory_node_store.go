package rtree

import (
	"github.com/dannyswat/fsrtree/rtree/geometry"
)

// MemoryNodeStore keeps every node in a map. It hands out copies, so the
// engine sees the same value semantics as with a file-backed store.
type MemoryNodeStore struct {
	treeMeta
	nodes  map[NodeID]*Node
	free   []NodeID
	closed bool
}

var _ NodeStore = (*MemoryNodeStore)(nil)

// NewMemoryNodeStore creates an empty in-memory store.
func NewMemoryNodeStore(cfg StoreConfig) (*MemoryNodeStore, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MemoryNodeStore{
		treeMeta: newTreeMeta(cfg),
		nodes:    make(map[NodeID]*Node),
	}, nil
}

func (s *MemoryNodeStore) CreateNode(boundary geometry.Box, kind NodeKind, parent, sibling, child NodeID) (*Node, error) {
	if s.closed {
		return nil, ErrClosed
	}
	n, err := prepareNode(s.ReadNode, s.Dimension(), boundary, kind, parent, sibling, child)
	if err != nil {
		return nil, err
	}
	if last := len(s.free) - 1; last >= 0 {
		n.ID = s.free[last]
		s.free = s.free[:last]
	} else {
		n.ID = s.NextID
		s.NextID++
	}
	s.nodes[n.ID] = n.Clone()
	return n, nil
}

func (s *MemoryNodeStore) ReadNode(id NodeID) (*Node, error) {
	if s.closed {
		return nil, ErrClosed
	}
	n, ok := s.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	return n.Clone(), nil
}

func (s *MemoryNodeStore) WriteNode(n *Node) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.nodes[n.ID]; !ok {
		return notFound(n.ID)
	}
	s.nodes[n.ID] = n.Clone()
	return nil
}

func (s *MemoryNodeStore) FreeNode(id NodeID) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.nodes[id]; !ok {
		return notFound(id)
	}
	delete(s.nodes, id)
	s.free = append(s.free, id)
	return nil
}

func (s *MemoryNodeStore) Root() (*Node, error) {
	if s.treeMeta.Root == NoNode {
		return nil, nil
	}
	return s.ReadNode(s.treeMeta.Root)
}

func (s *MemoryNodeStore) SetRoot(n *Node) error {
	if s.closed {
		return ErrClosed
	}
	if n == nil {
		s.treeMeta.Root = NoNode
		return nil
	}
	if _, ok := s.nodes[n.ID]; !ok {
		return notFound(n.ID)
	}
	s.treeMeta.Root = n.ID
	return nil
}

func (s *MemoryNodeStore) SetElementsNumber(n int) error {
	if s.closed {
		return ErrClosed
	}
	s.Elements = n
	return nil
}

// Len returns the number of live node records, data nodes included.
func (s *MemoryNodeStore) Len() int {
	return len(s.nodes)
}

func (s *MemoryNodeStore) Close() error {
	s.closed = true
	return nil
}
