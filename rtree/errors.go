package rtree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports malformed input. It is always returned before
	// anything is persisted.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound reports a node id that does not name a live record. Seeing it
	// during an operation means the index is corrupt.
	ErrNotFound = errors.New("node not found")
	// ErrStoreIndex is matched by every *StoreIndexError.
	ErrStoreIndex = errors.New("store index failure")
	// ErrClosed is returned by a store used after Close.
	ErrClosed = errors.New("store is closed")
)

// StoreIndexError wraps an I/O failure of a NodeStore.
type StoreIndexError struct {
	Op     string
	NodeID NodeID
	Err    error
}

func (e *StoreIndexError) Error() string {
	if e.NodeID != NoNode {
		return fmt.Sprintf("store index: %s node %d: %v", e.Op, e.NodeID, e.Err)
	}
	return fmt.Sprintf("store index: %s: %v", e.Op, e.Err)
}

func (e *StoreIndexError) Unwrap() error {
	return e.Err
}

func (e *StoreIndexError) Is(target error) bool {
	return target == ErrStoreIndex
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFound(id NodeID) error {
	return fmt.Errorf("%w: id %d", ErrNotFound, id)
}

func storeFailure(op string, id NodeID, err error) error {
	return &StoreIndexError{Op: op, NodeID: id, Err: err}
}

// ErrCorruptIndex reports a broken structural invariant found while walking
// the tree. It points at a bug or at damaged storage, never at bad input.
var ErrCorruptIndex = errors.New("corrupt index")

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptIndex, fmt.Sprintf(format, args...))
}
