package rtree

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

const indexFileName = "index.rtree"

var errIndexClosed = fmt.Errorf("index: %w", ErrClosed)

// IndexManager manages a single spatial index.
// The nodes live in one index file inside the index's directory, or in memory
// when the definition says so.
type IndexManager struct {
	mu       sync.RWMutex
	indexDef IndexDefinition
	tree     *RTree
	log      logrus.FieldLogger
}

// NewIndexManager opens the index stored under indexPath, creating it when it
// does not exist yet.
// A nil mapper stores integer elements as their own ids.
func NewIndexManager(fp IFileProvider, indexPath string, indexDef IndexDefinition, mapper ElementMapper, logger logrus.FieldLogger) (*IndexManager, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("index", indexDef.Name)
	var store NodeStore
	if indexDef.InMemory {
		mem, err := NewMemoryNodeStore(indexDef.StoreConfig())
		if err != nil {
			return nil, err
		}
		store = mem
	} else {
		file, err := OpenFileNodeStore(fp, indexPath, indexFileName, indexDef.StoreConfig(), logger)
		if err != nil {
			return nil, err
		}
		store = file
	}
	tree, err := NewRTree(store, mapper, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	tree.BranchGrafting = indexDef.BranchGrafting
	return &IndexManager{
		indexDef: indexDef,
		tree:     tree,
		log:      logger,
	}, nil
}

// GetName returns the name of the index.
func (im *IndexManager) GetName() string {
	return im.indexDef.Name
}

// Definition returns the definition the index was opened with.
func (im *IndexManager) Definition() IndexDefinition {
	return im.indexDef
}

// Insert adds element under the box given by coordinates.
func (im *IndexManager) Insert(element any, coordinates ...float64) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.tree == nil {
		return errIndexClosed
	}
	return im.tree.Insert(element, coordinates...)
}

// Remove deletes element stored under coordinates and reports whether it was
// there.
func (im *IndexManager) Remove(element any, coordinates ...float64) (bool, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.tree == nil {
		return false, errIndexClosed
	}
	return im.tree.Remove(element, coordinates...)
}

// Update moves element from oldCoordinates to newCoordinates.
func (im *IndexManager) Update(element any, oldCoordinates, newCoordinates []float64) (bool, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.tree == nil {
		return false, errIndexClosed
	}
	return im.tree.Update(element, oldCoordinates, newCoordinates)
}

// Search returns the elements whose boxes intersect region.
func (im *IndexManager) Search(region ...float64) ([]any, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if im.tree == nil {
		return nil, errIndexClosed
	}
	return im.tree.Search(region...)
}

// SearchID returns the object ids whose boxes intersect region.
func (im *IndexManager) SearchID(region ...float64) ([]int64, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if im.tree == nil {
		return nil, errIndexClosed
	}
	return im.tree.SearchID(region...)
}

// Len returns the number of entries in the index.
func (im *IndexManager) Len() int {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if im.tree == nil {
		return 0
	}
	return im.tree.Len()
}

// Validate checks the structure of the index.
func (im *IndexManager) Validate() error {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if im.tree == nil {
		return errIndexClosed
	}
	return im.tree.Validate()
}

// Flush writes pending index metadata to disk. It does nothing for an
// in-memory index.
func (im *IndexManager) Flush() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.tree == nil {
		return errIndexClosed
	}
	if f, ok := im.tree.Store().(*FileNodeStore); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and releases the index. Further calls return errIndexClosed,
// except Close which is a no-op.
func (im *IndexManager) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.tree == nil {
		return nil
	}
	err := im.tree.Close()
	im.tree = nil
	im.log.Debug("closed index")
	return err
}
