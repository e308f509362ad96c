package rtree

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const definitionFileName = "definition.json"

var (
	ErrIndexExists   = errors.New("index already exists")
	ErrIndexNotExist = errors.New("index does not exist")
	ErrInvalidIndex  = errors.New("invalid index")
)

// Database manages named spatial indexes stored under one directory.
// Each index owns a sub directory holding its definition and its index file.
type Database struct {
	mu           sync.RWMutex
	basePath     string                     // Base path where all indexes are stored (e.g., /data/mydb)
	definitions  map[string]IndexDefinition // Map of index name to its definition
	indexes      map[string]*IndexManager   // Indexes opened so far
	fileProvider IFileProvider              // Injected file provider
	log          logrus.FieldLogger
}

// NewDatabase opens the database in basePath, creating the directory when
// needed, with the default file provider and the logrus standard logger.
func NewDatabase(basePath string) (*Database, error) {
	return OpenDatabase(&FileProvider{}, basePath, nil)
}

// OpenDatabase is NewDatabase with an injected file provider and logger.
func OpenDatabase(fp IFileProvider, basePath string, logger logrus.FieldLogger) (*Database, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := fp.CreateDirectory(basePath); err != nil {
		return nil, err
	}
	db := &Database{
		basePath:     basePath,
		definitions:  make(map[string]IndexDefinition),
		indexes:      make(map[string]*IndexManager),
		fileProvider: fp,
		log:          logger.WithField("database", basePath),
	}
	if err := db.loadExistingIndexes(); err != nil {
		return nil, err
	}
	db.log.WithField("indexes", len(db.definitions)).Info("opened database")
	return db, nil
}

func (db *Database) loadExistingIndexes() error {
	files, err := db.fileProvider.ReadDirectory(db.basePath)
	if err != nil {
		return err
	}
	for _, file := range files {
		if !file.IsDir() {
			continue
		}
		indexPath := filepath.Join(db.basePath, file.Name())
		exists, err := db.fileProvider.FileExists(indexPath, definitionFileName)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		def, err := db.readDefinition(indexPath)
		if err != nil {
			return fmt.Errorf("failed to load index %s: %w", file.Name(), err)
		}
		db.definitions[def.Name] = *def
	}
	return nil
}

func (db *Database) readDefinition(indexPath string) (*IndexDefinition, error) {
	data, err := db.fileProvider.ReadFile(indexPath, definitionFileName)
	if err != nil {
		return nil, err
	}
	var def IndexDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// EnsureCreatedIndex creates the index unless one with the same name exists.
func (db *Database) EnsureCreatedIndex(def IndexDefinition) error {
	err := db.CreateIndex(def)
	if err != nil && !errors.Is(err, ErrIndexExists) {
		return fmt.Errorf("failed to create index %s: %w", def.Name, err)
	}
	return nil
}

// CreateIndex registers a new index. Zero fields of def take the store
// defaults; ID and timestamps are assigned here.
func (db *Database) CreateIndex(def IndexDefinition) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := validateDefinition(&def); err != nil {
		return err
	}
	indexPath := filepath.Join(db.basePath, def.Name)
	dirExists, err := db.fileProvider.DirectoryExists(indexPath)
	if err != nil {
		return err
	}
	if _, known := db.definitions[def.Name]; known || dirExists {
		return ErrIndexExists
	}
	if err := db.fileProvider.CreateDirectory(indexPath); err != nil {
		return err
	}
	def.ID = uuid.New().String()
	def.CreatedAt = time.Now()
	def.UpdatedAt = def.CreatedAt

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		db.fileProvider.DeleteDirectory(indexPath)
		return err
	}
	if err := db.fileProvider.WriteFile(indexPath, definitionFileName, data); err != nil {
		db.fileProvider.DeleteDirectory(indexPath)
		return err
	}
	db.definitions[def.Name] = def
	db.log.WithFields(logrus.Fields{
		"index":     def.Name,
		"id":        def.ID,
		"split":     def.Split,
		"max":       def.MaxElements,
		"in_memory": def.InMemory,
	}).Info("created index")
	return nil
}

// GetIndexDefinition returns the stored definition of an index.
func (db *Database) GetIndexDefinition(indexName string) (*IndexDefinition, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	def, ok := db.definitions[indexName]
	if !ok {
		return nil, ErrIndexNotExist
	}
	return &def, nil
}

// ListIndexes returns the definitions of every index sorted by name.
func (db *Database) ListIndexes() []IndexDefinition {
	db.mu.RLock()
	defer db.mu.RUnlock()
	defs := make([]IndexDefinition, 0, len(db.definitions))
	for _, def := range db.definitions {
		defs = append(defs, def)
	}
	slices.SortFunc(defs, func(a, b IndexDefinition) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

// GetIndex opens an index by name. Opened indexes are cached, so every call
// for the same name returns the same manager until the index is deleted or
// the database closed.
func (db *Database) GetIndex(indexName string) (*IndexManager, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if im, ok := db.indexes[indexName]; ok {
		return im, nil
	}
	def, ok := db.definitions[indexName]
	if !ok {
		return nil, ErrIndexNotExist
	}
	im, err := NewIndexManager(db.fileProvider, filepath.Join(db.basePath, indexName), def, nil, db.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", indexName, err)
	}
	db.indexes[indexName] = im
	return im, nil
}

// DeleteIndex closes an index and removes all of its data.
func (db *Database) DeleteIndex(indexName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.definitions[indexName]; !ok {
		return ErrIndexNotExist
	}
	if im, ok := db.indexes[indexName]; ok {
		if err := im.Close(); err != nil {
			db.log.WithError(err).WithField("index", indexName).Warn("failed to close index before deleting it")
		}
		delete(db.indexes, indexName)
	}
	if err := db.fileProvider.DeleteDirectory(filepath.Join(db.basePath, indexName)); err != nil {
		return err
	}
	delete(db.definitions, indexName)
	db.log.WithField("index", indexName).Info("deleted index")
	return nil
}

// Close closes every opened index and returns the first error met.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var firstErr error
	for name, im := range db.indexes {
		if err := im.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close index %s: %w", name, err)
		}
		delete(db.indexes, name)
	}
	return firstErr
}

// validateDefinition checks the name and fills the store defaults into def.
func validateDefinition(def *IndexDefinition) error {
	if def.Name == "" || def.Name == "." || def.Name == ".." || strings.ContainsAny(def.Name, `/\`) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidIndex, def.Name)
	}
	cfg := def.StoreConfig().withDefaults()
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	def.MaxElements = cfg.MaxElements
	def.Split = cfg.Split
	def.Dimension = cfg.Dimension
	return nil
}
