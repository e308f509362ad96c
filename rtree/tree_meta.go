package rtree

import (
	"math"

	"github.com/google/uuid"

	"github.com/dannyswat/fsrtree/rtree/splittype"
)

const (
	DefaultMaxElements = 8
	DefaultDimension   = 2
	maxCRSLength       = 256

	// Limits of the header fields the file store records them in. A node may
	// hold one child over MaxElements while it waits to be split.
	maxDimension   = math.MaxUint16
	maxMaxElements = math.MaxUint32 - 1
)

// StoreConfig fixes the shape of a new tree. A reopened file store keeps the
// values recorded in its header.
type StoreConfig struct {
	MaxElements int                 `json:"max_elements"`
	Split       splittype.SplitType `json:"split"`
	Dimension   int                 `json:"dimension"`
	CRS         string              `json:"crs"`
}

// withDefaults fills zero fields with the package defaults.
func (c StoreConfig) withDefaults() StoreConfig {
	if c.MaxElements == 0 {
		c.MaxElements = DefaultMaxElements
	}
	if c.Split == "" {
		c.Split = splittype.Quadratic
	}
	if c.Dimension == 0 {
		c.Dimension = DefaultDimension
	}
	return c
}

func (c StoreConfig) validate() error {
	if c.MaxElements < 2 {
		return invalidArgument("max elements must be at least 2, got %d", c.MaxElements)
	}
	if int64(c.MaxElements) > maxMaxElements {
		return invalidArgument("max elements must be at most %d, got %d", int64(maxMaxElements), c.MaxElements)
	}
	if !c.Split.Valid() {
		return invalidArgument("unknown split type %q", c.Split)
	}
	if c.Dimension < 1 || c.Dimension > maxDimension {
		return invalidArgument("dimension must be between 1 and %d, got %d", maxDimension, c.Dimension)
	}
	if len(c.CRS) > maxCRSLength {
		return invalidArgument("crs descriptor longer than %d bytes", maxCRSLength)
	}
	return nil
}

// treeMeta is the aggregate state a NodeStore owns besides the nodes.
type treeMeta struct {
	StoreID  uuid.UUID
	Config   StoreConfig
	Root     NodeID
	Elements int
	NextID   NodeID
	FreeHead NodeID
	dirty    bool
}

func newTreeMeta(cfg StoreConfig) treeMeta {
	return treeMeta{
		StoreID: uuid.New(),
		Config:  cfg,
		NextID:  1,
		dirty:   true,
	}
}

func (m *treeMeta) MaxElements() int {
	return m.Config.MaxElements
}

func (m *treeMeta) SplitChoice() splittype.SplitType {
	return m.Config.Split
}

func (m *treeMeta) CRS() string {
	return m.Config.CRS
}

func (m *treeMeta) Dimension() int {
	return m.Config.Dimension
}

func (m *treeMeta) ElementsNumber() int {
	return m.Elements
}
