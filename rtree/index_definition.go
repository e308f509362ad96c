package rtree

import (
	"time"

	"github.com/dannyswat/fsrtree/rtree/splittype"
)

type IndexDefinition struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	MaxElements    int                 `json:"max_elements"`
	Split          splittype.SplitType `json:"split"`
	Dimension      int                 `json:"dimension"`
	CRS            string              `json:"crs"`
	InMemory       bool                `json:"in_memory"`
	BranchGrafting bool                `json:"branch_grafting"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// StoreConfig returns the node store configuration the definition asks for.
func (d IndexDefinition) StoreConfig() StoreConfig {
	return StoreConfig{
		MaxElements: d.MaxElements,
		Split:       d.Split,
		Dimension:   d.Dimension,
		CRS:         d.CRS,
	}
}
