// Package prereq matches course records to a static catalog of prerequisite
// requirements. Confirmation is always an explicit user action; similarity scoring is
// advisory only.
package prereq

import (
	"errors"
	"fmt"

	"github.com/yigit/transcriptgpa/internal/domain/transcript"
)

var (
	ErrUnknownRequirement = errors.New("unknown requirement")
	ErrRecordOutOfRange   = errors.New("record index out of range")
	ErrDuplicateID        = errors.New("duplicate requirement id")
)

// Catalog is an immutable, ordered set of requirements.
type Catalog struct {
	items []transcript.PrerequisiteRequirement
	index map[string]int
}

// NewCatalog validates ids and freezes the list.
func NewCatalog(reqs []transcript.PrerequisiteRequirement) (*Catalog, error) {
	c := &Catalog{
		items: make([]transcript.PrerequisiteRequirement, len(reqs)),
		index: make(map[string]int, len(reqs)),
	}
	copy(c.items, reqs)
	for i, r := range c.items {
		if r.ID == "" {
			return nil, fmt.Errorf("requirement at position %d: empty id", i)
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		c.index[r.ID] = i
	}
	return c, nil
}

func (c *Catalog) Get(id string) (transcript.PrerequisiteRequirement, bool) {
	i, ok := c.index[id]
	if !ok {
		return transcript.PrerequisiteRequirement{}, false
	}
	return c.items[i], true
}

// IDs returns requirement ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.items))
	for i, r := range c.items {
		ids[i] = r.ID
	}
	return ids
}

// All returns a copy of the requirements in catalog order.
func (c *Catalog) All() []transcript.PrerequisiteRequirement {
	out := make([]transcript.PrerequisiteRequirement, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int { return len(c.items) }
