// Package catalog holds the read-only reference data the engine derives
// relationships from: relationship types and per collective type role rules.
// Catalogs are built once and never mutated.
package catalog

import (
	"fmt"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

// RelationshipTypes is an immutable lookup over relationship types.
type RelationshipTypes struct {
	byID    map[string]entities.RelationshipType
	ordered []entities.RelationshipType
}

// NewRelationshipTypes validates and indexes the given types. It rejects
// duplicate ids, unknown categories, dangling inverses and asymmetric inverse
// pairs with ErrRuleCatalogInconsistency.
func NewRelationshipTypes(types []entities.RelationshipType) (*RelationshipTypes, error) {
	c := &RelationshipTypes{
		byID:    make(map[string]entities.RelationshipType, len(types)),
		ordered: make([]entities.RelationshipType, 0, len(types)),
	}

	for _, t := range types {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: relationship type with empty id", entities.ErrRuleCatalogInconsistency)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate relationship type %q", entities.ErrRuleCatalogInconsistency, t.ID)
		}
		if !t.Category.Valid() {
			return nil, fmt.Errorf("%w: relationship type %q has unknown category %q",
				entities.ErrRuleCatalogInconsistency, t.ID, t.Category)
		}
		c.byID[t.ID] = t
		c.ordered = append(c.ordered, t)
	}

	for _, t := range c.ordered {
		if !t.HasInverse() {
			continue
		}
		inv, ok := c.byID[t.InverseTypeID]
		if !ok {
			return nil, fmt.Errorf("%w: relationship type %q names unknown inverse %q",
				entities.ErrRuleCatalogInconsistency, t.ID, t.InverseTypeID)
		}
		if inv.InverseTypeID != t.ID {
			return nil, fmt.Errorf("%w: inverse of %q is %q but inverse of %q is %q",
				entities.ErrRuleCatalogInconsistency, t.ID, inv.ID, inv.ID, inv.InverseTypeID)
		}
	}

	return c, nil
}

// Get returns the type with the given id or ErrNotFound.
func (c *RelationshipTypes) Get(id string) (entities.RelationshipType, error) {
	t, ok := c.byID[id]
	if !ok {
		return entities.RelationshipType{}, fmt.Errorf("relationship type %q: %w", id, entities.ErrNotFound)
	}
	return t, nil
}

// Inverse returns the inverse type of id. ok is false when the type has no
// inverse.
func (c *RelationshipTypes) Inverse(id string) (inv entities.RelationshipType, ok bool, err error) {
	t, err := c.Get(id)
	if err != nil {
		return entities.RelationshipType{}, false, err
	}
	if !t.HasInverse() {
		return entities.RelationshipType{}, false, nil
	}
	inv, err = c.Get(t.InverseTypeID)
	if err != nil {
		return entities.RelationshipType{}, false, fmt.Errorf("%w: %w", entities.ErrRuleCatalogInconsistency, err)
	}
	return inv, true, nil
}

// ListByCategory returns the types of a category in catalog order.
func (c *RelationshipTypes) ListByCategory(category entities.Category) []entities.RelationshipType {
	result := make([]entities.RelationshipType, 0, len(c.ordered))
	for _, t := range c.ordered {
		if t.Category == category {
			result = append(result, t)
		}
	}
	return result
}

// All returns every type in catalog order.
func (c *RelationshipTypes) All() []entities.RelationshipType {
	result := make([]entities.RelationshipType, len(c.ordered))
	copy(result, c.ordered)
	return result
}

// IDs returns every type id in catalog order.
func (c *RelationshipTypes) IDs() []string {
	ids := make([]string, len(c.ordered))
	for i, t := range c.ordered {
		ids[i] = t.ID
	}
	return ids
}
