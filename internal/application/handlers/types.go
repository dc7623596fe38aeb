package handlers

import (
	"fmt"
	"strings"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
)

// TypesHandler exposes the relationship type catalog.
type TypesHandler struct {
	catalog *catalog.Catalog
}

// NewTypesHandler creates a new TypesHandler.
func NewTypesHandler(cat *catalog.Catalog) *TypesHandler {
	return &TypesHandler{
		catalog: cat,
	}
}

// HandleList returns the relationship types, optionally limited to one
// category.
func (h *TypesHandler) HandleList(category string) ([]entities.RelationshipType, error) {
	if category == "" {
		return h.catalog.Types.All(), nil
	}
	c := entities.Category(category)
	if !c.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q (valid: %s)", entities.ErrInvalidInput, category, CategoryNames())
	}
	return h.catalog.Types.ListByCategory(c), nil
}

// CategoryNames lists the known categories in display order, comma separated.
func CategoryNames() string {
	names := make([]string, len(entities.Categories))
	for i, c := range entities.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// HandleInverse returns the inverse of a relationship type; ok is false when
// the type has none.
func (h *TypesHandler) HandleInverse(typeID string) (inv entities.RelationshipType, ok bool, err error) {
	return h.catalog.Types.Inverse(typeID)
}
