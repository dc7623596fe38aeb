package catalog

import "github.com/ersonp/kin-core/internal/domain/entities"

// Catalog bundles both reference catalogs.
type Catalog struct {
	Types *RelationshipTypes
	Roles *RoleRules
}

// New validates relationship types and collective types and builds the
// catalog. Any inconsistency is returned as ErrRuleCatalogInconsistency.
func New(relTypes []entities.RelationshipType, collectiveTypes []entities.CollectiveType) (*Catalog, error) {
	types, err := NewRelationshipTypes(relTypes)
	if err != nil {
		return nil, err
	}
	roles, err := NewRoleRules(collectiveTypes, types)
	if err != nil {
		return nil, err
	}
	return &Catalog{Types: types, Roles: roles}, nil
}

// Default builds the catalog from the built-in data.
func Default() (*Catalog, error) {
	return New(entities.DefaultRelationshipTypes, entities.DefaultCollectiveTypes)
}
