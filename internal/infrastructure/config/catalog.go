package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
)

// CatalogFile is the on-disk form of the relationship catalog. Roles are
// named by key inside their collective type; ids are derived on load.
type CatalogFile struct {
	RelationshipTypes []RelationshipTypeYAML `yaml:"relationship_types"`
	CollectiveTypes   []CollectiveTypeYAML   `yaml:"collective_types"`
}

// RelationshipTypeYAML is one relationship type entry.
type RelationshipTypeYAML struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Label    string `yaml:"label"`
	Inverse  string `yaml:"inverse,omitempty"`
}

// CollectiveTypeYAML is one collective type with its roles and rules.
type CollectiveTypeYAML struct {
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	UserID string     `yaml:"user_id,omitempty"`
	Roles  []RoleYAML `yaml:"roles"`
	Rules  []RuleYAML `yaml:"rules,omitempty"`
}

// RoleYAML is one role of a collective type.
type RoleYAML struct {
	Key       string `yaml:"key"`
	Label     string `yaml:"label"`
	SortOrder int    `yaml:"sort_order"`
}

// RuleYAML maps a (new, existing) role pair to a relationship.
type RuleYAML struct {
	New       string `yaml:"new"`
	Existing  string `yaml:"existing"`
	Type      string `yaml:"type"`
	Direction string `yaml:"direction"`
}

// LoadCatalog builds the catalog from the configured catalog file, falling
// back to the built-in catalog when the file does not exist. The result is
// validated; inconsistencies are reported as ErrRuleCatalogInconsistency.
func LoadCatalog(basePath string, cfg *Config) (*catalog.Catalog, error) {
	path := cfg.CatalogPath(basePath)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if cfg.Catalog.Path != "" {
			return nil, fmt.Errorf("catalog file not found: %s", path)
		}
		return catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	relTypes, collectiveTypes := file.toEntities()
	cat, err := catalog.New(relTypes, collectiveTypes)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return cat, nil
}

// WriteCatalog writes the built-in catalog to .kin/catalog.yaml so it can
// be edited.
func WriteCatalog(basePath string) (string, error) {
	path := CatalogFilePath(basePath)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("catalog file already exists: %s", path)
	}

	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	file := CatalogFileFrom(entities.DefaultRelationshipTypes, entities.DefaultCollectiveTypes)
	data, err := yaml.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("marshaling catalog: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing catalog file: %w", err)
	}
	return path, nil
}

// CatalogFileFrom converts catalog entities into their file form.
func CatalogFileFrom(relTypes []entities.RelationshipType, collectiveTypes []entities.CollectiveType) CatalogFile {
	file := CatalogFile{
		RelationshipTypes: make([]RelationshipTypeYAML, 0, len(relTypes)),
		CollectiveTypes:   make([]CollectiveTypeYAML, 0, len(collectiveTypes)),
	}

	for _, t := range relTypes {
		file.RelationshipTypes = append(file.RelationshipTypes, RelationshipTypeYAML{
			ID:       t.ID,
			Category: string(t.Category),
			Label:    t.Label,
			Inverse:  t.InverseTypeID,
		})
	}

	for _, ct := range collectiveTypes {
		entry := CollectiveTypeYAML{ID: ct.ID, Name: ct.Name}
		if ct.UserID != nil {
			entry.UserID = *ct.UserID
		}
		for _, r := range ct.Roles {
			entry.Roles = append(entry.Roles, RoleYAML{Key: r.RoleKey, Label: r.Label, SortOrder: r.SortOrder})
		}
		for _, rule := range ct.Rules {
			entry.Rules = append(entry.Rules, RuleYAML{
				New:       entities.RoleKeyFromID(rule.NewMemberRoleID),
				Existing:  entities.RoleKeyFromID(rule.ExistingMemberRoleID),
				Type:      rule.RelationshipTypeID,
				Direction: string(rule.Direction),
			})
		}
		file.CollectiveTypes = append(file.CollectiveTypes, entry)
	}

	return file
}

func (f CatalogFile) toEntities() ([]entities.RelationshipType, []entities.CollectiveType) {
	relTypes := make([]entities.RelationshipType, 0, len(f.RelationshipTypes))
	for _, t := range f.RelationshipTypes {
		relTypes = append(relTypes, entities.RelationshipType{
			ID:            t.ID,
			Category:      entities.Category(t.Category),
			Label:         t.Label,
			InverseTypeID: t.Inverse,
		})
	}

	collectiveTypes := make([]entities.CollectiveType, 0, len(f.CollectiveTypes))
	for _, ct := range f.CollectiveTypes {
		typ := entities.CollectiveType{
			ID:              ct.ID,
			Name:            ct.Name,
			IsSystemDefault: ct.UserID == "",
		}
		if ct.UserID != "" {
			owner := ct.UserID
			typ.UserID = &owner
		}
		for _, r := range ct.Roles {
			typ.Roles = append(typ.Roles, entities.CollectiveRole{
				ID:               entities.RoleID(ct.ID, r.Key),
				CollectiveTypeID: ct.ID,
				RoleKey:          r.Key,
				Label:            r.Label,
				SortOrder:        r.SortOrder,
			})
		}
		for _, rule := range ct.Rules {
			typ.Rules = append(typ.Rules, entities.RelationshipRule{
				CollectiveTypeID:     ct.ID,
				NewMemberRoleID:      entities.RoleID(ct.ID, rule.New),
				ExistingMemberRoleID: entities.RoleID(ct.ID, rule.Existing),
				RelationshipTypeID:   rule.Type,
				Direction:            entities.Direction(rule.Direction),
			})
		}
		collectiveTypes = append(collectiveTypes, typ)
	}

	return relTypes, collectiveTypes
}
