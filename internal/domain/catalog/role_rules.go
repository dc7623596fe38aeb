package catalog

import (
	"fmt"
	"sort"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

// rolePair is the ordered (new member role, existing member role) key of
// the rule table. (child, parent) and (parent, child) are distinct keys.
type rolePair struct {
	newRoleID      string
	existingRoleID string
}

type collectiveEntry struct {
	typ      entities.CollectiveType
	roles    []entities.CollectiveRole
	roleByID map[string]entities.CollectiveRole
	rules    map[rolePair]entities.RelationshipRule
}

// RoleRules indexes collective types, their ordered roles and rule tables.
type RoleRules struct {
	byID    map[string]*collectiveEntry
	ordered []string
}

// NewRoleRules validates the collective types against the relationship
// type catalog and builds the immutable rule tables.
func NewRoleRules(types []entities.CollectiveType, relTypes *RelationshipTypes) (*RoleRules, error) {
	rr := &RoleRules{
		byID:    make(map[string]*collectiveEntry, len(types)),
		ordered: make([]string, 0, len(types)),
	}

	for _, ct := range types {
		if ct.ID == "" {
			return nil, fmt.Errorf("%w: collective type with empty id", entities.ErrRuleCatalogInconsistency)
		}
		if _, dup := rr.byID[ct.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate collective type %q", entities.ErrRuleCatalogInconsistency, ct.ID)
		}

		entry, err := buildEntry(ct, relTypes)
		if err != nil {
			return nil, err
		}
		rr.byID[ct.ID] = entry
		rr.ordered = append(rr.ordered, ct.ID)
	}

	return rr, nil
}

func buildEntry(ct entities.CollectiveType, relTypes *RelationshipTypes) (*collectiveEntry, error) {
	entry := &collectiveEntry{
		roleByID: make(map[string]entities.CollectiveRole, len(ct.Roles)),
		rules:    make(map[rolePair]entities.RelationshipRule, len(ct.Rules)),
	}

	for _, r := range ct.Roles {
		if r.CollectiveTypeID != ct.ID {
			return nil, fmt.Errorf("%w: role %q belongs to %q, listed under %q",
				entities.ErrRuleCatalogInconsistency, r.ID, r.CollectiveTypeID, ct.ID)
		}
		if _, dup := entry.roleByID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate role %q in %q", entities.ErrRuleCatalogInconsistency, r.ID, ct.ID)
		}
		entry.roleByID[r.ID] = r
		entry.roles = append(entry.roles, r)
	}
	sort.SliceStable(entry.roles, func(i, j int) bool {
		if entry.roles[i].SortOrder != entry.roles[j].SortOrder {
			return entry.roles[i].SortOrder < entry.roles[j].SortOrder
		}
		return entry.roles[i].Label < entry.roles[j].Label
	})

	for _, rule := range ct.Rules {
		if rule.CollectiveTypeID != ct.ID {
			return nil, fmt.Errorf("%w: rule for %q listed under %q",
				entities.ErrRuleCatalogInconsistency, rule.CollectiveTypeID, ct.ID)
		}
		if _, ok := entry.roleByID[rule.NewMemberRoleID]; !ok {
			return nil, fmt.Errorf("%w: rule in %q names unknown role %q",
				entities.ErrRuleCatalogInconsistency, ct.ID, rule.NewMemberRoleID)
		}
		if _, ok := entry.roleByID[rule.ExistingMemberRoleID]; !ok {
			return nil, fmt.Errorf("%w: rule in %q names unknown role %q",
				entities.ErrRuleCatalogInconsistency, ct.ID, rule.ExistingMemberRoleID)
		}
		if _, err := relTypes.Get(rule.RelationshipTypeID); err != nil {
			return nil, fmt.Errorf("%w: rule in %q: %w", entities.ErrRuleCatalogInconsistency, ct.ID, err)
		}
		if !rule.Direction.Valid() {
			return nil, fmt.Errorf("%w: rule in %q has unknown direction %q",
				entities.ErrRuleCatalogInconsistency, ct.ID, rule.Direction)
		}

		key := rolePair{newRoleID: rule.NewMemberRoleID, existingRoleID: rule.ExistingMemberRoleID}
		if _, dup := entry.rules[key]; dup {
			return nil, fmt.Errorf("%w: duplicate rule (%s, %s) in %q",
				entities.ErrRuleCatalogInconsistency, key.newRoleID, key.existingRoleID, ct.ID)
		}
		entry.rules[key] = rule
	}

	entry.typ = ct
	entry.typ.Roles = entry.roles
	return entry, nil
}

// clone copies the type so callers cannot reach the indexed slices.
func (e *collectiveEntry) clone() entities.CollectiveType {
	t := e.typ
	t.Roles = append([]entities.CollectiveRole(nil), e.typ.Roles...)
	t.Rules = append([]entities.RelationshipRule(nil), e.typ.Rules...)
	return t
}

// CollectiveType returns the collective type with the given id.
func (rr *RoleRules) CollectiveType(id string) (entities.CollectiveType, error) {
	entry, ok := rr.byID[id]
	if !ok {
		return entities.CollectiveType{}, fmt.Errorf("collective type %q: %w", id, entities.ErrNotFound)
	}
	return entry.clone(), nil
}

// RolesFor returns the roles of a collective type ordered by sort order,
// then label.
func (rr *RoleRules) RolesFor(collectiveTypeID string) ([]entities.CollectiveRole, error) {
	entry, ok := rr.byID[collectiveTypeID]
	if !ok {
		return nil, fmt.Errorf("collective type %q: %w", collectiveTypeID, entities.ErrNotFound)
	}
	roles := make([]entities.CollectiveRole, len(entry.roles))
	copy(roles, entry.roles)
	return roles, nil
}

// Role returns a role of the given collective type. A role that exists but
// belongs to another type is reported as not found.
func (rr *RoleRules) Role(collectiveTypeID, roleID string) (entities.CollectiveRole, error) {
	entry, ok := rr.byID[collectiveTypeID]
	if !ok {
		return entities.CollectiveRole{}, fmt.Errorf("collective type %q: %w", collectiveTypeID, entities.ErrNotFound)
	}
	r, ok := entry.roleByID[roleID]
	if !ok {
		return entities.CollectiveRole{}, fmt.Errorf("role %q in %q: %w", roleID, collectiveTypeID, entities.ErrNotFound)
	}
	return r, nil
}

// RuleFor looks up the rule for the ordered role pair. ok is false when no
// rule applies, which is a normal outcome.
func (rr *RoleRules) RuleFor(collectiveTypeID, newRoleID, existingRoleID string) (rule entities.RelationshipRule, ok bool) {
	entry, found := rr.byID[collectiveTypeID]
	if !found {
		return entities.RelationshipRule{}, false
	}
	rule, ok = entry.rules[rolePair{newRoleID: newRoleID, existingRoleID: existingRoleID}]
	return rule, ok
}

// TypesVisibleTo returns the system types plus the user's private types,
// in catalog order.
func (rr *RoleRules) TypesVisibleTo(userID string) []entities.CollectiveType {
	result := make([]entities.CollectiveType, 0, len(rr.ordered))
	for _, id := range rr.ordered {
		entry := rr.byID[id]
		if entry.typ.VisibleTo(userID) {
			result = append(result, entry.clone())
		}
	}
	return result
}
