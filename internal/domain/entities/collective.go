package entities

import (
	"strings"
	"time"
)

// Direction says which way a derived edge points relative to the member
// whose addition triggered the derivation.
type Direction string

const (
	// DirectionNewMember writes new -> existing.
	DirectionNewMember Direction = "new_member"
	// DirectionExistingMember writes existing -> new.
	DirectionExistingMember Direction = "existing_member"
	// DirectionBoth writes both edges with the same type.
	DirectionBoth Direction = "both"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionNewMember, DirectionExistingMember, DirectionBoth:
		return true
	default:
		return false
	}
}

// CollectiveType describes a kind of group (family, company, club) along
// with its roles and the rule table used to derive relationships.
type CollectiveType struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	UserID          *string            `json:"user_id,omitempty"` // nil for system defaults
	IsSystemDefault bool               `json:"is_system_default"`
	Roles           []CollectiveRole   `json:"roles"`
	Rules           []RelationshipRule `json:"rules"`
}

// VisibleTo reports whether the type can be used by the given user.
func (t *CollectiveType) VisibleTo(userID string) bool {
	return t.UserID == nil || *t.UserID == userID
}

// CollectiveRole is a role a member can hold inside a collective type.
type CollectiveRole struct {
	ID               string `json:"id"`
	CollectiveTypeID string `json:"collective_type_id"`
	RoleKey          string `json:"role_key"`
	Label            string `json:"label"`
	SortOrder        int    `json:"sort_order"`
}

// RelationshipRule maps an ordered (new member role, existing member role)
// pair to the relationship derived between the two members.
type RelationshipRule struct {
	CollectiveTypeID     string    `json:"collective_type_id"`
	NewMemberRoleID      string    `json:"new_member_role_id"`
	ExistingMemberRoleID string    `json:"existing_member_role_id"`
	RelationshipTypeID   string    `json:"relationship_type_id"`
	Direction            Direction `json:"direction"`
}

// Collective is a concrete group owned by a user.
type Collective struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	CollectiveTypeID string     `json:"collective_type_id"`
	Name             string     `json:"name"`
	CreatedAt        time.Time  `json:"created_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the collective has been soft-deleted.
func (c *Collective) IsDeleted() bool {
	return c.DeletedAt != nil
}

// RoleID builds the catalog id of a role from its collective type and key.
func RoleID(collectiveTypeID, roleKey string) string {
	return collectiveTypeID + "." + roleKey
}

// RoleKeyFromID returns the key part of a role id, or the input unchanged
// when it carries no type prefix.
func RoleKeyFromID(roleID string) string {
	if i := strings.LastIndexByte(roleID, '.'); i >= 0 {
		return roleID[i+1:]
	}
	return roleID
}
