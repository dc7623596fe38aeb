package entities

import "time"

// Relationship is a directed, typed edge between two contacts.
// The edge reads as "From is <type> of To": (alice, bob, parent) means
// alice is bob's parent.
type Relationship struct {
	ID                 string    `json:"id"`
	FromContactID      string    `json:"from_contact_id"`
	ToContactID        string    `json:"to_contact_id"`
	RelationshipTypeID string    `json:"relationship_type_id"`
	Notes              *string   `json:"notes,omitempty"`
	SourceMembershipID *string   `json:"source_membership_id,omitempty"` // nil for manually created edges
	CreatedAt          time.Time `json:"created_at"`
}

// IsManual reports whether the edge was created by a user rather than
// derived from a collective membership.
func (r *Relationship) IsManual() bool {
	return r.SourceMembershipID == nil
}

// DerivedFrom reports whether the edge is stamped with the given membership.
func (r *Relationship) DerivedFrom(membershipID string) bool {
	return r.SourceMembershipID != nil && *r.SourceMembershipID == membershipID
}
