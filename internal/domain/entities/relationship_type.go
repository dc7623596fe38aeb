package entities

import "slices"

// Category groups relationship types for display.
type Category string

const (
	CategoryFamily       Category = "family"
	CategoryProfessional Category = "professional"
	CategorySocial       Category = "social"
)

// Categories lists the known categories in display order.
var Categories = []Category{CategoryFamily, CategoryProfessional, CategorySocial}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// RelationshipType is an immutable catalog entry describing one kind of edge.
type RelationshipType struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Label    string   `json:"label"`
	// InverseTypeID names the type of the mirrored edge. Empty means the type
	// has no inverse; equal to ID means the type is self-symmetric.
	InverseTypeID string `json:"inverse_type_id,omitempty"`
}

// HasInverse reports whether creating this edge mandates a mirrored edge.
func (t RelationshipType) HasInverse() bool {
	return t.InverseTypeID != ""
}

// SelfSymmetric reports whether the type is its own inverse (spouse, sibling).
func (t RelationshipType) SelfSymmetric() bool {
	return t.InverseTypeID == t.ID
}
