package entities

import "time"

// Membership places a contact in a collective under a role.
type Membership struct {
	ID             string     `json:"id"`
	CollectiveID   string     `json:"collective_id"`
	ContactID      string     `json:"contact_id"`
	RoleID         string     `json:"role_id"`
	IsActive       bool       `json:"is_active"`
	InactiveReason string     `json:"inactive_reason,omitempty"`
	InactiveDate   *time.Time `json:"inactive_date,omitempty"`
	JoinedDate     *time.Time `json:"joined_date,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Deactivate marks the membership inactive with the given reason and date.
func (m *Membership) Deactivate(reason string, date time.Time) {
	m.IsActive = false
	m.InactiveReason = reason
	m.InactiveDate = &date
}

// Reactivate marks the membership active and clears the inactive fields.
func (m *Membership) Reactivate() {
	m.IsActive = true
	m.InactiveReason = ""
	m.InactiveDate = nil
}

// MemberRef is the slice of a membership the derivation scan needs.
type MemberRef struct {
	MembershipID string `json:"membership_id"`
	ContactID    string `json:"contact_id"`
	RoleID       string `json:"role_id"`
}
