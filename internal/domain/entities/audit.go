package entities

import "time"

// Audit actions recorded by the engine.
const (
	ActionMembershipAdded       = "membership.added"
	ActionMembershipRemoved     = "membership.removed"
	ActionMembershipDeactivated = "membership.deactivated"
	ActionMembershipReactivated = "membership.reactivated"
	ActionRulesReapplied        = "membership.rules_reapplied"
	ActionRelationshipCreated   = "relationship.created"
	ActionRelationshipUpdated   = "relationship.updated"
	ActionRelationshipDeleted   = "relationship.deleted"
)

// AuditEntry represents a logged action in the system.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	SubjectID string         `json:"subject_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
