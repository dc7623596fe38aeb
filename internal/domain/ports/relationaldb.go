package ports

import (
	"context"
	"time"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

// TxManager runs a function inside a store transaction. The transaction
// travels in the context; nested calls join the outer transaction instead of
// opening a new one, so a whole derivation pass commits or rolls back as one
// unit.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RelationshipStore persists directed relationship edges.
// Find methods return nil, nil when nothing matches.
type RelationshipStore interface {
	// UpsertRelationship inserts rel, or when an edge with the same
	// (from, to, type) exists, restamps its provenance with
	// rel.SourceMembershipID and its notes when rel.Notes is non-nil.
	// A manual row stays manual. A nil rel.SourceMembershipID turns a
	// derived row into a manual one. It returns the stored row.
	UpsertRelationship(ctx context.Context, rel *entities.Relationship) (*entities.Relationship, error)

	// InsertRelationship inserts rel and fails with ErrRelationshipExists
	// when the (from, to, type) triple is taken.
	InsertRelationship(ctx context.Context, rel *entities.Relationship) error

	// FindRelationship finds an edge by id.
	FindRelationship(ctx context.Context, id string) (*entities.Relationship, error)

	// FindRelationshipByTriple finds the edge with the given endpoints and type.
	FindRelationshipByTriple(ctx context.Context, fromContactID, toContactID, typeID string) (*entities.Relationship, error)

	// RelationshipExists reports whether the triple is present.
	RelationshipExists(ctx context.Context, fromContactID, toContactID, typeID string) (bool, error)

	// UpdateRelationshipNotes replaces the notes of an edge. nil clears them.
	UpdateRelationshipNotes(ctx context.Context, id string, notes *string) error

	// DeleteRelationship deletes an edge by id; missing ids yield ErrNotFound.
	DeleteRelationship(ctx context.Context, id string) error

	// DeleteRelationshipsByMembership deletes every edge stamped with the
	// membership and returns how many were removed.
	DeleteRelationshipsByMembership(ctx context.Context, membershipID string) (int, error)

	// FindRelationshipsFrom lists edges leaving a contact, newest first.
	FindRelationshipsFrom(ctx context.Context, contactID string) ([]entities.Relationship, error)

	// FindRelationshipsByMembership lists edges stamped with the membership.
	FindRelationshipsByMembership(ctx context.Context, membershipID string) ([]entities.Relationship, error)

	// CountRelationships returns the total number of edges.
	CountRelationships(ctx context.Context) (int, error)
}

// MembershipStore persists collective memberships.
type MembershipStore interface {
	// InsertMembership inserts an active membership. The store enforces at
	// most one active membership per (collective, contact) and reports a
	// violation as ErrDuplicateActiveMembership.
	InsertMembership(ctx context.Context, m *entities.Membership) error

	// FindMembership finds a membership by id.
	FindMembership(ctx context.Context, id string) (*entities.Membership, error)

	// FindOtherActiveMembers lists active members of a collective other than
	// the given contact.
	FindOtherActiveMembers(ctx context.Context, collectiveID, excludingContactID string) ([]entities.MemberRef, error)

	// UpdateMembershipStatus persists IsActive, InactiveReason and
	// InactiveDate. Reactivating into an occupied slot yields
	// ErrDuplicateActiveMembership.
	UpdateMembershipStatus(ctx context.Context, m *entities.Membership) error

	// DeleteMembership hard-deletes a membership and reports whether a row
	// was removed.
	DeleteMembership(ctx context.Context, id string) (bool, error)

	// FindMembershipsByContact lists every membership of a contact.
	FindMembershipsByContact(ctx context.Context, contactID string) ([]entities.Membership, error)

	// FindMembershipsByCollective lists every membership of a collective.
	FindMembershipsByCollective(ctx context.Context, collectiveID string) ([]entities.Membership, error)
}

// CollectiveStore persists collective instances.
type CollectiveStore interface {
	// SaveCollective inserts a collective or updates its name.
	SaveCollective(ctx context.Context, c *entities.Collective) error

	// FindCollective finds a collective by id, including soft-deleted ones.
	FindCollective(ctx context.Context, id string) (*entities.Collective, error)

	// ListCollectivesByUser lists a user's collectives that are not deleted.
	ListCollectivesByUser(ctx context.Context, userID string) ([]entities.Collective, error)

	// SoftDeleteCollective stamps the deletion time; missing ids yield ErrNotFound.
	SoftDeleteCollective(ctx context.Context, id string, at time.Time) error
}

// AuditLog records engine actions.
type AuditLog interface {
	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, subjectID string, details map[string]any) error

	// FindAuditLog finds audit log entries for a subject, newest first.
	FindAuditLog(ctx context.Context, subjectID string) ([]entities.AuditEntry, error)
}

// RelationalDB is the full backing store of the engine.
type RelationalDB interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	TxManager
	RelationshipStore
	MembershipStore
	CollectiveStore
	AuditLog
}
