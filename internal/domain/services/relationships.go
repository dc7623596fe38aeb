package services

import (
	"context"
	"log/slog"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

// CreateRelationshipParams describes a manual relationship.
type CreateRelationshipParams struct {
	FromContactID string
	ToContactID   string
	TypeID        string
	Notes         string
}

// ManualPair is a manual edge and the mirrored edge created with it.
// Inverse is nil for types without an inverse.
type ManualPair struct {
	Relationship *entities.Relationship `json:"relationship"`
	Inverse      *entities.Relationship `json:"inverse,omitempty"`
}

// CreateManualRelationship creates a user-defined edge together with its
// catalog inverse. Manual edges never carry a source membership.
func (e *DerivationEngine) CreateManualRelationship(ctx context.Context, params CreateRelationshipParams) (*ManualPair, error) {
	var pair ManualPair
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		primary, inverse, err := e.edges.CreateManualPair(ctx,
			params.FromContactID, params.ToContactID, params.TypeID, optionalString(params.Notes))
		if err != nil {
			return err
		}
		pair = ManualPair{Relationship: primary, Inverse: inverse}

		details := map[string]any{
			"from": primary.FromContactID,
			"to":   primary.ToContactID,
			"type": primary.RelationshipTypeID,
		}
		if inverse != nil {
			details["inverse_id"] = inverse.ID
		}
		return e.audit.LogAction(ctx, entities.ActionRelationshipCreated, primary.ID, details)
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "relationship created",
		slog.String("relationship_id", pair.Relationship.ID),
		slog.String("type", pair.Relationship.RelationshipTypeID),
		slog.Bool("with_inverse", pair.Inverse != nil),
	)
	return &pair, nil
}

// UpdateRelationshipParams describes a change to a manual relationship.
// Nil fields are left unchanged.
type UpdateRelationshipParams struct {
	TypeID *string
	Notes  *string
}

// UpdateManualRelationship changes the notes or the type of a manual edge.
// Changing the type replaces the edge and its inverse, so the returned edge
// may carry a new id.
func (e *DerivationEngine) UpdateManualRelationship(ctx context.Context, relationshipID string, params UpdateRelationshipParams) (*entities.Relationship, error) {
	var updated *entities.Relationship
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = e.edges.UpdateManualPair(ctx, relationshipID, params.TypeID, params.Notes)
		if err != nil {
			return err
		}
		return e.audit.LogAction(ctx, entities.ActionRelationshipUpdated, relationshipID, map[string]any{
			"relationship_id": updated.ID,
			"type":            updated.RelationshipTypeID,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteManualRelationship deletes a manual edge and its manual inverse in
// one transaction. Derived edges are refused with ErrDerivedRelationship.
func (e *DerivationEngine) DeleteManualRelationship(ctx context.Context, relationshipID string) error {
	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		rel, err := e.edges.Get(ctx, relationshipID)
		if err != nil {
			return err
		}

		if err := e.edges.DeleteManualPair(ctx, rel); err != nil {
			return err
		}

		inverseDeleted, err := e.edges.DeleteManualInverse(ctx, rel.FromContactID, rel.ToContactID, rel.RelationshipTypeID)
		if err != nil {
			return err
		}

		return e.audit.LogAction(ctx, entities.ActionRelationshipDeleted, relationshipID, map[string]any{
			"from":            rel.FromContactID,
			"to":              rel.ToContactID,
			"type":            rel.RelationshipTypeID,
			"inverse_deleted": inverseDeleted,
		})
	})
}

// GetRelationship returns an edge by id.
func (e *DerivationEngine) GetRelationship(ctx context.Context, relationshipID string) (*entities.Relationship, error) {
	return e.edges.Get(ctx, relationshipID)
}

// ListRelationshipsFor returns every edge leaving a contact, manual and
// derived, newest first.
func (e *DerivationEngine) ListRelationshipsFor(ctx context.Context, contactID string) ([]entities.Relationship, error) {
	return e.edges.ListFor(ctx, contactID)
}

// RelationshipExists reports whether the edge (from, to, typeID) is present.
func (e *DerivationEngine) RelationshipExists(ctx context.Context, from, to, typeID string) (bool, error) {
	return e.edges.Exists(ctx, from, to, typeID)
}

// AuditLog returns the recorded actions for a subject, newest first.
func (e *DerivationEngine) AuditLog(ctx context.Context, subjectID string) ([]entities.AuditEntry, error) {
	return e.audit.FindAuditLog(ctx, subjectID)
}
