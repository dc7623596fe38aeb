package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/ports"
)

// EdgeService manages directed relationship edges. Manual edges are always
// written together with their catalog inverse; derived edges are upserted one
// at a time and carry the membership that produced them.
type EdgeService struct {
	store ports.RelationshipStore
	tx    ports.TxManager
	types *catalog.RelationshipTypes
	log   *slog.Logger
}

// NewEdgeService creates a new EdgeService.
func NewEdgeService(
	store ports.RelationshipStore,
	tx ports.TxManager,
	types *catalog.RelationshipTypes,
	log *slog.Logger,
) *EdgeService {
	return &EdgeService{
		store: store,
		tx:    tx,
		types: types,
		log:   log.With(slog.String("component", "services.edges")),
	}
}

func checkEndpoints(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: contact ids are required", entities.ErrInvalidInput)
	}
	if from == to {
		return fmt.Errorf("contact %s: %w", from, entities.ErrInvalidSelfRelationship)
	}
	return nil
}

func newEdge(from, to, typeID string, note, sourceMembershipID *string) *entities.Relationship {
	return &entities.Relationship{
		ID:                 newID(),
		FromContactID:      from,
		ToContactID:        to,
		RelationshipTypeID: typeID,
		Notes:              note,
		SourceMembershipID: sourceMembershipID,
		CreatedAt:          timeNow(),
	}
}

// UpsertEdge writes the edge (from, to, typeID). An existing edge with the
// same triple is updated in place: a derived edge takes sourceMembershipID
// as its provenance while a manual edge stays manual, and the note is
// replaced only when note is non-nil. Applying the same rule twice
// therefore leaves a single row.
func (s *EdgeService) UpsertEdge(
	ctx context.Context,
	from, to, typeID string,
	note *string,
	sourceMembershipID *string,
) (*entities.Relationship, error) {
	if err := checkEndpoints(from, to); err != nil {
		return nil, err
	}
	if _, err := s.types.Get(typeID); err != nil {
		return nil, err
	}

	rel, err := s.store.UpsertRelationship(ctx, newEdge(from, to, typeID, note, sourceMembershipID))
	if err != nil {
		return nil, fmt.Errorf("upserting relationship: %w", err)
	}

	s.log.DebugContext(ctx, "relationship upserted",
		slog.String("relationship_id", rel.ID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("type", typeID),
	)
	return rel, nil
}

// CreateManualPair creates the edge (from, to, typeID) and, when the type
// has an inverse, the mirrored edge (to, from, inverse) in one transaction.
// The primary triple must be free. A mirrored edge that already exists is
// reused; when it was derived it becomes manual so membership cleanup
// cannot strip the pair of its inverse.
func (s *EdgeService) CreateManualPair(
	ctx context.Context,
	from, to, typeID string,
	note *string,
) (*entities.Relationship, *entities.Relationship, error) {
	if err := checkEndpoints(from, to); err != nil {
		return nil, nil, err
	}
	inverseType, hasInverse, err := s.types.Inverse(typeID)
	if err != nil {
		return nil, nil, err
	}

	var primary, inverse *entities.Relationship
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		primary = newEdge(from, to, typeID, note, nil)
		if err := s.store.InsertRelationship(ctx, primary); err != nil {
			return fmt.Errorf("creating relationship: %w", err)
		}
		if !hasInverse {
			return nil
		}

		existing, err := s.store.FindRelationshipByTriple(ctx, to, from, inverseType.ID)
		if err != nil {
			return fmt.Errorf("checking inverse relationship: %w", err)
		}
		if existing != nil && existing.IsManual() {
			inverse = existing
			return nil
		}
		if existing != nil {
			claimed := newEdge(to, from, inverseType.ID, note, nil)
			inverse, err = s.store.UpsertRelationship(ctx, claimed)
			if err != nil {
				return fmt.Errorf("claiming inverse relationship: %w", err)
			}
			return nil
		}

		inverse = newEdge(to, from, inverseType.ID, note, nil)
		if err := s.store.InsertRelationship(ctx, inverse); err != nil {
			return fmt.Errorf("creating inverse relationship: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return primary, inverse, nil
}

// Get returns an edge by id or ErrNotFound.
func (s *EdgeService) Get(ctx context.Context, id string) (*entities.Relationship, error) {
	rel, err := s.store.FindRelationship(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding relationship: %w", err)
	}
	if rel == nil {
		return nil, fmt.Errorf("relationship %s: %w", id, entities.ErrNotFound)
	}
	return rel, nil
}

// FindByTriple returns the edge with the given endpoints and type, or nil.
func (s *EdgeService) FindByTriple(ctx context.Context, from, to, typeID string) (*entities.Relationship, error) {
	rel, err := s.store.FindRelationshipByTriple(ctx, from, to, typeID)
	if err != nil {
		return nil, fmt.Errorf("finding relationship: %w", err)
	}
	return rel, nil
}

// DeleteByMembership removes every edge derived from the membership and
// returns how many were removed. Zero is a valid outcome.
func (s *EdgeService) DeleteByMembership(ctx context.Context, membershipID string) (int, error) {
	n, err := s.store.DeleteRelationshipsByMembership(ctx, membershipID)
	if err != nil {
		return 0, fmt.Errorf("deleting derived relationships: %w", err)
	}
	return n, nil
}

// DeleteManualPair deletes the already loaded manual edge rel. The inverse
// is left to DeleteManualInverse. Derived edges are refused with
// ErrDerivedRelationship.
func (s *EdgeService) DeleteManualPair(ctx context.Context, rel *entities.Relationship) error {
	if !rel.IsManual() {
		return fmt.Errorf("relationship %s: %w", rel.ID, entities.ErrDerivedRelationship)
	}
	if err := s.store.DeleteRelationship(ctx, rel.ID); err != nil {
		return fmt.Errorf("deleting relationship: %w", err)
	}
	return nil
}

// UpdateNotes replaces the notes of an edge; nil clears them.
func (s *EdgeService) UpdateNotes(ctx context.Context, edgeID string, notes *string) error {
	if err := s.store.UpdateRelationshipNotes(ctx, edgeID, notes); err != nil {
		return fmt.Errorf("updating relationship notes: %w", err)
	}
	return nil
}

// Exists reports whether the edge (from, to, typeID) is present.
func (s *EdgeService) Exists(ctx context.Context, from, to, typeID string) (bool, error) {
	ok, err := s.store.RelationshipExists(ctx, from, to, typeID)
	if err != nil {
		return false, fmt.Errorf("checking relationship: %w", err)
	}
	return ok, nil
}

// ListFor returns the edges leaving a contact, newest first.
func (s *EdgeService) ListFor(ctx context.Context, contactID string) ([]entities.Relationship, error) {
	rels, err := s.store.FindRelationshipsFrom(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	return rels, nil
}

// ListByMembership returns the edges derived from a membership.
func (s *EdgeService) ListByMembership(ctx context.Context, membershipID string) ([]entities.Relationship, error) {
	rels, err := s.store.FindRelationshipsByMembership(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("listing derived relationships: %w", err)
	}
	return rels, nil
}

// DeleteManualInverse deletes the mirror of the manual edge (from, related,
// typeID), that is (related, from, inverse). It reports whether an edge was
// removed. A mirror that was derived from a membership is left alone.
func (s *EdgeService) DeleteManualInverse(ctx context.Context, from, related, typeID string) (bool, error) {
	inverseType, hasInverse, err := s.types.Inverse(typeID)
	if err != nil {
		return false, err
	}
	if !hasInverse {
		return false, nil
	}

	mirror, err := s.FindByTriple(ctx, related, from, inverseType.ID)
	if err != nil {
		return false, err
	}
	if mirror == nil || !mirror.IsManual() {
		return false, nil
	}

	if err := s.store.DeleteRelationship(ctx, mirror.ID); err != nil {
		return false, fmt.Errorf("deleting inverse relationship: %w", err)
	}
	return true, nil
}

// UpdateManualPair changes the type and/or notes of a manual edge. A nil
// typeID or one equal to the current type only replaces the notes of the
// primary edge. A type change replaces the whole pair: the edge and its
// manual mirror are deleted and a new pair is created with the new type,
// keeping the old notes unless new ones are given.
func (s *EdgeService) UpdateManualPair(ctx context.Context, edgeID string, typeID, note *string) (*entities.Relationship, error) {
	var updated *entities.Relationship
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rel, err := s.Get(ctx, edgeID)
		if err != nil {
			return err
		}
		if !rel.IsManual() {
			return fmt.Errorf("relationship %s: %w", edgeID, entities.ErrDerivedRelationship)
		}

		if typeID == nil || *typeID == rel.RelationshipTypeID {
			if note != nil {
				if err := s.UpdateNotes(ctx, rel.ID, note); err != nil {
					return err
				}
				rel.Notes = note
			}
			updated = rel
			return nil
		}

		if _, err := s.types.Get(*typeID); err != nil {
			return err
		}
		if note == nil {
			note = rel.Notes
		}

		if err := s.DeleteManualPair(ctx, rel); err != nil {
			return err
		}
		if _, err := s.DeleteManualInverse(ctx, rel.FromContactID, rel.ToContactID, rel.RelationshipTypeID); err != nil {
			return err
		}

		updated, _, err = s.CreateManualPair(ctx, rel.FromContactID, rel.ToContactID, *typeID, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "relationship updated",
		slog.String("relationship_id", updated.ID),
		slog.String("type", updated.RelationshipTypeID),
	)
	return updated, nil
}
