package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/ports"
)

// DerivationEngine keeps the relationship graph in step with collective
// memberships and is the entry point for manual relationship changes.
//
// Adding a member applies the collective type's rule table against every
// other active member and upserts the resulting edges, each stamped with the
// new membership's id. Hard-removing a member deletes every edge stamped with
// its id. Deactivation keeps derived edges.
//
// Provenance follows "latest writer wins": when two memberships derive the
// same edge, the edge belongs to whichever wrote it last, and removing that
// membership deletes the edge even if the other one would still justify it.
//
// All mutations run in a single store transaction; the store's uniqueness
// constraints are the serialization point.
type DerivationEngine struct {
	tx          ports.TxManager
	audit       ports.AuditLog
	collectives *CollectiveService
	memberships *MembershipService
	edges       *EdgeService
	catalog     *catalog.Catalog
	log         *slog.Logger
}

// NewDerivationEngine creates a new DerivationEngine.
func NewDerivationEngine(
	tx ports.TxManager,
	audit ports.AuditLog,
	collectives *CollectiveService,
	memberships *MembershipService,
	edges *EdgeService,
	cat *catalog.Catalog,
	log *slog.Logger,
) *DerivationEngine {
	return &DerivationEngine{
		tx:          tx,
		audit:       audit,
		collectives: collectives,
		memberships: memberships,
		edges:       edges,
		catalog:     cat,
		log:         log.With(slog.String("component", "services.derivation")),
	}
}

// NewEngine wires the engine and its services over a single backing store.
func NewEngine(db ports.RelationalDB, cat *catalog.Catalog, log *slog.Logger) *DerivationEngine {
	return NewDerivationEngine(
		db,
		db,
		NewCollectiveService(db, cat.Roles),
		NewMembershipService(db, cat.Roles),
		NewEdgeService(db, db, cat.Types, log),
		cat,
		log,
	)
}

// Collectives exposes the collective service.
func (e *DerivationEngine) Collectives() *CollectiveService {
	return e.collectives
}

// Catalog exposes the reference catalogs.
func (e *DerivationEngine) Catalog() *catalog.Catalog {
	return e.catalog
}

// AddMembershipParams describes a new membership.
type AddMembershipParams struct {
	CollectiveID string
	ContactID    string
	RoleID       string
	JoinedDate   *time.Time
	Notes        string
}

// DeriveOnMembershipAdd inserts an active membership and derives its edges
// against the other active members of the collective.
func (e *DerivationEngine) DeriveOnMembershipAdd(ctx context.Context, params AddMembershipParams) (*entities.Membership, error) {
	var membership *entities.Membership
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		collective, err := e.collectives.Get(ctx, params.CollectiveID)
		if err != nil {
			return err
		}

		membership, err = e.memberships.AddActive(ctx, collective,
			params.ContactID, params.RoleID, params.JoinedDate, params.Notes)
		if err != nil {
			return err
		}

		written, err := e.applyRules(ctx, collective, membership)
		if err != nil {
			return err
		}

		return e.audit.LogAction(ctx, entities.ActionMembershipAdded, membership.ID, map[string]any{
			"collective_id": collective.ID,
			"contact_id":    membership.ContactID,
			"role_id":       membership.RoleID,
			"edges_written": written,
		})
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// ReapplyRules re-runs derivation for an active membership against the
// current co-members and returns the number of edge writes. Repeating it
// against an unchanged collective leaves the edge set unchanged.
func (e *DerivationEngine) ReapplyRules(ctx context.Context, membershipID string) (int, error) {
	var written int
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		membership, err := e.memberships.Get(ctx, membershipID)
		if err != nil {
			return err
		}
		if !membership.IsActive {
			return fmt.Errorf("%w: membership %s is inactive", entities.ErrInvalidInput, membershipID)
		}

		collective, err := e.collectives.Get(ctx, membership.CollectiveID)
		if err != nil {
			return err
		}

		written, err = e.applyRules(ctx, collective, membership)
		if err != nil {
			return err
		}

		return e.audit.LogAction(ctx, entities.ActionRulesReapplied, membership.ID, map[string]any{
			"edges_written": written,
		})
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// endpoints is one edge to write for a matched rule.
type endpoints struct {
	from, to string
}

// ruleEndpoints expands a rule direction into the edges it mandates.
func ruleEndpoints(d entities.Direction, newContactID, existingContactID string) ([]endpoints, error) {
	forward := endpoints{from: newContactID, to: existingContactID}
	backward := endpoints{from: existingContactID, to: newContactID}

	switch d {
	case entities.DirectionNewMember:
		return []endpoints{forward}, nil
	case entities.DirectionExistingMember:
		return []endpoints{backward}, nil
	case entities.DirectionBoth:
		return []endpoints{forward, backward}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rule direction %q", entities.ErrRuleCatalogInconsistency, d)
	}
}

// applyRules scans the other active members once each and upserts every
// edge their rule mandates, stamped with the membership's id.
func (e *DerivationEngine) applyRules(ctx context.Context, collective *entities.Collective, membership *entities.Membership) (int, error) {
	others, err := e.memberships.ListOtherActiveMembers(ctx, collective.ID, membership.ContactID)
	if err != nil {
		return 0, err
	}

	provenance := membership.ID
	written := 0
	for _, other := range others {
		rule, ok := e.catalog.Roles.RuleFor(collective.CollectiveTypeID, membership.RoleID, other.RoleID)
		if !ok {
			continue
		}

		pairs, err := ruleEndpoints(rule.Direction, membership.ContactID, other.ContactID)
		if err != nil {
			e.reportInconsistency(ctx, collective, rule, err)
			return written, err
		}

		for _, p := range pairs {
			if _, err := e.edges.UpsertEdge(ctx, p.from, p.to, rule.RelationshipTypeID, nil, &provenance); err != nil {
				if errors.Is(err, entities.ErrNotFound) {
					err = fmt.Errorf("%w: rule (%s, %s) in %q: %w", entities.ErrRuleCatalogInconsistency,
						rule.NewMemberRoleID, rule.ExistingMemberRoleID, collective.CollectiveTypeID, err)
					e.reportInconsistency(ctx, collective, rule, err)
				}
				return written, err
			}
			written++
		}
	}

	e.log.InfoContext(ctx, "relationships derived",
		slog.String("membership_id", membership.ID),
		slog.String("collective_id", collective.ID),
		slog.Int("co_members", len(others)),
		slog.Int("edges_written", written),
	)
	return written, nil
}

func (e *DerivationEngine) reportInconsistency(ctx context.Context, collective *entities.Collective, rule entities.RelationshipRule, err error) {
	e.log.ErrorContext(ctx, "rule catalog inconsistency",
		slog.String("collective_type_id", collective.CollectiveTypeID),
		slog.String("new_role_id", rule.NewMemberRoleID),
		slog.String("existing_role_id", rule.ExistingMemberRoleID),
		slog.String("relationship_type_id", rule.RelationshipTypeID),
		slog.Any("error", err),
	)
}

// CleanupOnMembershipRemove hard-removes a membership: every edge it derived
// is deleted, then the membership row itself. Edges derived by other
// memberships and manual edges are untouched.
func (e *DerivationEngine) CleanupOnMembershipRemove(ctx context.Context, membershipID string) error {
	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		membership, err := e.memberships.Get(ctx, membershipID)
		if err != nil {
			return err
		}

		purged, err := e.edges.DeleteByMembership(ctx, membershipID)
		if err != nil {
			return err
		}

		if _, err := e.memberships.RemoveHard(ctx, membershipID); err != nil {
			return err
		}

		e.log.InfoContext(ctx, "membership removed",
			slog.String("membership_id", membershipID),
			slog.String("collective_id", membership.CollectiveID),
			slog.Int("edges_purged", purged),
		)

		return e.audit.LogAction(ctx, entities.ActionMembershipRemoved, membershipID, map[string]any{
			"collective_id": membership.CollectiveID,
			"contact_id":    membership.ContactID,
			"edges_purged":  purged,
		})
	})
}

// DeactivateMembership marks a membership inactive. Derived edges stay.
func (e *DerivationEngine) DeactivateMembership(ctx context.Context, membershipID, reason string, date *time.Time) (*entities.Membership, error) {
	var membership *entities.Membership
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		membership, err = e.memberships.Deactivate(ctx, membershipID, reason, date)
		if err != nil {
			return err
		}
		return e.audit.LogAction(ctx, entities.ActionMembershipDeactivated, membershipID, map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// ReactivateMembership marks an inactive membership active again. It does
// not re-derive edges; call ReapplyRules for that.
func (e *DerivationEngine) ReactivateMembership(ctx context.Context, membershipID string) (*entities.Membership, error) {
	var membership *entities.Membership
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		membership, err = e.memberships.Reactivate(ctx, membershipID)
		if err != nil {
			return err
		}
		return e.audit.LogAction(ctx, entities.ActionMembershipReactivated, membershipID, nil)
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// GetMembership returns a membership by id.
func (e *DerivationEngine) GetMembership(ctx context.Context, membershipID string) (*entities.Membership, error) {
	return e.memberships.Get(ctx, membershipID)
}

// ListMembershipsFor returns every membership of a contact.
func (e *DerivationEngine) ListMembershipsFor(ctx context.Context, contactID string) ([]entities.Membership, error) {
	return e.memberships.ListForContact(ctx, contactID)
}

// ListMembershipsOf returns every membership of a collective.
func (e *DerivationEngine) ListMembershipsOf(ctx context.Context, collectiveID string) ([]entities.Membership, error) {
	return e.memberships.ListForCollective(ctx, collectiveID)
}

// ListDerivedBy returns the edges currently stamped with a membership.
func (e *DerivationEngine) ListDerivedBy(ctx context.Context, membershipID string) ([]entities.Relationship, error) {
	return e.edges.ListByMembership(ctx, membershipID)
}
