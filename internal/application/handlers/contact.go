package handlers

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/services"
)

// ContactHandler assembles per-contact views.
type ContactHandler struct {
	engine        *services.DerivationEngine
	relationships *RelationshipHandler
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(engine *services.DerivationEngine) *ContactHandler {
	return &ContactHandler{
		engine:        engine,
		relationships: NewRelationshipHandler(engine),
	}
}

// MembershipInfo is a membership with its collective resolved. Collective is
// nil when the collective has been deleted.
type MembershipInfo struct {
	Membership entities.Membership  `json:"membership"`
	Collective *entities.Collective `json:"collective,omitempty"`
	RoleLabel  string               `json:"role_label"`
}

// ContactDetail is everything known about a contact's place in the graph.
type ContactDetail struct {
	ContactID     string             `json:"contact_id"`
	Relationships []RelationshipInfo `json:"relationships"`
	Memberships   []MembershipInfo   `json:"memberships"`
}

// HandleDetail loads a contact's relationships and memberships concurrently.
func (h *ContactHandler) HandleDetail(ctx context.Context, contactID string) (*ContactDetail, error) {
	detail := &ContactDetail{ContactID: contactID}
	var memberships []entities.Membership

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, err := h.relationships.HandleList(gctx, contactID, ListOptions{})
		if err != nil {
			return err
		}
		detail.Relationships = result.Relationships
		return nil
	})

	g.Go(func() error {
		var err error
		memberships, err = h.engine.ListMembershipsFor(gctx, contactID)
		if err != nil {
			return fmt.Errorf("listing memberships: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	infos, err := h.resolveMemberships(ctx, memberships)
	if err != nil {
		return nil, err
	}
	detail.Memberships = infos
	return detail, nil
}

// resolveMemberships looks up each distinct collective once.
func (h *ContactHandler) resolveMemberships(ctx context.Context, memberships []entities.Membership) ([]MembershipInfo, error) {
	collectiveIDs := make([]string, 0, len(memberships))
	seen := make(map[string]bool, len(memberships))
	for _, m := range memberships {
		if !seen[m.CollectiveID] {
			seen[m.CollectiveID] = true
			collectiveIDs = append(collectiveIDs, m.CollectiveID)
		}
	}

	collectives := make([]*entities.Collective, len(collectiveIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range collectiveIDs {
		g.Go(func() error {
			c, err := h.engine.Collectives().Get(gctx, id)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				return err
			}
			collectives[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*entities.Collective, len(collectiveIDs))
	for i, id := range collectiveIDs {
		byID[id] = collectives[i]
	}

	roles := h.engine.Catalog().Roles
	infos := make([]MembershipInfo, 0, len(memberships))
	for _, m := range memberships {
		info := MembershipInfo{
			Membership: m,
			Collective: byID[m.CollectiveID],
			RoleLabel:  entities.RoleKeyFromID(m.RoleID),
		}
		if info.Collective != nil {
			if role, err := roles.Role(info.Collective.CollectiveTypeID, m.RoleID); err == nil {
				info.RoleLabel = role.Label
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, entities.ErrNotFound)
}
