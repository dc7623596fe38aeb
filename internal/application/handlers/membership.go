package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/services"
)

// DateLayout is the layout accepted for membership dates.
const DateLayout = "2006-01-02"

// MembershipHandler handles collective membership operations.
type MembershipHandler struct {
	engine *services.DerivationEngine
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(engine *services.DerivationEngine) *MembershipHandler {
	return &MembershipHandler{
		engine: engine,
	}
}

// AddRequest describes a new membership. Role may be a bare key ("child")
// or a full role id ("family.child").
type AddRequest struct {
	CollectiveID string
	ContactID    string
	Role         string
	JoinedDate   string // YYYY-MM-DD, optional
	Notes        string
}

// AddResult is the new membership and the edges it derived.
type AddResult struct {
	Membership entities.Membership     `json:"membership"`
	Derived    []entities.Relationship `json:"derived"`
}

// HandleAdd adds a contact to a collective and derives its relationships.
func (h *MembershipHandler) HandleAdd(ctx context.Context, req AddRequest) (*AddResult, error) {
	collective, err := h.engine.Collectives().Get(ctx, req.CollectiveID)
	if err != nil {
		return nil, err
	}

	joined, err := parseDate(req.JoinedDate)
	if err != nil {
		return nil, err
	}

	m, err := h.engine.DeriveOnMembershipAdd(ctx, services.AddMembershipParams{
		CollectiveID: collective.ID,
		ContactID:    strings.TrimSpace(req.ContactID),
		RoleID:       resolveRoleID(collective.CollectiveTypeID, req.Role),
		JoinedDate:   joined,
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, err
	}

	derived, err := h.engine.ListDerivedBy(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("listing derived relationships: %w", err)
	}
	return &AddResult{Membership: *m, Derived: derived}, nil
}

// HandleRemove hard-removes a membership and the edges it derived.
func (h *MembershipHandler) HandleRemove(ctx context.Context, membershipID string) error {
	return h.engine.CleanupOnMembershipRemove(ctx, membershipID)
}

// HandleDeactivate marks a membership inactive. An empty date means today.
func (h *MembershipHandler) HandleDeactivate(ctx context.Context, membershipID, reason, date string) (*entities.Membership, error) {
	inactive, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	return h.engine.DeactivateMembership(ctx, membershipID, reason, inactive)
}

// HandleReactivate marks a membership active again, optionally re-running
// its derivation rules against the current members.
func (h *MembershipHandler) HandleReactivate(ctx context.Context, membershipID string, reapply bool) (*entities.Membership, int, error) {
	m, err := h.engine.ReactivateMembership(ctx, membershipID)
	if err != nil {
		return nil, 0, err
	}
	if !reapply {
		return m, 0, nil
	}

	written, err := h.engine.ReapplyRules(ctx, membershipID)
	if err != nil {
		return m, 0, fmt.Errorf("reapplying rules: %w", err)
	}
	return m, written, nil
}

// HandleReapply re-runs the derivation rules of an active membership.
func (h *MembershipHandler) HandleReapply(ctx context.Context, membershipID string) (int, error) {
	return h.engine.ReapplyRules(ctx, membershipID)
}

// MemberListOptions selects which memberships to list. Exactly one of
// CollectiveID and ContactID must be set.
type MemberListOptions struct {
	CollectiveID string
	ContactID    string
	ActiveOnly   bool
}

// HandleList lists the memberships of a collective or of a contact.
func (h *MembershipHandler) HandleList(ctx context.Context, opts MemberListOptions) ([]entities.Membership, error) {
	var (
		memberships []entities.Membership
		err         error
	)
	switch {
	case opts.CollectiveID != "" && opts.ContactID == "":
		memberships, err = h.engine.ListMembershipsOf(ctx, opts.CollectiveID)
	case opts.ContactID != "" && opts.CollectiveID == "":
		memberships, err = h.engine.ListMembershipsFor(ctx, opts.ContactID)
	default:
		return nil, fmt.Errorf("%w: exactly one of collective and contact is required", entities.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}

	if !opts.ActiveOnly {
		return memberships, nil
	}
	active := memberships[:0]
	for _, m := range memberships {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active, nil
}

// resolveRoleID qualifies a bare role key with the collective type.
func resolveRoleID(collectiveTypeID, role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if strings.Contains(role, ".") {
		return role
	}
	return entities.RoleID(collectiveTypeID, role)
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", entities.ErrInvalidInput, s)
	}
	return &t, nil
}
