package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/ports"
)

// MembershipService manages collective memberships.
type MembershipService struct {
	store ports.MembershipStore
	roles *catalog.RoleRules
}

// NewMembershipService creates a new MembershipService.
func NewMembershipService(store ports.MembershipStore, roles *catalog.RoleRules) *MembershipService {
	return &MembershipService{
		store: store,
		roles: roles,
	}
}

// AddActive inserts an active membership of contactID in the collective.
// The role must belong to the collective's type. A contact that already
// holds an active membership in the collective is rejected with
// ErrDuplicateActiveMembership by the store's uniqueness constraint.
func (s *MembershipService) AddActive(
	ctx context.Context,
	collective *entities.Collective,
	contactID, roleID string,
	joinedDate *time.Time,
	notes string,
) (*entities.Membership, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, fmt.Errorf("%w: contact id is required", entities.ErrInvalidInput)
	}
	if _, err := s.roles.Role(collective.CollectiveTypeID, roleID); err != nil {
		return nil, err
	}

	m := &entities.Membership{
		ID:           newID(),
		CollectiveID: collective.ID,
		ContactID:    contactID,
		RoleID:       roleID,
		IsActive:     true,
		JoinedDate:   joinedDate,
		Notes:        notes,
		CreatedAt:    timeNow(),
	}
	if err := s.store.InsertMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("adding membership: %w", err)
	}
	return m, nil
}

// Get returns a membership by id or ErrNotFound.
func (s *MembershipService) Get(ctx context.Context, id string) (*entities.Membership, error) {
	m, err := s.store.FindMembership(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding membership: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("membership %s: %w", id, entities.ErrNotFound)
	}
	return m, nil
}

// ListOtherActiveMembers returns the active members of a collective other
// than the given contact. Order is unspecified.
func (s *MembershipService) ListOtherActiveMembers(ctx context.Context, collectiveID, excludingContactID string) ([]entities.MemberRef, error) {
	refs, err := s.store.FindOtherActiveMembers(ctx, collectiveID, excludingContactID)
	if err != nil {
		return nil, fmt.Errorf("listing active members: %w", err)
	}
	return refs, nil
}

// Deactivate marks a membership inactive. A nil date means today.
func (s *MembershipService) Deactivate(ctx context.Context, id, reason string, date *time.Time) (*entities.Membership, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	when := timeNow()
	if date != nil {
		when = *date
	}
	m.Deactivate(reason, when)

	if err := s.store.UpdateMembershipStatus(ctx, m); err != nil {
		return nil, fmt.Errorf("deactivating membership: %w", err)
	}
	return m, nil
}

// Reactivate marks a membership active again and clears the inactive
// reason and date.
func (s *MembershipService) Reactivate(ctx context.Context, id string) (*entities.Membership, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsActive {
		return m, nil
	}

	m.Reactivate()
	if err := s.store.UpdateMembershipStatus(ctx, m); err != nil {
		return nil, fmt.Errorf("reactivating membership: %w", err)
	}
	return m, nil
}

// RemoveHard deletes the membership row and reports whether it existed.
// Derived edges must be purged first; see DerivationEngine.
func (s *MembershipService) RemoveHard(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.DeleteMembership(ctx, id)
	if err != nil {
		return false, fmt.Errorf("removing membership: %w", err)
	}
	return deleted, nil
}

// ListForContact returns every membership of a contact.
func (s *MembershipService) ListForContact(ctx context.Context, contactID string) ([]entities.Membership, error) {
	ms, err := s.store.FindMembershipsByContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	return ms, nil
}

// ListForCollective returns every membership of a collective.
func (s *MembershipService) ListForCollective(ctx context.Context, collectiveID string) ([]entities.Membership, error) {
	ms, err := s.store.FindMembershipsByCollective(ctx, collectiveID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	return ms, nil
}
