package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/ports"
)

// CollectiveService manages collective instances.
type CollectiveService struct {
	store ports.CollectiveStore
	roles *catalog.RoleRules
}

// NewCollectiveService creates a new CollectiveService.
func NewCollectiveService(store ports.CollectiveStore, roles *catalog.RoleRules) *CollectiveService {
	return &CollectiveService{
		store: store,
		roles: roles,
	}
}

// Create creates a collective of the given type owned by userID. The type
// must be a system type or one of the user's private types.
func (s *CollectiveService) Create(ctx context.Context, userID, collectiveTypeID, name string) (*entities.Collective, error) {
	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		return nil, fmt.Errorf("%w: user id and name are required", entities.ErrInvalidInput)
	}

	ct, err := s.roles.CollectiveType(collectiveTypeID)
	if err != nil {
		return nil, err
	}
	if !ct.VisibleTo(userID) {
		return nil, fmt.Errorf("collective type %q: %w", collectiveTypeID, entities.ErrNotFound)
	}

	c := &entities.Collective{
		ID:               newID(),
		UserID:           userID,
		CollectiveTypeID: collectiveTypeID,
		Name:             name,
		CreatedAt:        timeNow(),
	}
	if err := s.store.SaveCollective(ctx, c); err != nil {
		return nil, fmt.Errorf("saving collective: %w", err)
	}
	return c, nil
}

// Get returns a live collective. Missing and soft-deleted collectives are
// both reported as ErrNotFound.
func (s *CollectiveService) Get(ctx context.Context, id string) (*entities.Collective, error) {
	c, err := s.store.FindCollective(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding collective: %w", err)
	}
	if c == nil || c.IsDeleted() {
		return nil, fmt.Errorf("collective %s: %w", id, entities.ErrNotFound)
	}
	return c, nil
}

// Rename changes the name of a collective.
func (s *CollectiveService) Rename(ctx context.Context, id, name string) (*entities.Collective, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", entities.ErrInvalidInput)
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	if err := s.store.SaveCollective(ctx, c); err != nil {
		return nil, fmt.Errorf("saving collective: %w", err)
	}
	return c, nil
}

// Delete soft-deletes a collective. Memberships and derived edges are left
// in place.
func (s *CollectiveService) Delete(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteCollective(ctx, id, timeNow()); err != nil {
		return fmt.Errorf("deleting collective: %w", err)
	}
	return nil
}

// ListForUser returns the user's live collectives.
func (s *CollectiveService) ListForUser(ctx context.Context, userID string) ([]entities.Collective, error) {
	cs, err := s.store.ListCollectivesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing collectives: %w", err)
	}
	return cs, nil
}
