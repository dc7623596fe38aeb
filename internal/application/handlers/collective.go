package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/services"
)

// CollectiveHandler handles collective operations for one user.
type CollectiveHandler struct {
	engine *services.DerivationEngine
	userID string
}

// NewCollectiveHandler creates a new CollectiveHandler acting as userID.
func NewCollectiveHandler(engine *services.DerivationEngine, userID string) *CollectiveHandler {
	return &CollectiveHandler{
		engine: engine,
		userID: userID,
	}
}

// HandleCreate creates a collective of the given type.
func (h *CollectiveHandler) HandleCreate(ctx context.Context, collectiveTypeID, name string) (*entities.Collective, error) {
	return h.engine.Collectives().Create(ctx, h.userID, collectiveTypeID, name)
}

// HandleList returns the user's collectives.
func (h *CollectiveHandler) HandleList(ctx context.Context) ([]entities.Collective, error) {
	return h.engine.Collectives().ListForUser(ctx, h.userID)
}

// HandleRename renames a collective.
func (h *CollectiveHandler) HandleRename(ctx context.Context, id, name string) (*entities.Collective, error) {
	return h.engine.Collectives().Rename(ctx, id, name)
}

// HandleDelete soft-deletes a collective.
func (h *CollectiveHandler) HandleDelete(ctx context.Context, id string) error {
	return h.engine.Collectives().Delete(ctx, id)
}

// HandleTypes returns the collective types visible to the user.
func (h *CollectiveHandler) HandleTypes() []entities.CollectiveType {
	return h.engine.Catalog().Roles.TypesVisibleTo(h.userID)
}

// HandleDescribeType returns a collective type with its roles and rules.
// Private types of other users are reported as not found.
func (h *CollectiveHandler) HandleDescribeType(collectiveTypeID string) (*entities.CollectiveType, error) {
	for _, t := range h.HandleTypes() {
		if t.ID == collectiveTypeID {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("collective type %q: %w", collectiveTypeID, entities.ErrNotFound)
}
