package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/domain/services"
)

// Source filters for relationship listings.
const (
	SourceAll     = "all"
	SourceManual  = "manual"
	SourceDerived = "derived"
)

// RelationshipHandler handles relationship operations.
type RelationshipHandler struct {
	engine *services.DerivationEngine
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(engine *services.DerivationEngine) *RelationshipHandler {
	return &RelationshipHandler{
		engine: engine,
	}
}

// ListOptions configures relationship listing behavior.
type ListOptions struct {
	Type     string // Filter by relationship type (empty = all)
	Category string // Filter by type category (empty = all)
	Source   string // all, manual or derived (empty = all)
}

// RelationshipInfo is an edge with its catalog entry resolved.
type RelationshipInfo struct {
	Relationship entities.Relationship `json:"relationship"`
	Label        string                `json:"label"`
	Category     entities.Category     `json:"category"`
	Derived      bool                  `json:"derived"`
}

// ListResult contains the result of listing relationships.
type ListResult struct {
	ContactID     string             `json:"contact_id"`
	Relationships []RelationshipInfo `json:"relationships"`
}

// HandleCreate creates a manual relationship and its inverse.
func (h *RelationshipHandler) HandleCreate(ctx context.Context, from, typeID, to, notes string) (*services.ManualPair, error) {
	typeID, err := h.parseType(typeID)
	if err != nil {
		return nil, err
	}

	return h.engine.CreateManualRelationship(ctx, services.CreateRelationshipParams{
		FromContactID: strings.TrimSpace(from),
		ToContactID:   strings.TrimSpace(to),
		TypeID:        typeID,
		Notes:         notes,
	})
}

// UpdateOptions describes a change to a manual relationship. Nil fields are
// left unchanged.
type UpdateOptions struct {
	Type  *string
	Notes *string
}

// HandleUpdate changes the type or notes of a manual relationship.
func (h *RelationshipHandler) HandleUpdate(ctx context.Context, id string, opts UpdateOptions) (*entities.Relationship, error) {
	if opts.Type == nil && opts.Notes == nil {
		return nil, fmt.Errorf("%w: nothing to update", entities.ErrInvalidInput)
	}

	params := services.UpdateRelationshipParams{Notes: opts.Notes}
	if opts.Type != nil {
		typeID, err := h.parseType(*opts.Type)
		if err != nil {
			return nil, err
		}
		params.TypeID = &typeID
	}
	return h.engine.UpdateManualRelationship(ctx, id, params)
}

// HandleDelete removes a manual relationship and its manual inverse.
func (h *RelationshipHandler) HandleDelete(ctx context.Context, id string) error {
	return h.engine.DeleteManualRelationship(ctx, id)
}

// HandleList returns the edges leaving a contact with optional filtering.
func (h *RelationshipHandler) HandleList(ctx context.Context, contactID string, opts ListOptions) (*ListResult, error) {
	source := opts.Source
	if source == "" {
		source = SourceAll
	}
	switch source {
	case SourceAll, SourceManual, SourceDerived:
	default:
		return nil, fmt.Errorf("%w: invalid source %q (valid: %s, %s, %s)",
			entities.ErrInvalidInput, source, SourceAll, SourceManual, SourceDerived)
	}

	relationships, err := h.engine.ListRelationshipsFor(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}

	types := h.engine.Catalog().Types
	result := &ListResult{
		ContactID:     contactID,
		Relationships: make([]RelationshipInfo, 0, len(relationships)),
	}

	for i := range relationships {
		rel := relationships[i]
		if opts.Type != "" && rel.RelationshipTypeID != opts.Type {
			continue
		}
		if (source == SourceManual && !rel.IsManual()) || (source == SourceDerived && rel.IsManual()) {
			continue
		}

		info := RelationshipInfo{
			Relationship: rel,
			Label:        rel.RelationshipTypeID,
			Derived:      !rel.IsManual(),
		}
		// Edges whose type left the catalog are still listed under their raw id
		if t, err := types.Get(rel.RelationshipTypeID); err == nil {
			info.Label = t.Label
			info.Category = t.Category
		}
		if opts.Category != "" && string(info.Category) != opts.Category {
			continue
		}
		result.Relationships = append(result.Relationships, info)
	}

	return result, nil
}

// HandleHistory returns the audit trail of a relationship.
func (h *RelationshipHandler) HandleHistory(ctx context.Context, id string) ([]entities.AuditEntry, error) {
	return h.engine.AuditLog(ctx, id)
}

// parseType validates a relationship type against the catalog.
func (h *RelationshipHandler) parseType(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, err := h.engine.Catalog().Types.Get(s); err != nil {
		return "", fmt.Errorf("invalid relationship type: %s (valid: %s): %w",
			s, strings.Join(h.engine.Catalog().Types.IDs(), ", "), err)
	}
	return s, nil
}
