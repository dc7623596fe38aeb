package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

const relationshipColumns = `id, from_contact_id, to_contact_id, relationship_type_id, notes, source_membership_id, created_at`

func edgeError(op string, err error) error {
	switch {
	case IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, entities.ErrRelationshipExists)
	case IsCheckViolation(err):
		return fmt.Errorf("%s: %w", op, entities.ErrInvalidSelfRelationship)
	default:
		return fmt.Errorf("%s: %w", op, classify(err))
	}
}

// UpsertRelationship inserts rel or refreshes the provenance of the edge
// sharing its (from, to, type) triple. A manual edge keeps its NULL
// provenance, so derivation never takes it over.
func (r *Repository) UpsertRelationship(ctx context.Context, rel *entities.Relationship) (*entities.Relationship, error) {
	query := `
		INSERT INTO relationships (` + relationshipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT relationships_triple_key DO UPDATE SET
			source_membership_id = CASE WHEN relationships.source_membership_id IS NULL THEN NULL ELSE EXCLUDED.source_membership_id END,
			notes = COALESCE(EXCLUDED.notes, relationships.notes)
		RETURNING ` + relationshipColumns

	row := r.conn(ctx).QueryRow(ctx, query,
		rel.ID,
		rel.FromContactID,
		rel.ToContactID,
		rel.RelationshipTypeID,
		rel.Notes,
		rel.SourceMembershipID,
		rel.CreatedAt,
	)
	stored, err := scanRelationship(row)
	if err != nil {
		return nil, edgeError("upserting relationship", err)
	}
	return stored, nil
}

// InsertRelationship inserts rel, failing with ErrRelationshipExists on a
// taken triple.
func (r *Repository) InsertRelationship(ctx context.Context, rel *entities.Relationship) error {
	query := `INSERT INTO relationships (` + relationshipColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.conn(ctx).Exec(ctx, query,
		rel.ID,
		rel.FromContactID,
		rel.ToContactID,
		rel.RelationshipTypeID,
		rel.Notes,
		rel.SourceMembershipID,
		rel.CreatedAt,
	)
	if err != nil {
		return edgeError("inserting relationship", err)
	}
	return nil
}

// FindRelationship finds an edge by id.
func (r *Repository) FindRelationship(ctx context.Context, id string) (*entities.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = $1`
	rel, err := scanRelationship(r.conn(ctx).QueryRow(ctx, query, id))
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding relationship: %w", classify(err))
	}
	return rel, nil
}

// FindRelationshipByTriple finds the edge with the given endpoints and type.
func (r *Repository) FindRelationshipByTriple(ctx context.Context, fromContactID, toContactID, typeID string) (*entities.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE from_contact_id = $1 AND to_contact_id = $2 AND relationship_type_id = $3
	`
	rel, err := scanRelationship(r.conn(ctx).QueryRow(ctx, query, fromContactID, toContactID, typeID))
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding relationship: %w", classify(err))
	}
	return rel, nil
}

// RelationshipExists reports whether the triple is present.
func (r *Repository) RelationshipExists(ctx context.Context, fromContactID, toContactID, typeID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM relationships
			WHERE from_contact_id = $1 AND to_contact_id = $2 AND relationship_type_id = $3
		)
	`
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx, query, fromContactID, toContactID, typeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking relationship: %w", classify(err))
	}
	return exists, nil
}

// UpdateRelationshipNotes replaces the notes of an edge.
func (r *Repository) UpdateRelationshipNotes(ctx context.Context, id string, notes *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE relationships SET notes = $1 WHERE id = $2`, notes, id)
	if err != nil {
		return fmt.Errorf("updating relationship notes: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relationship %s: %w", id, entities.ErrNotFound)
	}
	return nil
}

// DeleteRelationship deletes an edge by id.
func (r *Repository) DeleteRelationship(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM relationships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting relationship: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relationship %s: %w", id, entities.ErrNotFound)
	}
	return nil
}

// DeleteRelationshipsByMembership deletes every edge stamped with the membership.
func (r *Repository) DeleteRelationshipsByMembership(ctx context.Context, membershipID string) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM relationships WHERE source_membership_id = $1`, membershipID)
	if err != nil {
		return 0, fmt.Errorf("deleting relationships by membership: %w", classify(err))
	}
	return int(tag.RowsAffected()), nil
}

// FindRelationshipsFrom lists edges leaving a contact, newest first.
func (r *Repository) FindRelationshipsFrom(ctx context.Context, contactID string) ([]entities.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE from_contact_id = $1
		ORDER BY created_at DESC, id
	`
	return r.queryRelationships(ctx, query, contactID)
}

// FindRelationshipsByMembership lists edges stamped with the membership.
func (r *Repository) FindRelationshipsByMembership(ctx context.Context, membershipID string) ([]entities.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE source_membership_id = $1
		ORDER BY created_at DESC, id
	`
	return r.queryRelationships(ctx, query, membershipID)
}

// CountRelationships returns the total number of edges.
func (r *Repository) CountRelationships(ctx context.Context) (int, error) {
	var count int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting relationships: %w", classify(err))
	}
	return count, nil
}

func (r *Repository) queryRelationships(ctx context.Context, query string, args ...any) ([]entities.Relationship, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", classify(err))
	}
	defer rows.Close()

	relationships := make([]entities.Relationship, 0, 16)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		relationships = append(relationships, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relationships: %w", classify(err))
	}
	return relationships, nil
}

func scanRelationship(row pgx.Row) (*entities.Relationship, error) {
	var rel entities.Relationship
	if err := row.Scan(
		&rel.ID,
		&rel.FromContactID,
		&rel.ToContactID,
		&rel.RelationshipTypeID,
		&rel.Notes,
		&rel.SourceMembershipID,
		&rel.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rel, nil
}
