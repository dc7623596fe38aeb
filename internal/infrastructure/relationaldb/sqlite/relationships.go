package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

const relationshipColumns = `id, from_contact_id, to_contact_id, relationship_type_id, notes, source_membership_id, created_at`

// edgeError maps constraint violations on the relationships table.
func edgeError(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, entities.ErrRelationshipExists)
	case isCheckViolation(err):
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
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_contact_id, to_contact_id, relationship_type_id) DO UPDATE SET
			source_membership_id = CASE WHEN relationships.source_membership_id IS NULL THEN NULL ELSE excluded.source_membership_id END,
			notes = COALESCE(excluded.notes, relationships.notes)
		RETURNING ` + relationshipColumns

	row := r.conn(ctx).QueryRowContext(ctx, query,
		rel.ID,
		rel.FromContactID,
		rel.ToContactID,
		rel.RelationshipTypeID,
		nullString(rel.Notes),
		nullString(rel.SourceMembershipID),
		rel.CreatedAt.UTC(),
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
	query := `INSERT INTO relationships (` + relationshipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.conn(ctx).ExecContext(ctx, query,
		rel.ID,
		rel.FromContactID,
		rel.ToContactID,
		rel.RelationshipTypeID,
		nullString(rel.Notes),
		nullString(rel.SourceMembershipID),
		rel.CreatedAt.UTC(),
	)
	if err != nil {
		return edgeError("inserting relationship", err)
	}
	return nil
}

// FindRelationship finds an edge by id.
func (r *Repository) FindRelationship(ctx context.Context, id string) (*entities.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = ?`
	rel, err := scanRelationship(r.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
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
		WHERE from_contact_id = ? AND to_contact_id = ? AND relationship_type_id = ?
	`
	rel, err := scanRelationship(r.conn(ctx).QueryRowContext(ctx, query, fromContactID, toContactID, typeID))
	if errors.Is(err, sql.ErrNoRows) {
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
			WHERE from_contact_id = ? AND to_contact_id = ? AND relationship_type_id = ?
		)
	`
	var exists bool
	if err := r.conn(ctx).QueryRowContext(ctx, query, fromContactID, toContactID, typeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking relationship: %w", classify(err))
	}
	return exists, nil
}

// UpdateRelationshipNotes replaces the notes of an edge.
func (r *Repository) UpdateRelationshipNotes(ctx context.Context, id string, notes *string) error {
	result, err := r.conn(ctx).ExecContext(ctx, `UPDATE relationships SET notes = ? WHERE id = ?`, nullString(notes), id)
	if err != nil {
		return fmt.Errorf("updating relationship notes: %w", classify(err))
	}
	return requireRow(result, "relationship", id)
}

// DeleteRelationship deletes an edge by id.
func (r *Repository) DeleteRelationship(ctx context.Context, id string) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting relationship: %w", classify(err))
	}
	return requireRow(result, "relationship", id)
}

// DeleteRelationshipsByMembership deletes every edge stamped with the membership.
func (r *Repository) DeleteRelationshipsByMembership(ctx context.Context, membershipID string) (int, error) {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM relationships WHERE source_membership_id = ?`, membershipID)
	if err != nil {
		return 0, fmt.Errorf("deleting relationships by membership: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted relationships: %w", err)
	}
	return int(n), nil
}

// FindRelationshipsFrom lists edges leaving a contact, newest first.
func (r *Repository) FindRelationshipsFrom(ctx context.Context, contactID string) ([]entities.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE from_contact_id = ?
		ORDER BY created_at DESC, id
	`
	return r.queryRelationships(ctx, query, contactID)
}

// FindRelationshipsByMembership lists edges stamped with the membership.
func (r *Repository) FindRelationshipsByMembership(ctx context.Context, membershipID string) ([]entities.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE source_membership_id = ?
		ORDER BY created_at DESC, id
	`
	return r.queryRelationships(ctx, query, membershipID)
}

// CountRelationships returns the total number of relationships in the database.
func (r *Repository) CountRelationships(ctx context.Context) (int, error) {
	var count int
	if err := r.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting relationships: %w", classify(err))
	}
	return count, nil
}

// queryRelationships is a helper to execute relationship queries.
func (r *Repository) queryRelationships(ctx context.Context, query string, args ...any) ([]entities.Relationship, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
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
	return relationships, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRelationship(s scanner) (*entities.Relationship, error) {
	var rel entities.Relationship
	var notes, source sql.NullString
	if err := s.Scan(
		&rel.ID,
		&rel.FromContactID,
		&rel.ToContactID,
		&rel.RelationshipTypeID,
		&notes,
		&source,
		&rel.CreatedAt,
	); err != nil {
		return nil, err
	}
	rel.Notes = stringPtr(notes)
	rel.SourceMembershipID = stringPtr(source)
	return &rel, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// requireRow turns an update that touched nothing into ErrNotFound.
func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, entities.ErrNotFound)
	}
	return nil
}
