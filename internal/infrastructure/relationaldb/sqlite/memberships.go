package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

const membershipColumns = `id, collective_id, contact_id, role_id, is_active, inactive_reason, inactive_date, joined_date, notes, created_at`

// InsertMembership inserts a membership. The partial unique index on
// active rows turns a second active membership into
// ErrDuplicateActiveMembership.
func (r *Repository) InsertMembership(ctx context.Context, m *entities.Membership) error {
	query := `INSERT INTO collective_memberships (` + membershipColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.conn(ctx).ExecContext(ctx, query,
		m.ID,
		m.CollectiveID,
		m.ContactID,
		m.RoleID,
		m.IsActive,
		emptyToNull(m.InactiveReason),
		nullTime(m.InactiveDate),
		nullTime(m.JoinedDate),
		emptyToNull(m.Notes),
		m.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("inserting membership: %w", entities.ErrDuplicateActiveMembership)
	}
	if err != nil {
		return fmt.Errorf("inserting membership: %w", classify(err))
	}
	return nil
}

// FindMembership finds a membership by id.
func (r *Repository) FindMembership(ctx context.Context, id string) (*entities.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM collective_memberships WHERE id = ?`
	m, err := scanMembership(r.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding membership: %w", classify(err))
	}
	return m, nil
}

// FindOtherActiveMembers lists active members of a collective other than
// the given contact.
func (r *Repository) FindOtherActiveMembers(ctx context.Context, collectiveID, excludingContactID string) ([]entities.MemberRef, error) {
	query := `
		SELECT id, contact_id, role_id
		FROM collective_memberships
		WHERE collective_id = ? AND is_active = 1 AND contact_id <> ?
		ORDER BY id
	`
	rows, err := r.conn(ctx).QueryContext(ctx, query, collectiveID, excludingContactID)
	if err != nil {
		return nil, fmt.Errorf("querying active members: %w", classify(err))
	}
	defer rows.Close()

	refs := make([]entities.MemberRef, 0, 16)
	for rows.Next() {
		var ref entities.MemberRef
		if err := rows.Scan(&ref.MembershipID, &ref.ContactID, &ref.RoleID); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// UpdateMembershipStatus persists the active flag and inactive fields.
func (r *Repository) UpdateMembershipStatus(ctx context.Context, m *entities.Membership) error {
	query := `
		UPDATE collective_memberships
		SET is_active = ?, inactive_reason = ?, inactive_date = ?
		WHERE id = ?
	`
	result, err := r.conn(ctx).ExecContext(ctx, query,
		m.IsActive,
		emptyToNull(m.InactiveReason),
		nullTime(m.InactiveDate),
		m.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("updating membership: %w", entities.ErrDuplicateActiveMembership)
	}
	if err != nil {
		return fmt.Errorf("updating membership: %w", classify(err))
	}
	return requireRow(result, "membership", m.ID)
}

// DeleteMembership hard-deletes a membership.
func (r *Repository) DeleteMembership(ctx context.Context, id string) (bool, error) {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM collective_memberships WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting membership: %w", classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}
	return n > 0, nil
}

// FindMembershipsByContact lists every membership of a contact.
func (r *Repository) FindMembershipsByContact(ctx context.Context, contactID string) ([]entities.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM collective_memberships WHERE contact_id = ? ORDER BY id`
	return r.queryMemberships(ctx, query, contactID)
}

// FindMembershipsByCollective lists every membership of a collective.
func (r *Repository) FindMembershipsByCollective(ctx context.Context, collectiveID string) ([]entities.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM collective_memberships WHERE collective_id = ? ORDER BY id`
	return r.queryMemberships(ctx, query, collectiveID)
}

func (r *Repository) queryMemberships(ctx context.Context, query string, args ...any) ([]entities.Membership, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", classify(err))
	}
	defer rows.Close()

	memberships := make([]entities.Membership, 0, 16)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		memberships = append(memberships, *m)
	}
	return memberships, rows.Err()
}

func scanMembership(s scanner) (*entities.Membership, error) {
	var m entities.Membership
	var reason, notes sql.NullString
	var inactiveDate, joinedDate sql.NullTime
	if err := s.Scan(
		&m.ID,
		&m.CollectiveID,
		&m.ContactID,
		&m.RoleID,
		&m.IsActive,
		&reason,
		&inactiveDate,
		&joinedDate,
		&notes,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.InactiveReason = reason.String
	m.Notes = notes.String
	m.InactiveDate = timePtr(inactiveDate)
	m.JoinedDate = timePtr(joinedDate)
	return &m, nil
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
