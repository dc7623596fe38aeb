package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

const membershipColumns = `id, collective_id, contact_id, role_id, is_active, inactive_reason, inactive_date, joined_date, notes, created_at`

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// InsertMembership inserts a membership. The partial unique index on active
// rows reports a second active membership as ErrDuplicateActiveMembership.
func (r *Repository) InsertMembership(ctx context.Context, m *entities.Membership) error {
	query := `INSERT INTO collective_memberships (` + membershipColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.conn(ctx).Exec(ctx, query,
		m.ID,
		m.CollectiveID,
		m.ContactID,
		m.RoleID,
		m.IsActive,
		nilIfEmpty(m.InactiveReason),
		m.InactiveDate,
		m.JoinedDate,
		nilIfEmpty(m.Notes),
		m.CreatedAt,
	)
	if IsUniqueViolation(err) {
		return fmt.Errorf("inserting membership: %w", entities.ErrDuplicateActiveMembership)
	}
	if err != nil {
		return fmt.Errorf("inserting membership: %w", classify(err))
	}
	return nil
}

// FindMembership finds a membership by id.
func (r *Repository) FindMembership(ctx context.Context, id string) (*entities.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM collective_memberships WHERE id = $1`
	m, err := scanMembership(r.conn(ctx).QueryRow(ctx, query, id))
	if IsNoRows(err) {
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
		WHERE collective_id = $1 AND is_active AND contact_id <> $2
		ORDER BY id
	`
	rows, err := r.conn(ctx).Query(ctx, query, collectiveID, excludingContactID)
	if err != nil {
		return nil, fmt.Errorf("querying active members: %w", classify(err))
	}

	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.MemberRef, error) {
		var ref entities.MemberRef
		err := row.Scan(&ref.MembershipID, &ref.ContactID, &ref.RoleID)
		return ref, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning members: %w", classify(err))
	}
	return refs, nil
}

// UpdateMembershipStatus persists the active flag and inactive fields.
func (r *Repository) UpdateMembershipStatus(ctx context.Context, m *entities.Membership) error {
	query := `
		UPDATE collective_memberships
		SET is_active = $1, inactive_reason = $2, inactive_date = $3
		WHERE id = $4
	`
	tag, err := r.conn(ctx).Exec(ctx, query, m.IsActive, nilIfEmpty(m.InactiveReason), m.InactiveDate, m.ID)
	if IsUniqueViolation(err) {
		return fmt.Errorf("updating membership: %w", entities.ErrDuplicateActiveMembership)
	}
	if err != nil {
		return fmt.Errorf("updating membership: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("membership %s: %w", m.ID, entities.ErrNotFound)
	}
	return nil
}

// DeleteMembership hard-deletes a membership.
func (r *Repository) DeleteMembership(ctx context.Context, id string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM collective_memberships WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting membership: %w", classify(err))
	}
	return tag.RowsAffected() > 0, nil
}

// FindMembershipsByContact lists every membership of a contact.
func (r *Repository) FindMembershipsByContact(ctx context.Context, contactID string) ([]entities.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM collective_memberships WHERE contact_id = $1 ORDER BY id`
	return r.queryMemberships(ctx, query, contactID)
}

// FindMembershipsByCollective lists every membership of a collective.
func (r *Repository) FindMembershipsByCollective(ctx context.Context, collectiveID string) ([]entities.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM collective_memberships WHERE collective_id = $1 ORDER BY id`
	return r.queryMemberships(ctx, query, collectiveID)
}

func (r *Repository) queryMemberships(ctx context.Context, query string, args ...any) ([]entities.Membership, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", classify(err))
	}

	memberships, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Membership, error) {
		m, err := scanMembership(row)
		if err != nil {
			return entities.Membership{}, err
		}
		return *m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning memberships: %w", classify(err))
	}
	return memberships, nil
}

func scanMembership(row pgx.Row) (*entities.Membership, error) {
	var m entities.Membership
	var reason, notes *string
	if err := row.Scan(
		&m.ID,
		&m.CollectiveID,
		&m.ContactID,
		&m.RoleID,
		&m.IsActive,
		&reason,
		&m.InactiveDate,
		&m.JoinedDate,
		&notes,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	if reason != nil {
		m.InactiveReason = *reason
	}
	if notes != nil {
		m.Notes = *notes
	}
	return &m, nil
}
