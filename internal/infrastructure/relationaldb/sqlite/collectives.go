package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

// SaveCollective inserts a collective or updates its name.
func (r *Repository) SaveCollective(ctx context.Context, c *entities.Collective) error {
	query := `
		INSERT INTO collectives (id, user_id, collective_type_id, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
	`
	_, err := r.conn(ctx).ExecContext(ctx, query,
		c.ID,
		c.UserID,
		c.CollectiveTypeID,
		c.Name,
		c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving collective: %w", classify(err))
	}
	return nil
}

// FindCollective finds a collective by id, including soft-deleted ones.
func (r *Repository) FindCollective(ctx context.Context, id string) (*entities.Collective, error) {
	query := `
		SELECT id, user_id, collective_type_id, name, created_at, deleted_at
		FROM collectives
		WHERE id = ?
	`
	c, err := scanCollective(r.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding collective: %w", classify(err))
	}
	return c, nil
}

// ListCollectivesByUser lists a user's live collectives ordered by name.
func (r *Repository) ListCollectivesByUser(ctx context.Context, userID string) ([]entities.Collective, error) {
	query := `
		SELECT id, user_id, collective_type_id, name, created_at, deleted_at
		FROM collectives
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY name, id
	`
	rows, err := r.conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying collectives: %w", classify(err))
	}
	defer rows.Close()

	collectives := make([]entities.Collective, 0, 8)
	for rows.Next() {
		c, err := scanCollective(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning collective: %w", err)
		}
		collectives = append(collectives, *c)
	}
	return collectives, rows.Err()
}

// SoftDeleteCollective stamps the deletion time.
func (r *Repository) SoftDeleteCollective(ctx context.Context, id string, at time.Time) error {
	result, err := r.conn(ctx).ExecContext(ctx,
		`UPDATE collectives SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("deleting collective: %w", classify(err))
	}
	return requireRow(result, "collective", id)
}

func scanCollective(s scanner) (*entities.Collective, error) {
	var c entities.Collective
	var deletedAt sql.NullTime
	if err := s.Scan(&c.ID, &c.UserID, &c.CollectiveTypeID, &c.Name, &c.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}
