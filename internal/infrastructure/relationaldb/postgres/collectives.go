package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

const collectiveColumns = `id, user_id, collective_type_id, name, created_at, deleted_at`

// SaveCollective inserts a collective or updates its name.
func (r *Repository) SaveCollective(ctx context.Context, c *entities.Collective) error {
	query := `
		INSERT INTO collectives (id, user_id, collective_type_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := r.conn(ctx).Exec(ctx, query, c.ID, c.UserID, c.CollectiveTypeID, c.Name, c.CreatedAt); err != nil {
		return fmt.Errorf("saving collective: %w", classify(err))
	}
	return nil
}

// FindCollective finds a collective by id, including soft-deleted ones.
//
// Inside a transaction the row is locked until commit. Every derivation pass
// reads its collective first, so passes over the same collective run one
// after another and each sees the members the previous one committed.
func (r *Repository) FindCollective(ctx context.Context, id string) (*entities.Collective, error) {
	query := `SELECT ` + collectiveColumns + ` FROM collectives WHERE id = $1`
	if _, ok := txFrom(ctx); ok {
		query += ` FOR NO KEY UPDATE`
	}

	c, err := scanCollective(r.conn(ctx).QueryRow(ctx, query, id))
	if IsNoRows(err) {
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
		SELECT ` + collectiveColumns + `
		FROM collectives
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY name, id
	`
	rows, err := r.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying collectives: %w", classify(err))
	}

	collectives, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Collective, error) {
		c, err := scanCollective(row)
		if err != nil {
			return entities.Collective{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning collectives: %w", classify(err))
	}
	return collectives, nil
}

// SoftDeleteCollective stamps the deletion time.
func (r *Repository) SoftDeleteCollective(ctx context.Context, id string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE collectives SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("deleting collective: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("collective %s: %w", id, entities.ErrNotFound)
	}
	return nil
}

func scanCollective(row pgx.Row) (*entities.Collective, error) {
	var c entities.Collective
	if err := row.Scan(&c.ID, &c.UserID, &c.CollectiveTypeID, &c.Name, &c.CreatedAt, &c.DeletedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
