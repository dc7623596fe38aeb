package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/kin-core/internal/domain/entities"
)

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, subjectID string, details map[string]any) error {
	var detailsJSON []byte
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = data
	}

	query := `INSERT INTO audit_log (action, subject_id, details) VALUES ($1, $2, $3)`
	if _, err := r.conn(ctx).Exec(ctx, query, action, nilIfEmpty(subjectID), detailsJSON); err != nil {
		return fmt.Errorf("logging action: %w", classify(err))
	}
	return nil
}

// FindAuditLog finds audit log entries for a subject, newest first.
func (r *Repository) FindAuditLog(ctx context.Context, subjectID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, subject_id, details, created_at
		FROM audit_log
		WHERE subject_id = $1
		ORDER BY id DESC
	`
	rows, err := r.conn(ctx).Query(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", classify(err))
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.AuditEntry, error) {
		var entry entities.AuditEntry
		var subject *string
		var details []byte
		if err := row.Scan(&entry.ID, &entry.Action, &subject, &details, &entry.CreatedAt); err != nil {
			return entry, err
		}
		if subject != nil {
			entry.SubjectID = *subject
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return entry, fmt.Errorf("unmarshaling details: %w", err)
			}
		}
		return entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning audit log: %w", classify(err))
	}
	return entries, nil
}
