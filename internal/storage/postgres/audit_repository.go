package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openbookings/server/internal/audit"
)

func (r *AuditRepository) Insert(ctx context.Context, entry audit.Entry) error {
	var details []byte
	if len(entry.Details) > 0 {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	_, err := r.queryer().Exec(ctx, `
		INSERT INTO audit_log (action, user_id, resource_type, resource_id, status, details, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
	`, entry.Action, entry.UserID, entry.ResourceType, entry.ResourceID, entry.Status, details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.queryer().Exec(ctx, `
		DELETE FROM audit_log WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}
