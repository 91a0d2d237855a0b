package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
)

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, doctor_id, action, entity_type, entity_id,
			metadata, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.DoctorID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Metadata,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, entityID uuid.UUID) ([]*model.AuditLog, error) {
	query := `
		SELECT id, doctor_id, action, entity_type, entity_id,
			   metadata, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE entity_id = $1
		ORDER BY created_at ASC
	`
	var logs []*model.AuditLog
	err := r.db.SelectContext(ctx, &logs, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
