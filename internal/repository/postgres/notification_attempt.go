package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
)

func (r *notificationAttemptRepository) Create(ctx context.Context, attempt *model.NotificationAttempt) error {
	query := `
		INSERT INTO notification_attempts (
			id, request_id, doctor_id, channel,
			outcome, failure_reason, dispatched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.DispatchedAt.IsZero() {
		attempt.DispatchedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.RequestID,
		attempt.DoctorID,
		attempt.Channel,
		attempt.Outcome,
		attempt.FailureReason,
		attempt.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification attempt: %w", err)
	}
	return nil
}

func (r *notificationAttemptRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*model.NotificationAttempt, error) {
	query := `
		SELECT id, request_id, doctor_id, channel,
			   outcome, failure_reason, dispatched_at
		FROM notification_attempts
		WHERE request_id = $1
		ORDER BY dispatched_at ASC
	`
	var attempts []*model.NotificationAttempt
	err := r.db.SelectContext(ctx, &attempts, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification attempts: %w", err)
	}
	return attempts, nil
}

func (r *notificationAttemptRepository) ListNotifiedDoctors(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT doctor_id
		FROM notification_attempts
		WHERE request_id = $1 AND outcome = $2
	`
	var doctorIDs []uuid.UUID
	err := r.db.SelectContext(ctx, &doctorIDs, query, requestID, model.AttemptOutcomeSent)
	if err != nil {
		return nil, fmt.Errorf("failed to list notified doctors: %w", err)
	}
	return doctorIDs, nil
}
