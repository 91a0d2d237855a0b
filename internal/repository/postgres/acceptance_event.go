package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
)

func (r *acceptanceEventRepository) Create(ctx context.Context, event *model.AcceptanceEvent) error {
	query := `
		INSERT INTO acceptance_events (
			id, request_id, doctor_id, channel, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.RequestID,
		event.DoctorID,
		event.Channel,
		event.Result,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create acceptance event: %w", err)
	}
	return nil
}

func (r *acceptanceEventRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*model.AcceptanceEvent, error) {
	query := `
		SELECT id, request_id, doctor_id, channel, result, created_at
		FROM acceptance_events
		WHERE request_id = $1
		ORDER BY created_at ASC
	`
	var events []*model.AcceptanceEvent
	err := r.db.SelectContext(ctx, &events, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acceptance events: %w", err)
	}
	return events, nil
}
