package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

func (r *requestRepository) Create(ctx context.Context, req *model.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (
			id, request_kind, service_id, category,
			requester_lat, requester_lng, doctor_selection, preferred_doctor_id,
			status, created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.RequestKind,
		req.ServiceID,
		req.Category,
		req.RequesterLat,
		req.RequesterLng,
		req.DoctorSelection,
		req.PreferredDoctorID,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
		req.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	return nil
}

func (r *requestRepository) Get(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	query := `
		SELECT id, request_kind, service_id, category,
			   requester_lat, requester_lng, doctor_selection, preferred_doctor_id,
			   status, assigned_doctor_id, video_room_ref,
			   created_at, updated_at, notified_at, accepted_at, expires_at
		FROM service_requests
		WHERE id = $1
	`
	var req model.ServiceRequest
	err := r.db.GetContext(ctx, &req, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("service request", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service request: %w", err)
	}
	return &req, nil
}

func (r *requestRepository) MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt time.Time) (bool, error) {
	query := `
		UPDATE service_requests
		SET status = $1, notified_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		model.RequestStatusNotified, notifiedAt, id, model.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark request notified: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// AcceptIfNotified is the race-resolution write: a single conditional
// UPDATE that only one caller can win. The WHERE clause is the lock.
func (r *requestRepository) AcceptIfNotified(ctx context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error) {
	query := `
		UPDATE service_requests
		SET status = $1, assigned_doctor_id = $2, accepted_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5 AND assigned_doctor_id IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		model.RequestStatusAccepted, doctorID, acceptedAt, id, model.RequestStatusNotified)
	if err != nil {
		return false, fmt.Errorf("failed to accept request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *requestRepository) ExpireIfNotified(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE service_requests
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND assigned_doctor_id IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		model.RequestStatusExpired, time.Now(), id, model.RequestStatusNotified)
	if err != nil {
		return false, fmt.Errorf("failed to expire request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *requestRepository) CancelIfOpen(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE service_requests
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)
	`
	result, err := r.db.ExecContext(ctx, query,
		model.RequestStatusCancelled, time.Now(), id,
		model.RequestStatusPending, model.RequestStatusNotified)
	if err != nil {
		return false, fmt.Errorf("failed to cancel request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *requestRepository) MarkInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, model.RequestStatusAccepted, model.RequestStatusInProgress)
}

func (r *requestRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, model.RequestStatusInProgress, model.RequestStatusCompleted)
}

func (r *requestRepository) transition(ctx context.Context, id uuid.UUID, from, to model.RequestStatus) (bool, error) {
	query := `
		UPDATE service_requests
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition request to %s: %w", to, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *requestRepository) SetVideoRoomRef(ctx context.Context, id uuid.UUID, roomRef string) error {
	query := `
		UPDATE service_requests
		SET video_room_ref = $1, updated_at = $2
		WHERE id = $3 AND video_room_ref IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, roomRef, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set video room ref: %w", err)
	}
	return nil
}

func (r *requestRepository) ListExpiredNotified(ctx context.Context, now time.Time, limit int) ([]*model.ServiceRequest, error) {
	query := `
		SELECT id, request_kind, service_id, category,
			   requester_lat, requester_lng, doctor_selection, preferred_doctor_id,
			   status, assigned_doctor_id, video_room_ref,
			   created_at, updated_at, notified_at, accepted_at, expires_at
		FROM service_requests
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3
	`
	var requests []*model.ServiceRequest
	err := r.db.SelectContext(ctx, &requests, query, model.RequestStatusNotified, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired requests: %w", err)
	}
	return requests, nil
}
