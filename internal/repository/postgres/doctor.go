package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, name, email, phone, lat, lng,
			   service_radius_miles, is_available, is_verified,
			   created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	if err := r.loadServices(ctx, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) ListByService(ctx context.Context, serviceID uuid.UUID) ([]*model.Doctor, error) {
	query := `
		SELECT d.id, d.name, d.email, d.phone, d.lat, d.lng,
			   d.service_radius_miles, d.is_available, d.is_verified,
			   d.created_at, d.updated_at
		FROM doctors d
		JOIN doctor_services ds ON ds.doctor_id = d.id
		WHERE ds.service_id = $1
	`
	var doctors []*model.Doctor
	err := r.db.SelectContext(ctx, &doctors, query, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors by service: %w", err)
	}

	for _, d := range doctors {
		if err := r.loadServices(ctx, d); err != nil {
			return nil, err
		}
	}
	return doctors, nil
}

func (r *doctorRepository) loadServices(ctx context.Context, doctor *model.Doctor) error {
	query := `
		SELECT service_id
		FROM doctor_services
		WHERE doctor_id = $1
	`
	err := r.db.SelectContext(ctx, &doctor.OfferedServiceIDs, query, doctor.ID)
	if err != nil {
		return fmt.Errorf("failed to load doctor services: %w", err)
	}
	return nil
}
