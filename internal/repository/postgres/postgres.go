package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dispatch-api/internal/repository"
)

type requestRepository struct {
	db *sqlx.DB
}

type doctorRepository struct {
	db *sqlx.DB
}

type notificationAttemptRepository struct {
	db *sqlx.DB
}

type acceptanceEventRepository struct {
	db *sqlx.DB
}

type auditRepository struct {
	db *sqlx.DB
}

func NewRequestRepository(db *sqlx.DB) repository.RequestRepository {
	return &requestRepository{db: db}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func NewNotificationAttemptRepository(db *sqlx.DB) repository.NotificationAttemptRepository {
	return &notificationAttemptRepository{db: db}
}

func NewAcceptanceEventRepository(db *sqlx.DB) repository.AcceptanceEventRepository {
	return &acceptanceEventRepository{db: db}
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}
