package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
)

// All repository interfaces in one file
type (
	// RequestRepository owns ServiceRequest persistence. The conditional
	// updates are the authoritative lock for the accept/expire races; they
	// must be single storage-level writes, never read-then-write.
	RequestRepository interface {
		Create(ctx context.Context, req *model.ServiceRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)

		// MarkNotified moves pending -> notified. Returns true when this
		// call performed the transition, false when the request was already
		// notified (idempotent re-invocation).
		MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt time.Time) (bool, error)

		// AcceptIfNotified atomically sets status=accepted and
		// assigned_doctor_id=doctorID, only if status is still notified and
		// no doctor is assigned. Returns true when this caller won the slot.
		AcceptIfNotified(ctx context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error)

		// ExpireIfNotified atomically moves notified -> expired. Returns
		// true when this call performed the transition.
		ExpireIfNotified(ctx context.Context, id uuid.UUID) (bool, error)

		// CancelIfOpen atomically moves pending/notified -> cancelled.
		CancelIfOpen(ctx context.Context, id uuid.UUID) (bool, error)

		// MarkInProgress and MarkCompleted advance an accepted request.
		MarkInProgress(ctx context.Context, id uuid.UUID) (bool, error)
		MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)

		SetVideoRoomRef(ctx context.Context, id uuid.UUID, roomRef string) error

		// ListExpiredNotified returns notified requests whose expires_at has
		// passed, for the expiry sweep.
		ListExpiredNotified(ctx context.Context, now time.Time, limit int) ([]*model.ServiceRequest, error)
	}

	// DoctorRepository is read-only here; doctor profiles are owned by the
	// profile-management service.
	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		ListByService(ctx context.Context, serviceID uuid.UUID) ([]*model.Doctor, error)
	}

	// NotificationAttemptRepository is append-only.
	NotificationAttemptRepository interface {
		Create(ctx context.Context, attempt *model.NotificationAttempt) error
		ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*model.NotificationAttempt, error)

		// ListNotifiedDoctors returns the distinct doctors that received at
		// least one successful dispatch for the request.
		ListNotifiedDoctors(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)
	}

	// AcceptanceEventRepository is append-only.
	AcceptanceEventRepository interface {
		Create(ctx context.Context, event *model.AcceptanceEvent) error
		ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*model.AcceptanceEvent, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, entityID uuid.UUID) ([]*model.AuditLog, error)
	}
)
