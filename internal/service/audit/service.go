package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, doctorID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	var metadata json.RawMessage
	var err error

	ipAddress := ""
	userAgent := ""
	if opts != nil {
		if opts.Metadata != nil {
			metadata, err = json.Marshal(opts.Metadata)
			if err != nil {
				return err
			}
		}
		ipAddress = opts.IPAddress
		userAgent = opts.UserAgent
	}

	log := &model.AuditLog{
		ID:         uuid.New(),
		DoctorID:   doctorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  time.Now(),
	}

	return s.repo.Create(ctx, log)
}

func (s *Service) List(ctx context.Context, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, entityID)
}
