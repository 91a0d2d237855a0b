package request

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/geo"
	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/repository"
	"github.com/jwalitptl/dispatch-api/internal/service/audit"
	"github.com/jwalitptl/dispatch-api/internal/service/dispatch"
	"github.com/jwalitptl/dispatch-api/internal/service/lifecycle"
	"github.com/jwalitptl/dispatch-api/internal/service/matching"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
)

// Service owns request intake and the notify fan-out. Field presence is
// validated here, at the boundary, so matching logic never null-checks.
type Service struct {
	requests      repository.RequestRepository
	matcher       *matching.Service
	lifecycle     *lifecycle.Service
	dispatcher    *dispatch.Service
	auditor       *audit.Service
	logger        *logger.Logger
	defaultExpiry time.Duration
}

func NewService(
	requests repository.RequestRepository,
	matcher *matching.Service,
	lifecycle *lifecycle.Service,
	dispatcher *dispatch.Service,
	auditor *audit.Service,
	logger *logger.Logger,
	defaultExpiry time.Duration,
) *Service {
	if defaultExpiry <= 0 {
		defaultExpiry = 30 * time.Minute
	}
	return &Service{
		requests:      requests,
		matcher:       matcher,
		lifecycle:     lifecycle,
		dispatcher:    dispatcher,
		auditor:       auditor,
		logger:        logger,
		defaultExpiry: defaultExpiry,
	}
}

// CreateAndDispatch creates a request, selects candidates, and fans out
// notifications. A request with no eligible doctors stays pending and is
// returned with an empty candidate set, a distinct outcome from "all
// notified doctors declined".
func (s *Service) CreateAndDispatch(ctx context.Context, input *model.CreateRequestRequest) (*model.ServiceRequest, []*model.Doctor, error) {
	req, err := s.buildRequest(input)
	if err != nil {
		return nil, nil, err
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, nil, err
	}

	candidates, err := s.matcher.SelectCandidates(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return req, candidates, nil
	}

	now := time.Now()
	if err := s.lifecycle.MarkNotified(ctx, req.ID, now); err != nil {
		return nil, nil, err
	}
	req.Status = model.RequestStatusNotified
	req.NotifiedAt = &now

	if err := s.dispatcher.Dispatch(ctx, req, candidates); err != nil {
		// Per-channel failures are already isolated; this only fires on
		// context cancellation.
		s.logger.Error(err, "dispatch interrupted", "request_id", req.ID.String())
	}

	if err := s.auditor.Log(ctx, uuid.Nil, model.AuditActionNotified, model.AuditEntityRequest, req.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"candidates": len(candidates)},
	}); err != nil {
		s.logger.Error(err, "failed to write notify audit log", "request_id", req.ID.String())
	}

	return req, candidates, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	return s.requests.Get(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.lifecycle.Cancel(ctx, id); err != nil {
		return err
	}
	if err := s.auditor.Log(ctx, uuid.Nil, model.AuditActionCancelled, model.AuditEntityRequest, id, nil); err != nil {
		s.logger.Error(err, "failed to write cancel audit log", "request_id", id.String())
	}
	return nil
}

func (s *Service) buildRequest(input *model.CreateRequestRequest) (*model.ServiceRequest, error) {
	if input.Category == model.RequestCategoryInPerson {
		if input.RequesterLat == nil || input.RequesterLng == nil {
			return nil, errors.NewBadRequest("in-person request requires requester_lat and requester_lng", nil)
		}
		if err := geo.Validate(geo.Point{Lat: *input.RequesterLat, Lng: *input.RequesterLng}); err != nil {
			return nil, err
		}
	}
	if input.DoctorSelection == model.DoctorSelectionPreferred && input.PreferredDoctorID == nil {
		return nil, errors.NewBadRequest("preferred selection requires preferred_doctor_id", nil)
	}

	expiry := s.defaultExpiry
	if input.ExpiresInMinutes > 0 {
		expiry = time.Duration(input.ExpiresInMinutes) * time.Minute
	}

	return &model.ServiceRequest{
		ID:                uuid.New(),
		RequestKind:       input.RequestKind,
		ServiceID:         input.ServiceID,
		Category:          input.Category,
		RequesterLat:      input.RequesterLat,
		RequesterLng:      input.RequesterLng,
		DoctorSelection:   input.DoctorSelection,
		PreferredDoctorID: input.PreferredDoctorID,
		Status:            model.RequestStatusPending,
		ExpiresAt:         time.Now().Add(expiry),
	}, nil
}
