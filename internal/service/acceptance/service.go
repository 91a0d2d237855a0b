package acceptance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/repository"
	"github.com/jwalitptl/dispatch-api/internal/service/audit"
	"github.com/jwalitptl/dispatch-api/internal/videoroom"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
	"github.com/jwalitptl/dispatch-api/pkg/messaging"
	"github.com/jwalitptl/dispatch-api/pkg/metrics"
)

// EligibilityChecker re-validates a doctor against a request at accept
// time. Satisfied by the matching service.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, req *model.ServiceRequest, doctorID uuid.UUID) (bool, error)
}

// AcceptResult is the outcome of a winning or benign-duplicate accept.
type AcceptResult struct {
	Result     model.AcceptanceResult `json:"result"`
	RequestID  uuid.UUID              `json:"request_id"`
	DoctorID   uuid.UUID              `json:"doctor_id"`
	AcceptedAt time.Time              `json:"accepted_at"`
}

// CallerMeta carries per-attempt audit context from the inbound surface.
type CallerMeta struct {
	IPAddress string
	UserAgent string
}

// Service is the single arbiter every inbound accept surface funnels
// through. The authoritative lock is the storage-level conditional
// update, not anything in this process: correctness holds across
// concurrently running server instances.
type Service struct {
	requests repository.RequestRepository
	events   repository.AcceptanceEventRepository
	attempts repository.NotificationAttemptRepository
	matcher  EligibilityChecker
	rooms    videoroom.Client
	broker   messaging.Broker
	auditor  *audit.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics

	now func() time.Time
	wg  sync.WaitGroup
}

func NewService(
	requests repository.RequestRepository,
	events repository.AcceptanceEventRepository,
	attempts repository.NotificationAttemptRepository,
	matcher EligibilityChecker,
	rooms videoroom.Client,
	broker messaging.Broker,
	auditor *audit.Service,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		requests: requests,
		events:   events,
		attempts: attempts,
		matcher:  matcher,
		rooms:    rooms,
		broker:   broker,
		auditor:  auditor,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// AttemptAccept resolves one accept attempt. Exactly one caller per
// request ever observes a won result, regardless of how many attempts
// race across channels, doctors, and processes. Every attempt appends
// exactly one AcceptanceEvent.
func (s *Service) AttemptAccept(ctx context.Context, requestID, doctorID uuid.UUID, channel string, meta *CallerMeta) (*AcceptResult, error) {
	s.metrics.AcceptAttempts.Inc()
	timer := prometheus.NewTimer(s.metrics.AcceptLatency)
	defer timer.ObserveDuration()

	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if outcome := s.resolveSettled(ctx, req, doctorID, channel); outcome != nil {
		return outcome.result, outcome.err
	}

	// Eligibility is checked before the race-resolution step so a stale
	// candidate never consumes the winning slot.
	eligible, err := s.matcher.IsEligible(ctx, req, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-validate eligibility: %w", err)
	}
	if !eligible {
		s.recordEvent(ctx, requestID, doctorID, channel, model.AcceptanceResultLostIneligible)
		s.countOutcome(model.AcceptanceResultLostIneligible, channel)
		return nil, errors.Ineligible
	}

	// Hard expiry enforcement: an accept landing at or after expiresAt
	// loses even if the sweep has not run yet.
	now := s.now()
	if !now.Before(req.ExpiresAt) {
		if _, err := s.requests.ExpireIfNotified(ctx, requestID); err != nil {
			s.logger.Error(err, "failed to expire request on late accept", "request_id", requestID.String())
		}
		s.recordEvent(ctx, requestID, doctorID, channel, model.AcceptanceResultLostExpired)
		s.countOutcome(model.AcceptanceResultLostExpired, channel)
		return nil, errors.Expired
	}

	won, err := s.requests.AcceptIfNotified(ctx, requestID, doctorID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to perform accept transition: %w", err)
	}

	if !won {
		// Lost the conditional write; re-read to classify the loss.
		req, err = s.requests.Get(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if outcome := s.resolveSettled(ctx, req, doctorID, channel); outcome != nil {
			return outcome.result, outcome.err
		}
		// Still notified with no winner visible: another writer is mid
		// transition. Report the loss; the winner is already decided.
		s.recordEvent(ctx, requestID, doctorID, channel, model.AcceptanceResultLostAssigned)
		s.countOutcome(model.AcceptanceResultLostAssigned, channel)
		return nil, errors.AlreadyAssigned
	}

	s.recordEvent(ctx, requestID, doctorID, channel, model.AcceptanceResultWon)
	s.countOutcome(model.AcceptanceResultWon, channel)
	s.auditAccept(ctx, req, doctorID, channel, meta)

	// Post-acceptance side effects run off the caller's critical path.
	req.AssignedDoctorID = &doctorID
	s.wg.Add(1)
	go func(req model.ServiceRequest) {
		defer s.wg.Done()
		s.runPostActions(context.WithoutCancel(ctx), &req, doctorID)
	}(*req)

	return &AcceptResult{
		Result:     model.AcceptanceResultWon,
		RequestID:  requestID,
		DoctorID:   doctorID,
		AcceptedAt: now,
	}, nil
}

// Wait blocks until in-flight post-acceptance actions finish. Used on
// shutdown and in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

type settledOutcome struct {
	result *AcceptResult
	err    error
}

// resolveSettled classifies attempts against a request that already
// reached a settled state. Returns nil when the race is still open.
func (s *Service) resolveSettled(ctx context.Context, req *model.ServiceRequest, doctorID uuid.UUID, channel string) *settledOutcome {
	switch req.Status {
	case model.RequestStatusCancelled:
		s.recordEvent(ctx, req.ID, doctorID, channel, model.AcceptanceResultLostCancelled)
		s.countOutcome(model.AcceptanceResultLostCancelled, channel)
		return &settledOutcome{err: errors.Cancelled}
	case model.RequestStatusExpired:
		s.recordEvent(ctx, req.ID, doctorID, channel, model.AcceptanceResultLostExpired)
		s.countOutcome(model.AcceptanceResultLostExpired, channel)
		return &settledOutcome{err: errors.Expired}
	case model.RequestStatusPending:
		return &settledOutcome{err: errors.NewInvalidTransition(string(req.Status), string(model.RequestStatusAccepted))}
	}

	if req.AssignedDoctorID == nil {
		return nil
	}

	if *req.AssignedDoctorID == doctorID {
		// A winner re-confirming through a second channel: benign
		// duplicate, not an error.
		s.recordEvent(ctx, req.ID, doctorID, channel, model.AcceptanceResultAlreadyYours)
		s.countOutcome(model.AcceptanceResultAlreadyYours, channel)
		acceptedAt := s.now()
		if req.AcceptedAt != nil {
			acceptedAt = *req.AcceptedAt
		}
		return &settledOutcome{result: &AcceptResult{
			Result:     model.AcceptanceResultAlreadyYours,
			RequestID:  req.ID,
			DoctorID:   doctorID,
			AcceptedAt: acceptedAt,
		}}
	}

	s.recordEvent(ctx, req.ID, doctorID, channel, model.AcceptanceResultLostAssigned)
	s.countOutcome(model.AcceptanceResultLostAssigned, channel)
	return &settledOutcome{err: errors.AlreadyAssigned}
}

func (s *Service) recordEvent(ctx context.Context, requestID, doctorID uuid.UUID, channel string, result model.AcceptanceResult) {
	event := &model.AcceptanceEvent{
		ID:        uuid.New(),
		RequestID: requestID,
		DoctorID:  doctorID,
		Channel:   channel,
		Result:    result,
		CreatedAt: s.now(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to record acceptance event",
			"request_id", requestID.String(),
			"doctor_id", doctorID.String(),
			"result", string(result))
	}
}

func (s *Service) countOutcome(result model.AcceptanceResult, channel string) {
	s.metrics.AcceptOutcomes.WithLabelValues(string(result), channel).Inc()
}

// auditAccept records which surface produced the winning acceptance;
// channels have different spoofing risk profiles and must be
// independently auditable.
func (s *Service) auditAccept(ctx context.Context, req *model.ServiceRequest, doctorID uuid.UUID, channel string, meta *CallerMeta) {
	opts := &audit.LogOptions{
		Metadata: map[string]interface{}{
			"channel":  channel,
			"category": req.Category,
		},
	}
	if meta != nil {
		opts.IPAddress = meta.IPAddress
		opts.UserAgent = meta.UserAgent
	}
	if err := s.auditor.Log(ctx, doctorID, model.AuditActionAccepted, model.AuditEntityRequest, req.ID, opts); err != nil {
		s.logger.Error(err, "failed to write acceptance audit log", "request_id", req.ID.String())
	}
}

// runPostActions performs the best-effort side effects after a win.
// None of them can undo the acceptance.
func (s *Service) runPostActions(ctx context.Context, req *model.ServiceRequest, winnerID uuid.UUID) {
	if req.Category == model.RequestCategoryOnline {
		s.provisionRoom(ctx, req)
	}
	s.notifyLosers(ctx, req, winnerID)
}

func (s *Service) provisionRoom(ctx context.Context, req *model.ServiceRequest) {
	roomRef, err := s.rooms.ProvisionRoom(ctx, req.ID)
	if err != nil {
		s.metrics.VideoRoomFailed.Inc()
		s.logger.Error(err, "video room provisioning failed; acceptance stands",
			"request_id", req.ID.String())
		return
	}

	if err := s.requests.SetVideoRoomRef(ctx, req.ID, roomRef); err != nil {
		s.logger.Error(err, "failed to persist video room ref", "request_id", req.ID.String())
		return
	}
	s.metrics.VideoRoomProvisioned.Inc()

	if err := s.auditor.Log(ctx, *req.AssignedDoctorID, model.AuditActionRoomAttached, model.AuditEntityRequest, req.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"room_ref": roomRef},
	}); err != nil {
		s.logger.Error(err, "failed to write room audit log", "request_id", req.ID.String())
	}
}

func (s *Service) notifyLosers(ctx context.Context, req *model.ServiceRequest, winnerID uuid.UUID) {
	doctorIDs, err := s.attempts.ListNotifiedDoctors(ctx, req.ID)
	if err != nil {
		s.logger.Error(err, "failed to list notified doctors", "request_id", req.ID.String())
		return
	}

	for _, doctorID := range doctorIDs {
		if doctorID == winnerID {
			continue
		}
		msg := messaging.Message{
			Type: "request_taken",
			Payload: map[string]string{
				"request_id": req.ID.String(),
			},
		}
		if err := s.broker.Publish(ctx, "doctor-feed:"+doctorID.String(), msg); err != nil {
			s.logger.Warn("failed to notify losing doctor",
				"request_id", req.ID.String(),
				"doctor_id", doctorID.String())
		}
	}
}
