package dispatch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/dispatch-api/internal/geo"
	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/repository"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
	"github.com/jwalitptl/dispatch-api/pkg/metrics"
	"github.com/jwalitptl/dispatch-api/pkg/token"
)

// Channel delivers a request offer to one doctor over one transport.
type Channel interface {
	Name() string
	AcceptChannel() string
	Notify(ctx context.Context, doctor *model.Doctor, payload *model.NotificationPayload) error
}

// Service fans a request out to every candidate across every configured
// channel. Each (doctor, channel) pair is dispatched independently; a
// slow or failing channel never delays or fails the others.
type Service struct {
	attempts repository.NotificationAttemptRepository
	tokens   *token.Service
	channels []Channel
	logger   *logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

func NewService(
	attempts repository.NotificationAttemptRepository,
	tokens *token.Service,
	channels []Channel,
	timeout time.Duration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		attempts: attempts,
		tokens:   tokens,
		channels: channels,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// Dispatch notifies every candidate on every channel and records one
// append-only NotificationAttempt per (doctor, channel) tuple.
func (s *Service) Dispatch(ctx context.Context, req *model.ServiceRequest, candidates []*model.Doctor) error {
	timer := prometheus.NewTimer(s.metrics.DispatchLatency)
	defer timer.ObserveDuration()
	s.metrics.CandidatesSelected.Observe(float64(len(candidates)))

	g, groupCtx := errgroup.WithContext(ctx)
	for _, doctor := range candidates {
		for _, channel := range s.channels {
			doctor, channel := doctor, channel
			g.Go(func() error {
				// Failures are isolated per pair; never propagate.
				s.dispatchOne(groupCtx, req, doctor, channel)
				return nil
			})
		}
	}
	return g.Wait()
}

func (s *Service) dispatchOne(ctx context.Context, req *model.ServiceRequest, doctor *model.Doctor, channel Channel) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	attempt := &model.NotificationAttempt{
		RequestID:    req.ID,
		DoctorID:     doctor.ID,
		Channel:      channel.Name(),
		Outcome:      model.AttemptOutcomeSent,
		DispatchedAt: time.Now(),
	}

	payload, err := s.buildPayload(req, doctor, channel)
	if err == nil {
		err = channel.Notify(ctx, doctor, payload)
	}

	if err != nil {
		reason := err.Error()
		attempt.Outcome = model.AttemptOutcomeFailed
		attempt.FailureReason = &reason
		s.metrics.NotificationsFailed.WithLabelValues(channel.Name()).Inc()
		s.logger.Error(err, "notification dispatch failed",
			"request_id", req.ID.String(),
			"doctor_id", doctor.ID.String(),
			"channel", channel.Name())
	} else {
		s.metrics.NotificationsDispatched.WithLabelValues(channel.Name()).Inc()
	}

	if err := s.attempts.Create(context.WithoutCancel(ctx), attempt); err != nil {
		s.logger.Error(err, "failed to record notification attempt",
			"request_id", req.ID.String(),
			"doctor_id", doctor.ID.String(),
			"channel", channel.Name())
	}
}

func (s *Service) buildPayload(req *model.ServiceRequest, doctor *model.Doctor, channel Channel) (*model.NotificationPayload, error) {
	acceptToken, err := s.tokens.GenerateAcceptToken(req.ID, doctor.ID, channel.AcceptChannel())
	if err != nil {
		return nil, err
	}

	payload := &model.NotificationPayload{
		RequestID:   req.ID,
		ServiceID:   req.ServiceID,
		Category:    req.Category,
		AcceptToken: acceptToken,
		ExpiresAt:   req.ExpiresAt,
	}

	if req.Category == model.RequestCategoryInPerson {
		if loc := doctor.Location(); loc != nil {
			distance, err := geo.Distance(*loc, *req.RequesterLocation())
			if err != nil {
				return nil, err
			}
			payload.DistanceDisplay = geo.FormatMiles(distance)
		}
	}
	return payload, nil
}
