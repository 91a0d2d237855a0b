package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/dispatch-api/internal/repository"
	"github.com/jwalitptl/dispatch-api/internal/service/lifecycle"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
	"github.com/jwalitptl/dispatch-api/pkg/metrics"
)

type ExpirySweeperConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// ExpirySweeper periodically moves notified requests past their
// expires_at to expired. The sweep is advisory; the accept path
// enforces expiry on its own, so losing a race to a concurrent
// acceptance here is normal.
type ExpirySweeper struct {
	requests  repository.RequestRepository
	lifecycle *lifecycle.Service
	config    ExpirySweeperConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewExpirySweeper(
	requests repository.RequestRepository,
	lifecycle *lifecycle.Service,
	config ExpirySweeperConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ExpirySweeper {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}

	return &ExpirySweeper{
		requests:  requests,
		lifecycle: lifecycle,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info("starting expiry sweeper")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down expiry sweeper")
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error(err, "expiry sweep failed")
			}
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) error {
	timer := prometheus.NewTimer(s.metrics.SweepLatency)
	defer timer.ObserveDuration()
	s.metrics.SweepRuns.Inc()

	requests, err := s.requests.ListExpiredNotified(ctx, time.Now(), s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list expired requests: %w", err)
	}

	for _, req := range requests {
		expired, err := s.lifecycle.Expire(ctx, req.ID)
		if err != nil {
			s.logger.Error(err, "failed to expire request", "request_id", req.ID.String())
			continue
		}
		if expired {
			s.metrics.RequestsExpired.Inc()
			s.logger.Info("request expired", "request_id", req.ID.String())
		}
	}

	return nil
}
