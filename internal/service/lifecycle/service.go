package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/repository"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

// transitions is the full status graph. The accepted transition is only
// fireable through the acceptance arbiter's conditional write; it is
// listed here so validity checks share one table.
var transitions = map[model.RequestStatus][]model.RequestStatus{
	model.RequestStatusPending:    {model.RequestStatusNotified, model.RequestStatusCancelled},
	model.RequestStatusNotified:   {model.RequestStatusAccepted, model.RequestStatusExpired, model.RequestStatusCancelled},
	model.RequestStatusAccepted:   {model.RequestStatusInProgress},
	model.RequestStatusInProgress: {model.RequestStatusCompleted},
}

// CanTransition reports whether from -> to is a valid lifecycle move.
func CanTransition(from, to model.RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Service struct {
	repo repository.RequestRepository
}

func NewService(repo repository.RequestRepository) *Service {
	return &Service{repo: repo}
}

// MarkNotified moves pending -> notified. Re-invocation for a request
// already notified is a no-op, not an error.
func (s *Service) MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt time.Time) error {
	moved, err := s.repo.MarkNotified(ctx, id, notifiedAt)
	if err != nil {
		return fmt.Errorf("failed to mark request notified: %w", err)
	}
	if moved {
		return nil
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Status == model.RequestStatusNotified {
		return nil
	}
	return errors.NewInvalidTransition(string(req.Status), string(model.RequestStatusNotified))
}

// Expire moves notified -> expired. Losing the race to a concurrent
// acceptance is not an error; the accept simply won.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	expired, err := s.repo.ExpireIfNotified(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to expire request: %w", err)
	}
	if expired {
		return true, nil
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	switch req.Status {
	case model.RequestStatusExpired, model.RequestStatusAccepted,
		model.RequestStatusInProgress, model.RequestStatusCompleted,
		model.RequestStatusCancelled:
		return false, nil
	}
	return false, errors.NewInvalidTransition(string(req.Status), string(model.RequestStatusExpired))
}

// Cancel moves pending/notified -> cancelled. Cancelling an already
// cancelled request is a no-op.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	cancelled, err := s.repo.CancelIfOpen(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to cancel request: %w", err)
	}
	if cancelled {
		return nil
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Status == model.RequestStatusCancelled {
		return nil
	}
	return errors.NewInvalidTransition(string(req.Status), string(model.RequestStatusCancelled))
}

// MarkInProgress advances accepted -> in_progress.
func (s *Service) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	return s.advance(ctx, id, s.repo.MarkInProgress, model.RequestStatusInProgress)
}

// MarkCompleted advances in_progress -> completed.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return s.advance(ctx, id, s.repo.MarkCompleted, model.RequestStatusCompleted)
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, fn func(context.Context, uuid.UUID) (bool, error), to model.RequestStatus) error {
	moved, err := fn(ctx, id)
	if err != nil {
		return err
	}
	if moved {
		return nil
	}

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	return errors.NewInvalidTransition(string(req.Status), string(to))
}
