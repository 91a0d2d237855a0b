package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

type fakeRequestRepo struct {
	create           func(ctx context.Context, req *model.ServiceRequest) error
	get              func(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error)
	markNotified     func(ctx context.Context, id uuid.UUID, notifiedAt time.Time) (bool, error)
	acceptIfNotified func(ctx context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error)
	expireIfNotified func(ctx context.Context, id uuid.UUID) (bool, error)
	cancelIfOpen     func(ctx context.Context, id uuid.UUID) (bool, error)
	markInProgress   func(ctx context.Context, id uuid.UUID) (bool, error)
	markCompleted    func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *model.ServiceRequest) error {
	return f.create(ctx, req)
}

func (f *fakeRequestRepo) Get(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	return f.get(ctx, id)
}

func (f *fakeRequestRepo) MarkNotified(ctx context.Context, id uuid.UUID, notifiedAt time.Time) (bool, error) {
	return f.markNotified(ctx, id, notifiedAt)
}

func (f *fakeRequestRepo) AcceptIfNotified(ctx context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error) {
	return f.acceptIfNotified(ctx, id, doctorID, acceptedAt)
}

func (f *fakeRequestRepo) ExpireIfNotified(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.expireIfNotified(ctx, id)
}

func (f *fakeRequestRepo) CancelIfOpen(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.cancelIfOpen(ctx, id)
}

func (f *fakeRequestRepo) MarkInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.markInProgress(ctx, id)
}

func (f *fakeRequestRepo) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.markCompleted(ctx, id)
}

func (f *fakeRequestRepo) SetVideoRoomRef(ctx context.Context, id uuid.UUID, roomRef string) error {
	return nil
}

func (f *fakeRequestRepo) ListExpiredNotified(ctx context.Context, now time.Time, limit int) ([]*model.ServiceRequest, error) {
	return nil, nil
}

func TestCanTransition(t *testing.T) {
	valid := []struct{ from, to model.RequestStatus }{
		{model.RequestStatusPending, model.RequestStatusNotified},
		{model.RequestStatusPending, model.RequestStatusCancelled},
		{model.RequestStatusNotified, model.RequestStatusAccepted},
		{model.RequestStatusNotified, model.RequestStatusExpired},
		{model.RequestStatusNotified, model.RequestStatusCancelled},
		{model.RequestStatusAccepted, model.RequestStatusInProgress},
		{model.RequestStatusInProgress, model.RequestStatusCompleted},
	}
	for _, tc := range valid {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	invalid := []struct{ from, to model.RequestStatus }{
		{model.RequestStatusPending, model.RequestStatusAccepted},
		{model.RequestStatusPending, model.RequestStatusExpired},
		{model.RequestStatusAccepted, model.RequestStatusExpired},
		{model.RequestStatusAccepted, model.RequestStatusCancelled},
		{model.RequestStatusExpired, model.RequestStatusAccepted},
		{model.RequestStatusCancelled, model.RequestStatusNotified},
		{model.RequestStatusCompleted, model.RequestStatusInProgress},
	}
	for _, tc := range invalid {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestMarkNotified_AlreadyNotifiedIsNoOp(t *testing.T) {
	id := uuid.New()
	repo := &fakeRequestRepo{
		markNotified: func(_ context.Context, _ uuid.UUID, _ time.Time) (bool, error) {
			return false, nil
		},
		get: func(_ context.Context, _ uuid.UUID) (*model.ServiceRequest, error) {
			return &model.ServiceRequest{ID: id, Status: model.RequestStatusNotified}, nil
		},
	}

	err := NewService(repo).MarkNotified(context.Background(), id, time.Now())
	assert.NoError(t, err)
}

func TestMarkNotified_FromSettledStateFails(t *testing.T) {
	id := uuid.New()
	repo := &fakeRequestRepo{
		markNotified: func(_ context.Context, _ uuid.UUID, _ time.Time) (bool, error) {
			return false, nil
		},
		get: func(_ context.Context, _ uuid.UUID) (*model.ServiceRequest, error) {
			return &model.ServiceRequest{ID: id, Status: model.RequestStatusCancelled}, nil
		},
	}

	err := NewService(repo).MarkNotified(context.Background(), id, time.Now())
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrInvalidTransition, appErr.Code)
}

func TestExpire_LosingToAcceptanceIsNotAnError(t *testing.T) {
	id := uuid.New()
	repo := &fakeRequestRepo{
		expireIfNotified: func(_ context.Context, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		get: func(_ context.Context, _ uuid.UUID) (*model.ServiceRequest, error) {
			return &model.ServiceRequest{ID: id, Status: model.RequestStatusAccepted}, nil
		},
	}

	expired, err := NewService(repo).Expire(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestExpire_FromPendingFails(t *testing.T) {
	id := uuid.New()
	repo := &fakeRequestRepo{
		expireIfNotified: func(_ context.Context, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		get: func(_ context.Context, _ uuid.UUID) (*model.ServiceRequest, error) {
			return &model.ServiceRequest{ID: id, Status: model.RequestStatusPending}, nil
		},
	}

	_, err := NewService(repo).Expire(context.Background(), id)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrInvalidTransition, appErr.Code)
}

func TestExpire_Succeeds(t *testing.T) {
	repo := &fakeRequestRepo{
		expireIfNotified: func(_ context.Context, _ uuid.UUID) (bool, error) {
			return true, nil
		},
	}

	expired, err := NewService(repo).Expire(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestCancel_AlreadyCancelledIsNoOp(t *testing.T) {
	id := uuid.New()
	repo := &fakeRequestRepo{
		cancelIfOpen: func(_ context.Context, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		get: func(_ context.Context, _ uuid.UUID) (*model.ServiceRequest, error) {
			return &model.ServiceRequest{ID: id, Status: model.RequestStatusCancelled}, nil
		},
	}

	assert.NoError(t, NewService(repo).Cancel(context.Background(), id))
}

func TestCancel_AcceptedRequestCannotBeCancelled(t *testing.T) {
	id := uuid.New()
	repo := &fakeRequestRepo{
		cancelIfOpen: func(_ context.Context, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		get: func(_ context.Context, _ uuid.UUID) (*model.ServiceRequest, error) {
			return &model.ServiceRequest{ID: id, Status: model.RequestStatusAccepted}, nil
		},
	}

	err := NewService(repo).Cancel(context.Background(), id)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrInvalidTransition, appErr.Code)
}
