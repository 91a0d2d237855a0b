package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/service/lifecycle"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
	"github.com/jwalitptl/dispatch-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("dispatch", "sweepertest")

type memRequestRepo struct {
	mu   sync.Mutex
	reqs map[uuid.UUID]*model.ServiceRequest
}

func newMemRequestRepo(reqs ...*model.ServiceRequest) *memRequestRepo {
	r := &memRequestRepo{reqs: make(map[uuid.UUID]*model.ServiceRequest)}
	for _, req := range reqs {
		clone := *req
		r.reqs[req.ID] = &clone
	}
	return r
}

func (r *memRequestRepo) Create(_ context.Context, req *model.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *req
	r.reqs[req.ID] = &clone
	return nil
}

func (r *memRequestRepo) Get(_ context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[id]
	if !ok {
		return nil, errors.NewNotFound("service request", nil)
	}
	clone := *req
	return &clone, nil
}

func (r *memRequestRepo) MarkNotified(_ context.Context, id uuid.UUID, notifiedAt time.Time) (bool, error) {
	return false, nil
}

func (r *memRequestRepo) AcceptIfNotified(_ context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error) {
	return false, nil
}

func (r *memRequestRepo) ExpireIfNotified(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[id]
	if !ok || req.Status != model.RequestStatusNotified {
		return false, nil
	}
	req.Status = model.RequestStatusExpired
	return true, nil
}

func (r *memRequestRepo) CancelIfOpen(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memRequestRepo) MarkInProgress(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memRequestRepo) MarkCompleted(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memRequestRepo) SetVideoRoomRef(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

func (r *memRequestRepo) ListExpiredNotified(_ context.Context, now time.Time, limit int) ([]*model.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ServiceRequest
	for _, req := range r.reqs {
		if req.Status == model.RequestStatusNotified && !req.ExpiresAt.After(now) {
			clone := *req
			out = append(out, &clone)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func requestWithStatus(status model.RequestStatus, expiresAt time.Time) *model.ServiceRequest {
	return &model.ServiceRequest{
		ID:        uuid.New(),
		Status:    status,
		ExpiresAt: expiresAt,
	}
}

func TestSweep_ExpiresOnlyOverdueNotifiedRequests(t *testing.T) {
	overdue := requestWithStatus(model.RequestStatusNotified, time.Now().Add(-time.Minute))
	stillLive := requestWithStatus(model.RequestStatusNotified, time.Now().Add(time.Hour))
	accepted := requestWithStatus(model.RequestStatusAccepted, time.Now().Add(-time.Minute))

	repo := newMemRequestRepo(overdue, stillLive, accepted)
	sweeper := NewExpirySweeper(repo, lifecycle.NewService(repo), ExpirySweeperConfig{}, logger.NewLogger(nil), testMetrics)

	require.NoError(t, sweeper.sweep(context.Background()))

	got, err := repo.Get(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusExpired, got.Status)

	got, err = repo.Get(context.Background(), stillLive.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusNotified, got.Status)

	got, err = repo.Get(context.Background(), accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, got.Status)
}

func TestSweep_RespectsBatchSize(t *testing.T) {
	var reqs []*model.ServiceRequest
	for i := 0; i < 5; i++ {
		reqs = append(reqs, requestWithStatus(model.RequestStatusNotified, time.Now().Add(-time.Minute)))
	}

	repo := newMemRequestRepo(reqs...)
	sweeper := NewExpirySweeper(repo, lifecycle.NewService(repo), ExpirySweeperConfig{BatchSize: 2}, logger.NewLogger(nil), testMetrics)

	require.NoError(t, sweeper.sweep(context.Background()))

	expired := 0
	for _, req := range reqs {
		got, err := repo.Get(context.Background(), req.ID)
		require.NoError(t, err)
		if got.Status == model.RequestStatusExpired {
			expired++
		}
	}
	assert.Equal(t, 2, expired)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	repo := newMemRequestRepo()
	sweeper := NewExpirySweeper(repo, lifecycle.NewService(repo), ExpirySweeperConfig{PollInterval: 10 * time.Millisecond}, logger.NewLogger(nil), testMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
