package request

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/service/acceptance"
	"github.com/jwalitptl/dispatch-api/internal/service/audit"
	"github.com/jwalitptl/dispatch-api/internal/service/dispatch"
	"github.com/jwalitptl/dispatch-api/internal/service/lifecycle"
	"github.com/jwalitptl/dispatch-api/internal/service/matching"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
	"github.com/jwalitptl/dispatch-api/pkg/logger"
	"github.com/jwalitptl/dispatch-api/pkg/metrics"
	"github.com/jwalitptl/dispatch-api/pkg/token"
)

var testMetrics = metrics.NewMetrics("dispatch", "requesttest")

type memRequestRepo struct {
	mu   sync.Mutex
	reqs map[uuid.UUID]*model.ServiceRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{reqs: make(map[uuid.UUID]*model.ServiceRequest)}
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
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[id]
	if !ok || req.Status != model.RequestStatusPending {
		return false, nil
	}
	req.Status = model.RequestStatusNotified
	req.NotifiedAt = &notifiedAt
	return true, nil
}

func (r *memRequestRepo) AcceptIfNotified(_ context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[id]
	if !ok || req.Status != model.RequestStatusNotified || req.AssignedDoctorID != nil {
		return false, nil
	}
	req.Status = model.RequestStatusAccepted
	req.AssignedDoctorID = &doctorID
	req.AcceptedAt = &acceptedAt
	return true, nil
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

func (r *memRequestRepo) CancelIfOpen(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[id]
	if !ok || (req.Status != model.RequestStatusPending && req.Status != model.RequestStatusNotified) {
		return false, nil
	}
	req.Status = model.RequestStatusCancelled
	return true, nil
}

func (r *memRequestRepo) MarkInProgress(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memRequestRepo) MarkCompleted(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (r *memRequestRepo) SetVideoRoomRef(_ context.Context, id uuid.UUID, roomRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.reqs[id]; ok && req.VideoRoomRef == nil {
		req.VideoRoomRef = &roomRef
	}
	return nil
}

func (r *memRequestRepo) ListExpiredNotified(_ context.Context, _ time.Time, _ int) ([]*model.ServiceRequest, error) {
	return nil, nil
}

type memDoctorRepo struct {
	doctors []*model.Doctor
}

func (r *memDoctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	for _, d := range r.doctors {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, errors.NewNotFound("doctor", nil)
}

func (r *memDoctorRepo) ListByService(_ context.Context, serviceID uuid.UUID) ([]*model.Doctor, error) {
	var out []*model.Doctor
	for _, d := range r.doctors {
		if d.OffersService(serviceID) {
			out = append(out, d)
		}
	}
	return out, nil
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []*model.NotificationAttempt
}

func (r *memAttemptRepo) Create(_ context.Context, attempt *model.NotificationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *memAttemptRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*model.NotificationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.NotificationAttempt
	for _, a := range r.attempts {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAttemptRepo) ListNotifiedDoctors(_ context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, a := range r.attempts {
		if a.RequestID == requestID && a.Outcome == model.AttemptOutcomeSent && !seen[a.DoctorID] {
			seen[a.DoctorID] = true
			out = append(out, a.DoctorID)
		}
	}
	return out, nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*model.AcceptanceEvent
}

func (r *memEventRepo) Create(_ context.Context, event *model.AcceptanceEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *memEventRepo) ListByRequest(_ context.Context, _ uuid.UUID) ([]*model.AcceptanceEvent, error) {
	return nil, nil
}

type memAuditRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func (r *memAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *memAuditRepo) List(_ context.Context, entityID uuid.UUID) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditLog
	for _, l := range r.logs {
		if l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

type memChannel struct {
	name          string
	acceptChannel string

	mu       sync.Mutex
	notified []uuid.UUID
}

func (c *memChannel) Name() string          { return c.name }
func (c *memChannel) AcceptChannel() string { return c.acceptChannel }

func (c *memChannel) Notify(_ context.Context, doctor *model.Doctor, _ *model.NotificationPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notified = append(c.notified, doctor.ID)
	return nil
}

type nopBroker struct{}

func (nopBroker) Publish(context.Context, string, interface{}) error { return nil }
func (nopBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}
func (nopBroker) Close() error { return nil }

type nopRooms struct{}

func (nopRooms) ProvisionRoom(_ context.Context, requestID uuid.UUID) (string, error) {
	return "https://rooms.example.com/" + requestID.String(), nil
}

func f64(v float64) *float64 { return &v }

const degPerMile = 1.0 / 69.0977

const (
	requesterLat = 51.5074
	requesterLng = -0.1278
)

func doctorAt(serviceID uuid.UUID, milesAway float64, radius int) *model.Doctor {
	return &model.Doctor{
		ID:                 uuid.New(),
		Email:              "doc@example.com",
		Phone:              "+15550001111",
		Lat:                f64(requesterLat + milesAway*degPerMile),
		Lng:                f64(requesterLng),
		ServiceRadiusMiles: radius,
		IsAvailable:        true,
		IsVerified:         true,
		OfferedServiceIDs:  []uuid.UUID{serviceID},
	}
}

type env struct {
	svc      *Service
	acceptor *acceptance.Service
	requests *memRequestRepo
	attempts *memAttemptRepo
	channel  *memChannel
	audits   *memAuditRepo
}

func newEnv(doctors []*model.Doctor) *env {
	requests := newMemRequestRepo()
	attempts := &memAttemptRepo{}
	events := &memEventRepo{}
	audits := &memAuditRepo{}
	channel := &memChannel{name: model.ChannelDashboard, acceptChannel: model.AcceptChannelDashboard}

	log := logger.NewLogger(nil)
	auditor := audit.NewService(audits)
	matcher := matching.NewService(&memDoctorRepo{doctors: doctors}, time.Minute, time.Minute)
	lc := lifecycle.NewService(requests)
	tokens := token.NewService("test-secret", time.Hour)
	dispatcher := dispatch.NewService(attempts, tokens, []dispatch.Channel{channel}, 5*time.Second, log, testMetrics)

	acceptor := acceptance.NewService(requests, events, attempts, matcher, nopRooms{}, nopBroker{}, auditor, log, testMetrics)

	return &env{
		svc:      NewService(requests, matcher, lc, dispatcher, auditor, log, 30*time.Minute),
		acceptor: acceptor,
		requests: requests,
		attempts: attempts,
		channel:  channel,
		audits:   audits,
	}
}

// The canonical in-person flow: one doctor in range wins the request,
// one out of range never hears about it, one unavailable sits it out.
func TestCreateAndDispatch_InPersonScenario(t *testing.T) {
	serviceID := uuid.New()

	inRange := doctorAt(serviceID, 5, 12)
	outOfRange := doctorAt(serviceID, 20, 12)
	unavailable := doctorAt(serviceID, 5, 12)
	unavailable.IsAvailable = false

	e := newEnv([]*model.Doctor{inRange, outOfRange, unavailable})

	req, candidates, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindPatient,
		ServiceID:       serviceID,
		Category:        model.RequestCategoryInPerson,
		RequesterLat:    f64(requesterLat),
		RequesterLng:    f64(requesterLng),
		DoctorSelection: model.DoctorSelectionAny,
	})
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, inRange.ID, candidates[0].ID)
	assert.Equal(t, model.RequestStatusNotified, req.Status)
	require.NotNil(t, req.NotifiedAt)

	assert.Equal(t, []uuid.UUID{inRange.ID}, e.channel.notified)

	attempts, err := e.attempts.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, inRange.ID, attempts[0].DoctorID)
	assert.Equal(t, model.AttemptOutcomeSent, attempts[0].Outcome)

	// The in-range doctor accepts and wins.
	result, err := e.acceptor.AttemptAccept(context.Background(), req.ID, inRange.ID, model.AcceptChannelDashboard, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AcceptanceResultWon, result.Result)
	e.acceptor.Wait()

	// The out-of-range doctor got hold of the ID anyway; the accept-time
	// re-validation turns them away with the eligibility message.
	_, err = e.acceptor.AttemptAccept(context.Background(), req.ID, outOfRange.ID, model.AcceptChannelDashboard, nil)
	require.ErrorIs(t, err, errors.Ineligible)
	e.acceptor.Wait()

	final, err := e.requests.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, final.Status)
	require.NotNil(t, final.AssignedDoctorID)
	assert.Equal(t, inRange.ID, *final.AssignedDoctorID)
}

func TestCreateAndDispatch_SecondEligibleDoctorLosesRace(t *testing.T) {
	serviceID := uuid.New()
	first := doctorAt(serviceID, 4, 12)
	second := doctorAt(serviceID, 6, 12)

	e := newEnv([]*model.Doctor{first, second})

	req, candidates, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindPatient,
		ServiceID:       serviceID,
		Category:        model.RequestCategoryInPerson,
		RequesterLat:    f64(requesterLat),
		RequesterLng:    f64(requesterLng),
		DoctorSelection: model.DoctorSelectionAny,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	_, err = e.acceptor.AttemptAccept(context.Background(), req.ID, first.ID, model.AcceptChannelDashboard, nil)
	require.NoError(t, err)
	e.acceptor.Wait()

	_, err = e.acceptor.AttemptAccept(context.Background(), req.ID, second.ID, model.AcceptChannelDashboard, nil)
	require.ErrorIs(t, err, errors.AlreadyAssigned)
	e.acceptor.Wait()
}

func TestCreateAndDispatch_NoCandidatesStaysPending(t *testing.T) {
	serviceID := uuid.New()
	e := newEnv(nil)

	req, candidates, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindBusiness,
		ServiceID:       serviceID,
		Category:        model.RequestCategoryOnline,
		DoctorSelection: model.DoctorSelectionAny,
	})
	require.NoError(t, err)

	assert.Empty(t, candidates)
	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Nil(t, req.NotifiedAt)
	assert.Empty(t, e.channel.notified)
}

func TestCreateAndDispatch_InPersonRequiresLocation(t *testing.T) {
	e := newEnv(nil)

	_, _, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindPatient,
		ServiceID:       uuid.New(),
		Category:        model.RequestCategoryInPerson,
		DoctorSelection: model.DoctorSelectionAny,
	})
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}

func TestCreateAndDispatch_RejectsOutOfRangeCoordinates(t *testing.T) {
	e := newEnv(nil)

	_, _, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindPatient,
		ServiceID:       uuid.New(),
		Category:        model.RequestCategoryInPerson,
		RequesterLat:    f64(123.0),
		RequesterLng:    f64(-0.1278),
		DoctorSelection: model.DoctorSelectionAny,
	})
	require.ErrorIs(t, err, errors.InvalidCoordinate)
}

func TestCreateAndDispatch_PreferredRequiresDoctorID(t *testing.T) {
	e := newEnv(nil)

	_, _, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindPatient,
		ServiceID:       uuid.New(),
		Category:        model.RequestCategoryOnline,
		DoctorSelection: model.DoctorSelectionPreferred,
	})
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrBadRequest, appErr.Code)
}

func TestCancel_OpenRequestIsCancelled(t *testing.T) {
	serviceID := uuid.New()
	e := newEnv(nil)

	req, _, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindBusiness,
		ServiceID:       serviceID,
		Category:        model.RequestCategoryOnline,
		DoctorSelection: model.DoctorSelectionAny,
	})
	require.NoError(t, err)

	require.NoError(t, e.svc.Cancel(context.Background(), req.ID))

	final, err := e.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, final.Status)
}

func TestCreateAndDispatch_ExpiryDefaultsAndOverrides(t *testing.T) {
	e := newEnv(nil)

	before := time.Now()
	req, _, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:      model.RequestKindPatient,
		ServiceID:        uuid.New(),
		Category:         model.RequestCategoryOnline,
		DoctorSelection:  model.DoctorSelectionAny,
		ExpiresInMinutes: 10,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(10*time.Minute), req.ExpiresAt, 5*time.Second)

	req2, _, err := e.svc.CreateAndDispatch(context.Background(), &model.CreateRequestRequest{
		RequestKind:     model.RequestKindPatient,
		ServiceID:       uuid.New(),
		Category:        model.RequestCategoryOnline,
		DoctorSelection: model.DoctorSelectionAny,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(30*time.Minute), req2.ExpiresAt, 5*time.Second)
}
