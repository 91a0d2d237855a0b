package matching

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/dispatch-api/internal/geo"
	"github.com/jwalitptl/dispatch-api/internal/model"
	"github.com/jwalitptl/dispatch-api/internal/repository"
	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

// Service selects the eligible doctors for a request. Doctor reads are
// advisory snapshots; the exactly-once guarantee lives in the storage
// layer, so a slightly stale cache is acceptable here.
type Service struct {
	doctors repository.DoctorRepository
	cache   *cache.Cache
}

func NewService(doctors repository.DoctorRepository, cacheTTL, cleanupInterval time.Duration) *Service {
	return &Service{
		doctors: doctors,
		cache:   cache.New(cacheTTL, cleanupInterval),
	}
}

// SelectCandidates returns every doctor passing the conjunctive filter
// pipeline. An empty result is a valid outcome, not an error.
func (s *Service) SelectCandidates(ctx context.Context, req *model.ServiceRequest) ([]*model.Doctor, error) {
	if req.Category == model.RequestCategoryInPerson && req.RequesterLocation() == nil {
		return nil, errors.NewBadRequest("in-person request requires requester location", nil)
	}

	if req.DoctorSelection == model.DoctorSelectionPreferred {
		return s.selectPreferred(ctx, req)
	}

	pool, err := s.doctorsForService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	candidates := make([]*model.Doctor, 0, len(pool))
	for _, doctor := range pool {
		ok, err := s.isEligible(doctor, req)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, doctor)
		}
	}
	return candidates, nil
}

// selectPreferred narrows the pool to the requested doctor. No fallback
// broadcast: an unreachable preferred doctor yields an empty set.
func (s *Service) selectPreferred(ctx context.Context, req *model.ServiceRequest) ([]*model.Doctor, error) {
	if req.PreferredDoctorID == nil {
		return nil, errors.NewBadRequest("preferred selection requires a preferred doctor id", nil)
	}

	doctor, err := s.doctorByID(ctx, *req.PreferredDoctorID)
	if err != nil {
		if isNotFound(err) {
			return []*model.Doctor{}, nil
		}
		return nil, err
	}

	ok, err := s.isEligible(doctor, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*model.Doctor{}, nil
	}
	return []*model.Doctor{doctor}, nil
}

// IsEligible re-validates a single doctor against the request at accept
// time.
func (s *Service) IsEligible(ctx context.Context, req *model.ServiceRequest, doctorID uuid.UUID) (bool, error) {
	if req.DoctorSelection == model.DoctorSelectionPreferred {
		if req.PreferredDoctorID == nil || *req.PreferredDoctorID != doctorID {
			return false, nil
		}
	}

	doctor, err := s.doctorByID(ctx, doctorID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s.isEligible(doctor, req)
}

func isNotFound(err error) bool {
	var appErr *errors.AppError
	return stderrors.As(err, &appErr) && appErr.Code == errors.ErrNotFound
}

func (s *Service) isEligible(doctor *model.Doctor, req *model.ServiceRequest) (bool, error) {
	if !doctor.IsAvailable || !doctor.IsVerified {
		return false, nil
	}
	if !doctor.OffersService(req.ServiceID) {
		return false, nil
	}

	// Online requests are nationwide; no geo filter applies.
	if req.Category == model.RequestCategoryOnline {
		return true, nil
	}

	loc := doctor.Location()
	if loc == nil {
		return false, nil
	}

	distance, err := geo.Distance(*loc, *req.RequesterLocation())
	if err != nil {
		return false, err
	}

	radius := doctor.ServiceRadiusMiles
	if radius <= 0 {
		radius = model.DefaultServiceRadiusMiles
	}

	// Inclusive boundary: a doctor at exactly their radius is in.
	return distance <= float64(radius), nil
}

func (s *Service) doctorsForService(ctx context.Context, serviceID uuid.UUID) ([]*model.Doctor, error) {
	key := "service:" + serviceID.String()
	if cached, found := s.cache.Get(key); found {
		return cached.([]*model.Doctor), nil
	}

	doctors, err := s.doctors.ListByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load doctors for service: %w", err)
	}

	s.cache.Set(key, doctors, cache.DefaultExpiration)
	return doctors, nil
}

func (s *Service) doctorByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	key := "doctor:" + id.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.Doctor), nil
	}

	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, doctor, cache.DefaultExpiration)
	return doctor, nil
}
