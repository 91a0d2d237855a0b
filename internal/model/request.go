package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/geo"
)

type RequestKind string

const (
	RequestKindBusiness RequestKind = "business"
	RequestKindPatient  RequestKind = "patient"
)

type RequestCategory string

const (
	RequestCategoryOnline   RequestCategory = "online"
	RequestCategoryInPerson RequestCategory = "in_person"
)

type DoctorSelection string

const (
	DoctorSelectionAny       DoctorSelection = "any"
	DoctorSelectionPreferred DoctorSelection = "preferred"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusNotified   RequestStatus = "notified"
	RequestStatusAccepted   RequestStatus = "accepted"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
	RequestStatusExpired    RequestStatus = "expired"
)

// IsTerminal reports whether no further matching/acceptance transition is
// expected from the status.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusCancelled, RequestStatusExpired:
		return true
	}
	return false
}

type ServiceRequest struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	RequestKind       RequestKind     `db:"request_kind" json:"request_kind"`
	ServiceID         uuid.UUID       `db:"service_id" json:"service_id"`
	Category          RequestCategory `db:"category" json:"category"`
	RequesterLat      *float64        `db:"requester_lat" json:"requester_lat,omitempty"`
	RequesterLng      *float64        `db:"requester_lng" json:"requester_lng,omitempty"`
	DoctorSelection   DoctorSelection `db:"doctor_selection" json:"doctor_selection"`
	PreferredDoctorID *uuid.UUID      `db:"preferred_doctor_id" json:"preferred_doctor_id,omitempty"`
	Status            RequestStatus   `db:"status" json:"status"`
	AssignedDoctorID  *uuid.UUID      `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`
	VideoRoomRef      *string         `db:"video_room_ref" json:"video_room_ref,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
	NotifiedAt        *time.Time      `db:"notified_at" json:"notified_at,omitempty"`
	AcceptedAt        *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	ExpiresAt         time.Time       `db:"expires_at" json:"expires_at"`
}

// RequesterLocation returns the requester coordinates, or nil when none were
// supplied. In-person requests always carry one; intake validation enforces it.
func (r *ServiceRequest) RequesterLocation() *geo.Point {
	if r.RequesterLat == nil || r.RequesterLng == nil {
		return nil
	}
	return &geo.Point{Lat: *r.RequesterLat, Lng: *r.RequesterLng}
}

type CreateRequestRequest struct {
	RequestKind       RequestKind     `json:"request_kind" binding:"required,oneof=business patient"`
	ServiceID         uuid.UUID       `json:"service_id" binding:"required"`
	Category          RequestCategory `json:"category" binding:"required,oneof=online in_person"`
	RequesterLat      *float64        `json:"requester_lat" binding:"omitempty,latitude"`
	RequesterLng      *float64        `json:"requester_lng" binding:"omitempty,longitude"`
	DoctorSelection   DoctorSelection `json:"doctor_selection" binding:"required,oneof=any preferred"`
	PreferredDoctorID *uuid.UUID      `json:"preferred_doctor_id"`
	ExpiresInMinutes  int             `json:"expires_in_minutes" binding:"omitempty,min=1,max=1440"`
}
