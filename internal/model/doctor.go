package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/geo"
)

// DefaultServiceRadiusMiles applies when a doctor has not configured a
// personal catchment area.
const DefaultServiceRadiusMiles = 12

type Doctor struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	Phone              string    `db:"phone" json:"phone"`
	Lat                *float64  `db:"lat" json:"lat,omitempty"`
	Lng                *float64  `db:"lng" json:"lng,omitempty"`
	ServiceRadiusMiles int       `db:"service_radius_miles" json:"service_radius_miles"`
	IsAvailable        bool      `db:"is_available" json:"is_available"`
	IsVerified         bool      `db:"is_verified" json:"is_verified"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`

	// OfferedServiceIDs is loaded from the doctor_services join table.
	OfferedServiceIDs []uuid.UUID `db:"-" json:"offered_service_ids,omitempty"`
}

// Location returns the doctor's coordinates, or nil when none are on file.
func (d *Doctor) Location() *geo.Point {
	if d.Lat == nil || d.Lng == nil {
		return nil
	}
	return &geo.Point{Lat: *d.Lat, Lng: *d.Lng}
}

func (d *Doctor) OffersService(serviceID uuid.UUID) bool {
	for _, id := range d.OfferedServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}
