package geo

import (
	"fmt"
	"math"

	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

// earthRadiusMiles is the spherical earth radius used by the haversine
// computation.
const earthRadiusMiles = 3959

// lessThan500Feet is the display cutoff below which a distance is shown
// as "less than 500 feet" instead of fractional miles.
const lessThan500Feet = 0.095

// Point is a WGS84 decimal-degree coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) validate() error {
	if math.Abs(p.Lat) > 90 {
		return errors.NewInvalidCoordinate(fmt.Sprintf("latitude %.6f out of range", p.Lat))
	}
	if math.Abs(p.Lng) > 180 {
		return errors.NewInvalidCoordinate(fmt.Sprintf("longitude %.6f out of range", p.Lng))
	}
	return nil
}

// Validate rejects coordinates outside the WGS84 decimal-degree range.
func Validate(p Point) error {
	return p.validate()
}

// Distance returns the great-circle distance between a and b in miles.
func Distance(a, b Point) (float64, error) {
	if err := a.validate(); err != nil {
		return 0, err
	}
	if err := b.validate(); err != nil {
		return 0, err
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c, nil
}

// FormatMiles renders a distance for notification payloads.
func FormatMiles(miles float64) string {
	if miles < lessThan500Feet {
		return "less than 500 feet"
	}
	return fmt.Sprintf("%.1f miles", miles)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
