package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dispatch-api/pkg/errors"
)

func TestDistanceKnownPoints(t *testing.T) {
	london := Point{Lat: 51.5074, Lng: -0.1278}
	paris := Point{Lat: 48.8566, Lng: 2.3522}

	d, err := Distance(london, paris)
	require.NoError(t, err)
	assert.InDelta(t, 214, d, 2)
}

func TestDistanceSamePoint(t *testing.T) {
	p := Point{Lat: 40.7128, Lng: -74.0060}

	d, err := Distance(p, p)
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Point{Lat: 51.5074, Lng: -0.1278}
	b := Point{Lat: 51.4545, Lng: -2.5879}

	d1, err := Distance(a, b)
	require.NoError(t, err)
	d2, err := Distance(b, a)
	require.NoError(t, err)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistanceRejectsOutOfRangeCoordinates(t *testing.T) {
	valid := Point{Lat: 10, Lng: 10}

	tests := []struct {
		name string
		p    Point
	}{
		{"latitude too high", Point{Lat: 90.1, Lng: 0}},
		{"latitude too low", Point{Lat: -91, Lng: 0}},
		{"longitude too high", Point{Lat: 0, Lng: 180.5}},
		{"longitude too low", Point{Lat: 0, Lng: -181}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Distance(tt.p, valid)
			assert.ErrorIs(t, err, errors.InvalidCoordinate)

			_, err = Distance(valid, tt.p)
			assert.ErrorIs(t, err, errors.InvalidCoordinate)
		})
	}
}

func TestDistanceAcceptsBoundaryCoordinates(t *testing.T) {
	_, err := Distance(Point{Lat: 90, Lng: 180}, Point{Lat: -90, Lng: -180})
	assert.NoError(t, err)
}

func TestFormatMiles(t *testing.T) {
	tests := []struct {
		miles float64
		want  string
	}{
		{0.04, "less than 500 feet"},
		{0.0949, "less than 500 feet"},
		{0.095, "0.1 miles"},
		{3.2, "3.2 miles"},
		{3.24, "3.2 miles"},
		{12.0, "12.0 miles"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMiles(tt.miles))
	}
}

func TestFormatMilesFromComputedDistance(t *testing.T) {
	// One degree of latitude is ~69.1 miles, so 0.046311 degrees is ~3.2 miles.
	base := Point{Lat: 51.5074, Lng: -0.1278}
	near := Point{Lat: base.Lat + 0.046311, Lng: base.Lng}

	d, err := Distance(base, near)
	require.NoError(t, err)
	assert.Equal(t, "3.2 miles", FormatMiles(d))
}
