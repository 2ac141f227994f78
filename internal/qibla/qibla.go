// Package qibla computes the direction and distance to the Kaaba.
package qibla

import (
	"errors"
	"fmt"
	"math"

	"github.com/smokyabdulrahman/athan/internal/astro"
)

// Reference coordinate of the Kaaba, in degrees.
const (
	KaabaLatitude  = 21.4233
	KaabaLongitude = 39.8233
)

const earthRadiusKm = 6371.0

// ErrInvalidInput is returned for coordinates outside the valid range.
var ErrInvalidInput = errors.New("invalid coordinates")

// Bearing returns the initial great-circle bearing from (lat, lon) to the
// Kaaba in degrees clockwise from true north, in [0, 360). Inputs are not
// range checked.
func Bearing(lat, lon float64) float64 {
	phi := astro.Radians(lat)
	ref := astro.Radians(KaabaLatitude)
	dLon := astro.Radians(KaabaLongitude - lon)

	y := math.Sin(dLon)
	x := math.Cos(phi)*math.Tan(ref) - math.Sin(phi)*math.Cos(dLon)

	b := astro.Degrees(math.Atan2(y, x))
	if b < 0 {
		b += 360
	}
	return b
}

// Direction is Bearing with input validation.
func Direction(lat, lon float64) (float64, error) {
	if err := check(lat, lon); err != nil {
		return 0, err
	}
	return Bearing(lat, lon), nil
}

// Distance returns the haversine distance to the Kaaba in kilometres.
func Distance(lat, lon float64) (float64, error) {
	if err := check(lat, lon); err != nil {
		return 0, err
	}
	phi1, phi2 := astro.Radians(lat), astro.Radians(KaabaLatitude)
	dPhi := phi2 - phi1
	dLambda := astro.Radians(KaabaLongitude - lon)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a))), nil
}

// Compass returns the 16-point compass abbreviation for a bearing.
func Compass(bearing float64) string {
	points := [...]string{
		"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
	}
	i := int(math.Floor(astro.Normalize360(bearing)/22.5+0.5)) % len(points)
	return points[i]
}

func check(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v must be between -90 and 90", ErrInvalidInput, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v must be between -180 and 180", ErrInvalidInput, lon)
	}
	return nil
}
