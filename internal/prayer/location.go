package prayer

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Atmospheric defaults used when a reading is unavailable.
const (
	DefaultPressure    = 1010.0 // hPa
	DefaultTemperature = 10.0   // °C
)

var validate = validator.New()

// Location is an observer position. Pressure and Temperature are optional;
// nil means the default is used.
type Location struct {
	Latitude    float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64  `json:"longitude" validate:"gte=-180,lte=180"`
	Altitude    float64  `json:"altitude,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty" validate:"omitnil,gt=0,lte=1100"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitnil,gte=-90,lte=60"`
}

// Validate reports whether the coordinates and optional readings are in range.
// The returned error wraps ErrInvalidInput.
func (l Location) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("%w: location %s: %v", ErrInvalidInput, l, err)
	}
	return nil
}

// PressureOrDefault returns the pressure reading or DefaultPressure.
func (l Location) PressureOrDefault() float64 {
	if l.Pressure == nil {
		return DefaultPressure
	}
	return *l.Pressure
}

// TemperatureOrDefault returns the temperature reading or DefaultTemperature.
func (l Location) TemperatureOrDefault() float64 {
	if l.Temperature == nil {
		return DefaultTemperature
	}
	return *l.Temperature
}

// AltitudeOrZero returns the altitude, treating negative readings as sea level.
func (l Location) AltitudeOrZero() float64 {
	if l.Altitude < 0 {
		return 0
	}
	return l.Altitude
}

// WithLatitude returns a copy of l at a different latitude.
func (l Location) WithLatitude(lat float64) Location {
	l.Latitude = lat
	return l
}

func (l Location) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", l.Latitude, l.Longitude)
}
