// Package astro implements the low-precision solar model the prayer-time
// calculator is built on: civil date to Julian Day, then the sun's
// declination, equation of time and Earth-Sun distance for that day.
package astro

import (
	"math"
	"time"
)

// J2000 is the Julian Day number of 2000-01-01, the model's epoch.
const J2000 = 2451545

// Obliquity of the ecliptic in degrees.
const Obliquity = 23.439

// Sun is the solar position for one civil date.
type Sun struct {
	Declination    float64 // radians
	EquationOfTime float64 // minutes
	Distance       float64 // astronomical units
}

// JulianDay returns the Julian Day Number of a proleptic Gregorian date,
// counting March as the first month of the shifted year.
func JulianDay(year int, month time.Month, day int) int {
	a := (14 - int(month)) / 12
	y := year - a
	m := int(month) + 12*a - 3
	return day + (153*m+2)/5 + 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400) + 1721119
}

// SunAt evaluates the solar model for the civil date of t. Only the year,
// month and day of t are used.
func SunAt(t time.Time) Sun {
	return sunForDay(JulianDay(t.Year(), t.Month(), t.Day()))
}

func sunForDay(jd int) Sun {
	n := float64(jd - J2000)

	meanLong := Normalize360(280.460 + 0.9856474*n)
	anomaly := Normalize360(357.528 + 0.9856003*n)
	g := Radians(anomaly)

	lambda := Radians(meanLong + 1.915*math.Sin(g) + 0.020*math.Sin(2*g))
	eps := Radians(Obliquity)

	ra := Degrees(math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda)))
	decl := math.Asin(math.Sin(eps) * math.Sin(lambda))

	return Sun{
		Declination:    decl,
		EquationOfTime: 4 * wrap180(meanLong-ra),
		Distance:       1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g),
	}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Normalize360 maps an angle in degrees into [0, 360).
func Normalize360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// wrap180 maps an angle in degrees into [-180, 180).
func wrap180(deg float64) float64 {
	deg = Normalize360(deg)
	if deg >= 180 {
		deg -= 360
	}
	return deg
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
