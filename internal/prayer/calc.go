package prayer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/method"
)

// Event indices, in chronological order.
const (
	Fajr = iota
	Sunrise
	Dhuhr
	Asr
	Maghrib
	Isha
	NextFajr

	Count
)

// Names are the display names for each event index.
var Names = [Count]string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha", "Fajr"}

// ErrInvalidInput is returned when coordinates, the date or the method are
// out of range. No partial result accompanies it.
var ErrInvalidInput = errors.New("invalid input")

// Solar disc and refraction constants for the horizon events, in degrees.
const (
	semiDiameter  = 0.2666
	refraction    = 0.5667
	altitudeDip   = 0.0347
	refPressure   = 1010.0
	refTempKelvin = 283.0
)

// Times holds the raw event offsets in local hours for one date. Hours may
// fall outside [0,24). Unreachable events carry NaN and Extreme is set.
// NextFajr and NextDhuhr are relative to the following day.
type Times struct {
	Hours     [Count]float64
	Extreme   [Count]bool
	NextDhuhr float64
}

// Calculate computes the seven event offsets for the civil date of date in
// date.Location(), using m. The UTC offset is sampled at local noon.
func Calculate(date time.Time, loc Location, m method.Method) (Times, error) {
	if date.IsZero() {
		return Times{}, fmt.Errorf("%w: zero date", ErrInvalidInput)
	}
	if err := loc.Validate(); err != nil {
		return Times{}, err
	}
	if err := m.Validate(); err != nil {
		return Times{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var t Times
	today := observe(date, loc)
	tomorrow := observe(date.AddDate(0, 0, 1), loc)

	t.Hours[Dhuhr] = today.noon
	t.NextDhuhr = tomorrow.noon

	horizon := loc.horizonAltitude(today.sun.Distance)
	t.set(Sunrise)(today.before(horizon))
	t.set(Maghrib)(today.after(horizon))
	t.set(Fajr)(today.before(-m.FajrAngle))
	t.set(Asr)(today.asr(float64(m.AsrFactor)))

	switch {
	case !m.UsesInterval():
		t.set(Isha)(today.after(-m.IshaaAngle))
	case t.Extreme[Maghrib]:
		t.set(Isha)(math.NaN(), false)
	default:
		t.set(Isha)(t.Hours[Maghrib]+m.IshaaInterval/60, true)
	}

	t.set(NextFajr)(tomorrow.before(-m.FajrAngle))
	return t, nil
}

// set returns a setter for event i that accepts an (hours, reachable) pair.
func (t *Times) set(i int) func(float64, bool) {
	return func(h float64, ok bool) {
		if !ok {
			h = math.NaN()
		}
		t.Hours[i] = h
		t.Extreme[i] = !ok
	}
}

// horizonAltitude is the sun's centre altitude at apparent sunrise/sunset.
func (l Location) horizonAltitude(distance float64) float64 {
	refr := refraction * (l.PressureOrDefault() / refPressure) * (refTempKelvin / (273 + l.TemperatureOrDefault()))
	return -(semiDiameter/distance + refr + altitudeDip*math.Sqrt(l.AltitudeOrZero()))
}

// day is the solar state for one date at one location.
type day struct {
	sun  astro.Sun
	lat  float64 // radians
	noon float64 // local hours
}

func observe(date time.Time, loc Location) day {
	y, mo, d := date.Date()
	_, offset := time.Date(y, mo, d, 12, 0, 0, 0, date.Location()).Zone()

	sun := astro.SunAt(date)
	noon := 12 - sun.EquationOfTime/60 - loc.Longitude/15 + float64(offset)/3600

	return day{sun: sun, lat: astro.Radians(loc.Latitude), noon: noon}
}

// hourAngle returns the hours between solar noon and the moment the sun
// reaches altitude (degrees), or false if it never does.
func (d day) hourAngle(altitude float64) (float64, bool) {
	decl := d.sun.Declination
	cosH := (math.Sin(astro.Radians(altitude)) - math.Sin(d.lat)*math.Sin(decl)) /
		(math.Cos(d.lat) * math.Cos(decl))
	if math.IsNaN(cosH) || math.Abs(cosH) > 1 {
		return math.NaN(), false
	}
	return astro.Degrees(math.Acos(cosH)) / 15, true
}

func (d day) before(altitude float64) (float64, bool) {
	h, ok := d.hourAngle(altitude)
	return d.noon - h, ok
}

func (d day) after(altitude float64) (float64, bool) {
	h, ok := d.hourAngle(altitude)
	return d.noon + h, ok
}

// asr uses the shadow-length altitude. When the sun stays below the
// horizon at noon there is no shadow to measure.
func (d day) asr(factor float64) (float64, bool) {
	zenith := math.Abs(d.lat - d.sun.Declination)
	if zenith >= math.Pi/2 {
		return math.NaN(), false
	}
	altitude := astro.Degrees(math.Atan(1 / (factor + math.Tan(zenith))))
	return d.after(altitude)
}
