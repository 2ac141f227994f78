// Package schedule turns raw prayer offsets into a dated, rounded Schedule
// and answers which event comes next.
package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/prayer"
)

// Request is everything a Schedule depends on. Date is a civil date in the
// zone the timestamps should be expressed in; its clock is ignored.
type Request struct {
	Date          time.Time
	Location      prayer.Location
	Method        method.Method
	Rounding      Rounding
	OffsetMinutes int
}

// Schedule is an immutable day of events. Extreme events hold a fallback
// time and are skipped when looking for the next event.
type Schedule struct {
	Request
	Times     [prayer.Count]time.Time
	Extremes  [prayer.Count]bool
	NextIndex int
}

// Build computes the schedule for req and determines the next event at now.
func Build(req Request, now time.Time) (*Schedule, error) {
	if _, ok := roundingNames[req.Rounding]; !ok {
		return nil, fmt.Errorf("%w: rounding %d", prayer.ErrInvalidInput, int(req.Rounding))
	}

	raw, err := prayer.Calculate(req.Date, req.Location, req.Method)
	if err != nil {
		return nil, err
	}

	hours := raw.Hours
	if raw.Extreme != ([prayer.Count]bool{}) {
		fill, err := fallback(req, raw)
		if err != nil {
			return nil, err
		}
		hours = fill
	}

	y, m, d := req.Date.Date()
	zone := req.Date.Location()
	s := &Schedule{
		Request:  req,
		Extremes: raw.Extreme,
	}
	s.Request.Date = time.Date(y, m, d, 0, 0, 0, 0, zone)

	noon := normalize(raw.Hours[prayer.Dhuhr])
	nextNoon := normalize(raw.NextDhuhr)
	offset := time.Duration(req.OffsetMinutes) * time.Minute

	for i := range hours {
		h := normalize(hours[i])
		day := 0
		ref := noon
		if i == prayer.NextFajr {
			day, ref = 1, nextNoon
		}
		switch i {
		case prayer.Fajr, prayer.Sunrise, prayer.NextFajr:
			if h > ref {
				day--
			}
		case prayer.Asr, prayer.Maghrib, prayer.Isha:
			if h < ref {
				day++
			}
		}
		if !raw.Extreme[i] {
			h = req.Rounding.Round(i, h)
		}
		s.Times[i] = clock(y, m, d+day, h, zone).Add(offset)
	}

	s.NextIndex = NextIndexAt(s.Times, s.Extremes, now)
	return s, nil
}

// fallback fills unreachable events: first by recomputing at the method's
// nearest latitude, then with solar midnight.
func fallback(req Request, raw prayer.Times) ([prayer.Count]float64, error) {
	hours := raw.Hours
	lat := req.Location.Latitude
	nearest := req.Method.NearestLatitude

	var alt prayer.Times
	haveAlt := false
	if nearest > 0 && math.Abs(lat) > nearest {
		var err error
		alt, err = prayer.Calculate(req.Date, req.Location.WithLatitude(math.Copysign(nearest, lat)), req.Method)
		if err != nil {
			return hours, err
		}
		haveAlt = true
	}

	for i, extreme := range raw.Extreme {
		if !extreme {
			continue
		}
		if haveAlt && !alt.Extreme[i] {
			hours[i] = alt.Hours[i]
			continue
		}
		switch i {
		case prayer.Fajr, prayer.Sunrise:
			hours[i] = raw.Hours[prayer.Dhuhr] - 12
		case prayer.NextFajr:
			hours[i] = raw.NextDhuhr - 12
		default:
			hours[i] = raw.Hours[prayer.Dhuhr] + 12
		}
	}
	return hours, nil
}

// NextIndexAt returns the first non-extreme index whose time is strictly
// after now, or NextFajr if there is none.
func NextIndexAt(times [prayer.Count]time.Time, extremes [prayer.Count]bool, now time.Time) int {
	for i, t := range times {
		if !extremes[i] && t.After(now) {
			return i
		}
	}
	return prayer.NextFajr
}

// Next returns the next event index and time.
func (s *Schedule) Next() (int, time.Time) {
	return s.NextIndex, s.Times[s.NextIndex]
}

// Prayer returns event i as a display value.
func (s *Schedule) Prayer(i int) prayer.Prayer {
	return prayer.Prayer{Name: prayer.Names[i], Time: s.Times[i], Extreme: s.Extremes[i]}
}

// Prayers returns all seven events, the last being the next day's Fajr.
func (s *Schedule) Prayers() []prayer.Prayer {
	out := make([]prayer.Prayer, prayer.Count)
	for i := range out {
		out[i] = s.Prayer(i)
	}
	return out
}

// Day returns the six events belonging to the schedule's date.
func (s *Schedule) Day() []prayer.Prayer {
	return s.Prayers()[:prayer.NextFajr]
}

// Format renders event i with layout, appending the extreme marker.
func (s *Schedule) Format(i int, layout string) string {
	return s.Prayer(i).Clock(layout)
}

func normalize(h float64) float64 {
	return h - 24*math.Floor(h/24)
}

// clock converts fractional hours on a civil date into a wall-clock time.
func clock(year int, month time.Month, day int, hours float64, zone *time.Location) time.Time {
	d := time.Duration(math.Round(hours * float64(time.Hour)))
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	sec := int(d / time.Second)
	d -= time.Duration(sec) * time.Second
	return time.Date(year, month, day, h, m, sec, int(d), zone)
}
