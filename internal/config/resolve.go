package config

import (
	"strings"
	"time"

	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

// HasCoordinates reports whether both latitude and longitude are set.
func (c *Config) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// SetCoordinates stores a latitude/longitude pair.
func (c *Config) SetCoordinates(lat, lon float64) {
	c.Latitude = &lat
	c.Longitude = &lon
}

// Location builds the observer location from the configured coordinates
// and readings, using the default location when no coordinates are set.
func (c *Config) Location() prayer.Location {
	loc := prayer.Location{Latitude: DefaultLatitude, Longitude: DefaultLongitude}
	if c.HasCoordinates() {
		loc.Latitude, loc.Longitude = *c.Latitude, *c.Longitude
	}
	if c.Altitude != nil {
		loc.Altitude = *c.Altitude
	}
	loc.Pressure = c.Pressure
	loc.Temperature = c.Temperature
	return loc
}

// ResolveMethod picks the calculation method: an explicit index wins, then
// the regional default for countryCode, then the table default. An explicit
// school overrides the method's Asr factor.
func (c *Config) ResolveMethod(countryCode string) (method.Method, error) {
	var m method.Method
	if id := c.MethodOrDefault(-1); id >= 0 {
		var err error
		if m, err = method.Lookup(id); err != nil {
			return method.Method{}, err
		}
	} else if regional, ok := method.ForCountry(countryCode); ok {
		m = regional
	} else {
		m = method.Default()
	}

	if school := c.SchoolOrDefault(-1); school >= 0 {
		m = m.WithAsrFactor(school + 1)
	}
	return m, nil
}

// CountryCode returns Country when it looks like an ISO 3166 alpha-2 code.
func (c *Config) CountryCode() string {
	cc := strings.TrimSpace(c.Country)
	if len(cc) == 2 {
		return strings.ToUpper(cc)
	}
	return ""
}

// RoundingOrDefault parses the rounding policy.
func (c *Config) RoundingOrDefault() (schedule.Rounding, error) {
	if c.Rounding == "" {
		return schedule.DefaultRounding, nil
	}
	return schedule.ParseRounding(c.Rounding)
}

// Zone loads the configured timezone, or the local zone.
func (c *Config) Zone() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// TimeLayout returns the Go time layout for the time_format setting.
func (c *Config) TimeLayout() string {
	if c.TimeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// PrayerList returns the selected prayer names, or the defaults.
func (c *Config) PrayerList() []string {
	if c.Prayers == "" {
		return prayer.DefaultPrayerNames
	}
	var names []string
	for _, n := range strings.Split(c.Prayers, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Request assembles a schedule request for the civil date of day.
func (c *Config) Request(day time.Time, countryCode string) (schedule.Request, error) {
	m, err := c.ResolveMethod(countryCode)
	if err != nil {
		return schedule.Request{}, err
	}
	r, err := c.RoundingOrDefault()
	if err != nil {
		return schedule.Request{}, err
	}
	zone, err := c.Zone()
	if err != nil {
		return schedule.Request{}, err
	}
	return schedule.Request{
		Date:          day.In(zone),
		Location:      c.Location(),
		Method:        m,
		Rounding:      r,
		OffsetMinutes: c.OffsetOrZero(),
	}, nil
}
