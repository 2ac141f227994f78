// Package prayer computes the daily prayer-time events for a location and
// provides the display-facing Prayer value used by every front end.
package prayer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athan/internal/api"
)

// Prayer is one event in a rendered schedule. Extreme marks a fallback time
// standing in for an event whose solar angle is never reached.
type Prayer struct {
	Name    string
	Time    time.Time
	Extreme bool
}

// AllPrayerNames lists the events a schedule can show, in chronological order.
var AllPrayerNames = []string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// DefaultPrayerNames are the prayers tracked when none are configured.
var DefaultPrayerNames = AllPrayerNames

// ShortNames maps each event name to its initial, for narrow status bars.
var ShortNames = func() map[string]string {
	m := make(map[string]string, len(AllPrayerNames))
	for _, name := range AllPrayerNames {
		m[name] = name[:1]
	}
	return m
}()

// ExtremeMarker is appended to the clock reading of an extreme event.
const ExtremeMarker = " *"

// Clock formats the prayer time with layout, marking extreme events.
func (p Prayer) Clock(layout string) string {
	if p.Extreme {
		return p.Time.Format(layout) + ExtremeMarker
	}
	return p.Time.Format(layout)
}

// IndexOf returns the event index for a prayer name, or -1.
func IndexOf(name string) int {
	for i, n := range Names[:NextFajr] {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// Filter keeps the prayers whose names are in selected, preserving order.
func Filter(prayers []Prayer, selected []string) []Prayer {
	var out []Prayer
	for _, p := range prayers {
		for _, name := range selected {
			if p.Name == name {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ParseTimings converts Al Adhan timings into prayers on date in loc, in the
// order of selected.
func ParseTimings(timings api.Timings, date time.Time, loc *time.Location, selected []string) ([]Prayer, error) {
	clocks := map[string]string{
		"Fajr":    timings.Fajr,
		"Sunrise": timings.Sunrise,
		"Dhuhr":   timings.Dhuhr,
		"Asr":     timings.Asr,
		"Maghrib": timings.Maghrib,
		"Isha":    timings.Isha,
	}

	prayers := make([]Prayer, 0, len(selected))
	for _, name := range selected {
		raw, ok := clocks[name]
		if !ok {
			return nil, fmt.Errorf("unknown prayer name: %s", name)
		}
		h, m, err := parseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		y, mo, d := date.Date()
		prayers = append(prayers, Prayer{Name: name, Time: time.Date(y, mo, d, h, m, 0, 0, loc)})
	}
	return prayers, nil
}

// parseClock reads "HH:MM", ignoring a trailing zone label such as " (BST)".
func parseClock(raw string) (hour, minute int, err error) {
	s, _, _ := strings.Cut(strings.TrimSpace(raw), " ")
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q", raw)
	}
	if hour, err = strconv.Atoi(hh); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	if minute, err = strconv.Atoi(mm); err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

// NextPrayer is the first non-extreme prayer strictly after now, or nil.
func NextPrayer(prayers []Prayer, now time.Time) *Prayer {
	for i, p := range prayers {
		if !p.Extreme && p.Time.After(now) {
			return &prayers[i]
		}
	}
	return nil
}

// CurrentPrayer is the last non-extreme prayer at or before now, or nil.
func CurrentPrayer(prayers []Prayer, now time.Time) *Prayer {
	for i := len(prayers) - 1; i >= 0; i-- {
		if p := prayers[i]; !p.Extreme && !p.Time.After(now) {
			return &prayers[i]
		}
	}
	return nil
}

// TimeRemaining returns the duration from now until p.
func TimeRemaining(p Prayer, now time.Time) time.Duration {
	return p.Time.Sub(now)
}

// FormatRemaining renders d as "2h 15m", or "45m" under an hour. Negative
// durations read as "0m".
func FormatRemaining(d time.Duration) string {
	d = max(d, 0)
	h, m := int(d.Hours()), int(d.Minutes())%60
	if h == 0 {
		return strconv.Itoa(m) + "m"
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
