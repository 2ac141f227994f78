package schedule

import (
	"fmt"
	"math"
	"strings"

	"github.com/smokyabdulrahman/athan/internal/prayer"
)

// Rounding selects how event times are brought to whole minutes.
type Rounding int

const (
	RoundNone Rounding = iota
	RoundNearest
	RoundUp
	RoundDown
	// RoundSpecial rounds Sunrise and Maghrib down and every other event up.
	RoundSpecial
)

// DefaultRounding is used when no policy is configured.
const DefaultRounding = RoundSpecial

var roundingNames = map[Rounding]string{
	RoundNone:    "none",
	RoundNearest: "nearest",
	RoundUp:      "up",
	RoundDown:    "down",
	RoundSpecial: "special",
}

// RoundingNames lists the accepted policy names.
var RoundingNames = []string{"none", "nearest", "up", "down", "special"}

// ParseRounding parses a policy name.
func ParseRounding(s string) (Rounding, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range roundingNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("invalid rounding %q: must be one of %s", s, strings.Join(RoundingNames, ", "))
}

func (r Rounding) String() string {
	if name, ok := roundingNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Rounding(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rounding) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rounding) UnmarshalText(b []byte) error {
	v, err := ParseRounding(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// float noise below this many minutes is ignored when rounding up or down
const minuteEpsilon = 1e-9

// Round applies the policy for event index i to a time in hours.
func (r Rounding) Round(i int, hours float64) float64 {
	minutes := hours * 60
	switch r {
	case RoundNearest:
		minutes = math.Floor(minutes + 0.5)
	case RoundUp:
		minutes = math.Ceil(minutes - minuteEpsilon)
	case RoundDown:
		minutes = math.Floor(minutes + minuteEpsilon)
	case RoundSpecial:
		if i == prayer.Sunrise || i == prayer.Maghrib {
			minutes = math.Floor(minutes + minuteEpsilon)
		} else {
			minutes = math.Ceil(minutes - minuteEpsilon)
		}
	}
	return minutes / 60
}
