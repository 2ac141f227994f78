package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/smokyabdulrahman/athan/internal/cache"
	"github.com/smokyabdulrahman/athan/internal/config"
	"github.com/smokyabdulrahman/athan/internal/geo"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
	"github.com/spf13/cobra"
)

// detector finds the user's location from their public IP.
type detector interface {
	Detect(ctx context.Context) (*geo.Location, error)
}

// newDetector is swapped out in tests.
var newDetector = func() detector { return geo.NewClient(nil) }

// clock is swapped out in tests.
var clock = time.Now

// place describes where the schedule is computed for.
type place struct {
	Label       string
	CountryCode string
	Source      string // "config", "cache", "detected" or "default"
}

// env is the resolved state every schedule-printing command starts from.
type env struct {
	cfg      *config.Config
	cache    *cache.Cache
	place    place
	zone     *time.Location
	selected []string
	layout   string
}

// prepare merges flags into the config, resolves the location and zone,
// and opens the cache.
func prepare(cmd *cobra.Command) (*env, error) {
	cfg, err := effectiveConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newEnv(cmd.Context(), cfg)
}

func newEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	c, err := cache.New(cfg.CacheDir)
	if err != nil {
		// Cache init failure is non-fatal; we just skip caching.
		c = nil
		fmt.Fprintf(os.Stderr, "warning: cache disabled: %v\n", err)
	}

	pl := resolveLocation(ctx, cfg, c, newDetector())

	zone, err := cfg.Zone()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return &env{
		cfg:      cfg,
		cache:    c,
		place:    pl,
		zone:     zone,
		selected: cfg.PrayerList(),
		layout:   cfg.TimeLayout(),
	}, nil
}

// resolveLocation fills in coordinates and timezone when the config has
// none. Priority: flags/config > cached geolocation > IP auto-detect >
// the default location.
func resolveLocation(ctx context.Context, cfg *config.Config, c *cache.Cache, d detector) place {
	if cfg.HasCoordinates() {
		return place{Label: configLabel(cfg), CountryCode: cfg.CountryCode(), Source: "config"}
	}

	var (
		loc    *geo.Location
		source string
	)
	if c != nil {
		if cached := c.LoadGeo(); cached != nil {
			loc, source = cached, "cache"
		}
	}
	if loc == nil && d != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		detected, err := d.Detect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: location auto-detection failed, using %.3f, %.3f: %v\n",
				config.DefaultLatitude, config.DefaultLongitude, err)
		} else {
			loc, source = detected, "detected"
			if c != nil {
				_ = c.SaveGeo(detected) // best-effort
			}
		}
	}

	if loc == nil {
		cfg.SetCoordinates(config.DefaultLatitude, config.DefaultLongitude)
		return place{Label: configLabel(cfg), CountryCode: cfg.CountryCode(), Source: "default"}
	}

	cfg.SetCoordinates(loc.Latitude, loc.Longitude)
	if cfg.Timezone == "" && loc.Timezone != "" {
		if _, err := time.LoadLocation(loc.Timezone); err == nil {
			cfg.Timezone = loc.Timezone
		}
	}
	if cfg.City == "" {
		cfg.City = loc.City
	}
	if cfg.Country == "" {
		cfg.Country = loc.Country
	}

	code := cfg.CountryCode()
	if code == "" {
		code = loc.CountryCode
	}
	return place{Label: configLabel(cfg), CountryCode: code, Source: source}
}

// configLabel builds a "City, Country" string, falling back to coordinates.
func configLabel(cfg *config.Config) string {
	if cfg.City != "" && cfg.Country != "" {
		return cfg.City + ", " + cfg.Country
	}
	loc := cfg.Location()
	return fmt.Sprintf("%.4f, %.4f", loc.Latitude, loc.Longitude)
}

// schedule builds the schedule for the civil date of day, with the next
// event judged at at.
func (e *env) schedule(day, at time.Time) (*schedule.Schedule, error) {
	req, err := e.cfg.Request(day.In(e.zone), e.place.CountryCode)
	if err != nil {
		return nil, err
	}
	return schedule.Build(req, at)
}

// days builds n consecutive schedules starting at the civil date of start.
func (e *env) days(start time.Time, n int) ([]*schedule.Schedule, error) {
	out := make([]*schedule.Schedule, 0, n)
	start = start.In(e.zone)
	for i := 0; i < n; i++ {
		s, err := e.schedule(start.AddDate(0, 0, i), start)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// upcoming returns the next selected prayer after at, moving on to
// tomorrow's schedule once today's selection has passed.
func (e *env) upcoming(today *schedule.Schedule, at time.Time) (*prayer.Prayer, error) {
	if next := prayer.NextPrayer(prayer.Filter(today.Day(), e.selected), at); next != nil {
		return next, nil
	}

	if p := today.Prayer(prayer.NextFajr); e.tracks(p.Name) && !p.Extreme && p.Time.After(at) {
		return &p, nil
	}

	tomorrow, err := e.schedule(today.Date.AddDate(0, 0, 1), at)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tomorrow's times: %w", err)
	}
	if next := prayer.NextPrayer(prayer.Filter(tomorrow.Day(), e.selected), at); next != nil {
		return next, nil
	}
	return nil, errors.New("could not determine next prayer")
}

func (e *env) tracks(name string) bool {
	for _, n := range e.selected {
		if n == name {
			return true
		}
	}
	return false
}
