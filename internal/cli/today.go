package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/display"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
	"github.com/spf13/cobra"
)

func runToday(cmd *cobra.Command, args []string) error {
	e, err := prepare(cmd)
	if err != nil {
		return err
	}

	now := clock().In(e.zone)
	sched, err := e.schedule(now, now)
	if err != nil {
		return err
	}

	prayers := prayer.Filter(sched.Day(), e.selected)
	current := prayer.CurrentPrayer(prayers, now)
	next, err := e.upcoming(sched, now)
	if err != nil {
		return err
	}

	if FlagJSON {
		return printTodayJSON(os.Stdout, e, sched, prayers, current, next, now)
	}

	printTodayRich(os.Stdout, e, sched, prayers, current, next, now)
	return nil
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(w io.Writer, e *env, sched *schedule.Schedule, prayers []prayer.Prayer, current, next *prayer.Prayer, now time.Time) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Prayer Times"))
	fmt.Fprintln(w)

	// Location and date info.
	fmt.Fprintf(w, "  %s\n", e.place.Label)
	fmt.Fprintf(w, "  %s\n", e.zone)
	fmt.Fprintf(w, "  %s\n", now.Format("02 January 2006"))
	fmt.Fprintf(w, "  %s\n", astro.Hijri(now))
	fmt.Fprintf(w, "  %s\n", display.Gray(fmt.Sprintf("%s, %s Asr", sched.Method.Name, sched.Method.School())))
	fmt.Fprintln(w)

	// Find the max prayer name length for alignment.
	maxNameLen := 0
	for _, p := range prayers {
		if len(p.Name) > maxNameLen {
			maxNameLen = len(p.Name)
		}
	}

	estimated := false
	for _, p := range prayers {
		timeStr := p.Time.Format(e.layout)
		if p.Extreme {
			estimated = true
			timeStr = display.Estimated(timeStr, prayer.ExtremeMarker)
		}
		line := fmt.Sprintf("  %s  %s", padRight(p.Name, maxNameLen), timeStr)

		switch {
		case current != nil && p.Name == current.Name:
			// Current prayer: dimmed.
			fmt.Fprintln(w, display.Dim(line))
		case next != nil && p.Name == next.Name && p.Time.Equal(next.Time):
			// Next prayer: accent color + countdown.
			fmt.Fprintln(w, display.Accent(line)+display.Accent("  <- next in "+remaining(*next, now)))
		default:
			fmt.Fprintln(w, line)
		}
	}

	if next != nil && !next.Time.Before(sched.Times[prayer.NextFajr]) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", display.Accent(fmt.Sprintf("Next: %s tomorrow at %s (in %s)",
			next.Name, next.Clock(e.layout), remaining(*next, now))))
	}

	if estimated {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", display.Gray(strings.TrimSpace(prayer.ExtremeMarker)+" estimated: the sun does not reach this angle today"))
	}

	fmt.Fprintln(w)
}

func remaining(p prayer.Prayer, now time.Time) string {
	return prayer.FormatRemaining(prayer.TimeRemaining(p, now))
}

// padRight pads a string to the given width with spaces.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location  todayJSONLocation `json:"location"`
	Date      todayJSONDate     `json:"date"`
	Method    todayJSONMethod   `json:"method"`
	Timings   map[string]string `json:"timings"`
	Estimated []string          `json:"estimated,omitempty"`
	Current   string            `json:"current"`
	Next      *todayJSONNext    `json:"next"`
}

type todayJSONLocation struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type todayJSONDate struct {
	Gregorian string          `json:"gregorian"`
	Hijri     string          `json:"hijri"`
	HijriDate astro.HijriDate `json:"hijri_date"`
}

type todayJSONMethod struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	School string `json:"school"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
}

// jsonLocation describes the env's location for JSON output.
func jsonLocation(e *env) todayJSONLocation {
	loc := e.cfg.Location()
	out := todayJSONLocation{
		Timezone:  e.zone.String(),
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}
	if e.cfg.City != "" && e.cfg.Country != "" {
		out.City = e.cfg.City
		out.Country = e.cfg.Country
	}
	return out
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, e *env, sched *schedule.Schedule, prayers []prayer.Prayer, current, next *prayer.Prayer, now time.Time) error {
	timings := make(map[string]string)
	var estimated []string
	for _, p := range prayers {
		key := strings.ToLower(p.Name)
		timings[key] = p.Time.Format(e.layout)
		if p.Extreme {
			estimated = append(estimated, key)
		}
	}

	hijri := astro.Hijri(now)
	out := todayJSON{
		Location: jsonLocation(e),
		Date: todayJSONDate{
			Gregorian: now.Format("02 Jan 2006"),
			Hijri:     hijri.String(),
			HijriDate: hijri,
		},
		Method: todayJSONMethod{
			ID:     sched.Method.ID,
			Name:   sched.Method.Name,
			School: sched.Method.School(),
		},
		Timings:   timings,
		Estimated: estimated,
	}

	if current != nil {
		out.Current = strings.ToLower(current.Name)
	}

	if next != nil {
		out.Next = &todayJSONNext{
			Prayer:    strings.ToLower(next.Name),
			Time:      next.Time.Format(e.layout),
			Remaining: remaining(*next, now),
		}
	}

	return writeJSON(w, out)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
