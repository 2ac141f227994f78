package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smokyabdulrahman/athan/internal/api"
	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/display"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
	"github.com/spf13/cobra"
)

var flagCompareDate string

// newAPIClient is swapped out in tests.
var newAPIClient = api.NewClient

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare local times against the Al Adhan API",
		Long:  "Compute the day's schedule locally and show how many minutes each time differs from the Al Adhan API using the equivalent method.",
		Args:  cobra.NoArgs,
		RunE:  runCompare,
	}

	cmd.Flags().StringVar(&flagCompareDate, "date", "", "Date to compare, YYYY-MM-DD (default: today)")

	return cmd
}

// diffRow is one prayer compared against the reference.
type diffRow struct {
	Prayer    string `json:"prayer"`
	Local     string `json:"local"`
	Reference string `json:"reference"`
	Minutes   int    `json:"diff_minutes"`
	Estimated bool   `json:"estimated,omitempty"`
}

type compareJSON struct {
	Location todayJSONLocation `json:"location"`
	Date     string            `json:"date"`
	Method   todayJSONMethod   `json:"method"`
	Rows     []diffRow         `json:"rows"`
	Hijri    *compareHijri     `json:"hijri,omitempty"`
}

type compareHijri struct {
	Local     astro.HijriDate `json:"local"`
	Reference astro.HijriDate `json:"reference"`
}

// referenceDay is one day of Al Adhan output parsed for comparison.
type referenceDay struct {
	Prayers []prayer.Prayer
	Hijri   *astro.HijriDate
}

func runCompare(cmd *cobra.Command, args []string) error {
	e, err := prepare(cmd)
	if err != nil {
		return err
	}

	day := clock().In(e.zone)
	if flagCompareDate != "" {
		day, err = time.ParseInLocation("2006-01-02", flagCompareDate, e.zone)
		if err != nil {
			return fmt.Errorf("invalid --date %q: must be YYYY-MM-DD", flagCompareDate)
		}
	}

	sched, err := e.schedule(day, day)
	if err != nil {
		return err
	}

	ref, err := e.reference(cmd.Context(), sched)
	if err != nil {
		return err
	}

	rows := diffRows(sched.Day(), ref.Prayers, e.layout)
	local := astro.Hijri(sched.Date)

	if FlagJSON {
		out := compareJSON{
			Location: jsonLocation(e),
			Date:     sched.Date.Format("2006-01-02"),
			Method:   todayJSONMethod{ID: sched.Method.ID, Name: sched.Method.Name, School: sched.Method.School()},
			Rows:     rows,
		}
		if ref.Hijri != nil {
			out.Hijri = &compareHijri{Local: local, Reference: *ref.Hijri}
		}
		return writeJSON(os.Stdout, out)
	}

	w := os.Stdout
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Local vs Al Adhan"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", e.place.Label)
	fmt.Fprintf(w, "  %s, %s (Al Adhan method %d)\n", sched.Date.Format("02 January 2006"), sched.Method.Name, sched.Method.AlAdhanID)
	fmt.Fprintln(w)
	fmt.Fprint(w, renderDiff(rows))
	fmt.Fprintln(w)
	writeDiffSummary(w, rows)
	writeHijriComparison(w, local, ref.Hijri)
	fmt.Fprintln(w)
	return nil
}

// reference returns the Al Adhan timings for the schedule's date, from the
// cache when possible.
func (e *env) reference(ctx context.Context, sched *schedule.Schedule) (*referenceDay, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	loc := sched.Location
	q := api.QueryFor(sched.Date, loc.Latitude, loc.Longitude, sched.Method)

	var (
		timings  api.Timings
		timezone string
		hijri    *astro.HijriDate
	)
	if e.cache != nil {
		if entry := e.cache.LoadReference(q); entry != nil {
			timings, timezone, hijri = entry.Timings, entry.Meta.Timezone, entry.Hijri
		}
	}
	if timezone == "" {
		resp, err := newAPIClient().FetchByCoordinates(ctx, q)
		if err != nil {
			return nil, err
		}
		if e.cache != nil {
			_ = e.cache.SaveReference(q, resp) // best-effort
		}
		timings, timezone = resp.Data.Timings, resp.Data.Meta.Timezone
		if h, err := resp.Data.Date.Hijri.Civil(); err == nil {
			hijri = &h
		}
	}

	// Reference clocks are wall times in the zone the API answered for.
	zone := sched.Date.Location()
	if q.Timezone == "" || q.Timezone == "Local" {
		if z, err := time.LoadLocation(timezone); err == nil {
			zone = z
		}
	}
	date := time.Date(sched.Date.Year(), sched.Date.Month(), sched.Date.Day(), 0, 0, 0, 0, zone)
	prayers, err := prayer.ParseTimings(timings, date, zone, prayer.AllPrayerNames)
	if err != nil {
		return nil, err
	}
	return &referenceDay{Prayers: prayers, Hijri: hijri}, nil
}

// diffRows pairs local and reference prayers by name.
func diffRows(local, ref []prayer.Prayer, layout string) []diffRow {
	byName := make(map[string]prayer.Prayer, len(ref))
	for _, p := range ref {
		byName[p.Name] = p
	}

	var rows []diffRow
	for _, p := range local {
		r, ok := byName[p.Name]
		if !ok {
			continue
		}
		rows = append(rows, diffRow{
			Prayer:    p.Name,
			Local:     p.Clock(layout),
			Reference: r.Time.In(p.Time.Location()).Format(layout),
			Minutes:   int(p.Time.Sub(r.Time).Round(time.Minute) / time.Minute),
			Estimated: p.Extreme,
		})
	}
	return rows
}

func renderDiff(rows []diffRow) string {
	tbl := display.NewTable([]string{"Prayer", "Local", "Al Adhan", "Diff"})
	tbl.AlignRight(3)
	for _, r := range rows {
		tbl.AddRow([]string{r.Prayer, r.Local, r.Reference, display.Signed(r.Minutes)})
	}
	return tbl.Render()
}

// writeDiffSummary reports the largest absolute difference.
func writeDiffSummary(w io.Writer, rows []diffRow) {
	worst := 0
	name := ""
	for _, r := range rows {
		m := r.Minutes
		if m < 0 {
			m = -m
		}
		if m > worst {
			worst, name = m, r.Prayer
		}
	}
	if worst == 0 {
		fmt.Fprintln(w, "  All times match.")
		return
	}
	fmt.Fprintf(w, "  Largest difference: %s, %d min\n", name, worst)
}

// writeHijriComparison notes when the arithmetic Hijri date disagrees with
// the observed one.
func writeHijriComparison(w io.Writer, local astro.HijriDate, ref *astro.HijriDate) {
	if ref == nil {
		return
	}
	if local == *ref {
		fmt.Fprintf(w, "  Hijri date matches: %s\n", local)
		return
	}
	fmt.Fprintf(w, "  Hijri date: %s here, %s from Al Adhan\n", local, *ref)
}
