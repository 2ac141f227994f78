package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/display"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
	"github.com/spf13/cobra"
)

// maxDays caps list and query ranges.
const maxDays = 366

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [days]",
		Short: "Show prayer times for multiple days",
		Long:  "Display a grid of prayer times for N days (default: 7).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, 7)
		},
	}
}

func newWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show prayer times for the next 7 days",
		Long:  "Alias for 'list 7'. Display a grid of prayer times for 7 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 7)
		},
	}
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month",
		Short: "Show prayer times for the next 30 days",
		Long:  "Alias for 'list 30'. Display a grid of prayer times for 30 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 30)
		},
	}
}

// parseDays parses a day count argument.
func parseDays(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > maxDays {
		return 0, fmt.Errorf("invalid number of days: %q (must be between 1 and %d)", arg, maxDays)
	}
	return n, nil
}

// runList is the handler for the list subcommand.
func runList(cmd *cobra.Command, args []string, defaultDays int) error {
	days := defaultDays
	if len(args) > 0 {
		n, err := parseDays(args[0])
		if err != nil {
			return err
		}
		days = n
	}

	e, err := prepare(cmd)
	if err != nil {
		return err
	}

	schedules, err := e.days(clock(), days)
	if err != nil {
		return err
	}

	if FlagJSON {
		return printListJSON(os.Stdout, e, schedules)
	}

	w := os.Stdout
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Boldf("Prayer Times, %d Days", days))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", e.place.Label)
	fmt.Fprintln(w)
	fmt.Fprint(w, renderGrid(schedules, e.selected, e.layout))
	fmt.Fprintln(w)
	return nil
}

// renderGrid renders one row per day with a column per selected prayer.
// The first row is today and is highlighted.
func renderGrid(schedules []*schedule.Schedule, selected []string, layout string) string {
	headers := append([]string{"Date"}, selected...)
	tbl := display.NewTable(headers)

	for _, s := range schedules {
		row := []string{s.Date.Format("Mon 02 Jan")}
		for _, p := range prayer.Filter(s.Day(), selected) {
			row = append(row, p.Clock(layout))
		}
		tbl.AddRow(row)
	}
	if len(schedules) > 0 {
		tbl.SetHighlightRow(0)
	}
	return tbl.Render()
}

// listJSONOutput is the JSON structure for the list command.
type listJSONOutput struct {
	Location todayJSONLocation `json:"location"`
	Method   todayJSONMethod   `json:"method"`
	Days     []listJSONDay     `json:"days"`
}

type listJSONDay struct {
	Date      string            `json:"date"`
	Hijri     string            `json:"hijri"`
	Timings   map[string]string `json:"timings"`
	Estimated []string          `json:"estimated,omitempty"`
}

func printListJSON(w io.Writer, e *env, schedules []*schedule.Schedule) error {
	out := listJSONOutput{Location: jsonLocation(e)}
	if len(schedules) > 0 {
		m := schedules[0].Method
		out.Method = todayJSONMethod{ID: m.ID, Name: m.Name, School: m.School()}
	}

	for _, s := range schedules {
		day := listJSONDay{
			Date:    s.Date.Format("02 Jan 2006"),
			Hijri:   astro.Hijri(s.Date).String(),
			Timings: make(map[string]string),
		}
		for _, p := range prayer.Filter(s.Day(), e.selected) {
			key := strings.ToLower(p.Name)
			day.Timings[key] = p.Time.Format(e.layout)
			if p.Extreme {
				day.Estimated = append(day.Estimated, key)
			}
		}
		out.Days = append(out.Days, day)
	}

	return writeJSON(w, out)
}
