package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/display"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
	"github.com/spf13/cobra"
)

var flagQueryDays string

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <prayer>",
		Short: "Query a specific prayer time",
		Long:  "Query a specific prayer time for today, or across multiple days with --days.\n\nValid prayer names: " + strings.Join(prayer.AllPrayerNames, ", "),
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().StringVar(&flagQueryDays, "days", "", "Number of days to show (or 'week'/'month')")

	return cmd
}

// parsePrayerName normalizes a case-insensitive prayer name.
func parsePrayerName(arg string) (string, error) {
	for _, name := range prayer.AllPrayerNames {
		if strings.EqualFold(name, arg) {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown prayer %q; valid names: %s", arg, strings.Join(prayer.AllPrayerNames, ", "))
}

// parseQueryDays interprets the --days flag.
func parseQueryDays(v string) (int, error) {
	switch v {
	case "":
		return 1, nil
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	n, err := parseDays(v)
	if err != nil {
		return 0, fmt.Errorf("invalid --days value %q: must be a positive integer, 'week', or 'month'", v)
	}
	return n, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	name, err := parsePrayerName(args[0])
	if err != nil {
		return err
	}
	days, err := parseQueryDays(flagQueryDays)
	if err != nil {
		return err
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
		return printQueryJSON(os.Stdout, e, name, schedules)
	}

	if days == 1 {
		fmt.Printf("%s %s\n", name, schedules[0].Format(prayer.IndexOf(name), e.layout))
		return nil
	}

	w := os.Stdout
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Boldf("%s Times, %d Days", name, days))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", e.place.Label)
	fmt.Fprintln(w)
	fmt.Fprint(w, renderGrid(schedules, []string{name}, e.layout))
	fmt.Fprintln(w)
	return nil
}

type queryJSONSingle struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Estimated bool   `json:"estimated,omitempty"`
	Date      string `json:"date"`
	Hijri     string `json:"hijri"`
}

type queryJSONMulti struct {
	Location todayJSONLocation `json:"location"`
	Prayer   string            `json:"prayer"`
	Days     []queryJSONSingle `json:"days"`
}

func printQueryJSON(w io.Writer, e *env, name string, schedules []*schedule.Schedule) error {
	idx := prayer.IndexOf(name)
	entries := make([]queryJSONSingle, 0, len(schedules))
	for _, s := range schedules {
		p := s.Prayer(idx)
		entries = append(entries, queryJSONSingle{
			Prayer:    strings.ToLower(name),
			Time:      p.Time.Format(e.layout),
			Estimated: p.Extreme,
			Date:      s.Date.Format("02 Jan 2006"),
			Hijri:     astro.Hijri(s.Date).String(),
		})
	}

	if len(entries) == 1 {
		return writeJSON(w, entries[0])
	}
	return writeJSON(w, queryJSONMulti{
		Location: jsonLocation(e),
		Prayer:   strings.ToLower(name),
		Days:     entries,
	})
}
