package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/athan/internal/cli"
	"github.com/smokyabdulrahman/athan/internal/config"
	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

// configKeys maps flags onto the settings they override.
var configKeys = map[string]string{
	"latitude":    "latitude",
	"longitude":   "longitude",
	"altitude":    "altitude",
	"timezone":    "timezone",
	"method":      "method",
	"school":      "school",
	"rounding":    "rounding",
	"offset":      "offset_minutes",
	"time-format": "time_format",
	"prayers":     "prayers",
	"cache-dir":   "cache_dir",
}

func main() {
	fs := pflag.NewFlagSet("tmux-prayer-times", pflag.ExitOnError)

	// Location flags
	fs.Float64("latitude", 0, "Latitude for prayer time calculation")
	fs.Float64("longitude", 0, "Longitude for prayer time calculation")
	fs.Float64("altitude", 0, "Observer altitude in meters")
	fs.String("timezone", "", "IANA timezone (default: detected or system)")

	// Calculation flags
	fs.Int("method", -1, fmt.Sprintf("Calculation method ID (0-%d). -1 picks from the region.", method.Builtin.Len()-1))
	fs.Int("school", -1, "Juristic school: 0=Shafi, 1=Hanafi. -1 keeps the method's.")
	fs.String("rounding", "", "Rounding: "+strings.Join(schedule.RoundingNames, ", "))
	fs.Int("offset", 0, "Minutes added to every time")

	// Display flags
	format := fs.String("format", prayer.FormatNameAndTime, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, countdown, or a custom Go template (e.g. '{{.Name}} in {{.Remaining}}'). Template fields: .Name, .ShortName, .Time, .Remaining, .Countdown, .Hours, .Minutes, .Estimated")
	fs.String("time-format", "24h", "Time format: 12h or 24h")
	fs.String("prayers", "", "Comma-separated list of prayers to track (default: Fajr,Sunrise,Dhuhr,Asr,Maghrib,Isha)")

	// Cache flags
	fs.String("cache-dir", "", "Cache directory (default: ~/.cache/prayer-times/)")

	// Info flags
	showVersion := fs.Bool("version", false, "Print version and exit")
	listMethods := fs.Bool("list-methods", false, "Print supported calculation methods and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("tmux-prayer-times %s\n", version)
		return
	}

	if *listMethods {
		printMethods()
		return
	}

	if err := run(fs, *format); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// printMethods prints the table of supported calculation methods.
func printMethods() {
	def := method.Default()
	fmt.Println("Supported calculation methods:")
	fmt.Println()
	fmt.Printf("  %-4s %s\n", "ID", "Name")
	fmt.Printf("  %-4s %s\n", "──", "────")
	for _, m := range method.Builtin.All() {
		name := m.Name
		if m.ID == def.ID {
			name += " (default)"
		}
		fmt.Printf("  %-4d %s\n", m.ID, name)
	}
	fmt.Println()
	fmt.Println("Use --method <ID> to select a calculation method.")
	fmt.Println("If omitted, the method is picked from your country.")
}

// settings loads the config file and applies the flags that were set.
func settings(fs *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var setErr error
	fs.Visit(func(f *pflag.Flag) {
		key, ok := configKeys[f.Name]
		if !ok || setErr != nil {
			return
		}
		if err := cfg.Set(key, f.Value.String()); err != nil {
			setErr = fmt.Errorf("--%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return nil, setErr
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "24h"
	}
	return cfg, nil
}

func run(fs *pflag.FlagSet, format string) error {
	cfg, err := settings(fs)
	if err != nil {
		return err
	}

	out, err := cli.StatusLine(context.Background(), cfg, format)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
