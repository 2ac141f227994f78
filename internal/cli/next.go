package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smokyabdulrahman/athan/internal/config"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/spf13/cobra"
)

var (
	flagFormat  string
	flagPrayers string
)

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown.\nThis is equivalent to the tmux-prayer-times default behavior.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, countdown, or a custom Go template")
	cmd.Flags().StringVar(&flagPrayers, "prayers", "", "Comma-separated list of prayers to track (overrides config)")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	if err := prayer.CheckFormat(flagFormat); err != nil {
		return err
	}
	e, err := prepare(cmd)
	if err != nil {
		return err
	}

	next, now, err := e.next()
	if err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(os.Stdout, todayJSONNext{
			Prayer:    next.Name,
			Time:      next.Clock(e.layout),
			Remaining: remaining(*next, now),
		})
	}

	fmt.Print(prayer.FormatOutput(*next, now, flagFormat, e.layout))
	return nil
}

// next returns the upcoming tracked prayer and the instant it was judged at.
func (e *env) next() (*prayer.Prayer, time.Time, error) {
	now := clock().In(e.zone)
	sched, err := e.schedule(now, now)
	if err != nil {
		return nil, now, err
	}
	p, err := e.upcoming(sched, now)
	return p, now, err
}

// StatusLine resolves cfg the same way the CLI does and renders the next
// prayer in the given format. It is the whole of the tmux status binary.
func StatusLine(ctx context.Context, cfg *config.Config, format string) (string, error) {
	e, err := newEnv(ctx, cfg)
	if err != nil {
		return "", err
	}
	next, now, err := e.next()
	if err != nil {
		return "", err
	}
	return prayer.FormatOutput(*next, now, format, e.layout), nil
}
