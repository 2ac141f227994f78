// Package display renders terminal output: ANSI styling and aligned tables.
//
// Styling is off when NO_COLOR is set or stdout is not a terminal, and on
// when FORCE_COLOR is set.
package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Style is a sequence of SGR escape codes applied to a piece of text.
type Style []string

const reset = "\033[0m"

// Styles used across the CLI.
var (
	StyleBold      = Style{"\033[1m"}
	StyleDim       = Style{"\033[2m"}
	StyleRed       = Style{"\033[31m"}
	StyleGreen     = Style{"\033[32m"}
	StyleYellow    = Style{"\033[33m"}
	StyleCyan      = Style{"\033[36m"}
	StyleGray      = Style{"\033[90m"}
	StyleAccent    = Style{"\033[1m", "\033[36m"}
	StyleEstimated = StyleYellow
)

var enabled = detect()

func detect() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetEnabled overrides the detected state. --json turns styling off.
func SetEnabled(b bool) { enabled = b }

// Enabled reports whether styling is active.
func Enabled() bool { return enabled }

// Render applies s to text, or returns text unchanged when styling is off.
func (s Style) Render(text string) string {
	if !enabled || len(s) == 0 {
		return text
	}
	return strings.Join(s, "") + text + reset
}

func Bold(text string) string   { return StyleBold.Render(text) }
func Dim(text string) string    { return StyleDim.Render(text) }
func Red(text string) string    { return StyleRed.Render(text) }
func Green(text string) string  { return StyleGreen.Render(text) }
func Yellow(text string) string { return StyleYellow.Render(text) }
func Cyan(text string) string   { return StyleCyan.Render(text) }
func Gray(text string) string   { return StyleGray.Render(text) }

// Accent highlights the next prayer.
func Accent(text string) string { return StyleAccent.Render(text) }

// Boldf is Bold over fmt.Sprintf.
func Boldf(format string, a ...any) string { return Bold(fmt.Sprintf(format, a...)) }

// Estimated renders a time from the high-latitude fallback with its marker.
func Estimated(text, marker string) string { return StyleEstimated.Render(text + marker) }

// Signed renders a minute difference: green at zero, yellow with a sign otherwise.
func Signed(minutes int) string {
	if minutes == 0 {
		return Green("0")
	}
	return Yellow(fmt.Sprintf("%+d", minutes))
}
