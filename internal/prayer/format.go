package prayer

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Display modes accepted by FormatOutput.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatFull               = "full"
	FormatCountdown          = "countdown"
)

// FormatData is what custom templates see.
type FormatData struct {
	Name      string // "Asr"
	ShortName string // "A"
	Time      string // "15:02", with the extreme marker when estimated
	Remaining string // "2h 15m"
	Countdown string // "2:15"
	Hours     int
	Minutes   int
	Estimated bool
}

var modes = map[string]func(FormatData) string{
	FormatTimeRemaining:      func(d FormatData) string { return d.Remaining },
	FormatNextPrayerTime:     func(d FormatData) string { return d.Time },
	FormatNameAndTime:        func(d FormatData) string { return d.Name + " " + d.Time },
	FormatNameAndRemaining:   func(d FormatData) string { return d.Name + " " + d.Remaining },
	FormatShortNameAndTime:   func(d FormatData) string { return d.ShortName + " " + d.Time },
	FormatShortNameAndRemain: func(d FormatData) string { return d.ShortName + " " + d.Remaining },
	FormatFull:               func(d FormatData) string { return fmt.Sprintf("%s %s (%s)", d.Name, d.Time, d.Remaining) },
	FormatCountdown:          func(d FormatData) string { return d.ShortName + " " + d.Countdown },
}

// isTemplate reports whether mode is a Go template rather than a named mode.
func isTemplate(mode string) bool { return strings.Contains(mode, "{{") }

// CheckFormat rejects unknown mode names and templates that do not parse
// or reference missing fields.
func CheckFormat(mode string) error {
	if !isTemplate(mode) {
		if _, ok := modes[mode]; !ok {
			return fmt.Errorf("unknown format %q", mode)
		}
		return nil
	}
	t, err := template.New("format").Option("missingkey=error").Parse(mode)
	if err != nil {
		return fmt.Errorf("invalid format template: %w", err)
	}
	if err := t.Execute(&strings.Builder{}, FormatData{}); err != nil {
		return fmt.Errorf("invalid format template: %w", err)
	}
	return nil
}

// FormatOutput renders p for a status line. layout is a Go time layout
// ("15:04" or "3:04 PM"). A mode containing "{{" is executed as a template
// against FormatData; an unknown mode falls back to name-and-time. Template
// failures come back as "template-err: ..." so a status bar never goes blank.
func FormatOutput(p Prayer, now time.Time, mode string, layout string) string {
	d := TimeRemaining(p, now)
	if d < 0 {
		d = 0
	}
	data := FormatData{
		Name:      p.Name,
		ShortName: ShortNames[p.Name],
		Time:      p.Clock(layout),
		Remaining: FormatRemaining(d),
		Countdown: fmt.Sprintf("%d:%02d", int(d.Hours()), int(d.Minutes())%60),
		Hours:     int(d.Hours()),
		Minutes:   int(d.Minutes()) % 60,
		Estimated: p.Extreme,
	}

	if isTemplate(mode) {
		return execute(mode, data)
	}
	if render, ok := modes[mode]; ok {
		return render(data)
	}
	return modes[FormatNameAndTime](data)
}

func execute(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return "template-err: " + err.Error()
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "template-err: " + err.Error()
	}
	return sb.String()
}
