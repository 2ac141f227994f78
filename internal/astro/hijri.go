package astro

import (
	"fmt"
	"math"
	"time"
)

// HijriMonths are the twelve months of the Islamic calendar.
var HijriMonths = [12]string{
	"Muharram", "Safar", "Rabi' al-awwal", "Rabi' al-thani",
	"Jumada al-awwal", "Jumada al-thani", "Rajab", "Sha'ban",
	"Ramadan", "Shawwal", "Dhu al-Qi'dah", "Dhu al-Hijjah",
}

const (
	hijriEpoch = 1948439.5
	hijriYear  = 354.367
	hijriMonth = 29.531
)

// HijriDate is an approximate arithmetic Hijri date. It can be a day off
// from the observed calendar.
type HijriDate struct {
	Day   int        `json:"day"`
	Month time.Month `json:"month"`
	Year  int        `json:"year"`
}

// Hijri converts the civil date of t to an approximate Hijri date.
func Hijri(t time.Time) HijriDate {
	days := float64(JulianDay(t.Year(), t.Month(), t.Day())) - hijriEpoch

	year := int(math.Floor(days/hijriYear)) + 1
	rem := days - float64(year-1)*hijriYear

	month := int(math.Floor(rem/hijriMonth)) + 1
	if month > 12 {
		month = 12
	}
	day := int(math.Floor(rem-float64(month-1)*hijriMonth)) + 1

	return HijriDate{Day: day, Month: time.Month(month), Year: year}
}

// MonthName returns the transliterated month name.
func (h HijriDate) MonthName() string {
	if h.Month < 1 || h.Month > 12 {
		return ""
	}
	return HijriMonths[h.Month-1]
}

func (h HijriDate) String() string {
	return fmt.Sprintf("%d %s %d AH", h.Day, h.MonthName(), h.Year)
}
