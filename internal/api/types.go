package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/athan/internal/astro"
)

// Response is the envelope of a /timings answer.
type Response struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   Data   `json:"data"`
}

// Data is one day of reference output.
type Data struct {
	Timings Timings  `json:"timings"`
	Date    DateInfo `json:"date"`
	Meta    Meta     `json:"meta"`
}

// Timings holds wall-clock "HH:MM" strings, sometimes suffixed with a zone
// abbreviation like " (BST)".
type Timings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Sunset  string `json:"Sunset"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

type DateInfo struct {
	Readable string    `json:"readable"`
	Hijri    HijriDate `json:"hijri"`
}

// HijriDate is the observed Hijri date as the API reports it. Day and year
// arrive as strings.
type HijriDate struct {
	Day   string     `json:"day"`
	Month HijriMonth `json:"month"`
	Year  string     `json:"year"`
}

type HijriMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
}

// Civil converts h to the representation the local Hijri approximation
// uses, so the two can be compared.
func (h HijriDate) Civil() (astro.HijriDate, error) {
	day, err := strconv.Atoi(h.Day)
	if err != nil || day < 1 || day > 30 {
		return astro.HijriDate{}, fmt.Errorf("invalid hijri day %q", h.Day)
	}
	year, err := strconv.Atoi(h.Year)
	if err != nil || year < 1 {
		return astro.HijriDate{}, fmt.Errorf("invalid hijri year %q", h.Year)
	}
	if h.Month.Number < 1 || h.Month.Number > 12 {
		return astro.HijriDate{}, fmt.Errorf("invalid hijri month %d", h.Month.Number)
	}
	return astro.HijriDate{Day: day, Month: time.Month(h.Month.Number), Year: year}, nil
}

// Meta echoes the parameters the API resolved for the request.
type Meta struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Method    MethodInfo `json:"method"`
	School    string     `json:"school"`
}

type MethodInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
