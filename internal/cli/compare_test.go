package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smokyabdulrahman/athan/internal/api"
	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/cache"
	"github.com/smokyabdulrahman/athan/internal/prayer"
)

func TestDiffRows(t *testing.T) {
	zone := toronto(t)
	at := func(h, m int) time.Time { return time.Date(2024, 3, 20, h, m, 0, 0, zone) }

	local := []prayer.Prayer{
		{Name: "Fajr", Time: at(6, 8)},
		{Name: "Dhuhr", Time: at(13, 30)},
		{Name: "Isha", Time: at(20, 53), Extreme: true},
	}
	ref := []prayer.Prayer{
		{Name: "Fajr", Time: at(6, 6)},
		{Name: "Isha", Time: at(20, 54)},
	}

	rows := diffRows(local, ref, "15:04")
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}

	want := []diffRow{
		{Prayer: "Fajr", Local: "06:08", Reference: "06:06", Minutes: 2},
		{Prayer: "Isha", Local: "20:53 *", Reference: "20:54", Minutes: -1, Estimated: true},
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestWriteDiffSummary(t *testing.T) {
	tests := []struct {
		name string
		rows []diffRow
		want string
	}{
		{"empty", nil, "  All times match.\n"},
		{"all zero", []diffRow{{Prayer: "Fajr"}, {Prayer: "Isha"}}, "  All times match.\n"},
		{"largest absolute", []diffRow{
			{Prayer: "Fajr", Minutes: 2},
			{Prayer: "Isha", Minutes: -3},
			{Prayer: "Asr", Minutes: 1},
		}, "  Largest difference: Isha, 3 min\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeDiffSummary(&buf, tt.rows)
			if buf.String() != tt.want {
				t.Errorf("writeDiffSummary() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteHijriComparison(t *testing.T) {
	local := astro.HijriDate{Day: 10, Month: 9, Year: 1445}

	var buf bytes.Buffer
	writeHijriComparison(&buf, local, nil)
	if buf.Len() != 0 {
		t.Errorf("nil reference wrote %q", buf.String())
	}

	writeHijriComparison(&buf, local, &local)
	if buf.String() != "  Hijri date matches: 10 Ramadan 1445 AH\n" {
		t.Errorf("match = %q", buf.String())
	}

	buf.Reset()
	observed := astro.HijriDate{Day: 9, Month: 9, Year: 1445}
	writeHijriComparison(&buf, local, &observed)
	if buf.String() != "  Hijri date: 10 Ramadan 1445 AH here, 9 Ramadan 1445 AH from Al Adhan\n" {
		t.Errorf("mismatch = %q", buf.String())
	}
}

func TestRenderDiff(t *testing.T) {
	plain(t)
	out := renderDiff([]diffRow{
		{Prayer: "Fajr", Local: "06:08", Reference: "06:06", Minutes: 2},
		{Prayer: "Dhuhr", Local: "13:30", Reference: "13:30"},
	})

	for _, want := range []string{"Al Adhan", "06:06", "+2", "13:30"} {
		if !strings.Contains(out, want) {
			t.Errorf("diff table missing %q\n%s", want, out)
		}
	}
}

// referenceServer answers every timings request with the given clocks.
func referenceServer(t *testing.T, timings api.Timings, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		if !strings.HasPrefix(r.URL.Path, "/timings/20-03-2024") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("method") != "2" {
			t.Errorf("method = %q, want 2", q.Get("method"))
		}
		if q.Get("school") != "0" {
			t.Errorf("school = %q, want 0", q.Get("school"))
		}
		if q.Get("timezonestring") != "America/Toronto" {
			t.Errorf("timezonestring = %q, want America/Toronto", q.Get("timezonestring"))
		}

		resp := api.Response{Code: 200, Status: "OK", Data: api.Data{
			Timings: timings,
			Date: api.DateInfo{Hijri: api.HijriDate{
				Day: "10", Month: api.HijriMonth{Number: 9, En: "Ramadan"}, Year: "1445",
			}},
			Meta: api.Meta{Timezone: "America/Toronto"},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func useAPIServer(t *testing.T, srv *httptest.Server) {
	t.Helper()
	prev := newAPIClient
	newAPIClient = func() *api.Client {
		c := api.NewClient()
		c.BaseURL = srv.URL
		return c
	}
	t.Cleanup(func() { newAPIClient = prev })
}

func TestEnvReference_UsesCache(t *testing.T) {
	var calls int32
	srv := referenceServer(t, api.Timings{
		Fajr: "06:04", Sunrise: "07:24", Dhuhr: "13:30", Asr: "16:54",
		Sunset: "19:33", Maghrib: "19:34", Isha: "20:55 (EDT)",
	}, &calls)
	useAPIServer(t, srv)

	c, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e := waterlooEnv(t)
	e.cache = c

	day := time.Date(2024, 3, 20, 12, 0, 0, 0, e.zone)
	sched, err := e.schedule(day, day)
	if err != nil {
		t.Fatal(err)
	}

	ref, err := e.reference(context.Background(), sched)
	if err != nil {
		t.Fatalf("reference() error: %v", err)
	}
	if len(ref.Prayers) != len(prayer.AllPrayerNames) {
		t.Fatalf("got %d reference prayers, want %d", len(ref.Prayers), len(prayer.AllPrayerNames))
	}
	if ref.Hijri == nil || ref.Hijri.Year != 1445 || ref.Hijri.Day != 10 {
		t.Errorf("hijri = %+v, want 10 Ramadan 1445", ref.Hijri)
	}

	rows := diffRows(sched.Day(), ref.Prayers, e.layout)
	got := map[string]int{}
	for _, r := range rows {
		got[r.Prayer] = r.Minutes
	}
	if got["Fajr"] != 2 || got["Isha"] != -1 || got["Dhuhr"] != 0 {
		t.Errorf("diffs = %v, want Fajr 2, Isha -1, Dhuhr 0", got)
	}

	cached, err := e.reference(context.Background(), sched)
	if err != nil {
		t.Fatalf("second reference() error: %v", err)
	}
	if cached.Hijri == nil || *cached.Hijri != *ref.Hijri {
		t.Errorf("cached hijri = %+v, want %+v", cached.Hijri, ref.Hijri)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("API called %d times, want 1 (second call cached)", n)
	}
}

func TestEnvReference_MatchingClocks(t *testing.T) {
	var calls int32
	srv := referenceServer(t, api.Timings{
		Fajr: "06:06", Sunrise: "07:24", Dhuhr: "13:30", Asr: "16:54",
		Sunset: "19:34", Maghrib: "19:34", Isha: "20:54",
	}, &calls)
	useAPIServer(t, srv)

	e := waterlooEnv(t)
	day := time.Date(2024, 3, 20, 12, 0, 0, 0, e.zone)
	sched, err := e.schedule(day, day)
	if err != nil {
		t.Fatal(err)
	}

	ref, err := e.reference(context.Background(), sched)
	if err != nil {
		t.Fatalf("reference() error: %v", err)
	}

	var buf bytes.Buffer
	writeDiffSummary(&buf, diffRows(sched.Day(), ref.Prayers, e.layout))
	if buf.String() != "  All times match.\n" {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestEnvReference_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	useAPIServer(t, srv)

	e := waterlooEnv(t)
	day := time.Date(2024, 3, 20, 12, 0, 0, 0, e.zone)
	sched, err := e.schedule(day, day)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.reference(context.Background(), sched); err == nil {
		t.Fatal("expected error from failing API")
	}
}
