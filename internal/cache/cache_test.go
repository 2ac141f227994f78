package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smokyabdulrahman/athan/internal/api"
	"github.com/smokyabdulrahman/athan/internal/geo"
)

func sampleAPIResponse() *api.Response {
	return &api.Response{
		Code:   200,
		Status: "OK",
		Data: api.Data{
			Timings: api.Timings{
				Fajr:    "05:17",
				Sunrise: "06:48",
				Dhuhr:   "12:13",
				Asr:     "15:02",
				Sunset:  "17:39",
				Maghrib: "17:39",
				Isha:    "19:10",
			},
			Date: api.DateInfo{
				Hijri: api.HijriDate{Day: "11", Month: api.HijriMonth{Number: 9, En: "Ramadan"}, Year: "1447"},
			},
			Meta: api.Meta{Timezone: "Europe/London", Method: api.MethodInfo{ID: 2, Name: "ISNA"}},
		},
	}
}

func sampleQuery() api.Query {
	return api.Query{
		Date:      time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		Latitude:  51.5074,
		Longitude: -0.1278,
		Method:    2,
		School:    0,
		Timezone:  "Europe/London",
	}
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir", "cache")
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New(%q) error: %v", dir, err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("directory %q was not created", dir)
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}
}

func TestNew_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := New("")
	if err != nil {
		t.Fatalf("New(\"\") error: %v", err)
	}
	want := filepath.Join(home, ".cache", "prayer-times")
	if c.Dir() != want {
		t.Errorf("Dir() = %q, want %q", c.Dir(), want)
	}
}

// ---------------------------------------------------------------------------
// SaveReference / LoadReference
// ---------------------------------------------------------------------------

func TestReference_RoundTrip(t *testing.T) {
	c, _ := New(t.TempDir())
	q := sampleQuery()

	if err := c.SaveReference(q, sampleAPIResponse()); err != nil {
		t.Fatalf("SaveReference error: %v", err)
	}

	entry := c.LoadReference(q)
	if entry == nil {
		t.Fatal("LoadReference returned nil after save")
	}
	if entry.Timings.Fajr != "05:17" {
		t.Errorf("Fajr = %q, want %q", entry.Timings.Fajr, "05:17")
	}
	if entry.Hijri == nil || entry.Hijri.String() != "11 Ramadan 1447 AH" {
		t.Errorf("Hijri = %v, want 11 Ramadan 1447 AH", entry.Hijri)
	}
	if entry.Method != 2 {
		t.Errorf("Method = %d, want 2", entry.Method)
	}
}

func TestReference_CacheMiss(t *testing.T) {
	c, _ := New(t.TempDir())
	if entry := c.LoadReference(sampleQuery()); entry != nil {
		t.Error("expected nil for cache miss, got entry")
	}
}

func TestReference_DifferentParams(t *testing.T) {
	c, _ := New(t.TempDir())
	q := sampleQuery()
	if err := c.SaveReference(q, sampleAPIResponse()); err != nil {
		t.Fatal(err)
	}

	other := q
	other.Method = 3
	if entry := c.LoadReference(other); entry != nil {
		t.Error("expected miss for a different method")
	}
	other = q
	other.Date = q.Date.AddDate(0, 0, 1)
	if entry := c.LoadReference(other); entry != nil {
		t.Error("expected miss for a different date")
	}
}

func TestReference_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	c, _ := New(dir)
	q := sampleQuery()

	if err := os.WriteFile(c.referencePath(q), []byte("{bad json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if entry := c.LoadReference(q); entry != nil {
		t.Error("expected nil for corrupted cache, got entry")
	}
}

// ---------------------------------------------------------------------------
// SaveGeo / LoadGeo
// ---------------------------------------------------------------------------

func TestGeo_RoundTrip(t *testing.T) {
	c, _ := New(t.TempDir())

	loc := &geo.Location{
		Latitude:    51.5074,
		Longitude:   -0.1278,
		City:        "London",
		CountryCode: "GB",
		Timezone:    "Europe/London",
	}
	if err := c.SaveGeo(loc); err != nil {
		t.Fatalf("SaveGeo error: %v", err)
	}

	got := c.LoadGeo()
	if got == nil {
		t.Fatal("LoadGeo returned nil after save")
	}
	if *got != *loc {
		t.Errorf("LoadGeo() = %+v, want %+v", *got, *loc)
	}
}

func TestGeo_CacheMiss(t *testing.T) {
	c, _ := New(t.TempDir())
	if got := c.LoadGeo(); got != nil {
		t.Error("expected nil for geo cache miss, got entry")
	}
}

func TestGeo_ExpiredTTL(t *testing.T) {
	c, _ := New(t.TempDir())

	saved := time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return saved }
	if err := c.SaveGeo(&geo.Location{City: "London"}); err != nil {
		t.Fatal(err)
	}

	c.now = func() time.Time { return saved.Add(23 * time.Hour) }
	if got := c.LoadGeo(); got == nil {
		t.Error("expected entry within the TTL, got nil")
	}

	c.now = func() time.Time { return saved.Add(25 * time.Hour) }
	if got := c.LoadGeo(); got != nil {
		t.Error("expected nil for expired geo cache, got entry")
	}
}

func TestGeo_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	c, _ := New(dir)

	os.WriteFile(filepath.Join(dir, "geolocation.json"), []byte("{bad json"), 0o644)
	if got := c.LoadGeo(); got != nil {
		t.Error("expected nil for corrupted geo cache, got entry")
	}
}

// ---------------------------------------------------------------------------
// referenceKey
// ---------------------------------------------------------------------------

func TestReferenceKey(t *testing.T) {
	q := sampleQuery()
	if referenceKey(q) != referenceKey(q) {
		t.Error("referenceKey not deterministic")
	}
	if len(referenceKey(q)) != 16 {
		t.Errorf("referenceKey length = %d, want 16", len(referenceKey(q)))
	}

	seen := map[string]bool{referenceKey(q): true}
	for _, mutate := range []func(*api.Query){
		func(q *api.Query) { q.Method = 3 },
		func(q *api.Query) { q.School = 1 },
		func(q *api.Query) { q.Latitude = 40.7 },
		func(q *api.Query) { q.Timezone = "UTC" },
	} {
		m := q
		mutate(&m)
		k := referenceKey(m)
		if seen[k] {
			t.Errorf("duplicate cache key: %q", k)
		}
		seen[k] = true
	}
}
