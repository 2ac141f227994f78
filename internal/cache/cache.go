// Package cache stores detected locations and reference timings on disk so
// the CLI does not hit the network on every invocation.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smokyabdulrahman/athan/internal/api"
	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/geo"
)

const (
	referenceCacheFile = "reference_%s.json" // keyed by hash
	geoCacheFile       = "geolocation.json"
	geoTTL             = 24 * time.Hour
)

// Cache provides file-based caching for geolocation and reference timings.
type Cache struct {
	dir string
	now func() time.Time
}

// ReferenceEntry stores one day of Al Adhan timings for a query.
type ReferenceEntry struct {
	Date    string           `json:"date"` // YYYY-MM-DD
	Method  int              `json:"method"`
	School  int              `json:"school"`
	Timings api.Timings      `json:"timings"`
	Hijri   *astro.HijriDate `json:"hijri,omitempty"`
	Meta    api.Meta         `json:"meta"`
}

// GeoCacheEntry stores a cached geolocation result with a timestamp.
type GeoCacheEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

// New creates a Cache rooted at the given directory.
// If dir is empty, it defaults to ~/.cache/prayer-times/.
func New(dir string) (*Cache, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".cache", "prayer-times")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &Cache{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// referenceKey builds a deterministic hash from the query parameters so that
// different locations, methods and schools get separate cache files.
func referenceKey(q api.Query) string {
	raw := fmt.Sprintf("%s|%.6f|%.6f|%d|%d|%s",
		q.Date.Format("2006-01-02"), q.Latitude, q.Longitude, q.Method, q.School, q.Timezone)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}

func (c *Cache) referencePath(q api.Query) string {
	return filepath.Join(c.dir, fmt.Sprintf(referenceCacheFile, referenceKey(q)))
}

// LoadReference returns cached reference timings for q, or nil when the
// cache is missing, corrupted or for another date.
func (c *Cache) LoadReference(q api.Query) *ReferenceEntry {
	data, err := os.ReadFile(c.referencePath(q))
	if err != nil {
		return nil
	}

	var entry ReferenceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}
	if entry.Date != q.Date.Format("2006-01-02") {
		return nil
	}
	return &entry
}

// SaveReference writes the timings of resp for q to the cache.
func (c *Cache) SaveReference(q api.Query, resp *api.Response) error {
	entry := ReferenceEntry{
		Date:    q.Date.Format("2006-01-02"),
		Method:  q.Method,
		School:  q.School,
		Timings: resp.Data.Timings,
		Meta:    resp.Data.Meta,
	}

	if h, err := resp.Data.Date.Hijri.Civil(); err == nil {
		entry.Hijri = &h
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := os.WriteFile(c.referencePath(q), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// LoadGeo attempts to read a cached geolocation result.
// Returns nil if the cache is missing or older than the TTL (24 hours).
func (c *Cache) LoadGeo() *geo.Location {
	data, err := os.ReadFile(filepath.Join(c.dir, geoCacheFile))
	if err != nil {
		return nil
	}

	var entry GeoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}

	if c.now().Sub(entry.CachedAt) > geoTTL {
		return nil
	}
	return &entry.Location
}

// SaveGeo writes a geolocation result to the cache.
func (c *Cache) SaveGeo(loc *geo.Location) error {
	entry := GeoCacheEntry{
		Location: *loc,
		CachedAt: c.now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, geoCacheFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write geo cache: %w", err)
	}
	return nil
}
