// Package method holds the catalog of calculation methods: the Fajr and
// Ishaa twilight conventions, the Asr shadow factor, and the region table
// used to pick a default method from a country code.
package method

import (
	"errors"
	"fmt"
	"strings"
)

// Asr shadow factors.
const (
	Shafi  = 1
	Hanafi = 2
)

// DefaultNearestLatitude is the latitude extreme events are recomputed at
// when their angle is unreachable.
const DefaultNearestLatitude = 48.5

// ErrUnknownMethod is returned for an index or name that is not in the table.
var ErrUnknownMethod = errors.New("unknown calculation method")

// Method is one named calculation convention. Exactly one of IshaaAngle and
// IshaaInterval is non-zero.
type Method struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	FajrAngle       float64  `json:"fajr_angle"`
	IshaaAngle      float64  `json:"ishaa_angle,omitempty"`
	IshaaInterval   float64  `json:"ishaa_interval,omitempty"` // minutes after Maghrib
	AsrFactor       int      `json:"asr_factor"`
	NearestLatitude float64  `json:"nearest_latitude"`
	AlAdhanID       int      `json:"aladhan_id"`
	Countries       []string `json:"countries,omitempty"`
}

// UsesInterval reports whether Ishaa is a fixed interval after Maghrib.
func (m Method) UsesInterval() bool { return m.IshaaInterval > 0 }

// WithAsrFactor returns a copy of m using the given shadow factor.
func (m Method) WithAsrFactor(factor int) Method {
	m.AsrFactor = factor
	return m
}

// School returns the Asr convention name.
func (m Method) School() string {
	if m.AsrFactor == Hanafi {
		return "Hanafi"
	}
	return "Shafi"
}

// Validate checks that the method has exactly one Ishaa rule and sane angles.
func (m Method) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("method %d: empty name", m.ID)
	case m.FajrAngle <= 0:
		return fmt.Errorf("method %q: fajr angle must be positive", m.Name)
	case m.IshaaAngle > 0 && m.IshaaInterval > 0:
		return fmt.Errorf("method %q: both ishaa angle and ishaa interval set", m.Name)
	case m.IshaaAngle <= 0 && m.IshaaInterval <= 0:
		return fmt.Errorf("method %q: neither ishaa angle nor ishaa interval set", m.Name)
	case m.AsrFactor != Shafi && m.AsrFactor != Hanafi:
		return fmt.Errorf("method %q: asr factor %d must be 1 or 2", m.Name, m.AsrFactor)
	case m.NearestLatitude <= 0 || m.NearestLatitude >= 90:
		return fmt.Errorf("method %q: nearest latitude %v out of range", m.Name, m.NearestLatitude)
	}
	return nil
}

// Table is an immutable, validated method catalog indexed by Method.ID.
type Table struct {
	methods   []Method
	byCountry map[string]int
	def       int
}

// NewTable validates methods and builds a table. IDs must equal the slice
// positions and each country may map to only one method.
func NewTable(methods []Method, defaultID int) (*Table, error) {
	if len(methods) == 0 {
		return nil, errors.New("method table is empty")
	}
	t := &Table{
		methods:   make([]Method, len(methods)),
		byCountry: make(map[string]int),
		def:       defaultID,
	}
	for i, m := range methods {
		if m.ID != i {
			return nil, fmt.Errorf("method %q: id %d at position %d", m.Name, m.ID, i)
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		for _, cc := range m.Countries {
			cc = strings.ToUpper(cc)
			if prev, ok := t.byCountry[cc]; ok {
				return nil, fmt.Errorf("country %s mapped to both %q and %q", cc, methods[prev].Name, m.Name)
			}
			t.byCountry[cc] = i
		}
		t.methods[i] = m
	}
	if defaultID < 0 || defaultID >= len(methods) {
		return nil, fmt.Errorf("default method %d out of range", defaultID)
	}
	return t, nil
}

func mustTable(methods []Method, defaultID int) *Table {
	t, err := NewTable(methods, defaultID)
	if err != nil {
		panic(err)
	}
	return t
}

// ByIndex returns the method with the given ID.
func (t *Table) ByIndex(id int) (Method, error) {
	if id < 0 || id >= len(t.methods) {
		return Method{}, fmt.Errorf("%w: %d", ErrUnknownMethod, id)
	}
	return t.methods[id], nil
}

// ByName looks a method up by case-insensitive name.
func (t *Table) ByName(name string) (Method, error) {
	for _, m := range t.methods {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Method{}, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// ByAlAdhanID returns the method Al Adhan numbers id.
func (t *Table) ByAlAdhanID(id int) (Method, error) {
	for _, m := range t.methods {
		if m.AlAdhanID == id {
			return m, nil
		}
	}
	return Method{}, fmt.Errorf("%w: Al Adhan method %d", ErrUnknownMethod, id)
}

// Default returns the table's default method.
func (t *Table) Default() Method { return t.methods[t.def] }

// ForCountry returns the regional default for an ISO 3166 alpha-2 code.
// The boolean is false when the country has no entry.
func (t *Table) ForCountry(code string) (Method, bool) {
	id, ok := t.byCountry[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Method{}, false
	}
	return t.methods[id], true
}

// All returns a copy of every method in ID order.
func (t *Table) All() []Method {
	out := make([]Method, len(t.methods))
	copy(out, t.methods)
	return out
}

// Len returns the number of methods.
func (t *Table) Len() int { return len(t.methods) }
