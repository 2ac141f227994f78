package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/athan/internal/alarm"
	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// fakeAlarms records events and applies them the way the scheduler does.
type fakeAlarms struct {
	mu       sync.Mutex
	inputs   alarm.Inputs
	events   []alarm.Event
	triggers []alarm.Trigger
}

func (f *fakeAlarms) Inputs() alarm.Inputs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs
}

func (f *fakeAlarms) Notify(ev alarm.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	f.inputs = ev.Apply(f.inputs)
}

func (f *fakeAlarms) Snapshot() []alarm.Trigger { return f.triggers }

func (f *fakeAlarms) Armed(ownerID string) (alarm.Trigger, bool) {
	for _, t := range f.triggers {
		if t.OwnerID == ownerID {
			return t, true
		}
	}
	return alarm.Trigger{}, false
}

func toronto(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func newTestServer(t *testing.T) (*Server, *fakeAlarms, *[]alarm.Inputs) {
	t.Helper()
	zone := toronto(t)
	alarms := &fakeAlarms{inputs: alarm.Inputs{
		Location: prayer.Location{Latitude: 43.467, Longitude: -80.517},
		Method:   method.Default(),
		Rounding: schedule.RoundSpecial,
		Zone:     zone,
	}}
	var changes []alarm.Inputs
	srv := New(Config{
		Alarms:   alarms,
		Clock:    fixedClock{now: time.Date(2024, 3, 20, 12, 0, 0, 0, zone)},
		OnChange: func(in alarm.Inputs) { changes = append(changes, in) },
	})
	return srv, alarms, &changes
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeData[map[string]string](t, rec)["status"])
}

func TestSchedule_Today(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/v1/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeData[scheduleView](t, rec)
	assert.Equal(t, "2024-03-20", got.Date)
	assert.Equal(t, "America/Toronto", got.Timezone)
	assert.Equal(t, "ISNA", got.Method)
	assert.Equal(t, "special", got.Rounding)
	require.Len(t, got.Events, prayer.Count)

	clocks := make([]string, len(got.Events))
	for i, e := range got.Events {
		clocks[i] = e.Clock
	}
	assert.Equal(t, []string{"06:06", "07:24", "13:30", "16:54", "19:34", "20:54", "06:04"}, clocks)
	assert.Equal(t, prayer.Dhuhr, got.Next.Index)
	assert.Equal(t, 1445, got.Hijri.Year)
}

func TestSchedule_DateAndLocationOverride(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/v1/schedule?date=2024-06-21&lat=51.5074&lon=-0.1278", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeData[scheduleView](t, rec)
	assert.Equal(t, "2024-06-21", got.Date)
	assert.InDelta(t, 51.5074, got.Location.Latitude, 1e-9)
}

func TestSchedule_BadInput(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, target := range []string{
		"/v1/schedule?date=21-06-2024",
		"/v1/schedule?lat=95&lon=0",
		"/v1/schedule?lat=10",
		"/v1/schedule?lat=abc&lon=0",
	} {
		rec := do(t, srv, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, codeInvalidInput, decodeError(t, rec).Code, target)
	}
}

func TestQibla(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/v1/qibla", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeData[qiblaView](t, rec)
	assert.InDelta(t, 53.77, got.Bearing, 0.01)
	assert.Equal(t, "NE", got.Compass)
	assert.Greater(t, got.DistanceKm, 9000.0)

	rec = do(t, srv, http.MethodGet, "/v1/qibla?lat=51.5074&lon=-0.1278", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 118.99, decodeData[qiblaView](t, rec).Bearing, 0.01)
}

func TestMethods(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/v1/methods", "")
	require.Equal(t, http.StatusOK, rec.Code)

	type methodsView struct {
		Methods []method.Method `json:"methods"`
		Default int             `json:"default"`
		Current int             `json:"current"`
	}
	got := decodeData[methodsView](t, rec)
	assert.Len(t, got.Methods, method.Builtin.Len())
	assert.Equal(t, method.ISNA, got.Default)
	assert.Equal(t, method.ISNA, got.Current)
}

func TestAlarms(t *testing.T) {
	srv, alarms, _ := newTestServer(t)
	fire := time.Date(2024, 3, 20, 13, 30, 0, 0, time.UTC)
	alarms.triggers = []alarm.Trigger{{OwnerID: "athan", Index: prayer.Dhuhr, Name: "Dhuhr", FireAt: fire, EventAt: fire}}

	rec := do(t, srv, http.MethodGet, "/v1/alarms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]alarm.Trigger](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Dhuhr", list[0].Name)

	rec = do(t, srv, http.MethodGet, "/v1/alarms/athan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeData[alarm.Trigger](t, rec).FireAt.Equal(fire))

	rec = do(t, srv, http.MethodGet, "/v1/alarms/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decodeError(t, rec).Code)
}

func TestLocation_Accepted(t *testing.T) {
	srv, alarms, changes := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/v1/location",
		`{"latitude": 21.4225, "longitude": 39.8262, "altitude": 277, "timezone": "Asia/Riyadh"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, alarms.events, 1)
	ev := alarms.events[0]
	assert.Equal(t, alarm.EventLocationChanged, ev.Kind)
	require.NotNil(t, ev.Location)
	assert.InDelta(t, 21.4225, ev.Location.Latitude, 1e-9)
	assert.Equal(t, 277.0, ev.Location.Altitude)
	require.NotNil(t, ev.Zone)
	assert.Equal(t, "Asia/Riyadh", ev.Zone.String())

	got := decodeData[inputsView](t, rec)
	assert.Equal(t, "Asia/Riyadh", got.Timezone)
	require.Len(t, *changes, 1)
}

func TestLocation_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", ``, codeInvalidJSON},
		{"malformed", `{"latitude":`, codeInvalidJSON},
		{"unknown field", `{"lat": 1, "lon": 2}`, codeInvalidJSON},
		{"wrong type", `{"latitude": "north", "longitude": 2}`, codeInvalidJSON},
		{"missing longitude", `{"latitude": 10}`, codeInvalidInput},
		{"out of range", `{"latitude": 100, "longitude": 0}`, codeInvalidInput},
		{"bad pressure", `{"latitude": 10, "longitude": 0, "pressure": -1}`, codeInvalidInput},
		{"bad timezone", `{"latitude": 10, "longitude": 0, "timezone": "Mars/Base"}`, codeInvalidInput},
		{"two objects", `{"latitude": 10, "longitude": 0} {}`, codeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, alarms, changes := newTestServer(t)
			rec := do(t, srv, http.MethodPost, "/v1/location", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
			assert.Empty(t, alarms.events)
			assert.Empty(t, *changes)
		})
	}
}

func TestSettings_Accepted(t *testing.T) {
	srv, alarms, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPut, "/v1/settings",
		`{"method": 4, "school": 1, "rounding": "nearest", "offset_minutes": -3}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, alarms.events, 1)
	ev := alarms.events[0]
	assert.Equal(t, alarm.EventSettingsChanged, ev.Kind)
	require.NotNil(t, ev.Method)
	assert.Equal(t, method.Egypt, ev.Method.ID)
	require.NotNil(t, ev.AsrFactor)
	assert.Equal(t, method.Hanafi, *ev.AsrFactor)
	require.NotNil(t, ev.Rounding)
	assert.Equal(t, schedule.RoundNearest, *ev.Rounding)
	require.NotNil(t, ev.OffsetMinutes)
	assert.Equal(t, -3, *ev.OffsetMinutes)

	got := decodeData[inputsView](t, rec)
	assert.Equal(t, "Egypt", got.Method)
	assert.Equal(t, "Hanafi", got.School)
	assert.Equal(t, "nearest", got.Rounding)
}

func TestSettings_SchoolOnlyKeepsMethod(t *testing.T) {
	srv, alarms, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPut, "/v1/settings", `{"school": 1}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Nil(t, alarms.events[0].Method)
	require.NotNil(t, alarms.events[0].AsrFactor)
	assert.Nil(t, alarms.events[0].Rounding)

	got := decodeData[inputsView](t, rec)
	assert.Equal(t, "ISNA", got.Method)
	assert.Equal(t, "Hanafi", got.School)
}

func TestSettings_ConcurrentMethodAndSchool(t *testing.T) {
	_, alarms, _ := newTestServer(t)
	srv := New(Config{Alarms: alarms, Clock: fixedClock{now: time.Now()}})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			do(t, srv, http.MethodPut, "/v1/settings", `{"method": 2}`)
		}()
		go func() {
			defer wg.Done()
			do(t, srv, http.MethodPut, "/v1/settings", `{"school": 1}`)
		}()
	}
	wg.Wait()

	assert.Equal(t, method.MWL, alarms.Inputs().Method.ID)
	for _, ev := range alarms.events {
		if ev.Method != nil {
			assert.Nil(t, ev.AsrFactor)
		}
	}
}

func TestSettings_Rejected(t *testing.T) {
	for _, body := range []string{
		`{"method": 9}`,
		`{"school": 2}`,
		`{"rounding": "ceil"}`,
		`{"offset_minutes": 500}`,
	} {
		srv, alarms, _ := newTestServer(t)
		rec := do(t, srv, http.MethodPut, "/v1/settings", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, codeInvalidInput, decodeError(t, rec).Code, body)
		assert.Empty(t, alarms.events, body)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/v1/settings", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPServer(t *testing.T) {
	srv, _, _ := newTestServer(t)
	hs := srv.HTTPServer("127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", hs.Addr)
	assert.Same(t, srv, hs.Handler)
}
