package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athan/internal/alarm"
	"github.com/smokyabdulrahman/athan/internal/astro"
	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/qibla"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

// Offsets outside this many minutes are rejected.
const maxOffsetMinutes = 120

type eventView struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Time    time.Time `json:"time"`
	Clock   string    `json:"clock"`
	Extreme bool      `json:"extreme"`
}

type scheduleView struct {
	Date          string          `json:"date"`
	Timezone      string          `json:"timezone"`
	Location      prayer.Location `json:"location"`
	Method        string          `json:"method"`
	School        string          `json:"school"`
	Rounding      string          `json:"rounding"`
	OffsetMinutes int             `json:"offset_minutes"`
	Hijri         astro.HijriDate `json:"hijri"`
	Next          eventView       `json:"next"`
	Events        []eventView     `json:"events"`
}

type qiblaView struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Bearing    float64 `json:"bearing"`
	Compass    string  `json:"compass"`
	DistanceKm float64 `json:"distance_km"`
}

type inputsView struct {
	Location      prayer.Location `json:"location"`
	MethodID      int             `json:"method_id"`
	Method        string          `json:"method"`
	School        string          `json:"school"`
	Rounding      string          `json:"rounding"`
	OffsetMinutes int             `json:"offset_minutes"`
	Timezone      string          `json:"timezone"`
}

func viewInputs(in alarm.Inputs) inputsView {
	zone := time.Local
	if in.Zone != nil {
		zone = in.Zone
	}
	return inputsView{
		Location:      in.Location,
		MethodID:      in.Method.ID,
		Method:        in.Method.Name,
		School:        in.Method.School(),
		Rounding:      in.Rounding.String(),
		OffsetMinutes: in.OffsetMinutes,
		Timezone:      zone.String(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSchedule serves GET /v1/schedule?date=YYYY-MM-DD&lat=&lon=.
// The date defaults to today; lat and lon default to the current location.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	in := s.alarms.Inputs()
	now := s.clock.Now()

	loc, err := locationFromQuery(r, in.Location)
	if err != nil {
		writeError(w, err)
		return
	}
	in.Location = loc

	req := in.Request(now)
	if d := r.URL.Query().Get("date"); d != "" {
		day, err := time.ParseInLocation("2006-01-02", d, req.Date.Location())
		if err != nil {
			writeError(w, badRequest(codeInvalidInput, "date must be YYYY-MM-DD", err))
			return
		}
		req.Date = day
	}

	sched, err := schedule.Build(req, now)
	if err != nil {
		if errors.Is(err, prayer.ErrInvalidInput) {
			writeError(w, badRequest(codeInvalidInput, err.Error(), err))
			return
		}
		s.logger.Error("failed to build schedule", zap.Error(err))
		writeError(w, err)
		return
	}

	events := make([]eventView, prayer.Count)
	for i, p := range sched.Prayers() {
		events[i] = eventView{
			Index:   i,
			Name:    p.Name,
			Time:    p.Time,
			Clock:   p.Clock("15:04"),
			Extreme: p.Extreme,
		}
	}

	next, _ := sched.Next()
	writeJSON(w, http.StatusOK, scheduleView{
		Date:          sched.Date.Format("2006-01-02"),
		Timezone:      sched.Date.Location().String(),
		Location:      sched.Location,
		Method:        sched.Method.Name,
		School:        sched.Method.School(),
		Rounding:      sched.Rounding.String(),
		OffsetMinutes: sched.OffsetMinutes,
		Hijri:         astro.Hijri(sched.Date),
		Next:          events[next],
		Events:        events,
	})
}

// handleQibla serves GET /v1/qibla?lat=&lon=.
func (s *Server) handleQibla(w http.ResponseWriter, r *http.Request) {
	loc, err := locationFromQuery(r, s.alarms.Inputs().Location)
	if err != nil {
		writeError(w, err)
		return
	}

	bearing, err := qibla.Direction(loc.Latitude, loc.Longitude)
	if err != nil {
		writeError(w, badRequest(codeInvalidInput, err.Error(), err))
		return
	}
	distance, _ := qibla.Distance(loc.Latitude, loc.Longitude)

	writeJSON(w, http.StatusOK, qiblaView{
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Bearing:    bearing,
		Compass:    qibla.Compass(bearing),
		DistanceKm: distance,
	})
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"methods": method.Builtin.All(),
		"default": method.Default().ID,
		"current": s.alarms.Inputs().Method.ID,
	})
}

func (s *Server) handleAlarms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alarms.Snapshot())
}

func (s *Server) handleAlarm(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	t, ok := s.alarms.Armed(owner)
	if !ok {
		writeError(w, &apiError{
			status:  http.StatusNotFound,
			code:    codeNotFound,
			message: "no trigger armed for owner " + strconv.Quote(owner),
		})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type locationRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Altitude    float64  `json:"altitude"`
	Pressure    *float64 `json:"pressure"`
	Temperature *float64 `json:"temperature"`
	Timezone    string   `json:"timezone"`
}

// handleLocation serves POST /v1/location and triggers a recompute.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var body locationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Latitude == nil || body.Longitude == nil {
		writeError(w, badRequest(codeInvalidInput, "latitude and longitude are required", nil))
		return
	}

	loc := prayer.Location{
		Latitude:    *body.Latitude,
		Longitude:   *body.Longitude,
		Altitude:    body.Altitude,
		Pressure:    body.Pressure,
		Temperature: body.Temperature,
	}
	if err := loc.Validate(); err != nil {
		writeError(w, badRequest(codeInvalidInput, err.Error(), err))
		return
	}

	ev := alarm.Event{Kind: alarm.EventLocationChanged, Location: &loc}
	if body.Timezone != "" {
		zone, err := time.LoadLocation(body.Timezone)
		if err != nil {
			writeError(w, badRequest(codeInvalidInput, "unknown timezone "+strconv.Quote(body.Timezone), err))
			return
		}
		ev.Zone = zone
	}

	s.apply(ev)
	writeJSON(w, http.StatusAccepted, viewInputs(s.alarms.Inputs()))
}

type settingsRequest struct {
	Method        *int    `json:"method"`
	School        *int    `json:"school"`
	Rounding      *string `json:"rounding"`
	OffsetMinutes *int    `json:"offset_minutes"`
}

// handleSettings serves PUT /v1/settings and triggers a recompute.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	ev := alarm.Event{Kind: alarm.EventSettingsChanged}

	if body.Method != nil {
		m, err := method.Lookup(*body.Method)
		if err != nil {
			writeError(w, badRequest(codeInvalidInput, err.Error(), err))
			return
		}
		ev.Method = &m
	}

	if body.School != nil {
		if *body.School != 0 && *body.School != 1 {
			writeError(w, badRequest(codeInvalidInput, "school must be 0 (Shafi) or 1 (Hanafi)", nil))
			return
		}
		factor := *body.School + 1
		ev.AsrFactor = &factor
	}

	if body.Rounding != nil {
		rounding, err := schedule.ParseRounding(*body.Rounding)
		if err != nil {
			writeError(w, badRequest(codeInvalidInput, err.Error(), err))
			return
		}
		ev.Rounding = &rounding
	}

	if body.OffsetMinutes != nil {
		if *body.OffsetMinutes < -maxOffsetMinutes || *body.OffsetMinutes > maxOffsetMinutes {
			writeError(w, badRequest(codeInvalidInput, "offset_minutes must be between -120 and 120", nil))
			return
		}
		ev.OffsetMinutes = body.OffsetMinutes
	}

	s.apply(ev)
	writeJSON(w, http.StatusAccepted, viewInputs(s.alarms.Inputs()))
}

// apply forwards ev to the scheduler and reports the new inputs.
func (s *Server) apply(ev alarm.Event) {
	s.alarms.Notify(ev)
	s.logger.Info("inputs changed", zap.Stringer("kind", ev.Kind))
	if s.onChange != nil {
		s.onChange(s.alarms.Inputs())
	}
}

// locationFromQuery overrides base with the lat and lon query parameters.
func locationFromQuery(r *http.Request, base prayer.Location) (prayer.Location, error) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return base, nil
	}
	if latStr == "" || lonStr == "" {
		return base, badRequest(codeInvalidInput, "lat and lon must be given together", nil)
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return base, badRequest(codeInvalidInput, "lat must be a valid number", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return base, badRequest(codeInvalidInput, "lon must be a valid number", err)
	}

	loc := prayer.Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return base, badRequest(codeInvalidInput, err.Error(), err)
	}
	return loc, nil
}
