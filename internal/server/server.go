// Package server exposes the daemon's schedule, qibla and alarm state over
// HTTP, and accepts location and settings changes that feed the alarm
// scheduler.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athan/internal/alarm"
	"github.com/smokyabdulrahman/athan/internal/logging"
)

// Alarms is the part of alarm.Scheduler the server reads and drives.
type Alarms interface {
	Inputs() alarm.Inputs
	Notify(ev alarm.Event)
	Snapshot() []alarm.Trigger
	Armed(ownerID string) (alarm.Trigger, bool)
}

// Config holds the server dependencies.
type Config struct {
	Alarms Alarms
	Clock  alarm.Clock
	Logger *zap.Logger
	// OnChange, if set, is called with the updated inputs after a location
	// or settings change has been accepted.
	OnChange func(alarm.Inputs)
}

// Server is the daemon's HTTP API.
type Server struct {
	alarms   Alarms
	clock    alarm.Clock
	logger   *zap.Logger
	onChange func(alarm.Inputs)
	router   *chi.Mux
}

// New builds the server and mounts its routes.
func New(cfg Config) *Server {
	s := &Server{
		alarms:   cfg.Alarms,
		clock:    cfg.Clock,
		logger:   logging.OrNop(cfg.Logger),
		onChange: cfg.OnChange,
		router:   chi.NewRouter(),
	}
	if s.clock == nil {
		s.clock = alarm.RealClock{}
	}
	s.mountRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) mountRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/schedule", s.handleSchedule)
		r.Get("/qibla", s.handleQibla)
		r.Get("/methods", s.handleMethods)
		r.Get("/alarms", s.handleAlarms)
		r.Get("/alarms/{owner}", s.handleAlarm)
		r.Post("/location", s.handleLocation)
		r.Put("/settings", s.handleSettings)
	})
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// HTTPServer returns an http.Server for addr serving s.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
