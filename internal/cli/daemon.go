package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/athan/internal/alarm"
	"github.com/smokyabdulrahman/athan/internal/config"
	"github.com/smokyabdulrahman/athan/internal/geo"
	"github.com/smokyabdulrahman/athan/internal/logging"
	"github.com/smokyabdulrahman/athan/internal/notify"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/server"
	"github.com/smokyabdulrahman/athan/internal/store"
	"github.com/spf13/cobra"
)

// Alarm owner IDs.
const (
	ownerAthan    = "athan"
	ownerPreAlert = "pre-alert"
)

const shutdownTimeout = 10 * time.Second

// newRegionLookup is swapped out in tests.
var newRegionLookup = func() geo.RegionLookup { return geo.NewClient(nil) }

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the alarm scheduler and HTTP API",
		Long: `Keep a wake trigger armed for the next prayer and deliver alerts when it fires.

Calculation settings come from the config file and flags. Process settings come
from the environment (a .env file in the working directory is read first):
APP_ENV, LOG_LEVEL, HTTP_ADDR, TRIGGER_STORE (memory, sqlite or redis),
SQLITE_PATH, REDIS_ADDR, REDIS_USERNAME, REDIS_PASSWORD, REDIS_DB,
REDIS_KEY_PREFIX, MQTT_BROKER, MQTT_CLIENT_ID, MQTT_TOPIC and RETRY_INTERVAL.`,
		Args: cobra.NoArgs,
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	d, err := config.LoadDaemon()
	if err != nil {
		return err
	}

	logger, err := logging.New(d.AppEnv, d.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := prepare(cmd)
	if err != nil {
		return err
	}
	if e.place.CountryCode == "" && e.cfg.MethodOrDefault(-1) < 0 {
		e.place.CountryCode = lookupRegion(ctx, newRegionLookup(), logger)
	}

	inputs, err := daemonInputs(e)
	if err != nil {
		return err
	}
	logger.Info("calculation inputs",
		zap.String("location", e.place.Label),
		zap.String("source", e.place.Source),
		zap.String("method", inputs.Method.Name),
		zap.String("school", inputs.Method.School()),
		zap.Stringer("rounding", inputs.Rounding),
		zap.Stringer("zone", inputs.Zone),
	)

	triggers, closeStore, err := openTriggerStore(ctx, d, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier, err := openNotifier(d, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	var sched *alarm.Scheduler
	platform := alarm.NewTimerPlatform(triggers, func(ctx context.Context, t alarm.Trigger) {
		if err := notifier.Notify(ctx, notify.AlertFor(t, time.Now())); err != nil {
			logger.Warn("alert delivery failed", zap.String("owner", t.OwnerID), zap.Error(err))
		}
		sched.Notify(alarm.Event{Kind: alarm.EventTriggerFired, OwnerID: t.OwnerID})
	}, alarm.RealClock{}, logger)
	defer platform.Stop()

	sched, err = alarm.New(platform, alarm.Config{
		Owners:        daemonOwners(e.cfg),
		Inputs:        inputs,
		RetryInterval: d.RetryInterval,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	restored, err := platform.Restore(ctx)
	if err != nil {
		logger.Warn("restoring triggers failed", zap.Error(err))
	}
	sched.Adopt(restored)
	for _, o := range sched.Owners() {
		logger.Info("alarm owner registered", zap.String("owner", o.ID), zap.Duration("lead", o.Lead))
	}
	logger.Info("triggers restored", zap.Int("pending", platform.Pending()))

	srv := server.New(server.Config{
		Alarms: sched,
		Logger: logger,
		OnChange: func(in alarm.Inputs) {
			if err := persistInputs(in); err != nil {
				logger.Warn("saving settings failed", zap.Error(err))
			}
		},
	})
	httpSrv := srv.HTTPServer(d.HTTPAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", d.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("daemon stopped")
	return nil
}

// lookupRegion asks the region service for a country code. Failure leaves
// the method at its default.
func lookupRegion(ctx context.Context, lookup geo.RegionLookup, logger *zap.Logger) string {
	code, err := lookup.CountryCode(ctx)
	if err != nil {
		logger.Warn("region lookup failed, keeping default method", zap.Error(err))
		return ""
	}
	logger.Debug("region detected", zap.String("country_code", code))
	return code
}

// daemonInputs builds the scheduler inputs from the resolved config.
func daemonInputs(e *env) (alarm.Inputs, error) {
	m, err := e.cfg.ResolveMethod(e.place.CountryCode)
	if err != nil {
		return alarm.Inputs{}, err
	}
	r, err := e.cfg.RoundingOrDefault()
	if err != nil {
		return alarm.Inputs{}, err
	}
	return alarm.Inputs{
		Location:      e.cfg.Location(),
		Method:        m,
		Rounding:      r,
		OffsetMinutes: e.cfg.OffsetOrZero(),
		Zone:          e.zone,
	}, nil
}

// daemonOwners returns the athan owner and, when configured, the pre-alert
// owner. Neither arms Sunrise.
func daemonOwners(cfg *config.Config) []alarm.Owner {
	owners := []alarm.Owner{{ID: ownerAthan, Skip: []int{prayer.Sunrise}}}
	if lead := cfg.PreAlertOrZero(); lead > 0 {
		owners = append(owners, alarm.Owner{
			ID:   ownerPreAlert,
			Lead: time.Duration(lead) * time.Minute,
			Skip: []int{prayer.Sunrise},
		})
	}
	return owners
}

// openTriggerStore opens the durable trigger store named by TRIGGER_STORE.
func openTriggerStore(ctx context.Context, d *config.Daemon, logger *zap.Logger) (alarm.TriggerStore, func(), error) {
	switch d.TriggerStore {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(d.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		s, err := store.OpenSQLite(ctx, d.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		version, err := s.Version(ctx)
		if err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		logger.Info("trigger store opened",
			zap.String("kind", "sqlite"),
			zap.String("path", d.SQLitePath),
			zap.Int64("schema_version", version),
		)
		return s, closer(s, logger), nil
	case "redis":
		r, err := store.OpenRedis(ctx, store.RedisOptions{
			Addr:     d.RedisAddr,
			Username: d.RedisUsername,
			Password: d.RedisPassword,
			DB:       d.RedisDB,
			Prefix:   d.RedisKeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("trigger store opened", zap.String("kind", "redis"), zap.String("addr", d.RedisAddr))
		return r, closer(r, logger), nil
	default:
		logger.Info("trigger store opened", zap.String("kind", "memory"))
		return alarm.NewMemoryStore(), func() {}, nil
	}
}

func closer(c io.Closer, logger *zap.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("closing trigger store", zap.Error(err))
		}
	}
}

// openNotifier always logs alerts and also publishes them over MQTT when a
// broker is configured.
func openNotifier(d *config.Daemon, logger *zap.Logger) (notify.Notifier, func(), error) {
	notifiers := notify.Multi{notify.Log{Logger: logger}}
	if d.MQTTBroker == "" {
		return notifiers, func() {}, nil
	}

	client, err := notify.Connect(d.MQTTBroker, d.MQTTClientID, logger)
	if err != nil {
		return nil, nil, err
	}
	notifiers = append(notifiers, notify.NewMQTT(client, d.MQTTTopic))
	return notifiers, func() { client.Disconnect(250) }, nil
}

// persistInputs writes inputs accepted over HTTP back to the settings file
// so the next start uses them.
func persistInputs(in alarm.Inputs) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cfg.SetCoordinates(in.Location.Latitude, in.Location.Longitude)
	if in.Location.Altitude != 0 {
		alt := in.Location.Altitude
		cfg.Altitude = &alt
	}
	cfg.Pressure = in.Location.Pressure
	cfg.Temperature = in.Location.Temperature
	id := in.Method.ID
	cfg.Method = &id
	school := in.Method.AsrFactor - 1
	cfg.School = &school
	cfg.Rounding = in.Rounding.String()
	offset := in.OffsetMinutes
	cfg.OffsetMinutes = &offset
	if in.Zone != nil && in.Zone != time.Local {
		cfg.Timezone = in.Zone.String()
	}

	return cfg.Save()
}
