package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athan/internal/alarm"
	"github.com/smokyabdulrahman/athan/internal/config"
	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/notify"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

func TestDaemonOwners(t *testing.T) {
	cfg := &config.Config{}
	owners := daemonOwners(cfg)
	if len(owners) != 1 || owners[0].ID != ownerAthan {
		t.Fatalf("owners = %+v, want only %s", owners, ownerAthan)
	}
	if owners[0].Lead != 0 {
		t.Errorf("athan lead = %v, want 0", owners[0].Lead)
	}
	if len(owners[0].Skip) != 1 || owners[0].Skip[0] != prayer.Sunrise {
		t.Errorf("athan skip = %v, want [Sunrise]", owners[0].Skip)
	}

	lead := 10
	cfg.PreAlertMinutes = &lead
	owners = daemonOwners(cfg)
	if len(owners) != 2 {
		t.Fatalf("got %d owners, want 2", len(owners))
	}
	if owners[1].ID != ownerPreAlert || owners[1].Lead != 10*time.Minute {
		t.Errorf("pre-alert owner = %+v", owners[1])
	}
}

func TestDaemonInputs(t *testing.T) {
	e := waterlooEnv(t)
	e.place.CountryCode = "PK"

	in, err := daemonInputs(e)
	if err != nil {
		t.Fatalf("daemonInputs() error: %v", err)
	}
	if in.Method.ID != method.Karachi {
		t.Errorf("method = %s, want Karachi", in.Method.Name)
	}
	if in.Method.School() != "Hanafi" {
		t.Errorf("school = %s, want Hanafi", in.Method.School())
	}
	if in.Rounding != schedule.RoundSpecial {
		t.Errorf("rounding = %v, want special", in.Rounding)
	}
	if in.Zone.String() != "America/Toronto" {
		t.Errorf("zone = %v", in.Zone)
	}
	if in.Location.Latitude != config.DefaultLatitude {
		t.Errorf("latitude = %v", in.Location.Latitude)
	}
}

func TestDaemonInputs_ExplicitMethodWins(t *testing.T) {
	e := waterlooEnv(t)
	e.place.CountryCode = "PK"
	id := method.MWL
	e.cfg.Method = &id

	in, err := daemonInputs(e)
	if err != nil {
		t.Fatal(err)
	}
	if in.Method.ID != method.MWL {
		t.Errorf("method = %s, want MWL", in.Method.Name)
	}
}

type fakeRegion struct {
	code string
	err  error
}

func (f fakeRegion) CountryCode(context.Context) (string, error) { return f.code, f.err }

func TestLookupRegion(t *testing.T) {
	logger := zap.NewNop()

	if got := lookupRegion(context.Background(), fakeRegion{code: "SA"}, logger); got != "SA" {
		t.Errorf("lookupRegion() = %q, want SA", got)
	}
	if got := lookupRegion(context.Background(), fakeRegion{err: errors.New("offline")}, logger); got != "" {
		t.Errorf("lookupRegion() on failure = %q, want empty", got)
	}
}

func TestPersistInputs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	m, err := method.Lookup(method.UmmAlQura)
	if err != nil {
		t.Fatal(err)
	}
	pressure := 1000.0
	in := alarm.Inputs{
		Location:      prayer.Location{Latitude: 21.4225, Longitude: 39.8262, Altitude: 277, Pressure: &pressure},
		Method:        m,
		Rounding:      schedule.RoundNearest,
		OffsetMinutes: 2,
		Zone:          time.FixedZone("AST", 3*3600),
	}

	if err := persistInputs(in); err != nil {
		t.Fatalf("persistInputs() error: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	checks := map[string]string{
		"latitude":       "21.4225",
		"longitude":      "39.8262",
		"altitude":       "277",
		"pressure":       "1000",
		"method":         "3",
		"school":         "0",
		"rounding":       "nearest",
		"offset_minutes": "2",
		"timezone":       "AST",
	}
	for key, want := range checks {
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestPersistInputs_LocalZoneNotSaved(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	in := alarm.Inputs{
		Location: prayer.Location{Latitude: 1, Longitude: 2},
		Method:   method.Default(),
		Zone:     time.Local,
	}
	if err := persistInputs(in); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timezone != "" {
		t.Errorf("timezone = %q, want empty", cfg.Timezone)
	}
	if cfg.Altitude != nil {
		t.Errorf("altitude = %v, want unset", *cfg.Altitude)
	}
}

func roundTripTrigger(t *testing.T, s alarm.TriggerStore) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2024, 3, 20, 13, 30, 0, 0, time.UTC)
	want := alarm.Trigger{
		ID:      uuid.New(),
		OwnerID: ownerAthan,
		Index:   prayer.Dhuhr,
		Name:    "Dhuhr",
		FireAt:  at,
		EventAt: at,
	}

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Load() returned %d triggers, want 1", len(got))
	}
	if got[0].ID != want.ID || got[0].OwnerID != want.OwnerID || !got[0].FireAt.Equal(want.FireAt) {
		t.Errorf("Load() = %+v, want %+v", got[0], want)
	}
}

func TestOpenTriggerStore_Memory(t *testing.T) {
	s, closeFn, err := openTriggerStore(context.Background(), &config.Daemon{TriggerStore: "memory"}, zap.NewNop())
	if err != nil {
		t.Fatalf("openTriggerStore() error: %v", err)
	}
	defer closeFn()

	roundTripTrigger(t, s)
}

func TestOpenTriggerStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "athan.db")
	d := &config.Daemon{TriggerStore: "sqlite", SQLitePath: path}

	s, closeFn, err := openTriggerStore(context.Background(), d, zap.NewNop())
	if err != nil {
		t.Fatalf("openTriggerStore() error: %v", err)
	}
	defer closeFn()

	roundTripTrigger(t, s)
}

func TestOpenNotifier_NoBroker(t *testing.T) {
	n, closeFn, err := openNotifier(&config.Daemon{}, zap.NewNop())
	if err != nil {
		t.Fatalf("openNotifier() error: %v", err)
	}
	defer closeFn()

	multi, ok := n.(notify.Multi)
	if !ok {
		t.Fatalf("notifier = %T, want notify.Multi", n)
	}
	if len(multi) != 1 {
		t.Errorf("got %d notifiers, want 1", len(multi))
	}
}
