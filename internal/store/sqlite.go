// Package store provides durable alarm.TriggerStore implementations.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athan/internal/alarm"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite stores triggers in a SQLite database, one row per owner.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLite{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{s.logger.Sugar()})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Version returns the applied migration version.
func (s *SQLite) Version(ctx context.Context) (int64, error) {
	v, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

// Save upserts the owner's trigger.
func (s *SQLite) Save(ctx context.Context, t alarm.Trigger) error {
	const q = `
		INSERT INTO alarm_triggers (owner_id, trigger_id, event_index, event_name, fire_at, event_at, extreme, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			trigger_id = excluded.trigger_id,
			event_index = excluded.event_index,
			event_name = excluded.event_name,
			fire_at = excluded.fire_at,
			event_at = excluded.event_at,
			extreme = excluded.extreme,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, q,
		t.OwnerID, t.ID.String(), t.Index, t.Name,
		formatTime(t.FireAt), formatTime(t.EventAt), t.Extreme,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save trigger for %s: %w", t.OwnerID, err)
	}
	return nil
}

// Delete removes the owner's trigger, if any.
func (s *SQLite) Delete(ctx context.Context, ownerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alarm_triggers WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("delete trigger for %s: %w", ownerID, err)
	}
	return nil
}

// Load returns every stored trigger ordered by fire time.
func (s *SQLite) Load(ctx context.Context) ([]alarm.Trigger, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, trigger_id, event_index, event_name, fire_at, event_at, extreme
		FROM alarm_triggers
		ORDER BY fire_at`)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	var out []alarm.Trigger
	for rows.Next() {
		var (
			t               alarm.Trigger
			id, fire, event string
		)
		if err := rows.Scan(&t.OwnerID, &id, &t.Index, &t.Name, &fire, &event, &t.Extreme); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("trigger %s: bad id: %w", t.OwnerID, err)
		}
		if t.FireAt, err = time.Parse(time.RFC3339Nano, fire); err != nil {
			return nil, fmt.Errorf("trigger %s: bad fire_at: %w", t.OwnerID, err)
		}
		if t.EventAt, err = time.Parse(time.RFC3339Nano, event); err != nil {
			return nil, fmt.Errorf("trigger %s: bad event_at: %w", t.OwnerID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.Infof(strings.TrimSuffix(format, "\n"), v...)
}
