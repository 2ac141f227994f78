// Package notify delivers fired prayer alarms to their consumers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athan/internal/alarm"
)

// Alert is the payload sent when a trigger fires.
type Alert struct {
	OwnerID string    `json:"owner_id"`
	Event   string    `json:"event"`
	Index   int       `json:"index"`
	EventAt time.Time `json:"event_at"`
	FiredAt time.Time `json:"fired_at"`
	Extreme bool      `json:"extreme"`
	Message string    `json:"message"`
}

// AlertFor builds the alert for a fired trigger.
func AlertFor(t alarm.Trigger, firedAt time.Time) Alert {
	msg := fmt.Sprintf("It is time for %s", t.Name)
	if lead := t.Lead(); lead > 0 {
		msg = fmt.Sprintf("%s in %d minutes", t.Name, int(lead.Round(time.Minute).Minutes()))
	}
	if t.Extreme {
		msg += " (estimated)"
	}
	return Alert{
		OwnerID: t.OwnerID,
		Event:   t.Name,
		Index:   t.Index,
		EventAt: t.EventAt,
		FiredAt: firedAt,
		Extreme: t.Extreme,
		Message: msg,
	}
}

// Notifier delivers an alert.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Log writes alerts to a zap logger.
type Log struct {
	Logger *zap.Logger
}

// Notify logs the alert at info level.
func (l Log) Notify(_ context.Context, a Alert) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info(a.Message,
		zap.String("owner", a.OwnerID),
		zap.String("event", a.Event),
		zap.Time("event_at", a.EventAt),
		zap.Bool("extreme", a.Extreme),
	)
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

// Notify calls each notifier in order.
func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, a Alert) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, a Alert) error { return f(ctx, a) }
