// Package alarm keeps one durable wake trigger per owner pointed at the
// owner's next prayer event, and re-arms it when the inputs or the day
// change.
package alarm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/smokyabdulrahman/athan/internal/method"
	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

var (
	// ErrRecomputeLater means the platform refused a trigger. The
	// scheduler retries on its own; callers only need to report it.
	ErrRecomputeLater = errors.New("trigger rejected, recompute later")

	// ErrNoUpcomingEvent means nothing in the schedule is left to arm.
	ErrNoUpcomingEvent = errors.New("no upcoming event in schedule")

	// ErrUnknownOwner is returned for an owner ID that was not registered.
	ErrUnknownOwner = errors.New("unknown alarm owner")
)

// Trigger is an armed wake-up for one owner.
type Trigger struct {
	ID      uuid.UUID `json:"id"`
	OwnerID string    `json:"owner_id"`
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	FireAt  time.Time `json:"fire_at"`
	EventAt time.Time `json:"event_at"`
	Extreme bool      `json:"extreme"`
}

// Lead returns how far ahead of the event the trigger fires.
func (t Trigger) Lead() time.Duration { return t.EventAt.Sub(t.FireAt) }

// Platform arms and cancels durable triggers. Arm replaces whatever the
// owner had; Cancel of an owner with nothing armed is not an error.
type Platform interface {
	Arm(ctx context.Context, t Trigger) error
	Cancel(ctx context.Context, ownerID string) error
}

// Owner is a consumer of triggers with its own policy.
type Owner struct {
	ID string `json:"id"`
	// Lead fires the trigger this long before the event.
	Lead time.Duration `json:"lead"`
	// Skip lists event indices this owner never arms.
	Skip []int `json:"skip,omitempty"`
}

func (o Owner) skips(i int) bool {
	for _, s := range o.Skip {
		if s == i {
			return true
		}
	}
	return false
}

// Clock is the time source for scheduling decisions.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// Inputs are the values a recompute builds schedules from.
type Inputs struct {
	Location      prayer.Location   `json:"location"`
	Method        method.Method     `json:"method"`
	Rounding      schedule.Rounding `json:"rounding"`
	OffsetMinutes int               `json:"offset_minutes"`
	Zone          *time.Location    `json:"-"`
}

func (in Inputs) zone() *time.Location {
	if in.Zone == nil {
		return time.Local
	}
	return in.Zone
}

// Request returns the schedule request for the civil date of day.
func (in Inputs) Request(day time.Time) schedule.Request {
	return schedule.Request{
		Date:          day.In(in.zone()),
		Location:      in.Location,
		Method:        in.Method,
		Rounding:      in.Rounding,
		OffsetMinutes: in.OffsetMinutes,
	}
}

// EventKind identifies why a recompute was requested.
type EventKind int

const (
	EventLocationChanged EventKind = iota + 1
	EventSettingsChanged
	EventDayRollover
	EventTriggerFired
	EventRetry
)

func (k EventKind) String() string {
	switch k {
	case EventLocationChanged:
		return "location_changed"
	case EventSettingsChanged:
		return "settings_changed"
	case EventDayRollover:
		return "day_rollover"
	case EventTriggerFired:
		return "trigger_fired"
	case EventRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Event is delivered to Scheduler.Notify. Nil fields leave the current
// input unchanged. OwnerID narrows the recompute to one owner. AsrFactor
// applies to the method in effect after Method, so a school change never
// carries a stale copy of the method.
type Event struct {
	Kind          EventKind
	OwnerID       string
	Location      *prayer.Location
	Method        *method.Method
	AsrFactor     *int
	Rounding      *schedule.Rounding
	OffsetMinutes *int
	Zone          *time.Location
}

// Apply returns in with the event's fields set.
func (e Event) Apply(in Inputs) Inputs {
	if e.Location != nil {
		in.Location = *e.Location
	}
	if e.Method != nil {
		in.Method = *e.Method
	}
	if e.AsrFactor != nil {
		in.Method = in.Method.WithAsrFactor(*e.AsrFactor)
	}
	if e.Rounding != nil {
		in.Rounding = *e.Rounding
	}
	if e.OffsetMinutes != nil {
		in.OffsetMinutes = *e.OffsetMinutes
	}
	if e.Zone != nil {
		in.Zone = e.Zone
	}
	return in
}
