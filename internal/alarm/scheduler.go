package alarm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/athan/internal/prayer"
	"github.com/smokyabdulrahman/athan/internal/schedule"
)

// DefaultRetryInterval is used when Config.RetryInterval is zero.
const DefaultRetryInterval = 5 * time.Minute

// Config configures a Scheduler.
type Config struct {
	Owners        []Owner
	Inputs        Inputs
	Clock         Clock
	RetryInterval time.Duration
	Logger        *zap.Logger
}

// Scheduler owns the armed trigger of every registered owner. Mutations
// for one owner are serialized; recompute requests are coalesced so at
// most one is pending per owner.
type Scheduler struct {
	platform Platform
	clock    Clock
	retry    time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	inputs Inputs

	owners map[string]*ownerState
	order  []string
}

type ownerState struct {
	owner   Owner
	mu      sync.Mutex
	armed   *Trigger
	retry   *time.Timer
	pending chan struct{}
}

// New creates a scheduler for the given owners.
func New(platform Platform, cfg Config) (*Scheduler, error) {
	if platform == nil {
		return nil, errors.New("alarm: nil platform")
	}
	if len(cfg.Owners) == 0 {
		return nil, errors.New("alarm: no owners")
	}

	s := &Scheduler{
		platform: platform,
		clock:    cfg.Clock,
		retry:    cfg.RetryInterval,
		logger:   cfg.Logger,
		inputs:   cfg.Inputs,
		owners:   make(map[string]*ownerState, len(cfg.Owners)),
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.retry <= 0 {
		s.retry = DefaultRetryInterval
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	for _, o := range cfg.Owners {
		if o.ID == "" {
			return nil, errors.New("alarm: owner with empty id")
		}
		if _, dup := s.owners[o.ID]; dup {
			return nil, fmt.Errorf("alarm: duplicate owner %q", o.ID)
		}
		if o.Lead < 0 {
			return nil, fmt.Errorf("alarm: owner %q has negative lead", o.ID)
		}
		s.owners[o.ID] = &ownerState{owner: o, pending: make(chan struct{}, 1)}
		s.order = append(s.order, o.ID)
	}
	return s, nil
}

func (s *Scheduler) state(ownerID string) (*ownerState, error) {
	st, ok := s.owners[ownerID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOwner, ownerID)
	}
	return st, nil
}

// Inputs returns the current inputs.
func (s *Scheduler) Inputs() Inputs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputs
}

// Owners returns the registered owners in registration order.
func (s *Scheduler) Owners() []Owner {
	out := make([]Owner, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.owners[id].owner)
	}
	return out
}

// Arm points the owner's trigger at its next event in sched. Re-arming the
// same event at the same fire time is a no-op.
func (s *Scheduler) Arm(ctx context.Context, ownerID string, sched *schedule.Schedule) (Trigger, error) {
	st, err := s.state(ownerID)
	if err != nil {
		return Trigger{}, err
	}
	return s.arm(ctx, st, sched, s.clock.Now())
}

func (s *Scheduler) arm(ctx context.Context, st *ownerState, sched *schedule.Schedule, now time.Time) (Trigger, error) {
	idx, ok := selectEvent(st.owner, sched, now)
	if !ok {
		return Trigger{}, ErrNoUpcomingEvent
	}
	eventAt := sched.Times[idx]
	fireAt := eventAt.Add(-st.owner.Lead)

	st.mu.Lock()
	defer st.mu.Unlock()

	// Yesterday's NextFajr and today's Fajr are the same instant.
	if a := st.armed; a != nil && a.EventAt.Equal(eventAt) && a.FireAt.Equal(fireAt) {
		a.Index, a.Name = idx, prayer.Names[idx]
		return *a, nil
	}

	if st.armed != nil {
		if err := s.platform.Cancel(ctx, st.owner.ID); err != nil {
			return Trigger{}, s.rejected(ctx, st, fmt.Errorf("cancel: %w", err))
		}
		st.armed = nil
	}

	t := Trigger{
		ID:      uuid.New(),
		OwnerID: st.owner.ID,
		Index:   idx,
		Name:    prayer.Names[idx],
		FireAt:  fireAt,
		EventAt: eventAt,
		Extreme: sched.Extremes[idx],
	}
	if err := s.platform.Arm(ctx, t); err != nil {
		return Trigger{}, s.rejected(ctx, st, err)
	}
	st.armed = &t

	s.logger.Info("trigger armed",
		zap.String("owner", t.OwnerID),
		zap.String("event", t.Name),
		zap.Time("fire_at", t.FireAt),
		zap.Time("event_at", t.EventAt),
	)
	return t, nil
}

// rejected logs a platform failure and schedules a retry for the owner.
// The retry is dropped once ctx is done. Callers hold st.mu.
func (s *Scheduler) rejected(ctx context.Context, st *ownerState, err error) error {
	ownerID := st.owner.ID
	s.logger.Warn("trigger rejected, will retry",
		zap.String("owner", ownerID),
		zap.Duration("retry_in", s.retry),
		zap.Error(err),
	)
	if st.retry != nil {
		st.retry.Stop()
	}
	st.retry = time.AfterFunc(s.retry, func() {
		if ctx.Err() != nil {
			return
		}
		s.Notify(Event{Kind: EventRetry, OwnerID: ownerID})
	})
	return fmt.Errorf("%w: %v", ErrRecomputeLater, err)
}

// stopRetries stops every pending retry timer.
func (s *Scheduler) stopRetries() {
	for _, st := range s.owners {
		st.mu.Lock()
		if st.retry != nil {
			st.retry.Stop()
			st.retry = nil
		}
		st.mu.Unlock()
	}
}

// selectEvent picks the first event the owner does not skip whose fire
// time is strictly after now.
func selectEvent(o Owner, sched *schedule.Schedule, now time.Time) (int, bool) {
	for i, t := range sched.Times {
		if sched.Extremes[i] || o.skips(i) {
			continue
		}
		if t.Add(-o.Lead).After(now) {
			return i, true
		}
	}
	return 0, false
}

// Cancel disarms the owner's trigger. It is a no-op when nothing is armed.
func (s *Scheduler) Cancel(ctx context.Context, ownerID string) error {
	st, err := s.state(ownerID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.armed == nil {
		return nil
	}
	if err := s.platform.Cancel(ctx, ownerID); err != nil {
		return fmt.Errorf("%w: cancel: %v", ErrRecomputeLater, err)
	}
	s.logger.Info("trigger cancelled", zap.String("owner", ownerID))
	st.armed = nil
	return nil
}

// Adopt records triggers restored by the platform after a restart so the
// next recompute can recognise them. Unknown owners are ignored.
func (s *Scheduler) Adopt(triggers []Trigger) {
	for _, t := range triggers {
		t := t // per-iteration copy: st.armed keeps its address
		st, ok := s.owners[t.OwnerID]
		if !ok {
			continue
		}
		st.mu.Lock()
		st.armed = &t
		st.mu.Unlock()
	}
}

// Armed returns the owner's current trigger.
func (s *Scheduler) Armed(ownerID string) (Trigger, bool) {
	st, ok := s.owners[ownerID]
	if !ok {
		return Trigger{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.armed == nil {
		return Trigger{}, false
	}
	return *st.armed, true
}

// Snapshot returns every armed trigger ordered by fire time.
func (s *Scheduler) Snapshot() []Trigger {
	var out []Trigger
	for _, id := range s.order {
		if t, ok := s.Armed(id); ok {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Recompute builds today's schedule from the current inputs and arms the
// owner's trigger, moving on to tomorrow when today has nothing left.
func (s *Scheduler) Recompute(ctx context.Context, ownerID string) (Trigger, error) {
	st, err := s.state(ownerID)
	if err != nil {
		return Trigger{}, err
	}

	in := s.Inputs()
	now := s.clock.Now()
	day := now.In(in.zone())

	for i := 0; i < 2; i++ {
		sched, err := schedule.Build(in.Request(day.AddDate(0, 0, i)), now)
		if err != nil {
			return Trigger{}, fmt.Errorf("build schedule: %w", err)
		}
		t, err := s.arm(ctx, st, sched, now)
		if errors.Is(err, ErrNoUpcomingEvent) {
			continue
		}
		return t, err
	}
	return Trigger{}, ErrNoUpcomingEvent
}

// Notify applies the event to the inputs and requests a recompute for the
// affected owners. It never blocks.
func (s *Scheduler) Notify(ev Event) {
	s.mu.Lock()
	s.inputs = ev.Apply(s.inputs)
	s.mu.Unlock()

	s.logger.Debug("event received", zap.Stringer("kind", ev.Kind), zap.String("owner", ev.OwnerID))

	if ev.OwnerID != "" {
		if st, ok := s.owners[ev.OwnerID]; ok {
			st.request()
		}
		return
	}
	for _, id := range s.order {
		s.owners[id].request()
	}
}

func (st *ownerState) request() {
	select {
	case st.pending <- struct{}{}:
	default:
	}
}

// Run recomputes every owner once, then serves recompute requests and the
// day rollover until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("alarm scheduler started", zap.Int("owners", len(s.order)))

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range s.order {
		st := s.owners[id]
		st.request()
		g.Go(func() error {
			s.work(ctx, st)
			return nil
		})
	}
	g.Go(func() error {
		s.rollover(ctx)
		return nil
	})

	err := g.Wait()
	s.stopRetries()
	s.logger.Info("alarm scheduler stopped")
	return err
}

func (s *Scheduler) work(ctx context.Context, st *ownerState) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-st.pending:
			if _, err := s.Recompute(ctx, st.owner.ID); err != nil && !errors.Is(err, ErrRecomputeLater) {
				s.logger.Error("recompute failed", zap.String("owner", st.owner.ID), zap.Error(err))
			}
		}
	}
}

// rollover notifies a day change at every local midnight.
func (s *Scheduler) rollover(ctx context.Context) {
	for {
		wait := untilMidnight(s.clock.Now().In(s.Inputs().zone()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Notify(Event{Kind: EventDayRollover})
		}
	}
}

func untilMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}
