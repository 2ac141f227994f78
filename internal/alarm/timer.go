package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerStore persists armed triggers, keyed by owner.
type TriggerStore interface {
	Save(ctx context.Context, t Trigger) error
	Delete(ctx context.Context, ownerID string) error
	Load(ctx context.Context) ([]Trigger, error)
}

// FireFunc is called when a trigger's time arrives.
type FireFunc func(ctx context.Context, t Trigger)

// TimerPlatform is a Platform backed by a TriggerStore and in-process
// timers. Triggers survive restarts through Restore.
type TimerPlatform struct {
	store  TriggerStore
	fire   FireFunc
	clock  Clock
	logger *zap.Logger

	mu     sync.Mutex
	timers map[string]*armedTimer
}

type armedTimer struct {
	id    uuid.UUID
	timer *time.Timer
}

// NewTimerPlatform creates a platform. fire may be nil.
func NewTimerPlatform(store TriggerStore, fire FireFunc, clock Clock, logger *zap.Logger) *TimerPlatform {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimerPlatform{
		store:  store,
		fire:   fire,
		clock:  clock,
		logger: logger,
		timers: make(map[string]*armedTimer),
	}
}

// Arm persists t and starts its timer, replacing the owner's previous one.
func (p *TimerPlatform) Arm(ctx context.Context, t Trigger) error {
	if err := p.store.Save(ctx, t); err != nil {
		return fmt.Errorf("save trigger: %w", err)
	}
	p.start(t)
	return nil
}

// Cancel stops the owner's timer and removes its stored trigger.
func (p *TimerPlatform) Cancel(ctx context.Context, ownerID string) error {
	p.mu.Lock()
	if at, ok := p.timers[ownerID]; ok {
		at.timer.Stop()
		delete(p.timers, ownerID)
	}
	p.mu.Unlock()

	if err := p.store.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	return nil
}

// Restore re-arms stored triggers whose fire time is still ahead and
// drops the rest. It returns the triggers that were re-armed.
func (p *TimerPlatform) Restore(ctx context.Context) ([]Trigger, error) {
	stored, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load triggers: %w", err)
	}

	now := p.clock.Now()
	var live []Trigger
	for _, t := range stored {
		if !t.FireAt.After(now) {
			p.logger.Info("dropping missed trigger",
				zap.String("owner", t.OwnerID),
				zap.String("event", t.Name),
				zap.Time("fire_at", t.FireAt),
			)
			if err := p.store.Delete(ctx, t.OwnerID); err != nil {
				return live, fmt.Errorf("delete trigger: %w", err)
			}
			continue
		}
		p.start(t)
		live = append(live, t)
	}
	return live, nil
}

// Pending returns the number of running timers.
func (p *TimerPlatform) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}

// Stop halts every timer without touching the store.
func (p *TimerPlatform) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, at := range p.timers {
		at.timer.Stop()
		delete(p.timers, id)
	}
}

func (p *TimerPlatform) start(t Trigger) {
	wait := t.FireAt.Sub(p.clock.Now())
	if wait < 0 {
		wait = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.timers[t.OwnerID]; ok {
		prev.timer.Stop()
	}
	p.timers[t.OwnerID] = &armedTimer{
		id:    t.ID,
		timer: time.AfterFunc(wait, func() { p.fired(t) }),
	}
}

func (p *TimerPlatform) fired(t Trigger) {
	p.mu.Lock()
	at, ok := p.timers[t.OwnerID]
	if !ok || at.id != t.ID {
		p.mu.Unlock()
		return
	}
	delete(p.timers, t.OwnerID)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.store.Delete(ctx, t.OwnerID); err != nil {
		p.logger.Error("delete fired trigger", zap.String("owner", t.OwnerID), zap.Error(err))
	}
	p.logger.Info("trigger fired", zap.String("owner", t.OwnerID), zap.String("event", t.Name))
	if p.fire != nil {
		p.fire(ctx, t)
	}
}

// MemoryStore is a TriggerStore kept in memory.
type MemoryStore struct {
	mu       sync.Mutex
	triggers map[string]Trigger
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{triggers: make(map[string]Trigger)}
}

// Save stores t, replacing the owner's previous trigger.
func (m *MemoryStore) Save(_ context.Context, t Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers[t.OwnerID] = t
	return nil
}

// Delete removes the owner's trigger.
func (m *MemoryStore) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.triggers, ownerID)
	return nil
}

// Load returns every stored trigger.
func (m *MemoryStore) Load(_ context.Context) ([]Trigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Trigger, 0, len(m.triggers))
	for _, t := range m.triggers {
		out = append(out, t)
	}
	return out, nil
}
