package alarm

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrigger(owner string, fireIn time.Duration) Trigger {
	at := time.Now().Add(fireIn)
	return Trigger{ID: uuid.New(), OwnerID: owner, Index: 3, Name: "Asr", FireAt: at, EventAt: at}
}

func TestTimerPlatform_Fires(t *testing.T) {
	store := NewMemoryStore()
	fired := make(chan Trigger, 1)
	p := NewTimerPlatform(store, func(_ context.Context, tr Trigger) { fired <- tr }, nil, nil)
	defer p.Stop()

	tr := newTrigger("athan", 20*time.Millisecond)
	require.NoError(t, p.Arm(context.Background(), tr))
	assert.Equal(t, 1, p.Pending())

	select {
	case got := <-fired:
		assert.Equal(t, tr.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not fire")
	}

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, 0, p.Pending())
}

func TestTimerPlatform_ReplaceAndCancel(t *testing.T) {
	store := NewMemoryStore()
	fired := make(chan Trigger, 2)
	p := NewTimerPlatform(store, func(_ context.Context, tr Trigger) { fired <- tr }, nil, nil)
	defer p.Stop()
	ctx := context.Background()

	first := newTrigger("athan", 30*time.Millisecond)
	second := newTrigger("athan", time.Hour)
	require.NoError(t, p.Arm(ctx, first))
	require.NoError(t, p.Arm(ctx, second))
	assert.Equal(t, 1, p.Pending())

	select {
	case tr := <-fired:
		t.Fatalf("replaced trigger fired: %v", tr.ID)
	case <-time.After(100 * time.Millisecond):
	}

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, second.ID, stored[0].ID)

	require.NoError(t, p.Cancel(ctx, "athan"))
	require.NoError(t, p.Cancel(ctx, "athan"))
	assert.Equal(t, 0, p.Pending())
	stored, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestTimerPlatform_Restore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	future := newTrigger("athan", time.Hour)
	missed := newTrigger("pre-alert", -time.Minute)
	require.NoError(t, store.Save(ctx, future))
	require.NoError(t, store.Save(ctx, missed))

	p := NewTimerPlatform(store, nil, nil, nil)
	defer p.Stop()

	live, err := p.Restore(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, future.ID, live[0].ID)
	assert.Equal(t, 1, p.Pending())

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestScheduler_AdoptKeepsRestoredTrigger(t *testing.T) {
	now := time.Date(2024, 3, 20, 14, 0, 0, 0, toronto(t))
	s, p := newTestScheduler(t, &fakeClock{now: now}, athan)

	first, err := s.Recompute(context.Background(), "athan")
	require.NoError(t, err)

	restarted, p2 := newTestScheduler(t, &fakeClock{now: now}, athan)
	restarted.Adopt([]Trigger{first, {OwnerID: "ghost"}})

	again, err := restarted.Recompute(context.Background(), "athan")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	arms, _, _ := p2.counts()
	assert.Equal(t, 0, arms)
	arms, _, _ = p.counts()
	assert.Equal(t, 1, arms)
}
