package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testQuiet = 30 * time.Millisecond

func testEvent() models.ChangeEvent {
	return models.ChangeEvent{
		Entity:   models.EntityOrder,
		Op:       models.OpUpdate,
		EntityID: uuid.New(),
	}
}

func startDispatcher(t *testing.T, bus *Bus) *Dispatcher {
	t.Helper()
	d := NewDispatcher(bus, testQuiet, zap.NewNop())
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(d.Stop)
	return d
}

func TestDispatcher_DebouncesBurstToSingleRefresh(t *testing.T) {
	bus := NewBus()
	d := startDispatcher(t, bus)

	var fired atomic.Int32
	d.Register("progress", func(context.Context) { fired.Add(1) })

	// burst of events inside the quiet window
	for i := 0; i < 10; i++ {
		bus.Publish(testEvent())
		time.Sleep(2 * time.Millisecond)
	}

	// nothing may fire before the quiet period elapses from the last event
	assert.Equal(t, int32(0), fired.Load())

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	// and nothing more afterwards
	time.Sleep(3 * testQuiet)
	assert.Equal(t, int32(1), fired.Load())
}

func TestDispatcher_SeparateBurstsFireSeparately(t *testing.T) {
	bus := NewBus()
	d := startDispatcher(t, bus)

	var fired atomic.Int32
	d.Register("progress", func(context.Context) { fired.Add(1) })

	bus.Publish(testEvent())
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(testEvent())
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_EachSubscriberGetsOwnTimer(t *testing.T) {
	bus := NewBus()
	d := startDispatcher(t, bus)

	var progress, completed atomic.Int32
	d.Register("progress", func(context.Context) { progress.Add(1) })
	d.Register("completed", func(context.Context) { completed.Add(1) })

	bus.Publish(testEvent())

	assert.Eventually(t, func() bool {
		return progress.Load() == 1 && completed.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcher_SlowCallbackDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()
	d := startDispatcher(t, bus)

	release := make(chan struct{})
	var fast atomic.Int32
	d.Register("slow", func(context.Context) { <-release })
	d.Register("fast", func(context.Context) { fast.Add(1) })

	bus.Publish(testEvent())

	assert.Eventually(t, func() bool { return fast.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
}

func TestDispatcher_UnregisterCancelsPendingRefresh(t *testing.T) {
	bus := NewBus()
	d := startDispatcher(t, bus)

	var fired atomic.Int32
	d.Register("progress", func(context.Context) { fired.Add(1) })

	bus.Publish(testEvent())
	d.Unregister("progress")

	time.Sleep(3 * testQuiet)
	assert.Equal(t, int32(0), fired.Load(), "no callback may fire after teardown")
}

func TestDispatcher_StopCancelsEverything(t *testing.T) {
	bus := NewBus()
	d := NewDispatcher(bus, testQuiet, zap.NewNop())
	require.NoError(t, d.Start(context.Background()))

	var fired atomic.Int32
	d.Register("progress", func(context.Context) { fired.Add(1) })

	bus.Publish(testEvent())
	d.Stop()

	time.Sleep(3 * testQuiet)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, StateUnsubscribed, d.State())
}

func TestDispatcher_RetriesSubscriptionOnClosedBus(t *testing.T) {
	bus := NewBus()
	bus.Close()

	d := NewDispatcher(bus, testQuiet, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, StateUnsubscribed, d.State())
}

func TestDispatcher_RefreshAllBypassesDebounce(t *testing.T) {
	bus := NewBus()
	d := startDispatcher(t, bus)

	var fired atomic.Int32
	d.Register("progress", func(context.Context) { fired.Add(1) })

	d.RefreshAll(context.Background())
	assert.Equal(t, int32(1), fired.Load())
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var got atomic.Int32
	unsub, err := bus.Subscribe(func(models.ChangeEvent) { got.Add(1) })
	require.NoError(t, err)

	bus.Publish(testEvent())
	assert.Equal(t, int32(1), got.Load())

	unsub()
	bus.Publish(testEvent())
	assert.Equal(t, int32(1), got.Load())
}
