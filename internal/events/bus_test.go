package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe_FiltersByType(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, EventTaskCompleted)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, NewEvent(EventTaskStarted, nil)))
	require.NoError(t, bus.Publish(ctx, NewEvent(EventTaskCompleted, TaskEventData("t-1", 5, nil))))

	select {
	case event := <-ch:
		assert.Equal(t, EventTaskCompleted, event.Type)
		assert.Equal(t, "t-1", event.Data["task_id"])
	case <-time.After(time.Second):
		t.Fatal("expected event was not delivered")
	}

	select {
	case event := <-ch:
		t.Fatalf("unexpected second event delivered: %v", event)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_SubscribeAll_ReceivesEverything(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.SubscribeAll(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, NewEvent(EventTaskStarted, nil)))
	require.NoError(t, bus.Publish(ctx, NewEvent(EventWorkerStopped, nil)))

	seen := make([]EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case event := <-ch:
			seen = append(seen, event.Type)
		case <-time.After(time.Second):
			t.Fatal("missing broadcast event")
		}
	}
	assert.ElementsMatch(t, []EventType{EventTaskStarted, EventWorkerStopped}, seen)
}

func TestBus_CancelledContextClosesSubscriberChannel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.SubscribeAll(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed after context cancellation")
	}
}

func TestBus_PublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := bus.SubscribeAll(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufSize+10; i++ {
			_ = bus.Publish(ctx, NewEvent(EventTaskStarted, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}

func TestBus_Close_ClosesAllSubscribers(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	ch1, err := bus.SubscribeAll(ctx)
	require.NoError(t, err)
	ch2, err := bus.SubscribeAll(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)
}
