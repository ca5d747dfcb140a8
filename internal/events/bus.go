package events

import (
	"context"
	"sync"

	"github.com/sebaskun/taskscheduler/internal/logger"
)

// subscriberBufSize matches the buffering RedisPubSub gives each
// subscriber channel, so a slow consumer behaves the same under either
// backend (drop on overflow, never block the publisher).
const subscriberBufSize = 100

type subscription struct {
	ch         chan *Event
	eventTypes map[EventType]bool // nil means "all types"
}

// Bus is the default, in-process Publisher: lifecycle events never
// leave the scheduler's own memory unless a RedisPubSub backend is
// configured in its place (internal/config). It exists so the
// observability surface (HTTP/WebSocket) and the optional Redis fan-out
// share one event shape without requiring Redis for local/demo use.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

// NewBus creates an empty in-memory event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*subscription]struct{})}
}

// Publish fans the event out to every matching subscriber. Never blocks:
// a subscriber whose channel is full simply misses the event.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.eventTypes != nil && !sub.eventTypes[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			logger.Warn().Str("event_type", string(event.Type)).Msg("event bus subscriber full, dropping event")
		}
	}
	return nil
}

// Subscribe returns a channel of events matching eventTypes, closed
// when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error) {
	filter := make(map[EventType]bool, len(eventTypes))
	for _, et := range eventTypes {
		filter[et] = true
	}
	return b.subscribe(ctx, filter)
}

// SubscribeAll returns a channel of every event published on the bus.
func (b *Bus) SubscribeAll(ctx context.Context) (<-chan *Event, error) {
	return b.subscribe(ctx, nil)
}

func (b *Bus) subscribe(ctx context.Context, filter map[EventType]bool) (<-chan *Event, error) {
	sub := &subscription{
		ch:         make(chan *Event, subscriberBufSize),
		eventTypes: filter,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

// Close removes every subscriber. Subsequent Publish calls are no-ops
// until new subscribers arrive.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[*subscription]struct{})
	return nil
}
