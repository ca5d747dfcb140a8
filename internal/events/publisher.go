package events

import (
	"context"
	"encoding/json"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Task lifecycle events
	EventTaskSubmitted EventType = "task.submitted"
	EventTaskStarted   EventType = "task.started"
	EventTaskCompleted EventType = "task.completed"
	EventTaskFailed    EventType = "task.failed"
	EventTaskCancelled EventType = "task.cancelled"
	EventTaskTimeout   EventType = "task.timeout"

	// Worker events
	EventWorkerStarted   EventType = "worker.started"
	EventWorkerStopped   EventType = "worker.stopped"
	EventWorkerRestarted EventType = "worker.restarted"

	// System events
	EventQueueDepth     EventType = "queue.depth"
	EventSchedulerScaled EventType = "scheduler.scaled"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ToJSON serializes the event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Publisher defines the interface for event publishers. Both the
// default in-memory Bus and the optional RedisPubSub backend implement
// it, so internal/api/websocket.Hub depends on this interface rather
// than a concrete backend.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error)
	SubscribeAll(ctx context.Context) (<-chan *Event, error)
	Close() error
}

// Subscriber represents an event subscriber
type Subscriber interface {
	OnEvent(event *Event)
	EventTypes() []EventType
}

// TaskEventData creates event data for task events
func TaskEventData(taskID string, priority int, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"task_id":  taskID,
		"priority": priority,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// WorkerEventData creates event data for worker events
func WorkerEventData(workerSlot int, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"worker_slot": workerSlot,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// QueueDepthData creates event data for queue depth events
func QueueDepthData(depth int) map[string]interface{} {
	return map[string]interface{}{
		"depth": depth,
	}
}
