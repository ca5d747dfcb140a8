// Package task defines the Task descriptor and its lifecycle state
// machine, the unit of work the scheduler moves between the Registry,
// the ReadyQueue, and the worker pool.
package task

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultPriority is used when a caller submits without specifying one.
// Smaller values are more urgent.
const DefaultPriority = 5

// Func is a unit of work closed over its own arguments. Callers close
// over whatever the work needs; there is no process boundary to
// serialize across, so no argument-marshaling scheme is required.
type Func func(ctx context.Context) (any, error)

// seqCounter hands out the monotonic submission-order tiebreaker used by
// the ReadyQueue. A counter is used instead of a wall-clock timestamp
// because multiple tasks can be submitted within the same clock tick.
var seqCounter atomic.Int64

func nextSeq() int64 {
	return seqCounter.Add(1)
}

// Task is a scheduled unit of work with lifecycle state. Fields other
// than ID, Func, Priority, Dependencies, Timeout, and Seq are owned by
// the TaskRegistry and must only be mutated through a StateMachine under
// the registry's lock.
type Task struct {
	ID           string
	Func         Func
	Priority     int
	Dependencies []string
	Timeout      time.Duration // zero means no timeout

	Seq int64 // submission-order tiebreaker, assigned at construction

	Status    Status
	Result    any
	Error     string
	WorkerID  string
	CreatedAt time.Time
	UpdatedAt time.Time

	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Option configures a Task at construction time.
type Option func(*Task)

// WithPriority overrides the default priority (lower is more urgent).
func WithPriority(p int) Option {
	return func(t *Task) { t.Priority = p }
}

// WithDependencies sets the set of task ids that must reach COMPLETED
// before this task becomes eligible to run.
func WithDependencies(deps ...string) Option {
	return func(t *Task) { t.Dependencies = deps }
}

// WithTimeout sets a wall-clock execution deadline for the task body.
func WithTimeout(d time.Duration) Option {
	return func(t *Task) { t.Timeout = d }
}

// New constructs a Task in PENDING state with a fresh unique id.
// idFunc generates the id (injected so the Supervisor can use
// google/uuid without this package importing it directly).
func New(idFunc func() string, fn Func, opts ...Option) *Task {
	now := time.Now().UTC()
	t := &Task{
		ID:        idFunc(),
		Func:      fn,
		Priority:  DefaultPriority,
		Seq:       nextSeq(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Clone returns a value copy of the task snapshot safe to hand to a
// caller outside the registry's lock.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Dependencies = append([]string(nil), t.Dependencies...)
	if t.StartedAt != nil {
		started := *t.StartedAt
		clone.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}

// Less orders tasks by priority ascending, then by submission order.
// This is the comparison the ReadyQueue's heap uses.
func (t *Task) Less(other *Task) bool {
	if t.Priority != other.Priority {
		return t.Priority < other.Priority
	}
	return t.Seq < other.Seq
}
