// Package scheduler implements the Supervisor facade: the single
// entry point that owns the task registry, ready queue, and worker
// pool, and exposes the submit/cancel/scale/monitor/status/wait/
// shutdown surface.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sebaskun/taskscheduler/internal/config"
	"github.com/sebaskun/taskscheduler/internal/events"
	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/metrics"
	"github.com/sebaskun/taskscheduler/internal/queue"
	"github.com/sebaskun/taskscheduler/internal/task"
	"github.com/sebaskun/taskscheduler/internal/worker"
)

// WorkerStatus summarizes the worker pool for StatusReport.
type WorkerStatus struct {
	Total int
	Alive int
}

// StatusReport is a point-in-time summary of worker and task counts.
type StatusReport struct {
	Workers WorkerStatus
	Tasks   map[task.Status]int
}

// Supervisor is the scheduler's public API. It owns a task.Registry, a
// queue.ReadyQueue, and a worker.Pool, and is the only component
// allowed to push newly-submitted tasks onto the queue; workers only
// push dependency-released ones.
type Supervisor struct {
	id        string
	cfg       *config.SchedulerConfig
	registry  *task.Registry
	queue     *queue.ReadyQueue
	pool      *worker.Pool
	publisher events.Publisher

	ctx    context.Context
	cancel context.CancelFunc

	shutdownOnce sync.Once
	shutdown     bool
	mu           sync.Mutex
}

// New constructs a Supervisor and starts its initial worker pool. The
// returned Supervisor is ready to accept Submit calls immediately.
func New(cfg *config.SchedulerConfig, publisher events.Publisher) *Supervisor {
	id := "scheduler-" + uuid.NewString()[:8]
	ctx, cancel := context.WithCancel(context.Background())

	registry := task.NewRegistry()
	rq := queue.New()
	pool := worker.NewPool(id, registry, rq, publisher, cfg)
	pool.Start(ctx, cfg.InitialWorkers)

	return &Supervisor{
		id:        id,
		cfg:       cfg,
		registry:  registry,
		queue:     rq,
		pool:      pool,
		publisher: publisher,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit constructs a Task from fn and opts, inserts it into the
// registry, and pushes it straight to the ReadyQueue if its
// dependencies are already satisfied.
func (s *Supervisor) Submit(fn task.Func, opts ...task.Option) (string, error) {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return "", task.ErrSchedulerStopped
	}
	s.mu.Unlock()

	t := task.New(uuid.NewString, fn, opts...)

	if err := s.registry.CheckAcyclic(t.ID, t.Dependencies); err != nil {
		return "", fmt.Errorf("submit %s: %w", t.ID, err)
	}
	for _, dep := range t.Dependencies {
		if !s.registry.Exists(dep) {
			return "", fmt.Errorf("submit %s: %w: %s", t.ID, task.ErrDependencyNotFound, dep)
		}
	}

	if err := s.registry.Insert(t); err != nil {
		return "", err
	}

	metrics.RecordTaskSubmission(fmt.Sprintf("%d", t.Priority))
	s.publish(events.EventTaskSubmitted, t.ID, "")

	if s.registry.DependenciesSatisfied(t) {
		s.enqueue(t)
	}

	return t.ID, nil
}

// enqueue marks a task queued and pushes it. MarkQueued ensures a task
// enters the ReadyQueue at most once.
func (s *Supervisor) enqueue(t *task.Task) {
	if !s.registry.MarkQueued(t.ID) {
		return
	}
	s.queue.Push(t)
	metrics.UpdateQueueDepth(float64(s.queue.Len()))
}

// Cancel delegates to the registry's compare-and-set cancel. Succeeds
// only for PENDING tasks.
func (s *Supervisor) Cancel(taskID string) (bool, error) {
	ok, err := s.registry.TryCancel(taskID)
	if err != nil {
		return false, err
	}
	if ok {
		metrics.RecordTaskCancelled("direct")
		s.publish(events.EventTaskCancelled, taskID, "")
	}
	return ok, nil
}

// Scale adjusts the worker pool to n slots. Scaling down is forcible:
// an in-flight task on a terminated slot is handled the same way as an
// unexpected worker death.
func (s *Supervisor) Scale(n int) error {
	if err := s.pool.Scale(s.ctx, n); err != nil {
		return err
	}
	s.publish(events.EventSchedulerScaled, "", fmt.Sprintf("%d", n))
	return nil
}

// Monitor reaps and respawns any worker slot whose goroutine has died.
func (s *Supervisor) Monitor() {
	s.pool.Reconcile(s.ctx)
}

// Status returns a snapshot of worker and task counts.
func (s *Supervisor) Status() StatusReport {
	return StatusReport{
		Workers: WorkerStatus{
			Total: s.pool.ActiveWorkers(),
			Alive: s.pool.AliveWorkers(),
		},
		Tasks: s.registry.StatusCounts(),
	}
}

// GetTask returns a snapshot of one task, for the read-only
// observability surface.
func (s *Supervisor) GetTask(taskID string) (*task.Task, error) {
	return s.registry.Get(taskID)
}

// Snapshot returns every task currently known to the registry.
func (s *Supervisor) Snapshot() []*task.Task {
	return s.registry.Snapshot()
}

// WaitCompletion blocks until every submitted task has reached a
// terminal state, calling Monitor on each tick.
func (s *Supervisor) WaitCompletion(ctx context.Context, checkInterval time.Duration) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	if s.registry.PendingAndRunning() == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Monitor()
			if s.registry.PendingAndRunning() == 0 {
				return nil
			}
		}
	}
}

// Shutdown terminates every worker and joins them. It does not drain
// the ReadyQueue; PENDING tasks are left in that state for
// observability. Idempotent; the Supervisor is not restartable
// afterward.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()

		logger.WithScheduler(s.id).Info().Msg("shutting down")
		s.cancel()
		s.pool.Stop()
		s.queue.Close()
		if s.publisher != nil {
			_ = s.publisher.Close()
		}
	})
}

func (s *Supervisor) publish(eventType events.EventType, taskID, extra string) {
	if s.publisher == nil {
		return
	}
	data := events.TaskEventData(taskID, 0, nil)
	if extra != "" {
		data["detail"] = extra
	}
	event := events.NewEvent(eventType, data)
	if err := s.publisher.Publish(s.ctx, event); err != nil {
		logger.Debug().Err(err).Msg("failed to publish scheduler event")
	}
}
