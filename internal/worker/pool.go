package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sebaskun/taskscheduler/internal/config"
	"github.com/sebaskun/taskscheduler/internal/events"
	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/metrics"
	"github.com/sebaskun/taskscheduler/internal/queue"
	"github.com/sebaskun/taskscheduler/internal/task"
)

// slot is one worker goroutine's control handle. Its own cancel func is
// what makes scale-down forcible: cancelling a slot's context
// immediately aborts whatever it is running.
type slot struct {
	idx    int
	cancel context.CancelFunc

	mu      sync.Mutex
	running string // task id currently executing on this slot, "" if idle
	alive   bool
}

func (s *slot) setRunning(id string) {
	s.mu.Lock()
	s.running = id
	s.mu.Unlock()
}

func (s *slot) clearRunning() {
	s.mu.Lock()
	s.running = ""
	s.mu.Unlock()
}

func (s *slot) currentTask() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *slot) setAlive(v bool) {
	s.mu.Lock()
	s.alive = v
	s.mu.Unlock()
}

func (s *slot) isAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// SlotStatus is a snapshot of one worker slot, returned by Pool.Status.
type SlotStatus struct {
	WorkerID string
	Running  string // task id, or "" if idle
	Alive    bool
}

// Pool manages a scalable set of worker goroutines that pop tasks off a
// ReadyQueue, run them through an Executor, and record the outcome in
// the task registry.
type Pool struct {
	id        string
	registry  *task.Registry
	queue     *queue.ReadyQueue
	executor  *Executor
	publisher events.Publisher
	cfg       *config.SchedulerConfig

	mu    sync.Mutex
	slots []*slot
	wg    sync.WaitGroup
}

// NewPool creates a worker pool bound to registry and q. The pool owns
// no tasks itself; it only moves them through the registry's state
// machine as it pops them from q.
func NewPool(id string, registry *task.Registry, q *queue.ReadyQueue, publisher events.Publisher, cfg *config.SchedulerConfig) *Pool {
	return &Pool{
		id:        id,
		registry:  registry,
		queue:     q,
		executor:  NewExecutor(),
		publisher: publisher,
		cfg:       cfg,
	}
}

// Start spawns the initial set of worker slots under ctx. Stopping ctx
// stops every slot; Scale can still add or remove slots afterward, each
// with its own child context.
func (p *Pool) Start(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < n; i++ {
		p.spawnSlotLocked(ctx, i)
	}

	metrics.SetActiveWorkers(float64(len(p.slots)))
	logger.Info().Str("pool_id", p.id).Int("workers", n).Msg("worker pool started")
}

// spawnSlotLocked must be called with p.mu held.
func (p *Pool) spawnSlotLocked(parent context.Context, idx int) {
	slotCtx, cancel := context.WithCancel(parent)
	s := &slot{idx: idx, cancel: cancel, alive: true}
	p.slots = append(p.slots, s)

	p.wg.Add(1)
	go p.runSlot(slotCtx, s)
}

// Reconcile is the supervisor's monitor tick: any slot whose goroutine
// exited (panic recovery unwinds the loop rather than resuming it) is
// respawned in place, bound to parent, at the same index.
func (p *Pool) Reconcile(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range p.slots {
		if s.isAlive() {
			continue
		}
		slotCtx, cancel := context.WithCancel(parent)
		ns := &slot{idx: s.idx, cancel: cancel, alive: true}
		p.slots[i] = ns
		metrics.IncrementWorkerRestarts()
		p.wg.Add(1)
		go p.runSlot(slotCtx, ns)
	}
}

// Scale adjusts the number of worker slots to n. Scaling down forcibly
// cancels the excess slots without draining them; any task they were
// running is handled via MarkWorkerDied.
func (p *Pool) Scale(ctx context.Context, n int) error {
	if n < 0 {
		return errors.New("worker count cannot be negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current := len(p.slots)
	switch {
	case n > current:
		for i := current; i < n; i++ {
			p.spawnSlotLocked(ctx, i)
		}
	case n < current:
		doomed := p.slots[n:]
		p.slots = p.slots[:n]
		for _, s := range doomed {
			s.cancel()
		}
	}

	metrics.SetActiveWorkers(float64(len(p.slots)))
	logger.Info().Str("pool_id", p.id).Int("workers", len(p.slots)).Msg("worker pool scaled")
	return nil
}

// Stop cancels every slot and waits for them to exit, up to
// cfg.ShutdownTimeout.
func (p *Pool) Stop() {
	p.mu.Lock()
	for _, s := range p.slots {
		s.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Str("pool_id", p.id).Msg("worker pool stopped gracefully")
	case <-time.After(p.cfg.ShutdownTimeout):
		logger.Warn().Str("pool_id", p.id).Msg("worker pool shutdown timed out")
	}
}

// Status returns a snapshot of every worker slot.
func (p *Pool) Status() []SlotStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]SlotStatus, len(p.slots))
	for i, s := range p.slots {
		out[i] = SlotStatus{
			WorkerID: p.workerID(s.idx),
			Running:  s.currentTask(),
			Alive:    s.isAlive(),
		}
	}
	return out
}

// ActiveWorkers returns the current slot count.
func (p *Pool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// AliveWorkers returns the number of slots whose goroutine is currently
// running.
func (p *Pool) AliveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	alive := 0
	for _, s := range p.slots {
		if s.isAlive() {
			alive++
		}
	}
	return alive
}

// BusyWorkers returns the number of slots currently executing a task.
func (p *Pool) BusyWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	busy := 0
	for _, s := range p.slots {
		if s.currentTask() != "" {
			busy++
		}
	}
	return busy
}

func (p *Pool) workerID(idx int) string {
	return fmt.Sprintf("%s-%d", p.id, idx)
}

// runSlot is the main loop for one worker goroutine.
func (p *Pool) runSlot(ctx context.Context, s *slot) {
	defer p.wg.Done()

	workerID := p.workerID(s.idx)
	log := logger.WithWorker(workerID)
	log.Info().Msg("worker started")

	defer func() {
		s.setAlive(false)
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("worker slot crashed")
			if id := s.currentTask(); id != "" {
				p.abandonTask(context.Background(), id)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if id := s.currentTask(); id != "" {
				p.abandonTask(context.Background(), id)
			}
			log.Info().Msg("worker stopped")
			return
		default:
		}

		t, ok := p.queue.Pop(ctx, p.cfg.QueuePopTimeout)
		if !ok {
			continue
		}

		p.processTask(ctx, workerID, s, t)
	}
}

// abandonTask marks a task left RUNNING by a dying/killed worker slot as
// FAILED with WorkerDied, then propagates cancellation to its
// dependents.
func (p *Pool) abandonTask(ctx context.Context, taskID string) {
	released, err := p.registry.MarkWorkerDied(taskID)
	if err != nil || released == nil {
		return
	}
	p.publish(ctx, events.EventTaskFailed, taskID, "WorkerDied")
	p.cancelReleased(ctx, released)
}

type execResult struct {
	value any
	err   error
}

// processTask pops one task through MarkRunning, executes it with
// cooperative timeout enforcement, and records the outcome.
func (p *Pool) processTask(ctx context.Context, workerID string, s *slot, t *task.Task) {
	if err := p.registry.MarkRunning(t.ID, workerID); err != nil {
		// Lost the race with a concurrent Cancel: the task was already
		// CANCELLED by the time we tried to claim it.
		return
	}
	s.setRunning(t.ID)
	defer s.clearRunning()

	p.publish(ctx, events.EventTaskStarted, t.ID, "")

	taskCtx := ctx
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	resultCh := make(chan execResult, 1)
	go func() {
		value, err := p.executor.Execute(taskCtx, t)
		resultCh <- execResult{value: value, err: err}
	}()

	select {
	case r := <-resultCh:
		p.finish(ctx, t, r, time.Since(start))
	case <-taskCtx.Done():
		// The deadline fired before the body returned, so the task is
		// marked TIMEOUT right now rather than waiting for the
		// still-running goroutine to notice on its own.
		if ctx.Err() != nil {
			// The worker's own context died (forced scale-down or
			// shutdown), not just this task's deadline.
			p.abandonTask(ctx, t.ID)
			return
		}
		released, err := p.registry.MarkTimeout(t.ID, "execution exceeded timeout")
		if err == nil {
			metrics.RecordTaskCompletion("timeout", time.Since(start).Seconds())
			p.publish(ctx, events.EventTaskTimeout, t.ID, "")
			p.cancelReleased(ctx, released)
		}
	}
}

func (p *Pool) finish(ctx context.Context, t *task.Task, r execResult, duration time.Duration) {
	if r.err != nil {
		released, err := p.registry.MarkFailed(t.ID, r.err.Error())
		if err != nil {
			return
		}
		metrics.RecordTaskCompletion("failed", duration.Seconds())
		p.publish(ctx, events.EventTaskFailed, t.ID, r.err.Error())
		p.cancelReleased(ctx, released)
		return
	}

	released, err := p.registry.MarkCompleted(t.ID, r.value)
	if err != nil {
		return
	}
	metrics.RecordTaskCompletion("completed", duration.Seconds())
	p.publish(ctx, events.EventTaskCompleted, t.ID, "")
	p.releaseReady(ctx, released)
}

// releaseReady pushes newly-ready dependents (from a completion sweep)
// onto the queue.
func (p *Pool) releaseReady(ctx context.Context, ids []string) {
	for _, id := range ids {
		t, err := p.registry.Get(id)
		if err != nil {
			continue
		}
		if !p.registry.MarkQueued(id) {
			continue
		}
		p.queue.Push(t)
		metrics.UpdateQueueDepth(float64(p.queue.Len()))
	}
}

// cancelReleased reports the cascade of dependents cancelled by a
// failure/timeout/cancel as events; they are terminal and never queued.
func (p *Pool) cancelReleased(ctx context.Context, ids []string) {
	for _, id := range ids {
		metrics.RecordTaskCancelled("dependency_failed")
		p.publish(ctx, events.EventTaskCancelled, id, "")
	}
}

func (p *Pool) publish(ctx context.Context, eventType events.EventType, taskID, errMsg string) {
	if p.publisher == nil {
		return
	}
	extra := map[string]interface{}{}
	if errMsg != "" {
		extra["error"] = errMsg
	}
	event := events.NewEvent(eventType, events.TaskEventData(taskID, 0, extra))
	if err := p.publisher.Publish(ctx, event); err != nil {
		logger.Debug().Err(err).Msg("failed to publish lifecycle event")
	}
}
