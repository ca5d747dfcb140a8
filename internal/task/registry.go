package task

import (
	"fmt"
	"sync"
)

// Registry is the process-wide shared map from task id to task, plus
// the auxiliary completed/cancelled/queued sets. All mutating
// operations are serialized under a single mutex.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	completed map[string]struct{}
	cancelled map[string]struct{}
	queued    map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:     make(map[string]*Task),
		completed: make(map[string]struct{}),
		cancelled: make(map[string]struct{}),
		queued:    make(map[string]struct{}),
	}
}

// Insert adds the task to the map. Fails with ErrTaskAlreadyExists if
// the id collides.
func (r *Registry) Insert(t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; exists {
		return fmt.Errorf("task %s: %w", t.ID, ErrTaskAlreadyExists)
	}
	r.tasks[t.ID] = t
	return nil
}

// Get returns a snapshot of the task, or ErrTaskNotFound.
func (r *Registry) Get(id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	return t.Clone(), nil
}

// Exists reports whether id is a known task, without taking a snapshot.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[id]
	return ok
}

// MarkQueued adds id to the queued set. Idempotent: a second call is a
// no-op, since the dependency-release sweep may re-evaluate readiness
// for a task already in flight. Returns true the first time a given
// task is marked queued.
func (r *Registry) MarkQueued(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, already := r.queued[id]; already {
		return false
	}
	r.queued[id] = struct{}{}
	return true
}

// IsQueued reports whether id has ever been pushed to the ReadyQueue.
func (r *Registry) IsQueued(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.queued[id]
	return ok
}

// MarkRunning transitions the task to RUNNING, claimed by workerID. It
// fails if the task is not currently PENDING, which is what a worker
// that popped a task the instant before a successful Cancel will see:
// the status is already CANCELLED and the task must be discarded.
func (r *Registry) MarkRunning(id, workerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	if t.Status != StatusPending {
		return ErrInvalidTransition
	}
	return NewStateMachine(t).Start(workerID)
}

// MarkCompleted transitions the task to COMPLETED and records result.
// Returns the ids of dependents released by the sweep.
func (r *Registry) MarkCompleted(id string, result any) ([]string, error) {
	r.mu.Lock()
	if err := r.completeLocked(id, result); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	released := r.sweepLocked()
	r.mu.Unlock()
	return released, nil
}

func (r *Registry) completeLocked(id string, result any) error {
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	if err := NewStateMachine(t).Complete(result); err != nil {
		return err
	}
	r.completed[id] = struct{}{}
	return nil
}

// MarkFailed transitions the task to FAILED and records err. FAILED
// does not release dependents; instead it cancels them through
// cancelDependentsLocked.
func (r *Registry) MarkFailed(id, errMsg string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	if err := NewStateMachine(t).Fail(errMsg); err != nil {
		return nil, err
	}
	return r.cancelDependentsLocked(id), nil
}

// MarkTimeout transitions the task to TIMEOUT and records err, then
// cancels its dependents the same way MarkFailed does.
func (r *Registry) MarkTimeout(id, errMsg string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	if err := NewStateMachine(t).Timeout(errMsg); err != nil {
		return nil, err
	}
	return r.cancelDependentsLocked(id), nil
}

// TryCancel cancels the task if it is currently PENDING. Returns true on
// success. Atomic with respect to MarkRunning: once this call returns
// true under the lock, no subsequent MarkRunning for the same id can
// ever succeed, because MarkRunning requires Status == PENDING.
func (r *Registry) TryCancel(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return false, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	if t.Status != StatusPending {
		return false, nil
	}
	if err := NewStateMachine(t).Cancel(""); err != nil {
		return false, err
	}
	r.cancelled[id] = struct{}{}
	r.cancelDependentsLocked(id)
	return true, nil
}

// MarkWorkerDied transitions a RUNNING task abandoned by a dead or
// forcibly terminated worker to FAILED with WorkerDied. A no-op if the
// task already reached a terminal state by the time the supervisor
// notices.
func (r *Registry) MarkWorkerDied(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	if t.Status != StatusRunning {
		return nil, nil
	}
	if err := NewStateMachine(t).Fail("WorkerDied"); err != nil {
		return nil, err
	}
	return r.cancelDependentsLocked(id), nil
}

// DependenciesSatisfied reports whether every dependency of t has
// reached COMPLETED.
func (r *Registry) DependenciesSatisfied(t *Task) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dependenciesSatisfiedLocked(t)
}

func (r *Registry) dependenciesSatisfiedLocked(t *Task) bool {
	for _, dep := range t.Dependencies {
		if _, ok := r.completed[dep]; !ok {
			return false
		}
	}
	return true
}

// sweepLocked walks every PENDING, not-yet-queued task and returns the
// ids whose dependencies are now satisfied. The caller is responsible
// for pushing them onto the ReadyQueue and calling MarkQueued. Must be
// called with r.mu held.
func (r *Registry) sweepLocked() []string {
	var ready []string
	for id, t := range r.tasks {
		if t.Status != StatusPending {
			continue
		}
		if _, queued := r.queued[id]; queued {
			continue
		}
		if r.dependenciesSatisfiedLocked(t) {
			ready = append(ready, id)
		}
	}
	return ready
}

// cancelDependentsLocked cancels every PENDING task that transitively
// depends on id, with a DependencyFailed error. Must be called with
// r.mu held. Returns the ids of tasks this call cancelled, so the
// caller can run them through its own bookkeeping (emitting events,
// say) without re-deriving the set.
func (r *Registry) cancelDependentsLocked(id string) []string {
	var cancelledIDs []string
	frontier := []string{id}

	for len(frontier) > 0 {
		upstream := frontier[0]
		frontier = frontier[1:]

		for depID, t := range r.tasks {
			if t.Status != StatusPending {
				continue
			}
			if !dependsOn(t, upstream) {
				continue
			}
			reason := fmt.Sprintf("DependencyFailed: %s reached %s", upstream, r.tasks[upstream].Status)
			if err := NewStateMachine(t).Cancel(reason); err != nil {
				continue
			}
			r.cancelled[depID] = struct{}{}
			cancelledIDs = append(cancelledIDs, depID)
			frontier = append(frontier, depID)
		}
	}

	return cancelledIDs
}

func dependsOn(t *Task, id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// CheckAcyclic reports ErrCyclicDependency if adding a new task with the
// given dependencies would create a cycle, or ErrDependencyNotFound if a
// dependency references an id the registry has never seen. newID is the
// id the new task will be inserted under; it must not already exist.
func (r *Registry) CheckAcyclic(newID string, deps []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, dep := range deps {
		if dep == newID {
			return ErrCyclicDependency
		}
		if _, ok := r.tasks[dep]; !ok {
			return fmt.Errorf("%w: %s", ErrDependencyNotFound, dep)
		}
	}

	// Walk backwards from each declared dependency through the existing
	// graph; if we ever reach newID, accepting these deps would close a
	// cycle. Existing tasks can't reference newID yet (it isn't inserted),
	// so this is sufficient without tracking forward edges.
	visited := make(map[string]bool)
	var walk func(id string) bool
	walk = func(id string) bool {
		if visited[id] {
			return false
		}
		visited[id] = true
		t, ok := r.tasks[id]
		if !ok {
			return false
		}
		for _, d := range t.Dependencies {
			if d == newID || walk(d) {
				return true
			}
		}
		return false
	}

	for _, dep := range deps {
		if walk(dep) {
			return ErrCyclicDependency
		}
	}
	return nil
}

// StatusCounts returns a count per Status value.
func (r *Registry) StatusCounts() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Status]int, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	for _, t := range r.tasks {
		counts[t.Status]++
	}
	return counts
}

// PendingAndRunning returns the combined count of PENDING and RUNNING
// tasks. Supervisor.WaitCompletion polls this to detect quiescence.
func (r *Registry) PendingAndRunning() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, t := range r.tasks {
		if t.Status == StatusPending || t.Status == StatusRunning {
			n++
		}
	}
	return n
}

// Snapshot returns a clone of every task currently known to the
// registry, used by the observability HTTP surface.
func (r *Registry) Snapshot() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Clone())
	}
	return out
}
