package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebaskun/taskscheduler/internal/config"
	"github.com/sebaskun/taskscheduler/internal/task"
)

func testConfig(workers int) *config.SchedulerConfig {
	return &config.SchedulerConfig{
		InitialWorkers:     workers,
		DefaultTaskTimeout: 5 * time.Second,
		QueuePopTimeout:    50 * time.Millisecond,
		ShutdownTimeout:    2 * time.Second,
	}
}

func waitFor(t *testing.T, s *Supervisor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitCompletion(ctx, 10*time.Millisecond))
}

func addFunc(a, b int) task.Func {
	return func(ctx context.Context) (any, error) {
		return a + b, nil
	}
}

func TestSupervisor_BasicExecution(t *testing.T) {
	s := New(testConfig(1), nil)
	defer s.Shutdown()

	id, err := s.Submit(addFunc(5, 3))
	require.NoError(t, err)

	waitFor(t, s)

	tk, err := s.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, tk.Status)
	assert.Equal(t, 8, tk.Result)
}

func TestSupervisor_PriorityWithOneWorker(t *testing.T) {
	s := New(testConfig(0), nil)
	defer s.Shutdown()

	var order []int
	started := make(chan int, 3)

	mk := func(label int) task.Func {
		return func(ctx context.Context) (any, error) {
			started <- label
			return label, nil
		}
	}

	_, err := s.Submit(mk(10), task.WithPriority(10))
	require.NoError(t, err)
	_, err = s.Submit(mk(1), task.WithPriority(1))
	require.NoError(t, err)
	_, err = s.Submit(mk(5), task.WithPriority(5))
	require.NoError(t, err)

	require.NoError(t, s.Scale(1))
	waitFor(t, s)
	close(started)

	for label := range started {
		order = append(order, label)
	}
	assert.Equal(t, []int{1, 5, 10}, order)
}

func TestSupervisor_DependencyChain(t *testing.T) {
	s := New(testConfig(2), nil)
	defer s.Shutdown()

	sleepFn := func(d time.Duration) task.Func {
		return func(ctx context.Context) (any, error) {
			time.Sleep(d)
			return nil, nil
		}
	}

	idA, err := s.Submit(sleepFn(50 * time.Millisecond))
	require.NoError(t, err)
	idB, err := s.Submit(sleepFn(50*time.Millisecond), task.WithDependencies(idA))
	require.NoError(t, err)
	idC, err := s.Submit(sleepFn(50*time.Millisecond), task.WithDependencies(idA, idB))
	require.NoError(t, err)

	waitFor(t, s)

	for _, id := range []string{idA, idB, idC} {
		tk, err := s.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCompleted, tk.Status)
	}

	tkA, _ := s.GetTask(idA)
	tkB, _ := s.GetTask(idB)
	tkC, _ := s.GetTask(idC)
	assert.True(t, tkB.StartedAt.After(*tkA.CompletedAt) || tkB.StartedAt.Equal(*tkA.CompletedAt))
	assert.True(t, tkC.StartedAt.After(*tkB.CompletedAt) || tkC.StartedAt.Equal(*tkB.CompletedAt))
}

func TestSupervisor_Failure(t *testing.T) {
	s := New(testConfig(1), nil)
	defer s.Shutdown()

	fn := func(ctx context.Context) (any, error) {
		return nil, errors.New("Task failed")
	}

	id, err := s.Submit(fn)
	require.NoError(t, err)
	waitFor(t, s)

	tk, err := s.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, tk.Status)
	assert.Contains(t, tk.Error, "Task failed")

	// Scheduler still accepts more tasks afterward.
	id2, err := s.Submit(addFunc(1, 1))
	require.NoError(t, err)
	waitFor(t, s)
	tk2, err := s.GetTask(id2)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, tk2.Status)
}

func TestSupervisor_CancellationOfQueuedTask(t *testing.T) {
	s := New(testConfig(1), nil)
	defer s.Shutdown()

	block := make(chan struct{})
	longFn := func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	}
	_, err := s.Submit(longFn)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond) // let the worker claim the long task

	quickID, err := s.Submit(addFunc(1, 2))
	require.NoError(t, err)

	ok, err := s.Cancel(quickID)
	require.NoError(t, err)
	assert.True(t, ok)

	close(block)
	waitFor(t, s)

	tk, err := s.GetTask(quickID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCancelled, tk.Status)
}

func TestSupervisor_Scaling(t *testing.T) {
	s := New(testConfig(2), nil)
	defer s.Shutdown()

	require.NoError(t, s.Scale(5))
	assert.Equal(t, 5, s.Status().Workers.Total)

	require.NoError(t, s.Scale(3))
	assert.Equal(t, 3, s.Status().Workers.Total)

	for i := 0; i < 10; i++ {
		_, err := s.Submit(addFunc(i, i))
		require.NoError(t, err)
	}
	waitFor(t, s)

	counts := s.Status().Tasks
	assert.Equal(t, 10, counts[task.StatusCompleted])
}

func TestSupervisor_ConcurrentExecution(t *testing.T) {
	s := New(testConfig(3), nil)
	defer s.Shutdown()

	sleepFn := func(ctx context.Context) (any, error) {
		time.Sleep(1 * time.Second)
		return nil, nil
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Submit(sleepFn)
		require.NoError(t, err)
	}
	waitFor(t, s)

	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSupervisor_Cancel_UnknownTask(t *testing.T) {
	s := New(testConfig(1), nil)
	defer s.Shutdown()

	ok, err := s.Cancel("does-not-exist")
	assert.False(t, ok)
	assert.ErrorIs(t, err, task.ErrTaskNotFound)
}

func TestSupervisor_Submit_RejectsUnknownDependency(t *testing.T) {
	s := New(testConfig(1), nil)
	defer s.Shutdown()

	block := make(chan struct{})
	defer close(block)
	idA, err := s.Submit(func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})
	require.NoError(t, err)

	_, err = s.Submit(addFunc(1, 1), task.WithDependencies(idA, "unknown-dep"))
	assert.ErrorIs(t, err, task.ErrDependencyNotFound)
}

func TestSupervisor_Shutdown_IsIdempotent(t *testing.T) {
	s := New(testConfig(1), nil)
	s.Shutdown()
	s.Shutdown()

	_, err := s.Submit(addFunc(1, 1))
	assert.ErrorIs(t, err, task.ErrSchedulerStopped)
}
