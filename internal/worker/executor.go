package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/task"
)

// Executor invokes a Task's bound Func with panic recovery and
// timeout/cancellation classification. There is no handler-lookup
// registry here: the Func closure already carries everything it needs
// to run, so Execute just calls it.
type Executor struct{}

// NewExecutor creates a task executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs t.Func under ctx, recovering a panicking body into an
// error so a bad task never takes down a worker goroutine.
func (e *Executor) Execute(ctx context.Context, t *task.Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger.Error().
				Str("task_id", t.ID).
				Interface("panic", r).
				Str("stack", string(stack)).
				Msg("task handler panicked")
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	log := logger.WithTask(t.ID)
	log.Debug().Msg("executing task")

	start := time.Now()
	result, err = t.Func(ctx)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Dur("duration", duration).Msg("task timed out")
			return nil, ErrTaskTimeout
		}
		if errors.Is(err, context.Canceled) {
			log.Warn().Dur("duration", duration).Msg("task canceled")
			return nil, ErrTaskCanceled
		}
		log.Error().Err(err).Dur("duration", duration).Msg("task failed")
		return nil, err
	}

	log.Debug().Dur("duration", duration).Msg("task executed successfully")
	return result, nil
}

// Error definitions
var (
	ErrTaskTimeout  = errors.New("task execution timed out")
	ErrTaskCanceled = errors.New("task execution canceled")
)
