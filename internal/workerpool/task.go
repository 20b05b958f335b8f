package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Sentinel errors
var (
	ErrPoolClosed     = errors.New("worker pool is closed")
	ErrInvalidConfig  = errors.New("invalid pool configuration")
	ErrForcedShutdown = errors.New("forced shutdown due to timeout")
)

// TaskError wraps task execution errors
type TaskError struct {
	TaskID string
	Err    error
	Stack  string // set when the task panicked
}

func (e *TaskError) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("task %s failed with panic: %v\nStack trace:\n%s", e.TaskID, e.Err, e.Stack)
	}
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

type task struct {
	id  string
	fn  func() error
	ctx context.Context
}

var taskCounter atomic.Uint64

func newTask(ctx context.Context, fn func() error) *task {
	if ctx == nil {
		ctx = context.Background()
	}
	return &task{
		id:  fmt.Sprintf("task-%d", taskCounter.Add(1)),
		fn:  fn,
		ctx: ctx,
	}
}
