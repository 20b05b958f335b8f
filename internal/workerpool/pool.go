// Package workerpool runs independent tasks on a fixed set of goroutines.
//
// The catalog uses it to assemble (hospital, year) records in parallel:
//
//	pool, err := workerpool.New(workerpool.Config{Workers: 4, QueueSize: 64})
//	if err != nil {
//	    return err
//	}
//	defer pool.Stop()
//	pool.Submit(func() error { return nil })
//	pool.Wait()
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Config configures a worker pool
type Config struct {
	Workers         int           // Number of workers
	QueueSize       int           // Task queue buffer size
	ShutdownTimeout time.Duration // Max wait time for graceful shutdown
	ErrorHandler    func(error)   // Called with a *TaskError for every failed task
}

// DefaultConfig returns one worker per CPU
func DefaultConfig() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		QueueSize:       256,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must not be negative, got %d", ErrInvalidConfig, c.QueueSize)
	}
	return nil
}

// Stats is a snapshot of pool activity
type Stats struct {
	Workers        int   `json:"workers"`
	QueuedTasks    int   `json:"queued_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	FailedTasks    int64 `json:"failed_tasks"`
}

// WorkerPool manages a pool of workers
type WorkerPool struct {
	config  Config
	tasks   chan *task
	wg      sync.WaitGroup // workers
	pending sync.WaitGroup // submitted but unfinished tasks
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	mu      sync.RWMutex // guards tasks against close during send
	closed  atomic.Bool

	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a new worker pool and starts its workers
func New(config Config) (*WorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		config: config,
		tasks:  make(chan *task, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			p.execute(t)
		}
	}
}

// execute runs a single task with panic recovery
func (p *WorkerPool) execute(t *task) {
	defer p.pending.Done()

	var taskErr *TaskError
	defer func() {
		if r := recover(); r != nil {
			taskErr = &TaskError{TaskID: t.id, Err: fmt.Errorf("panic: %v", r), Stack: string(debug.Stack())}
		}
		if taskErr != nil {
			p.failed.Add(1)
			if p.config.ErrorHandler != nil {
				p.config.ErrorHandler(taskErr)
			}
			return
		}
		p.completed.Add(1)
	}()

	if err := t.ctx.Err(); err != nil {
		taskErr = &TaskError{TaskID: t.id, Err: err}
		return
	}
	if err := t.fn(); err != nil {
		taskErr = &TaskError{TaskID: t.id, Err: err}
	}
}

// Submit queues fn, blocking while the queue is full
func (p *WorkerPool) Submit(fn func() error) error {
	return p.SubmitWithContext(context.Background(), fn)
}

// SubmitWithContext queues fn; the task is skipped if ctx is done before it starts
func (p *WorkerPool) SubmitWithContext(ctx context.Context, fn func() error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	t := newTask(ctx, fn)
	p.pending.Add(1)

	select {
	case <-p.ctx.Done():
		p.pending.Done()
		return ErrPoolClosed
	case <-ctx.Done():
		p.pending.Done()
		return ctx.Err()
	case p.tasks <- t:
		return nil
	}
}

// Wait blocks until every submitted task has finished
func (p *WorkerPool) Wait() {
	p.pending.Wait()
}

// Stop stops accepting tasks and waits for workers up to ShutdownTimeout
func (p *WorkerPool) Stop() error {
	var shutdownErr error

	p.once.Do(func() {
		p.mu.Lock()
		p.closed.Store(true)
		close(p.tasks)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(p.config.ShutdownTimeout):
			shutdownErr = ErrForcedShutdown
		}
		p.cancel()
	})

	return shutdownErr
}

// Stats returns current pool statistics
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Workers:        p.config.Workers,
		QueuedTasks:    len(p.tasks),
		CompletedTasks: p.completed.Load(),
		FailedTasks:    p.failed.Load(),
	}
}
