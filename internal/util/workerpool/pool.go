// Package workerpool delivers best-effort background notifications on a bounded set of goroutines.
// A task that fails is logged and forgotten; a task that does not fit in the queue is dropped.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task represents one outbound notification
type Task struct {
	// Name is the protocol operation, e.g. "update_front".
	Name string
	// Peer is the address the notification is sent to.
	Peer string
	Fn   func(context.Context) error
}

// Observer is told about notifications that never reached their peer.
type Observer interface {
	NotificationFailed(name string)
	NotificationDropped(name string)
}

// Pool manages a bounded pool of goroutines for executing tasks
type Pool struct {
	name        string
	maxWorkers  int
	queueSize   int
	taskTimeout time.Duration
	taskQueue   chan Task
	logger      *zap.Logger
	observer    Observer
	wg          sync.WaitGroup
	stopOnce    sync.Once
	stopChan    chan struct{}

	activeWorkers  int32
	totalTasks     uint64
	completedTasks uint64
	failedTasks    uint64
	rejectedTasks  uint64
}

// Config holds worker pool configuration
type Config struct {
	Name       string
	MaxWorkers int
	QueueSize  int
	// TaskTimeout bounds every task; zero leaves the context unbounded.
	TaskTimeout time.Duration
	Logger      *zap.Logger
	Observer    Observer
}

// New creates a pool and starts its workers
func New(cfg *Config) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	pool := &Pool{
		name:        cfg.Name,
		maxWorkers:  cfg.MaxWorkers,
		queueSize:   cfg.QueueSize,
		taskTimeout: cfg.TaskTimeout,
		taskQueue:   make(chan Task, cfg.QueueSize),
		logger:      cfg.Logger,
		observer:    cfg.Observer,
		stopChan:    make(chan struct{}),
	}

	for i := 0; i < pool.maxWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	pool.logger.Debug("Worker pool started",
		zap.String("name", pool.name),
		zap.Int("max_workers", pool.maxWorkers),
		zap.Int("queue_size", pool.queueSize))

	return pool
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case task := <-p.taskQueue:
			p.executeTask(task)
		}
	}
}

func (p *Pool) executeTask(task Task) {
	atomic.AddInt32(&p.activeWorkers, 1)
	defer atomic.AddInt32(&p.activeWorkers, -1)

	start := time.Now()
	err := p.safeExecute(task)

	if err != nil {
		atomic.AddUint64(&p.failedTasks, 1)
		if p.observer != nil {
			p.observer.NotificationFailed(task.Name)
		}
		p.logger.Warn("Notification failed",
			zap.String("pool", p.name),
			zap.String("operation", task.Name),
			zap.String("peer", task.Peer),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	atomic.AddUint64(&p.completedTasks, 1)
	p.logger.Debug("Notification delivered",
		zap.String("pool", p.name),
		zap.String("operation", task.Name),
		zap.String("peer", task.Peer),
		zap.Duration("duration", time.Since(start)))
}

// safeExecute executes a task with panic recovery
func (p *Pool) safeExecute(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	ctx := context.Background()
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	return task.Fn(ctx)
}

// Submit queues a task. It returns an error if the queue is full or the pool is stopped.
func (p *Pool) Submit(task Task) error {
	select {
	case <-p.stopChan:
		atomic.AddUint64(&p.rejectedTasks, 1)
		return fmt.Errorf("worker pool '%s' is stopped", p.name)
	default:
	}

	select {
	case p.taskQueue <- task:
		atomic.AddUint64(&p.totalTasks, 1)
		return nil
	default:
		atomic.AddUint64(&p.rejectedTasks, 1)
		return fmt.Errorf("worker pool '%s' queue is full", p.name)
	}
}

// Go sends a fire-and-forget notification. A rejected task is logged and counted, never returned.
func (p *Pool) Go(name, peer string, fn func(context.Context) error) {
	if err := p.Submit(Task{Name: name, Peer: peer, Fn: fn}); err != nil {
		if p.observer != nil {
			p.observer.NotificationDropped(name)
		}
		p.logger.Warn("Notification dropped",
			zap.String("pool", p.name),
			zap.String("operation", name),
			zap.String("peer", peer),
			zap.Error(err))
	}
}

// Stop stops the workers. Tasks still queued are discarded.
func (p *Pool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopChan)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.logger.Debug("Worker pool stopped", zap.String("name", p.name))
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool '%s' stop timeout after %v", p.name, timeout)
			p.logger.Warn("Worker pool stop timeout", zap.String("name", p.name))
		}
	})
	return err
}

// Stats returns current worker pool statistics
func (p *Pool) Stats() Stats {
	return Stats{
		Name:           p.name,
		MaxWorkers:     p.maxWorkers,
		ActiveWorkers:  int(atomic.LoadInt32(&p.activeWorkers)),
		QueueSize:      p.queueSize,
		QueuedTasks:    len(p.taskQueue),
		TotalTasks:     atomic.LoadUint64(&p.totalTasks),
		CompletedTasks: atomic.LoadUint64(&p.completedTasks),
		FailedTasks:    atomic.LoadUint64(&p.failedTasks),
		RejectedTasks:  atomic.LoadUint64(&p.rejectedTasks),
	}
}

// Stats represents worker pool statistics
type Stats struct {
	Name           string
	MaxWorkers     int
	ActiveWorkers  int
	QueueSize      int
	QueuedTasks    int
	TotalTasks     uint64
	CompletedTasks uint64
	FailedTasks    uint64
	RejectedTasks  uint64
}

// Pending reports whether any task is queued or running.
func (s Stats) Pending() bool {
	return s.QueuedTasks > 0 || s.ActiveWorkers > 0
}
