// Package tasks runs best-effort background work outside the request lifecycle.
//
// A Task is submitted to a Dispatcher and executed with retry. Failures are
// logged and counted, never returned to the submitter.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task is one unit of background work. Run may be invoked several times.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher accepts tasks. Submit never blocks and never fails the caller.
type Dispatcher interface {
	Submit(ctx context.Context, task Task)
}

// Metrics counts task outcomes by task name.
type Metrics struct {
	Completed *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Completed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memoflow_tasks_completed_total",
			Help: "Background tasks that eventually succeeded",
		}, []string{"task"}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memoflow_tasks_failed_total",
			Help: "Background tasks that exhausted their retries",
		}, []string{"task"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memoflow_tasks_dropped_total",
			Help: "Background tasks rejected because the queue was full or closed",
		}, []string{"task"}),
	}
}

func (m *Metrics) completed(name string) {
	if m != nil {
		m.Completed.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) failed(name string) {
	if m != nil {
		m.Failed.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) dropped(name string) {
	if m != nil {
		m.Dropped.WithLabelValues(name).Inc()
	}
}

type queued struct {
	ctx  context.Context
	task Task
}

// Pool is a bounded worker pool fed by a fixed-size queue.
type Pool struct {
	queue      chan queued
	workers    int
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
	metrics    *Metrics

	mu     sync.RWMutex
	closed bool
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queue = make(chan queued, n)
		}
	}
}

// WithMaxRetries sets how many times a failed task is retried after the first attempt.
func WithMaxRetries(n uint64) Option {
	return func(p *Pool) {
		p.maxRetries = n
	}
}

// WithBackOff replaces the exponential policy between attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(p *Pool) {
		p.newBackOff = newBackOff
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pool) {
		p.metrics = m
	}
}

func NewPool(opts ...Option) *Pool {
	p := &Pool{
		queue:      make(chan queued, 256),
		workers:    4,
		maxRetries: 3,
		newBackOff: defaultBackOff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Submit enqueues task. The task keeps ctx's values but not its cancellation,
// so it outlives the request that submitted it.
func (p *Pool) Submit(ctx context.Context, task Task) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(ctx, task, "pool closed")
		return
	}
	select {
	case p.queue <- queued{ctx: context.WithoutCancel(ctx), task: task}:
	default:
		p.drop(ctx, task, "queue full")
	}
}

func (p *Pool) drop(ctx context.Context, task Task, reason string) {
	p.metrics.dropped(task.Name)
	p.logger.WarnContext(ctx, "background task dropped",
		"task", task.Name,
		"reason", reason,
	)
}

// Run starts the workers and blocks until ctx is cancelled. Tasks still queued
// at shutdown get a single attempt before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}
	<-ctx.Done()
	wg.Wait()

	p.mu.Lock()
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	for item := range p.queue {
		p.execute(item, 0, nil)
	}
	return nil
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-p.queue:
			p.execute(item, p.maxRetries, ctx.Done())
		}
	}
}

// execute runs item with up to retries extra attempts. stop aborts the wait between attempts.
func (p *Pool) execute(item queued, retries uint64, stop <-chan struct{}) {
	ctx := item.ctx
	if stop != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-stop:
				cancel()
			case <-ctx.Done():
			}
		}()
	}
	runTask(ctx, item.task, retries, p.newBackOff(), p.logger, p.metrics)
}

func runTask(ctx context.Context, task Task, retries uint64, policy backoff.BackOff, logger *slog.Logger, m *Metrics) {
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return task.Run(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx), func(err error, wait time.Duration) {
		logger.DebugContext(ctx, "background task retrying",
			"task", task.Name,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		m.failed(task.Name)
		logger.ErrorContext(ctx, "background task failed",
			"task", task.Name,
			"attempts", attempt,
			"error", err,
		)
		return
	}
	m.completed(task.Name)
}

// Inline runs each task synchronously in Submit. Used by tests and the CLI.
type Inline struct {
	MaxRetries uint64
	Logger     *slog.Logger
	Metrics    *Metrics
}

func (i Inline) Submit(ctx context.Context, task Task) {
	logger := i.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runTask(context.WithoutCancel(ctx), task, i.MaxRetries, &backoff.ZeroBackOff{}, logger, i.Metrics)
}
