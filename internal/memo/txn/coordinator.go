// Package txn runs workflow units of work and records the snapshots a later
// compensating rollback needs.
package txn

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"memoflow/internal/memo/metrics"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
)

// Unit is a unit of work. It must perform no external I/O: it may be re-run
// from the top when the backend retries a transient conflict.
type Unit[T any] func(ctx context.Context, st store.Store) (T, error)

// Result reports the outcome of a unit of work.
type Result[T any] struct {
	Success bool
	Value   T
	Err     error
}

// Coordinator owns the transaction boundary of the workflow.
type Coordinator struct {
	backend store.Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

func New(backend store.Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the backend for reads and writes outside a unit of work.
func (c *Coordinator) Store() store.Store {
	return c.backend
}

// ExecuteWithRollback begins a transaction, runs unit against the bound store,
// commits on success and aborts on error. The transaction is always released.
func ExecuteWithRollback[T any](ctx context.Context, c *Coordinator, operation string, unit Unit[T]) Result[T] {
	var value T
	err := c.backend.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		v, err := unit(ctx, st)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		c.metrics.IncrementTxAbort(operation)
		c.logger.DebugContext(ctx, "unit of work aborted",
			"operation", operation,
			"error", err,
		)
		return Result[T]{Err: err}
	}
	return Result[T]{Success: true, Value: value}
}

// Run is ExecuteWithRollback for units that produce no value.
func (c *Coordinator) Run(ctx context.Context, operation string, unit func(ctx context.Context, st store.Store) error) error {
	res := ExecuteWithRollback(ctx, c, operation, func(ctx context.Context, st store.Store) (struct{}, error) {
		return struct{}{}, unit(ctx, st)
	})
	return res.Err
}

// Snapshot is the input of StoreRollbackMetadata.
type Snapshot struct {
	OperationID   string
	OperationType models.OperationType
	Before        models.BeforeState
	After         models.AfterState
	Actor         string
}

// StoreRollbackMetadata persists a rollback log entry for a committed operation.
// It runs after commit; failures are logged and counted, never returned.
func (c *Coordinator) StoreRollbackMetadata(ctx context.Context, snap Snapshot) *models.RollbackLogEntry {
	if snap.OperationID == "" {
		snap.OperationID = c.newID()
	}
	entry := &models.RollbackLogEntry{
		ID:            c.newID(),
		OperationID:   snap.OperationID,
		OperationType: snap.OperationType,
		Before:        snap.Before,
		After:         snap.After,
		PerformedBy:   snap.Actor,
		PerformedAt:   c.now(),
		Status:        models.LogStatusCompleted,
	}
	if err := c.backend.CreateRollbackLog(ctx, entry); err != nil {
		c.metrics.IncrementRollbackLogFailure()
		c.logger.ErrorContext(ctx, "failed to store rollback metadata",
			"operation_id", snap.OperationID,
			"operation_type", snap.OperationType,
			"memo_id", snap.Before.MemoID,
			"error", err,
		)
		return nil
	}
	return entry
}
