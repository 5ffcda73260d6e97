// Package rollback applies the single compensating undo recorded for a
// committed workflow operation.
package rollback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"memoflow/internal/memo/metrics"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/sentinel"
	"memoflow/pkg/requestcontext"
)

const defaultListLimit = 50

// Executor looks up rollback log entries and runs their compensation.
type Executor struct {
	coord      *txn.Coordinator
	strategies map[models.OperationType]Compensator
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithStrategy overrides the compensator for one operation type.
func WithStrategy(op models.OperationType, c Compensator) Option {
	return func(e *Executor) {
		e.strategies[op] = c
	}
}

func New(coord *txn.Coordinator, opts ...Option) *Executor {
	e := &Executor{
		coord:      coord,
		strategies: defaultStrategies(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ManualRollback compensates the operation recorded by log logID, at most once.
// The compensation and the log update commit together; any failure leaves both untouched.
func (e *Executor) ManualRollback(ctx context.Context, logID, actor, reason string) txn.Result[*models.RollbackLogEntry] {
	if actor == "" {
		return txn.Result[*models.RollbackLogEntry]{Err: dErrors.New(dErrors.CodeValidation, "actor is required")}
	}

	// opType stays "unknown" only when the log itself could not be read.
	opType := "unknown"
	res := txn.ExecuteWithRollback(ctx, e.coord, "rollback", func(ctx context.Context, st store.Store) (*models.RollbackLogEntry, error) {
		entry, err := st.FindRollbackLog(ctx, logID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "rollback log not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rollback log")
		}
		opType = string(entry.OperationType)
		if entry.IsRolledBack() {
			return nil, dErrors.New(dErrors.CodeAlreadyRolledBack, "operation already rolled back")
		}
		strategy, ok := e.strategies[entry.OperationType]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown operation type")
		}

		entry.ApplyRollback(actor, reason, e.now())
		if err := strategy.Compensate(ctx, entry, st); err != nil {
			return nil, err
		}
		if err := st.UpdateRollbackLog(ctx, entry); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark rollback log")
		}
		return entry, nil
	})

	if !res.Success {
		e.metrics.IncrementRollback(opType, string(dErrors.CodeOf(res.Err)))
		e.logger.WarnContext(ctx, "rollback failed",
			"rollback_log_id", logID,
			"operation_type", opType,
			"actor", actor,
			"error", res.Err,
		)
		return res
	}

	entry := res.Value
	e.metrics.IncrementRollback(string(entry.OperationType), "ok")
	e.logAudit(ctx, "rollback_applied",
		"rollback_log_id", entry.ID,
		"operation_id", entry.OperationID,
		"operation_type", string(entry.OperationType),
		"memo_id", entry.Before.MemoID,
		"actor", actor,
		"reason", reason,
	)
	return res
}

// ListRollbackLogs returns entries newest first. A zero limit means the default page size.
func (e *Executor) ListRollbackLogs(ctx context.Context, filter store.RollbackLogFilter) ([]*models.RollbackLogEntry, error) {
	if filter.OperationType != "" && !filter.OperationType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown operation type")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	logs, err := e.coord.Store().ListRollbackLogs(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rollback logs")
	}
	return logs, nil
}

func (e *Executor) GetRollbackLog(ctx context.Context, id string) (*models.RollbackLogEntry, error) {
	entry, err := e.coord.Store().FindRollbackLog(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "rollback log not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rollback log")
	}
	return entry, nil
}

func (e *Executor) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if e.logger != nil {
		e.logger.InfoContext(ctx, event, args...)
	}
}
