// Package workflow owns the memo lifecycle: submission, the admin decision and
// soft deletion. Each operation commits all of its writes in one unit of work;
// notifications, backups and calendar sync run afterwards as background tasks.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"memoflow/internal/backup"
	"memoflow/internal/calendarsync"
	"memoflow/internal/directory"
	"memoflow/internal/memo/calendar"
	"memoflow/internal/memo/delivery"
	"memoflow/internal/memo/metrics"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	"memoflow/internal/notify"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/sentinel"
	"memoflow/pkg/platform/tasks"
	"memoflow/pkg/requestcontext"
)

const tracerName = "memoflow/internal/memo/workflow"

type Engine struct {
	coord     *txn.Coordinator
	fanout    *delivery.Fanout
	calendar  *calendar.Creator
	directory directory.Directory

	notifier notify.Notifier
	exporter backup.Exporter
	syncer   calendarsync.Syncer
	tasks    tasks.Dispatcher

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

type Option func(*Engine)

func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

func WithExporter(x backup.Exporter) Option {
	return func(e *Engine) {
		e.exporter = x
	}
}

func WithCalendarSync(s calendarsync.Syncer) Option {
	return func(e *Engine) {
		e.syncer = s
	}
}

// WithDispatcher sets where post-commit work is queued. Defaults to running it inline.
func WithDispatcher(d tasks.Dispatcher) Option {
	return func(e *Engine) {
		e.tasks = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func New(coord *txn.Coordinator, fanout *delivery.Fanout, creator *calendar.Creator, dir directory.Directory, opts ...Option) *Engine {
	e := &Engine{
		coord:     coord,
		fanout:    fanout,
		calendar:  creator,
		directory: dir,
		tasks:     tasks.Inline{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = notify.NewLog(e.logger)
	}
	return e
}

// Get returns a memo by id.
func (e *Engine) Get(ctx context.Context, memoID string) (*models.Memo, error) {
	memo, err := e.coord.Store().FindMemo(ctx, memoID)
	if err != nil {
		return nil, storeError(err, "memo not found", "failed to load memo")
	}
	return memo, nil
}

// ListDeliveries returns every delivery record spawned by a workflow memo.
func (e *Engine) ListDeliveries(ctx context.Context, memoID string) ([]*models.Memo, error) {
	if _, err := e.loadWorkflowMemo(ctx, e.coord.Store(), memoID); err != nil {
		return nil, err
	}
	deliveries, err := e.coord.Store().FindDerived(ctx, store.DerivedFilter{
		OriginalMemoID: memoID,
		EventType:      models.EventDelivered,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	return deliveries, nil
}

// loadWorkflowMemo rejects derived documents: deliveries and receipts are never decided.
func (e *Engine) loadWorkflowMemo(ctx context.Context, st store.Store, memoID string) (*models.Memo, error) {
	if memoID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "memo id is required")
	}
	memo, err := st.FindMemo(ctx, memoID)
	if err != nil {
		return nil, storeError(err, "memo not found", "failed to load memo")
	}
	if !memo.IsWorkflowMemo() {
		return nil, dErrors.New(dErrors.CodeValidation, "memo is a delivery or receipt copy")
	}
	return memo, nil
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...trace.SpanStartOption) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, attrs...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (e *Engine) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if e.logger != nil {
		e.logger.InfoContext(ctx, event, args...)
	}
}

// storeError translates store sentinels into coded errors.
func storeError(err error, notFoundMsg, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrDuplicate):
		return dErrors.Wrap(err, dErrors.CodeConflict, "memo was modified concurrently")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
