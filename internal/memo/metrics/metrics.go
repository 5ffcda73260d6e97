package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the memo workflow. A nil *Metrics is a no-op.
type Metrics struct {
	// Decisions by action (submit, approve, reject) and outcome (ok, idempotent, conflict, error)
	Decisions *prometheus.CounterVec

	// Latency of a full engine operation by action
	DecisionLatency *prometheus.HistogramVec

	// Delivery records created by fan-out
	DeliveriesCreated prometheus.Counter

	// Calendar events created inside approvals
	CalendarEvents prometheus.Counter

	// Aborted units of work by operation
	TxAborts *prometheus.CounterVec

	// Manual rollbacks by operation type and outcome
	Rollbacks *prometheus.CounterVec

	// Rollback metadata writes that failed after commit
	RollbackLogFailures prometheus.Counter
}

// New registers the workflow metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memoflow_decisions_total",
			Help: "Workflow operations by action and outcome",
		}, []string{"action", "outcome"}),

		DecisionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memoflow_decision_duration_seconds",
			Help:    "Duration of workflow operations including the transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"action"}),

		DeliveriesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "memoflow_deliveries_created_total",
			Help: "Delivery records created by fan-out",
		}),

		CalendarEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "memoflow_calendar_events_created_total",
			Help: "Calendar events created for approved memos",
		}),

		TxAborts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memoflow_tx_aborts_total",
			Help: "Units of work aborted by operation",
		}, []string{"operation"}),

		Rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memoflow_rollbacks_total",
			Help: "Manual rollbacks by operation type and outcome",
		}, []string{"operation_type", "outcome"}),

		RollbackLogFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "memoflow_rollback_log_failures_total",
			Help: "Rollback log entries that could not be stored after commit",
		}),
	}
}

func (m *Metrics) IncrementDecision(action, outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(action, outcome).Inc()
	}
}

func (m *Metrics) ObserveDecisionLatency(action string, d time.Duration) {
	if m != nil {
		m.DecisionLatency.WithLabelValues(action).Observe(d.Seconds())
	}
}

func (m *Metrics) AddDeliveries(n int) {
	if m != nil && n > 0 {
		m.DeliveriesCreated.Add(float64(n))
	}
}

func (m *Metrics) IncrementCalendarEvents() {
	if m != nil {
		m.CalendarEvents.Inc()
	}
}

func (m *Metrics) IncrementTxAbort(operation string) {
	if m != nil {
		m.TxAborts.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) IncrementRollback(operationType, outcome string) {
	if m != nil {
		m.Rollbacks.WithLabelValues(operationType, outcome).Inc()
	}
}

func (m *Metrics) IncrementRollbackLogFailure() {
	if m != nil {
		m.RollbackLogFailures.Inc()
	}
}
