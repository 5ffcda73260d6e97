package workflow

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"memoflow/internal/memo/delivery"
	"memoflow/internal/memo/history"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	dErrors "memoflow/pkg/domain-errors"
)

// decision is what one approve or reject unit of work produced.
type decision struct {
	memo    *models.Memo
	before  models.BeforeState
	receipt *models.Memo
	fanout  *delivery.Result
	event   *models.CalendarEvent

	// settled is set when the memo was already decided when the unit read it; nothing was written.
	settled bool
}

// replayOutcome labels an idempotent re-entry in metrics. It is never returned.
type replayOutcome struct{}

func (replayOutcome) Error() string { return "replay" }

// Approve records adminID's approval, fans the memo out to its audience and,
// when the memo carries an event date, schedules its calendar event.
// Re-approval by the admin who decided is a no-op; any other admin gets a conflict.
func (e *Engine) Approve(ctx context.Context, memoID, adminID string) (*models.Memo, error) {
	return e.decide(ctx, memoID, adminID, models.ActionApproved, "")
}

// Reject records adminID's rejection with reason. No deliveries are made.
func (e *Engine) Reject(ctx context.Context, memoID, adminID, reason string) (*models.Memo, error) {
	return e.decide(ctx, memoID, adminID, models.ActionRejected, strings.TrimSpace(reason))
}

func (e *Engine) decide(ctx context.Context, memoID, adminID string, action models.HistoryAction, reason string) (memo *models.Memo, err error) {
	op := string(action)
	ctx, span := e.startSpan(ctx, "workflow.Decide", trace.WithAttributes(
		attribute.String("memo.id", memoID),
		attribute.String("memo.action", op),
	))
	start := time.Now()
	replay := false
	defer func() {
		outcomeErr := err
		if err == nil && replay {
			outcomeErr = replayOutcome{}
		}
		e.record(ctx, op, start, outcomeErr)
		span.SetAttributes(attribute.Bool("memo.replay", replay))
		endSpan(span, err)
	}()

	if adminID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "admin is required")
	}
	current, err := e.loadWorkflowMemo(ctx, e.coord.Store(), memoID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsDecided() {
		memo, err = e.settle(ctx, current, adminID)
		replay = err == nil
		return memo, err
	}
	if current.Status != models.StatusPendingAdmin {
		return nil, dErrors.New(dErrors.CodeValidation, "memo is not awaiting a decision")
	}

	res := txn.ExecuteWithRollback(ctx, e.coord, op, func(ctx context.Context, st store.Store) (*decision, error) {
		if action == models.ActionApproved {
			return e.approveUnit(ctx, st, memoID, adminID)
		}
		return e.rejectUnit(ctx, st, memoID, adminID, reason)
	})
	if !res.Success {
		// The unit may have lost a race with another decision; the committed state decides.
		latest, lerr := e.coord.Store().FindMemo(ctx, memoID)
		if lerr == nil && latest.Status.IsDecided() {
			memo, err = e.settle(ctx, latest, adminID)
			replay = err == nil
			return memo, err
		}
		return nil, res.Err
	}
	if res.Value.settled {
		memo, err = e.settle(ctx, res.Value.memo, adminID)
		replay = err == nil
		return memo, err
	}

	d := res.Value
	e.afterDecision(ctx, action, adminID, reason, d)
	return d.memo, nil
}

// settle applies the retry rule to an already decided memo.
func (e *Engine) settle(ctx context.Context, memo *models.Memo, actor string) (*models.Memo, error) {
	if history.DecidedBy(memo, actor) {
		e.logger.InfoContext(ctx, "decision replayed, nothing to do",
			"memo_id", memo.ID,
			"actor", actor,
			"status", string(memo.Status),
		)
		return memo, nil
	}
	e.logger.InfoContext(ctx, "decision conflict",
		"memo_id", memo.ID,
		"actor", actor,
		"decided_by", history.Decider(memo),
	)
	return nil, dErrors.New(dErrors.CodeConflict, "memo was already decided by another admin")
}

// pendingInUnit re-reads the memo inside the unit of work. When the memo was decided
// in the meantime it returns a settled decision instead of the memo.
func (e *Engine) pendingInUnit(ctx context.Context, st store.Store, memoID string) (*models.Memo, *decision, error) {
	memo, err := e.loadWorkflowMemo(ctx, st, memoID)
	if err != nil {
		return nil, nil, err
	}
	if memo.Status.IsDecided() {
		return nil, &decision{memo: memo, settled: true}, nil
	}
	if memo.Status != models.StatusPendingAdmin {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "memo is not awaiting a decision")
	}
	return memo, nil, nil
}

func (e *Engine) approveUnit(ctx context.Context, st store.Store, memoID, adminID string) (*decision, error) {
	memo, settled, err := e.pendingInUnit(ctx, st, memoID)
	if memo == nil {
		return settled, err
	}
	now := e.now()
	d := &decision{before: snapshotBefore(memo)}

	history.Append(memo, adminID, models.ActionApproved, "", now)

	d.fanout, err = e.fanout.Deliver(ctx, st, memo)
	if err != nil {
		return nil, err
	}
	if memo.Metadata.EventDate() != "" && len(d.fanout.Created) > 0 {
		d.event, err = e.calendar.Create(ctx, st, memo, d.fanout.Recipients, adminID)
		if err != nil {
			return nil, err
		}
	}

	memo.ApplyDecision(models.StatusApproved, models.FolderSent, now)
	if err := st.UpdateMemo(ctx, memo); err != nil {
		return nil, storeError(err, "memo not found", "failed to update memo")
	}

	d.receipt = e.newReceipt(memo, adminID, models.StatusApproved,
		models.ApprovalReceiptMetadata(memo.ID, len(d.fanout.Created)), now)
	if err := st.CreateMemo(ctx, d.receipt); err != nil {
		return nil, storeError(err, "memo not found", "failed to create approval receipt")
	}
	d.memo = memo
	return d, nil
}

func (e *Engine) rejectUnit(ctx context.Context, st store.Store, memoID, adminID, reason string) (*decision, error) {
	memo, settled, err := e.pendingInUnit(ctx, st, memoID)
	if memo == nil {
		return settled, err
	}
	now := e.now()
	d := &decision{before: snapshotBefore(memo)}

	history.Append(memo, adminID, models.ActionRejected, reason, now)
	memo.ApplyDecision(models.StatusRejected, models.FolderDrafts, now)
	if err := st.UpdateMemo(ctx, memo); err != nil {
		return nil, storeError(err, "memo not found", "failed to update memo")
	}

	d.receipt = e.newReceipt(memo, adminID, models.StatusRejected,
		models.RejectionReceiptMetadata(memo.ID, reason), now)
	if err := st.CreateMemo(ctx, d.receipt); err != nil {
		return nil, storeError(err, "memo not found", "failed to create rejection receipt")
	}
	d.memo = memo
	return d, nil
}

// newReceipt builds the admin-visible copy recording a decision.
func (e *Engine) newReceipt(memo *models.Memo, adminID string, status models.Status, md models.Metadata, now time.Time) *models.Memo {
	return &models.Memo{
		ID:          e.newID(),
		Sender:      memo.Sender,
		CreatedBy:   adminID,
		Recipients:  append([]string(nil), memo.Recipients...),
		Departments: append([]string(nil), memo.Departments...),
		Subject:     memo.Subject,
		Content:     memo.Content,
		Priority:    memo.Priority,
		Status:      status,
		Folder:      models.FolderSent,
		IsRead:      true,
		Metadata:    md,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func snapshotBefore(memo *models.Memo) models.BeforeState {
	return models.BeforeState{MemoID: memo.ID, Status: memo.Status, Folder: memo.Folder}
}
