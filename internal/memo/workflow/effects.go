package workflow

import (
	"context"
	"fmt"
	"time"

	"memoflow/internal/backup"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/txn"
	"memoflow/internal/notify"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/tasks"
)

// afterSubmit queues the submission notifications. Each admin gets a task of
// its own so a retry only repeats the notice that failed.
func (e *Engine) afterSubmit(ctx context.Context, memo *models.Memo) {
	memoID, subject, sender := memo.ID, memo.Subject, memo.Sender

	e.tasks.Submit(ctx, tasks.Task{Name: "notify_admins", Run: func(ctx context.Context) error {
		admins, err := e.directory.ActiveAdmins(ctx)
		if err != nil {
			return fmt.Errorf("load admins: %w", err)
		}
		for _, admin := range admins {
			adminID := admin.ID
			e.tasks.Submit(ctx, tasks.Task{Name: "notify_admin", Run: func(ctx context.Context) error {
				if err := e.notifier.Notify(ctx, notify.Notification{
					RecipientID: adminID,
					Subject:     "Memo awaiting approval: " + subject,
					Content:     "A new memo was submitted and needs a decision.",
					Kind:        notify.KindPendingApproval,
					MemoID:      memoID,
					Metadata:    map[string]string{"sender": sender},
				}); err != nil {
					return fmt.Errorf("notify admin %s: %w", adminID, err)
				}
				return nil
			}})
		}
		return nil
	}})

	e.tasks.Submit(ctx, tasks.Task{Name: "notify_submitter", Run: func(ctx context.Context) error {
		return e.notifier.Notify(ctx, notify.Notification{
			RecipientID: sender,
			Subject:     "Memo submitted: " + subject,
			Content:     "Your memo was submitted for approval.",
			Kind:        notify.KindSubmitted,
			MemoID:      memoID,
		})
	}})
}

// afterDecision records the rollback log and queues the best-effort side effects of a committed decision.
func (e *Engine) afterDecision(ctx context.Context, action models.HistoryAction, adminID, reason string, d *decision) {
	operationID := e.newID()
	memo := d.memo
	after := models.AfterState{
		MemoID:     memo.ID,
		Status:     memo.Status,
		Folder:     memo.Folder,
		ReceiptIDs: []string{d.receipt.ID},
	}
	opType := models.OpMemoRejection
	if action == models.ActionApproved {
		opType = models.OpMemoApproval
		after.DeliveryIDs = d.fanout.IDs()
		if d.event != nil {
			after.CalendarEventIDs = []string{d.event.ID}
		}
	}
	e.coord.StoreRollbackMetadata(ctx, txn.Snapshot{
		OperationID:   operationID,
		OperationType: opType,
		Before:        d.before,
		After:         after,
		Actor:         adminID,
	})
	if d.event != nil {
		e.coord.StoreRollbackMetadata(ctx, txn.Snapshot{
			OperationID:   operationID + ":calendar",
			OperationType: models.OpCalendarEventCreation,
			Before:        d.before,
			After: models.AfterState{
				MemoID:           memo.ID,
				Status:           memo.Status,
				Folder:           memo.Folder,
				CalendarEventIDs: []string{d.event.ID},
			},
			Actor: adminID,
		})
	}

	created := 0
	if d.fanout != nil {
		created = len(d.fanout.Created)
	}
	e.metrics.AddDeliveries(created)
	if d.event != nil {
		e.metrics.IncrementCalendarEvents()
	}
	e.logAudit(ctx, "memo_"+string(action),
		"memo_id", memo.ID,
		"actor", adminID,
		"operation_id", operationID,
		"deliveries", created,
		"reason", reason,
	)

	e.queueOutcomeNotice(ctx, memo, action, reason)

	memoID := memo.ID
	e.tasks.Submit(ctx, tasks.Task{Name: "archive_pending_notifications", Run: func(ctx context.Context) error {
		return e.notifier.ArchivePending(ctx, memoID, notify.KindPendingApproval)
	}})

	if action != models.ActionApproved {
		return
	}
	if e.exporter != nil && created > 0 {
		first := d.fanout.Created[0]
		payload := backup.DeliveredMemo{Memo: first.Memo.Clone(), Recipient: first.Recipient}
		e.tasks.Submit(ctx, tasks.Task{Name: "backup_delivery", Run: func(ctx context.Context) error {
			return e.exporter.Export(ctx, payload)
		}})
	}
	if e.syncer != nil && d.event != nil {
		event := *d.event
		e.tasks.Submit(ctx, tasks.Task{Name: "calendar_sync", Run: func(ctx context.Context) error {
			return e.syncer.Sync(ctx, &event, false)
		}})
	}
}

func (e *Engine) queueOutcomeNotice(ctx context.Context, memo *models.Memo, action models.HistoryAction, reason string) {
	n := notify.Notification{
		RecipientID: memo.Sender,
		MemoID:      memo.ID,
	}
	if action == models.ActionApproved {
		n.Kind = notify.KindApproved
		n.Subject = "Memo approved: " + memo.Subject
		n.Content = "Your memo was approved and delivered."
	} else {
		n.Kind = notify.KindRejected
		n.Subject = "Memo rejected: " + memo.Subject
		n.Content = "Your memo was rejected."
		if reason != "" {
			n.Content = "Your memo was rejected: " + reason
			n.Metadata = map[string]string{"reason": reason}
		}
	}
	e.tasks.Submit(ctx, tasks.Task{Name: "notify_" + string(n.Kind), Run: func(ctx context.Context) error {
		return e.notifier.Notify(ctx, n)
	}})
}

// record counts an operation outcome and its latency.
func (e *Engine) record(ctx context.Context, action string, start time.Time, err error) {
	outcome := "ok"
	switch err.(type) {
	case nil:
	case replayOutcome:
		outcome = "replay"
	default:
		outcome = string(dErrors.CodeOf(err))
		e.logger.DebugContext(ctx, "workflow operation failed",
			"action", action,
			"error", err,
		)
	}
	e.metrics.IncrementDecision(action, outcome)
	e.metrics.ObserveDecisionLatency(action, time.Since(start))
}
