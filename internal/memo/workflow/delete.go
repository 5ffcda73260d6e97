package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"memoflow/internal/memo/history"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	dErrors "memoflow/pkg/domain-errors"
)

type deletion struct {
	memo    *models.Memo
	before  models.BeforeState
	already bool
}

// Delete moves a workflow memo to the trash. Delivered copies are left alone.
// Deleting a deleted memo is a no-op. The operation is logged for rollback.
func (e *Engine) Delete(ctx context.Context, memoID, actor string) (memo *models.Memo, err error) {
	ctx, span := e.startSpan(ctx, "workflow.Delete", trace.WithAttributes(attribute.String("memo.id", memoID)))
	start := time.Now()
	defer func() {
		e.record(ctx, "delete", start, err)
		endSpan(span, err)
	}()

	if actor == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "actor is required")
	}

	res := txn.ExecuteWithRollback(ctx, e.coord, "delete", func(ctx context.Context, st store.Store) (*deletion, error) {
		memo, err := e.loadWorkflowMemo(ctx, st, memoID)
		if err != nil {
			return nil, err
		}
		if memo.Status == models.StatusDeleted {
			return &deletion{memo: memo, already: true}, nil
		}
		d := &deletion{before: snapshotBefore(memo)}
		now := e.now()
		history.Append(memo, actor, models.ActionDeleted, "", now)
		memo.ApplyDecision(models.StatusDeleted, models.FolderTrash, now)
		if err := st.UpdateMemo(ctx, memo); err != nil {
			return nil, storeError(err, "memo not found", "failed to delete memo")
		}
		d.memo = memo
		return d, nil
	})
	if !res.Success {
		return nil, res.Err
	}
	d := res.Value
	if d.already {
		return d.memo, nil
	}

	e.coord.StoreRollbackMetadata(ctx, txn.Snapshot{
		OperationType: models.OpMemoDeletion,
		Before:        d.before,
		After:         models.AfterState{MemoID: d.memo.ID, Status: d.memo.Status, Folder: d.memo.Folder},
		Actor:         actor,
	})
	e.logAudit(ctx, "memo_deleted",
		"memo_id", d.memo.ID,
		"actor", actor,
		"previous_status", string(d.before.Status),
	)
	return d.memo, nil
}
