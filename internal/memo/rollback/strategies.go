package rollback

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"memoflow/internal/memo/history"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/sentinel"
)

// Compensator undoes one committed operation type. It runs inside the rollback
// transaction; entry already carries the rolled-back-by/at/reason fields.
type Compensator interface {
	Compensate(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error
}

// CompensatorFunc adapts a function to Compensator.
type CompensatorFunc func(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error

func (f CompensatorFunc) Compensate(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error {
	return f(ctx, entry, st)
}

// defaultStrategies is the closed registry of supported compensations.
func defaultStrategies() map[models.OperationType]Compensator {
	return map[models.OperationType]Compensator{
		models.OpMemoApproval:          CompensatorFunc(compensateApproval),
		models.OpMemoRejection:         CompensatorFunc(compensateRejection),
		models.OpMemoDeletion:          CompensatorFunc(compensateDeletion),
		models.OpCalendarEventCreation: CompensatorFunc(compensateCalendarEvent),
		models.OpUserDeletion:          CompensatorFunc(unsupported),
	}
}

// compensateApproval restores the memo and removes every artifact the approval created.
func compensateApproval(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error {
	memo, err := loadMemo(ctx, st, entry.Before.MemoID)
	if err != nil {
		return err
	}
	if err := requireAfterState(memo, entry); err != nil {
		return err
	}
	if err := deleteMemos(ctx, st, entry.After.DeliveryIDs); err != nil {
		return err
	}
	if err := deleteEvents(ctx, st, entry.After.CalendarEventIDs); err != nil {
		return err
	}
	if err := deleteMemos(ctx, st, entry.After.ReceiptIDs); err != nil {
		return err
	}
	memo.Metadata.UnlinkCalendarEvent()
	return restore(ctx, st, memo, entry, models.ActionRolledBack, entry.Before.Status, entry.Before.Folder)
}

// compensateRejection returns the memo to the admin queue and removes the receipt.
func compensateRejection(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error {
	memo, err := loadMemo(ctx, st, entry.Before.MemoID)
	if err != nil {
		return err
	}
	if err := requireAfterState(memo, entry); err != nil {
		return err
	}
	if err := deleteMemos(ctx, st, entry.After.ReceiptIDs); err != nil {
		return err
	}
	return restore(ctx, st, memo, entry, models.ActionRolledBack, models.StatusPendingAdmin, models.FolderDrafts)
}

// compensateDeletion undoes a soft delete. The standing decision, if any, is kept.
func compensateDeletion(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error {
	memo, err := loadMemo(ctx, st, entry.Before.MemoID)
	if err != nil {
		return err
	}
	if memo.Status != models.StatusDeleted {
		return dErrors.New(dErrors.CodeConflict, "memo is no longer deleted")
	}
	return restore(ctx, st, memo, entry, models.ActionRestored, entry.Before.Status, entry.Before.Folder)
}

// compensateCalendarEvent removes the event and clears the memo side of the link.
func compensateCalendarEvent(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error {
	memo, err := loadMemo(ctx, st, entry.Before.MemoID)
	if err != nil {
		return err
	}
	if err := deleteEvents(ctx, st, entry.After.CalendarEventIDs); err != nil {
		return err
	}
	if slices.Contains(entry.After.CalendarEventIDs, memo.Metadata.CalendarEventID()) {
		memo.Metadata.UnlinkCalendarEvent()
	}
	memo.UpdatedAt = *entry.RolledBackAt
	if err := st.UpdateMemo(ctx, memo); err != nil {
		return wrapStore(err, "failed to update memo")
	}
	return nil
}

func unsupported(_ context.Context, entry *models.RollbackLogEntry, _ store.Store) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("rollback of %s is not supported", entry.OperationType))
}

func loadMemo(ctx context.Context, st store.Store, id string) (*models.Memo, error) {
	memo, err := st.FindMemo(ctx, id)
	if err != nil {
		return nil, wrapStore(err, "failed to load memo")
	}
	return memo, nil
}

// requireAfterState rejects a compensation once a later operation has moved the memo on.
// That operation must be rolled back first.
func requireAfterState(memo *models.Memo, entry *models.RollbackLogEntry) error {
	if memo.Status != entry.After.Status || memo.Folder != entry.After.Folder {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf(
			"memo is %s/%s, not %s/%s as left by the operation", memo.Status, memo.Folder, entry.After.Status, entry.After.Folder))
	}
	return nil
}

// restore sets status and folder, records action in the memo history and persists it.
func restore(ctx context.Context, st store.Store, memo *models.Memo, entry *models.RollbackLogEntry, action models.HistoryAction, status models.Status, folder models.Folder) error {
	at := *entry.RolledBackAt
	memo.ApplyDecision(status, folder, at)
	history.Append(memo, entry.RolledBackBy, action, entry.RollbackReason, at)
	if err := st.UpdateMemo(ctx, memo); err != nil {
		return wrapStore(err, "failed to restore memo")
	}
	return nil
}

// deleteMemos removes derived documents. Already-removed documents are not an error.
func deleteMemos(ctx context.Context, st store.Store, ids []string) error {
	for _, id := range ids {
		if err := st.DeleteMemo(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrapStore(err, "failed to delete derived memo")
		}
	}
	return nil
}

func deleteEvents(ctx context.Context, st store.Store, ids []string) error {
	for _, id := range ids {
		if err := st.DeleteCalendarEvent(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrapStore(err, "failed to delete calendar event")
		}
	}
	return nil
}

func wrapStore(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
