package rollback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"memoflow/internal/memo/metrics"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/sentinel"
)

type ExecutorSuite struct {
	suite.Suite
	ctx      context.Context
	store    *store.MemoryStore
	coord    *txn.Coordinator
	executor *Executor
	now      time.Time
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemoryStore()
	s.now = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	s.coord = txn.New(s.store)
	s.executor = New(s.coord, WithClock(func() time.Time { return s.now }))
}

// seedApproval lays down the state an approval with one delivery, one event and one receipt leaves behind.
func (s *ExecutorSuite) seedApproval() *models.RollbackLogEntry {
	memo := &models.Memo{
		ID:       "memo-1",
		Sender:   "s-1",
		Subject:  "Seminar",
		Status:   models.StatusApproved,
		Folder:   models.FolderSent,
		Metadata: models.SubmittedMetadata(&models.Schedule{EventDate: "2026-11-02"}),
		History: []models.HistoryEntry{
			{Actor: "s-1", Action: models.ActionCreated},
			{Actor: "a-1", Action: models.ActionApproved},
		},
	}
	memo.Metadata.LinkCalendarEvent("evt-1")
	s.Require().NoError(s.store.CreateMemo(s.ctx, memo))
	s.Require().NoError(s.store.CreateMemo(s.ctx, &models.Memo{ID: "d-1", Recipients: []string{"f-1"}, Status: models.StatusSent, Metadata: models.DeliveredMetadata("memo-1")}))
	s.Require().NoError(s.store.CreateMemo(s.ctx, &models.Memo{ID: "r-1", Status: models.StatusApproved, Metadata: models.ApprovalReceiptMetadata("memo-1", 1)}))
	s.Require().NoError(s.store.CreateCalendarEvent(s.ctx, &models.CalendarEvent{ID: "evt-1", MemoID: "memo-1"}))

	entry := &models.RollbackLogEntry{
		ID:            "log-1",
		OperationID:   "op-1",
		OperationType: models.OpMemoApproval,
		Before:        models.BeforeState{MemoID: "memo-1", Status: models.StatusPendingAdmin, Folder: models.FolderDrafts},
		After: models.AfterState{
			MemoID:           "memo-1",
			Status:           models.StatusApproved,
			Folder:           models.FolderSent,
			DeliveryIDs:      []string{"d-1"},
			CalendarEventIDs: []string{"evt-1"},
			ReceiptIDs:       []string{"r-1"},
		},
		PerformedBy: "a-1",
		Status:      models.LogStatusCompleted,
	}
	s.Require().NoError(s.store.CreateRollbackLog(s.ctx, entry))
	return entry
}

func (s *ExecutorSuite) TestApprovalRollback() {
	s.seedApproval()

	res := s.executor.ManualRollback(s.ctx, "log-1", "ops-1", "sent to wrong department")
	s.Require().True(res.Success, "rollback failed: %v", res.Err)

	memo, err := s.store.FindMemo(s.ctx, "memo-1")
	s.Require().NoError(err)
	s.Equal(models.StatusPendingAdmin, memo.Status)
	s.Equal(models.FolderDrafts, memo.Folder)
	s.Empty(memo.Metadata.CalendarEventID())
	last := memo.History[len(memo.History)-1]
	s.Equal(models.ActionRolledBack, last.Action)
	s.Equal("ops-1", last.Actor)

	for _, id := range []string{"d-1", "r-1"} {
		_, err := s.store.FindMemo(s.ctx, id)
		s.ErrorIs(err, sentinel.ErrNotFound)
	}
	_, err = s.store.FindCalendarEvent(s.ctx, "evt-1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	entry, err := s.executor.GetRollbackLog(s.ctx, "log-1")
	s.Require().NoError(err)
	s.True(entry.IsRolledBack())
	s.Equal("ops-1", entry.RolledBackBy)
	s.Equal(s.now, *entry.RolledBackAt)
	s.Equal("sent to wrong department", entry.RollbackReason)
}

func (s *ExecutorSuite) TestRollbackIsSingleUse() {
	s.seedApproval()
	s.Require().True(s.executor.ManualRollback(s.ctx, "log-1", "ops-1", "first").Success)

	res := s.executor.ManualRollback(s.ctx, "log-1", "ops-2", "second")
	s.False(res.Success)
	s.True(dErrors.HasCode(res.Err, dErrors.CodeAlreadyRolledBack))
}

func (s *ExecutorSuite) TestUnknownLog() {
	res := s.executor.ManualRollback(s.ctx, "missing", "ops-1", "")
	s.True(dErrors.HasCode(res.Err, dErrors.CodeNotFound))

	_, err := s.executor.GetRollbackLog(s.ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ExecutorSuite) TestFailedCompensationLeavesNoTrace() {
	s.seedApproval()
	boom := errors.New("boom")
	executor := New(s.coord, WithStrategy(models.OpMemoApproval, CompensatorFunc(
		func(ctx context.Context, entry *models.RollbackLogEntry, st store.Store) error {
			if err := compensateApproval(ctx, entry, st); err != nil {
				return err
			}
			return boom
		})))

	res := executor.ManualRollback(s.ctx, "log-1", "ops-1", "")
	s.ErrorIs(res.Err, boom)

	memo, err := s.store.FindMemo(s.ctx, "memo-1")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, memo.Status)
	_, err = s.store.FindMemo(s.ctx, "d-1")
	s.NoError(err)
	entry, err := s.store.FindRollbackLog(s.ctx, "log-1")
	s.Require().NoError(err)
	s.False(entry.IsRolledBack())
}

func (s *ExecutorSuite) TestRejectionRollback() {
	s.Require().NoError(s.store.CreateMemo(s.ctx, &models.Memo{ID: "memo-2", Status: models.StatusRejected, Folder: models.FolderDrafts, Metadata: models.SubmittedMetadata(nil)}))
	s.Require().NoError(s.store.CreateMemo(s.ctx, &models.Memo{ID: "r-2", Metadata: models.RejectionReceiptMetadata("memo-2", "incomplete")}))
	s.Require().NoError(s.store.CreateRollbackLog(s.ctx, &models.RollbackLogEntry{
		ID:            "log-2",
		OperationID:   "op-2",
		OperationType: models.OpMemoRejection,
		Before:        models.BeforeState{MemoID: "memo-2", Status: models.StatusPendingAdmin, Folder: models.FolderDrafts},
		After:         models.AfterState{MemoID: "memo-2", Status: models.StatusRejected, Folder: models.FolderDrafts, ReceiptIDs: []string{"r-2"}},
		Status:        models.LogStatusCompleted,
	}))

	s.Require().True(s.executor.ManualRollback(s.ctx, "log-2", "ops-1", "").Success)

	memo, err := s.store.FindMemo(s.ctx, "memo-2")
	s.Require().NoError(err)
	s.Equal(models.StatusPendingAdmin, memo.Status)
	_, err = s.store.FindMemo(s.ctx, "r-2")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ExecutorSuite) TestRollbackRefusesMovedMemo() {
	s.seedApproval()
	memo, err := s.store.FindMemo(s.ctx, "memo-1")
	s.Require().NoError(err)
	memo.ApplyDecision(models.StatusDeleted, models.FolderTrash, s.now)
	s.Require().NoError(s.store.UpdateMemo(s.ctx, memo))

	res := s.executor.ManualRollback(s.ctx, "log-1", "ops-1", "")
	s.Require().False(res.Success)
	s.True(dErrors.HasCode(res.Err, dErrors.CodeConflict))

	current, err := s.store.FindMemo(s.ctx, "memo-1")
	s.Require().NoError(err)
	s.Equal(models.StatusDeleted, current.Status)
	_, err = s.store.FindMemo(s.ctx, "d-1")
	s.NoError(err)
	entry, err := s.store.FindRollbackLog(s.ctx, "log-1")
	s.Require().NoError(err)
	s.False(entry.IsRolledBack())
}

func (s *ExecutorSuite) TestRejectionRollbackRefusesMovedMemo() {
	s.Require().NoError(s.store.CreateMemo(s.ctx, &models.Memo{ID: "memo-5", Status: models.StatusDeleted, Folder: models.FolderTrash, Metadata: models.SubmittedMetadata(nil)}))
	s.Require().NoError(s.store.CreateRollbackLog(s.ctx, &models.RollbackLogEntry{
		ID:            "log-5",
		OperationID:   "op-5",
		OperationType: models.OpMemoRejection,
		Before:        models.BeforeState{MemoID: "memo-5", Status: models.StatusPendingAdmin, Folder: models.FolderDrafts},
		After:         models.AfterState{MemoID: "memo-5", Status: models.StatusRejected, Folder: models.FolderDrafts},
		Status:        models.LogStatusCompleted,
	}))

	res := s.executor.ManualRollback(s.ctx, "log-5", "ops-1", "")
	s.True(dErrors.HasCode(res.Err, dErrors.CodeConflict))
}

func (s *ExecutorSuite) TestRollbackMetricsCarryOperationType() {
	s.seedApproval()
	m := metrics.New(prometheus.NewRegistry())
	executor := New(s.coord, WithMetrics(m), WithClock(func() time.Time { return s.now }))

	s.Require().True(executor.ManualRollback(s.ctx, "log-1", "ops-1", "").Success)
	s.False(executor.ManualRollback(s.ctx, "log-1", "ops-1", "").Success)
	s.False(executor.ManualRollback(s.ctx, "missing", "ops-1", "").Success)

	s.Equal(1.0, testutil.ToFloat64(m.Rollbacks.WithLabelValues("memo_approval", "ok")))
	s.Equal(1.0, testutil.ToFloat64(m.Rollbacks.WithLabelValues("memo_approval", "already_rolled_back")))
	s.Equal(1.0, testutil.ToFloat64(m.Rollbacks.WithLabelValues("unknown", "not_found")))
}

func (s *ExecutorSuite) TestDeletionRollback() {
	s.Require().NoError(s.store.CreateMemo(s.ctx, &models.Memo{ID: "memo-3", Status: models.StatusDeleted, Folder: models.FolderTrash, Metadata: models.SubmittedMetadata(nil)}))
	s.Require().NoError(s.store.CreateRollbackLog(s.ctx, &models.RollbackLogEntry{
		ID:            "log-3",
		OperationID:   "op-3",
		OperationType: models.OpMemoDeletion,
		Before:        models.BeforeState{MemoID: "memo-3", Status: models.StatusApproved, Folder: models.FolderSent},
		After:         models.AfterState{MemoID: "memo-3", Status: models.StatusDeleted, Folder: models.FolderTrash},
		Status:        models.LogStatusCompleted,
	}))

	s.Require().True(s.executor.ManualRollback(s.ctx, "log-3", "ops-1", "").Success)

	memo, err := s.store.FindMemo(s.ctx, "memo-3")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, memo.Status)
	s.Equal(models.FolderSent, memo.Folder)
	s.Equal(models.ActionRestored, memo.History[len(memo.History)-1].Action)
}

func (s *ExecutorSuite) TestCalendarEventRollback() {
	entry := s.seedApproval()
	s.Require().NoError(s.store.CreateRollbackLog(s.ctx, &models.RollbackLogEntry{
		ID:            "log-4",
		OperationID:   "op-4",
		OperationType: models.OpCalendarEventCreation,
		Before:        entry.Before,
		After:         models.AfterState{MemoID: "memo-1", Status: models.StatusApproved, Folder: models.FolderSent, CalendarEventIDs: []string{"evt-1"}},
		Status:        models.LogStatusCompleted,
	}))

	s.Require().True(s.executor.ManualRollback(s.ctx, "log-4", "ops-1", "").Success)

	memo, err := s.store.FindMemo(s.ctx, "memo-1")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, memo.Status, "only the event is undone")
	s.Empty(memo.Metadata.CalendarEventID())
	_, err = s.store.FindCalendarEvent(s.ctx, "evt-1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Run("the approval can still be rolled back afterwards", func() {
		s.True(s.executor.ManualRollback(s.ctx, "log-1", "ops-1", "").Success)
	})
}

func (s *ExecutorSuite) TestUserDeletionUnsupported() {
	s.Require().NoError(s.store.CreateRollbackLog(s.ctx, &models.RollbackLogEntry{
		ID:            "log-5",
		OperationID:   "op-5",
		OperationType: models.OpUserDeletion,
		Status:        models.LogStatusCompleted,
	}))

	res := s.executor.ManualRollback(s.ctx, "log-5", "ops-1", "")
	s.True(dErrors.HasCode(res.Err, dErrors.CodeValidation))

	entry, err := s.store.FindRollbackLog(s.ctx, "log-5")
	s.Require().NoError(err)
	s.False(entry.IsRolledBack())
}

func (s *ExecutorSuite) TestListRollbackLogs() {
	s.seedApproval()

	logs, err := s.executor.ListRollbackLogs(s.ctx, store.RollbackLogFilter{Status: models.LogStatusCompleted})
	s.Require().NoError(err)
	s.Len(logs, 1)

	_, err = s.executor.ListRollbackLogs(s.ctx, store.RollbackLogFilter{OperationType: "memo_shredding"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
