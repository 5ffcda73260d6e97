//go:build integration

package mongo_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	mongostore "memoflow/internal/memo/store/mongo"
	"memoflow/pkg/platform/sentinel"
	"memoflow/pkg/testutil/containers"
)

const testDatabase = "memoflow_test"

type MongoStoreSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	store *mongostore.Store
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.mongo = mgr.GetMongo(s.T())
}

func (s *MongoStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.mongo.DropDatabase(ctx, testDatabase))
	s.store = mongostore.New(s.mongo.Client.Database(testDatabase))
	s.Require().NoError(s.store.EnsureIndexes(ctx))
}

func newWorkflowMemo() *models.Memo {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Memo{
		ID:          uuid.NewString(),
		Sender:      "secretary-1",
		CreatedBy:   "secretary-1",
		Departments: []string{"physics"},
		Subject:     "Budget review",
		Priority:    models.PriorityHigh,
		Status:      models.StatusPendingAdmin,
		Folder:      models.FolderDrafts,
		Metadata:    models.SubmittedMetadata(&models.Schedule{EventDate: "2026-11-02"}),
		History:     []models.HistoryEntry{{Timestamp: now, Actor: "secretary-1", Action: models.ActionCreated}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newDelivery(originalID, recipient string) *models.Memo {
	return &models.Memo{
		ID:         uuid.NewString(),
		Recipients: []string{recipient},
		Status:     models.StatusSent,
		Folder:     models.FolderSent,
		Metadata:   models.DeliveredMetadata(originalID),
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *MongoStoreSuite) TestMemoRoundTrip() {
	ctx := context.Background()
	memo := newWorkflowMemo()
	s.Require().NoError(s.store.CreateMemo(ctx, memo))

	found, err := s.store.FindMemo(ctx, memo.ID)
	s.Require().NoError(err)
	s.Equal(memo.Subject, found.Subject)
	s.Equal("2026-11-02", found.Metadata.EventDate())
	s.Len(found.History, 1)

	_, err = s.store.FindMemo(ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestOptimisticUpdate() {
	ctx := context.Background()
	memo := newWorkflowMemo()
	s.Require().NoError(s.store.CreateMemo(ctx, memo))

	first, err := s.store.FindMemo(ctx, memo.ID)
	s.Require().NoError(err)
	stale, err := s.store.FindMemo(ctx, memo.ID)
	s.Require().NoError(err)

	first.Status = models.StatusApproved
	s.Require().NoError(s.store.UpdateMemo(ctx, first))
	s.Equal(int64(1), first.Version)

	stale.Status = models.StatusRejected
	s.ErrorIs(s.store.UpdateMemo(ctx, stale), sentinel.ErrConflict)
	s.Equal(int64(0), stale.Version)

	missing := newWorkflowMemo()
	s.ErrorIs(s.store.UpdateMemo(ctx, missing), sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestDeliveryUniqueIndex() {
	ctx := context.Background()
	memo := newWorkflowMemo()
	s.Require().NoError(s.store.CreateMemo(ctx, memo))

	s.Require().NoError(s.store.CreateMemo(ctx, newDelivery(memo.ID, "f-1")))
	s.ErrorIs(s.store.CreateMemo(ctx, newDelivery(memo.ID, "f-1")), sentinel.ErrDuplicate)

	found, err := s.store.FindDerived(ctx, store.DerivedFilter{
		OriginalMemoID: memo.ID,
		EventType:      models.EventDelivered,
		Recipients:     []string{"f-1", "f-2"},
		Statuses:       models.DeliveredStatuses,
	})
	s.Require().NoError(err)
	s.Len(found, 1)
}

// TestConcurrentDeliveries verifies that racing writers produce exactly one delivery per recipient.
func (s *MongoStoreSuite) TestConcurrentDeliveries() {
	ctx := context.Background()
	memo := newWorkflowMemo()
	s.Require().NoError(s.store.CreateMemo(ctx, memo))

	const goroutines = 10
	var wg sync.WaitGroup
	var created atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.CreateMemo(ctx, newDelivery(memo.ID, "f-1")); err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
}

func (s *MongoStoreSuite) TestRunInTx() {
	ctx := context.Background()

	s.Run("commits all writes together", func() {
		memo := newWorkflowMemo()
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			if err := tx.CreateMemo(ctx, memo); err != nil {
				return err
			}
			return tx.CreateMemo(ctx, newDelivery(memo.ID, "f-1"))
		})
		s.Require().NoError(err)
		found, err := s.store.FindDerived(ctx, store.DerivedFilter{OriginalMemoID: memo.ID})
		s.Require().NoError(err)
		s.Len(found, 1)
	})

	s.Run("aborts all writes on error", func() {
		memo := newWorkflowMemo()
		boom := errors.New("boom")
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
			if err := tx.CreateMemo(ctx, memo); err != nil {
				return err
			}
			if err := tx.CreateCalendarEvent(ctx, &models.CalendarEvent{ID: uuid.NewString(), MemoID: memo.ID}); err != nil {
				return err
			}
			return boom
		})
		s.ErrorIs(err, boom)
		_, err = s.store.FindMemo(ctx, memo.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MongoStoreSuite) TestRollbackLogs() {
	ctx := context.Background()
	memoID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := range 3 {
		s.Require().NoError(s.store.CreateRollbackLog(ctx, &models.RollbackLogEntry{
			ID:            uuid.NewString(),
			OperationID:   uuid.NewString(),
			OperationType: models.OpMemoApproval,
			Before:        models.BeforeState{MemoID: memoID, Status: models.StatusPendingAdmin, Folder: models.FolderDrafts},
			PerformedAt:   base.Add(time.Duration(i) * time.Second),
			Status:        models.LogStatusCompleted,
		}))
	}

	logs, err := s.store.ListRollbackLogs(ctx, store.RollbackLogFilter{MemoID: memoID, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.True(logs[0].PerformedAt.After(logs[1].PerformedAt))

	entry := logs[0]
	entry.ApplyRollback("admin-1", "wrong memo", base)
	s.Require().NoError(s.store.UpdateRollbackLog(ctx, entry))
	found, err := s.store.FindRollbackLog(ctx, entry.ID)
	s.Require().NoError(err)
	s.True(found.IsRolledBack())
	s.Equal("wrong memo", found.RollbackReason)
}
