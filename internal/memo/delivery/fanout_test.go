package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"memoflow/internal/directory"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/sentinel"
)

type FanoutSuite struct {
	suite.Suite
	ctx    context.Context
	dir    *directory.InMemory
	store  *store.MemoryStore
	fanout *Fanout
}

func TestFanoutSuite(t *testing.T) {
	suite.Run(t, new(FanoutSuite))
}

func (s *FanoutSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = directory.NewInMemory(
		directory.User{ID: "s-1", Name: "Sam", Role: directory.RoleSecretary, Department: "physics", Active: true},
		directory.User{ID: "f-1", Name: "Bea", Email: "bea@example.edu", Role: directory.RoleFaculty, Department: "physics", Active: true},
		directory.User{ID: "f-2", Name: "Cal", Email: "cal@example.edu", Role: directory.RoleFaculty, Department: "physics", Active: true},
		directory.User{ID: "f-3", Name: "Dan", Email: "dan@example.edu", Role: directory.RoleFaculty, Department: "physics", Active: true},
		directory.User{ID: "f-4", Name: "Eve", Role: directory.RoleFaculty, Department: "physics", Active: false},
		directory.User{ID: "f-5", Name: "Fay", Role: directory.RoleFaculty, Department: "math", Active: true},
	)
	s.store = store.NewMemoryStore()
	s.fanout = New(s.dir)
}

func (s *FanoutSuite) newMemo(recipients []string, departments []string) *models.Memo {
	memo := &models.Memo{
		ID:          uuid.NewString(),
		Sender:      "s-1",
		CreatedBy:   "s-1",
		Recipients:  recipients,
		Departments: departments,
		Subject:     "Lab safety",
		Priority:    models.PriorityMedium,
		Status:      models.StatusPendingAdmin,
		Folder:      models.FolderDrafts,
		Attachments: []models.Attachment{{Filename: "rules.pdf", Data: []byte{1, 2, 3}, Size: 3}},
		Metadata:    models.SubmittedMetadata(nil),
		CreatedAt:   time.Now(),
	}
	s.Require().NoError(s.store.CreateMemo(s.ctx, memo))
	return memo
}

func (s *FanoutSuite) deliver(memo *models.Memo) (*Result, error) {
	var result *Result
	err := s.store.RunInTx(s.ctx, func(ctx context.Context, st store.Store) error {
		var err error
		result, err = s.fanout.Deliver(ctx, st, memo)
		return err
	})
	return result, err
}

func (s *FanoutSuite) TestResolve() {
	s.Run("departments resolve to active faculty only", func() {
		audience, err := s.fanout.Resolve(s.ctx, s.newMemo(nil, []string{"physics"}))
		s.Require().NoError(err)
		s.Equal([]string{"f-1", "f-2", "f-3"}, ids(audience))
	})

	s.Run("explicit recipients win over departments and drop sender and non-faculty", func() {
		memo := s.newMemo([]string{"f-5", "s-1", "f-4", "f-5", "f-1"}, []string{"physics"})
		audience, err := s.fanout.Resolve(s.ctx, memo)
		s.Require().NoError(err)
		s.Equal([]string{"f-5", "f-1"}, ids(audience))
	})
}

func (s *FanoutSuite) TestDeliver() {
	s.Run("creates one sent copy per recipient", func() {
		memo := s.newMemo(nil, []string{"physics"})
		result, err := s.deliver(memo)
		s.Require().NoError(err)
		s.Require().Len(result.Created, 3)
		for _, d := range result.Created {
			s.Equal(models.StatusSent, d.Memo.Status)
			s.Equal(models.FolderSent, d.Memo.Folder)
			s.False(d.Memo.IsRead)
			s.Equal(memo.ID, d.Memo.Metadata.OriginalMemoID())
			s.Equal([]string{d.Recipient.ID}, d.Memo.Recipients)
			s.NoError(d.Memo.Metadata.Validate())
		}
	})

	s.Run("attachment payloads are copied", func() {
		memo := s.newMemo([]string{"f-1"}, nil)
		result, err := s.deliver(memo)
		s.Require().NoError(err)
		s.Require().Len(result.Created, 1)
		result.Created[0].Memo.Attachments[0].Data[0] = 9
		s.Equal(byte(1), memo.Attachments[0].Data[0])
	})

	s.Run("second pass skips recipients already delivered to", func() {
		memo := s.newMemo(nil, []string{"physics"})
		_, err := s.deliver(memo)
		s.Require().NoError(err)

		result, err := s.deliver(memo)
		s.Require().NoError(err)
		s.Empty(result.Created)
		s.ElementsMatch([]string{"f-1", "f-2", "f-3"}, result.Skipped)

		all, err := s.store.FindDerived(s.ctx, store.DerivedFilter{OriginalMemoID: memo.ID, EventType: models.EventDelivered})
		s.Require().NoError(err)
		s.Len(all, 3)
	})

	s.Run("newly added department member is delivered on re-entry", func() {
		memo := s.newMemo(nil, []string{"physics"})
		_, err := s.deliver(memo)
		s.Require().NoError(err)

		s.dir.Put(directory.User{ID: "f-6", Name: "Gus", Role: directory.RoleFaculty, Department: "physics", Active: true})
		result, err := s.deliver(memo)
		s.Require().NoError(err)
		s.Equal([]string{"f-6"}, ids(recipientsOf(result.Created)))
	})

	s.Run("empty audience is success", func() {
		memo := s.newMemo(nil, []string{"history"})
		result, err := s.deliver(memo)
		s.Require().NoError(err)
		s.Empty(result.Created)
		s.Empty(result.IDs())
	})

	s.Run("duplicate key on one recipient is skipped", func() {
		memo := s.newMemo([]string{"f-1", "f-2"}, nil)
		var result *Result
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st store.Store) error {
			var err error
			result, err = s.fanout.Deliver(ctx, duplicateFor{Store: st, recipient: "f-2"}, memo)
			return err
		})
		s.Require().NoError(err)
		s.ElementsMatch([]string{"f-1"}, ids(recipientsOf(result.Created)))
		s.Equal([]string{"f-2"}, result.Skipped)
	})

	s.Run("other create failures abort the delivery", func() {
		memo := s.newMemo([]string{"f-1"}, nil)
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st store.Store) error {
			_, err := s.fanout.Deliver(ctx, duplicateFor{Store: st, recipient: "f-1", err: errors.New("disk full")}, memo)
			return err
		})
		s.True(dErrors.HasCode(err, dErrors.CodeDeliveryFailed))
	})

	s.Run("directory failure is a delivery error", func() {
		f := New(failingDirectory{})
		memo := s.newMemo([]string{"f-1"}, nil)
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st store.Store) error {
			_, err := f.Deliver(ctx, st, memo)
			return err
		})
		s.True(dErrors.HasCode(err, dErrors.CodeDeliveryFailed))
	})
}

// duplicateFor fails the delivery create for one recipient, with ErrDuplicate unless err is set.
type duplicateFor struct {
	store.Store
	recipient string
	err       error
}

func (d duplicateFor) CreateMemo(ctx context.Context, memo *models.Memo) error {
	if len(memo.Recipients) == 1 && memo.Recipients[0] == d.recipient && memo.Metadata.EventType == models.EventDelivered {
		if d.err != nil {
			return d.err
		}
		return sentinel.ErrDuplicate
	}
	return d.Store.CreateMemo(ctx, memo)
}

type failingDirectory struct{ directory.Directory }

func (failingDirectory) FindByIDs(context.Context, []string) ([]directory.User, error) {
	return nil, errors.New("directory offline")
}

func ids(users []directory.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func recipientsOf(ds []Delivery) []directory.User {
	out := make([]directory.User, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Recipient)
	}
	return out
}
