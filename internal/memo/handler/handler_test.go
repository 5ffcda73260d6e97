package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler.go -package=mocks

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"memoflow/internal/memo/handler/mocks"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	workflow  *mocks.MockWorkflow
	rollbacks *mocks.MockRollbacks
	router    http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.workflow = mocks.NewMockWorkflow(ctrl)
	s.rollbacks = mocks.NewMockRollbacks(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(s.workflow, s.rollbacks, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(req *http.Request, userID, role string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithPrincipal(req, userID, role))
}

func pendingMemo() *models.Memo {
	return &models.Memo{
		ID:      "m-1",
		Sender:  "s-1",
		Subject: "Seminar",
		Status:  models.StatusPendingAdmin,
		Folder:  models.FolderDrafts,
	}
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("secretary submits", func() {
		s.workflow.EXPECT().Submit(gomock.Any(), "s-1", gomock.Any()).DoAndReturn(
			func(_ any, _ string, req models.SubmitRequest) (*models.Memo, error) {
				s.Equal("Seminar", req.Subject)
				s.Equal([]string{"physics"}, req.Departments)
				s.Equal("2026-11-02", req.Schedule.EventDate)
				return pendingMemo(), nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/memos", map[string]any{
			"subject":     "Seminar",
			"departments": []string{"physics"},
			"schedule":    map[string]string{"event_date": "2026-11-02"},
		})
		rr := s.do(req, "s-1", "secretary")

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "status", "pending_admin")
	})

	s.Run("admins cannot submit", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/memos", map[string]any{"subject": "x"})
		rr := s.do(req, "a-1", "admin")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/memos", `{"subject":`)
		rr := s.do(req, "s-1", "secretary")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("validation failure", func() {
		s.workflow.EXPECT().Submit(gomock.Any(), "s-1", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "subject is required"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/memos", map[string]any{"departments": []string{"physics"}})
		rr := s.do(req, "s-1", "secretary")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *HandlerSuite) TestApprove() {
	s.Run("approved", func() {
		approved := pendingMemo()
		approved.Status = models.StatusApproved
		s.workflow.EXPECT().Approve(gomock.Any(), "m-1", "a-1").Return(approved, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/memos/m-1/approve"), "a-1", "admin")
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "approved")
	})

	s.Run("conflict", func() {
		s.workflow.EXPECT().Approve(gomock.Any(), "m-1", "a-2").
			Return(nil, dErrors.New(dErrors.CodeConflict, "memo was already decided by another admin"))

		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/memos/m-1/approve"), "a-2", "admin")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("calendar failure is generic", func() {
		s.workflow.EXPECT().Approve(gomock.Any(), "m-1", "a-1").
			Return(nil, dErrors.New(dErrors.CodeCalendarFailed, "invalid event schedule"))

		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/memos/m-1/approve"), "a-1", "admin")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})

	s.Run("secretaries cannot approve", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/memos/m-1/approve"), "s-1", "secretary")
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})
}

func (s *HandlerSuite) TestReject() {
	rejected := pendingMemo()
	rejected.Status = models.StatusRejected
	s.workflow.EXPECT().Reject(gomock.Any(), "m-1", "a-1", "incomplete").Return(rejected, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/memos/m-1/reject", models.RejectRequest{Reason: "incomplete"})
	rr := s.do(req, "a-1", "admin")

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "rejected")
}

func (s *HandlerSuite) TestGet() {
	s.Run("sender may read", func() {
		s.workflow.EXPECT().Get(gomock.Any(), "m-1").Return(pendingMemo(), nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/memos/m-1"), "s-1", "secretary")
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("other secretaries see nothing", func() {
		s.workflow.EXPECT().Get(gomock.Any(), "m-1").Return(pendingMemo(), nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/memos/m-1"), "s-2", "secretary")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("admins read anything", func() {
		s.workflow.EXPECT().Get(gomock.Any(), "m-1").Return(pendingMemo(), nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/memos/m-1"), "a-1", "admin")
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("faculty are refused", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/memos/m-1"), "f-1", "faculty")
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})
}

func (s *HandlerSuite) TestListDeliveries() {
	s.Run("empty list renders as array", func() {
		s.workflow.EXPECT().ListDeliveries(gomock.Any(), "m-1").Return(nil, nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/memos/m-1/deliveries"), "a-1", "admin")

		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"deliveries":[],"count":0}`, rr.Body.String())
	})

	s.Run("lists copies", func() {
		s.workflow.EXPECT().ListDeliveries(gomock.Any(), "m-1").Return([]*models.Memo{
			{ID: "d-1", Recipients: []string{"f-1"}, Status: models.StatusSent},
			{ID: "d-2", Recipients: []string{"f-2"}, Status: models.StatusSent},
		}, nil)
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/memos/m-1/deliveries"), "a-1", "admin")

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "count", float64(2))
	})
}

func (s *HandlerSuite) TestDelete() {
	deleted := pendingMemo()
	deleted.Status = models.StatusDeleted
	s.workflow.EXPECT().Delete(gomock.Any(), "m-1", "a-1").Return(deleted, nil)

	rr := s.do(testutil.NewRequest(s.T(), http.MethodDelete, "/memos/m-1"), "a-1", "admin")
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "deleted")
}

func (s *HandlerSuite) TestRollbackLogs() {
	s.Run("list with filters", func() {
		s.rollbacks.EXPECT().ListRollbackLogs(gomock.Any(), store.RollbackLogFilter{
			MemoID:        "m-1",
			OperationType: models.OpMemoApproval,
			Status:        models.LogStatusCompleted,
			Limit:         10,
		}).Return([]*models.RollbackLogEntry{{ID: "log-1", OperationType: models.OpMemoApproval}}, nil)

		path := "/admin/rollback-logs?memo_id=m-1&operation_type=memo_approval&status=completed&limit=10"
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, path), "a-1", "admin")
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "count", float64(1))
	})

	s.Run("bad limit", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/admin/rollback-logs?limit=lots"), "a-1", "admin")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("show", func() {
		s.rollbacks.EXPECT().GetRollbackLog(gomock.Any(), "missing").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "rollback log not found"))
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/admin/rollback-logs/missing"), "a-1", "admin")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestRollback() {
	s.Run("applied", func() {
		at := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
		entry := &models.RollbackLogEntry{ID: "log-1", Status: models.LogStatusRolledBack, RolledBackBy: "a-1", RolledBackAt: &at}
		s.rollbacks.EXPECT().ManualRollback(gomock.Any(), "log-1", "a-1", "wrong audience").
			Return(txn.Result[*models.RollbackLogEntry]{Success: true, Value: entry})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/rollback-logs/log-1/rollback", models.RollbackRequest{Reason: "wrong audience"})
		rr := s.do(req, "a-1", "admin")
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "rolled_back")
	})

	s.Run("already rolled back", func() {
		s.rollbacks.EXPECT().ManualRollback(gomock.Any(), "log-1", "a-1", "").
			Return(txn.Result[*models.RollbackLogEntry]{Err: dErrors.New(dErrors.CodeAlreadyRolledBack, "operation already rolled back")})

		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/admin/rollback-logs/log-1/rollback"), "a-1", "admin")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "already_rolled_back")
	})
}
