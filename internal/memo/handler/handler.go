package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"memoflow/internal/directory"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/internal/memo/txn"
	"memoflow/internal/platform/middleware"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/httputil"
	"memoflow/pkg/requestcontext"
)

// Workflow defines the memo lifecycle operations the handler drives.
type Workflow interface {
	Submit(ctx context.Context, secretaryID string, req models.SubmitRequest) (*models.Memo, error)
	Approve(ctx context.Context, memoID, adminID string) (*models.Memo, error)
	Reject(ctx context.Context, memoID, adminID, reason string) (*models.Memo, error)
	Delete(ctx context.Context, memoID, actor string) (*models.Memo, error)
	Get(ctx context.Context, memoID string) (*models.Memo, error)
	ListDeliveries(ctx context.Context, memoID string) ([]*models.Memo, error)
}

// Rollbacks defines the operator-facing rollback log operations.
type Rollbacks interface {
	ListRollbackLogs(ctx context.Context, filter store.RollbackLogFilter) ([]*models.RollbackLogEntry, error)
	GetRollbackLog(ctx context.Context, id string) (*models.RollbackLogEntry, error)
	ManualRollback(ctx context.Context, logID, actor, reason string) txn.Result[*models.RollbackLogEntry]
}

// Handler wires the memo endpoints to the workflow engine and the rollback executor.
type Handler struct {
	workflow  Workflow
	rollbacks Rollbacks
	logger    *slog.Logger
}

// New constructs a memo handler with its dependencies.
func New(workflow Workflow, rollbacks Rollbacks, logger *slog.Logger) *Handler {
	return &Handler{
		workflow:  workflow,
		rollbacks: rollbacks,
		logger:    logger,
	}
}

var (
	roleAdmin     = string(directory.RoleAdmin)
	roleSecretary = string(directory.RoleSecretary)
)

// Register mounts the memo endpoints. The router must already authenticate the caller.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(h.logger, roleSecretary))
		r.Post("/memos", h.HandleSubmit)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(h.logger, roleAdmin, roleSecretary))
		r.Get("/memos/{id}", h.HandleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(h.logger, roleAdmin))
		r.Post("/memos/{id}/approve", h.HandleApprove)
		r.Post("/memos/{id}/reject", h.HandleReject)
		r.Get("/memos/{id}/deliveries", h.HandleListDeliveries)
		r.Delete("/memos/{id}", h.HandleDelete)

		r.Get("/admin/rollback-logs", h.HandleListRollbackLogs)
		r.Get("/admin/rollback-logs/{id}", h.HandleGetRollbackLog)
		r.Post("/admin/rollback-logs/{id}/rollback", h.HandleRollback)
	})
}

// HandleSubmit handles POST /memos.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, err := httputil.DecodeJSON[models.SubmitRequest](w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid submit request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	memo, err := h.workflow.Submit(ctx, userID, req)
	if err != nil {
		h.fail(ctx, w, "memo submission failed", err, "user_id", userID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, memo)
}

// HandleApprove handles POST /memos/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memoID := chi.URLParam(r, "id")
	adminID := requestcontext.UserID(ctx)

	memo, err := h.workflow.Approve(ctx, memoID, adminID)
	if err != nil {
		h.fail(ctx, w, "memo approval failed", err, "memo_id", memoID, "user_id", adminID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memo)
}

// HandleReject handles POST /memos/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memoID := chi.URLParam(r, "id")
	adminID := requestcontext.UserID(ctx)

	req, err := httputil.DecodeJSON[models.RejectRequest](w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	memo, err := h.workflow.Reject(ctx, memoID, adminID, req.Reason)
	if err != nil {
		h.fail(ctx, w, "memo rejection failed", err, "memo_id", memoID, "user_id", adminID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memo)
}

// HandleGet handles GET /memos/{id}. Secretaries only see memos they sent.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memoID := chi.URLParam(r, "id")

	memo, err := h.workflow.Get(ctx, memoID)
	if err != nil {
		h.fail(ctx, w, "memo lookup failed", err, "memo_id", memoID)
		return
	}
	if requestcontext.Role(ctx) != roleAdmin && memo.Sender != requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "memo not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memo)
}

// HandleListDeliveries handles GET /memos/{id}/deliveries.
func (h *Handler) HandleListDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memoID := chi.URLParam(r, "id")

	deliveries, err := h.workflow.ListDeliveries(ctx, memoID)
	if err != nil {
		h.fail(ctx, w, "delivery listing failed", err, "memo_id", memoID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deliveryList{Deliveries: nonNil(deliveries), Count: len(deliveries)})
}

// HandleDelete handles DELETE /memos/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memoID := chi.URLParam(r, "id")
	actor := requestcontext.UserID(ctx)

	memo, err := h.workflow.Delete(ctx, memoID, actor)
	if err != nil {
		h.fail(ctx, w, "memo deletion failed", err, "memo_id", memoID, "user_id", actor)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, memo)
}

// HandleListRollbackLogs handles GET /admin/rollback-logs?memo_id=&operation_type=&status=&limit=.
func (h *Handler) HandleListRollbackLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.RollbackLogFilter{
		MemoID:        q.Get("memo_id"),
		OperationType: models.OperationType(q.Get("operation_type")),
		Status:        models.LogStatus(q.Get("status")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}

	logs, err := h.rollbacks.ListRollbackLogs(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "rollback log listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rollbackLogList{RollbackLogs: nonNil(logs), Count: len(logs)})
}

// HandleGetRollbackLog handles GET /admin/rollback-logs/{id}.
func (h *Handler) HandleGetRollbackLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logID := chi.URLParam(r, "id")

	entry, err := h.rollbacks.GetRollbackLog(ctx, logID)
	if err != nil {
		h.fail(ctx, w, "rollback log lookup failed", err, "rollback_log_id", logID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// HandleRollback handles POST /admin/rollback-logs/{id}/rollback.
func (h *Handler) HandleRollback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logID := chi.URLParam(r, "id")
	actor := requestcontext.UserID(ctx)

	req, err := httputil.DecodeJSON[models.RollbackRequest](w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res := h.rollbacks.ManualRollback(ctx, logID, actor, req.Reason)
	if !res.Success {
		h.fail(ctx, w, "manual rollback failed", res.Err, "rollback_log_id", logID, "user_id", actor)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res.Value)
}

// fail logs at a level matching the error class and writes the error response.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
