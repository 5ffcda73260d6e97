package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"memoflow/internal/memo/history"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	dErrors "memoflow/pkg/domain-errors"
)

// Submit files a secretary's draft as a memo awaiting an admin decision.
func (e *Engine) Submit(ctx context.Context, secretaryID string, req models.SubmitRequest) (memo *models.Memo, err error) {
	ctx, span := e.startSpan(ctx, "workflow.Submit", trace.WithAttributes(attribute.String("memo.sender", secretaryID)))
	start := time.Now()
	defer func() {
		e.record(ctx, "submit", start, err)
		endSpan(span, err)
	}()

	if secretaryID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sender is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := e.now()
	memo = &models.Memo{
		ID:          e.newID(),
		Sender:      secretaryID,
		CreatedBy:   secretaryID,
		Recipients:  req.Recipients,
		Departments: req.Departments,
		Subject:     req.Subject,
		Content:     req.Content,
		Attachments: models.CloneAttachments(req.Attachments),
		Priority:    req.Priority,
		Status:      models.StatusPendingAdmin,
		Folder:      models.FolderDrafts,
		Metadata:    models.SubmittedMetadata(req.Schedule),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	history.Append(memo, secretaryID, models.ActionCreated, "", now)
	if err := memo.Metadata.Validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid memo metadata")
	}

	if err := e.coord.Run(ctx, "submit", func(ctx context.Context, st store.Store) error {
		return st.CreateMemo(ctx, memo)
	}); err != nil {
		return nil, storeError(err, "memo not found", "failed to create memo")
	}
	span.SetAttributes(attribute.String("memo.id", memo.ID))

	e.logAudit(ctx, "memo_submitted",
		"memo_id", memo.ID,
		"sender", secretaryID,
		"priority", string(memo.Priority),
	)
	e.afterSubmit(ctx, memo)
	return memo, nil
}
