// Package delivery turns an approved workflow memo into one delivery record per
// recipient, skipping anyone who already holds a live copy.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"memoflow/internal/directory"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/sentinel"
)

// Delivery pairs a created delivery record with the account it was addressed to.
type Delivery struct {
	Memo      *models.Memo
	Recipient directory.User
}

// Result is the outcome of one fan-out pass.
type Result struct {
	// Created holds the deliveries made by this pass, in audience order.
	Created []Delivery
	// Recipients is the full resolved audience, including skipped recipients.
	Recipients []directory.User
	// Skipped lists recipient ids that already held a live delivery.
	Skipped []string
}

// IDs returns the ids of the created delivery records.
func (r *Result) IDs() []string {
	ids := make([]string, 0, len(r.Created))
	for _, d := range r.Created {
		ids = append(ids, d.Memo.ID)
	}
	return ids
}

// Fanout resolves the audience and creates delivery records.
type Fanout struct {
	directory directory.Directory
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Fanout)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fanout) {
		f.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Fanout) {
		f.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(f *Fanout) {
		f.newID = newID
	}
}

func New(dir directory.Directory, opts ...Option) *Fanout {
	f := &Fanout{
		directory: dir,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolve returns the deduplicated audience of memo: its explicit recipients when
// present, otherwise the active faculty of its departments. The sender and any
// inactive or non-faculty account are removed. Order is preserved.
func (f *Fanout) Resolve(ctx context.Context, memo *models.Memo) ([]directory.User, error) {
	var (
		candidates []directory.User
		err        error
	)
	if len(memo.Recipients) > 0 {
		candidates, err = f.directory.FindByIDs(ctx, memo.Recipients)
	} else {
		candidates, err = f.directory.ActiveFacultyByDepartments(ctx, memo.Departments)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(candidates))
	audience := make([]directory.User, 0, len(candidates))
	for _, u := range candidates {
		if u.ID == memo.Sender || !u.IsDeliverable() {
			continue
		}
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		audience = append(audience, u)
	}
	return audience, nil
}

// Deliver creates one delivery record per audience member that has no live copy
// yet. It must run inside the caller's transaction. A lost uniqueness race on a
// single recipient is skipped; any other failure is a delivery error.
//
// The ErrDuplicate skip only helps on the in-memory store. MongoDB aborts the
// whole transaction on a duplicate key, so later writes in it fail and the
// caller sees a conflict. The engine then re-reads the memo and retries.
func (f *Fanout) Deliver(ctx context.Context, st store.Store, memo *models.Memo) (*Result, error) {
	audience, err := f.Resolve(ctx, memo)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDeliveryFailed, "failed to resolve recipients")
	}
	result := &Result{Recipients: audience}
	if len(audience) == 0 {
		return result, nil
	}

	delivered, err := f.alreadyDelivered(ctx, st, memo.ID, audience)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDeliveryFailed, "failed to check existing deliveries")
	}

	now := f.now()
	for _, recipient := range audience {
		if _, ok := delivered[recipient.ID]; ok {
			result.Skipped = append(result.Skipped, recipient.ID)
			continue
		}
		record := f.newDelivery(memo, recipient.ID, now)
		if err := st.CreateMemo(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				f.logger.DebugContext(ctx, "delivery already exists, skipping",
					"memo_id", memo.ID,
					"recipient_id", recipient.ID,
				)
				result.Skipped = append(result.Skipped, recipient.ID)
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeDeliveryFailed, "failed to create delivery")
		}
		result.Created = append(result.Created, Delivery{Memo: record, Recipient: recipient})
	}
	return result, nil
}

// alreadyDelivered is the idempotency guard: recipients holding a sent, approved or read copy.
func (f *Fanout) alreadyDelivered(ctx context.Context, st store.Store, memoID string, audience []directory.User) (map[string]struct{}, error) {
	ids := make([]string, 0, len(audience))
	for _, u := range audience {
		ids = append(ids, u.ID)
	}
	existing, err := st.FindDerived(ctx, store.DerivedFilter{
		OriginalMemoID: memoID,
		EventType:      models.EventDelivered,
		Recipients:     ids,
		Statuses:       models.DeliveredStatuses,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		for _, r := range d.Recipients {
			out[r] = struct{}{}
		}
	}
	return out, nil
}

func (f *Fanout) newDelivery(memo *models.Memo, recipientID string, now time.Time) *models.Memo {
	return &models.Memo{
		ID:          f.newID(),
		Sender:      memo.Sender,
		CreatedBy:   memo.CreatedBy,
		Recipients:  []string{recipientID},
		Departments: append([]string(nil), memo.Departments...),
		Subject:     memo.Subject,
		Content:     memo.Content,
		Attachments: models.CloneAttachments(memo.Attachments),
		Priority:    memo.Priority,
		Status:      models.StatusSent,
		Folder:      models.FolderSent,
		IsRead:      false,
		Metadata:    models.DeliveredMetadata(memo.ID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
