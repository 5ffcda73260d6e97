// Package notify delivers in-app notifications about memo workflow events.
package notify

import (
	"context"
	"time"
)

// Kind classifies a notification so stale ones can be archived by memo and kind.
type Kind string

const (
	KindPendingApproval Kind = "memo_pending_approval"
	KindSubmitted       Kind = "memo_submitted"
	KindApproved        Kind = "memo_approved"
	KindRejected        Kind = "memo_rejected"
)

type Notification struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	Subject     string            `json:"subject"`
	Content     string            `json:"content"`
	Kind        Kind              `json:"kind"`
	MemoID      string            `json:"memo_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Archived    bool              `json:"archived"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Notifier is the notification collaborator. Callers treat its errors as best-effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	// ArchivePending archives every live notification of kind that references memoID.
	ArchivePending(ctx context.Context, memoID string, kind Kind) error
}
