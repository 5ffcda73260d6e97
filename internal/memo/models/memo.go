package models

import (
	"slices"
	"time"
)

// Priority ranks a memo for recipients and drives the calendar category.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status is the lifecycle state of a memo document.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusPendingAdmin Status = "pending_admin"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusSent         Status = "sent"
	StatusRead         Status = "read"
	StatusArchived     Status = "archived"
	StatusDeleted      Status = "deleted"
)

func (s Status) String() string { return string(s) }

// IsDecided reports whether an admin decision has been recorded.
func (s Status) IsDecided() bool {
	return s == StatusApproved || s == StatusRejected
}

// DeliveredStatuses are the delivery-record states the idempotency guard treats as already delivered.
var DeliveredStatuses = []Status{StatusSent, StatusApproved, StatusRead}

// Folder is the mailbox folder a memo is filed under.
type Folder string

const (
	FolderDrafts   Folder = "drafts"
	FolderInbox    Folder = "inbox"
	FolderSent     Folder = "sent"
	FolderArchived Folder = "archived"
	FolderTrash    Folder = "trash"
)

// Attachment is stored inline; Data holds the full payload.
type Attachment struct {
	Filename string `json:"filename" bson:"filename"`
	Data     []byte `json:"data" bson:"data"`
	Size     int64  `json:"size" bson:"size"`
	MimeType string `json:"mime_type" bson:"mimeType"`
}

// HistoryAction names an entry in a memo's history ledger.
type HistoryAction string

const (
	ActionCreated    HistoryAction = "created"
	ActionApproved   HistoryAction = "approved"
	ActionRejected   HistoryAction = "rejected"
	ActionDeleted    HistoryAction = "deleted"
	ActionRestored   HistoryAction = "restored"
	ActionRolledBack HistoryAction = "rolled_back"
)

// IsDecision reports whether the action records an admin decision.
func (a HistoryAction) IsDecision() bool {
	return a == ActionApproved || a == ActionRejected
}

type HistoryEntry struct {
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Actor     string        `json:"actor" bson:"actor"`
	Action    HistoryAction `json:"action" bson:"action"`
	Reason    string        `json:"reason,omitempty" bson:"reason,omitempty"`
}

// Memo is both the workflow record and, after fan-out, the shape of each
// delivery record and admin receipt. Metadata.EventType tells them apart.
//
// Invariants:
//   - Version increases by one on every persisted update
//   - History is append-only
//   - Delivery records carry exactly one recipient and a delivery link back to the workflow memo
type Memo struct {
	ID          string         `json:"id" bson:"_id"`
	Sender      string         `json:"sender" bson:"sender"`
	CreatedBy   string         `json:"created_by" bson:"createdBy"`
	Recipients  []string       `json:"recipients" bson:"recipients"`
	Departments []string       `json:"departments" bson:"departments"`
	Subject     string         `json:"subject" bson:"subject"`
	Content     string         `json:"content" bson:"content"`
	Attachments []Attachment   `json:"attachments,omitempty" bson:"attachments,omitempty"`
	Priority    Priority       `json:"priority" bson:"priority"`
	Status      Status         `json:"status" bson:"status"`
	Folder      Folder         `json:"folder" bson:"folder"`
	IsRead      bool           `json:"is_read" bson:"isRead"`
	Metadata    Metadata       `json:"metadata" bson:"metadata"`
	History     []HistoryEntry `json:"history" bson:"history"`
	Version     int64          `json:"version" bson:"version"`
	CreatedAt   time.Time      `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updatedAt"`
}

// IsWorkflowMemo reports whether m is a secretary submission rather than a derived copy.
func (m *Memo) IsWorkflowMemo() bool {
	return m.Metadata.EventType == EventSubmitted
}

// IsDelivery reports whether m is a per-recipient delivery record.
func (m *Memo) IsDelivery() bool {
	return m.Metadata.EventType == EventDelivered
}

// ApplyDecision moves a pending workflow memo into its decided state.
func (m *Memo) ApplyDecision(status Status, folder Folder, now time.Time) {
	m.Status = status
	m.Folder = folder
	m.UpdatedAt = now
}

// Clone returns a deep copy. Attachment payloads are copied, not shared.
func (m *Memo) Clone() *Memo {
	if m == nil {
		return nil
	}
	c := *m
	c.Recipients = slices.Clone(m.Recipients)
	c.Departments = slices.Clone(m.Departments)
	c.History = slices.Clone(m.History)
	c.Attachments = CloneAttachments(m.Attachments)
	c.Metadata = m.Metadata.Clone()
	return &c
}

// CloneAttachments deep-copies attachments including their inline payloads.
func CloneAttachments(in []Attachment) []Attachment {
	if in == nil {
		return nil
	}
	out := make([]Attachment, len(in))
	for i, a := range in {
		out[i] = a
		out[i].Data = slices.Clone(a.Data)
	}
	return out
}
