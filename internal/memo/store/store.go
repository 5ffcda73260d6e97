// Package store defines the persistence contract of the memo workflow and an
// in-memory implementation used by tests and single-node development.
package store

import (
	"context"

	"memoflow/internal/memo/models"
)

// DerivedFilter selects documents derived from a workflow memo (deliveries and receipts).
// Empty slices match anything.
type DerivedFilter struct {
	OriginalMemoID string
	EventType      models.EventType
	Recipients     []string
	Statuses       []models.Status
}

// RollbackLogFilter narrows a rollback log listing. Zero values match anything.
type RollbackLogFilter struct {
	MemoID        string
	OperationType models.OperationType
	Status        models.LogStatus
	Limit         int
}

// Store is the document store seen by one unit of work. Inside RunInTx every
// call joins the transaction; outside it each call commits on its own.
//
// Error contract: ErrNotFound for missing documents, ErrConflict when an
// optimistic version check loses, ErrDuplicate when a delivery for the same
// (originalMemoId, recipient) already exists.
type Store interface {
	CreateMemo(ctx context.Context, memo *models.Memo) error
	// UpdateMemo persists memo if its Version still matches the stored one and bumps Version.
	UpdateMemo(ctx context.Context, memo *models.Memo) error
	DeleteMemo(ctx context.Context, id string) error
	FindMemo(ctx context.Context, id string) (*models.Memo, error)
	FindDerived(ctx context.Context, filter DerivedFilter) ([]*models.Memo, error)

	CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error
	FindCalendarEvent(ctx context.Context, id string) (*models.CalendarEvent, error)
	DeleteCalendarEvent(ctx context.Context, id string) error

	CreateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error
	FindRollbackLog(ctx context.Context, id string) (*models.RollbackLogEntry, error)
	UpdateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error
	ListRollbackLogs(ctx context.Context, filter RollbackLogFilter) ([]*models.RollbackLogEntry, error)
}

// TxRunner provides the atomic boundary. fn receives a context and a Store bound
// to the transaction; returning an error aborts every write made through them.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// Backend is a Store that can also open units of work.
type Backend interface {
	Store
	TxRunner
}
