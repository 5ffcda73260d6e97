package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"memoflow/internal/memo/models"
	dErrors "memoflow/pkg/domain-errors"
	"memoflow/pkg/platform/sentinel"
	"memoflow/pkg/platform/tx"
)

// defaultTxTimeout bounds a transaction when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// memState holds immutable snapshots: a stored pointer is never mutated, writes
// swap in a fresh clone. A shallow map copy is therefore a consistent snapshot.
type memState struct {
	memos  map[string]*models.Memo
	events map[string]*models.CalendarEvent
	logs   map[string]*models.RollbackLogEntry
}

func newMemState() *memState {
	return &memState{
		memos:  make(map[string]*models.Memo),
		events: make(map[string]*models.CalendarEvent),
		logs:   make(map[string]*models.RollbackLogEntry),
	}
}

func (s *memState) clone() *memState {
	return &memState{
		memos:  maps.Clone(s.memos),
		events: maps.Clone(s.events),
		logs:   maps.Clone(s.logs),
	}
}

// MemoryStore keeps the workflow documents in process memory. Transactions run
// under a coarse lock against a private copy of the state that replaces the
// live state on commit, so an aborted unit of work leaves nothing behind.
type MemoryStore struct {
	mu      sync.RWMutex
	state   *memState
	timeout time.Duration
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTxTimeout overrides the default transaction timeout.
func WithTxTimeout(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{state: newMemState(), timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ TxRunner = (*MemoryStore)(nil)
)

// RunInTx runs fn against a private copy of the state and publishes it on success.
// A call made with a context already inside a unit of work joins it.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if outer, ok := tx.From[*memTx](ctx); ok {
		return fn(ctx, outer)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unit := &memTx{state: s.state.clone()}
	if err := fn(tx.WithTx(ctx, unit), unit); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}
	s.state = unit.state
	return nil
}

// autocommit runs a single operation as its own transaction, or joins the one in ctx.
func (s *MemoryStore) autocommit(ctx context.Context, fn func(unit *memTx) error) error {
	if outer, ok := tx.From[*memTx](ctx); ok {
		return fn(outer)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unit := &memTx{state: s.state.clone()}
	if err := fn(unit); err != nil {
		return err
	}
	s.state = unit.state
	return nil
}

// read returns a view of the committed state, or of the unit of work in ctx.
func (s *MemoryStore) read(ctx context.Context) *memTx {
	if outer, ok := tx.From[*memTx](ctx); ok {
		return outer
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &memTx{state: s.state}
}

func (s *MemoryStore) CreateMemo(ctx context.Context, memo *models.Memo) error {
	return s.autocommit(ctx, func(unit *memTx) error { return unit.CreateMemo(ctx, memo) })
}

func (s *MemoryStore) UpdateMemo(ctx context.Context, memo *models.Memo) error {
	return s.autocommit(ctx, func(unit *memTx) error { return unit.UpdateMemo(ctx, memo) })
}

func (s *MemoryStore) DeleteMemo(ctx context.Context, id string) error {
	return s.autocommit(ctx, func(unit *memTx) error { return unit.DeleteMemo(ctx, id) })
}

func (s *MemoryStore) FindMemo(ctx context.Context, id string) (*models.Memo, error) {
	return s.read(ctx).FindMemo(ctx, id)
}

func (s *MemoryStore) FindDerived(ctx context.Context, filter DerivedFilter) ([]*models.Memo, error) {
	return s.read(ctx).FindDerived(ctx, filter)
}

func (s *MemoryStore) CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	return s.autocommit(ctx, func(unit *memTx) error { return unit.CreateCalendarEvent(ctx, event) })
}

func (s *MemoryStore) FindCalendarEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	return s.read(ctx).FindCalendarEvent(ctx, id)
}

func (s *MemoryStore) DeleteCalendarEvent(ctx context.Context, id string) error {
	return s.autocommit(ctx, func(unit *memTx) error { return unit.DeleteCalendarEvent(ctx, id) })
}

func (s *MemoryStore) CreateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error {
	return s.autocommit(ctx, func(unit *memTx) error { return unit.CreateRollbackLog(ctx, entry) })
}

func (s *MemoryStore) FindRollbackLog(ctx context.Context, id string) (*models.RollbackLogEntry, error) {
	return s.read(ctx).FindRollbackLog(ctx, id)
}

func (s *MemoryStore) UpdateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error {
	return s.autocommit(ctx, func(unit *memTx) error { return unit.UpdateRollbackLog(ctx, entry) })
}

func (s *MemoryStore) ListRollbackLogs(ctx context.Context, filter RollbackLogFilter) ([]*models.RollbackLogEntry, error) {
	return s.read(ctx).ListRollbackLogs(ctx, filter)
}

// memTx is the Store view handed to a unit of work. It is confined to the
// goroutine running the transaction and needs no locking of its own.
type memTx struct {
	state *memState
}

func (t *memTx) CreateMemo(ctx context.Context, memo *models.Memo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.state.memos[memo.ID]; ok {
		return fmt.Errorf("memo %s: %w", memo.ID, sentinel.ErrDuplicate)
	}
	if memo.IsDelivery() {
		for _, existing := range t.state.memos {
			if sameDelivery(existing, memo) {
				return fmt.Errorf("delivery of %s to %v: %w", memo.Metadata.OriginalMemoID(), memo.Recipients, sentinel.ErrDuplicate)
			}
		}
	}
	t.state.memos[memo.ID] = memo.Clone()
	return nil
}

// sameDelivery enforces at most one live delivery per (originalMemoId, recipient).
func sameDelivery(existing, candidate *models.Memo) bool {
	if !existing.IsDelivery() || existing.Status == models.StatusDeleted {
		return false
	}
	if existing.Metadata.OriginalMemoID() != candidate.Metadata.OriginalMemoID() {
		return false
	}
	for _, r := range candidate.Recipients {
		if slices.Contains(existing.Recipients, r) {
			return true
		}
	}
	return false
}

func (t *memTx) UpdateMemo(ctx context.Context, memo *models.Memo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, ok := t.state.memos[memo.ID]
	if !ok {
		return fmt.Errorf("memo %s: %w", memo.ID, sentinel.ErrNotFound)
	}
	if current.Version != memo.Version {
		return fmt.Errorf("memo %s at version %d, have %d: %w", memo.ID, current.Version, memo.Version, sentinel.ErrConflict)
	}
	memo.Version++
	t.state.memos[memo.ID] = memo.Clone()
	return nil
}

func (t *memTx) DeleteMemo(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.state.memos[id]; !ok {
		return fmt.Errorf("memo %s: %w", id, sentinel.ErrNotFound)
	}
	delete(t.state.memos, id)
	return nil
}

func (t *memTx) FindMemo(ctx context.Context, id string) (*models.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	memo, ok := t.state.memos[id]
	if !ok {
		return nil, fmt.Errorf("memo %s: %w", id, sentinel.ErrNotFound)
	}
	return memo.Clone(), nil
}

func (t *memTx) FindDerived(ctx context.Context, filter DerivedFilter) ([]*models.Memo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*models.Memo
	for _, memo := range t.state.memos {
		if memo.Metadata.OriginalMemoID() != filter.OriginalMemoID {
			continue
		}
		if filter.EventType != "" && memo.Metadata.EventType != filter.EventType {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, memo.Status) {
			continue
		}
		if len(filter.Recipients) > 0 && !containsAny(memo.Recipients, filter.Recipients) {
			continue
		}
		out = append(out, memo.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func (t *memTx) CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.state.events[event.ID]; ok {
		return fmt.Errorf("calendar event %s: %w", event.ID, sentinel.ErrDuplicate)
	}
	for _, existing := range t.state.events {
		if existing.MemoID == event.MemoID {
			return fmt.Errorf("calendar event for memo %s: %w", event.MemoID, sentinel.ErrDuplicate)
		}
	}
	c := *event
	c.Participants = slices.Clone(event.Participants)
	t.state.events[event.ID] = &c
	return nil
}

func (t *memTx) FindCalendarEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	event, ok := t.state.events[id]
	if !ok {
		return nil, fmt.Errorf("calendar event %s: %w", id, sentinel.ErrNotFound)
	}
	c := *event
	c.Participants = slices.Clone(event.Participants)
	return &c, nil
}

func (t *memTx) DeleteCalendarEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.state.events[id]; !ok {
		return fmt.Errorf("calendar event %s: %w", id, sentinel.ErrNotFound)
	}
	delete(t.state.events, id)
	return nil
}

func (t *memTx) CreateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, existing := range t.state.logs {
		if existing.ID == entry.ID || existing.OperationID == entry.OperationID {
			return fmt.Errorf("rollback log for operation %s: %w", entry.OperationID, sentinel.ErrDuplicate)
		}
	}
	t.state.logs[entry.ID] = cloneLog(entry)
	return nil
}

func (t *memTx) FindRollbackLog(ctx context.Context, id string) (*models.RollbackLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := t.state.logs[id]
	if !ok {
		return nil, fmt.Errorf("rollback log %s: %w", id, sentinel.ErrNotFound)
	}
	return cloneLog(entry), nil
}

func (t *memTx) UpdateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.state.logs[entry.ID]; !ok {
		return fmt.Errorf("rollback log %s: %w", entry.ID, sentinel.ErrNotFound)
	}
	t.state.logs[entry.ID] = cloneLog(entry)
	return nil
}

func (t *memTx) ListRollbackLogs(ctx context.Context, filter RollbackLogFilter) ([]*models.RollbackLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*models.RollbackLogEntry
	for _, entry := range t.state.logs {
		if filter.MemoID != "" && entry.Before.MemoID != filter.MemoID {
			continue
		}
		if filter.OperationType != "" && entry.OperationType != filter.OperationType {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		out = append(out, cloneLog(entry))
	}
	// newest first, matching the Mongo listing
	sort.Slice(out, func(i, j int) bool {
		if out[i].PerformedAt.Equal(out[j].PerformedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].PerformedAt.After(out[j].PerformedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func cloneLog(e *models.RollbackLogEntry) *models.RollbackLogEntry {
	c := *e
	c.After.DeliveryIDs = slices.Clone(e.After.DeliveryIDs)
	c.After.CalendarEventIDs = slices.Clone(e.After.CalendarEventIDs)
	c.After.ReceiptIDs = slices.Clone(e.After.ReceiptIDs)
	if e.RolledBackAt != nil {
		at := *e.RolledBackAt
		c.RolledBackAt = &at
	}
	return &c
}
