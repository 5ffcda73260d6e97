// Package mongo persists the memo workflow in MongoDB. Multi-document writes
// run inside session transactions, so the deployment must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	"memoflow/pkg/platform/sentinel"
)

const (
	memosCollection        = "memos"
	calendarCollection     = "calendar_events"
	rollbackLogsCollection = "rollback_logs"
)

// Field paths shared by queries and indexes.
const (
	fieldID             = "_id"
	fieldVersion        = "version"
	fieldStatus         = "status"
	fieldRecipients     = "recipients"
	fieldCreatedAt      = "createdAt"
	fieldEventType      = "metadata.eventType"
	fieldOriginalMemoID = "metadata.delivery.originalMemoId"
	fieldEventMemoID    = "memoId"
	fieldOperationID    = "operationId"
	fieldOperationType  = "operationType"
	fieldLogMemoID      = "beforeState.memoId"
	fieldPerformedAt    = "performedAt"
)

// Store implements store.Store and store.TxRunner on a MongoDB database.
// Calls made with the context handed to a RunInTx callback join that transaction.
type Store struct {
	client *mongo.Client
	memos  *mongo.Collection
	events *mongo.Collection
	logs   *mongo.Collection

	txTimeout time.Duration
}

type Option func(*Store)

// WithTxTimeout bounds transactions whose caller set no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.TxRunner = (*Store)(nil)
)

func New(db *mongo.Database, opts ...Option) *Store {
	s := &Store{
		client:    db.Client(),
		memos:     db.Collection(memosCollection),
		events:    db.Collection(calendarCollection),
		logs:      db.Collection(rollbackLogsCollection),
		txTimeout: defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateMemo(ctx context.Context, memo *models.Memo) error {
	if _, err := s.memos.InsertOne(ctx, memo); err != nil {
		return fmt.Errorf("insert memo %s: %w", memo.ID, translate(err))
	}
	return nil
}

func (s *Store) UpdateMemo(ctx context.Context, memo *models.Memo) error {
	expected := memo.Version
	memo.Version = expected + 1
	res, err := s.memos.ReplaceOne(ctx, bson.M{fieldID: memo.ID, fieldVersion: expected}, memo)
	if err != nil {
		memo.Version = expected
		return fmt.Errorf("update memo %s: %w", memo.ID, translate(err))
	}
	if res.MatchedCount == 0 {
		memo.Version = expected
		n, err := s.memos.CountDocuments(ctx, bson.M{fieldID: memo.ID})
		if err != nil {
			return fmt.Errorf("update memo %s: %w", memo.ID, translate(err))
		}
		if n == 0 {
			return fmt.Errorf("memo %s: %w", memo.ID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("memo %s version %d is stale: %w", memo.ID, expected, sentinel.ErrConflict)
	}
	return nil
}

func (s *Store) DeleteMemo(ctx context.Context, id string) error {
	res, err := s.memos.DeleteOne(ctx, bson.M{fieldID: id})
	if err != nil {
		return fmt.Errorf("delete memo %s: %w", id, translate(err))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("memo %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) FindMemo(ctx context.Context, id string) (*models.Memo, error) {
	var memo models.Memo
	if err := s.memos.FindOne(ctx, bson.M{fieldID: id}).Decode(&memo); err != nil {
		return nil, fmt.Errorf("memo %s: %w", id, translate(err))
	}
	return &memo, nil
}

func (s *Store) FindDerived(ctx context.Context, filter store.DerivedFilter) ([]*models.Memo, error) {
	q := bson.M{fieldOriginalMemoID: filter.OriginalMemoID}
	if filter.EventType != "" {
		q[fieldEventType] = filter.EventType
	}
	if len(filter.Recipients) > 0 {
		q[fieldRecipients] = bson.M{"$in": filter.Recipients}
	}
	if len(filter.Statuses) > 0 {
		q[fieldStatus] = bson.M{"$in": filter.Statuses}
	}
	opts := options.Find().SetSort(bson.D{{Key: fieldCreatedAt, Value: 1}, {Key: fieldID, Value: 1}})

	cur, err := s.memos.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find derived memos of %s: %w", filter.OriginalMemoID, translate(err))
	}
	var out []*models.Memo
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode derived memos of %s: %w", filter.OriginalMemoID, translate(err))
	}
	return out, nil
}

func (s *Store) CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	if _, err := s.events.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert calendar event %s: %w", event.ID, translate(err))
	}
	return nil
}

func (s *Store) FindCalendarEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	var event models.CalendarEvent
	if err := s.events.FindOne(ctx, bson.M{fieldID: id}).Decode(&event); err != nil {
		return nil, fmt.Errorf("calendar event %s: %w", id, translate(err))
	}
	return &event, nil
}

func (s *Store) DeleteCalendarEvent(ctx context.Context, id string) error {
	res, err := s.events.DeleteOne(ctx, bson.M{fieldID: id})
	if err != nil {
		return fmt.Errorf("delete calendar event %s: %w", id, translate(err))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("calendar event %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error {
	if _, err := s.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert rollback log %s: %w", entry.ID, translate(err))
	}
	return nil
}

func (s *Store) FindRollbackLog(ctx context.Context, id string) (*models.RollbackLogEntry, error) {
	var entry models.RollbackLogEntry
	if err := s.logs.FindOne(ctx, bson.M{fieldID: id}).Decode(&entry); err != nil {
		return nil, fmt.Errorf("rollback log %s: %w", id, translate(err))
	}
	return &entry, nil
}

func (s *Store) UpdateRollbackLog(ctx context.Context, entry *models.RollbackLogEntry) error {
	res, err := s.logs.ReplaceOne(ctx, bson.M{fieldID: entry.ID}, entry)
	if err != nil {
		return fmt.Errorf("update rollback log %s: %w", entry.ID, translate(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("rollback log %s: %w", entry.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) ListRollbackLogs(ctx context.Context, filter store.RollbackLogFilter) ([]*models.RollbackLogEntry, error) {
	q := bson.M{}
	if filter.MemoID != "" {
		q[fieldLogMemoID] = filter.MemoID
	}
	if filter.OperationType != "" {
		q[fieldOperationType] = filter.OperationType
	}
	if filter.Status != "" {
		q[fieldStatus] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: fieldPerformedAt, Value: -1}, {Key: fieldID, Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.logs.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list rollback logs: %w", translate(err))
	}
	var out []*models.RollbackLogEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode rollback logs: %w", translate(err))
	}
	return out, nil
}

// Server signals for a transaction that lost a write race.
const (
	writeConflictCode = 112
	transientTxLabel  = "TransientTransactionError"
)

// translate maps driver errors onto store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return sentinel.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", sentinel.ErrDuplicate, err)
	case isWriteConflict(err):
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	case mongo.IsNetworkError(err) || mongo.IsTimeout(err):
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}

func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(writeConflictCode) || se.HasErrorLabel(transientTxLabel)
	}
	return false
}
