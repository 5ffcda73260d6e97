package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"memoflow/internal/memo/models"
)

// liveDeliveryStatuses are the statuses covered by the delivery uniqueness
// index. Soft-deleted copies fall outside it so a recipient can be redelivered.
var liveDeliveryStatuses = []models.Status{
	models.StatusSent,
	models.StatusApproved,
	models.StatusRead,
	models.StatusArchived,
}

// EnsureIndexes creates the indexes the workflow relies on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	memoIndexes := []mongo.IndexModel{
		{
			// one live delivery per (originalMemoId, recipient)
			Keys: bson.D{{Key: fieldOriginalMemoID, Value: 1}, {Key: fieldRecipients, Value: 1}},
			Options: options.Index().
				SetName("uniq_live_delivery").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					fieldEventType: models.EventDelivered,
					fieldStatus:    bson.M{"$in": liveDeliveryStatuses},
				}),
		},
		{
			Keys:    bson.D{{Key: fieldOriginalMemoID, Value: 1}, {Key: fieldEventType, Value: 1}, {Key: fieldStatus, Value: 1}},
			Options: options.Index().SetName("derived_lookup"),
		},
	}
	if _, err := s.memos.Indexes().CreateMany(ctx, memoIndexes); err != nil {
		return fmt.Errorf("create memo indexes: %w", err)
	}

	eventIndexes := []mongo.IndexModel{{
		Keys:    bson.D{{Key: fieldEventMemoID, Value: 1}},
		Options: options.Index().SetName("uniq_event_memo").SetUnique(true),
	}}
	if _, err := s.events.Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return fmt.Errorf("create calendar event indexes: %w", err)
	}

	logIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: fieldOperationID, Value: 1}},
			Options: options.Index().SetName("uniq_operation").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: fieldLogMemoID, Value: 1}, {Key: fieldPerformedAt, Value: -1}},
			Options: options.Index().SetName("memo_performed_at"),
		},
	}
	if _, err := s.logs.Indexes().CreateMany(ctx, logIndexes); err != nil {
		return fmt.Errorf("create rollback log indexes: %w", err)
	}
	return nil
}
