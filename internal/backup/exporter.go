// Package backup exports delivered memos to the archive topic.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"memoflow/internal/directory"
	"memoflow/internal/memo/models"
)

// DeliveredMemo is a delivery record with its recipient resolved.
type DeliveredMemo struct {
	Memo      *models.Memo
	Recipient directory.User
}

// Exporter is the backup collaborator. It is invoked only after a successful delivery.
type Exporter interface {
	Export(ctx context.Context, delivered DeliveredMemo) error
}

// Producer is the subset of *kgo.Client the exporter needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type KafkaExporter struct {
	producer Producer
	topic    string
	now      func() time.Time
}

func NewKafka(producer Producer, topic string) *KafkaExporter {
	return &KafkaExporter{producer: producer, topic: topic, now: time.Now}
}

type recipientPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type exportPayload struct {
	Memo       *models.Memo     `json:"memo"`
	Recipient  recipientPayload `json:"recipient"`
	ExportedAt time.Time        `json:"exported_at"`
}

// Export writes one record keyed by the workflow memo id, so every copy of a memo lands on one partition.
func (k *KafkaExporter) Export(ctx context.Context, delivered DeliveredMemo) error {
	if delivered.Memo == nil {
		return errors.New("delivered memo is required")
	}
	if delivered.Recipient.ID == "" {
		return errors.New("delivered memo recipient is not resolved")
	}
	value, err := json.Marshal(exportPayload{
		Memo: delivered.Memo,
		Recipient: recipientPayload{
			ID:         delivered.Recipient.ID,
			Name:       delivered.Recipient.Name,
			Email:      delivered.Recipient.Email,
			Department: delivered.Recipient.Department,
		},
		ExportedAt: k.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal delivered memo: %w", err)
	}

	key := delivered.Memo.Metadata.OriginalMemoID()
	if key == "" {
		key = delivered.Memo.ID
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(delivered.Memo.Metadata.EventType)},
			{Key: "delivery_id", Value: []byte(delivered.Memo.ID)},
		},
	}
	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce delivered memo: %w", err)
	}
	return nil
}
