package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	notificationKeyPrefix = "notify:n:"
	inboxKeyPrefix        = "notify:inbox:"
	pendingKeyPrefix      = "notify:memo:"

	defaultRetention = 30 * 24 * time.Hour
)

// RedisNotifier stores notifications as JSON documents and keeps a per-recipient
// inbox list plus a per-(memo, kind) index of live notifications.
type RedisNotifier struct {
	client    *redis.Client
	retention time.Duration
	now       func() time.Time
	newID     func() string
}

type RedisOption func(*RedisNotifier)

// WithRetention sets how long notifications and indexes live.
func WithRetention(d time.Duration) RedisOption {
	return func(r *RedisNotifier) {
		r.retention = d
	}
}

func WithClock(now func() time.Time) RedisOption {
	return func(r *RedisNotifier) {
		r.now = now
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisNotifier {
	r := &RedisNotifier{
		client:    client,
		retention: defaultRetention,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func inboxKey(recipientID string) string { return inboxKeyPrefix + recipientID }

func pendingKey(memoID string, kind Kind) string {
	return fmt.Sprintf("%s%s:%s", pendingKeyPrefix, memoID, kind)
}

// Notify stores n and indexes it. All keys are written in one MULTI block.
func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	if n.RecipientID == "" {
		return errors.New("notification recipient is required")
	}
	if n.ID == "" {
		n.ID = r.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, notificationKeyPrefix+n.ID, payload, r.retention)
		pipe.LPush(ctx, inboxKey(n.RecipientID), n.ID)
		pipe.Expire(ctx, inboxKey(n.RecipientID), r.retention)
		if n.MemoID != "" {
			pipe.SAdd(ctx, pendingKey(n.MemoID, n.Kind), n.ID)
			pipe.Expire(ctx, pendingKey(n.MemoID, n.Kind), r.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// ArchivePending flags the indexed notifications as archived and drops the index.
func (r *RedisNotifier) ArchivePending(ctx context.Context, memoID string, kind Kind) error {
	key := pendingKey(memoID, kind)
	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("load pending notifications: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = notificationKeyPrefix + id
	}
	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, v := range raw {
			s, ok := v.(string)
			if !ok {
				continue
			}
			var n Notification
			if err := json.Unmarshal([]byte(s), &n); err != nil {
				return fmt.Errorf("decode notification %s: %w", ids[i], err)
			}
			n.Archived = true
			payload, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("marshal notification: %w", err)
			}
			pipe.Set(ctx, keys[i], payload, redis.KeepTTL)
		}
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive notifications: %w", err)
	}
	return nil
}

// Inbox returns up to limit notifications for recipientID, newest first.
// Expired entries are skipped.
func (r *RedisNotifier) Inbox(ctx context.Context, recipientID string, limit int64) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := r.client.LRange(ctx, inboxKey(recipientID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = notificationKeyPrefix + id
	}
	raw, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var n Notification
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
