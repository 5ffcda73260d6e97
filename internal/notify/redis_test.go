package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(t *testing.T) (*RedisNotifier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return NewRedis(client, WithClock(func() time.Time { return fixed })), mr
}

func TestRedisNotifier_NotifyAndInbox(t *testing.T) {
	n, _ := newTestNotifier(t)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, Notification{RecipientID: "s-1", Subject: "first", Kind: KindSubmitted, MemoID: "m-1"}))
	require.NoError(t, n.Notify(ctx, Notification{RecipientID: "s-1", Subject: "second", Kind: KindApproved, MemoID: "m-1"}))

	inbox, err := n.Inbox(ctx, "s-1", 10)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "second", inbox[0].Subject, "newest first")
	assert.NotEmpty(t, inbox[0].ID)
	assert.False(t, inbox[0].CreatedAt.IsZero())

	empty, err := n.Inbox(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisNotifier_RequiresRecipient(t *testing.T) {
	n, _ := newTestNotifier(t)
	assert.Error(t, n.Notify(context.Background(), Notification{Subject: "orphan"}))
}

func TestRedisNotifier_ArchivePending(t *testing.T) {
	n, mr := newTestNotifier(t)
	ctx := context.Background()

	for _, admin := range []string{"a-1", "a-2"} {
		require.NoError(t, n.Notify(ctx, Notification{RecipientID: admin, Kind: KindPendingApproval, MemoID: "m-1"}))
	}
	require.NoError(t, n.Notify(ctx, Notification{RecipientID: "a-1", Kind: KindPendingApproval, MemoID: "m-2"}))

	require.NoError(t, n.ArchivePending(ctx, "m-1", KindPendingApproval))

	inbox, err := n.Inbox(ctx, "a-1", 10)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	for _, item := range inbox {
		assert.Equal(t, item.MemoID == "m-1", item.Archived, "memo %s", item.MemoID)
	}
	assert.False(t, mr.Exists(pendingKey("m-1", KindPendingApproval)))
	assert.True(t, mr.Exists(pendingKey("m-2", KindPendingApproval)))

	t.Run("archiving twice is a no-op", func(t *testing.T) {
		assert.NoError(t, n.ArchivePending(ctx, "m-1", KindPendingApproval))
	})
}

func TestRedisNotifier_Retention(t *testing.T) {
	n, mr := newTestNotifier(t)
	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, Notification{RecipientID: "f-1", Kind: KindApproved}))

	mr.FastForward(defaultRetention + time.Second)

	inbox, err := n.Inbox(ctx, "f-1", 10)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}
