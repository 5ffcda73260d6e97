package calendarsync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoflow/internal/memo/models"
)

func testEvent() *models.CalendarEvent {
	return &models.CalendarEvent{
		ID:           "evt-1",
		Title:        "Faculty seminar",
		MemoID:       "memo-1",
		Start:        time.Date(2026, 11, 2, 14, 0, 0, 0, time.UTC),
		End:          time.Date(2026, 11, 2, 15, 0, 0, 0, time.UTC),
		Participants: []string{"f1@uni.test", "physics"},
		Category:     models.CategoryStandard,
		Status:       models.EventStatusScheduled,
	}
}

func TestPublisher_Sync(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	p := New(client, WithStream("test:sync"))
	ctx := context.Background()

	require.NoError(t, p.Sync(ctx, testEvent(), false))
	require.NoError(t, p.Sync(ctx, testEvent(), true))

	msgs, err := client.XRange(ctx, "test:sync", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, ActionCreate, msgs[0].Values["action"])
	assert.Equal(t, ActionUpdate, msgs[1].Values["action"])
	assert.Equal(t, "memo-1", msgs[0].Values["memo_id"])

	var decoded models.CalendarEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["event"].(string)), &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
	assert.Equal(t, []string{"f1@uni.test", "physics"}, decoded.Participants)
}

func TestPublisher_RejectsNilEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	assert.Error(t, New(client).Sync(context.Background(), nil, false))
}

func TestPublisher_BreakerOpensAfterFailures(t *testing.T) {
	// Nothing listens on this address; every publish fails fast.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	p := New(client, WithBreaker(BreakerSettings{
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
		HalfOpenRequests:    1,
	}))
	ctx := context.Background()

	for range 2 {
		err := p.Sync(ctx, testEvent(), false)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	err := p.Sync(ctx, testEvent(), false)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "open", p.State())
}
