// Package calendarsync hands approved calendar events to the external calendar
// reconciler. Events are published to a Redis stream that the reconciler consumes
// per participant; publishing is guarded by a circuit breaker.
package calendarsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"memoflow/internal/memo/models"
)

const (
	DefaultStream = "memoflow:calendar-sync"

	ActionCreate = "create"
	ActionUpdate = "update"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("calendar sync unavailable")

// Syncer is the calendar-sync collaborator.
type Syncer interface {
	Sync(ctx context.Context, event *models.CalendarEvent, isUpdate bool) error
}

// BreakerSettings configures when publishing trips open.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

var defaultBreaker = BreakerSettings{
	ConsecutiveFailures: 5,
	OpenTimeout:         30 * time.Second,
	HalfOpenRequests:    1,
}

type Publisher struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type Option func(*options)

type options struct {
	stream  string
	maxLen  int64
	breaker BreakerSettings
	logger  *slog.Logger
}

func WithStream(name string) Option {
	return func(o *options) {
		o.stream = name
	}
}

// WithMaxLen caps the stream length (approximate trimming).
func WithMaxLen(n int64) Option {
	return func(o *options) {
		o.maxLen = n
	}
}

func WithBreaker(s BreakerSettings) Option {
	return func(o *options) {
		o.breaker = s
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func New(client *redis.Client, opts ...Option) *Publisher {
	o := options{
		stream:  DefaultStream,
		maxLen:  10000,
		breaker: defaultBreaker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Publisher{
		client: client,
		stream: o.stream,
		maxLen: o.maxLen,
		logger: o.logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "calendar-sync",
		MaxRequests: o.breaker.HalfOpenRequests,
		Timeout:     o.breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.breaker.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return p
}

// Sync appends one message describing event to the stream.
func (p *Publisher) Sync(ctx context.Context, event *models.CalendarEvent, isUpdate bool) error {
	if event == nil {
		return errors.New("calendar event is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal calendar event: %w", err)
	}
	action := ActionCreate
	if isUpdate {
		action = ActionUpdate
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: true,
			Values: map[string]any{
				"event_id": event.ID,
				"memo_id":  event.MemoID,
				"action":   action,
				"event":    payload,
			},
		}).Result()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("publish calendar event: %w", err)
	}
	return nil
}

// State reports the breaker state, for health output.
func (p *Publisher) State() string {
	return p.breaker.State().String()
}
