// Package calendar schedules the event attached to an approved memo.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"memoflow/internal/directory"
	"memoflow/internal/memo/models"
	"memoflow/internal/memo/store"
	dErrors "memoflow/pkg/domain-errors"
	platformstrings "memoflow/pkg/platform/strings"
)

const (
	dateLayout    = "2006-01-02"
	timeLayout    = "15:04"
	eventDuration = time.Hour
	endOfDay      = 24*time.Hour - time.Second
)

// Creator builds and persists the calendar event of a memo inside the approval transaction.
type Creator struct {
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
	newID    func() string
}

type Option func(*Creator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Creator) {
		c.logger = logger
	}
}

// WithLocation sets the zone schedule hints are interpreted in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Creator) {
		if loc != nil {
			c.location = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Creator) {
		c.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Creator) {
		c.newID = newID
	}
}

func New(opts ...Option) *Creator {
	c := &Creator{
		logger:   slog.Default(),
		location: time.UTC,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create persists the event for memo and links it on the memo's metadata. The
// caller persists the memo. Any failure, including a malformed schedule, is a
// calendar error and must abort the transaction.
func (c *Creator) Create(ctx context.Context, st store.Store, memo *models.Memo, recipients []directory.User, createdBy string) (*models.CalendarEvent, error) {
	schedule := memo.Metadata.Schedule
	if schedule == nil || schedule.EventDate == "" {
		return nil, dErrors.New(dErrors.CodeCalendarFailed, "memo has no event date")
	}
	start, end, allDay, err := c.window(schedule)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCalendarFailed, "invalid event schedule")
	}

	event := &models.CalendarEvent{
		ID:           c.newID(),
		Title:        memo.Subject,
		Description:  memo.Content,
		Location:     schedule.Location,
		Start:        start,
		End:          end,
		AllDay:       allDay,
		Category:     models.CategoryFor(memo.Priority),
		Participants: participants(memo, recipients),
		MemoID:       memo.ID,
		CreatedBy:    createdBy,
		Status:       models.EventStatusScheduled,
		CreatedAt:    c.now(),
	}
	if err := st.CreateCalendarEvent(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCalendarFailed, "failed to create calendar event")
	}
	memo.Metadata.LinkCalendarEvent(event.ID)

	c.logger.DebugContext(ctx, "calendar event created",
		"memo_id", memo.ID,
		"event_id", event.ID,
		"all_day", allDay,
	)
	return event, nil
}

// window computes the event bounds: one hour from eventTime, or the whole day.
func (c *Creator) window(s *models.Schedule) (start, end time.Time, allDay bool, err error) {
	day, err := time.ParseInLocation(dateLayout, s.EventDate, c.location)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("event date %q: %w", s.EventDate, err)
	}
	if s.EventTime == "" {
		return day, day.Add(endOfDay), true, nil
	}
	clock, err := time.Parse(timeLayout, s.EventTime)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("event time %q: %w", s.EventTime, err)
	}
	start = time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, c.location)
	return start, start.Add(eventDuration), false, nil
}

// participants is the union of recipient emails, recipient departments and memo departments.
func participants(memo *models.Memo, recipients []directory.User) []string {
	emails := make([]string, 0, len(recipients))
	departments := make([]string, 0, len(recipients))
	for _, r := range recipients {
		emails = append(emails, r.Email)
		departments = append(departments, r.Department)
	}
	return platformstrings.Union(platformstrings.DedupeAndTrimLower(emails), departments, memo.Departments)
}
