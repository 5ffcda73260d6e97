package models

import (
	"fmt"
)

// EventType discriminates the Metadata variants.
type EventType string

const (
	EventSubmitted       EventType = "memo_submitted"
	EventDelivered       EventType = "memo_delivered"
	EventApprovedByAdmin EventType = "memo_approved_by_admin"
	EventRejectedByAdmin EventType = "memo_rejected_by_admin"
)

// Schedule carries the event-scheduling hints a secretary attaches to a submission.
// EventDate is "YYYY-MM-DD"; EventTime, when set, is "HH:MM".
type Schedule struct {
	EventDate string `json:"event_date" bson:"eventDate"`
	EventTime string `json:"event_time,omitempty" bson:"eventTime,omitempty"`
	Location  string `json:"location,omitempty" bson:"location,omitempty"`
}

// CalendarLink is the memo side of the memo<->event link.
type CalendarLink struct {
	CalendarEventID  string `json:"calendar_event_id" bson:"calendarEventId"`
	HasCalendarEvent bool   `json:"has_calendar_event" bson:"hasCalendarEvent"`
}

// DeliveryLink points a derived document back at the workflow memo that spawned it.
type DeliveryLink struct {
	OriginalMemoID string `json:"original_memo_id" bson:"originalMemoId"`
}

type Rejection struct {
	Reason string `json:"reason" bson:"reason"`
}

// Metadata is keyed by EventType; each variant owns a fixed set of blocks:
//
//	memo_submitted          Schedule?, Calendar?
//	memo_delivered          Delivery
//	memo_approved_by_admin  Delivery, DeliveredCount
//	memo_rejected_by_admin  Delivery, Rejection
//
// Use the constructors below rather than filling blocks by hand.
type Metadata struct {
	EventType      EventType     `json:"event_type" bson:"eventType"`
	Schedule       *Schedule     `json:"schedule,omitempty" bson:"schedule,omitempty"`
	Calendar       *CalendarLink `json:"calendar,omitempty" bson:"calendar,omitempty"`
	Delivery       *DeliveryLink `json:"delivery,omitempty" bson:"delivery,omitempty"`
	Rejection      *Rejection    `json:"rejection,omitempty" bson:"rejection,omitempty"`
	DeliveredCount int           `json:"delivered_count,omitempty" bson:"deliveredCount,omitempty"`
}

func SubmittedMetadata(schedule *Schedule) Metadata {
	return Metadata{EventType: EventSubmitted, Schedule: schedule}
}

func DeliveredMetadata(originalMemoID string) Metadata {
	return Metadata{EventType: EventDelivered, Delivery: &DeliveryLink{OriginalMemoID: originalMemoID}}
}

func ApprovalReceiptMetadata(originalMemoID string, delivered int) Metadata {
	return Metadata{
		EventType:      EventApprovedByAdmin,
		Delivery:       &DeliveryLink{OriginalMemoID: originalMemoID},
		DeliveredCount: delivered,
	}
}

func RejectionReceiptMetadata(originalMemoID, reason string) Metadata {
	return Metadata{
		EventType: EventRejectedByAdmin,
		Delivery:  &DeliveryLink{OriginalMemoID: originalMemoID},
		Rejection: &Rejection{Reason: reason},
	}
}

// OriginalMemoID returns the back-reference of a derived document, or "".
func (md Metadata) OriginalMemoID() string {
	if md.Delivery == nil {
		return ""
	}
	return md.Delivery.OriginalMemoID
}

// EventDate returns the scheduling hint, or "" when the memo schedules nothing.
func (md Metadata) EventDate() string {
	if md.Schedule == nil {
		return ""
	}
	return md.Schedule.EventDate
}

// CalendarEventID returns the linked event id, or "".
func (md Metadata) CalendarEventID() string {
	if md.Calendar == nil {
		return ""
	}
	return md.Calendar.CalendarEventID
}

// LinkCalendarEvent records the memo side of the calendar link.
func (md *Metadata) LinkCalendarEvent(eventID string) {
	md.Calendar = &CalendarLink{CalendarEventID: eventID, HasCalendarEvent: true}
}

// UnlinkCalendarEvent clears the calendar link.
func (md *Metadata) UnlinkCalendarEvent() {
	md.Calendar = nil
}

// Validate checks that only the blocks owned by EventType are populated.
func (md Metadata) Validate() error {
	switch md.EventType {
	case EventSubmitted:
		if md.Delivery != nil || md.Rejection != nil || md.DeliveredCount != 0 {
			return fmt.Errorf("%s metadata carries delivery fields", md.EventType)
		}
	case EventDelivered:
		if md.Delivery == nil || md.Delivery.OriginalMemoID == "" {
			return fmt.Errorf("%s metadata requires originalMemoId", md.EventType)
		}
		if md.Schedule != nil || md.Calendar != nil || md.Rejection != nil {
			return fmt.Errorf("%s metadata carries workflow fields", md.EventType)
		}
	case EventApprovedByAdmin:
		if md.Delivery == nil || md.Delivery.OriginalMemoID == "" {
			return fmt.Errorf("%s metadata requires originalMemoId", md.EventType)
		}
		if md.Rejection != nil {
			return fmt.Errorf("%s metadata carries a rejection", md.EventType)
		}
	case EventRejectedByAdmin:
		if md.Delivery == nil || md.Delivery.OriginalMemoID == "" {
			return fmt.Errorf("%s metadata requires originalMemoId", md.EventType)
		}
		if md.Rejection == nil {
			return fmt.Errorf("%s metadata requires a rejection", md.EventType)
		}
	default:
		return fmt.Errorf("unknown metadata event type %q", md.EventType)
	}
	return nil
}

// Clone deep-copies the optional blocks.
func (md Metadata) Clone() Metadata {
	c := md
	if md.Schedule != nil {
		s := *md.Schedule
		c.Schedule = &s
	}
	if md.Calendar != nil {
		l := *md.Calendar
		c.Calendar = &l
	}
	if md.Delivery != nil {
		d := *md.Delivery
		c.Delivery = &d
	}
	if md.Rejection != nil {
		r := *md.Rejection
		c.Rejection = &r
	}
	return c
}
