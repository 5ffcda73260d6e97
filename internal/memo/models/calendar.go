package models

import "time"

// Category is the calendar category derived from memo priority.
type Category string

const (
	CategoryUrgent   Category = "urgent"
	CategoryHigh     Category = "high"
	CategoryStandard Category = "standard"
	CategoryLow      Category = "low"
)

// CategoryFor maps a memo priority onto its calendar category.
func CategoryFor(p Priority) Category {
	switch p {
	case PriorityUrgent:
		return CategoryUrgent
	case PriorityHigh:
		return CategoryHigh
	case PriorityLow:
		return CategoryLow
	default:
		return CategoryStandard
	}
}

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCancelled EventStatus = "cancelled"
)

// CalendarEvent is the scheduling artifact of an approved memo.
// MemoID and the memo's calendar link always point at each other.
type CalendarEvent struct {
	ID           string      `json:"id" bson:"_id"`
	Title        string      `json:"title" bson:"title"`
	Description  string      `json:"description,omitempty" bson:"description,omitempty"`
	Location     string      `json:"location,omitempty" bson:"location,omitempty"`
	Start        time.Time   `json:"start" bson:"start"`
	End          time.Time   `json:"end" bson:"end"`
	AllDay       bool        `json:"all_day" bson:"allDay"`
	Category     Category    `json:"category" bson:"category"`
	Participants []string    `json:"participants" bson:"participants"`
	MemoID       string      `json:"memo_id" bson:"memoId"`
	CreatedBy    string      `json:"created_by" bson:"createdBy"`
	Status       EventStatus `json:"status" bson:"status"`
	CreatedAt    time.Time   `json:"created_at" bson:"createdAt"`
}
