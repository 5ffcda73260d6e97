package models

import "time"

// OperationType names the committed operation a rollback log entry can compensate.
type OperationType string

const (
	OpMemoApproval          OperationType = "memo_approval"
	OpMemoRejection         OperationType = "memo_rejection"
	OpMemoDeletion          OperationType = "memo_deletion"
	OpUserDeletion          OperationType = "user_deletion"
	OpCalendarEventCreation OperationType = "calendar_event_creation"
)

func (o OperationType) IsValid() bool {
	switch o {
	case OpMemoApproval, OpMemoRejection, OpMemoDeletion, OpUserDeletion, OpCalendarEventCreation:
		return true
	}
	return false
}

type LogStatus string

const (
	LogStatusCompleted  LogStatus = "completed"
	LogStatusRolledBack LogStatus = "rolled_back"
)

// BeforeState is the snapshot of the workflow memo prior to the operation.
type BeforeState struct {
	MemoID string `json:"memo_id" bson:"memoId"`
	Status Status `json:"status" bson:"status"`
	Folder Folder `json:"folder" bson:"folder"`
}

// AfterState names the memo's resulting state and every artifact the operation created.
type AfterState struct {
	MemoID           string   `json:"memo_id" bson:"memoId"`
	Status           Status   `json:"status" bson:"status"`
	Folder           Folder   `json:"folder" bson:"folder"`
	DeliveryIDs      []string `json:"delivery_ids,omitempty" bson:"deliveryIds,omitempty"`
	CalendarEventIDs []string `json:"calendar_event_ids,omitempty" bson:"calendarEventIds,omitempty"`
	ReceiptIDs       []string `json:"receipt_ids,omitempty" bson:"receiptIds,omitempty"`
}

// RollbackLogEntry records one committed operation and, at most once, its compensation.
type RollbackLogEntry struct {
	ID             string        `json:"id" bson:"_id"`
	OperationID    string        `json:"operation_id" bson:"operationId"`
	OperationType  OperationType `json:"operation_type" bson:"operationType"`
	Before         BeforeState   `json:"before_state" bson:"beforeState"`
	After          AfterState    `json:"after_state" bson:"afterState"`
	PerformedBy    string        `json:"performed_by" bson:"performedBy"`
	PerformedAt    time.Time     `json:"performed_at" bson:"performedAt"`
	Status         LogStatus     `json:"status" bson:"status"`
	RolledBackBy   string        `json:"rolled_back_by,omitempty" bson:"rolledBackBy,omitempty"`
	RolledBackAt   *time.Time    `json:"rolled_back_at,omitempty" bson:"rolledBackAt,omitempty"`
	RollbackReason string        `json:"rollback_reason,omitempty" bson:"rollbackReason,omitempty"`
}

func (e *RollbackLogEntry) IsRolledBack() bool {
	return e.Status == LogStatusRolledBack
}

// ApplyRollback marks the entry as compensated.
func (e *RollbackLogEntry) ApplyRollback(actor, reason string, now time.Time) {
	e.Status = LogStatusRolledBack
	e.RolledBackBy = actor
	e.RolledBackAt = &now
	e.RollbackReason = reason
}
