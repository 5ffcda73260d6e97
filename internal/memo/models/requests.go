package models

import (
	"strings"

	dErrors "memoflow/pkg/domain-errors"
	platformstrings "memoflow/pkg/platform/strings"
)

// SubmitRequest is the secretary's draft payload.
type SubmitRequest struct {
	Subject     string       `json:"subject"`
	Content     string       `json:"content"`
	Recipients  []string     `json:"recipients"`
	Departments []string     `json:"departments"`
	Priority    Priority     `json:"priority"`
	Attachments []Attachment `json:"attachments"`
	Schedule    *Schedule    `json:"schedule,omitempty"`
}

// Normalize trims free text and deduplicates the audience sets.
func (r *SubmitRequest) Normalize() {
	r.Subject = strings.TrimSpace(r.Subject)
	r.Recipients = platformstrings.DedupeAndTrim(r.Recipients)
	r.Departments = platformstrings.DedupeAndTrim(r.Departments)
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	for i := range r.Attachments {
		if r.Attachments[i].Size == 0 {
			r.Attachments[i].Size = int64(len(r.Attachments[i].Data))
		}
	}
	if r.Schedule != nil {
		r.Schedule.EventDate = strings.TrimSpace(r.Schedule.EventDate)
		r.Schedule.EventTime = strings.TrimSpace(r.Schedule.EventTime)
		if r.Schedule.EventDate == "" && r.Schedule.EventTime == "" && r.Schedule.Location == "" {
			r.Schedule = nil
		}
	}
}

// Validate rejects malformed submissions before any write happens.
// Schedule values are not parsed here; an unparseable date fails at approval time.
func (r *SubmitRequest) Validate() error {
	if r.Subject == "" {
		return dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	if !r.Priority.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid priority: "+string(r.Priority))
	}
	if len(r.Recipients) == 0 && len(r.Departments) == 0 {
		return dErrors.New(dErrors.CodeValidation, "recipients or departments are required")
	}
	for _, a := range r.Attachments {
		if strings.TrimSpace(a.Filename) == "" {
			return dErrors.New(dErrors.CodeValidation, "attachment filename is required")
		}
		if a.Size != 0 && a.Size != int64(len(a.Data)) {
			return dErrors.New(dErrors.CodeValidation, "attachment size does not match payload: "+a.Filename)
		}
	}
	return nil
}

// RejectRequest carries the admin's reason for a rejection.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RollbackRequest carries the operator's reason for a compensation.
type RollbackRequest struct {
	Reason string `json:"reason"`
}
