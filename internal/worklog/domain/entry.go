package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/worklog/worklog-backend/pkg/errors"
)

// WorkEntry is one employee's recorded work for a single calendar date.
// At most one exists per (employee, work date); the storage layer enforces
// this with a unique constraint.
type WorkEntry struct {
	ID                  string           `db:"id" json:"id"`
	EmployeeID          string           `db:"employee_id" json:"employee_id"`
	ClientID            *string          `db:"client_id" json:"client_id,omitempty"`
	WorkDate            time.Time        `db:"work_date" json:"work_date"`
	TaskName            string           `db:"task_name" json:"task_name"`
	Description         *string          `db:"description" json:"description,omitempty"`
	TotalHours          decimal.Decimal  `db:"total_hours" json:"total_hours"`
	Status              EntryStatus      `db:"status" json:"status"`
	IsOvertime          bool             `db:"is_overtime" json:"is_overtime"`
	OvertimeHours       decimal.Decimal  `db:"overtime_hours" json:"overtime_hours"`
	AdminComment        *string          `db:"admin_comment" json:"admin_comment,omitempty"`
	ApprovedBy          *string          `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	DeletionReason      *string          `db:"deletion_reason" json:"deletion_reason,omitempty"`
	DeletionRequestedAt *time.Time       `db:"deletion_requested_at" json:"deletion_requested_at,omitempty"`
	PreDeletionStatus   *EntryStatus     `db:"pre_deletion_status" json:"pre_deletion_status,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
	CreatedBy           *string          `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy           *string          `db:"updated_by" json:"updated_by,omitempty"`

	Lines []*WorkEntryLine `db:"-" json:"lines,omitempty"`

	// Joined fields (populated by specific queries)
	EmployeeName *string `db:"employee_name" json:"employee_name,omitempty"`
}

// WorkEntryLine attributes part of an entry's hours and/or a production
// count to a (client, task type) pair. Productive is copied from the task
// type at write time and never changes afterwards.
type WorkEntryLine struct {
	ID          string          `db:"id" json:"id"`
	EntryID     string          `db:"entry_id" json:"entry_id"`
	ClientID    *string         `db:"client_id" json:"client_id,omitempty"`
	TaskTypeID  string          `db:"task_type_id" json:"task_type_id"`
	Title       string          `db:"title" json:"title"`
	Description *string         `db:"description" json:"description,omitempty"`
	Hours       decimal.Decimal `db:"hours" json:"hours"`
	Productive  bool            `db:"productive" json:"productive"`
	Production  decimal.Decimal `db:"production" json:"production"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// SumLineHours returns the total of the given line hours.
func SumLineHours(lines []*WorkEntryLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Hours)
	}
	return total
}

// Submit moves a draft or rejected entry to pending and clears any prior
// admin comment.
func (e *WorkEntry) Submit() error {
	if !e.Status.Submittable() {
		return errors.InvalidState("only draft or rejected entries can be submitted")
	}
	e.Status = StatusPending
	e.AdminComment = nil
	return nil
}

// Approve marks a pending entry approved, recording the approver.
func (e *WorkEntry) Approve(adminID, comment string, now time.Time) error {
	if e.Status != StatusPending {
		return errors.InvalidState("only pending entries can be approved")
	}
	e.Status = StatusApproved
	e.setReview(adminID, comment, now)
	return nil
}

// Reject marks a pending entry rejected. A non-empty comment is mandatory.
func (e *WorkEntry) Reject(adminID, comment string, now time.Time) error {
	if e.Status != StatusPending {
		return errors.InvalidState("only pending entries can be rejected")
	}
	if comment == "" {
		return errors.Validation(map[string]string{"comment": "a rejection comment is required"})
	}
	e.Status = StatusRejected
	e.setReview(adminID, comment, now)
	return nil
}

// RequestDeletion snapshots the current status and parks the entry in
// PENDING_DELETION until an admin decides.
func (e *WorkEntry) RequestDeletion(reason string, now time.Time) error {
	if e.Status == StatusPendingDeletion {
		return errors.InvalidState("a deletion request is already pending for this entry")
	}
	prior := e.Status
	e.PreDeletionStatus = &prior
	e.Status = StatusPendingDeletion
	e.DeletionReason = &reason
	e.DeletionRequestedAt = &now
	return nil
}

// CancelDeletion withdraws a pending deletion request and restores the
// snapshotted status.
func (e *WorkEntry) CancelDeletion() error {
	if e.Status != StatusPendingDeletion {
		return errors.InvalidState("no deletion request is pending for this entry")
	}
	e.restoreStatus()
	return nil
}

// RejectDeletion is an admin refusing a deletion request: the entry is
// restored exactly as a cancellation would, but the decision is recorded.
func (e *WorkEntry) RejectDeletion(adminID, comment string, now time.Time) error {
	if e.Status != StatusPendingDeletion {
		return errors.InvalidState("no deletion request is pending for this entry")
	}
	e.restoreStatus()
	e.setReview(adminID, comment, now)
	return nil
}

// restoreStatus brings the entry back out of PENDING_DELETION and clears
// all deletion-request fields. A missing snapshot restores to Approved.
func (e *WorkEntry) restoreStatus() {
	if e.PreDeletionStatus != nil {
		e.Status = *e.PreDeletionStatus
	} else {
		e.Status = StatusApproved
	}
	e.PreDeletionStatus = nil
	e.DeletionReason = nil
	e.DeletionRequestedAt = nil
}

func (e *WorkEntry) setReview(adminID, comment string, now time.Time) {
	if comment != "" {
		e.AdminComment = &comment
	}
	e.ApprovedBy = &adminID
	e.ApprovedAt = &now
	e.UpdatedBy = &adminID
}

// Employee is a read-only view of the employee directory.
type Employee struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
	Active   bool   `db:"active" json:"active"`
}

// Client is a read-only view of the client directory.
type Client struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// TaskType is a read-only view of the task-type catalog.
type TaskType struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Productive bool   `db:"productive" json:"productive"`
	Active     bool   `db:"active" json:"active"`
}

// Holiday is a calendar fact: a date on which no work is scheduled.
type Holiday struct {
	ID          string    `db:"id" json:"id"`
	HolidayDate time.Time `db:"holiday_date" json:"holiday_date"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsMandatory bool      `db:"is_mandatory" json:"is_mandatory"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WorkingSaturday is a calendar fact: an admin-designated Saturday treated
// as an ordinary working day. At most one exists per calendar month.
type WorkingSaturday struct {
	ID          string    `db:"id" json:"id"`
	WorkDate    time.Time `db:"work_date" json:"work_date"`
	Year        int       `db:"year" json:"year"`
	Month       int       `db:"month" json:"month"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
