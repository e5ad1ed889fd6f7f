package repository

import (
	"context"
	"time"

	"github.com/worklog/worklog-backend/pkg/database"
)

// LeaveRepository answers existence queries against the leave-request
// records owned by the leave module. Read-only from here.
type LeaveRepository struct {
	db *database.DB
}

// NewLeaveRepository creates a new leave repository.
func NewLeaveRepository(db *database.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// HasApprovedLeave reports whether an approved leave covers the employee
// on the given date.
func (r *LeaveRepository) HasApprovedLeave(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	var exists bool

	query := `
		SELECT EXISTS(
			SELECT 1 FROM leave_requests
			WHERE employee_id = $1
			  AND status = 'APPROVED'
			  AND from_date <= $2
			  AND to_date >= $2
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, employeeID, date); err != nil {
		return false, err
	}

	return exists, nil
}
