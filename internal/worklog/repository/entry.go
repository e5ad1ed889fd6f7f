package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/database"
	"github.com/worklog/worklog-backend/pkg/errors"
)

// EntryListParams holds filters for listing work entries.
type EntryListParams struct {
	EmployeeID *string
	From       *time.Time
	To         *time.Time
	Status     *domain.EntryStatus
	ClientID   *string
	Limit      int
	Offset     int
}

// EntryRepository handles work entry persistence.
type EntryRepository struct {
	db *database.DB
}

// NewEntryRepository creates a new work entry repository.
func NewEntryRepository(db *database.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

const insertEntrySQL = `
	INSERT INTO work_entries (
		id, employee_id, client_id, work_date, task_name, description,
		total_hours, status, is_overtime, overtime_hours, created_by, updated_by
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING created_at, updated_at
`

const insertLineSQL = `
	INSERT INTO work_entry_lines (
		id, entry_id, client_id, task_type_id, title, description,
		hours, productive, production
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Create persists a work entry together with its lines in one transaction.
// A lost race on the (employee_id, work_date) unique constraint surfaces
// as a conflict error.
func (r *EntryRepository) Create(ctx context.Context, entry *domain.WorkEntry) error {
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return insertEntryTx(ctx, tx, entry)
	})
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// CreateBatch persists many work entries (with lines) in a single
// transaction: either every entry is written or none are.
func (r *EntryRepository) CreateBatch(ctx context.Context, entries []*domain.WorkEntry) error {
	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, entry := range entries {
			if err := insertEntryTx(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

func insertEntryTx(ctx context.Context, tx *sqlx.Tx, entry *domain.WorkEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	err := tx.QueryRowxContext(ctx, insertEntrySQL,
		entry.ID, entry.EmployeeID, entry.ClientID, entry.WorkDate, entry.TaskName, entry.Description,
		entry.TotalHours, entry.Status, entry.IsOvertime, entry.OvertimeHours, entry.CreatedBy, entry.UpdatedBy,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return err
	}

	for _, line := range entry.Lines {
		if line.ID == "" {
			line.ID = uuid.New().String()
		}
		line.EntryID = entry.ID

		_, err := tx.ExecContext(ctx, insertLineSQL,
			line.ID, line.EntryID, line.ClientID, line.TaskTypeID, line.Title, line.Description,
			line.Hours, line.Productive, line.Production,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID gets a work entry with its lines.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.WorkEntry, error) {
	var entry domain.WorkEntry

	query := `
		SELECT we.id, we.employee_id, we.client_id, we.work_date, we.task_name, we.description,
		       we.total_hours, we.status, we.is_overtime, we.overtime_hours, we.admin_comment,
		       we.approved_by, we.approved_at, we.deletion_reason, we.deletion_requested_at,
		       we.pre_deletion_status, we.created_at, we.updated_at, we.created_by, we.updated_by,
		       e.full_name AS employee_name
		FROM work_entries we
		LEFT JOIN employees e ON we.employee_id = e.id
		WHERE we.id = $1
	`
	err := r.db.GetContext(ctx, &entry, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("work entry")
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

// GetByEmployeeAndDate gets the entry for an employee on a specific date.
// No entry is not an error.
func (r *EntryRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*domain.WorkEntry, error) {
	var entry domain.WorkEntry

	query := `
		SELECT id, employee_id, client_id, work_date, task_name, description,
		       total_hours, status, is_overtime, overtime_hours, admin_comment,
		       approved_by, approved_at, deletion_reason, deletion_requested_at,
		       pre_deletion_status, created_at, updated_at, created_by, updated_by
		FROM work_entries
		WHERE employee_id = $1 AND work_date = $2
	`
	err := r.db.GetContext(ctx, &entry, query, employeeID, date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *EntryRepository) loadLines(ctx context.Context, entry *domain.WorkEntry) error {
	query := `
		SELECT id, entry_id, client_id, task_type_id, title, description,
		       hours, productive, production, created_at, updated_at
		FROM work_entry_lines
		WHERE entry_id = $1
		ORDER BY created_at, id
	`
	return r.db.SelectContext(ctx, &entry.Lines, query, entry.ID)
}

// Update persists the mutable parent fields of a work entry. Lines are
// untouched; use ReplaceLines when they change.
func (r *EntryRepository) Update(ctx context.Context, entry *domain.WorkEntry) error {
	result, err := r.db.ExecContext(ctx, updateEntrySQL,
		entry.ID, entry.ClientID, entry.TaskName, entry.Description,
		entry.TotalHours, entry.Status, entry.IsOvertime, entry.OvertimeHours,
		entry.AdminComment, entry.ApprovedBy, entry.ApprovedAt,
		entry.DeletionReason, entry.DeletionRequestedAt, entry.PreDeletionStatus,
		entry.UpdatedBy,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("work entry")
	}

	return nil
}

const updateEntrySQL = `
	UPDATE work_entries SET
		client_id = $2, task_name = $3, description = $4,
		total_hours = $5, status = $6, is_overtime = $7, overtime_hours = $8,
		admin_comment = $9, approved_by = $10, approved_at = $11,
		deletion_reason = $12, deletion_requested_at = $13, pre_deletion_status = $14,
		updated_by = $15, updated_at = NOW()
	WHERE id = $1
`

// ReplaceLines updates the parent and swaps every line in one transaction.
func (r *EntryRepository) ReplaceLines(ctx context.Context, entry *domain.WorkEntry) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, updateEntrySQL,
			entry.ID, entry.ClientID, entry.TaskName, entry.Description,
			entry.TotalHours, entry.Status, entry.IsOvertime, entry.OvertimeHours,
			entry.AdminComment, entry.ApprovedBy, entry.ApprovedAt,
			entry.DeletionReason, entry.DeletionRequestedAt, entry.PreDeletionStatus,
			entry.UpdatedBy,
		)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("work entry")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM work_entry_lines WHERE entry_id = $1`, entry.ID); err != nil {
			return err
		}

		for _, line := range entry.Lines {
			if line.ID == "" {
				line.ID = uuid.New().String()
			}
			line.EntryID = entry.ID

			_, err := tx.ExecContext(ctx, insertLineSQL,
				line.ID, line.EntryID, line.ClientID, line.TaskTypeID, line.Title, line.Description,
				line.Hours, line.Productive, line.Production,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete hard-deletes a work entry. Lines go with it via ON DELETE CASCADE.
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM work_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("work entry")
	}

	return nil
}

// List gets work entries matching the given filters, newest first.
func (r *EntryRepository) List(ctx context.Context, params EntryListParams) ([]*domain.WorkEntry, error) {
	query := `
		SELECT we.id, we.employee_id, we.client_id, we.work_date, we.task_name, we.description,
		       we.total_hours, we.status, we.is_overtime, we.overtime_hours, we.admin_comment,
		       we.approved_by, we.approved_at, we.deletion_reason, we.deletion_requested_at,
		       we.pre_deletion_status, we.created_at, we.updated_at, we.created_by, we.updated_by,
		       e.full_name AS employee_name
		FROM work_entries we
		LEFT JOIN employees e ON we.employee_id = e.id
		WHERE 1=1
	`
	args := []interface{}{}
	idx := 1

	add := func(clause string, value interface{}) {
		query += fmt.Sprintf(" AND %s$%d", clause, idx)
		args = append(args, value)
		idx++
	}

	if params.EmployeeID != nil {
		add("we.employee_id = ", *params.EmployeeID)
	}
	if params.From != nil {
		add("we.work_date >= ", *params.From)
	}
	if params.To != nil {
		add("we.work_date <= ", *params.To)
	}
	if params.Status != nil {
		add("we.status = ", *params.Status)
	}
	if params.ClientID != nil {
		add("we.client_id = ", *params.ClientID)
	}

	query += " ORDER BY we.work_date DESC, we.created_at DESC"

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, params.Offset)

	var entries []*domain.WorkEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}

	return entries, nil
}

// LineExists reports whether a persisted line already matches the given
// duplicate key: (employee, date, client, task type, production).
func (r *EntryRepository) LineExists(ctx context.Context, employeeID string, date time.Time, clientID *string, taskTypeID string, production decimal.Decimal) (bool, error) {
	var exists bool

	query := `
		SELECT EXISTS(
			SELECT 1
			FROM work_entry_lines wel
			JOIN work_entries we ON wel.entry_id = we.id
			WHERE we.employee_id = $1
			  AND we.work_date = $2
			  AND wel.client_id IS NOT DISTINCT FROM $3
			  AND wel.task_type_id = $4
			  AND wel.production = $5
		)
	`
	err := r.db.GetContext(ctx, &exists, query, employeeID, date, clientID, taskTypeID, production)
	if err != nil {
		return false, err
	}

	return exists, nil
}
