package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/database"
	"github.com/worklog/worklog-backend/pkg/errors"
)

// CalendarRepository handles the two calendar fact sets: holidays and
// designated working Saturdays. It implements calendar.Source.
type CalendarRepository struct {
	db *database.DB
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *database.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// IsHoliday reports whether the given date is a declared holiday.
func (r *CalendarRepository) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM holidays WHERE holiday_date = $1)`
	if err := r.db.GetContext(ctx, &exists, query, date); err != nil {
		return false, err
	}

	return exists, nil
}

// IsWorkingSaturday reports whether the given date is a designated
// working Saturday.
func (r *CalendarRepository) IsWorkingSaturday(ctx context.Context, date time.Time) (bool, error) {
	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM working_saturdays WHERE work_date = $1)`
	if err := r.db.GetContext(ctx, &exists, query, date); err != nil {
		return false, err
	}

	return exists, nil
}

// CreateHoliday declares a holiday. A duplicate date is a conflict.
func (r *CalendarRepository) CreateHoliday(ctx context.Context, h *domain.Holiday) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}

	query := `
		INSERT INTO holidays (id, holiday_date, name, description, is_mandatory, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		h.ID, h.HolidayDate, h.Name, h.Description, h.IsMandatory, h.CreatedBy,
	).Scan(&h.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// ListHolidays gets all holidays within a calendar year, ordered by date.
func (r *CalendarRepository) ListHolidays(ctx context.Context, year int) ([]*domain.Holiday, error) {
	var holidays []*domain.Holiday

	query := `
		SELECT id, holiday_date, name, description, is_mandatory, created_by, created_at
		FROM holidays
		WHERE EXTRACT(YEAR FROM holiday_date) = $1
		ORDER BY holiday_date
	`
	if err := r.db.SelectContext(ctx, &holidays, query, year); err != nil {
		return nil, err
	}

	return holidays, nil
}

// DeleteHoliday removes a declared holiday.
func (r *CalendarRepository) DeleteHoliday(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("holiday")
	}

	return nil
}

// CreateWorkingSaturday designates a Saturday as a working day. Both the
// date and the (year, month) pair are unique; either collision is a
// conflict.
func (r *CalendarRepository) CreateWorkingSaturday(ctx context.Context, ws *domain.WorkingSaturday) error {
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}

	query := `
		INSERT INTO working_saturdays (id, work_date, year, month, description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		ws.ID, ws.WorkDate, ws.Year, ws.Month, ws.Description, ws.CreatedBy,
	).Scan(&ws.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	return nil
}

// ListWorkingSaturdays gets all designated Saturdays within a year.
func (r *CalendarRepository) ListWorkingSaturdays(ctx context.Context, year int) ([]*domain.WorkingSaturday, error) {
	var saturdays []*domain.WorkingSaturday

	query := `
		SELECT id, work_date, year, month, description, created_by, created_at
		FROM working_saturdays
		WHERE year = $1
		ORDER BY work_date
	`
	if err := r.db.SelectContext(ctx, &saturdays, query, year); err != nil {
		return nil, err
	}

	return saturdays, nil
}

// DeleteWorkingSaturday removes a designation.
func (r *CalendarRepository) DeleteWorkingSaturday(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM working_saturdays WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("working saturday")
	}

	return nil
}
