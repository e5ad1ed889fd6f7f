package service

import (
	"context"
	"time"

	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/pkg/logger"
)

// CalendarStore is the persistence surface for calendar administration.
// *repository.CalendarRepository implements it.
type CalendarStore interface {
	CreateHoliday(ctx context.Context, h *domain.Holiday) error
	ListHolidays(ctx context.Context, year int) ([]*domain.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
	CreateWorkingSaturday(ctx context.Context, ws *domain.WorkingSaturday) error
	ListWorkingSaturdays(ctx context.Context, year int) ([]*domain.WorkingSaturday, error)
	DeleteWorkingSaturday(ctx context.Context, id string) error
}

// CreateHolidayRequest declares a holiday date.
type CreateHolidayRequest struct {
	HolidayDate string  `json:"holiday_date" validate:"required,datetime=2006-01-02"`
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsMandatory bool    `json:"is_mandatory"`
}

// CreateWorkingSaturdayRequest designates a Saturday as a working day.
type CreateWorkingSaturdayRequest struct {
	WorkDate    string  `json:"work_date" validate:"required,datetime=2006-01-02"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// CalendarService manages the admin-maintained calendar facts that drive
// day classification: holidays and designated working Saturdays.
type CalendarService struct {
	store  CalendarStore
	logger *logger.Logger
}

// NewCalendarService creates a new calendar service.
func NewCalendarService(store CalendarStore, log *logger.Logger) *CalendarService {
	return &CalendarService{store: store, logger: log}
}

// CreateHoliday declares a holiday. Duplicate dates surface as conflicts
// from the storage layer.
func (s *CalendarService) CreateHoliday(ctx context.Context, adminID string, req CreateHolidayRequest) (*domain.Holiday, error) {
	date, err := parseWorkDate(req.HolidayDate)
	if err != nil {
		return nil, err
	}

	holiday := &domain.Holiday{
		HolidayDate: date,
		Name:        req.Name,
		Description: req.Description,
		IsMandatory: req.IsMandatory,
		CreatedBy:   adminID,
	}

	if err := s.store.CreateHoliday(ctx, holiday); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("holiday_id", holiday.ID).
		Str("date", req.HolidayDate).
		Str("admin_id", adminID).
		Msg("holiday created")

	return holiday, nil
}

// ListHolidays lists the holidays of one year.
func (s *CalendarService) ListHolidays(ctx context.Context, year int) ([]*domain.Holiday, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	return s.store.ListHolidays(ctx, year)
}

// DeleteHoliday removes a holiday declaration.
func (s *CalendarService) DeleteHoliday(ctx context.Context, adminID, id string) error {
	if err := s.store.DeleteHoliday(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("holiday_id", id).Str("admin_id", adminID).Msg("holiday deleted")
	return nil
}

// CreateWorkingSaturday designates a Saturday as working. The date must
// actually fall on a Saturday; one designation per month is enforced by
// the storage layer.
func (s *CalendarService) CreateWorkingSaturday(ctx context.Context, adminID string, req CreateWorkingSaturdayRequest) (*domain.WorkingSaturday, error) {
	date, err := parseWorkDate(req.WorkDate)
	if err != nil {
		return nil, err
	}
	if date.Weekday() != time.Saturday {
		return nil, errors.Validation(map[string]string{
			"work_date": "must fall on a Saturday",
		})
	}

	ws := &domain.WorkingSaturday{
		WorkDate:    date,
		Year:        date.Year(),
		Month:       int(date.Month()),
		Description: req.Description,
		CreatedBy:   adminID,
	}

	if err := s.store.CreateWorkingSaturday(ctx, ws); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("working_saturday_id", ws.ID).
		Str("date", req.WorkDate).
		Str("admin_id", adminID).
		Msg("working saturday designated")

	return ws, nil
}

// ListWorkingSaturdays lists the designated Saturdays of one year.
func (s *CalendarService) ListWorkingSaturdays(ctx context.Context, year int) ([]*domain.WorkingSaturday, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	return s.store.ListWorkingSaturdays(ctx, year)
}

// DeleteWorkingSaturday removes a working Saturday designation.
func (s *CalendarService) DeleteWorkingSaturday(ctx context.Context, adminID, id string) error {
	if err := s.store.DeleteWorkingSaturday(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("working_saturday_id", id).Str("admin_id", adminID).Msg("working saturday removed")
	return nil
}

func validateYear(year int) error {
	if year < 2000 || year > 2100 {
		return errors.Validation(map[string]string{"year": "must be between 2000 and 2100"})
	}
	return nil
}
