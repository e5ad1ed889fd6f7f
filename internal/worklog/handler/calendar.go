package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/worklog/worklog-backend/internal/worklog/service"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/pkg/httputil"
	"github.com/worklog/worklog-backend/pkg/logger"
)

// CalendarHandler handles the admin calendar endpoints.
type CalendarHandler struct {
	service *service.CalendarService
	logger  *logger.Logger
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(svc *service.CalendarService, log *logger.Logger) *CalendarHandler {
	return &CalendarHandler{service: svc, logger: log}
}

// CreateHoliday declares a holiday
// POST /admin/holidays
func (h *CalendarHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req service.CreateHolidayRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	holiday, err := h.service.CreateHoliday(r.Context(), httputil.GetUserID(r.Context()), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, holiday)
}

// ListHolidays lists the holidays of a year (current year by default)
// GET /admin/holidays?year=
func (h *CalendarHandler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	holidays, err := h.service.ListHolidays(r.Context(), year)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, holidays)
}

// DeleteHoliday removes a holiday declaration
// DELETE /admin/holidays/{id}
func (h *CalendarHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteHoliday(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// CreateWorkingSaturday designates a Saturday as a working day
// POST /admin/working-saturdays
func (h *CalendarHandler) CreateWorkingSaturday(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWorkingSaturdayRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	ws, err := h.service.CreateWorkingSaturday(r.Context(), httputil.GetUserID(r.Context()), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, ws)
}

// ListWorkingSaturdays lists the designated Saturdays of a year
// GET /admin/working-saturdays?year=
func (h *CalendarHandler) ListWorkingSaturdays(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	saturdays, err := h.service.ListWorkingSaturdays(r.Context(), year)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, saturdays)
}

// DeleteWorkingSaturday removes a working Saturday designation
// DELETE /admin/working-saturdays/{id}
func (h *CalendarHandler) DeleteWorkingSaturday(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteWorkingSaturday(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

func parseYearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return time.Now().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Validation(map[string]string{"year": "must be an integer"})
	}
	return year, nil
}
