package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/internal/worklog/repository"
	"github.com/worklog/worklog-backend/internal/worklog/service"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/pkg/httputil"
	"github.com/worklog/worklog-backend/pkg/logger"
)

// EntryHandler handles the employee-facing work entry endpoints.
type EntryHandler struct {
	service *service.EntryService
	logger  *logger.Logger
}

// NewEntryHandler creates a new entry handler.
func NewEntryHandler(svc *service.EntryService, log *logger.Logger) *EntryHandler {
	return &EntryHandler{service: svc, logger: log}
}

// Create records a new work entry for the calling employee
// POST /entries
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateEntryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.Create(r.Context(), httputil.GetUserID(r.Context()), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, entry)
}

// List lists the calling employee's entries
// GET /entries?status=&from=&to=&limit=&offset=
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	entries, err := h.service.List(r.Context(), httputil.GetUserID(r.Context()), params)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// Get fetches one of the calling employee's entries, lines included
// GET /entries/{id}
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Update edits one of the calling employee's entries
// PUT /entries/{id}
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateEntryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.Update(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Delete removes one of the calling employee's entries
// DELETE /entries/{id}
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HardDelete(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Submit sends a draft or rejected entry to the approval queue
// POST /entries/{id}/submit
func (h *EntryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Submit(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

type deletionRequestBody struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RequestDeletion opens a deletion request on an entry
// POST /entries/{id}/deletion-request
func (h *EntryHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	var body deletionRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.RequestDeletion(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// CancelDeletion withdraws the caller's own deletion request
// DELETE /entries/{id}/deletion-request
func (h *EntryHandler) CancelDeletion(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.CancelDeletion(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// parseListParams reads the common list filters from the query string.
func parseListParams(r *http.Request) (repository.EntryListParams, error) {
	var params repository.EntryListParams
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return params, err
		}
		params.Status = &status
	}

	for name, dst := range map[string]**time.Time{"from": &params.From, "to": &params.To} {
		if raw := q.Get(name); raw != "" {
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return params, errors.Validation(map[string]string{name: "must be a date in format YYYY-MM-DD"})
			}
			*dst = &d
		}
	}

	var err error
	if params.Limit, err = parseIntParam(q.Get("limit"), "limit"); err != nil {
		return params, err
	}
	if params.Offset, err = parseIntParam(q.Get("offset"), "offset"); err != nil {
		return params, err
	}

	return params, nil
}

func parseIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Validation(map[string]string{name: "must be a non-negative integer"})
	}
	return n, nil
}
