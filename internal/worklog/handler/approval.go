package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/internal/worklog/service"
	"github.com/worklog/worklog-backend/pkg/httputil"
	"github.com/worklog/worklog-backend/pkg/logger"
)

// ApprovalHandler handles the admin review endpoints: the approval queue,
// deletion requests and overrides.
type ApprovalHandler struct {
	service *service.EntryService
	logger  *logger.Logger
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(svc *service.EntryService, log *logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{service: svc, logger: log}
}

type reviewBody struct {
	Comment string `json:"comment" validate:"max=500"`
}

// ListPending lists entries in the approval queue, pending ones by
// default
// GET /admin/approvals?status=&limit=&offset=
func (h *ApprovalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	status := domain.StatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseStatus(raw)
		if err != nil {
			httputil.Error(w, errors.BadRequest(err.Error()))
			return
		}
		status = parsed
	}
	h.listByStatus(w, r, status)
}

// Approve approves a pending entry
// POST /admin/approvals/{id}/approve
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeReview(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Approve(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"), body.Comment)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Reject rejects a pending entry; the comment is mandatory
// POST /admin/approvals/{id}/reject
func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeReview(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Reject(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"), body.Comment)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// ListDeletionRequests lists entries with an open deletion request
// GET /admin/deletion-requests?limit=&offset=
func (h *ApprovalHandler) ListDeletionRequests(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, domain.StatusPendingDeletion)
}

// ApproveDeletion grants a deletion request and removes the entry
// POST /admin/deletion-requests/{id}/approve
func (h *ApprovalHandler) ApproveDeletion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ApproveDeletion(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// RejectDeletion refuses a deletion request and restores the entry
// POST /admin/deletion-requests/{id}/reject
func (h *ApprovalHandler) RejectDeletion(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeReview(w, r)
	if !ok {
		return
	}

	entry, err := h.service.RejectDeletion(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"), body.Comment)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// OverrideUpdate edits any entry regardless of its state
// PUT /admin/entries/{id}
func (h *ApprovalHandler) OverrideUpdate(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateEntryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	entry, err := h.service.AdminOverrideUpdate(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// OverrideDelete removes any entry regardless of its state
// DELETE /admin/entries/{id}
func (h *ApprovalHandler) OverrideDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AdminOverrideDelete(r.Context(), httputil.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

func (h *ApprovalHandler) listByStatus(w http.ResponseWriter, r *http.Request, status domain.EntryStatus) {
	q := r.URL.Query()
	limit, err := parseIntParam(q.Get("limit"), "limit")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	offset, err := parseIntParam(q.Get("offset"), "offset")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	entries, err := h.service.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// decodeReview reads the optional review comment. An empty body is a
// review without a comment.
func decodeReview(w http.ResponseWriter, r *http.Request) (reviewBody, bool) {
	var body reviewBody
	if r.ContentLength == 0 {
		return body, true
	}
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.Error(w, err)
		return body, false
	}
	if err := httputil.Validate(body); err != nil {
		httputil.Error(w, err)
		return body, false
	}
	return body, true
}
