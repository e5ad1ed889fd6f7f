package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/worklog/worklog-backend/internal/worklog/calendar"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/internal/worklog/repository"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/pkg/logger"
)

// EntryStore is the persistence surface the entry lifecycle needs.
// *repository.EntryRepository implements it.
type EntryStore interface {
	Create(ctx context.Context, entry *domain.WorkEntry) error
	CreateBatch(ctx context.Context, entries []*domain.WorkEntry) error
	GetByID(ctx context.Context, id string) (*domain.WorkEntry, error)
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*domain.WorkEntry, error)
	Update(ctx context.Context, entry *domain.WorkEntry) error
	ReplaceLines(ctx context.Context, entry *domain.WorkEntry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params repository.EntryListParams) ([]*domain.WorkEntry, error)
	LineExists(ctx context.Context, employeeID string, date time.Time, clientID *string, taskTypeID string, production decimal.Decimal) (bool, error)
}

// CatalogStore is the read-only directory surface.
// *repository.CatalogRepository implements it.
type CatalogStore interface {
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	GetTaskType(ctx context.Context, id string) (*domain.TaskType, error)
	ResolveEmployee(ctx context.Context, username, fullName string) (*domain.Employee, error)
	ResolveClient(ctx context.Context, name string) (*domain.Client, error)
	ResolveTaskType(ctx context.Context, name string) (*domain.TaskType, error)
}

// LeaveStore answers approved-leave overlap queries.
// *repository.LeaveRepository implements it.
type LeaveStore interface {
	HasApprovedLeave(ctx context.Context, employeeID string, date time.Time) (bool, error)
}

// LineInput is one line of a create or edit request.
type LineInput struct {
	ClientID    *string         `json:"client_id" validate:"omitempty,uuid"`
	TaskTypeID  string          `json:"task_type_id" validate:"required,uuid"`
	Title       string          `json:"title" validate:"max=255"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
	Hours       decimal.Decimal `json:"hours"`
	Production  decimal.Decimal `json:"production"`
}

// CreateEntryRequest creates a work entry for one date.
type CreateEntryRequest struct {
	WorkDate    string      `json:"work_date" validate:"required,datetime=2006-01-02"`
	ClientID    *string     `json:"client_id" validate:"omitempty,uuid"`
	TaskName    string      `json:"task_name" validate:"required,max=255"`
	Description *string     `json:"description" validate:"omitempty,max=500"`
	Lines       []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// UpdateEntryRequest edits a work entry. Lines, when present, replace the
// existing lines wholesale.
type UpdateEntryRequest struct {
	ClientID    *string     `json:"client_id" validate:"omitempty,uuid"`
	TaskName    *string     `json:"task_name" validate:"omitempty,max=255"`
	Description *string     `json:"description" validate:"omitempty,max=500"`
	Lines       []LineInput `json:"lines" validate:"omitempty,min=1,dive"`
}

// EntryService owns the work entry lifecycle: creation, edits, submission,
// admin review and the deletion-request flow.
type EntryService struct {
	entries    EntryStore
	catalogs   CatalogStore
	leaves     LeaveStore
	classifier *calendar.Classifier
	logger     *logger.Logger
	now        func() time.Time
}

// NewEntryService creates a new entry service.
func NewEntryService(
	entries EntryStore,
	catalogs CatalogStore,
	leaves LeaveStore,
	classifier *calendar.Classifier,
	log *logger.Logger,
) *EntryService {
	return &EntryService{
		entries:    entries,
		catalogs:   catalogs,
		leaves:     leaves,
		classifier: classifier,
		logger:     log,
		now:        time.Now,
	}
}

// Create records a new work entry for the employee. The entry is
// classified immediately: exactly 8 hours on a working day auto-approves,
// anything else starts out pending.
func (s *EntryService) Create(ctx context.Context, employeeID string, req CreateEntryRequest) (*domain.WorkEntry, error) {
	workDate, err := parseWorkDate(req.WorkDate)
	if err != nil {
		return nil, err
	}

	emp, err := s.catalogs.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !emp.Active {
		return nil, errors.NotFound("employee")
	}

	existing, err := s.entries.GetByEmployeeAndDate(ctx, employeeID, workDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Conflict("a work entry already exists for this date")
	}

	onLeave, err := s.leaves.HasApprovedLeave(ctx, employeeID, workDate)
	if err != nil {
		return nil, err
	}
	if onLeave {
		return nil, errors.Conflict("cannot record work on a date covered by approved leave")
	}

	lines, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	totalHours := domain.SumLineHours(lines)
	eval, err := s.classifier.EvaluateDate(ctx, workDate, totalHours)
	if err != nil {
		return nil, err
	}

	entry := &domain.WorkEntry{
		EmployeeID:    employeeID,
		ClientID:      primaryClient(req.ClientID, lines),
		WorkDate:      workDate,
		TaskName:      req.TaskName,
		Description:   req.Description,
		TotalHours:    totalHours,
		Status:        eval.Status,
		IsOvertime:    eval.IsOvertime,
		OvertimeHours: eval.OvertimeHours,
		Lines:         lines,
		CreatedBy:     &employeeID,
		UpdatedBy:     &employeeID,
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("entry_id", entry.ID).
		Str("employee_id", employeeID).
		Str("status", entry.Status.String()).
		Msg("work entry created")

	return entry, nil
}

// Update edits an entry owned by the employee. Allowed only while the
// entry is draft, pending or rejected.
func (s *EntryService) Update(ctx context.Context, employeeID, entryID string, req UpdateEntryRequest) (*domain.WorkEntry, error) {
	entry, err := s.getOwned(ctx, employeeID, entryID)
	if err != nil {
		return nil, err
	}

	if !entry.Status.Editable() {
		return nil, errors.InvalidState("cannot edit an entry that is " + entry.Status.String())
	}

	if err := s.applyUpdate(ctx, entry, req); err != nil {
		return nil, err
	}
	entry.UpdatedBy = &employeeID

	if err := s.persistUpdate(ctx, entry, req.Lines != nil); err != nil {
		return nil, err
	}

	return entry, nil
}

// applyUpdate mutates the entry per the request, recomputing hours and,
// unless the entry is already approved, its status. An edit of a rejected
// entry clears the admin comment and falls back to draft when the new
// hours do not auto-approve.
func (s *EntryService) applyUpdate(ctx context.Context, entry *domain.WorkEntry, req UpdateEntryRequest) error {
	if req.ClientID != nil {
		entry.ClientID = req.ClientID
	}
	if req.TaskName != nil {
		entry.TaskName = *req.TaskName
	}
	if req.Description != nil {
		entry.Description = req.Description
	}

	if req.Lines != nil {
		lines, err := s.buildLines(ctx, req.Lines)
		if err != nil {
			return err
		}
		entry.Lines = lines
		entry.TotalHours = domain.SumLineHours(lines)
	}

	eval, err := s.classifier.EvaluateDate(ctx, entry.WorkDate, entry.TotalHours)
	if err != nil {
		return err
	}

	// Overtime fields always track the current hours, even on an approved
	// entry where the status itself is left alone.
	entry.IsOvertime = eval.IsOvertime
	entry.OvertimeHours = eval.OvertimeHours

	if entry.Status != domain.StatusApproved {
		wasRejected := entry.Status == domain.StatusRejected
		entry.Status = eval.Status
		if wasRejected {
			entry.AdminComment = nil
			if entry.Status != domain.StatusApproved {
				entry.Status = domain.StatusDraft
			}
		}
	}

	return nil
}

func (s *EntryService) persistUpdate(ctx context.Context, entry *domain.WorkEntry, linesChanged bool) error {
	if linesChanged {
		return s.entries.ReplaceLines(ctx, entry)
	}
	return s.entries.Update(ctx, entry)
}

// Submit sends a draft or rejected entry to the approval queue.
func (s *EntryService) Submit(ctx context.Context, employeeID, entryID string) (*domain.WorkEntry, error) {
	entry, err := s.getOwned(ctx, employeeID, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.Submit(); err != nil {
		return nil, err
	}
	entry.UpdatedBy = &employeeID

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Approve approves a pending entry (admin).
func (s *EntryService) Approve(ctx context.Context, adminID, entryID, comment string) (*domain.WorkEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.Approve(adminID, comment, s.now()); err != nil {
		return nil, err
	}

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("entry_id", entry.ID).
		Str("admin_id", adminID).
		Msg("work entry approved")

	return entry, nil
}

// Reject rejects a pending entry (admin). A comment is mandatory.
func (s *EntryService) Reject(ctx context.Context, adminID, entryID, comment string) (*domain.WorkEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.Reject(adminID, comment, s.now()); err != nil {
		return nil, err
	}

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("entry_id", entry.ID).
		Str("admin_id", adminID).
		Msg("work entry rejected")

	return entry, nil
}

// RequestDeletion parks an entry in PENDING_DELETION until an admin
// decides, remembering the status it had.
func (s *EntryService) RequestDeletion(ctx context.Context, employeeID, entryID, reason string) (*domain.WorkEntry, error) {
	if reason == "" {
		return nil, errors.Validation(map[string]string{"reason": "a deletion reason is required"})
	}

	entry, err := s.getOwned(ctx, employeeID, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.RequestDeletion(reason, s.now()); err != nil {
		return nil, err
	}
	entry.UpdatedBy = &employeeID

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// CancelDeletion withdraws the employee's own deletion request.
func (s *EntryService) CancelDeletion(ctx context.Context, employeeID, entryID string) (*domain.WorkEntry, error) {
	entry, err := s.getOwned(ctx, employeeID, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.CancelDeletion(); err != nil {
		return nil, err
	}
	entry.UpdatedBy = &employeeID

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// ApproveDeletion grants a deletion request: the entry and its lines are
// hard-deleted.
func (s *EntryService) ApproveDeletion(ctx context.Context, adminID, entryID string) error {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return err
	}

	if entry.Status != domain.StatusPendingDeletion {
		return errors.InvalidState("no deletion request is pending for this entry")
	}

	if err := s.entries.Delete(ctx, entry.ID); err != nil {
		return err
	}

	s.logger.Info().
		Str("entry_id", entry.ID).
		Str("admin_id", adminID).
		Msg("deletion request approved, entry deleted")

	return nil
}

// RejectDeletion refuses a deletion request and restores the entry to its
// snapshotted status, recording the admin's decision.
func (s *EntryService) RejectDeletion(ctx context.Context, adminID, entryID, comment string) (*domain.WorkEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := entry.RejectDeletion(adminID, comment, s.now()); err != nil {
		return nil, err
	}

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// HardDelete removes the employee's own entry outright. An entry with an
// open deletion request must go through the deletion-request flow instead.
func (s *EntryService) HardDelete(ctx context.Context, employeeID, entryID string) error {
	entry, err := s.getOwned(ctx, employeeID, entryID)
	if err != nil {
		return err
	}

	if !entry.Status.SelfDeletable() {
		return errors.InvalidState("entry has a pending deletion request")
	}

	return s.entries.Delete(ctx, entry.ID)
}

// AdminOverrideUpdate updates any entry regardless of its state. Line
// field requirements are still enforced; the status of an approved entry
// is preserved while its overtime fields are refreshed.
func (s *EntryService) AdminOverrideUpdate(ctx context.Context, adminID, entryID string, req UpdateEntryRequest) (*domain.WorkEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := s.applyUpdate(ctx, entry, req); err != nil {
		return nil, err
	}
	entry.UpdatedBy = &adminID

	if err := s.persistUpdate(ctx, entry, req.Lines != nil); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("entry_id", entry.ID).
		Str("admin_id", adminID).
		Msg("work entry updated by admin override")

	return entry, nil
}

// AdminOverrideDelete removes any entry regardless of its state.
func (s *EntryService) AdminOverrideDelete(ctx context.Context, adminID, entryID string) error {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return err
	}

	if err := s.entries.Delete(ctx, entry.ID); err != nil {
		return err
	}

	s.logger.Info().
		Str("entry_id", entry.ID).
		Str("admin_id", adminID).
		Msg("work entry deleted by admin override")

	return nil
}

// Get fetches an entry owned by the employee, lines included.
func (s *EntryService) Get(ctx context.Context, employeeID, entryID string) (*domain.WorkEntry, error) {
	return s.getOwned(ctx, employeeID, entryID)
}

// List lists the employee's entries with optional filters.
func (s *EntryService) List(ctx context.Context, employeeID string, params repository.EntryListParams) ([]*domain.WorkEntry, error) {
	params.EmployeeID = &employeeID
	return s.entries.List(ctx, params)
}

// ListByStatus lists entries across employees in one status (admin
// approvals and deletion-request screens).
func (s *EntryService) ListByStatus(ctx context.Context, status domain.EntryStatus, limit, offset int) ([]*domain.WorkEntry, error) {
	return s.entries.List(ctx, repository.EntryListParams{
		Status: &status,
		Limit:  limit,
		Offset: offset,
	})
}

// getOwned loads an entry and hides it from non-owners.
func (s *EntryService) getOwned(ctx context.Context, employeeID, entryID string) (*domain.WorkEntry, error) {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.EmployeeID != employeeID {
		return nil, errors.NotFound("work entry")
	}
	return entry, nil
}

// buildLines validates line inputs against the catalogs and the task-type
// field requirements, and stamps the productive flag from the task type.
func (s *EntryService) buildLines(ctx context.Context, inputs []LineInput) ([]*domain.WorkEntryLine, error) {
	lines := make([]*domain.WorkEntryLine, 0, len(inputs))

	for _, in := range inputs {
		taskType, err := s.catalogs.GetTaskType(ctx, in.TaskTypeID)
		if err != nil {
			return nil, err
		}
		if !taskType.Active {
			return nil, errors.NotFound("task type")
		}

		if in.ClientID != nil {
			client, err := s.catalogs.GetClient(ctx, *in.ClientID)
			if err != nil {
				return nil, err
			}
			if !client.Active {
				return nil, errors.NotFound("client")
			}
		}

		if in.Hours.IsNegative() || in.Production.IsNegative() {
			return nil, errors.Validation(map[string]string{
				"lines": "hours and production must not be negative",
			})
		}

		if err := domain.ValidateLineFields(taskType.Name, in.Hours, in.Production); err != nil {
			return nil, err
		}

		title := in.Title
		if title == "" {
			title = taskType.Name
		}

		lines = append(lines, &domain.WorkEntryLine{
			ClientID:    in.ClientID,
			TaskTypeID:  taskType.ID,
			Title:       title,
			Description: in.Description,
			Hours:       in.Hours,
			Productive:  taskType.Productive,
			Production:  in.Production,
		})
	}

	return lines, nil
}

// primaryClient picks the entry-level client: the explicit one if given,
// otherwise the first line that names a client.
func primaryClient(explicit *string, lines []*domain.WorkEntryLine) *string {
	if explicit != nil {
		return explicit
	}
	for _, l := range lines {
		if l.ClientID != nil {
			return l.ClientID
		}
	}
	return nil
}

// parseWorkDate parses an ISO date into a UTC day.
func parseWorkDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errors.Validation(map[string]string{
			"work_date": "must be a date in format YYYY-MM-DD",
		})
	}
	return d.UTC(), nil
}
