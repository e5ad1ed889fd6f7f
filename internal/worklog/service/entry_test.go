package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worklog/worklog-backend/internal/worklog/calendar"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/internal/worklog/repository"
	"github.com/worklog/worklog-backend/internal/worklog/service"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/pkg/logger"
)

// ---------------------------------------------------------------------------
// stubs
// ---------------------------------------------------------------------------

type stubEntryStore struct {
	entries    map[string]*domain.WorkEntry
	created    []*domain.WorkEntry
	batches    [][]*domain.WorkEntry
	updated    []*domain.WorkEntry
	deleted    []string
	lineExists map[string]bool
	batchErr   error
}

func newStubEntryStore() *stubEntryStore {
	return &stubEntryStore{
		entries:    map[string]*domain.WorkEntry{},
		lineExists: map[string]bool{},
	}
}

func (s *stubEntryStore) Create(_ context.Context, entry *domain.WorkEntry) error {
	entry.ID = "entry-" + entry.EmployeeID + "-" + entry.WorkDate.Format("2006-01-02")
	s.created = append(s.created, entry)
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubEntryStore) CreateBatch(_ context.Context, entries []*domain.WorkEntry) error {
	if s.batchErr != nil {
		return s.batchErr
	}
	s.batches = append(s.batches, entries)
	return nil
}

func (s *stubEntryStore) GetByID(_ context.Context, id string) (*domain.WorkEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, errors.NotFound("work entry")
	}
	return entry, nil
}

func (s *stubEntryStore) GetByEmployeeAndDate(_ context.Context, employeeID string, d time.Time) (*domain.WorkEntry, error) {
	for _, e := range s.entries {
		if e.EmployeeID == employeeID && e.WorkDate.Equal(d) {
			return e, nil
		}
	}
	return nil, nil
}

func (s *stubEntryStore) Update(_ context.Context, entry *domain.WorkEntry) error {
	s.updated = append(s.updated, entry)
	s.entries[entry.ID] = entry
	return nil
}

func (s *stubEntryStore) ReplaceLines(_ context.Context, entry *domain.WorkEntry) error {
	return s.Update(context.Background(), entry)
}

func (s *stubEntryStore) Delete(_ context.Context, id string) error {
	if _, ok := s.entries[id]; !ok {
		return errors.NotFound("work entry")
	}
	delete(s.entries, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubEntryStore) List(_ context.Context, params repository.EntryListParams) ([]*domain.WorkEntry, error) {
	out := make([]*domain.WorkEntry, 0)
	for _, e := range s.entries {
		if params.EmployeeID != nil && e.EmployeeID != *params.EmployeeID {
			continue
		}
		if params.Status != nil && e.Status != *params.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *stubEntryStore) LineExists(_ context.Context, employeeID string, d time.Time, clientID *string, taskTypeID string, production decimal.Decimal) (bool, error) {
	return s.lineExists[employeeID+"|"+d.Format("2006-01-02")+"|"+taskTypeID], nil
}

type stubCatalogStore struct {
	employees map[string]*domain.Employee
	clients   map[string]*domain.Client
	taskTypes map[string]*domain.TaskType
}

func newStubCatalogStore() *stubCatalogStore {
	return &stubCatalogStore{
		employees: map[string]*domain.Employee{
			"emp-1": {ID: "emp-1", FullName: "Jane Smith", Email: "jsmith@example.com", Active: true},
			"emp-2": {ID: "emp-2", FullName: "Omar Haddad", Email: "ohaddad@example.com", Active: true},
			"emp-3": {ID: "emp-3", FullName: "Gone Person", Email: "gone@example.com", Active: false},
		},
		clients: map[string]*domain.Client{
			"client-1": {ID: "client-1", Name: "Acme Health", Active: true},
			"client-2": {ID: "client-2", Name: "Retired Client", Active: false},
		},
		taskTypes: map[string]*domain.TaskType{
			"task-coding":  {ID: "task-coding", Name: "Coding", Productive: true, Active: true},
			"task-meeting": {ID: "task-meeting", Name: "Team Meeting", Productive: false, Active: true},
			"task-gp":      {ID: "task-gp", Name: "GP Task", Productive: true, Active: true},
			"task-old":     {ID: "task-old", Name: "Legacy", Productive: false, Active: false},
		},
	}
}

func (s *stubCatalogStore) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	if e, ok := s.employees[id]; ok {
		return e, nil
	}
	return nil, errors.NotFound("employee")
}

func (s *stubCatalogStore) GetClient(_ context.Context, id string) (*domain.Client, error) {
	if c, ok := s.clients[id]; ok {
		return c, nil
	}
	return nil, errors.NotFound("client")
}

func (s *stubCatalogStore) GetTaskType(_ context.Context, id string) (*domain.TaskType, error) {
	if tt, ok := s.taskTypes[id]; ok {
		return tt, nil
	}
	return nil, errors.NotFound("task type")
}

func (s *stubCatalogStore) ResolveEmployee(_ context.Context, username, fullName string) (*domain.Employee, error) {
	for _, e := range s.employees {
		if e.Active && (username != "" && e.Email == username+"@example.com" || fullName != "" && e.FullName == fullName) {
			return e, nil
		}
	}
	return nil, errors.NotFound("employee")
}

func (s *stubCatalogStore) ResolveClient(_ context.Context, name string) (*domain.Client, error) {
	for _, c := range s.clients {
		if c.Active && c.Name == name {
			return c, nil
		}
	}
	return nil, errors.NotFound("client")
}

func (s *stubCatalogStore) ResolveTaskType(_ context.Context, name string) (*domain.TaskType, error) {
	for _, tt := range s.taskTypes {
		if tt.Active && tt.Name == name {
			return tt, nil
		}
	}
	return nil, errors.NotFound("task type")
}

type stubLeaveStore struct {
	onLeave map[string]bool
}

func (s *stubLeaveStore) HasApprovedLeave(_ context.Context, employeeID string, d time.Time) (bool, error) {
	return s.onLeave[employeeID+"|"+d.Format("2006-01-02")], nil
}

type stubCalendarSource struct {
	holidays  map[string]bool
	saturdays map[string]bool
}

func (s *stubCalendarSource) IsHoliday(_ context.Context, d time.Time) (bool, error) {
	return s.holidays[d.Format("2006-01-02")], nil
}

func (s *stubCalendarSource) IsWorkingSaturday(_ context.Context, d time.Time) (bool, error) {
	return s.saturdays[d.Format("2006-01-02")], nil
}

type fixture struct {
	entries  *stubEntryStore
	catalogs *stubCatalogStore
	leaves   *stubLeaveStore
	source   *stubCalendarSource
	service  *service.EntryService
}

func newFixture() *fixture {
	f := &fixture{
		entries:  newStubEntryStore(),
		catalogs: newStubCatalogStore(),
		leaves:   &stubLeaveStore{onLeave: map[string]bool{}},
		source:   &stubCalendarSource{holidays: map[string]bool{}, saturdays: map[string]bool{}},
	}
	log := logger.New("worklog-test", "development")
	f.service = service.NewEntryService(f.entries, f.catalogs, f.leaves, calendar.NewClassifier(f.source), log)
	return f
}

func lineInput(taskTypeID, hours, production string) service.LineInput {
	return service.LineInput{
		TaskTypeID: taskTypeID,
		Hours:      decimal.RequireFromString(hours),
		Production: decimal.RequireFromString(production),
	}
}

// 2026-08-25 is a Tuesday.
const workDay = "2026-08-25"

func createRequest(lines ...service.LineInput) service.CreateEntryRequest {
	return service.CreateEntryRequest{
		WorkDate: workDay,
		TaskName: "Coding",
		Lines:    lines,
	}
}

// ---------------------------------------------------------------------------
// create
// ---------------------------------------------------------------------------

func TestCreateStandardDayAutoApproves(t *testing.T) {
	f := newFixture()

	entry, err := f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-coding", "8", "12")))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, entry.Status)
	assert.False(t, entry.IsOvertime)
	assert.True(t, entry.OvertimeHours.IsZero())
	assert.True(t, entry.TotalHours.Equal(decimal.NewFromInt(8)))
	require.Len(t, f.entries.created, 1)
	require.Len(t, entry.Lines, 1)
	assert.True(t, entry.Lines[0].Productive, "productive flag comes from the task type")
}

func TestCreateShortDayPends(t *testing.T) {
	f := newFixture()

	entry, err := f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-coding", "6.5", "0")))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, entry.Status)
	assert.False(t, entry.IsOvertime)
}

func TestCreateLongDayPendsWithOvertime(t *testing.T) {
	f := newFixture()

	entry, err := f.service.Create(context.Background(), "emp-1", createRequest(
		lineInput("task-coding", "8", "10"),
		lineInput("task-meeting", "2.5", "0"),
	))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, entry.Status)
	assert.True(t, entry.IsOvertime)
	assert.True(t, entry.OvertimeHours.Equal(decimal.RequireFromString("2.5")))
}

func TestCreateOnHolidayIsAllOvertime(t *testing.T) {
	f := newFixture()
	f.source.holidays[workDay] = true

	entry, err := f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-coding", "8", "10")))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, entry.Status, "8 hours on a holiday still needs approval")
	assert.True(t, entry.IsOvertime)
	assert.True(t, entry.OvertimeHours.Equal(decimal.NewFromInt(8)))
}

func TestCreateSecondEntrySameDateConflicts(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-coding", "8", "10")))
	require.NoError(t, err)

	_, err = f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-coding", "4", "5")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestCreateOnApprovedLeaveConflicts(t *testing.T) {
	f := newFixture()
	f.leaves.onLeave["emp-1|"+workDay] = true

	_, err := f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-coding", "8", "10")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Empty(t, f.entries.created)
}

func TestCreateInactiveEmployee(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "emp-3", createRequest(lineInput("task-coding", "8", "10")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCreateEnforcesTaskFieldRequirements(t *testing.T) {
	f := newFixture()

	// A meeting line must not carry a production count.
	_, err := f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-meeting", "2", "5")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	// A GP task line must not carry hours.
	_, err = f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-gp", "2", "5")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	assert.Empty(t, f.entries.created)
}

func TestCreateRejectsInactiveCatalogReferences(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "emp-1", createRequest(lineInput("task-old", "4", "0")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	inactive := "client-2"
	req := createRequest(service.LineInput{
		ClientID:   &inactive,
		TaskTypeID: "task-coding",
		Hours:      decimal.NewFromInt(4),
		Production: decimal.NewFromInt(2),
	})
	_, err = f.service.Create(context.Background(), "emp-1", req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

// ---------------------------------------------------------------------------
// update
// ---------------------------------------------------------------------------

func (f *fixture) seedEntry(t *testing.T, employeeID string, hours string) *domain.WorkEntry {
	t.Helper()
	entry, err := f.service.Create(context.Background(), employeeID, createRequest(lineInput("task-coding", hours, "10")))
	require.NoError(t, err)
	return entry
}

func TestUpdateRecomputesStatus(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "6") // pending

	updated, err := f.service.Update(context.Background(), "emp-1", entry.ID, service.UpdateEntryRequest{
		Lines: []service.LineInput{lineInput("task-coding", "8", "10")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status, "8 hours on a working day auto-approves")
	assert.True(t, updated.TotalHours.Equal(decimal.NewFromInt(8)))
}

func TestUpdateRejectedFallsBackToDraft(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "6")
	require.NoError(t, entry.Submit())
	require.NoError(t, entry.Reject("admin-1", "too short", time.Now()))

	updated, err := f.service.Update(context.Background(), "emp-1", entry.ID, service.UpdateEntryRequest{
		Lines: []service.LineInput{lineInput("task-coding", "7", "10")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, updated.Status)
	assert.Nil(t, updated.AdminComment, "editing a rejected entry clears the review comment")
}

func TestUpdateRejectedCanAutoApprove(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "6")
	require.NoError(t, entry.Submit())
	require.NoError(t, entry.Reject("admin-1", "too short", time.Now()))

	updated, err := f.service.Update(context.Background(), "emp-1", entry.ID, service.UpdateEntryRequest{
		Lines: []service.LineInput{lineInput("task-coding", "8", "10")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)
}

func TestUpdateApprovedEntryIsRefused(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "8") // auto-approved

	_, err := f.service.Update(context.Background(), "emp-1", entry.ID, service.UpdateEntryRequest{
		Lines: []service.LineInput{lineInput("task-coding", "6", "10")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestUpdateHidesForeignEntries(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "6")

	_, err := f.service.Update(context.Background(), "emp-2", entry.ID, service.UpdateEntryRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestAdminOverrideUpdateKeepsApprovedStatus(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "8") // auto-approved

	updated, err := f.service.AdminOverrideUpdate(context.Background(), "admin-1", entry.ID, service.UpdateEntryRequest{
		Lines: []service.LineInput{lineInput("task-coding", "10", "10")},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status, "override must not demote an approved entry")
	assert.True(t, updated.IsOvertime, "overtime fields still track the new hours")
	assert.True(t, updated.OvertimeHours.Equal(decimal.NewFromInt(2)))
}

// ---------------------------------------------------------------------------
// lifecycle
// ---------------------------------------------------------------------------

func TestSubmitApproveFlow(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "10") // pending with overtime

	_, err := f.service.Submit(context.Background(), "emp-1", entry.ID)
	require.Error(t, err, "a pending entry cannot be resubmitted")

	approved, err := f.service.Approve(context.Background(), "admin-1", entry.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "admin-1", *approved.ApprovedBy)
}

func TestRejectRequiresComment(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "10")

	_, err := f.service.Reject(context.Background(), "admin-1", entry.ID, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestDeletionRequestFlow(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "8") // approved

	_, err := f.service.RequestDeletion(context.Background(), "emp-1", entry.ID, "")
	require.Error(t, err, "a reason is mandatory")

	parked, err := f.service.RequestDeletion(context.Background(), "emp-1", entry.ID, "wrong date")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingDeletion, parked.Status)

	// The owner cannot hard-delete while the request is open.
	err = f.service.HardDelete(context.Background(), "emp-1", entry.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	restored, err := f.service.RejectDeletion(context.Background(), "admin-1", entry.ID, "keep it")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, restored.Status)
}

func TestApproveDeletionRemovesEntry(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "8")

	err := f.service.ApproveDeletion(context.Background(), "admin-1", entry.ID)
	require.Error(t, err, "no open deletion request yet")
	assert.True(t, errors.Is(err, errors.ErrInvalidState))

	_, err = f.service.RequestDeletion(context.Background(), "emp-1", entry.ID, "duplicate")
	require.NoError(t, err)

	require.NoError(t, f.service.ApproveDeletion(context.Background(), "admin-1", entry.ID))
	assert.Equal(t, []string{entry.ID}, f.entries.deleted)

	_, err = f.service.Get(context.Background(), "emp-1", entry.ID)
	require.Error(t, err)
}

func TestHardDelete(t *testing.T) {
	f := newFixture()
	entry := f.seedEntry(t, "emp-1", "6")

	err := f.service.HardDelete(context.Background(), "emp-2", entry.ID)
	require.Error(t, err, "foreign entries stay hidden")

	require.NoError(t, f.service.HardDelete(context.Background(), "emp-1", entry.ID))
	assert.Equal(t, []string{entry.ID}, f.entries.deleted)
}
