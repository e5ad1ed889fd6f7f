package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worklog/worklog-backend/internal/worklog/calendar"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/internal/worklog/service"
	"github.com/worklog/worklog-backend/pkg/logger"
)

type bulkFixture struct {
	entries  *stubEntryStore
	catalogs *stubCatalogStore
	leaves   *stubLeaveStore
	source   *stubCalendarSource
	service  *service.BulkService
}

func newBulkFixture() *bulkFixture {
	f := &bulkFixture{
		entries:  newStubEntryStore(),
		catalogs: newStubCatalogStore(),
		leaves:   &stubLeaveStore{onLeave: map[string]bool{}},
		source:   &stubCalendarSource{holidays: map[string]bool{}, saturdays: map[string]bool{}},
	}
	log := logger.New("worklog-test", "development")
	f.service = service.NewBulkService(f.entries, f.catalogs, f.leaves, calendar.NewClassifier(f.source), log)
	return f
}

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func bulkRow(rowNum int, coder, client, task, count, hours string) service.BulkRow {
	return service.BulkRow{
		RowNumber:  rowNum,
		Date:       workDay,
		CoderName:  coder,
		ClientName: client,
		TaskName:   task,
		Count:      count,
		Time:       hours,
	}
}

func TestIngestGroupsRowsPerEmployeeAndDate(t *testing.T) {
	f := newBulkFixture()

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		bulkRow(2, "Jane Smith", "Acme Health", "Coding", "12", "5"),
		bulkRow(3, "Jane Smith", "Acme Health", "Team Meeting", "0", "3"),
		bulkRow(4, "Omar Haddad", "Acme Health", "Coding", "20", "7"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Saved)
	assert.Equal(t, 0, report.Failed)
	for _, res := range report.Results {
		assert.Equal(t, service.RowSaved, res.Status)
	}

	require.Len(t, f.entries.batches, 1)
	batch := f.entries.batches[0]
	require.Len(t, batch, 2, "rows for the same employee and date collapse into one entry")

	var jane *domain.WorkEntry
	for _, e := range batch {
		if e.EmployeeID == "emp-1" {
			jane = e
		}
	}
	require.NotNil(t, jane)
	assert.True(t, jane.TotalHours.Equal(decimal.NewFromInt(8)), "line hours sum per entry")
	assert.Equal(t, domain.StatusApproved, jane.Status)
	require.Len(t, jane.Lines, 2)
	assert.Equal(t, "Coding, Team Meeting", jane.TaskName)
}

func TestIngestIsAllOrNothing(t *testing.T) {
	f := newBulkFixture()

	rows := make([]service.BulkRow, 0, 11)
	for i := 0; i < 10; i++ {
		row := bulkRow(i+2, "Jane Smith", "Acme Health", "Coding", "10", "0.5")
		row.Date = fmt.Sprintf("2026-08-%02d", i+10)
		rows = append(rows, row)
	}
	rows = append(rows, bulkRow(12, "Nobody Known", "Acme Health", "Coding", "10", "8"))

	report, err := f.service.Ingest(context.Background(), "admin-1", rows)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Saved)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 11)
	assert.Empty(t, f.entries.batches, "nothing may be written")

	var badRow, goodRow *service.RowResult
	for i := range report.Results {
		switch report.Results[i].Row {
		case 12:
			badRow = &report.Results[i]
		case 2:
			goodRow = &report.Results[i]
		}
	}
	require.NotNil(t, badRow)
	assert.Equal(t, service.RowFailed, badRow.Status)
	assert.Contains(t, badRow.Message, "not found")
	require.NotNil(t, goodRow)
	assert.Equal(t, service.RowWouldSucceed, goodRow.Status)
}

func TestIngestDetectsInFileDuplicates(t *testing.T) {
	f := newBulkFixture()

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		bulkRow(2, "Jane Smith", "Acme Health", "Coding", "10", "4"),
		bulkRow(3, "Jane Smith", "Acme Health", "Coding", "10", "4"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Saved)
	assert.Empty(t, f.entries.batches)

	var dup *service.RowResult
	for i := range report.Results {
		if report.Results[i].Row == 3 {
			dup = &report.Results[i]
		}
	}
	require.NotNil(t, dup)
	assert.Equal(t, service.RowFailed, dup.Status)
	assert.Contains(t, dup.Message, "duplicate of row 2")
}

func TestIngestDetectsPersistedDuplicates(t *testing.T) {
	f := newBulkFixture()
	f.entries.lineExists["emp-1|"+workDay+"|task-coding"] = true

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		bulkRow(2, "Jane Smith", "Acme Health", "Coding", "10", "4"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Results[0].Message, "already recorded")
	assert.Empty(t, f.entries.batches)
}

func TestIngestRejectsExistingEntryForDate(t *testing.T) {
	f := newBulkFixture()
	f.entries.entries["existing"] = &domain.WorkEntry{
		ID:         "existing",
		EmployeeID: "emp-1",
		WorkDate:   mustDate(workDay),
		Status:     domain.StatusApproved,
	}

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		bulkRow(2, "Jane Smith", "Acme Health", "Coding", "10", "4"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Results[0].Message, "already exists")
}

func TestIngestRejectsApprovedLeaveOverlap(t *testing.T) {
	f := newBulkFixture()
	f.leaves.onLeave["emp-1|"+workDay] = true

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		bulkRow(2, "Jane Smith", "Acme Health", "Coding", "10", "4"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Results[0].Message, "approved leave")
}

func TestIngestEnforcesTaskFieldRules(t *testing.T) {
	f := newBulkFixture()

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		// A meeting row must not carry a count.
		bulkRow(2, "Jane Smith", "Acme Health", "Team Meeting", "5", "2"),
		// A GP task row must not carry hours.
		bulkRow(3, "Omar Haddad", "Acme Health", "GP Task", "5", "2"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Failed)
	assert.Empty(t, f.entries.batches)
}

func TestIngestGroupTotalMustStayInBounds(t *testing.T) {
	f := newBulkFixture()

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		bulkRow(2, "Jane Smith", "Acme Health", "Coding", "10", "14"),
		bulkRow(3, "Jane Smith", "Acme Health", "Team Meeting", "0", "12"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Failed, "both rows of the oversized group fail")
	assert.Empty(t, f.entries.batches)
}

func TestIngestReportsBatchLevelFailure(t *testing.T) {
	f := newBulkFixture()
	f.entries.batchErr = assert.AnError

	report, err := f.service.Ingest(context.Background(), "admin-1", []service.BulkRow{
		bulkRow(2, "Jane Smith", "Acme Health", "Coding", "10", "4"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Saved)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Message, "nothing was saved")
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	f := newBulkFixture()

	_, err := f.service.Ingest(context.Background(), "admin-1", nil)
	require.Error(t, err)
}
