package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/worklog/worklog-backend/internal/worklog/calendar"
	"github.com/worklog/worklog-backend/internal/worklog/domain"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/pkg/logger"
)

// BulkRow is one raw spreadsheet row as the upload handler read it.
// All values arrive as strings; parsing and resolution happen here.
type BulkRow struct {
	RowNumber  int
	Date       string
	Username   string
	CoderName  string
	ClientName string
	TaskName   string
	Count      string
	Time       string
}

// Per-row outcomes. A valid row in a rejected batch is reported as
// would-succeed so the uploader can tell it apart from the rows that
// actually failed.
const (
	RowSaved        = "saved"
	RowWouldSucceed = "would_succeed"
	RowFailed       = "failed"
)

// RowResult reports the outcome for a single uploaded row.
type RowResult struct {
	Row       int    `json:"row"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	CoderName string `json:"coder_name,omitempty"`
	Date      string `json:"date,omitempty"`
}

// BulkReport summarises an ingestion run. A run is all-or-nothing: either
// every row was persisted or none was.
type BulkReport struct {
	Total   int         `json:"total"`
	Saved   int         `json:"saved"`
	Failed  int         `json:"failed"`
	Message string      `json:"message"`
	Results []RowResult `json:"results"`
}

// BulkService ingests whole worklog spreadsheets. Rows are validated and
// resolved in full before anything is written; rows sharing an employee
// and date collapse into a single entry with one line per row.
type BulkService struct {
	entries    EntryStore
	catalogs   CatalogStore
	leaves     LeaveStore
	classifier *calendar.Classifier
	logger     *logger.Logger
}

// NewBulkService creates a new bulk ingestion service.
func NewBulkService(
	entries EntryStore,
	catalogs CatalogStore,
	leaves LeaveStore,
	classifier *calendar.Classifier,
	log *logger.Logger,
) *BulkService {
	return &BulkService{
		entries:    entries,
		catalogs:   catalogs,
		leaves:     leaves,
		classifier: classifier,
		logger:     log,
	}
}

// parsedRow is a BulkRow after parsing and catalog resolution.
type parsedRow struct {
	src      BulkRow
	date     time.Time
	employee *domain.Employee
	client   *domain.Client
	taskType *domain.TaskType
	hours    decimal.Decimal
	count    decimal.Decimal
}

// groupKey identifies one target entry within a batch.
type groupKey struct {
	employeeID string
	date       string
}

// entryGroup accumulates the rows that collapse into one entry.
type entryGroup struct {
	key      groupKey
	employee *domain.Employee
	date     time.Time
	rows     []*parsedRow
	total    decimal.Decimal
}

// Ingest runs the two-phase pipeline: validate and resolve every row,
// group by (employee, date), then persist all resulting entries in a
// single transaction. Any row error aborts the whole batch with nothing
// written.
func (s *BulkService) Ingest(ctx context.Context, adminID string, rows []BulkRow) (*BulkReport, error) {
	if len(rows) == 0 {
		return nil, errors.BadRequest("the uploaded file contains no data rows")
	}

	report := &BulkReport{
		Total:   len(rows),
		Results: make([]RowResult, 0, len(rows)),
	}

	parsed := make([]*parsedRow, 0, len(rows))
	rowErrs := make(map[int]string)
	seen := make(map[string]int)

	for i := range rows {
		row := &rows[i]
		pr, err := s.parseRow(ctx, *row)
		if err != nil {
			rowErrs[row.RowNumber] = errorMessage(err)
			continue
		}

		key := duplicateKey(pr)
		if firstRow, ok := seen[key]; ok {
			rowErrs[row.RowNumber] = fmt.Sprintf("duplicate of row %d in this file", firstRow)
			continue
		}
		seen[key] = row.RowNumber

		exists, err := s.entries.LineExists(ctx, pr.employee.ID, pr.date, clientIDOf(pr), pr.taskType.ID, pr.count)
		if err != nil {
			return nil, err
		}
		if exists {
			rowErrs[row.RowNumber] = "an identical line is already recorded for this employee and date"
			continue
		}

		parsed = append(parsed, pr)
	}

	groups := groupRows(parsed)

	for _, g := range groups {
		if err := s.checkGroup(ctx, g); err != nil {
			msg := errorMessage(err)
			for _, pr := range g.rows {
				rowErrs[pr.src.RowNumber] = msg
			}
		}
	}

	if len(rowErrs) > 0 {
		return s.finishFailed(report, rows, rowErrs, fmt.Sprintf("%d of %d rows failed validation, nothing was saved", len(rowErrs), len(rows))), nil
	}

	entries, err := s.buildEntries(ctx, groups, adminID)
	if err != nil {
		return nil, err
	}

	if err := s.entries.CreateBatch(ctx, entries); err != nil {
		s.logger.Error().Err(err).Int("rows", len(rows)).Msg("bulk ingestion commit failed")
		return s.finishFailed(report, rows, nil, "saving the batch failed, nothing was saved"), nil
	}

	for _, row := range rows {
		report.Results = append(report.Results, RowResult{
			Row:       row.RowNumber,
			Status:    RowSaved,
			CoderName: row.CoderName,
			Date:      row.Date,
		})
	}
	report.Saved = len(rows)
	report.Message = fmt.Sprintf("all %d rows saved as %d work entries", len(rows), len(entries))

	s.logger.Info().
		Str("admin_id", adminID).
		Int("rows", len(rows)).
		Int("entries", len(entries)).
		Msg("bulk ingestion committed")

	return report, nil
}

// parseRow parses field values and resolves the three catalog references.
func (s *BulkService) parseRow(ctx context.Context, row BulkRow) (*parsedRow, error) {
	if row.Username == "" && row.CoderName == "" {
		return nil, errors.Validation(map[string]string{"username": "username or coder name is required"})
	}
	if row.TaskName == "" {
		return nil, errors.Validation(map[string]string{"task": "task is required"})
	}

	date, err := parseWorkDate(strings.TrimSpace(row.Date))
	if err != nil {
		return nil, errors.Validation(map[string]string{"date": "must be a date in format YYYY-MM-DD"})
	}

	hours, err := parseBulkNumber(row.Time, "time")
	if err != nil {
		return nil, err
	}
	count, err := parseBulkNumber(row.Count, "count")
	if err != nil {
		return nil, err
	}

	employee, err := s.catalogs.ResolveEmployee(ctx, strings.TrimSpace(row.Username), strings.TrimSpace(row.CoderName))
	if err != nil {
		return nil, err
	}

	var client *domain.Client
	if name := strings.TrimSpace(row.ClientName); name != "" {
		client, err = s.catalogs.ResolveClient(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	taskType, err := s.catalogs.ResolveTaskType(ctx, strings.TrimSpace(row.TaskName))
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateLineFields(taskType.Name, hours, count); err != nil {
		return nil, err
	}

	return &parsedRow{
		src:      row,
		date:     date,
		employee: employee,
		client:   client,
		taskType: taskType,
		hours:    hours,
		count:    count,
	}, nil
}

// checkGroup validates constraints that only exist at the entry level:
// total hours bounds, no pre-existing entry and no approved leave overlap.
func (s *BulkService) checkGroup(ctx context.Context, g *entryGroup) error {
	if err := calendar.ValidateHours(g.total); err != nil {
		return errors.Validation(map[string]string{
			"time": fmt.Sprintf("total hours for %s on %s must be above 0 and at most 24, got %s",
				g.employee.FullName, g.date.Format("2006-01-02"), g.total.String()),
		})
	}

	existing, err := s.entries.GetByEmployeeAndDate(ctx, g.employee.ID, g.date)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.Conflict(fmt.Sprintf("a work entry already exists for %s on %s",
			g.employee.FullName, g.date.Format("2006-01-02")))
	}

	onLeave, err := s.leaves.HasApprovedLeave(ctx, g.employee.ID, g.date)
	if err != nil {
		return err
	}
	if onLeave {
		return errors.Conflict(fmt.Sprintf("%s has approved leave on %s",
			g.employee.FullName, g.date.Format("2006-01-02")))
	}

	return nil
}

// buildEntries turns validated groups into classified entries ready for a
// single batch insert.
func (s *BulkService) buildEntries(ctx context.Context, groups []*entryGroup, adminID string) ([]*domain.WorkEntry, error) {
	entries := make([]*domain.WorkEntry, 0, len(groups))

	for _, g := range groups {
		eval, err := s.classifier.EvaluateDate(ctx, g.date, g.total)
		if err != nil {
			return nil, err
		}

		lines := make([]*domain.WorkEntryLine, 0, len(g.rows))
		taskNames := make([]string, 0, len(g.rows))
		for _, pr := range g.rows {
			lines = append(lines, &domain.WorkEntryLine{
				ClientID:   clientIDOf(pr),
				TaskTypeID: pr.taskType.ID,
				Title:      pr.taskType.Name,
				Hours:      pr.hours,
				Productive: pr.taskType.Productive,
				Production: pr.count,
			})
			taskNames = append(taskNames, pr.taskType.Name)
		}

		entries = append(entries, &domain.WorkEntry{
			EmployeeID:    g.employee.ID,
			ClientID:      primaryClient(nil, lines),
			WorkDate:      g.date,
			TaskName:      strings.Join(dedupe(taskNames), ", "),
			TotalHours:    g.total,
			Status:        eval.Status,
			IsOvertime:    eval.IsOvertime,
			OvertimeHours: eval.OvertimeHours,
			Lines:         lines,
			CreatedBy:     &adminID,
			UpdatedBy:     &adminID,
		})
	}

	return entries, nil
}

// finishFailed fills the report for an aborted batch. When rowErrs is nil
// every row failed for the same batch-level reason; otherwise rows that
// were themselves valid are marked would-succeed.
func (s *BulkService) finishFailed(report *BulkReport, rows []BulkRow, rowErrs map[int]string, message string) *BulkReport {
	for _, row := range rows {
		res := RowResult{
			Row:       row.RowNumber,
			Status:    RowFailed,
			CoderName: row.CoderName,
			Date:      row.Date,
		}
		switch {
		case rowErrs == nil:
			res.Message = "not saved: the batch was rolled back"
			report.Failed++
		case rowErrs[row.RowNumber] != "":
			res.Message = rowErrs[row.RowNumber]
			report.Failed++
		default:
			res.Status = RowWouldSucceed
			res.Message = "valid, but not saved: other rows in the file failed"
		}
		report.Results = append(report.Results, res)
	}
	report.Message = message
	return report
}

// groupRows collapses parsed rows into per-(employee, date) groups,
// summing hours. Group order follows first appearance in the file.
func groupRows(parsed []*parsedRow) []*entryGroup {
	byKey := make(map[groupKey]*entryGroup)
	order := make([]groupKey, 0)

	for _, pr := range parsed {
		key := groupKey{employeeID: pr.employee.ID, date: pr.date.Format("2006-01-02")}
		g, ok := byKey[key]
		if !ok {
			g = &entryGroup{key: key, employee: pr.employee, date: pr.date, total: decimal.Zero}
			byKey[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, pr)
		g.total = g.total.Add(pr.hours)
	}

	groups := make([]*entryGroup, 0, len(byKey))
	for _, key := range order {
		groups = append(groups, byKey[key])
	}
	return groups
}

// duplicateKey identifies a row for in-file duplicate detection: same
// employee, client, task type, date and production count.
func duplicateKey(pr *parsedRow) string {
	clientID := ""
	if pr.client != nil {
		clientID = pr.client.ID
	}
	return strings.Join([]string{
		pr.employee.ID,
		clientID,
		pr.taskType.ID,
		pr.date.Format("2006-01-02"),
		pr.count.String(),
	}, "|")
}

// parseBulkNumber parses a non-negative decimal cell. An empty cell
// counts as zero.
func parseBulkNumber(raw, field string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, errors.Validation(map[string]string{
			field: "must be a non-negative number",
		})
	}
	return d, nil
}

func clientIDOf(pr *parsedRow) *string {
	if pr.client == nil {
		return nil
	}
	id := pr.client.ID
	return &id
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// errorMessage flattens an application error into a row-level message.
func errorMessage(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		if len(appErr.Details) > 0 {
			parts := make([]string, 0, len(appErr.Details))
			for field, msg := range appErr.Details {
				parts = append(parts, field+": "+msg)
			}
			sort.Strings(parts)
			return strings.Join(parts, "; ")
		}
		return appErr.Message
	}
	return err.Error()
}
