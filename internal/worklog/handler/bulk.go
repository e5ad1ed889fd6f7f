package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/worklog/worklog-backend/internal/worklog/service"
	"github.com/worklog/worklog-backend/pkg/errors"
	"github.com/worklog/worklog-backend/pkg/httputil"
	"github.com/worklog/worklog-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// maxUploadBytes caps bulk upload size at 10 MiB.
const maxUploadBytes = 10 << 20

// requiredColumns are the sheet headers the upload must carry. Matching
// is case-insensitive.
var requiredColumns = []string{"date", "username", "coder name", "client", "task", "count", "time"}

// BulkHandler handles spreadsheet uploads of work entries.
type BulkHandler struct {
	service *service.BulkService
	logger  *logger.Logger
}

// NewBulkHandler creates a new bulk upload handler.
func NewBulkHandler(svc *service.BulkService, log *logger.Logger) *BulkHandler {
	return &BulkHandler{service: svc, logger: log}
}

// Upload ingests an .xlsx worklog sheet
// POST /admin/bulk-upload
func (h *BulkHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.Error(w, errors.BadRequest("could not read the multipart upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("the upload must contain a 'file' field"))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		httputil.Error(w, errors.BadRequest("only .xlsx files are supported"))
		return
	}

	rows, err := parseWorksheet(file)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.Ingest(r.Context(), httputil.GetUserID(r.Context()), rows)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	status := http.StatusOK
	if report.Failed > 0 {
		status = http.StatusUnprocessableEntity
	}
	httputil.JSON(w, status, report)
}

// parseWorksheet reads the first sheet into raw bulk rows. Row numbers
// are 1-based sheet rows, so data starts at row 2.
func parseWorksheet(file io.Reader) ([]service.BulkRow, error) {
	wb, err := excelize.OpenReader(file)
	if err != nil {
		return nil, errors.BadRequest("the file is not a readable .xlsx workbook")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.BadRequest("the workbook contains no sheets")
	}

	cells, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, errors.BadRequest("could not read the first sheet")
	}
	if len(cells) < 2 {
		return nil, errors.BadRequest("the sheet has no data rows")
	}

	columns, err := mapColumns(cells[0])
	if err != nil {
		return nil, err
	}

	rows := make([]service.BulkRow, 0, len(cells)-1)
	for i, record := range cells[1:] {
		if isBlankRow(record) {
			continue
		}
		rows = append(rows, service.BulkRow{
			RowNumber:  i + 2,
			Date:       cellAt(record, columns["date"]),
			Username:   cellAt(record, columns["username"]),
			CoderName:  cellAt(record, columns["coder name"]),
			ClientName: cellAt(record, columns["client"]),
			TaskName:   cellAt(record, columns["task"]),
			Count:      cellAt(record, columns["count"]),
			Time:       cellAt(record, columns["time"]),
		})
	}

	return rows, nil
}

// mapColumns locates each required header in the first sheet row.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(requiredColumns))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	missing := make([]string, 0)
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.BadRequest("the sheet is missing required columns: " + strings.Join(missing, ", "))
	}

	return columns, nil
}

func cellAt(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
