package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

type importSchoolRepository interface {
	FindByName(ctx context.Context, name string) (*models.School, error)
	FindClientByName(ctx context.Context, name string) (*models.Client, error)
}

// Spreadsheet headers accepted on the first row, lowercased. Unknown
// columns are ignored.
var importHeaders = map[string]string{
	"student no":       "student_no",
	"travel date":      "travel_date",
	"trip":             "trip_code",
	"scheduled time":   "scheduled_time",
	"actual time":      "actual_time",
	"flight":           "flight_code",
	"d/i":              "direction",
	"sex":              "sex",
	"given name":       "given_name",
	"family name":      "family_name",
	"host given name":  "host_given_name",
	"host family name": "host_family_name",
	"phone":            "phone",
	"address":          "address",
	"city":             "city",
	"school":           "school",
	"client":           "client",
}

// ImportService loads arrival records from an uploaded spreadsheet. Each
// row is validated independently; a bad row never aborts the rest.
type ImportService struct {
	students *StudentService
	schools  importSchoolRepository
	maxRows  int
	logger   *zap.Logger
}

// NewImportService constructs the import service.
func NewImportService(students *StudentService, schools importSchoolRepository, maxRows int, logger *zap.Logger) *ImportService {
	if maxRows <= 0 {
		maxRows = 2000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{students: students, schools: schools, maxRows: maxRows, logger: logger}
}

// ImportWorkbook reads the first sheet and creates one arrival record per
// data row, reporting per-row outcomes.
func (s *ImportService) ImportWorkbook(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is not a readable xlsx workbook")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "failed to read worksheet rows")
	}
	if len(rows) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "worksheet has no data rows")
	}
	if len(rows)-1 > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("worksheet exceeds the %d row limit", s.maxRows))
	}

	columns := mapHeaders(rows[0])
	if _, ok := findColumn(columns, "travel_date"); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing required column: travel date")
	}
	if _, ok := findColumn(columns, "given_name"); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing required column: given name")
	}

	report := &models.ImportReport{}
	for i, raw := range rows[1:] {
		rowNo := i + 2
		if blankRow(raw) {
			continue
		}
		report.Total++
		result := s.importRow(ctx, columns, raw, i+1)
		result.Row = rowNo
		if result.Error != "" {
			report.Failed++
		} else {
			report.Imported++
		}
		report.Rows = append(report.Rows, result)
	}

	s.logger.Info("student import finished",
		zap.Int("total", report.Total),
		zap.Int("imported", report.Imported),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *ImportService) importRow(ctx context.Context, columns map[int]string, raw []string, order int) models.ImportRowResult {
	cell := func(field string) string {
		for idx, name := range columns {
			if name == field && idx < len(raw) {
				return strings.TrimSpace(raw[idx])
			}
		}
		return ""
	}

	req := CreateStudentRequest{
		StudentNo:      cell("student_no"),
		TravelDate:     cell("travel_date"),
		TripCode:       cell("trip_code"),
		ScheduledTime:  cell("scheduled_time"),
		ActualTime:     cell("actual_time"),
		FlightCode:     cell("flight_code"),
		Direction:      strings.ToUpper(cell("direction")),
		Sex:            cell("sex"),
		GivenName:      cell("given_name"),
		FamilyName:     cell("family_name"),
		HostGivenName:  cell("host_given_name"),
		HostFamilyName: cell("host_family_name"),
		Phone:          cell("phone"),
		Address:        cell("address"),
		City:           cell("city"),
		ExcelOrder:     order,
	}
	if req.Direction == "" {
		req.Direction = string(models.DirectionArrival)
	}

	if name := cell("school"); name != "" {
		school, err := s.schools.FindByName(ctx, name)
		if err != nil {
			return models.ImportRowResult{Error: "school lookup failed: " + err.Error()}
		}
		if school == nil {
			return models.ImportRowResult{Error: "unknown school: " + name}
		}
		req.SchoolID = &school.ID
	}
	if name := cell("client"); name != "" {
		client, err := s.schools.FindClientByName(ctx, name)
		if err != nil {
			return models.ImportRowResult{Error: "client lookup failed: " + err.Error()}
		}
		if client == nil {
			return models.ImportRowResult{Error: "unknown client: " + name}
		}
		req.ClientID = &client.ID
	}

	student, err := s.students.Create(ctx, req)
	if err != nil {
		return models.ImportRowResult{StudentNo: req.StudentNo, Error: err.Error()}
	}
	return models.ImportRowResult{StudentNo: student.StudentNo}
}

func mapHeaders(header []string) map[int]string {
	columns := make(map[int]string, len(header))
	for idx, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		if field, ok := importHeaders[name]; ok {
			columns[idx] = field
		}
	}
	return columns
}

func findColumn(columns map[int]string, field string) (int, bool) {
	for idx, name := range columns {
		if name == field {
			return idx, true
		}
	}
	return 0, false
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
