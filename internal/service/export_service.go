package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/pkg/dates"
	"github.com/noah-isme/stp-api/pkg/export"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

// ExportFormat selects the rendered manifest format.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportAssignmentRepository interface {
	ListByActor(ctx context.Context, actorID string, dateVariants []string) ([]models.AssignmentDetail, error)
}

// ExportResult carries the rendered manifest and its download metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders driver day manifests. Rendering is synchronous;
// the payload is streamed straight back to the caller.
type ExportService struct {
	assignments exportAssignmentRepository
	status      statusRepository
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(assignments exportAssignmentRepository, status statusRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{assignments: assignments, status: status, csv: csv, pdf: pdf, logger: logger}
}

// DriverManifest renders the actor's assignments for one travel date.
func (s *ExportService) DriverManifest(ctx context.Context, actorID, date string, format ExportFormat) (*ExportResult, error) {
	variants, err := dates.Variants(date)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByActor(ctx, actorID, variants)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	dataset := export.Dataset{
		Headers: []string{"Student No", "Student", "Flight", "Travel Date", "Pickup", "Delivery", "Notes"},
	}
	for _, a := range assignments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student No":  a.StudentNo,
			"Student":     a.StudentName,
			"Flight":      a.FlightCode,
			"Travel Date": a.TravelDate,
			"Pickup":      legCell(a.PickupStatus, a.PickupTime),
			"Delivery":    legCell(a.DeliveryStatus, a.DeliveryTime),
			"Notes":       a.Notes,
		})
	}

	normalized, err := dates.Normalize(date)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Pickup Manifest %s", normalized)
	return s.render(dataset, title, fmt.Sprintf("manifest-%s", normalized), format)
}

// DayStatusReport renders the full dashboard status table for one date.
func (s *ExportService) DayStatusReport(ctx context.Context, filter models.StatusFilter, format ExportFormat) (*ExportResult, error) {
	variants, err := dates.Variants(filter.Date)
	if err != nil {
		return nil, err
	}
	rows, err := s.status.AllJoinRows(ctx, filter, variants)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statuses")
	}

	dataset := export.Dataset{
		Headers: []string{"Student No", "Student", "Flight", "School", "Status", "Pickup Time", "Driver"},
	}
	for _, row := range rows {
		st := Derive(row)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student No":  st.StudentNo,
			"Student":     st.StudentName,
			"Flight":      st.FlightCode,
			"School":      strOrEmpty(st.SchoolName),
			"Status":      string(st.Status),
			"Pickup Time": timeCell(st.PickupTime),
			"Driver":      strOrEmpty(st.DriverName),
		})
	}

	normalized, err := dates.Normalize(filter.Date)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Status Report %s", normalized)
	return s.render(dataset, title, fmt.Sprintf("status-%s", normalized), format)
}

func (s *ExportService) render(dataset export.Dataset, title, basename string, format ExportFormat) (*ExportResult, error) {
	switch format {
	case FormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Filename: basename + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	case FormatCSV, "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Filename: basename + ".csv", ContentType: "text/csv", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func legCell(status models.LegStatus, at *time.Time) string {
	if status != models.LegCompleted {
		return string(status)
	}
	if at == nil {
		return string(status)
	}
	return fmt.Sprintf("%s %s", status, at.Format("15:04"))
}

func timeCell(at *time.Time) string {
	if at == nil {
		return ""
	}
	return at.Format("15:04")
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
