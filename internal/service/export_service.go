package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/export"
)

type attendanceLister interface {
	ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered attendance export ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

var attendanceExportHeaders = []string{"Date", "Employee", "Email", "Role", "Status", "Recorded At"}

// ExportService renders the current attendance list into downloadable files.
type ExportService struct {
	attendance attendanceLister
	csv        csvRenderer
	pdf        pdfRenderer
	xlsx       xlsxRenderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(attendance attendanceLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter("Attendance")
	}
	return &ExportService{attendance: attendance, csv: csv, pdf: pdf, xlsx: xlsx, logger: logger, now: time.Now}
}

// ExportAttendance renders the attendance list in the requested format (csv, pdf or xlsx).
func (s *ExportService) ExportAttendance(ctx context.Context, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}

	records, err := s.attendance.ListAttendance(ctx)
	if err != nil {
		return nil, err
	}
	dataset := buildAttendanceDataset(records)
	generatedAt := s.now().UTC()

	var payload []byte
	switch format {
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Attendance Report %s", generatedAt.Format(models.DateLayout)))
	case export.FormatXLSX:
		payload, err = s.xlsx.Render(dataset)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.logger.Error("attendance export failed", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("attendance_%s%s", generatedAt.Format("20060102_150405"), format.Extension()),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

func buildAttendanceDataset(records []models.AttendanceRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		row := map[string]string{
			"Date":        record.Date.String(),
			"Status":      string(record.Status),
			"Recorded At": formatReportTime(record.CreatedAt),
		}
		if record.Employee != nil {
			row["Employee"] = record.Employee.FullName
			row["Email"] = record.Employee.Email
			row["Role"] = record.Employee.Role
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: attendanceExportHeaders, Rows: rows}
}

func formatReportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
