package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/export"
)

type stubAttendanceLister struct {
	records []models.AttendanceRecord
	err     error
}

func (s stubAttendanceLister) ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	return s.records, s.err
}

type captureRenderer struct {
	dataset export.Dataset
	title   string
}

func (c *captureRenderer) Render(data export.Dataset, title string) ([]byte, error) {
	c.dataset = data
	c.title = title
	return []byte("%PDF"), nil
}

func exportFixture() []models.AttendanceRecord {
	return []models.AttendanceRecord{
		{
			ID:         "a1",
			EmployeeID: "E1",
			Date:       models.NewDate(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
			Status:     models.AttendanceStatusPresent,
			CreatedAt:  time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC),
			Employee:   &models.EmployeeSnapshot{FullName: "Alice Smith", Email: "alice@example.com", Role: "Engineer"},
		},
	}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(stubAttendanceLister{records: exportFixture()}, nil, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC) }

	file, err := svc.ExportAttendance(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "attendance_20240111_080000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Employee,Email,Role,Status,Recorded At", lines[0])
	assert.Equal(t, "2024-01-10,Alice Smith,alice@example.com,Engineer,present,2024-01-10T09:30:00Z", lines[1])
}

func TestExportServicePDFTitle(t *testing.T) {
	pdf := &captureRenderer{}
	svc := NewExportService(stubAttendanceLister{records: exportFixture()}, nil, nil, pdf, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC) }

	file, err := svc.ExportAttendance(context.Background(), "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "Attendance Report 2024-01-11", pdf.title)
	require.Len(t, pdf.dataset.Rows, 1)
	assert.Equal(t, "Alice Smith", pdf.dataset.Rows[0]["Employee"])
}

func TestExportServiceXLSX(t *testing.T) {
	svc := NewExportService(stubAttendanceLister{records: exportFixture()}, nil, nil, nil, nil)

	file, err := svc.ExportAttendance(context.Background(), "xlsx")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Filename, ".xlsx"))
	assert.Equal(t, "PK", string(file.Payload[:2]))
}

func TestExportServiceErrors(t *testing.T) {
	svc := NewExportService(stubAttendanceLister{}, nil, nil, nil, nil)
	_, err := svc.ExportAttendance(context.Background(), "docx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	failing := NewExportService(stubAttendanceLister{err: appErrors.Wrap(errors.New("timeout"), appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, "failed to load attendance")}, nil, nil, nil, nil)
	_, err = failing.ExportAttendance(context.Background(), "csv")
	assert.True(t, appErrors.Is(err, appErrors.ErrFetch))
}
