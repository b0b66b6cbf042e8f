package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dto"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/service"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/response"
)

type attendanceAPI interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error)
	MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (*models.AttendanceRecord, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateAttendanceStatusRequest) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) (*models.AttendanceRecord, error)
}

type attendanceExporter interface {
	ExportAttendance(ctx context.Context, format string) (*service.ExportFile, error)
}

// AttendanceHandler exposes the dashboard operations as a JSON API.
type AttendanceHandler struct {
	service  attendanceAPI
	exporter attendanceExporter
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceAPI, exporter attendanceExporter) *AttendanceHandler {
	return &AttendanceHandler{service: svc, exporter: exporter}
}

// ListEmployees godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/employees [get]
func (h *AttendanceHandler) ListEmployees(c *gin.Context) {
	employees, err := h.service.ListEmployees(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, map[string]interface{}{"count": len(employees)})
}

// ListAttendance godoc
// @Summary List attendance records
// @Description Records joined with employee details, newest date first
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/attendance [get]
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	records, err := h.service.ListAttendance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// Mark godoc
// @Summary Mark attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	record, err := h.service.MarkAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// UpdateStatus godoc
// @Summary Update attendance status
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance ID"
// @Param payload body dto.UpdateAttendanceStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/attendance/{id} [patch]
func (h *AttendanceHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAttendanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	record, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete godoc
// @Summary Delete attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance ID"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	record, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Export godoc
// @Summary Export attendance
// @Tags Attendance
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /api/v1/attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	var query dto.ExportAttendanceQuery
	_ = c.ShouldBindQuery(&query)
	file, err := h.exporter.ExportAttendance(c.Request.Context(), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
