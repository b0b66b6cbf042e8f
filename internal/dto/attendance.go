package dto

// MarkAttendanceRequest is the payload for recording attendance for one employee on one day.
type MarkAttendanceRequest struct {
	EmployeeID string `json:"employee_id" form:"employee_id"`
	Date       string `json:"date" form:"date"`
	Status     string `json:"status" form:"status" validate:"required,attendance_status"`
}

// UpdateAttendanceStatusRequest sets a record's status.
type UpdateAttendanceStatusRequest struct {
	Status string `json:"status" form:"status" validate:"required,attendance_status"`
}

// ExportAttendanceQuery selects the export format.
type ExportAttendanceQuery struct {
	Format string `form:"format"`
}
