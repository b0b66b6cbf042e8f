package models

import (
	"sort"
	"strings"
	"time"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// ParseAttendanceStatus normalises case and surrounding whitespace.
func ParseAttendanceStatus(raw string) AttendanceStatus {
	return AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Toggle flips present and absent.
// TODO: revisit once product decides how the row toggle behaves for statuses beyond present/absent.
func (s AttendanceStatus) Toggle() AttendanceStatus {
	if s == AttendanceStatusPresent {
		return AttendanceStatusAbsent
	}
	return AttendanceStatusPresent
}

// AttendanceRecord is a dated presence entry for one employee.
type AttendanceRecord struct {
	ID         string            `db:"id" json:"id" validate:"required"`
	EmployeeID string            `db:"employee_id" json:"employee_id" validate:"required"`
	Date       Date              `db:"date" json:"date"`
	Status     AttendanceStatus  `db:"status" json:"status" validate:"attendance_status"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	Employee   *EmployeeSnapshot `db:"-" json:"employee,omitempty"`
}

// SortNewestFirst orders records by date descending, newest insert first within a day.
func SortNewestFirst(records []AttendanceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date.Time) {
			return records[i].Date.After(records[j].Date.Time)
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
