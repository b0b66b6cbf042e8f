package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db, now: time.Now}
}

// attendanceRow is the raw joined shape; employee columns are nullable so a
// dangling reference surfaces as a missing snapshot instead of a dropped row.
type attendanceRow struct {
	ID               string                  `db:"id"`
	EmployeeID       string                  `db:"employee_id"`
	Date             models.Date             `db:"date"`
	Status           models.AttendanceStatus `db:"status"`
	CreatedAt        time.Time               `db:"created_at"`
	EmployeeFullName sql.NullString          `db:"employee_full_name"`
	EmployeeEmail    sql.NullString          `db:"employee_email"`
	EmployeeRole     sql.NullString          `db:"employee_role"`
}

func (row attendanceRow) toModel() models.AttendanceRecord {
	record := models.AttendanceRecord{
		ID:         row.ID,
		EmployeeID: row.EmployeeID,
		Date:       row.Date,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
	}
	if row.EmployeeFullName.Valid {
		record.Employee = &models.EmployeeSnapshot{
			FullName: row.EmployeeFullName.String,
			Email:    row.EmployeeEmail.String,
			Role:     row.EmployeeRole.String,
		}
	}
	return record
}

const attendanceColumns = `id, employee_id, date, status, created_at`

// ListWithEmployees returns every record joined with its employee, newest date first.
func (r *AttendanceRepository) ListWithEmployees(ctx context.Context) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.employee_id, a.date, a.status, a.created_at,
        e.full_name AS employee_full_name, e.email AS employee_email, e.role AS employee_role
        FROM attendance a
        LEFT JOIN employees e ON e.id = a.employee_id
        ORDER BY a.date DESC, a.created_at DESC`
	var rows []attendanceRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	records := make([]models.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}
	return records, nil
}

// Insert stores a new record and returns the persisted row.
func (r *AttendanceRepository) Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}
	const query = `INSERT INTO attendance (id, employee_id, date, status, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + attendanceColumns
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.EmployeeID, record.Date, record.Status, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert attendance: %w", err)
	}
	return &stored, nil
}

// UpdateStatus sets the status of an existing record. It returns sql.ErrNoRows when the id is unknown.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	const query = `UPDATE attendance SET status = $2 WHERE id = $1 RETURNING ` + attendanceColumns
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, id, status); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update attendance status: %w", err)
	}
	return &stored, nil
}

// Delete removes a record and returns its last state. It returns sql.ErrNoRows when the id is unknown.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	const query = `DELETE FROM attendance WHERE id = $1 RETURNING ` + attendanceColumns
	var deleted models.AttendanceRecord
	if err := r.db.GetContext(ctx, &deleted, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("delete attendance: %w", err)
	}
	return &deleted, nil
}
