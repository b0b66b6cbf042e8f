package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
)

// EmployeeRepository reads the employees reference table.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// List returns every employee ordered by name.
func (r *EmployeeRepository) List(ctx context.Context) ([]models.Employee, error) {
	const query = `SELECT id, full_name, email, role FROM employees ORDER BY full_name ASC`
	rows := []models.Employee{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return rows, nil
}
