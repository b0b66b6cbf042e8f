package models

// Employee is read-only reference data maintained by administrative processes.
type Employee struct {
	ID       string `db:"id" json:"id" validate:"required"`
	FullName string `db:"full_name" json:"full_name" validate:"required"`
	Email    string `db:"email" json:"email"`
	Role     string `db:"role" json:"role"`
}

// EmployeeSnapshot is the employee projection embedded in joined attendance rows.
type EmployeeSnapshot struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
