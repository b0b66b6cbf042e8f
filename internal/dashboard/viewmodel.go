// Package dashboard holds the attendance dashboard's presentation logic: it
// loads the page data and converts mutation outcomes into notifications.
package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dto"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/service"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
)

const (
	msgUpdated = "Attendance updated"
	msgDeleted = "Attendance deleted"
)

// AttendanceService is the subset of service.AttendanceService the view-model drives.
type AttendanceService interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error)
	MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (*models.AttendanceRecord, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateAttendanceStatusRequest) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) (*models.AttendanceRecord, error)
	Today() models.Date
}

// State is everything the dashboard page renders. Each read carries its own error.
type State struct {
	Employees     []models.Employee
	EmployeesErr  error
	Attendance    []models.AttendanceRecord
	AttendanceErr error
	Today         models.Date
}

// Loading reports whether either read is still missing. A rendered State is never loading.
func (s *State) Loading() bool {
	return (s.Employees == nil && s.EmployeesErr == nil) || (s.Attendance == nil && s.AttendanceErr == nil)
}

// ViewModel drives the attendance dashboard.
type ViewModel struct {
	svc    AttendanceService
	logger *zap.Logger
}

// NewViewModel constructs a ViewModel.
func NewViewModel(svc AttendanceService, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{svc: svc, logger: logger}
}

// Load runs both reads concurrently. A failure in one does not cancel the other.
func (vm *ViewModel) Load(ctx context.Context) *State {
	state := &State{Today: vm.svc.Today()}

	var g errgroup.Group
	g.Go(func() error {
		employees, err := vm.svc.ListEmployees(ctx)
		if err != nil {
			state.EmployeesErr = err
			return nil
		}
		if employees == nil {
			employees = []models.Employee{}
		}
		state.Employees = employees
		return nil
	})
	g.Go(func() error {
		records, err := vm.svc.ListAttendance(ctx)
		if err != nil {
			state.AttendanceErr = err
			return nil
		}
		if records == nil {
			records = []models.AttendanceRecord{}
		}
		state.Attendance = records
		return nil
	})
	_ = g.Wait()

	if state.EmployeesErr != nil {
		vm.logger.Warn("dashboard employees unavailable", zap.Error(state.EmployeesErr))
	}
	if state.AttendanceErr != nil {
		vm.logger.Warn("dashboard attendance unavailable", zap.Error(state.AttendanceErr))
	}
	return state
}

// MarkAttendance records attendance and reports the outcome. Errors never escape.
func (vm *ViewModel) MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (Notification, *models.AttendanceRecord) {
	record, err := vm.svc.MarkAttendance(ctx, req)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrValidation) {
			return failure(appErrors.FromError(err).Message), nil
		}
		return failure(service.MsgMarkFailed), nil
	}
	return success(fmt.Sprintf("Attendance marked as %s for %s", record.Status, record.Date)), record
}

// ToggleStatus flips a record between present and absent.
func (vm *ViewModel) ToggleStatus(ctx context.Context, id string, current models.AttendanceStatus) (Notification, *models.AttendanceRecord) {
	record, err := vm.svc.UpdateStatus(ctx, id, dto.UpdateAttendanceStatusRequest{Status: string(current.Toggle())})
	if err != nil {
		return failure(service.MsgUpdateFailed), nil
	}
	return success(msgUpdated), record
}

// Delete removes a record.
func (vm *ViewModel) Delete(ctx context.Context, id string) (Notification, *models.AttendanceRecord) {
	record, err := vm.svc.Delete(ctx, id)
	if err != nil {
		return failure(service.MsgDeleteFailed), nil
	}
	return success(msgDeleted), record
}
