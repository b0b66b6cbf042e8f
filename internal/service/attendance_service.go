package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dto"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
)

const (
	cacheKeyEmployees      = "employees:list"
	cacheKeyAttendance     = "attendance:list"
	attendanceCachePattern = "attendance:*"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Messages shown to users when a mutation fails. Causes are logged, never surfaced.
const (
	MsgSelectEmployee   = "Please select an employee"
	MsgMarkFailed       = "Failed to mark attendance"
	MsgUpdateFailed     = "Failed to update attendance"
	MsgDeleteFailed     = "Failed to delete attendance"
	msgEmployeesFailed  = "failed to load employees"
	msgAttendanceFailed = "failed to load attendance"
)

type employeeReader interface {
	List(ctx context.Context) ([]models.Employee, error)
}

type attendanceStore interface {
	ListWithEmployees(ctx context.Context) ([]models.AttendanceRecord, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) (*models.AttendanceRecord, error)
}

// QueryCache caches read results and drops them after writes. Generation must
// change on every Invalidate of the same pattern.
type QueryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Generation(ctx context.Context, pattern string) (int64, error)
	Invalidate(ctx context.Context, pattern string) error
}

// attendanceSnapshot is the cached form of the attendance list.
type attendanceSnapshot struct {
	Generation int64                     `json:"generation"`
	Records    []models.AttendanceRecord `json:"records"`
}

// AttendanceService reads the roster and attendance list and applies attendance mutations.
type AttendanceService struct {
	employees  employeeReader
	attendance attendanceStore
	cache      QueryCache
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	now        func() time.Time
	location   *time.Location
}

// NewAttendanceService constructs the attendance service. cache may be nil.
func NewAttendanceService(employees employeeReader, attendance attendanceStore, cache QueryCache, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	RegisterAttendanceValidations(validate)
	return &AttendanceService{
		employees:  employees,
		attendance: attendance,
		cache:      cache,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		location:   time.Local,
	}
}

// RegisterAttendanceValidations installs the attendance_status tag on validate.
func RegisterAttendanceValidations(validate *validator.Validate) {
	_ = validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.ParseAttendanceStatus(fl.Field().String()).Valid()
	})
}

// Today returns the default date offered by the dashboard's date picker.
func (s *AttendanceService) Today() models.Date {
	return models.Today(s.now(), s.location)
}

// ListEmployees returns every employee ordered by name.
func (s *AttendanceService) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var cached []models.Employee
	if s.cacheGet(ctx, cacheKeyEmployees, &cached) {
		return cached, nil
	}

	employees, err := s.employees.List(ctx)
	if err != nil {
		s.logger.Warn("list employees failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, msgEmployeesFailed)
	}
	for i := range employees {
		if err := s.validator.Struct(employees[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, msgEmployeesFailed)
		}
	}

	s.cacheSet(ctx, cacheKeyEmployees, employees)
	return employees, nil
}

// ListAttendance returns attendance joined with employee details, newest date first.
// The cache generation is read before the store so that a list fetched while a
// mutation commits is never served after that mutation's invalidation.
func (s *AttendanceService) ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	generation, cacheable := s.cacheGeneration(ctx, attendanceCachePattern)

	var snapshot attendanceSnapshot
	if cacheable && s.cacheGet(ctx, cacheKeyAttendance, &snapshot) && snapshot.Generation == generation {
		records := snapshot.Records
		models.SortNewestFirst(records)
		return records, nil
	}

	records, err := s.attendance.ListWithEmployees(ctx)
	if err != nil {
		s.logger.Warn("list attendance failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, msgAttendanceFailed)
	}
	for i := range records {
		if err := s.checkRecord(&records[i]); err != nil {
			s.logger.Warn("attendance row rejected", zap.String("id", records[i].ID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrFetch.Code, appErrors.ErrFetch.Status, msgAttendanceFailed)
		}
	}
	if cacheable {
		s.cacheSet(ctx, cacheKeyAttendance, attendanceSnapshot{Generation: generation, Records: records})
	}

	models.SortNewestFirst(records)
	return records, nil
}

// MarkAttendance records a status for an employee on a day. An empty date means today.
func (s *AttendanceService) MarkAttendance(ctx context.Context, req dto.MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.EmployeeID == "" {
		s.metrics.RecordMutation("mark", outcomeFailure)
		return nil, appErrors.Clone(appErrors.ErrValidation, MsgSelectEmployee)
	}
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordMutation("mark", outcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance status")
	}

	date := s.Today()
	if req.Date != "" {
		parsed, err := models.ParseDate(req.Date)
		if err != nil {
			s.metrics.RecordMutation("mark", outcomeFailure)
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
		}
		date = parsed
	}

	record := &models.AttendanceRecord{
		EmployeeID: req.EmployeeID,
		Date:       date,
		Status:     models.ParseAttendanceStatus(req.Status),
	}
	created, err := s.attendance.Insert(ctx, record)
	if err != nil {
		return nil, s.mutationFailed("mark", MsgMarkFailed, err)
	}
	s.mutationSucceeded(ctx, "mark")
	return created, nil
}

// UpdateStatus sets the status of an existing record.
func (s *AttendanceService) UpdateStatus(ctx context.Context, id string, req dto.UpdateAttendanceStatusRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordMutation("update", outcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance status")
	}
	updated, err := s.attendance.UpdateStatus(ctx, id, models.ParseAttendanceStatus(req.Status))
	if err != nil {
		return nil, s.mutationFailed("update", MsgUpdateFailed, err)
	}
	s.mutationSucceeded(ctx, "update")
	return updated, nil
}

// Delete removes a record and returns its last state. Unknown ids fail like any other backend error.
func (s *AttendanceService) Delete(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	deleted, err := s.attendance.Delete(ctx, id)
	if err != nil {
		return nil, s.mutationFailed("delete", MsgDeleteFailed, err)
	}
	s.mutationSucceeded(ctx, "delete")
	return deleted, nil
}

func (s *AttendanceService) checkRecord(record *models.AttendanceRecord) error {
	if err := s.validator.Struct(record); err != nil {
		return err
	}
	if record.Date.IsZero() {
		return fmt.Errorf("attendance %s has no date", record.ID)
	}
	if record.Employee == nil {
		return fmt.Errorf("attendance %s has no employee", record.ID)
	}
	return nil
}

func (s *AttendanceService) mutationFailed(op, message string, err error) error {
	s.logger.Warn("attendance mutation failed", zap.String("operation", op), zap.Error(err))
	s.metrics.RecordMutation(op, outcomeFailure)
	return appErrors.Wrap(err, appErrors.ErrBackend.Code, appErrors.ErrBackend.Status, message)
}

// mutationSucceeded drops cached attendance reads once the write has been acknowledged.
func (s *AttendanceService) mutationSucceeded(ctx context.Context, op string) {
	s.metrics.RecordMutation(op, outcomeSuccess)
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, attendanceCachePattern); err != nil {
		s.logger.Warn("attendance cache invalidation failed", zap.String("operation", op), zap.Error(err))
	}
}

func (s *AttendanceService) cacheGeneration(ctx context.Context, pattern string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, pattern)
	if err != nil {
		s.logger.Warn("attendance cache bypassed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *AttendanceService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *AttendanceService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}
