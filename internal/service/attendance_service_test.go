package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dto"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
)

type fakeEmployeeReader struct {
	employees []models.Employee
	err       error
	calls     int
}

func (f *fakeEmployeeReader) List(ctx context.Context) ([]models.Employee, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Employee(nil), f.employees...), nil
}

// fakeAttendanceStore keeps rows in memory and joins employee snapshots on read.
type fakeAttendanceStore struct {
	mu        sync.Mutex
	employees map[string]models.Employee
	records   map[string]models.AttendanceRecord
	clock     time.Time
	listErr   error
	insertErr error
	calls     int
}

func newFakeAttendanceStore(employees ...models.Employee) *fakeAttendanceStore {
	store := &fakeAttendanceStore{
		employees: make(map[string]models.Employee),
		records:   make(map[string]models.AttendanceRecord),
		clock:     time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
	}
	for _, e := range employees {
		store.employees[e.ID] = e
	}
	return store
}

func (f *fakeAttendanceStore) ListWithEmployees(ctx context.Context) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.AttendanceRecord, 0, len(f.records))
	for _, r := range f.records {
		if e, ok := f.employees[r.EmployeeID]; ok {
			r.Employee = &models.EmployeeSnapshot{FullName: e.FullName, Email: e.Email, Role: e.Role}
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeAttendanceStore) Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if _, ok := f.employees[record.EmployeeID]; !ok {
		return nil, errors.New("violates foreign key constraint")
	}
	f.clock = f.clock.Add(time.Second)
	created := *record
	created.ID = uuid.NewString()
	created.CreatedAt = f.clock
	f.records[created.ID] = created
	return &created, nil
}

func (f *fakeAttendanceStore) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r.Status = status
	f.records[id] = r
	return &r, nil
}

func (f *fakeAttendanceStore) Delete(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(f.records, id)
	return &r, nil
}

// countingCache stores JSON like the Redis cache does and records invalidations.
type countingCache struct {
	mu            sync.Mutex
	invalidations []string
	entries       map[string][]byte
	generations   map[string]int64
	invalidateErr error
}

func (c *countingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *countingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	c.entries[key] = raw
	return nil
}

func (c *countingCache) Generation(ctx context.Context, pattern string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[pattern], nil
}

func (c *countingCache) Invalidate(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations = append(c.invalidations, pattern)
	if c.generations == nil {
		c.generations = make(map[string]int64)
	}
	c.generations[pattern]++
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return c.invalidateErr
}

// pausingListStore holds its first list result until release is closed, so a
// write can commit and invalidate while that read is still in flight.
type pausingListStore struct {
	*fakeAttendanceStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *pausingListStore) ListWithEmployees(ctx context.Context) ([]models.AttendanceRecord, error) {
	records, err := p.fakeAttendanceStore.ListWithEmployees(ctx)
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	return records, err
}

var (
	empAlice = models.Employee{ID: "E1", FullName: "Alice Smith", Email: "alice@example.com", Role: "Engineer"}
	empBob   = models.Employee{ID: "E2", FullName: "Bob Jones", Email: "bob@example.com", Role: "Designer"}
)

func newAttendanceFixture() (*AttendanceService, *fakeAttendanceStore, *countingCache) {
	store := newFakeAttendanceStore(empAlice, empBob)
	cache := &countingCache{}
	svc := NewAttendanceService(&fakeEmployeeReader{employees: []models.Employee{empAlice, empBob}}, store, cache, nil, nil, NewMetricsService())
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	svc.location = time.UTC
	return svc, store, cache
}

func TestAttendanceServiceMarkScenario(t *testing.T) {
	svc, _, cache := newAttendanceFixture()
	ctx := context.Background()

	record, err := svc.MarkAttendance(ctx, dto.MarkAttendanceRequest{EmployeeID: "E1", Date: "2024-01-10", Status: "present"})
	require.NoError(t, err)
	assert.Equal(t, []string{attendanceCachePattern}, cache.invalidations)
	assert.Equal(t, "2024-01-10", record.Date.String())

	list, err := svc.ListAttendance(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "E1", list[0].EmployeeID)
	assert.Equal(t, models.AttendanceStatusPresent, list[0].Status)
	require.NotNil(t, list[0].Employee)
	assert.Equal(t, "Alice Smith", list[0].Employee.FullName)
}

func TestAttendanceServiceMarkDefaultsToToday(t *testing.T) {
	svc, _, _ := newAttendanceFixture()

	record, err := svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{EmployeeID: "E2", Status: "absent"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", record.Date.String())
	assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
}

func TestAttendanceServiceMarkWithoutEmployee(t *testing.T) {
	svc, store, cache := newAttendanceFixture()

	_, err := svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{Date: "2024-01-10", Status: "present"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, MsgSelectEmployee, appErrors.FromError(err).Message)
	assert.Zero(t, store.calls)
	assert.Empty(t, cache.invalidations)
}

func TestAttendanceServiceMarkWithBlankEmployee(t *testing.T) {
	svc, store, cache := newAttendanceFixture()

	_, err := svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{EmployeeID: "  \t", Date: "2024-01-10", Status: "present"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, MsgSelectEmployee, appErrors.FromError(err).Message)
	assert.Zero(t, store.calls)
	assert.Empty(t, cache.invalidations)
}

func TestAttendanceServiceMarkTrimsEmployeeID(t *testing.T) {
	svc, _, _ := newAttendanceFixture()

	record, err := svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{EmployeeID: " E1 ", Date: "2024-01-10", Status: "present"})
	require.NoError(t, err)
	assert.Equal(t, "E1", record.EmployeeID)
}

func TestAttendanceServiceMarkRejectsBadInput(t *testing.T) {
	svc, store, _ := newAttendanceFixture()

	_, err := svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{EmployeeID: "E1", Status: "late"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{EmployeeID: "E1", Date: "10/01/2024", Status: "present"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, store.calls)
}

func TestAttendanceServiceMarkBackendFailure(t *testing.T) {
	svc, store, cache := newAttendanceFixture()
	store.insertErr = errors.New("connection reset")

	_, err := svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{EmployeeID: "E1", Date: "2024-01-10", Status: "present"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
	assert.Equal(t, MsgMarkFailed, appErrors.FromError(err).Message)
	assert.Empty(t, cache.invalidations)
}

func TestAttendanceServiceToggleTwiceRestoresStatus(t *testing.T) {
	svc, _, cache := newAttendanceFixture()
	ctx := context.Background()

	record, err := svc.MarkAttendance(ctx, dto.MarkAttendanceRequest{EmployeeID: "E1", Date: "2024-01-10", Status: "present"})
	require.NoError(t, err)

	first, err := svc.UpdateStatus(ctx, record.ID, dto.UpdateAttendanceStatusRequest{Status: string(record.Status.Toggle())})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, first.Status)

	second, err := svc.UpdateStatus(ctx, record.ID, dto.UpdateAttendanceStatusRequest{Status: string(first.Status.Toggle())})
	require.NoError(t, err)
	assert.Equal(t, record.Status, second.Status)
	assert.Len(t, cache.invalidations, 3)
}

func TestAttendanceServiceUpdateUnknownRecord(t *testing.T) {
	svc, _, cache := newAttendanceFixture()

	_, err := svc.UpdateStatus(context.Background(), "missing", dto.UpdateAttendanceStatusRequest{Status: "absent"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
	assert.Equal(t, MsgUpdateFailed, appErrors.FromError(err).Message)
	assert.Empty(t, cache.invalidations)
}

func TestAttendanceServiceDelete(t *testing.T) {
	svc, _, cache := newAttendanceFixture()
	ctx := context.Background()

	record, err := svc.MarkAttendance(ctx, dto.MarkAttendanceRequest{EmployeeID: "E2", Date: "2024-01-09", Status: "absent"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, deleted.ID)
	assert.Len(t, cache.invalidations, 2)

	list, err := svc.ListAttendance(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Delete(ctx, record.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrBackend))
	assert.Equal(t, MsgDeleteFailed, appErrors.FromError(err).Message)
	assert.Len(t, cache.invalidations, 2)
}

func TestAttendanceServiceInvalidationFailureStillSucceeds(t *testing.T) {
	svc, _, cache := newAttendanceFixture()
	cache.invalidateErr = errors.New("redis unavailable")

	_, err := svc.MarkAttendance(context.Background(), dto.MarkAttendanceRequest{EmployeeID: "E1", Date: "2024-01-10", Status: "present"})
	require.NoError(t, err)
	assert.Len(t, cache.invalidations, 1)
}

func TestAttendanceServiceListUsesCacheUntilInvalidated(t *testing.T) {
	svc, store, _ := newAttendanceFixture()
	ctx := context.Background()

	_, err := svc.ListAttendance(ctx)
	require.NoError(t, err)
	_, err = svc.ListAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)

	_, err = svc.MarkAttendance(ctx, dto.MarkAttendanceRequest{EmployeeID: "E1", Date: "2024-01-10", Status: "present"})
	require.NoError(t, err)

	list, err := svc.ListAttendance(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 3, store.calls)
}

func TestAttendanceServiceListStartedBeforeMarkIsNotServedAfterIt(t *testing.T) {
	svc, store, cache := newAttendanceFixture()
	paused := &pausingListStore{fakeAttendanceStore: store, entered: make(chan struct{}), release: make(chan struct{})}
	svc.attendance = paused
	ctx := context.Background()

	inFlight := make(chan []models.AttendanceRecord, 1)
	go func() {
		list, err := svc.ListAttendance(ctx)
		assert.NoError(t, err)
		inFlight <- list
	}()
	<-paused.entered

	_, err := svc.MarkAttendance(ctx, dto.MarkAttendanceRequest{EmployeeID: "E1", Date: "2024-01-10", Status: "present"})
	require.NoError(t, err)
	require.Equal(t, []string{attendanceCachePattern}, cache.invalidations)

	close(paused.release)
	assert.Empty(t, <-inFlight)

	list, err := svc.ListAttendance(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "E1", list[0].EmployeeID)
	assert.Equal(t, models.AttendanceStatusPresent, list[0].Status)

	cached, err := svc.ListAttendance(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestAttendanceServiceListOrdersNewestFirst(t *testing.T) {
	svc, store, _ := newAttendanceFixture()
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		store.records[uuid.NewString()] = models.AttendanceRecord{
			ID:         uuid.NewString(),
			EmployeeID: "E1",
			Date:       models.NewDate(base.AddDate(0, 0, rng.Intn(30))),
			Status:     models.AttendanceStatusPresent,
			CreatedAt:  base.Add(time.Duration(rng.Intn(100000)) * time.Second),
		}
	}

	list, err := svc.ListAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 50)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].Date.After(list[i-1].Date.Time), "record %d is newer than its predecessor", i)
	}
}

func TestAttendanceServiceListRejectsMalformedRows(t *testing.T) {
	svc, store, _ := newAttendanceFixture()
	store.records["orphan"] = models.AttendanceRecord{
		ID:         "orphan",
		EmployeeID: "E404",
		Date:       models.NewDate(time.Now()),
		Status:     models.AttendanceStatusPresent,
	}

	_, err := svc.ListAttendance(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrFetch))

	delete(store.records, "orphan")
	store.records["bad-status"] = models.AttendanceRecord{
		ID:         "bad-status",
		EmployeeID: "E1",
		Date:       models.NewDate(time.Now()),
		Status:     "late",
	}
	_, err = svc.ListAttendance(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrFetch))
}

func TestAttendanceServiceListFailures(t *testing.T) {
	store := newFakeAttendanceStore()
	store.listErr = errors.New("timeout")
	employees := &fakeEmployeeReader{err: errors.New("timeout")}
	svc := NewAttendanceService(employees, store, nil, nil, nil, nil)

	_, err := svc.ListAttendance(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrFetch))

	_, err = svc.ListEmployees(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrFetch))
}

func TestAttendanceServiceListEmployeesCached(t *testing.T) {
	employees := &fakeEmployeeReader{employees: []models.Employee{empAlice, empBob}}
	svc := NewAttendanceService(employees, newFakeAttendanceStore(), &countingCache{}, nil, nil, nil)

	first, err := svc.ListEmployees(context.Background())
	require.NoError(t, err)
	second, err := svc.ListEmployees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, employees.calls)
}
