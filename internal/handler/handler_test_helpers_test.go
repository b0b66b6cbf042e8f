package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dashboard"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/service"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/session"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/web"
)

const testCookie = "attendance_session"

type memSessions struct {
	mu   sync.Mutex
	rows map[string]models.Session
}

func (m *memSessions) Create(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = *s
	return nil
}

func (m *memSessions) FindByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *memSessions) Revoke(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[id]; ok {
		s.RevokedAt = &at
		m.rows[id] = s
	}
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type memEmployees []models.Employee

func (m memEmployees) List(ctx context.Context) ([]models.Employee, error) {
	return append([]models.Employee(nil), m...), nil
}

type memAttendance struct {
	mu        sync.Mutex
	employees map[string]models.Employee
	rows      map[string]models.AttendanceRecord
	lists     int
}

func (m *memAttendance) ListWithEmployees(ctx context.Context) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	out := make([]models.AttendanceRecord, 0, len(m.rows))
	for _, r := range m.rows {
		e := m.employees[r.EmployeeID]
		r.Employee = &models.EmployeeSnapshot{FullName: e.FullName, Email: e.Email, Role: e.Role}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAttendance) Insert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[record.EmployeeID]; !ok {
		return nil, sql.ErrNoRows
	}
	created := *record
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()
	m.rows[created.ID] = created
	return &created, nil
}

func (m *memAttendance) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r.Status = status
	m.rows[id] = r
	return &r, nil
}

func (m *memAttendance) Delete(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.rows, id)
	return &r, nil
}

type stubIdentity struct {
	identity *models.Identity
	err      error
}

func (s *stubIdentity) Name() string { return "github" }

func (s *stubIdentity) AuthCodeURL(state, redirectURL string) string {
	return "https://github.test/login/oauth/authorize?state=" + state + "&redirect_uri=" + redirectURL
}

func (s *stubIdentity) Exchange(ctx context.Context, code, redirectURL string) (*models.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

type testApp struct {
	router     *gin.Engine
	authRoutes *AuthHandler
	auth       *service.AuthService
	broker     *session.LocalBroker
	attendance *memAttendance
	identity   *stubIdentity
}

func newTestApp(t *testing.T, opts ...AuthHandlerOption) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	broker := session.NewLocalBroker()
	auth := service.NewAuthService(&memSessions{rows: map[string]models.Session{}}, broker, nil, nil, nil, service.AuthConfig{
		Secret: "handler-secret",
		Expiry: time.Hour,
		Issuer: "attendance-test",
	})
	alice := models.Employee{ID: "E1", FullName: "Alice Smith", Email: "alice@example.com", Role: "Engineer"}
	store := &memAttendance{employees: map[string]models.Employee{"E1": alice}, rows: map[string]models.AttendanceRecord{}}
	attendance := service.NewAttendanceService(memEmployees{alice}, store, nil, nil, nil, nil)
	identity := &stubIdentity{identity: &models.Identity{Provider: "github", Subject: "42", Login: "octocat", Name: "Mona Lisa", Email: "mona@example.com"}}
	cookies := CookieConfig{SessionName: testCookie}

	templates, err := web.Templates()
	require.NoError(t, err)
	authRoutes := NewAuthHandler(auth, identity, cookies, nil, opts...)
	r := gin.New()
	r.SetHTMLTemplate(templates)
	RegisterRoutes(r, Routes{
		Auth:       authRoutes,
		Dashboard:  NewDashboardHandler(dashboard.NewViewModel(attendance, nil), cookies),
		Attendance: NewAttendanceHandler(attendance, service.NewExportService(attendance, nil, nil, nil, nil)),
		Metrics:    NewMetricsHandler(service.NewMetricsService(), nil),
		Provider:   auth,
		Cookies:    cookies,
		APIPrefix:  "/api/v1",
	})
	return &testApp{router: r, authRoutes: authRoutes, auth: auth, broker: broker, attendance: store, identity: identity}
}

func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	sess, err := a.auth.Establish(context.Background(), *a.identity.identity, "")
	require.NoError(t, err)
	return &http.Cookie{Name: testCookie, Value: sess.AccessToken}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// streamRecorder adds the CloseNotifier gin's streaming helpers require.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }
