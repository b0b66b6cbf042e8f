package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/middleware"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/session"
)

// Routes bundles everything RegisterRoutes mounts.
type Routes struct {
	Auth       *AuthHandler
	Dashboard  *DashboardHandler
	Attendance *AttendanceHandler
	Metrics    *MetricsHandler
	Provider   session.Provider
	Cookies    CookieConfig
	APIPrefix  string
	Logger     *zap.Logger
}

// RegisterRoutes mounts the login flow, the guarded dashboard, the JSON API and probes.
func RegisterRoutes(r *gin.Engine, routes Routes) {
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, string(session.RouteDashboard)) })

	if routes.Metrics != nil {
		r.GET("/health", routes.Metrics.Health)
		r.GET("/ready", routes.Metrics.Ready)
		r.GET("/metrics", routes.Metrics.Prometheus)
	}

	auth := r.Group(string(session.RouteLogin))
	auth.GET("", routes.Auth.LoginPage)
	auth.GET("/github", routes.Auth.SignIn)
	auth.GET("/callback", routes.Auth.Callback)
	auth.GET("/events", routes.Auth.Events)
	auth.POST("/signout", routes.Auth.SignOut)

	dash := r.Group(string(session.RouteDashboard), middleware.SessionGuard(routes.Provider, routes.Cookies.SessionName, routes.Logger))
	dash.GET("", routes.Dashboard.Show)
	dash.POST("/attendance", routes.Dashboard.Mark)
	dash.POST("/attendance/:id/toggle", routes.Dashboard.Toggle)
	dash.POST("/attendance/:id/delete", routes.Dashboard.Delete)

	prefix := strings.TrimRight(routes.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix, middleware.RequireSession(routes.Provider, routes.Cookies.SessionName))
	api.GET("/auth/session", routes.Auth.CurrentSession)
	api.GET("/employees", routes.Attendance.ListEmployees)
	api.GET("/attendance", routes.Attendance.ListAttendance)
	api.GET("/attendance/export", routes.Attendance.Export)
	api.POST("/attendance", routes.Attendance.Mark)
	api.PATCH("/attendance/:id", routes.Attendance.UpdateStatus)
	api.DELETE("/attendance/:id", routes.Attendance.Delete)
}
