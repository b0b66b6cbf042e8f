package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dashboard"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dto"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/session"
)

// DashboardHandler renders the attendance dashboard and applies its form posts.
// Every mutation redirects back to the page so the lists are read again.
type DashboardHandler struct {
	vm      *dashboard.ViewModel
	cookies CookieConfig
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(vm *dashboard.ViewModel, cookies CookieConfig) *DashboardHandler {
	return &DashboardHandler{vm: vm, cookies: cookies}
}

// Show renders the dashboard.
func (h *DashboardHandler) Show(c *gin.Context) {
	state := h.vm.Load(c.Request.Context())
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Title":        "Dashboard",
		"User":         sessionFromContext(c),
		"State":        state,
		"Notification": h.cookies.consumeFlash(c),
	})
}

// Mark records attendance from the mark form.
func (h *DashboardHandler) Mark(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	_ = c.ShouldBind(&req)
	note, _ := h.vm.MarkAttendance(c.Request.Context(), req)
	h.back(c, note)
}

// Toggle flips a record's status.
func (h *DashboardHandler) Toggle(c *gin.Context) {
	current := models.ParseAttendanceStatus(c.PostForm("status"))
	note, _ := h.vm.ToggleStatus(c.Request.Context(), c.Param("id"), current)
	h.back(c, note)
}

// Delete removes a record.
func (h *DashboardHandler) Delete(c *gin.Context) {
	note, _ := h.vm.Delete(c.Request.Context(), c.Param("id"))
	h.back(c, note)
}

func (h *DashboardHandler) back(c *gin.Context, note dashboard.Notification) {
	h.cookies.setFlash(c, note)
	c.Redirect(http.StatusSeeOther, string(session.RouteDashboard))
}
