package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dashboard"
)

const (
	stateCookie = "attendance_oauth_state"
	flashCookie = "attendance_flash"
)

// CookieConfig controls the cookies set by the browser-facing handlers.
type CookieConfig struct {
	SessionName string
	Secure      bool
}

func (cfg CookieConfig) set(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", cfg.Secure, true)
}

func (cfg CookieConfig) clear(c *gin.Context, name string) {
	cfg.set(c, name, "", -1)
}

// setFlash stores a notification for the next page render.
func (cfg CookieConfig) setFlash(c *gin.Context, note dashboard.Notification) {
	raw, err := json.Marshal(note)
	if err != nil {
		return
	}
	cfg.set(c, flashCookie, string(raw), 60)
}

// consumeFlash returns and clears the pending notification, if any.
func (cfg CookieConfig) consumeFlash(c *gin.Context) *dashboard.Notification {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	cfg.clear(c, flashCookie)

	var note dashboard.Notification
	if err := json.Unmarshal([]byte(raw), &note); err != nil || note.Message == "" {
		return nil
	}
	return &note
}
