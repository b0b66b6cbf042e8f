package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/session"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/response"
)

const (
	// ContextSessionKey is the gin context key storing the active *models.Session.
	ContextSessionKey = "currentSession"
	// ContextTokenKey is the gin context key storing the raw session token.
	ContextTokenKey = "sessionToken"
)

// SessionToken extracts the session token from a Bearer header or the session cookie.
func SessionToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookieName == "" {
		return ""
	}
	if value, err := c.Cookie(cookieName); err == nil {
		return value
	}
	return ""
}

// SessionGuard protects browser pages. The session is checked before the
// handler runs; without one the request is redirected to the login page.
func SessionGuard(provider session.Provider, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		router := session.RouterFunc(func(route session.Route) {
			c.Redirect(http.StatusSeeOther, string(route))
		})
		guard := session.NewGuard(provider, router, session.WithLogger(logger))

		current := guard.Check(c.Request.Context(), token)
		if current == nil {
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, current)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// RequireSession protects JSON endpoints, answering 401 instead of redirecting.
func RequireSession(provider session.Provider, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		current, err := provider.GetSession(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if current == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, current)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}
