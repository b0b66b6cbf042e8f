package handler

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/middleware"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/service"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/session"
	appErrors "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/errors"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/response"
)

const (
	callbackPath     = "/auth/callback"
	stateCookieTTL   = 10 * 60
	defaultHeartbeat = 25 * time.Second
)

var loginErrors = map[string]string{
	"state":  "Your sign-in attempt expired. Please try again.",
	"denied": "Sign-in was cancelled.",
	"signin": "Sign-in failed. Please try again.",
}

type authService interface {
	session.Provider
	Establish(ctx context.Context, identity models.Identity, clientKey string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
}

// AuthHandler serves the login page and the hosted sign-in round trip.
type AuthHandler struct {
	auth      authService
	identity  service.IdentityProvider
	cookies   CookieConfig
	logger    *zap.Logger
	heartbeat time.Duration

	publicBaseURL  string
	trustedProxies []*net.IPNet

	closing   chan struct{}
	closeOnce sync.Once
}

// AuthHandlerOption customises an AuthHandler.
type AuthHandlerOption func(*AuthHandler)

// WithPublicBaseURL pins the OAuth callback to baseURL instead of the request origin.
func WithPublicBaseURL(baseURL string) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.publicBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTrustedProxies lists the peers, as IPs or CIDRs, whose X-Forwarded-Proto
// and X-Forwarded-Host headers are honoured. Unparseable entries are skipped.
func WithTrustedProxies(proxies []string) AuthHandlerOption {
	return func(h *AuthHandler) {
		for _, raw := range proxies {
			if !strings.Contains(raw, "/") {
				if ip := net.ParseIP(raw); ip != nil && ip.To4() != nil {
					raw += "/32"
				} else {
					raw += "/128"
				}
			}
			if _, network, err := net.ParseCIDR(raw); err == nil {
				h.trustedProxies = append(h.trustedProxies, network)
			} else {
				h.logger.Warn("ignoring trusted proxy", zap.String("value", raw), zap.Error(err))
			}
		}
	}
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth authService, identity service.IdentityProvider, cookies CookieConfig, logger *zap.Logger, opts ...AuthHandlerOption) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &AuthHandler{
		auth:      auth,
		identity:  identity,
		cookies:   cookies,
		logger:    logger,
		heartbeat: defaultHeartbeat,
		closing:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CloseStreams ends every open event stream. http.Server.Shutdown does not
// cancel active requests, so it is registered with RegisterOnShutdown.
func (h *AuthHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// LoginPage renders the sign-in page, or forwards to the dashboard when a session already exists.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if token := middleware.SessionToken(c, h.cookies.SessionName); token != "" {
		if current, err := h.auth.GetSession(c.Request.Context(), token); err == nil && current != nil {
			c.Redirect(http.StatusSeeOther, string(session.RouteDashboard))
			return
		}
		h.cookies.clear(c, h.cookies.SessionName)
	}

	h.ensureState(c)
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, "auth.html", gin.H{
		"Title":    "Sign in",
		"Provider": "GitHub",
		"Error":    loginErrors[c.Query("error")],
	})
}

// SignIn redirects the browser to the identity provider's consent page.
func (h *AuthHandler) SignIn(c *gin.Context) {
	state := h.ensureState(c)
	c.Redirect(http.StatusFound, h.identity.AuthCodeURL(state, h.callbackURL(c)))
}

// Callback completes the sign-in round trip and starts a session.
func (h *AuthHandler) Callback(c *gin.Context) {
	expected, _ := c.Cookie(stateCookie)
	if expected == "" || c.Query("state") != expected {
		h.loginFailed(c, "state")
		return
	}
	if c.Query("error") != "" {
		h.loginFailed(c, "denied")
		return
	}

	ctx := c.Request.Context()
	identity, err := h.identity.Exchange(ctx, c.Query("code"), h.callbackURL(c))
	if err != nil {
		h.logger.Warn("identity exchange failed", zap.String("provider", h.identity.Name()), zap.Error(err))
		h.loginFailed(c, "signin")
		return
	}
	sess, err := h.auth.Establish(ctx, *identity, expected)
	if err != nil {
		h.logger.Warn("session establish failed", zap.Error(err))
		h.loginFailed(c, "signin")
		return
	}

	h.cookies.set(c, h.cookies.SessionName, sess.AccessToken, int(time.Until(sess.ExpiresAt).Seconds()))
	h.cookies.clear(c, stateCookie)
	c.Redirect(http.StatusSeeOther, string(session.RouteDashboard))
}

// Events streams a navigate event to the login page once a sign-in started
// from this browser completes, including sign-ins finished in another tab.
func (h *AuthHandler) Events(c *gin.Context) {
	key, _ := c.Cookie(stateCookie)
	routes := make(chan session.Route, 1)
	router := session.RouterFunc(func(route session.Route) {
		if route != session.RouteDashboard {
			return
		}
		select {
		case routes <- route:
		default:
		}
	})
	guard := session.NewGuard(h.auth, router,
		session.WithLogger(h.logger),
		session.WithEventFilter(func(e session.Event) bool {
			return key != "" && e.ClientKey == key
		}),
	)
	defer guard.Close()

	ctx := c.Request.Context()
	if current := guard.Mount(ctx, middleware.SessionToken(c, h.cookies.SessionName)); current != nil {
		router.Navigate(session.RouteDashboard)
	}

	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-h.closing:
			return false
		case route := <-routes:
			c.SSEvent("navigate", string(route))
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

// SignOut ends the current session and returns to the login page.
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := middleware.SessionToken(c, h.cookies.SessionName)
	if err := h.auth.SignOut(c.Request.Context(), token); err != nil {
		h.logger.Warn("sign out failed", zap.Error(err))
	}
	h.cookies.clear(c, h.cookies.SessionName)
	c.Redirect(http.StatusSeeOther, string(session.RouteLogin))
}

// CurrentSession godoc
// @Summary Current session
// @Description Returns the session behind the bearer token or session cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) CurrentSession(c *gin.Context) {
	current := sessionFromContext(c)
	if current == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, current)
}

func (h *AuthHandler) ensureState(c *gin.Context) string {
	if state, err := c.Cookie(stateCookie); err == nil && state != "" {
		return state
	}
	state := uuid.NewString()
	h.cookies.set(c, stateCookie, state, stateCookieTTL)
	return state
}

func (h *AuthHandler) loginFailed(c *gin.Context, reason string) {
	c.Redirect(http.StatusSeeOther, string(session.RouteLogin)+"?error="+reason)
}

// callbackURL derives the OAuth redirect target from the configured public
// base URL, or else from the request origin. Forwarded headers count only
// when the direct peer is a trusted proxy.
func (h *AuthHandler) callbackURL(c *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + callbackPath
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	host := c.Request.Host
	if h.fromTrustedProxy(c) {
		if proto := strings.ToLower(c.GetHeader("X-Forwarded-Proto")); proto == "http" || proto == "https" {
			scheme = proto
		}
		if fwdHost := c.GetHeader("X-Forwarded-Host"); fwdHost != "" {
			host = fwdHost
		}
	}
	return scheme + "://" + host + callbackPath
}

func (h *AuthHandler) fromTrustedProxy(c *gin.Context) bool {
	if len(h.trustedProxies) == 0 {
		return false
	}
	ip := net.ParseIP(c.RemoteIP())
	if ip == nil {
		return false
	}
	for _, network := range h.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
