package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/models"
)

// Route is a navigable page.
type Route string

const (
	RouteLogin     Route = "/auth"
	RouteDashboard Route = "/dashboard"
)

// Router performs navigation side effects.
type Router interface {
	Navigate(route Route)
}

// RouterFunc adapts a function to Router.
type RouterFunc func(Route)

// Navigate calls f(route).
func (f RouterFunc) Navigate(route Route) { f(route) }

// Provider is the slice of the auth service the guard depends on.
type Provider interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	OnAuthStateChange(fn func(Event)) Subscription
}

// Guard gates a page on an active session and reacts to session events.
type Guard struct {
	provider Provider
	router   Router
	logger   *zap.Logger
	filter   func(Event) bool

	mu     sync.Mutex
	sub    Subscription
	closed bool
}

// GuardOption customises a Guard.
type GuardOption func(*Guard)

// WithEventFilter restricts which events the guard reacts to.
func WithEventFilter(filter func(Event) bool) GuardOption {
	return func(g *Guard) { g.filter = filter }
}

// WithLogger sets the guard logger.
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard constructs a guard bound to the given provider and router.
func NewGuard(provider Provider, router Router, opts ...GuardOption) *Guard {
	g := &Guard{provider: provider, router: router, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount starts watching session events and then checks the current session.
func (g *Guard) Mount(ctx context.Context, token string) *models.Session {
	g.Watch()
	return g.Check(ctx, token)
}

// Check resolves the session for token. Absent sessions and failed checks both
// navigate to the login route and return nil.
func (g *Guard) Check(ctx context.Context, token string) *models.Session {
	if token == "" {
		g.router.Navigate(RouteLogin)
		return nil
	}
	current, err := g.provider.GetSession(ctx, token)
	if err != nil {
		g.logger.Debug("session check failed", zap.Error(err))
		g.router.Navigate(RouteLogin)
		return nil
	}
	if current == nil {
		g.router.Navigate(RouteLogin)
		return nil
	}
	return current
}

// Watch subscribes to session events. It is idempotent and a no-op after Close.
func (g *Guard) Watch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.sub != nil {
		return
	}
	g.sub = g.provider.OnAuthStateChange(g.handle)
}

// Close releases the event subscription.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	if g.sub != nil {
		g.sub.Unsubscribe()
		g.sub = nil
	}
}

func (g *Guard) handle(event Event) {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return
	}
	if g.filter != nil && !g.filter(event) {
		return
	}
	switch event.Kind {
	case EventSessionEstablished:
		g.router.Navigate(RouteDashboard)
	case EventSessionEnded:
		g.router.Navigate(RouteLogin)
	}
}
