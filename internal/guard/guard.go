// Package guard decides, per request path and authentication state, whether
// to let a request through or redirect it. It is pure: classification uses
// static route lists and Decide performs no I/O, so every combination of
// inputs has a defined outcome and the package tests without a server.
package guard

// RouteClass partitions request paths by the authentication they require.
type RouteClass int

const (
	// Public routes are reachable regardless of authentication state.
	Public RouteClass = iota
	// Protected routes require an authenticated session.
	Protected
	// AuthOnly routes (e.g. the login page) are for unauthenticated users;
	// authenticated users are sent to the landing page instead.
	AuthOnly
)

// Action is the guard's verdict for a request.
type Action int

const (
	// Allow lets the request continue to its handler.
	Allow Action = iota
	// RedirectLogin sends the client to the login URL.
	RedirectLogin
	// RedirectLanding sends an already-authenticated client away from an
	// auth-only page to the authenticated landing URL.
	RedirectLanding
)

// Guard classifies paths against configured route lists. Matching is exact,
// not prefix: "/settings/profile" is not covered by a "/settings" entry.
type Guard struct {
	protected map[string]bool
	authOnly  map[string]bool
}

// New returns a Guard over the given exact-match route lists. A path found
// in both lists is treated as Protected.
func New(protectedRoutes, authRoutes []string) *Guard {
	g := &Guard{
		protected: make(map[string]bool, len(protectedRoutes)),
		authOnly:  make(map[string]bool, len(authRoutes)),
	}
	for _, p := range protectedRoutes {
		g.protected[p] = true
	}
	for _, p := range authRoutes {
		g.authOnly[p] = true
	}
	return g
}

// Classify returns the route class for path. Unlisted paths are Public.
func (g *Guard) Classify(path string) RouteClass {
	switch {
	case g.protected[path]:
		return Protected
	case g.authOnly[path]:
		return AuthOnly
	default:
		return Public
	}
}

// Decide maps (route class, authentication state) to an action. Total over
// all inputs; unknown classes fall through to Allow like Public.
func Decide(class RouteClass, authenticated bool) Action {
	switch class {
	case Protected:
		if !authenticated {
			return RedirectLogin
		}
		return Allow
	case AuthOnly:
		if authenticated {
			return RedirectLanding
		}
		return Allow
	default:
		return Allow
	}
}
