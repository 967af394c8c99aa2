// Package middleware carries the per-request authentication gate and the
// request identity context helpers.
package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"session-gateway/internal/auth"
	"session-gateway/internal/guard"
	"session-gateway/internal/telemetry"
	otelx "session-gateway/internal/telemetry/otel"
)

// actionLabels maps guard actions to metric attribute values.
var actionLabels = map[guard.Action]string{
	guard.Allow:           "allow",
	guard.RedirectLogin:   "redirect_login",
	guard.RedirectLanding: "redirect_landing",
}

// AuthGate resolves the session cookie and enforces route access on every
// request. Runs before routing-sensitive handlers; requests that pass carry
// the resolved identity in the context.
type AuthGate struct {
	resolver   *auth.Resolver
	guard      *guard.Guard
	loginURL   string
	landingURL string
	logger     *zap.Logger
	metrics    *otelx.GuardMetrics
	emitter    telemetry.EventEmitter
}

// NewAuthGate returns the gate middleware. metrics and emitter may be nil.
func NewAuthGate(resolver *auth.Resolver, g *guard.Guard, loginURL, landingURL string, logger *zap.Logger, metrics *otelx.GuardMetrics, emitter telemetry.EventEmitter) *AuthGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthGate{
		resolver:   resolver,
		guard:      g,
		loginURL:   loginURL,
		landingURL: landingURL,
		logger:     logger,
		metrics:    metrics,
		emitter:    emitter,
	}
}

// Handler is the middleware. The resolver runs on every request, including
// public routes, so handlers behind the gate can always read the identity
// from the context; the guard then decides from the path and the
// authentication state alone.
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.resolver.Resolve(r.Context(), auth.ReadSessionCookie(r))

		class := g.guard.Classify(r.URL.Path)
		action := guard.Decide(class, res.Authenticated)
		g.metrics.RecordDecision(r.Context(), actionLabels[action])

		switch action {
		case guard.RedirectLogin:
			g.logger.Debug("redirecting to login", zap.String("path", r.URL.Path))
			event := telemetry.NewEvent(telemetry.EventAccessDenied)
			event.IPAddress = r.RemoteAddr
			event.UserAgent = r.UserAgent()
			event.Reason = "unauthenticated"
			telemetry.EmitAsync(g.emitter, event)
			http.Redirect(w, r, g.loginURL, http.StatusFound)
			return
		case guard.RedirectLanding:
			g.logger.Debug("redirecting to landing",
				zap.String("path", r.URL.Path), zap.String("subject_id", res.SubjectID))
			http.Redirect(w, r, g.landingURL, http.StatusFound)
			return
		}

		if res.Authenticated {
			r = r.WithContext(WithIdentity(r.Context(), res.SubjectID, res.SessionID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth guards API endpoints that have no redirect semantics, such as
// POST /logout and GET /sessions. Responds 401 when the gate resolved no
// identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSubjectID(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
