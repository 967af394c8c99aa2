// Package auth reconciles the signed session token with the session store
// and owns the login/logout flows and the session cookie contract.
package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"session-gateway/internal/security"
	sessiondomain "session-gateway/internal/session/domain"
	"session-gateway/internal/telemetry"
)

// Result is the reconciled authentication outcome for one request. Produced
// fresh per request and never persisted.
type Result struct {
	Authenticated bool
	SubjectID     string
	SessionID     string
}

// SessionReader is the minimal session repository needed by the resolver.
type SessionReader interface {
	FindActive(ctx context.Context, subjectID string) (*sessiondomain.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// Resolver combines token verification with a store lookup into one
// authoritative answer per request. The token alone is never sufficient:
// a valid signature whose subject has no active store record does not
// authenticate, so revocation takes effect immediately instead of at
// token expiry.
type Resolver struct {
	codec        *security.TokenCodec
	sessions     SessionReader
	storeTimeout time.Duration
	logger       *zap.Logger
	emitter      telemetry.EventEmitter
}

// NewResolver returns a Resolver. storeTimeout bounds each store call on the
// request path; emitter may be nil to disable events.
func NewResolver(codec *security.TokenCodec, sessions SessionReader, storeTimeout time.Duration, logger *zap.Logger, emitter telemetry.EventEmitter) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storeTimeout <= 0 {
		storeTimeout = 300 * time.Millisecond
	}
	return &Resolver{
		codec:        codec,
		sessions:     sessions,
		storeTimeout: storeTimeout,
		logger:       logger,
		emitter:      emitter,
	}
}

// Resolve classifies one request. rawToken is the session cookie value, or
// "" when the cookie is absent. Every failure path resolves to
// unauthenticated; the failure kind is logged here and never surfaced to
// callers. A store read error or timeout fails closed: allowing access
// while the store is unreachable would make revocation unenforceable.
func (r *Resolver) Resolve(ctx context.Context, rawToken string) Result {
	if rawToken == "" {
		return Result{}
	}

	subjectID, err := r.codec.Decode(rawToken)
	if err != nil {
		r.logger.Debug("session token rejected", zap.Error(err))
		return Result{}
	}

	findCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()
	sess, err := r.sessions.FindActive(findCtx, subjectID)
	if err != nil {
		r.logger.Warn("session lookup failed, failing closed",
			zap.String("subject_id", subjectID), zap.Error(err))
		event := telemetry.NewEvent(telemetry.EventAccessDenied)
		event.SubjectID = subjectID
		event.Reason = "store_unavailable"
		telemetry.EmitAsync(r.emitter, event)
		return Result{}
	}
	if sess == nil {
		// Token outlived its session: logged out elsewhere or revoked.
		return Result{}
	}

	r.touchAsync(sess.ID)
	return Result{Authenticated: true, SubjectID: subjectID, SessionID: sess.ID}
}

// touchAsync updates last-activity without blocking the response. The touch
// runs on a fresh context so cancelling the inbound request cannot abort it,
// and its failure never changes the authorization outcome.
func (r *Resolver) touchAsync(sessionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.storeTimeout)
		defer cancel()
		if err := r.sessions.Touch(ctx, sessionID, time.Now().UTC()); err != nil {
			r.logger.Debug("session touch failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
}
