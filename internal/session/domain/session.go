package domain

import "time"

// Session is a durable record of an authenticated browser session.
// A subject may hold several active sessions at once (multi-device);
// authorization always uses the most recently created active, unexpired one.
type Session struct {
	ID             string
	SubjectID      string
	IPAddress      string // empty when not captured
	UserAgent      string // empty when not captured
	Location       string // empty when not captured
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	IsActive       bool
	TerminatedAt   *time.Time // nil while the session has not been revoked
}

// Active reports whether the session authorizes requests at the given
// instant. Revocation is permanent: IsActive never returns to true.
// Expiry is inclusive on the losing side; a session whose ExpiresAt is
// before now no longer authorizes anything.
func (s *Session) Active(now time.Time) bool {
	if s == nil || !s.IsActive {
		return false
	}
	return !s.ExpiresAt.Before(now)
}
