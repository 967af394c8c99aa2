// Package repository defines persistence for sessions and its Postgres and
// Redis implementations.
package repository

import (
	"context"
	"time"

	"session-gateway/internal/session/domain"
)

// Repository defines persistence for sessions. Implementations return
// (nil, nil) for lookups that find nothing; errors are reserved for
// storage failures.
type Repository interface {
	// Create persists a new session. The session must have ID set.
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// FindActive returns the most recently created session for subjectID
	// that is active and not yet expired, or nil when none qualifies.
	FindActive(ctx context.Context, subjectID string) (*domain.Session, error)
	// Touch advances the session's last-activity timestamp to at. The
	// timestamp only moves forward; an older at is a no-op.
	Touch(ctx context.Context, id string, at time.Time) error
	// RevokeAll marks every active session for subjectID as terminated.
	// Idempotent: revoking a subject with no active sessions is a no-op.
	RevokeAll(ctx context.Context, subjectID string) error
	// ListBySubject returns the subject's sessions, newest first. When
	// activeOnly is set, revoked and expired sessions are excluded.
	ListBySubject(ctx context.Context, subjectID string, activeOnly bool) ([]*domain.Session, error)
}
