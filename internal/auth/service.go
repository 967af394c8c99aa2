package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"session-gateway/internal/security"
	sessiondomain "session-gateway/internal/session/domain"
	"session-gateway/internal/telemetry"
	userdomain "session-gateway/internal/user/domain"
)

// ErrInvalidCredentials is returned for any login failure caused by the
// caller: unknown email, disabled account, or wrong password. Handlers map
// it to a single response so the cases are indistinguishable to clients.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	RevokeAll(ctx context.Context, subjectID string) error
	ListBySubject(ctx context.Context, subjectID string, activeOnly bool) ([]*sessiondomain.Session, error)
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// LoginMeta carries request metadata recorded on the session at login.
type LoginMeta struct {
	IPAddress string
	UserAgent string
	Location  string
}

// Service implements login and logout: credential verification, token
// issuance, and session lifecycle around them.
type Service struct {
	users    UserRepo
	sessions SessionRepo
	hasher   *security.Hasher
	codec    *security.TokenCodec
	logger   *zap.Logger
	emitter  telemetry.EventEmitter
}

// NewService returns a Service with the given dependencies. emitter may be nil.
func NewService(users UserRepo, sessions SessionRepo, hasher *security.Hasher, codec *security.TokenCodec, logger *zap.Logger, emitter telemetry.EventEmitter) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		codec:    codec,
		logger:   logger,
		emitter:  emitter,
	}
}

// Login verifies the credentials, creates a session record, and issues the
// signed token for the cookie. The session row is written before the token
// is handed back, so a store failure means no cookie is ever set.
func (s *Service) Login(ctx context.Context, email, password string, meta LoginMeta) (token string, expiresAt time.Time, err error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err = s.codec.Issue(user.ID)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	sess := &sessiondomain.Session{
		ID:             uuid.New().String(),
		SubjectID:      user.ID,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		Location:       meta.Location,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
		IsActive:       true,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", time.Time{}, err
	}

	event := telemetry.NewEvent(telemetry.EventLogin)
	event.SubjectID = user.ID
	event.SessionID = sess.ID
	event.IPAddress = meta.IPAddress
	event.UserAgent = meta.UserAgent
	telemetry.EmitAsync(s.emitter, event)

	s.logger.Info("login", zap.String("subject_id", user.ID), zap.String("session_id", sess.ID))
	return token, expiresAt, nil
}

// Logout revokes every active session for the subject. Idempotent; a second
// logout is a no-op. An empty subject id is a caller bug, not a no-op: the
// gate always resolves the subject before logout can run.
func (s *Service) Logout(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return errors.New("auth: logout requires a subject id")
	}
	if err := s.sessions.RevokeAll(ctx, subjectID); err != nil {
		return err
	}

	event := telemetry.NewEvent(telemetry.EventLogout)
	event.SubjectID = subjectID
	telemetry.EmitAsync(s.emitter, event)

	s.logger.Info("logout", zap.String("subject_id", subjectID))
	return nil
}

// Sessions returns the subject's session history, newest first.
func (s *Service) Sessions(ctx context.Context, subjectID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListBySubject(ctx, subjectID, false)
}
