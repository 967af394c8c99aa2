package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"session-gateway/internal/session/domain"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// sessionColumns lists columns returned by session SELECT queries.
var sessionColumns = []string{
	"id", "subject_id", "ip_address", "user_agent", "location",
	"created_at", "last_activity_at", "expires_at", "is_active", "terminated_at",
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions
		(id, subject_id, ip_address, user_agent, location, created_at, last_activity_at, expires_at, is_active, terminated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.SubjectID,
		nullString(s.IPAddress),
		nullString(s.UserAgent),
		nullString(s.Location),
		s.CreatedAt,
		s.LastActivityAt,
		s.ExpiresAt,
		s.IsActive,
		nullTime(s.TerminatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query, args, err := psq.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// FindActive returns the newest active, unexpired session for subjectID, or
// nil when the subject has none. Inactive and expired rows never qualify,
// even when they are the newest.
func (r *PostgresRepository) FindActive(ctx context.Context, subjectID string) (*domain.Session, error) {
	query, args, err := psq.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"subject_id": subjectID, "is_active": true}).
		Where(sq.GtOrEq{"expires_at": time.Now().UTC()}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}
	s, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Touch sets the session's last-activity timestamp to at. GREATEST keeps the
// column monotonic when touches land out of order.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE sessions
		SET last_activity_at = GREATEST(last_activity_at, $2)
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// RevokeAll marks every active session for subjectID as terminated. A subject
// with no active sessions is a no-op, not an error.
func (r *PostgresRepository) RevokeAll(ctx context.Context, subjectID string) error {
	query := `
		UPDATE sessions
		SET is_active = FALSE, terminated_at = $2
		WHERE subject_id = $1 AND is_active
	`
	if _, err := r.db.ExecContext(ctx, query, subjectID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoking sessions: %w", err)
	}
	return nil
}

// ListBySubject returns the subject's sessions, newest first, optionally
// restricted to active, unexpired ones.
func (r *PostgresRepository) ListBySubject(ctx context.Context, subjectID string, activeOnly bool) ([]*domain.Session, error) {
	qb := psq.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"subject_id": subjectID})
	if activeOnly {
		qb = qb.Where(sq.Eq{"is_active": true}).
			Where(sq.GtOrEq{"expires_at": time.Now().UTC()})
	}
	query, args, err := qb.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building session query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s            domain.Session
		ip, ua, loc  sql.NullString
		terminatedAt sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.SubjectID,
		&ip,
		&ua,
		&loc,
		&s.CreatedAt,
		&s.LastActivityAt,
		&s.ExpiresAt,
		&s.IsActive,
		&terminatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	s.IPAddress = ip.String
	s.UserAgent = ua.String
	s.Location = loc.String
	if terminatedAt.Valid {
		s.TerminatedAt = &terminatedAt.Time
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
