package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"session-gateway/internal/session/domain"
)

const (
	sessionKeyPrefix  = "session:"
	subjectKeyPrefix  = "subject_sessions:"
	redisIndexPadding = time.Hour // index outlives its newest session by this much
	touchRetries      = 3         // optimistic transaction attempts before giving up
)

// RedisRepository implements Repository on Redis. Each session is a JSON
// blob under session:<id> with a TTL matching its expiry; a set under
// subject_sessions:<subject> indexes the subject's session IDs. Revoked
// sessions keep their blob (flipped to inactive) until the TTL evicts it,
// preserving the record for session listings.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository returns a session repository backed by the given Redis client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// sessionRecord is the stored JSON shape of a session.
type sessionRecord struct {
	ID             string     `json:"id"`
	SubjectID      string     `json:"subject_id"`
	IPAddress      string     `json:"ip_address,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	Location       string     `json:"location,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	IsActive       bool       `json:"is_active"`
	TerminatedAt   *time.Time `json:"terminated_at,omitempty"`
}

func toRecord(s *domain.Session) *sessionRecord {
	return &sessionRecord{
		ID:             s.ID,
		SubjectID:      s.SubjectID,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
		Location:       s.Location,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
		IsActive:       s.IsActive,
		TerminatedAt:   s.TerminatedAt,
	}
}

func (r *sessionRecord) toDomain() *domain.Session {
	return &domain.Session{
		ID:             r.ID,
		SubjectID:      r.SubjectID,
		IPAddress:      r.IPAddress,
		UserAgent:      r.UserAgent,
		Location:       r.Location,
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
		ExpiresAt:      r.ExpiresAt,
		IsActive:       r.IsActive,
		TerminatedAt:   r.TerminatedAt,
	}
}

func sessionKey(id string) string        { return sessionKeyPrefix + id }
func subjectKey(subjectID string) string { return subjectKeyPrefix + subjectID }

// Create persists a new session blob and indexes it under the subject.
func (r *RedisRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" || s.SubjectID == "" {
		return fmt.Errorf("session: missing id or subject id")
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}
	data, err := json.Marshal(toRecord(s))
	if err != nil {
		return fmt.Errorf("session: marshaling: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, sessionKey(s.ID), data, ttl)
	pipe.SAdd(ctx, subjectKey(s.SubjectID), s.ID)
	pipe.Expire(ctx, subjectKey(s.SubjectID), ttl+redisIndexPadding)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: storing: %w", err)
	}
	return nil
}

// GetByID returns the session for id, or nil if the blob is gone.
func (r *RedisRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	val, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("session: unmarshaling: %w", err)
	}
	return rec.toDomain(), nil
}

// FindActive returns the newest active, unexpired session for subjectID, or nil.
func (r *RedisRepository) FindActive(ctx context.Context, subjectID string) (*domain.Session, error) {
	sessions, err := r.fetchSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var newest *domain.Session
	for _, s := range sessions {
		if !s.Active(now) {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	return newest, nil
}

// Touch advances the session's last-activity timestamp, keeping the blob's
// TTL. A missing or revoked session is a no-op. The blob is rewritten under
// WATCH so a RevokeAll landing between read and write aborts the rewrite;
// a stale touch must never restore is_active. After touchRetries lost races
// the touch is dropped, since it is best-effort by contract.
func (r *RedisRepository) Touch(ctx context.Context, id string, at time.Time) error {
	key := sessionKey(id)
	txf := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var rec sessionRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return fmt.Errorf("session: unmarshaling: %w", err)
		}
		if !rec.IsActive {
			return nil
		}
		if !at.After(rec.LastActivityAt) {
			return nil
		}
		rec.LastActivityAt = at
		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("session: marshaling: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < touchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return nil
}

// RevokeAll flips every active session for subjectID to inactive with
// terminated_at set. Blobs stay until their TTL evicts them.
func (r *RedisRepository) RevokeAll(ctx context.Context, subjectID string) error {
	sessions, err := r.fetchSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, s := range sessions {
		if !s.IsActive {
			continue
		}
		s.IsActive = false
		terminated := now
		s.TerminatedAt = &terminated
		if err := r.rewrite(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// ListBySubject returns the subject's surviving sessions, newest first.
func (r *RedisRepository) ListBySubject(ctx context.Context, subjectID string, activeOnly bool) ([]*domain.Session, error) {
	sessions, err := r.fetchSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if activeOnly {
		now := time.Now().UTC()
		filtered := sessions[:0]
		for _, s := range sessions {
			if s.Active(now) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// fetchSubject loads every session blob still present for the subject.
// IDs whose blob has been evicted are dropped from the index best-effort.
func (r *RedisRepository) fetchSubject(ctx context.Context, subjectID string) ([]*domain.Session, error) {
	ids, err := r.client.SMembers(ctx, subjectKey(subjectID)).Result()
	if err != nil {
		return nil, err
	}
	var out []*domain.Session
	for _, id := range ids {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			_ = r.client.SRem(ctx, subjectKey(subjectID), id).Err()
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// rewrite stores the updated blob preserving its remaining TTL.
func (r *RedisRepository) rewrite(ctx context.Context, s *domain.Session) error {
	data, err := json.Marshal(toRecord(s))
	if err != nil {
		return fmt.Errorf("session: marshaling: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("session: storing: %w", err)
	}
	return nil
}
