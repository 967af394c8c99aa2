package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"session-gateway/internal/session/domain"
)

func newRedisRepo(t *testing.T) *RedisRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client)
}

func redisTestSession(id, subjectID string, createdAt time.Time) *domain.Session {
	return &domain.Session{
		ID:             id,
		SubjectID:      subjectID,
		IPAddress:      "192.0.2.10",
		UserAgent:      "Mozilla/5.0",
		CreatedAt:      createdAt,
		LastActivityAt: createdAt,
		ExpiresAt:      time.Now().UTC().Add(24 * time.Hour),
		IsActive:       true,
	}
}

func TestRedisCreateAndGetByID(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sess := redisTestSession("s1", "user-1", now)
	if err := repo.Create(ctx, sess); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil")
	}
	if got.SubjectID != "user-1" || got.IPAddress != "192.0.2.10" || !got.IsActive {
		t.Errorf("GetByID = %+v", got)
	}
}

func TestRedisGetByID_Missing(t *testing.T) {
	repo := newRedisRepo(t)

	got, err := repo.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("GetByID missing session = %+v, want nil", got)
	}
}

func TestRedisCreate_RejectsExpired(t *testing.T) {
	repo := newRedisRepo(t)
	sess := redisTestSession("s1", "user-1", time.Now().UTC())
	sess.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	if err := repo.Create(context.Background(), sess); err == nil {
		t.Fatal("Create with past expiry: want error, got nil")
	}
}

func TestRedisFindActive_PicksNewest(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	older := redisTestSession("s1", "user-1", now.Add(-time.Hour))
	newer := redisTestSession("s2", "user-1", now)
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create older: %v", err)
	}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create newer: %v", err)
	}

	got, err := repo.FindActive(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if got == nil || got.ID != "s2" {
		t.Errorf("FindActive = %+v, want session s2", got)
	}
}

func TestRedisFindActive_IgnoresRevoked(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, redisTestSession("s1", "user-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}

	got, err := repo.FindActive(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if got != nil {
		t.Errorf("FindActive after revoke = %+v, want nil", got)
	}
}

func TestRedisRevokeAll_Idempotent(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, redisTestSession("s1", "user-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("first RevokeAll: %v", err)
	}
	first, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if err := repo.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("second RevokeAll: %v", err)
	}
	second, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if first == nil || second == nil {
		t.Fatal("revoked session blob should survive revocation")
	}
	if second.IsActive {
		t.Error("session still active after RevokeAll")
	}
	if second.TerminatedAt == nil || !second.TerminatedAt.Equal(*first.TerminatedAt) {
		t.Errorf("second revoke changed terminated_at: %v vs %v", second.TerminatedAt, first.TerminatedAt)
	}

	// No active sessions left at all: still not an error.
	if err := repo.RevokeAll(ctx, "user-without-sessions"); err != nil {
		t.Errorf("RevokeAll with no sessions: %v", err)
	}
}

func TestRedisTouch(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, redisTestSession("s1", "user-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	later := now.Add(10 * time.Minute)
	if err := repo.Touch(ctx, "s1", later); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.LastActivityAt.Equal(later) {
		t.Errorf("LastActivityAt = %v, want %v", got.LastActivityAt, later)
	}

	// An out-of-order touch must not move the timestamp backward.
	if err := repo.Touch(ctx, "s1", now); err != nil {
		t.Fatalf("Touch older: %v", err)
	}
	got, err = repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.LastActivityAt.Equal(later) {
		t.Errorf("LastActivityAt moved backward to %v", got.LastActivityAt)
	}

	// Touching a missing session is a no-op.
	if err := repo.Touch(ctx, "gone", later); err != nil {
		t.Errorf("Touch missing session: %v", err)
	}
}

func TestRedisTouch_RevokedStaysRevoked(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, redisTestSession("s1", "user-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}

	if err := repo.Touch(ctx, "s1", now.Add(10*time.Minute)); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.IsActive || got.TerminatedAt == nil {
		t.Errorf("touch revived revoked session: %+v", got)
	}
	if !got.LastActivityAt.Equal(now) {
		t.Errorf("touch moved last_activity_at on a revoked session to %v", got.LastActivityAt)
	}
}

func TestRedisTouch_ConcurrentRevokeNeverRevives(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	// Race a touch against a revocation many times; whatever the
	// interleaving, the session must stay revoked once RevokeAll returns.
	for i := 0; i < 50; i++ {
		subject := fmt.Sprintf("user-%d", i)
		id := fmt.Sprintf("s-%d", i)
		if err := repo.Create(ctx, redisTestSession(id, subject, time.Now().UTC())); err != nil {
			t.Fatalf("Create: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = repo.Touch(ctx, id, time.Now().UTC().Add(time.Minute))
		}()
		go func() {
			defer wg.Done()
			if err := repo.RevokeAll(ctx, subject); err != nil {
				t.Errorf("RevokeAll: %v", err)
			}
		}()
		wg.Wait()

		got, err := repo.FindActive(ctx, subject)
		if err != nil {
			t.Fatalf("FindActive: %v", err)
		}
		if got != nil {
			t.Fatalf("iteration %d: session active again after RevokeAll returned: %+v", i, got)
		}
		blob, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if blob.IsActive || blob.TerminatedAt == nil {
			t.Fatalf("iteration %d: blob revived: %+v", i, blob)
		}
	}
}

func TestRedisListBySubject(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Create(ctx, redisTestSession("s1", "user-1", now.Add(-time.Hour))); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, redisTestSession("s2", "user-1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.RevokeAll(ctx, "user-1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if err := repo.Create(ctx, redisTestSession("s3", "user-1", now.Add(time.Minute))); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := repo.ListBySubject(ctx, "user-1", false)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListBySubject all = %d sessions, want 3", len(all))
	}
	if all[0].ID != "s3" {
		t.Errorf("newest first: got %s", all[0].ID)
	}

	active, err := repo.ListBySubject(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("ListBySubject active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "s3" {
		t.Errorf("ListBySubject active = %+v, want only s3", active)
	}
}
