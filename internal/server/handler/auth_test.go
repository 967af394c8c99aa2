package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"session-gateway/internal/auth"
	"session-gateway/internal/security"
	"session-gateway/internal/server/middleware"
	sessiondomain "session-gateway/internal/session/domain"
	userdomain "session-gateway/internal/user/domain"
)

type fakeUserRepo struct {
	users map[string]*userdomain.User
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return f.users[email], nil
}

type fakeSessionRepo struct {
	created []*sessiondomain.Session
	revoked []string
	listed  []*sessiondomain.Session
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSessionRepo) RevokeAll(ctx context.Context, subjectID string) error {
	f.revoked = append(f.revoked, subjectID)
	return nil
}

func (f *fakeSessionRepo) ListBySubject(ctx context.Context, subjectID string, activeOnly bool) ([]*sessiondomain.Session, error) {
	return f.listed, nil
}

func newHandler(t *testing.T, users *fakeUserRepo, sessions *fakeSessionRepo) *AuthHandler {
	t.Helper()
	hasher := security.NewHasher(bcrypt.MinCost)
	codec, err := security.NewTokenCodec("handler-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	svc := auth.NewService(users, sessions, hasher, codec, nil, nil)
	return NewAuthHandler(svc, false, nil)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	return string(h)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestLogin_SetsCookieOnSuccess(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*userdomain.User{
		"alice@example.com": {
			ID:           "user-1",
			Email:        "alice@example.com",
			PasswordHash: hashPassword(t, "correct horse"),
			Status:       userdomain.UserStatusActive,
		},
	}}
	sessions := &fakeSessionRepo{}
	h := newHandler(t, users, sessions)

	body := `{"email":"alice@example.com","password":"correct horse","location":"Berlin, DE"}`
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	r.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	h.Login(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	c := sessionCookie(rec)
	if c == nil || c.Value == "" {
		t.Fatal("session cookie not set")
	}
	if !c.HttpOnly {
		t.Error("cookie must be HTTP-only")
	}
	if len(sessions.created) != 1 {
		t.Fatalf("created %d sessions, want 1", len(sessions.created))
	}
	if sessions.created[0].UserAgent != "test-agent" || sessions.created[0].Location != "Berlin, DE" {
		t.Errorf("session = %+v", sessions.created[0])
	}

	var resp struct {
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Errorf("expires_at %v is not in the future", resp.ExpiresAt)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*userdomain.User{
		"alice@example.com": {
			ID:           "user-1",
			Email:        "alice@example.com",
			PasswordHash: hashPassword(t, "correct horse"),
			Status:       userdomain.UserStatusActive,
		},
	}}
	sessions := &fakeSessionRepo{}
	h := newHandler(t, users, sessions)

	body := `{"email":"alice@example.com","password":"wrong"}`
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if sessionCookie(rec) != nil {
		t.Error("no cookie may be set on a failed login")
	}
	if len(sessions.created) != 0 {
		t.Error("no session may be created on a failed login")
	}
}

func TestLogin_BadBody(t *testing.T) {
	h := newHandler(t, &fakeUserRepo{}, &fakeSessionRepo{})

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Login(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogout_RevokesAndClearsCookie(t *testing.T) {
	sessions := &fakeSessionRepo{}
	h := newHandler(t, &fakeUserRepo{}, sessions)

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r = r.WithContext(middleware.WithIdentity(r.Context(), "user-1", "sess-1"))
	rec := httptest.NewRecorder()
	h.Logout(rec, r)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "user-1" {
		t.Errorf("revoked = %v", sessions.revoked)
	}
	c := sessionCookie(rec)
	if c == nil {
		t.Fatal("clearing cookie not set")
	}
	if c.Value != "" || c.MaxAge >= 0 {
		t.Errorf("cookie = %q, MaxAge %d; want cleared", c.Value, c.MaxAge)
	}
}

func TestSessions_ListsHistory(t *testing.T) {
	now := time.Now().UTC()
	terminated := now.Add(-time.Hour)
	sessions := &fakeSessionRepo{listed: []*sessiondomain.Session{
		{ID: "sess-2", SubjectID: "user-1", CreatedAt: now, LastActivityAt: now, ExpiresAt: now.Add(24 * time.Hour), IsActive: true},
		{ID: "sess-1", SubjectID: "user-1", CreatedAt: now.Add(-2 * time.Hour), LastActivityAt: terminated, ExpiresAt: now.Add(22 * time.Hour), IsActive: false, TerminatedAt: &terminated},
	}}
	h := newHandler(t, &fakeUserRepo{}, sessions)

	r := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	r = r.WithContext(middleware.WithIdentity(r.Context(), "user-1", "sess-2"))
	rec := httptest.NewRecorder()
	h.Sessions(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(resp.Sessions))
	}
	if resp.Sessions[0].ID != "sess-2" || !resp.Sessions[0].IsActive {
		t.Errorf("first session = %+v", resp.Sessions[0])
	}
	if resp.Sessions[1].TerminatedAt == nil {
		t.Error("terminated session must carry terminated_at")
	}
}
