// Package handler exposes the login, logout, and session endpoints over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"session-gateway/internal/auth"
	"session-gateway/internal/server/middleware"
	sessiondomain "session-gateway/internal/session/domain"
)

// AuthHandler serves the authentication endpoints.
type AuthHandler struct {
	svc           *auth.Service
	secureCookies bool
	logger        *zap.Logger
}

// NewAuthHandler returns an AuthHandler over the auth service.
func NewAuthHandler(svc *auth.Service, secureCookies bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{svc: svc, secureCookies: secureCookies, logger: logger}
}

// RegisterRoutes mounts the auth endpoints on the router. Logout and the
// session list require an identity resolved by the gate.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", h.Logout)
		r.Get("/sessions", h.Sessions)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Location is an optional client-supplied hint recorded on the session.
	Location string `json:"location,omitempty"`
}

type loginResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// Login verifies credentials and sets the session cookie. The cookie is only
// set once the session record is durably written, so a store failure cannot
// leave the client with a token the store has never seen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meta := auth.LoginMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Location:  req.Location,
	}
	token, expiresAt, err := h.svc.Login(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	auth.SetSessionCookie(w, token, expiresAt, h.secureCookies)
	writeJSON(w, http.StatusOK, loginResponse{ExpiresAt: expiresAt})
}

// Logout revokes the caller's sessions and clears the cookie. The cookie is
// cleared even if revocation fails so the client does not keep presenting a
// token the server wants gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	subjectID, _ := middleware.GetSubjectID(r.Context())

	err := h.svc.Logout(r.Context(), subjectID)
	auth.ClearSessionCookie(w, h.secureCookies)
	if err != nil {
		h.logger.Error("logout failed", zap.String("subject_id", subjectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type sessionResponse struct {
	ID             string     `json:"id"`
	IPAddress      string     `json:"ip_address,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	Location       string     `json:"location,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	IsActive       bool       `json:"is_active"`
	TerminatedAt   *time.Time `json:"terminated_at,omitempty"`
}

// Sessions lists the caller's session history, newest first, including
// terminated sessions.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	subjectID, _ := middleware.GetSubjectID(r.Context())

	sessions, err := h.svc.Sessions(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("session list failed", zap.String("subject_id", subjectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func toSessionResponse(s *sessiondomain.Session) sessionResponse {
	return sessionResponse{
		ID:             s.ID,
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
