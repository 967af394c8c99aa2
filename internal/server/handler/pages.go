package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"session-gateway/internal/server/middleware"
)

// PageHandler serves the application pages the gate routes between. The
// real frontend renders these; here they answer JSON so the routing
// behavior is observable without one.
type PageHandler struct{}

// NewPageHandler returns a PageHandler.
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// RegisterRoutes mounts the page endpoints. Access control lives in the
// gate middleware, not here; the handlers only render.
func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/login", h.LoginPage)
	r.Get("/dashboard", h.Dashboard)
	r.Get("/settings", h.Settings)
}

// LoginPage is the unauthenticated entry point. Authenticated clients never
// reach it; the gate redirects them to the landing page first.
func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "login"})
}

// Dashboard is the authenticated landing page.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	subjectID, _ := middleware.GetSubjectID(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"page": "dashboard", "subject_id": subjectID})
}

// Settings requires authentication; unauthenticated clients are redirected
// to login by the gate before this runs.
func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	subjectID, _ := middleware.GetSubjectID(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"page": "settings", "subject_id": subjectID})
}
