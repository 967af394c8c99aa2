// Package telemetry defines session lifecycle events and best-effort emission.
package telemetry

import "time"

// Event types emitted by the gateway.
const (
	EventLogin        = "login"
	EventLogout       = "logout"
	EventAccessDenied = "access_denied"
)

// Event is a session lifecycle event (login, logout, denied request).
type Event struct {
	Type      string    `json:"type"`
	SubjectID string    `json:"subject_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent returns an Event of the given type stamped with the current time.
func NewEvent(eventType string) *Event {
	return &Event{Type: eventType, CreatedAt: time.Now().UTC()}
}
