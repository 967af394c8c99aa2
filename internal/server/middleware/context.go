package middleware

import "context"

type contextKey struct{ name string }

var (
	subjectIDKey = contextKey{"subject_id"}
	sessionIDKey = contextKey{"session_id"}
)

// WithIdentity returns a context with subject_id and session_id set.
// Handlers read these via GetSubjectID and GetSessionID.
func WithIdentity(ctx context.Context, subjectID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, subjectIDKey, subjectID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return ctx
}

// GetSubjectID returns the subject_id from context and true if set; otherwise "", false.
func GetSubjectID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}
