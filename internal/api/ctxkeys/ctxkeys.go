// Package ctxkeys defines typed context keys shared between the HTTP layer
// and the core, so log entries from concurrent sessions stay attributable.
package ctxkeys

import "context"

type contextKey string

// SessionID carries the opaque per-client session identifier.
const SessionID contextKey = "session_id"

// WithSessionID returns a context carrying the session identifier.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionID, sessionID)
}

// SessionIDFrom extracts the session identifier from the context, or
// "no-session" when none was attached.
func SessionIDFrom(ctx context.Context) string {
	if sid, ok := ctx.Value(SessionID).(string); ok && sid != "" {
		return sid
	}
	return "no-session"
}
