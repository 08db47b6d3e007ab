package api

import (
	"net/http"

	"github.com/google/uuid"

	"PrettyChat/internal/api/ctxkeys"
)

// sessionCookie names the cookie carrying the opaque session identifier.
const sessionCookie = "prettychat_session"

// SessionMiddleware assigns a unique session identifier to each client on
// first contact and injects it into the request context. The identifier is
// opaque to the core; it only keys the conversation map and log entries.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			sid = c.Value
		} else {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(ctxkeys.WithSessionID(r.Context(), sid)))
	})
}
