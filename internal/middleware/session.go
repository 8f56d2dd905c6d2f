// Package middleware provides the HTTP middleware chain: session cookie,
// principal resolution, request IDs, and per-client rate limiting.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SessionCookieName carries the opaque browser-session id the SSO marker
// store is keyed by.
const SessionCookieName = "soph_session"

type sessionIDKey struct{}

// SessionID assigns each browser a stable opaque session id. The id is
// random and carries no identity; it only keys the in-memory marker
// store.
func SessionID(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
				id = c.Value
			} else {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), sessionIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext extracts the session id from the context. Returns
// an empty string when the middleware did not run.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}
