package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"soph-gateway/internal/domain"
	"soph-gateway/internal/session"
)

// Authenticate resolves the request's bearer credential and session
// marker into a principal and stores it in the context. Resolution
// failure is not fatal here; routes that need a principal compose
// RequirePrincipal on top.
func Authenticate(resolver *session.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := bearerToken(r)
			sessionID := SessionIDFromContext(r.Context())

			principal, err := resolver.Resolve(r.Context(), credential, sessionID)
			if err == nil {
				r = r.WithContext(domain.WithPrincipal(r.Context(), principal))
			} else {
				var authErr *domain.AuthenticationError
				if errors.As(err, &authErr) && authErr.Kind == domain.AuthBackendUnavailable {
					writeAuthError(w, http.StatusServiceUnavailable, authErr.Message)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePrincipal rejects requests whose context carries no principal.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := domain.PrincipalFromContext(r.Context()); !ok {
			writeAuthError(w, http.StatusUnauthorized, "autenticação necessária")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    status,
		"message": message,
	})
}
