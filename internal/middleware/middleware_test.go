package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soph-gateway/internal/domain"
	"soph-gateway/internal/session"
)

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nilWriter{}, nil))
}

type stubAuthenticator struct {
	principal domain.Principal
	err       error
}

func (s *stubAuthenticator) GetPrincipal(context.Context, string) (domain.Principal, error) {
	return s.principal, s.err
}

type stubValidator struct{}

func (stubValidator) ValidateToken(context.Context, string) (string, error) {
	return "", domain.ErrValidation("token expirado")
}

func newResolver(auth session.Authenticator) *session.Resolver {
	return session.NewResolver(auth, session.NewMemoryMarkerStore(), stubValidator{}, session.NewWatcher(), discardLogger())
}

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := domain.PrincipalFromContext(r.Context()); ok {
			_, _ = w.Write([]byte(p.ID))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func TestSessionID_SetsCookieOnce(t *testing.T) {
	t.Parallel()
	var captured string
	h := SessionID(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, captured)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, captured, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	// existing cookie is reused, not reissued
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "existing-id"})
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, "existing-id", captured)
	assert.Empty(t, rec2.Result().Cookies())
}

func TestAuthenticate_PrincipalInContext(t *testing.T) {
	t.Parallel()
	resolver := newResolver(&stubAuthenticator{principal: domain.Principal{ID: "user-1", Source: domain.SourcePrimarySession}})
	h := Authenticate(resolver)(echoPrincipal())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer cred")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestAuthenticate_AnonymousPassesThrough(t *testing.T) {
	t.Parallel()
	resolver := newResolver(&stubAuthenticator{err: domain.ErrUnauthenticated(domain.AuthNoSession, "credencial ausente")})
	h := Authenticate(resolver)(echoPrincipal())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestAuthenticate_BackendOutageIs503(t *testing.T) {
	t.Parallel()
	resolver := newResolver(&stubAuthenticator{err: domain.ErrUnauthenticated(domain.AuthBackendUnavailable, "indisponível")})
	h := Authenticate(resolver)(echoPrincipal())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer cred")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequirePrincipal(t *testing.T) {
	t.Parallel()
	h := RequirePrincipal(echoPrincipal())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(domain.WithPrincipal(req.Context(), domain.Principal{ID: "user-1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	var got string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
	assert.Equal(t, got, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", got)
}

func TestRateLimiter_Enforces(t *testing.T) {
	t.Parallel()
	h := RateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])

	// different client, separate bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
