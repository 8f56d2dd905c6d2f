// Package session resolves bearer credentials and session-scoped SSO
// markers into principals. It wraps the primary identity backend and the
// SSO validation path behind one resolver.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"soph-gateway/internal/domain"
)

// Authenticator resolves a bearer credential to a principal.
type Authenticator interface {
	GetPrincipal(ctx context.Context, credential string) (domain.Principal, error)
}

// BackendAuthenticator validates credentials against the primary identity
// backend's user endpoint.
type BackendAuthenticator struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewBackendAuthenticator creates an authenticator for the given backend.
func NewBackendAuthenticator(baseURL, apiKey string, logger *slog.Logger) *BackendAuthenticator {
	return &BackendAuthenticator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type backendUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// GetPrincipal resolves the credential via GET {base}/auth/v1/user.
// Backend rejections become NoSession/Invalid; transport failures become
// BackendUnavailable so callers can tell an outage from a logged-out user.
func (a *BackendAuthenticator) GetPrincipal(ctx context.Context, credential string) (domain.Principal, error) {
	if credential == "" {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthNoSession, "credencial ausente")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthBackendUnavailable, "erro interno")
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("identity backend unreachable", "error", err)
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthBackendUnavailable, "serviço de autenticação indisponível")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthInvalid, "sessão inválida ou expirada")
	default:
		a.logger.Warn("identity backend error", "status", resp.StatusCode)
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthBackendUnavailable, "serviço de autenticação indisponível")
	}

	var user backendUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthBackendUnavailable, "resposta inválida do backend")
	}
	if user.ID == "" {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthInvalid, "sessão sem usuário")
	}

	return domain.Principal{
		ID:     user.ID,
		Email:  user.Email,
		Source: domain.SourcePrimarySession,
	}, nil
}

// String avoids accidental logging of internals.
func (a *BackendAuthenticator) String() string {
	return fmt.Sprintf("BackendAuthenticator(%s)", a.baseURL)
}
