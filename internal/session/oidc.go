package session

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"soph-gateway/internal/domain"
)

// OIDCAuthenticator validates session credentials as OIDC ID tokens using
// JWKS discovery. It is the primary-path authenticator when the identity
// backend exposes an OIDC issuer instead of a user endpoint.
type OIDCAuthenticator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]bool
}

// NewOIDCAuthenticator creates an authenticator from an OIDC issuer URL.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID: audience,
	})
	issuers := make(map[string]bool, len(allowedIssuers))
	for _, iss := range allowedIssuers {
		issuers[iss] = true
	}
	if len(issuers) == 0 {
		issuers[issuerURL] = true
	}
	return &OIDCAuthenticator{verifier: verifier, allowedIssuers: issuers}, nil
}

// GetPrincipal verifies the credential against the provider's JWKS.
func (a *OIDCAuthenticator) GetPrincipal(ctx context.Context, credential string) (domain.Principal, error) {
	if credential == "" {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthNoSession, "credencial ausente")
	}

	idToken, err := a.verifier.Verify(ctx, credential)
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthInvalid, "sessão inválida ou expirada")
	}
	if len(a.allowedIssuers) > 0 && !a.allowedIssuers[idToken.Issuer] {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthInvalid, "emissor não autorizado")
	}

	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthInvalid, "claims ilegíveis")
	}

	p := domain.Principal{
		ID:     idToken.Subject,
		Source: domain.SourcePrimarySession,
	}
	if email, ok := raw["email"].(string); ok {
		p.Email = email
	}
	return p, nil
}
