package token

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"soph-gateway/internal/domain"
)

// PartnerConfig describes a downstream application that accepts handoff
// tokens from this service.
type PartnerConfig struct {
	Name       string // partner identifier, e.g. "pricing"
	BaseURL    string // e.g. https://aplicativodeprecificacao.netlify.app
	Permission string // scope asserted in the token, e.g. "pricing_access"
	// IncludeSubject controls whether the user id is leaked to the
	// partner. Default is email-only identification.
	IncludeSubject bool
}

// Issuer mints short-lived tokens asserting the current principal, either
// for partner entry into this app or for handoff to a partner app.
type Issuer struct {
	codec  *Codec
	issuer string // iss claim for entry tokens
	origin string // origem claim for handoff tokens
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer with the default 5-minute validity window.
func NewIssuer(codec *Codec, issuerName string) *Issuer {
	return &Issuer{
		codec:  codec,
		issuer: issuerName,
		origin: "soph",
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// EntryToken mints the token a partner uses to enter this app on behalf
// of an already-authenticated user: {sub, email, iat, exp, iss}.
func (i *Issuer) EntryToken(p domain.Principal) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": p.ID,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
		"iss": i.issuer,
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	return i.codec.Sign(claims)
}

// HandoffURL mints a handoff token scoped to the partner's permission and
// returns the full redirect URL. The payload uses the partner contract's
// claim names (origem/permissao).
func (i *Issuer) HandoffURL(p domain.Principal, partner PartnerConfig) (string, error) {
	if p.Email == "" && !partner.IncludeSubject {
		return "", domain.ErrValidation("principal sem email não pode ser identificado para o parceiro %s", partner.Name)
	}
	now := i.now()
	claims := jwt.MapClaims{
		"email":     p.Email,
		"origem":    i.origin,
		"permissao": partner.Permission,
		"iat":       now.Unix(),
		"exp":       now.Add(i.ttl).Unix(),
	}
	if partner.IncludeSubject {
		claims["sub"] = p.ID
	}
	signed, err := i.codec.Sign(claims)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/access?token=%s", partner.BaseURL, url.QueryEscape(signed)), nil
}
