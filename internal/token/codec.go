// Package token implements the signed-token codec and issuer for the SSO
// trust chain: compact HS256 JWTs with a 5-minute validity window.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the validity window of every token this service mints.
const DefaultTTL = 5 * time.Minute

// Verification failures. The messages are the user-facing Portuguese
// strings surfaced by the SSO validator; callers outside the trust
// boundary only ever see a generic valid:false.
var (
	ErrMalformedToken = errors.New("token mal formatado")
	ErrBadSignature   = errors.New("assinatura inválida")
	ErrExpired        = errors.New("token expirado")
	ErrMissingSubject = errors.New("campo sub obrigatório ausente")
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	Subject    string
	Email      string
	Issuer     string
	Origin     string
	Permission string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Raw        map[string]interface{}
}

// Codec signs and verifies compact HS256 tokens with a shared secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a codec. The secret is server-held and never reaches
// clients.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Sign serializes the claims into a three-part HS256 JWT.
func (c *Codec) Sign(claims jwt.MapClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature, and expiry, and requires a non-empty
// sub claim. Expiry is compared against wall-clock seconds with no leeway,
// matching the partner contract.
func (c *Codec) Verify(raw string) (*Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformedToken
		}
	}

	raw2, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	sub, _ := raw2["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSubject
	}

	claims := &Claims{Subject: sub, Raw: map[string]interface{}(raw2)}
	if v, ok := raw2["email"].(string); ok {
		claims.Email = v
	}
	if v, ok := raw2["iss"].(string); ok {
		claims.Issuer = v
	}
	// Partner tokens carry Portuguese claim names; accept both spellings.
	for _, key := range []string{"origin", "origem"} {
		if v, ok := raw2[key].(string); ok && v != "" {
			claims.Origin = v
		}
	}
	for _, key := range []string{"permission", "permissao"} {
		if v, ok := raw2[key].(string); ok && v != "" {
			claims.Permission = v
		}
	}
	if v, ok := raw2["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(v), 0)
	}
	if v, ok := raw2["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(v), 0)
	}

	return claims, nil
}
