// Package service implements the application services of the access
// gateway: SSO token validation, access evaluation, code redemption, the
// cross-origin bridge, gate decisions, and protected tool resolution.
package service

import (
	"context"
	"log/slog"
	"time"

	"soph-gateway/internal/domain"
	"soph-gateway/internal/token"
)

// ValidationResult is the outward answer of the SSO validator. Failures
// are collapsed to Valid=false with no detail; the precise reason stays
// in server logs only.
type ValidationResult struct {
	Valid   bool
	Subject string
	Email   string
}

// SSOTokenService validates partner-issued SSO tokens against the shared
// secret and records the outcome.
type SSOTokenService struct {
	codec  *token.Codec
	audit  domain.AuditRepository
	logger *slog.Logger
}

// NewSSOTokenService creates the validator.
func NewSSOTokenService(codec *token.Codec, audit domain.AuditRepository, logger *slog.Logger) *SSOTokenService {
	return &SSOTokenService{codec: codec, audit: audit, logger: logger}
}

// Validate verifies the raw token. Every failure mode (malformed, bad
// signature, expired, missing subject) yields the same negative result so
// probing callers learn nothing about which check tripped.
func (s *SSOTokenService) Validate(ctx context.Context, raw string) ValidationResult {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		s.logger.Info("sso token rejected", "reason", err, "token", Redact(raw))
		s.recordAudit(ctx, "", domain.AuditDenied, err.Error())
		return ValidationResult{}
	}

	s.recordAudit(ctx, claims.Subject, domain.AuditAllowed, "")
	return ValidationResult{
		Valid:   true,
		Subject: claims.Subject,
		Email:   claims.Email,
	}
}

// ValidateToken is the re-validation hook used by the session resolver
// for stale markers.
func (s *SSOTokenService) ValidateToken(ctx context.Context, raw string) (string, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return "", err
	}
	_ = ctx
	return claims.Subject, nil
}

func (s *SSOTokenService) recordAudit(ctx context.Context, userID, status, detail string) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		UserID:    userID,
		Action:    domain.ActionValidateSSOToken,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "action", entry.Action, "error", err)
	}
}

// Redact shortens a credential for logging. Only a short prefix survives;
// full tokens never reach log output.
func Redact(tok string) string {
	const keep = 8
	if len(tok) <= keep {
		return "[redacted]"
	}
	return tok[:keep] + "..."
}
