package service

import (
	"context"
	"log/slog"
	"time"

	"soph-gateway/internal/domain"
)

// ToolService resolves protected tool slugs to their URLs, gated on the
// caller's entitlement.
type ToolService struct {
	tools  domain.ToolRepository
	access *AccessService
	audit  domain.AuditRepository
	logger *slog.Logger
}

// NewToolService creates the resolver.
func NewToolService(tools domain.ToolRepository, access *AccessService, audit domain.AuditRepository, logger *slog.Logger) *ToolService {
	return &ToolService{tools: tools, access: access, audit: audit, logger: logger}
}

// Resolve sanitizes the slug, checks the principal's entitlement and
// returns the tool. Unentitled callers never learn whether the slug
// exists.
func (s *ToolService) Resolve(ctx context.Context, p domain.Principal, rawSlug string) (*domain.ProtectedTool, error) {
	slug := domain.SanitizeSlug(rawSlug)
	if slug == "" {
		return nil, domain.ErrValidation("ferramenta inválida")
	}

	verdict, err := s.access.Evaluate(ctx, p)
	if err != nil {
		return nil, err
	}
	if verdict.State != domain.StateAuthorized {
		s.recordAudit(ctx, p.ID, domain.AuditDenied, slug)
		return nil, domain.ErrAccessDenied("acesso não autorizado")
	}

	tool, err := s.tools.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p.ID, domain.AuditAllowed, slug)
	return tool, nil
}

func (s *ToolService) recordAudit(ctx context.Context, userID, status, detail string) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		UserID:    userID,
		Action:    domain.ActionResolveTool,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "action", entry.Action, "error", err)
	}
}
