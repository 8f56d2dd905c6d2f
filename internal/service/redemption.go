package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"soph-gateway/internal/config"
	"soph-gateway/internal/domain"
)

// CodeAuthority judges whether a promo code is valid. The delegated
// variant asks an external service; the self-hosted variant consults the
// local promo_codes table.
type CodeAuthority interface {
	// Check judges the code without consuming it.
	Check(ctx context.Context, code string, p domain.Principal) error
	// Consume atomically claims a single-use code for the principal and
	// reports the code's grant duration in months, 0 when the authority
	// has no say. Delegated authorities validate remotely and have
	// nothing to claim.
	Consume(ctx context.Context, code string, p domain.Principal, at time.Time) (months int, err error)
	// Release undoes a consumption whose grant failed.
	Release(ctx context.Context, code string) error
}

// RedemptionService turns a valid promo code into a time-boxed
// entitlement.
type RedemptionService struct {
	entitlements domain.EntitlementRepository
	authority    CodeAuthority
	audit        domain.AuditRepository
	cfg          config.RedemptionConfig
	logger       *slog.Logger
	now          func() time.Time
}

// NewRedemptionService wires the redemption flow.
func NewRedemptionService(entitlements domain.EntitlementRepository, authority CodeAuthority, audit domain.AuditRepository, cfg config.RedemptionConfig, logger *slog.Logger) *RedemptionService {
	return &RedemptionService{
		entitlements: entitlements,
		authority:    authority,
		audit:        audit,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Redeem runs the full redemption flow for the principal: normalize,
// guard against double grants, judge the code, then extend access by the
// code's duration, falling back to the configured default number of
// months. A consumed code whose grant fails is
// released again, so no code is ever burned without granting access.
func (s *RedemptionService) Redeem(ctx context.Context, p domain.Principal, rawCode string) (*domain.Entitlement, error) {
	if p.ID == "" {
		return nil, domain.ErrUnauthenticated(domain.AuthNoSession, "faça login para resgatar um código")
	}
	code := domain.NormalizeCode(rawCode)
	if code == "" {
		return nil, domain.ErrValidation("informe um código")
	}

	now := s.now()

	current, expectVersion, err := s.currentEntitlement(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if current.ValidAt(now) {
		s.recordAudit(ctx, p.ID, domain.AuditDenied, "acesso já ativo")
		return nil, &domain.AlreadyEntitledError{AccessUntil: *current.AccessUntil}
	}

	months, err := s.authority.Consume(ctx, code, p, now)
	if err != nil {
		s.recordAudit(ctx, p.ID, domain.AuditDenied, err.Error())
		return nil, err
	}
	if months <= 0 {
		months = s.cfg.DurationMonths
	}

	granted, err := s.grant(ctx, p, expectVersion, now, months)
	if err != nil {
		if relErr := s.authority.Release(ctx, code); relErr != nil {
			s.logger.Error("code release after failed grant", "error", relErr)
		}
		s.recordAudit(ctx, p.ID, domain.AuditDenied, err.Error())
		return nil, err
	}

	s.recordAudit(ctx, p.ID, domain.AuditAllowed, "acesso até "+granted.AccessUntil.Format("2006-01-02"))
	return granted, nil
}

// Prevalidate judges a code without consuming it, for the form's inline
// check before submission.
func (s *RedemptionService) Prevalidate(ctx context.Context, p domain.Principal, rawCode string) error {
	code := domain.NormalizeCode(rawCode)
	if code == "" {
		return domain.ErrValidation("informe um código")
	}
	return s.authority.Check(ctx, code, p)
}

// currentEntitlement fetches the stored record, tolerating absence.
// Returns the record (nil when none) and the version the grant must
// compare-and-swap against.
func (s *RedemptionService) currentEntitlement(ctx context.Context, userID string) (*domain.Entitlement, int64, error) {
	ent, err := s.entitlements.Get(ctx, userID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return ent, ent.Version, nil
}

// grant writes the new expiry with a version check. Losing the race to a
// concurrent redeem surfaces as AlreadyEntitledError when the winner's
// grant is active, so the second caller keeps its code.
func (s *RedemptionService) grant(ctx context.Context, p domain.Principal, expectVersion int64, now time.Time, months int) (*domain.Entitlement, error) {
	until := now.AddDate(0, months, 0)
	rec := &domain.Entitlement{
		UserID:      p.ID,
		Email:       p.Email,
		Origin:      s.cfg.OriginTag,
		AccessUntil: &until,
		UpdatedAt:   now,
	}

	granted, err := s.entitlements.Upsert(ctx, rec, expectVersion)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			latest, getErr := s.entitlements.Get(ctx, p.ID)
			if getErr == nil && latest.ValidAt(now) {
				return nil, &domain.AlreadyEntitledError{AccessUntil: *latest.AccessUntil}
			}
		}
		return nil, err
	}
	return granted, nil
}

func (s *RedemptionService) recordAudit(ctx context.Context, userID, status, detail string) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		UserID:    userID,
		Action:    domain.ActionRedeemCode,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "action", entry.Action, "error", err)
	}
}

// LocalCodeAuthority validates codes against the promo_codes table with
// single-use semantics.
type LocalCodeAuthority struct {
	codes domain.PromoCodeRepository
}

// NewLocalCodeAuthority creates the self-hosted authority.
func NewLocalCodeAuthority(codes domain.PromoCodeRepository) *LocalCodeAuthority {
	return &LocalCodeAuthority{codes: codes}
}

// Check looks the code up and applies the usage and email-binding rules.
func (a *LocalCodeAuthority) Check(ctx context.Context, code string, p domain.Principal) error {
	rec, err := a.codes.Get(ctx, code)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return &domain.CodeInvalidError{Message: "código inválido"}
		}
		return err
	}
	if !rec.RedeemableBy(p) {
		return &domain.CodeInvalidError{Message: "código inválido"}
	}
	return nil
}

// Consume claims the code and reports its grant duration. Exactly one
// concurrent caller succeeds.
func (a *LocalCodeAuthority) Consume(ctx context.Context, code string, p domain.Principal, at time.Time) (int, error) {
	rec, err := a.codes.Get(ctx, code)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return 0, &domain.CodeInvalidError{Message: "código inválido"}
		}
		return 0, err
	}
	if !rec.RedeemableBy(p) {
		return 0, &domain.CodeInvalidError{Message: "código inválido"}
	}
	if err := a.codes.Consume(ctx, code, p.ID, at); err != nil {
		var conflict *domain.ConflictError
		var notFound *domain.NotFoundError
		if errors.As(err, &conflict) || errors.As(err, &notFound) {
			return 0, &domain.CodeInvalidError{Message: "código inválido"}
		}
		return 0, err
	}
	return rec.DurationMonths, nil
}

// Release returns the code to the pool.
func (a *LocalCodeAuthority) Release(ctx context.Context, code string) error {
	return a.codes.Release(ctx, code)
}

// RemoteCodeAuthority delegates code judgement to an external validation
// endpoint. Codes are consumed on the remote side, so Consume degrades to
// Check and Release is a no-op.
type RemoteCodeAuthority struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewRemoteCodeAuthority creates the delegated authority with the
// configured request timeout.
func NewRemoteCodeAuthority(cfg config.RedemptionConfig, logger *slog.Logger) *RemoteCodeAuthority {
	timeout := cfg.AuthorityTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteCodeAuthority{
		url:    cfg.AuthorityURL,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type authorityRequest struct {
	Code string `json:"code"`
}

type authorityResponse struct {
	Valid bool `json:"valid"`
}

// Check POSTs the code to the authority. An explicit valid:false is a
// rejection; anything that prevents a judgement (timeout, network error,
// non-2xx, unreadable body) is AuthorityUnavailableError.
func (a *RemoteCodeAuthority) Check(ctx context.Context, code string, _ domain.Principal) error {
	body, err := json.Marshal(authorityRequest{Code: code})
	if err != nil {
		return &domain.AuthorityUnavailableError{Message: "erro interno"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return &domain.AuthorityUnavailableError{Message: "erro interno"}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("code authority unreachable", "error", err)
		return &domain.AuthorityUnavailableError{Message: "serviço de validação indisponível, tente novamente"}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.logger.Warn("code authority error", "status", resp.StatusCode)
		return &domain.AuthorityUnavailableError{Message: "serviço de validação indisponível, tente novamente"}
	}

	var out authorityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &domain.AuthorityUnavailableError{Message: "resposta inválida do serviço de validação"}
	}
	if !out.Valid {
		return &domain.CodeInvalidError{Message: "código inválido"}
	}
	return nil
}

// Consume validates remotely; the remote side owns usage accounting and
// says nothing about duration.
func (a *RemoteCodeAuthority) Consume(ctx context.Context, code string, p domain.Principal, _ time.Time) (int, error) {
	return 0, a.Check(ctx, code, p)
}

// Release is a no-op for delegated codes.
func (a *RemoteCodeAuthority) Release(context.Context, string) error { return nil }
