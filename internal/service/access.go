package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"soph-gateway/internal/domain"
)

// AccessService derives the three-way access verdict for a principal.
type AccessService struct {
	entitlements domain.EntitlementRepository
	logger       *slog.Logger
	now          func() time.Time
}

// NewAccessService creates the evaluator.
func NewAccessService(entitlements domain.EntitlementRepository, logger *slog.Logger) *AccessService {
	return &AccessService{entitlements: entitlements, logger: logger, now: time.Now}
}

// Evaluate maps the principal to a verdict. No principal means
// unauthenticated; an absent or expired entitlement means redemption is
// needed; a future expiry authorizes. Storage failures surface as errors
// rather than a silent deny, so callers can distinguish "no" from
// "unknown".
func (s *AccessService) Evaluate(ctx context.Context, p domain.Principal) (domain.AccessVerdict, error) {
	if p.ID == "" {
		return domain.AccessVerdict{State: domain.StateUnauthenticated}, nil
	}

	ent, err := s.entitlements.Get(ctx, p.ID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return domain.AccessVerdict{State: domain.StateNeedsRedemption}, nil
		}
		return domain.AccessVerdict{}, err
	}

	if !ent.ValidAt(s.now()) {
		return domain.AccessVerdict{State: domain.StateNeedsRedemption, Entitlement: ent}, nil
	}
	return domain.AccessVerdict{State: domain.StateAuthorized, Entitlement: ent}, nil
}
