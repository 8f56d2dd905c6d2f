package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"soph-gateway/internal/domain"
	"soph-gateway/internal/session"
)

// GateAction tells the caller how to proceed with a gated request.
type GateAction string

const (
	// ActionRender means the principal is authorized; serve the content.
	ActionRender GateAction = "render"
	// ActionRedirectLogin sends an unauthenticated caller to login,
	// preserving the requested path for the return trip.
	ActionRedirectLogin GateAction = "redirect-login"
	// ActionRedirectRedemption sends an authenticated but unentitled
	// caller to the code redemption page.
	ActionRedirectRedemption GateAction = "redirect-redemption"
	// ActionUnavailable means no verdict could be reached (backend or
	// storage outage); callers should render a retry state, never a
	// login redirect.
	ActionUnavailable GateAction = "unavailable"
)

// GateDecision is the outcome of one gate evaluation.
type GateDecision struct {
	Action    GateAction
	Target    string // redirect target, set for the redirect actions
	Principal domain.Principal
	Verdict   domain.AccessVerdict
}

// GateService guards entitled-only routes. It settles both the
// authentication check and the entitlement check before deciding, so a
// half-finished evaluation can never redirect a user who is actually
// authorized.
type GateService struct {
	resolver *session.Resolver
	access   *AccessService
	logger   *slog.Logger

	loginPath  string
	redeemPath string
}

// NewGateService wires the gate.
func NewGateService(resolver *session.Resolver, access *AccessService, logger *slog.Logger) *GateService {
	return &GateService{
		resolver:   resolver,
		access:     access,
		logger:     logger,
		loginPath:  "/auth",
		redeemPath: "/resgatar",
	}
}

// Decide evaluates the gate for a request to requestedPath.
func (g *GateService) Decide(ctx context.Context, credential, sessionID, requestedPath string) GateDecision {
	principal, err := g.resolver.Resolve(ctx, credential, sessionID)
	if err != nil {
		var authErr *domain.AuthenticationError
		if errors.As(err, &authErr) && authErr.Kind == domain.AuthBackendUnavailable {
			g.logger.Warn("gate could not settle authentication", "error", err)
			return GateDecision{Action: ActionUnavailable}
		}
		return GateDecision{
			Action: ActionRedirectLogin,
			Target: g.loginTarget(requestedPath),
		}
	}

	verdict, err := g.access.Evaluate(ctx, principal)
	if err != nil {
		g.logger.Warn("gate could not settle entitlement", "user_id", principal.ID, "error", err)
		return GateDecision{Action: ActionUnavailable, Principal: principal}
	}

	switch verdict.State {
	case domain.StateAuthorized:
		return GateDecision{Action: ActionRender, Principal: principal, Verdict: verdict}
	case domain.StateNeedsRedemption:
		return GateDecision{Action: ActionRedirectRedemption, Target: g.redeemPath, Principal: principal, Verdict: verdict}
	default:
		return GateDecision{Action: ActionRedirectLogin, Target: g.loginTarget(requestedPath)}
	}
}

// loginTarget builds the login redirect preserving the requested path so
// the user lands back where they started after signing in.
func (g *GateService) loginTarget(requestedPath string) string {
	if requestedPath == "" || requestedPath == "/" {
		return g.loginPath
	}
	return g.loginPath + "?return_to=" + url.QueryEscape(requestedPath)
}
