package ui

import (
	"errors"
	"net/http"
	"strings"

	gomponents "maragu.dev/gomponents"

	"soph-gateway/internal/domain"
	"soph-gateway/internal/middleware"
	"soph-gateway/internal/service"
)

// Handler serves the gateway's HTML pages.
type Handler struct {
	Gate       *service.GateService
	Bridge     *service.BridgeService
	Redemption *service.RedemptionService
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

// SSOEntry handles GET /sso?token=...: validates the handoff token and
// establishes the session marker through the same path as the bridge.
// Invalid tokens render the denied page with a delayed login redirect and
// persist nothing.
func (h *Handler) SSOEntry(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("token"))
	sessionID := middleware.SessionIDFromContext(r.Context())

	if !h.Bridge.Establish(r.Context(), sessionID, raw) {
		renderHTML(w, http.StatusUnauthorized, ssoDeniedPage())
		return
	}
	renderHTML(w, http.StatusOK, ssoWelcomePage())
}

// Gated wraps a protected page handler with the gate decision.
func (h *Handler) Gated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := bearerFromRequest(r)
		sessionID := middleware.SessionIDFromContext(r.Context())

		decision := h.Gate.Decide(r.Context(), credential, sessionID, r.URL.Path)
		switch decision.Action {
		case service.ActionRender:
			next(w, r.WithContext(domain.WithPrincipal(r.Context(), decision.Principal)))
		case service.ActionRedirectRedemption:
			http.Redirect(w, r, decision.Target, http.StatusSeeOther)
		case service.ActionRedirectLogin:
			http.Redirect(w, r, decision.Target, http.StatusSeeOther)
		default:
			renderHTML(w, http.StatusServiceUnavailable, gateLoadingPage())
		}
	}
}

// RedeemPage handles GET /resgatar.
func (h *Handler) RedeemPage(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, redeemPage(""))
}

// RedeemSubmit handles POST /resgatar form submissions.
func (h *Handler) RedeemSubmit(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/auth?return_to=%2Fresgatar", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, redeemPage("Formulário inválido."))
		return
	}

	granted, err := h.Redemption.Redeem(r.Context(), principal, r.Form.Get("code"))
	if err != nil {
		renderHTML(w, redeemStatus(err), redeemPage(err.Error()))
		return
	}
	renderHTML(w, http.StatusOK, redeemPage(
		"Código resgatado! Acesso liberado até "+granted.AccessUntil.Format("02/01/2006")+"."))
}

// ChatPage handles GET /chat behind the gate.
func (h *Handler) ChatPage(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, chatPage())
}

// NoAccessPage handles GET /sem-acesso.
func (h *Handler) NoAccessPage(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, noAccessPage())
}

func redeemStatus(err error) int {
	var invalid *domain.CodeInvalidError
	var already *domain.AlreadyEntitledError
	var unavailable *domain.AuthorityUnavailableError
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &already):
		return http.StatusConflict
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func bearerFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
