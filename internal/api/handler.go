// Package api exposes the gateway's JSON surface: SSO validation, token
// issuance, code redemption, access verdicts, tool resolution, and the
// chat stream.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"soph-gateway/internal/chat"
	"soph-gateway/internal/domain"
	"soph-gateway/internal/middleware"
	"soph-gateway/internal/service"
	"soph-gateway/internal/token"
)

// Handler carries the services behind the JSON endpoints.
type Handler struct {
	SSOTokens  *service.SSOTokenService
	Access     *service.AccessService
	Redemption *service.RedemptionService
	Bridge     *service.BridgeService
	Tools      *service.ToolService
	Issuer     *token.Issuer
	Chat       *chat.Proxy
	Partner    token.PartnerConfig
	Logger     *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the domain error to its status and emits the
// {code, message} envelope.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "error", err)
		message = "erro interno"
	}
	writeJSON(w, status, map[string]interface{}{
		"code":    status,
		"message": message,
	})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("corpo da requisição inválido")
	}
	return nil
}

// ValidateSSOToken handles POST /v1/sso/validate. 400 when no token is
// supplied; otherwise 200 {valid:true, user:{...}} for a good token and a
// bare 401 {valid:false} for everything else, with no hint of which
// check failed.
func (h *Handler) ValidateSSOToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"valid": false, "error": "Token não fornecido"})
		return
	}

	res := h.SSOTokens.Validate(r.Context(), req.Token)
	if !res.Valid {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"valid": false})
		return
	}
	user := map[string]interface{}{"id": res.Subject}
	if res.Email != "" {
		user["email"] = res.Email
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "user": user})
}

// ValidateCode handles POST /v1/codes/validate. Unauthenticated
// pre-validation: always 200 with {valid:bool}; unavailability of the
// authority also collapses to false here since nothing is consumed.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"valid": false})
		return
	}
	principal, _ := domain.PrincipalFromContext(r.Context())
	err := h.Redemption.Prevalidate(r.Context(), principal, req.Code)
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": err == nil})
}

// BridgeMessage handles POST /v1/bridge: the cross-origin token handoff.
// The sender origin comes from the Origin header; unlisted origins and
// unknown types get the same empty 204 as success, so the endpoint leaks
// nothing to probes.
func (h *Handler) BridgeMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.Bridge.HandleMessage(r.Context(), middleware.SessionIDFromContext(r.Context()), domain.BridgeMessage{
		Origin: r.Header.Get("Origin"),
		Type:   req.Type,
		Token:  req.Token,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Redeem handles POST /v1/redeem for the authenticated principal.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated(domain.AuthNoSession, "autenticação necessária"))
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	granted, err := h.Redemption.Redeem(r.Context(), principal, req.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"accessUntil": granted.AccessUntil,
	})
}

// AccessStatus handles GET /v1/access: the caller's current verdict.
func (h *Handler) AccessStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := domain.PrincipalFromContext(r.Context())
	verdict, err := h.Access.Evaluate(r.Context(), principal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	body := map[string]interface{}{"state": verdict.State}
	if verdict.Entitlement != nil && verdict.Entitlement.AccessUntil != nil {
		body["accessUntil"] = verdict.Entitlement.AccessUntil
	}
	writeJSON(w, http.StatusOK, body)
}

// IssueSSOToken handles POST /v1/tokens/sso: a 5-minute entry token for
// the authenticated principal.
func (h *Handler) IssueSSOToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated(domain.AuthNoSession, "autenticação necessária"))
		return
	}
	signed, err := h.Issuer.EntryToken(principal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": signed})
}

// IssuePricingToken handles POST /v1/tokens/pricing: mints the handoff
// token and returns the partner redirect URL. Requires a currently valid
// entitlement, not just a session.
func (h *Handler) IssuePricingToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated(domain.AuthNoSession, "autenticação necessária"))
		return
	}
	verdict, err := h.Access.Evaluate(r.Context(), principal)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if verdict.State != domain.StateAuthorized {
		h.writeError(w, domain.ErrAccessDenied("Acesso não autorizado à ferramenta de precificação"))
		return
	}
	redirectURL, err := h.Issuer.HandoffURL(principal, h.Partner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"redirectUrl": redirectURL})
}

// ResolveTool handles POST /v1/tools/resolve: entitlement-gated slug to
// URL lookup.
func (h *Handler) ResolveTool(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		h.writeError(w, domain.ErrUnauthenticated(domain.AuthNoSession, "autenticação necessária"))
		return
	}
	var req struct {
		Slug string `json:"slug"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	tool, err := h.Tools.Resolve(r.Context(), principal, req.Slug)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slug": tool.Slug,
		"name": tool.Name,
		"url":  tool.URL,
	})
}

// ChatStream handles POST /v1/chat: validates, authorizes, and relays
// the upstream event stream.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := domain.PrincipalFromContext(r.Context()); !ok {
		h.writeError(w, domain.ErrUnauthenticated(domain.AuthNoSession, "autenticação necessária"))
		return
	}
	var req domain.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	upstream, err := h.Chat.Open(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer upstream.Close() //nolint:errcheck

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := h.Chat.Relay(r.Context(), w, upstream); err != nil && !errors.Is(err, r.Context().Err()) {
		h.Logger.Warn("chat relay ended early", "error", err)
	}
}
