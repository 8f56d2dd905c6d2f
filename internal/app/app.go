// Package app wires the gateway's repositories, services, and HTTP
// surface from the dependencies main() provides.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"soph-gateway/internal/chat"
	"soph-gateway/internal/config"
	"soph-gateway/internal/db/repository"
	"soph-gateway/internal/service"
	"soph-gateway/internal/session"
	"soph-gateway/internal/sweeper"
	"soph-gateway/internal/token"
)

// Deps holds the external dependencies that main() must provide:
// database handles, config, logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service pointers the HTTP layer needs.
type Services struct {
	SSOTokens  *service.SSOTokenService
	Access     *service.AccessService
	Redemption *service.RedemptionService
	Bridge     *service.BridgeService
	Gate       *service.GateService
	Tools      *service.ToolService
	Chat       *chat.Proxy
	Issuer     *token.Issuer
}

// App is the fully wired application.
type App struct {
	Services Services
	Logger   *slog.Logger
	Resolver   *session.Resolver
	Markers    *session.MemoryMarkerStore
	Watcher    *session.Watcher
	SessionLog *session.Recorder
	Sweeper    *sweeper.Sweeper

	Codes        *repository.PromoCodeRepo
	Entitlements *repository.EntitlementRepo
	Audit        *repository.AuditRepo
}

// New wires repositories and services from the provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	codec, err := token.NewCodec(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	// Repositories: reads on the read pool, writes on the write pool.
	entitlements := repository.NewEntitlementRepo(deps.WriteDB)
	codes := repository.NewPromoCodeRepo(deps.WriteDB)
	tools := repository.NewToolRepo(deps.ReadDB)
	audit := repository.NewAuditRepo(deps.WriteDB)

	markers := session.NewMemoryMarkerStore()
	watcher := session.NewWatcher()

	ssoTokens := service.NewSSOTokenService(codec, audit, logger.With("component", "sso"))

	var authenticator session.Authenticator
	if cfg.Auth.OIDCIssuerURL != "" {
		oidcAuth, err := session.NewOIDCAuthenticator(ctx, cfg.Auth.OIDCIssuerURL, cfg.Auth.OIDCAudience, cfg.Auth.AllowedIssuers)
		if err != nil {
			return nil, fmt.Errorf("oidc authenticator: %w", err)
		}
		authenticator = oidcAuth
	} else {
		authenticator = session.NewBackendAuthenticator(cfg.Auth.BackendURL, cfg.Auth.BackendAPIKey, logger.With("component", "auth"))
	}
	resolver := session.NewResolver(authenticator, markers, ssoTokens, watcher, logger.With("component", "session"))

	access := service.NewAccessService(entitlements, logger.With("component", "access"))

	var authority service.CodeAuthority
	if cfg.Redemption.SelfHosted() {
		authority = service.NewLocalCodeAuthority(codes)
	} else {
		authority = service.NewRemoteCodeAuthority(cfg.Redemption, logger.With("component", "redemption"))
	}
	redemption := service.NewRedemptionService(entitlements, authority, audit, cfg.Redemption, logger.With("component", "redemption"))

	policy := service.NewOriginPolicy(cfg.BridgeAllowedOrigins, cfg.BridgeOriginSuffix)
	bridge := service.NewBridgeService(policy, ssoTokens, markers, watcher, logger.With("component", "bridge"))

	gate := service.NewGateService(resolver, access, logger.With("component", "gate"))
	toolSvc := service.NewToolService(tools, access, audit, logger.With("component", "tools"))
	chatProxy := chat.NewProxy(cfg.Chat, logger.With("component", "chat"))

	issuer := token.NewIssuer(codec, cfg.Auth.TokenIssuer)

	return &App{
		Logger: logger,
		Services: Services{
			SSOTokens:  ssoTokens,
			Access:     access,
			Redemption: redemption,
			Bridge:     bridge,
			Gate:       gate,
			Tools:      toolSvc,
			Chat:       chatProxy,
			Issuer:     issuer,
		},
		Resolver:     resolver,
		Markers:      markers,
		Watcher:      watcher,
		SessionLog:   session.NewRecorder(watcher, audit, logger.With("component", "session-log")),
		Sweeper:      sweeper.New(markers, cfg.SweepInterval, logger.With("component", "sweeper")),
		Codes:        codes,
		Entitlements: entitlements,
		Audit:        audit,
	}, nil
}
