package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"soph-gateway/internal/api"
	"soph-gateway/internal/config"
	"soph-gateway/internal/middleware"
	"soph-gateway/internal/token"
	"soph-gateway/internal/ui"
)

// Router assembles the HTTP surface: JSON API under /v1, HTML pages at
// the root, with the session/auth middleware chain on everything.
func (a *App) Router(cfg *config.Config) http.Handler {
	partner := token.PartnerConfig{
		Name:           "pricing",
		BaseURL:        cfg.Partner.BaseURL,
		Permission:     cfg.Partner.Permission,
		IncludeSubject: cfg.Partner.IncludeSubject,
	}
	apiHandler := &api.Handler{
		SSOTokens:  a.Services.SSOTokens,
		Access:     a.Services.Access,
		Redemption: a.Services.Redemption,
		Bridge:     a.Services.Bridge,
		Tools:      a.Services.Tools,
		Issuer:     a.Services.Issuer,
		Chat:       a.Services.Chat,
		Partner:    partner,
		Logger:     a.Logger.With("component", "api"),
	}
	uiHandler := &ui.Handler{
		Gate:       a.Services.Gate,
		Bridge:     a.Services.Bridge,
		Redemption: a.Services.Redemption,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.SessionID(cfg.Env == "production"))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(middleware.Authenticate(a.Resolver))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// HTML pages
	r.Get("/sso", uiHandler.SSOEntry)
	r.Get("/chat", uiHandler.Gated(uiHandler.ChatPage))
	r.Get("/resgatar", uiHandler.RedeemPage)
	r.Post("/resgatar", uiHandler.RedeemSubmit)
	r.Get("/sem-acesso", uiHandler.NoAccessPage)

	// JSON API
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sso/validate", apiHandler.ValidateSSOToken)
		r.Post("/bridge", apiHandler.BridgeMessage)
		r.Post("/codes/validate", apiHandler.ValidateCode)
		r.Get("/access", apiHandler.AccessStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePrincipal)
			r.Post("/redeem", apiHandler.Redeem)
			r.Post("/tokens/sso", apiHandler.IssueSSOToken)
			r.Post("/tokens/pricing", apiHandler.IssuePricingToken)
			r.Post("/tools/resolve", apiHandler.ResolveTool)
			r.Post("/chat", apiHandler.ChatStream)
		})
	})

	return r
}
