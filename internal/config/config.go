// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthConfig holds identity backend and token configuration.
type AuthConfig struct {
	// JWTSecret is the HS256 shared secret for SSO tokens. Server-side
	// only; never shipped to clients.
	JWTSecret string
	// TokenIssuer is the iss claim on minted entry tokens.
	TokenIssuer string

	// BackendURL is the primary identity backend base URL; sessions are
	// resolved via GET {BackendURL}/auth/v1/user.
	BackendURL string
	// BackendAPIKey accompanies session-resolution calls.
	BackendAPIKey string

	// Optional OIDC verification of primary-session JWTs, avoiding a
	// backend round trip per request.
	OIDCIssuerURL  string
	OIDCAudience   string
	AllowedIssuers []string
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if a.BackendURL == "" && a.OIDCIssuerURL == "" {
		return fmt.Errorf("at least one of AUTH_BACKEND_URL or AUTH_OIDC_ISSUER_URL must be set")
	}
	if a.OIDCIssuerURL != "" && a.OIDCAudience == "" {
		return fmt.Errorf("AUTH_OIDC_AUDIENCE is required when AUTH_OIDC_ISSUER_URL is set")
	}
	return nil
}

// PartnerConfig configures the downstream pricing application handoff.
type PartnerConfig struct {
	BaseURL        string
	Permission     string
	IncludeSubject bool
}

// RedemptionConfig configures promo-code redemption.
type RedemptionConfig struct {
	// AuthorityURL is the external code-validation endpoint. Empty means
	// the self-hosted promo_codes table is the authority.
	AuthorityURL     string
	AuthorityTimeout time.Duration
	// OriginTag identifies the granting flow on entitlement rows.
	OriginTag string
	// DurationMonths is the fixed access grant length.
	DurationMonths int
}

// SelfHosted reports whether codes are validated against the local table
// instead of the external authority.
func (r *RedemptionConfig) SelfHosted() bool {
	return r.AuthorityURL == ""
}

// ChatConfig configures the LLM chat backend proxy.
type ChatConfig struct {
	BackendURL string
	APIKey     string // server-side only
	Model      string
}

// Config holds the configuration for the access gateway.
type Config struct {
	DBPath            string // path to the SQLite file
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string
	TLSKeyFile        string
	AllowInsecureHTTP bool
	LogLevel          string // debug, info, warn, error (default "info")
	Env               string // "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// CORSAllowedOrigins is public config (client-bundled on the SPA
	// side), not a secret.
	CORSAllowedOrigins []string

	// BridgeAllowedOrigins are exact origins admitted by the cross-origin
	// bridge; BridgeOriginSuffix additionally admits subdomains of the
	// partner hosting platform (e.g. ".lovable.app").
	BridgeAllowedOrigins []string
	BridgeOriginSuffix   string

	Auth       AuthConfig
	Partner    PartnerConfig
	Redemption RedemptionConfig
	Chat       ChatConfig

	// SweepInterval is how often expired session markers are purged.
	SweepInterval time.Duration

	// Warnings collects non-fatal warnings generated during config
	// loading, logged once the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:      os.Getenv("DB_PATH"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		TLSCertFile: os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:  os.Getenv("TLS_KEY_FILE"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Env:         os.Getenv("ENV"),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitTrim(v)
	}
	if v := os.Getenv("BRIDGE_ALLOWED_ORIGINS"); v != "" {
		cfg.BridgeAllowedOrigins = splitTrim(v)
	}
	cfg.BridgeOriginSuffix = os.Getenv("BRIDGE_ORIGIN_SUFFIX")
	if strings.EqualFold(os.Getenv("ALLOW_INSECURE_HTTP"), "true") {
		cfg.AllowInsecureHTTP = true
	}

	cfg.Auth = AuthConfig{
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenIssuer:   os.Getenv("TOKEN_ISSUER"),
		BackendURL:    strings.TrimRight(os.Getenv("AUTH_BACKEND_URL"), "/"),
		BackendAPIKey: os.Getenv("AUTH_BACKEND_API_KEY"),
		OIDCIssuerURL: os.Getenv("AUTH_OIDC_ISSUER_URL"),
		OIDCAudience:  os.Getenv("AUTH_OIDC_AUDIENCE"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = splitTrim(v)
	}

	cfg.Partner = PartnerConfig{
		BaseURL:        strings.TrimRight(os.Getenv("PARTNER_PRICING_URL"), "/"),
		Permission:     os.Getenv("PARTNER_PRICING_PERMISSION"),
		IncludeSubject: strings.EqualFold(os.Getenv("PARTNER_INCLUDE_SUBJECT"), "true"),
	}

	cfg.Redemption = RedemptionConfig{
		AuthorityURL: os.Getenv("CODE_AUTHORITY_URL"),
		OriginTag:    os.Getenv("ACCESS_ORIGIN_TAG"),
	}
	if v := os.Getenv("CODE_AUTHORITY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redemption.AuthorityTimeout = d
		}
	}
	if v := os.Getenv("ACCESS_DURATION_MONTHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Redemption.DurationMonths = n
		}
	}

	cfg.Chat = ChatConfig{
		BackendURL: strings.TrimRight(os.Getenv("CHAT_BACKEND_URL"), "/"),
		APIKey:     os.Getenv("CHAT_BACKEND_API_KEY"),
		Model:      os.Getenv("CHAT_MODEL"),
	}

	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SweepInterval = d
		}
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "soph_gateway.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.BridgeOriginSuffix == "" {
		cfg.BridgeOriginSuffix = ".lovable.app"
	}
	if cfg.Auth.TokenIssuer == "" {
		cfg.Auth.TokenIssuer = "importadoras-25"
	}
	if cfg.Partner.Permission == "" {
		cfg.Partner.Permission = "pricing_access"
	}
	if cfg.Redemption.AuthorityTimeout == 0 {
		cfg.Redemption.AuthorityTimeout = 10 * time.Second
	}
	if cfg.Redemption.OriginTag == "" {
		cfg.Redemption.OriginTag = "importadoras"
	}
	if cfg.Redemption.DurationMonths == 0 {
		cfg.Redemption.DurationMonths = 6
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "google/gemini-2.5-flash"
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-in-production"
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set; using insecure default. Set JWT_SECRET in production!")
	}
	if cfg.Chat.APIKey == "" {
		cfg.Warnings = append(cfg.Warnings, "CHAT_BACKEND_API_KEY not set; chat proxy will reject requests")
	}
	if cfg.Redemption.SelfHosted() {
		cfg.Warnings = append(cfg.Warnings, "CODE_AUTHORITY_URL not set; promo codes validate against the local table")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == "dev-secret-change-in-production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.TLSCertFile == "" && !cfg.AllowInsecureHTTP {
			return nil, fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
		if err := cfg.Auth.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func splitTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over .env entries.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
