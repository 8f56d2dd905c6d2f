package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"soph-gateway/internal/domain"
	"soph-gateway/internal/session"
)

var lovablePreview = regexp.MustCompile(`^https://[a-z0-9-]+\.lovable\.app$`)

// OriginPolicy decides which window origins the bridge listens to.
type OriginPolicy struct {
	exact  map[string]bool
	suffix string
}

// NewOriginPolicy builds the allow-list from exact origins plus an
// optional hosting-platform suffix (e.g. ".lovable.app") that admits
// preview subdomains.
func NewOriginPolicy(exact []string, suffix string) *OriginPolicy {
	m := make(map[string]bool, len(exact))
	for _, o := range exact {
		m[strings.TrimRight(o, "/")] = true
	}
	return &OriginPolicy{exact: m, suffix: suffix}
}

// Allowed reports whether messages from the origin are trusted.
func (p *OriginPolicy) Allowed(origin string) bool {
	origin = strings.TrimRight(origin, "/")
	if p.exact[origin] {
		return true
	}
	if p.suffix == ".lovable.app" {
		return lovablePreview.MatchString(origin)
	}
	if p.suffix != "" && strings.HasPrefix(origin, "https://") && strings.HasSuffix(origin, p.suffix) {
		host := strings.TrimPrefix(origin, "https://")
		return host != strings.TrimPrefix(p.suffix, ".")
	}
	return false
}

// BridgeService receives cross-window token messages, validates them and
// persists a session-scoped marker on success.
type BridgeService struct {
	policy    *OriginPolicy
	validator *SSOTokenService
	markers   domain.MarkerStore
	watcher   *session.Watcher
	logger    *slog.Logger
	now       func() time.Time
}

// NewBridgeService wires the bridge.
func NewBridgeService(policy *OriginPolicy, validator *SSOTokenService, markers domain.MarkerStore, watcher *session.Watcher, logger *slog.Logger) *BridgeService {
	return &BridgeService{
		policy:    policy,
		validator: validator,
		markers:   markers,
		watcher:   watcher,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleMessage processes one incoming bridge message for the session.
// Messages from unlisted origins or with an unknown type are dropped
// without reply; an attacker probing the bridge gets silence either way.
// Returns whether a validated marker was stored.
func (b *BridgeService) HandleMessage(ctx context.Context, sessionID string, msg domain.BridgeMessage) bool {
	if !b.policy.Allowed(msg.Origin) {
		b.logger.Debug("bridge message dropped", "origin", msg.Origin, "reason", "origin not allowed")
		return false
	}
	if msg.Type != domain.MessageTypeSSOToken {
		b.logger.Debug("bridge message dropped", "origin", msg.Origin, "reason", "unknown type")
		return false
	}
	return b.Establish(ctx, sessionID, msg.Token)
}

// Establish validates the raw token and stores the session marker. This
// is the shared tail of the bridge path and the first-party /sso entry
// page, which skips the origin check.
func (b *BridgeService) Establish(ctx context.Context, sessionID, raw string) bool {
	if raw == "" || sessionID == "" {
		return false
	}

	res := b.validator.Validate(ctx, raw)
	if !res.Valid {
		b.logger.Info("sso token rejected at bridge", "token", Redact(raw))
		return false
	}

	b.markers.Put(sessionID, domain.SSOMarker{
		Token:       raw,
		Validated:   true,
		Subject:     res.Subject,
		ValidatedAt: b.now(),
	})
	if b.watcher != nil {
		b.watcher.Publish(session.Event{SessionID: sessionID, Subject: res.Subject, Kind: session.EventSignedIn})
	}
	b.logger.Info("sso marker established", "session_id", sessionID, "subject", res.Subject, "token", Redact(raw))
	return true
}
