package session

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"soph-gateway/internal/domain"
)

// SSOValidator re-checks a raw SSO token. The resolver uses it when a
// stored marker has gone stale and must be proven again before trust.
type SSOValidator interface {
	ValidateToken(ctx context.Context, raw string) (subject string, err error)
}

// Resolver turns request credentials into a principal. Two independent
// paths feed it: the primary session backend and the session-scoped SSO
// marker store. Both are consulted on every call and the decision is
// made only after both have settled, so a slow backend can never make a
// valid SSO principal flicker to unauthenticated.
type Resolver struct {
	auth      Authenticator
	markers   domain.MarkerStore
	validator SSOValidator
	watcher   *Watcher
	logger    *slog.Logger
	now       func() time.Time
}

// NewResolver wires the two authentication paths together.
func NewResolver(auth Authenticator, markers domain.MarkerStore, validator SSOValidator, watcher *Watcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		auth:      auth,
		markers:   markers,
		validator: validator,
		watcher:   watcher,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve evaluates both authentication paths for the request and returns
// the winning principal. A validated SSO marker takes precedence over the
// primary session; the primary session is the fallback. When neither path
// yields a principal the strongest failure wins: backend outage over
// plain absence, so callers can render a retry state instead of a login
// redirect during an outage.
func (r *Resolver) Resolve(ctx context.Context, credential, sessionID string) (domain.Principal, error) {
	var (
		ssoPrincipal     domain.Principal
		ssoOK            bool
		primaryPrincipal domain.Principal
		primaryErr       error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ssoPrincipal, ssoOK = r.resolveMarker(gctx, sessionID)
		return nil
	})
	g.Go(func() error {
		primaryPrincipal, primaryErr = r.auth.GetPrincipal(gctx, credential)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.Principal{}, domain.ErrUnauthenticated(domain.AuthBackendUnavailable, "requisição cancelada")
	}

	if ssoOK {
		return ssoPrincipal, nil
	}
	if primaryErr == nil {
		return primaryPrincipal, nil
	}
	return domain.Principal{}, primaryErr
}

// resolveMarker checks the session's SSO marker, re-validating the token
// when the marker is stale. A marker that fails re-validation is removed.
func (r *Resolver) resolveMarker(ctx context.Context, sessionID string) (domain.Principal, bool) {
	if sessionID == "" {
		return domain.Principal{}, false
	}
	marker, ok := r.markers.Get(sessionID)
	if !ok || !marker.Validated {
		return domain.Principal{}, false
	}

	if marker.Stale(r.now()) {
		subject, err := r.validator.ValidateToken(ctx, marker.Token)
		if err != nil {
			r.logger.Info("stale sso marker failed re-validation, dropping", "session_id", sessionID)
			r.markers.Delete(sessionID)
			if r.watcher != nil {
				r.watcher.Publish(Event{SessionID: sessionID, Subject: marker.Subject, Kind: EventSignedOut})
			}
			return domain.Principal{}, false
		}
		refreshed := domain.SSOMarker{
			Token:       marker.Token,
			Validated:   true,
			Subject:     subject,
			ValidatedAt: r.now(),
		}
		r.markers.Put(sessionID, refreshed)
		marker = &refreshed
	}

	return domain.Principal{
		ID:     marker.Subject,
		Source: domain.SourceSSOToken,
	}, true
}
