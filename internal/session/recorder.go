package session

import (
	"context"
	"log/slog"
	"time"

	"soph-gateway/internal/domain"
)

// Recorder is the long-lived subscriber of the Watcher: it writes every
// session sign-in and sign-out to the audit log. Per-request decisions
// read the marker store directly; the recorder only trails the stream.
type Recorder struct {
	watcher *Watcher
	audit   domain.AuditRepository
	logger  *slog.Logger
}

// NewRecorder creates a recorder over the given watcher.
func NewRecorder(watcher *Watcher, audit domain.AuditRepository, logger *slog.Logger) *Recorder {
	return &Recorder{watcher: watcher, audit: audit, logger: logger}
}

// Run subscribes and consumes events until ctx is cancelled. The
// subscription is released on return.
func (r *Recorder) Run(ctx context.Context) {
	events, cancel := r.watcher.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.record(ctx, ev)
		}
	}
}

func (r *Recorder) record(ctx context.Context, ev Event) {
	detail := "sessão SSO estabelecida"
	if ev.Kind == EventSignedOut {
		detail = "sessão SSO encerrada"
	}
	entry := &domain.AuditEntry{
		UserID:    ev.Subject,
		Action:    domain.ActionSSOSession,
		Status:    domain.AuditAllowed,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := r.audit.Insert(ctx, entry); err != nil {
		r.logger.Warn("session audit write failed", "kind", ev.Kind, "error", err)
	}
}
