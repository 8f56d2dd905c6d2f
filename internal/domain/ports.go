package domain

import (
	"context"
	"time"
)

// EntitlementRepository persists per-user access records.
type EntitlementRepository interface {
	// Get returns the entitlement for the user, or NotFoundError when the
	// user never redeemed.
	Get(ctx context.Context, userID string) (*Entitlement, error)
	// Upsert creates or replaces the record keyed by user id. When the
	// caller supplies a non-zero expected version and the stored version
	// differs, the write fails with ConflictError (lost update).
	Upsert(ctx context.Context, rec *Entitlement, expectVersion int64) (*Entitlement, error)
}

// PromoCodeRepository manages self-hosted single-use codes.
type PromoCodeRepository interface {
	Get(ctx context.Context, code string) (*PromoCode, error)
	Create(ctx context.Context, code *PromoCode) error
	List(ctx context.Context) ([]PromoCode, error)
	// Consume marks the code used by the principal. The update is
	// conditional on used=0: a second concurrent consumer gets
	// ConflictError. Release undoes a consumption whose entitlement
	// grant failed, so codes are never burned without granting access.
	Consume(ctx context.Context, code, userID string, at time.Time) error
	Release(ctx context.Context, code string) error
}

// ToolRepository resolves protected tool slugs to URLs.
type ToolRepository interface {
	GetBySlug(ctx context.Context, slug string) (*ProtectedTool, error)
}

// AuditRepository records security-relevant outcomes. Writes are
// best-effort; services ignore insert errors.
type AuditRepository interface {
	Insert(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}

// MarkerStore is the session-scoped store for validated SSO markers,
// keyed by session id. Implementations must not persist across restarts.
type MarkerStore interface {
	Get(sessionID string) (*SSOMarker, bool)
	Put(sessionID string, marker SSOMarker)
	Delete(sessionID string)
	PurgeExpired(now time.Time) int
}
