package domain

import "time"

// Entitlement is the per-user access record. Access is modelled as an
// expiring timestamp: the boolean "has access" state is always derived
// from AccessUntil, never stored.
type Entitlement struct {
	UserID      string
	Email       string
	Origin      string // which partner/flow granted access, e.g. "importadoras"
	AccessUntil *time.Time
	UpdatedAt   time.Time
	Version     int64 // optimistic-concurrency token, bumped on every upsert
}

// ValidAt reports whether the entitlement grants access at the given instant.
func (e *Entitlement) ValidAt(now time.Time) bool {
	return e != nil && e.AccessUntil != nil && e.AccessUntil.After(now)
}

// AccessState is the three-way verdict produced by the access evaluator.
type AccessState string

const (
	// StateUnauthenticated means no principal could be resolved.
	StateUnauthenticated AccessState = "unauthenticated"
	// StateNeedsRedemption means the principal is authenticated but holds
	// no currently valid entitlement.
	StateNeedsRedemption AccessState = "needs-redemption"
	// StateAuthorized means the principal may access gated functionality.
	StateAuthorized AccessState = "authorized"
)

// AccessVerdict couples the state with the entitlement snapshot it was
// derived from (nil when no record exists).
type AccessVerdict struct {
	State       AccessState
	Entitlement *Entitlement
}
