package domain

import "time"

// SSOMarker is the session-scoped record of a validated SSO handoff.
// Markers live only in memory for the lifetime of the browser session;
// they never reach durable storage.
type SSOMarker struct {
	Token       string // raw token, kept for re-validation only
	Validated   bool
	Subject     string
	ValidatedAt time.Time
}

// StaleAfter is how long a validated marker may be trusted before the
// bridge must re-verify the underlying token. It equals the token's own
// validity window.
const StaleAfter = 5 * time.Minute

// Stale reports whether the marker must be re-verified before use.
func (m *SSOMarker) Stale(now time.Time) bool {
	return m == nil || !m.Validated || now.Sub(m.ValidatedAt) > StaleAfter
}

// BridgeMessage is a cross-window message as received by the bridge:
// the sender origin plus the declared type and token payload.
type BridgeMessage struct {
	Origin string
	Type   string
	Token  string
}

// MessageTypeSSOToken is the only recognised cross-window message type.
const MessageTypeSSOToken = "SSO_TOKEN"
