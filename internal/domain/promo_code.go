package domain

import (
	"strings"
	"time"
)

// PromoCode is a self-hosted single-use redemption code. In the delegated
// variant codes live with the external authority and this table is unused.
type PromoCode struct {
	Code           string
	Used           bool
	UsedBy         string
	UsedAt         *time.Time
	DurationMonths int
	BoundEmail     string // when set, only this email may redeem the code
	CreatedAt      time.Time
}

// NormalizeCode canonicalizes user-supplied code input: trimmed and
// upper-cased. An empty result means the input was unusable.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// RedeemableBy reports whether the code can be consumed by the given
// principal. Bound emails match case-insensitively.
func (c *PromoCode) RedeemableBy(p Principal) bool {
	if c.Used {
		return false
	}
	if c.BoundEmail == "" {
		return true
	}
	return strings.EqualFold(c.BoundEmail, p.Email)
}
