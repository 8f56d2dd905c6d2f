package domain

import "time"

// AuditEntry records a security-relevant outcome: redemption attempts,
// token issuance, SSO validations.
type AuditEntry struct {
	ID        string
	UserID    string
	Action    string
	Status    string // "ALLOWED" or "DENIED"
	Detail    string
	CreatedAt time.Time
}

// Audit action names.
const (
	ActionRedeemCode        = "REDEEM_CODE"
	ActionIssueSSOToken     = "ISSUE_SSO_TOKEN"
	ActionIssueHandoffToken = "ISSUE_HANDOFF_TOKEN"
	ActionValidateSSOToken  = "VALIDATE_SSO_TOKEN"
	ActionResolveTool       = "RESOLVE_TOOL"
	ActionSSOSession        = "SSO_SESSION"
)

// Audit statuses.
const (
	AuditAllowed = "ALLOWED"
	AuditDenied  = "DENIED"
)
