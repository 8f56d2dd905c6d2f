package domain

// AuthSource identifies which authentication path produced a principal.
type AuthSource string

const (
	// SourcePrimarySession is the primary identity backend (login/password
	// or social session).
	SourcePrimarySession AuthSource = "primary-session"
	// SourceSSOToken is a partner-issued SSO token validated by this service.
	SourceSSOToken AuthSource = "sso-token"
)

// Principal is the resolved identity of the current actor. It is derived
// per request from either the primary session or an SSO token and never
// persisted.
type Principal struct {
	ID     string
	Email  string // empty for SSO principals identified by subject only
	Source AuthSource
}
