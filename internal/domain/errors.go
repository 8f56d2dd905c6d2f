// Package domain defines core types, interfaces, and errors for the access gateway.
package domain

import (
	"fmt"
	"time"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates an authenticated principal lacks the required
// entitlement or scope.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., concurrent update lost).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// AuthKind distinguishes why authentication failed.
type AuthKind string

const (
	// AuthNoSession means no credential was presented or the credential
	// does not map to a session.
	AuthNoSession AuthKind = "no_session"
	// AuthInvalid means a credential was presented but rejected.
	AuthInvalid AuthKind = "invalid"
	// AuthBackendUnavailable means the identity backend could not be reached.
	AuthBackendUnavailable AuthKind = "backend_unavailable"
)

// AuthenticationError indicates the caller could not be authenticated.
type AuthenticationError struct {
	Kind    AuthKind
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// CodeInvalidError indicates the redemption authority explicitly rejected
// a promo code.
type CodeInvalidError struct {
	Message string
}

func (e *CodeInvalidError) Error() string { return e.Message }

// AlreadyEntitledError indicates the principal already holds a currently
// valid entitlement; the current expiry is surfaced to the caller.
type AlreadyEntitledError struct {
	AccessUntil time.Time
}

func (e *AlreadyEntitledError) Error() string {
	return fmt.Sprintf("acesso ativo até %s", e.AccessUntil.Format("02/01/2006"))
}

// RateLimitedError indicates the upstream LLM gateway throttled the
// request.
type RateLimitedError struct{}

func (e *RateLimitedError) Error() string {
	return "Muitas requisições. Tente novamente em instantes."
}

// CreditsExhaustedError indicates the upstream LLM gateway refused for
// lack of credits.
type CreditsExhaustedError struct{}

func (e *CreditsExhaustedError) Error() string {
	return "Créditos esgotados. Por favor, adicione fundos."
}

// UpstreamError indicates any other upstream failure. The upstream body
// is logged server-side and never carried here.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }

// AuthorityUnavailableError indicates the external validation authority
// could not be reached or answered unusably. Distinct from CodeInvalidError:
// the code was never judged.
type AuthorityUnavailableError struct {
	Message string
}

func (e *AuthorityUnavailableError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthenticated creates an AuthenticationError of the given kind.
func ErrUnauthenticated(kind AuthKind, format string, args ...interface{}) *AuthenticationError {
	return &AuthenticationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
