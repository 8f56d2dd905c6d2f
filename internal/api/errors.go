package api

import (
	"errors"
	"net/http"

	"soph-gateway/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var authn *domain.AuthenticationError
	var codeInvalid *domain.CodeInvalidError
	var alreadyEntitled *domain.AlreadyEntitledError
	var authority *domain.AuthorityUnavailableError
	var rateLimited *domain.RateLimitedError
	var credits *domain.CreditsExhaustedError
	var upstream *domain.UpstreamError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &authn):
		if authn.Kind == domain.AuthBackendUnavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusUnauthorized
	case errors.As(err, &codeInvalid):
		return http.StatusBadRequest
	case errors.As(err, &alreadyEntitled):
		return http.StatusConflict
	case errors.As(err, &authority):
		return http.StatusServiceUnavailable
	case errors.As(err, &rateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &credits):
		return http.StatusPaymentRequired
	case errors.As(err, &upstream):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
