package domain

import "errors"

var (
	// ErrAuthentication: credential missing, malformed or expired.
	ErrAuthentication = errors.New("authentication failed")
	// ErrAuthorization: credential valid but no active membership for the organization.
	ErrAuthorization  = errors.New("no active membership")
	// ErrForbidden: membership exists but the role lacks the capability.
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrRateLimited    = errors.New("rate limited")
)

// ErrorCode maps an error to the code sent to clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "unauthenticated"
	case errors.Is(err, ErrAuthorization), errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidPayload):
		return "bad_payload"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}
