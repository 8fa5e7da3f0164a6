package domain

import (
	"errors"
	"net/http"
)

// Authorization errors: non-retryable without a plan change, always logged.
var (
	ErrSubscriptionInactive = errors.New("subscription is not active")
	ErrInsufficientTier     = errors.New("subscription tier does not permit this asset")
)

// Validity errors: retryable only via a fresh access request, always logged.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionInvalid       = errors.New("session missing, expired, or revoked")
	ErrRefreshLimitExceeded = errors.New("session refresh limit exceeded")
	ErrInvalidRefreshToken  = errors.New("refresh token malformed or not bound to this session")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
)

// Resource errors.
var (
	ErrAssetNotFound = errors.New("asset not found")
)

// Transient errors: retryable by the caller with backoff. Distinguished from
// denials so infrastructure hiccups are never surfaced as "access denied".
var (
	ErrBackendUnavailable = errors.New("store or backend unavailable")
)

// Error codes surfaced to callers. Each maps to a fixed HTTP status.
const (
	CodeSubscriptionInactive = "SUBSCRIPTION_INACTIVE"
	CodeInsufficientTier     = "INSUFFICIENT_TIER"
	CodeAssetNotFound        = "ASSET_NOT_FOUND"
	CodeSessionInvalid       = "SESSION_INVALID"
	CodeRefreshLimitExceeded = "REFRESH_LIMIT_EXCEEDED"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired  = "REFRESH_TOKEN_EXPIRED"
	CodeBackendUnavailable   = "BACKEND_UNAVAILABLE"
)

// CodeFor maps a service error to its stable code and HTTP status. Unknown
// errors are treated as transient backend failures.
func CodeFor(err error) (code string, status int) {
	switch {
	case errors.Is(err, ErrSubscriptionInactive):
		return CodeSubscriptionInactive, http.StatusPaymentRequired
	case errors.Is(err, ErrInsufficientTier):
		return CodeInsufficientTier, http.StatusForbidden
	case errors.Is(err, ErrAssetNotFound):
		return CodeAssetNotFound, http.StatusNotFound
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionInvalid):
		return CodeSessionInvalid, http.StatusUnauthorized
	case errors.Is(err, ErrRefreshLimitExceeded):
		return CodeRefreshLimitExceeded, http.StatusTooManyRequests
	case errors.Is(err, ErrInvalidRefreshToken):
		return CodeInvalidRefreshToken, http.StatusUnauthorized
	case errors.Is(err, ErrRefreshTokenExpired):
		return CodeRefreshTokenExpired, http.StatusUnauthorized
	default:
		return CodeBackendUnavailable, http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request with
// backoff. Only transient failures qualify; denials require a plan change or
// a fresh access request.
func Retryable(err error) bool {
	code, _ := CodeFor(err)
	return code == CodeBackendUnavailable
}
