// Package autherr defines the authentication and authorization failure
// taxonomy shared by the token manager, the request guard and the HTTP
// boundary. Failures are discriminated by kind rather than by a type
// hierarchy; the routine kinds (missing, expired, malformed, revoked, bad
// CSRF) carry a skip-logging marker so they are recorded at informational
// level at most, while privilege violations stay loud.
package autherr

import (
	"errors"
	"fmt"
)

// Kind discriminates authentication failures.
type Kind int

const (
	// KindAuthentication is the generic "could not validate account"
	// failure. Logged.
	KindAuthentication Kind = iota

	// KindSessionTokenMissing: no session cookie on the request. Expected
	// for anonymous visitors; never logged as an error.
	KindSessionTokenMissing

	// KindSessionExpired: the session token's expiry claim has passed.
	KindSessionExpired

	// KindTokenValidation: signature mismatch or missing required claims.
	KindTokenValidation

	// KindSessionRevoked: the persisted token record is revoked or absent.
	KindSessionRevoked

	// KindInvalidCsrfToken: the CSRF header did not match the session
	// token's fingerprint on a state-changing request.
	KindInvalidCsrfToken

	// KindAccountLocked: the account is missing, inactive or role-less.
	KindAccountLocked

	// KindAuthorization: authenticated but lacking a required scope.
	// Always logged; a potential privilege-escalation attempt.
	KindAuthorization

	// KindIdpConnection: the upstream Identity Provider could not be
	// reached or answered with a non-success status.
	KindIdpConnection

	// KindClaimValidation: the provider's claims were missing required
	// attributes, were issued for a different client, or failed a
	// provider-specific requirement such as email verification.
	KindClaimValidation

	// KindInvalidData: caller-supplied data failed validation before any
	// write (e.g. an api token expiring in the past).
	KindInvalidData

	// KindConflict: a uniqueness constraint would be violated (e.g. a
	// duplicate api token grant).
	KindConflict
)

// Error is a discriminated authentication failure. Compare with errors.Is
// against the sentinel values below; two Errors match when their kinds do.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks. Each carries the default user-facing
// message; use the constructor functions to attach a different one.
var (
	ErrAuthentication      = &Error{KindAuthentication, "could not validate account"}
	ErrSessionTokenMissing = &Error{KindSessionTokenMissing, "token is missing"}
	ErrSessionExpired      = &Error{KindSessionExpired, "token has expired"}
	ErrTokenValidation     = &Error{KindTokenValidation, "token validation failed"}
	ErrSessionRevoked      = &Error{KindSessionRevoked, "token has been revoked"}
	ErrInvalidCsrfToken    = &Error{KindInvalidCsrfToken, "CSRF token is invalid"}
	ErrAccountLocked       = &Error{KindAccountLocked, "the account has been locked"}
	ErrAuthorization       = &Error{KindAuthorization, "you are not authorized to access this application"}
	ErrIdpConnection       = &Error{KindIdpConnection, "could not connect to the identity provider, please try again later"}
	ErrClaimValidation     = &Error{KindClaimValidation, "the identity provider claim could not be validated"}
	ErrInvalidData         = &Error{KindInvalidData, "incomplete or invalid data"}
	ErrConflict            = &Error{KindConflict, "resource already exists"}
)

// New returns an Error of the given kind with a custom message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the *Error from an error chain, if any.
func AsError(err error) (*Error, bool) {
	var authErr *Error
	ok := errors.As(err, &authErr)
	return authErr, ok
}

// SkipLogging reports whether the failure is routine enough that it must
// not be recorded above informational level. Scope violations and locked
// accounts deliberately stay out of this set.
func SkipLogging(err error) bool {
	authErr, ok := AsError(err)
	if !ok {
		return false
	}
	switch authErr.Kind {
	case KindSessionTokenMissing, KindSessionExpired, KindTokenValidation,
		KindSessionRevoked, KindInvalidCsrfToken:
		return true
	}
	return false
}

// IsAuthFailure reports whether the error belongs to the authentication
// taxonomy at all (as opposed to an unexpected internal error).
func IsAuthFailure(err error) bool {
	_, ok := AsError(err)
	return ok
}
