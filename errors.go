package vidcore

import "github.com/goliatone/go-errors"

const (
	TextCodeAccountExists      = "account_exists"
	TextCodeAccountNotFound    = "account_not_found"
	TextCodeChannelNotFound    = "channel_not_found"
	TextCodeInvalidCreds       = "invalid_credentials"
	TextCodeInvalidOldPassword = "invalid_old_password"
	TextCodeMissingToken       = "missing_token"
	TextCodeInvalidToken       = "invalid_token"
	TextCodeStaleRefresh       = "stale_refresh_token"
	TextCodeStaleSubject       = "stale_subject"
)

// ErrAccountExists is returned when registration collides with an
// existing handle or email.
var ErrAccountExists = errors.New("account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(errors.CodeConflict)

// ErrAccountNotFound is returned when no account matches the given
// identifier.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrChannelNotFound is returned when a profile lookup matches no handle.
var ErrChannelNotFound = errors.New("channel not found", errors.CategoryNotFound).
	WithTextCode(TextCodeChannelNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidCredentials is returned on a failed password check.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidOldPassword is returned when a password change fails to
// verify the current password.
var ErrInvalidOldPassword = errors.New("old password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidOldPassword).
	WithCode(errors.CodeBadRequest)

// ErrMissingToken is returned when a request carries no bearer credential
// in either the session cookie or the Authorization header.
var ErrMissingToken = errors.New("no token", errors.CategoryAuth).
	WithTextCode(TextCodeMissingToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken covers every verification failure: malformed token,
// signature mismatch, or elapsed expiry. Verification fails closed into
// this single value so responses cannot be used as an oracle to tell a
// forged credential from an expired one.
var ErrInvalidToken = errors.New("invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrStaleRefreshToken is returned when an incoming refresh credential
// does not match the stored value, including a previously valid token
// that has since been rotated or cleared.
var ErrStaleRefreshToken = errors.New("refresh token is stale or already used", errors.CategoryAuth).
	WithTextCode(TextCodeStaleRefresh).
	WithCode(errors.CodeUnauthorized)

// ErrStaleSubject is returned when a verified credential references an
// account that no longer exists.
var ErrStaleSubject = errors.New("stale subject", errors.CategoryAuth).
	WithTextCode(TextCodeStaleSubject).
	WithCode(errors.CodeUnauthorized)
