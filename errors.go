package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the structured errors of the §7 taxonomy. Handlers
// can switch on these without string-matching messages.
const (
	TextCodeUnauthenticated      = "UNAUTHENTICATED"
	TextCodeAccountInactive      = "ACCOUNT_INACTIVE"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodeNotFound             = "NOT_FOUND"
	TextCodeConflict             = "CONFLICT"
	TextCodeInvalidArgument      = "INVALID_ARGUMENT"
	TextCodeInvalidState         = "INVALID_STATE"
	TextCodeCodeInvalidOrExpired = "CODE_INVALID_OR_EXPIRED"
	TextCodeInvalidCreds         = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts      = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
)

// ErrUnauthenticated is returned when no actor was resolved for the request.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountInactive is returned when the actor exists but never activated
// their account.
var ErrAccountInactive = goerrors.New(
	"Account is not activated. Please check your email and activate your account.",
	goerrors.CategoryAuthz,
).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeForbidden)

// ErrCodeInvalidOrExpired is the single answer for every one-time-code
// failure. Unknown, already used, and expired codes are deliberately not
// distinguished so callers cannot probe which.
var ErrCodeInvalidOrExpired = goerrors.New("invalid or expired code", goerrors.CategoryValidation).
	WithTextCode(TextCodeCodeInvalidOrExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned on credential failures
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyLoginAttempts enforces the login cool-down window
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrTokenExpired is returned when a session token is past its expiry
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature
// verification.
var ErrTokenMalformed = goerrors.New("token malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryBadInput).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// NewForbidden builds a denial that carries a human-readable reason.
func NewForbidden(reason string) *goerrors.Error {
	return goerrors.New(reason, goerrors.CategoryAuthz).
		WithTextCode(TextCodeForbidden).
		WithCode(goerrors.CodeForbidden)
}

// NewNotFound reports an absent target resource.
func NewNotFound(what string) *goerrors.Error {
	return goerrors.New(what+" not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(goerrors.CodeNotFound)
}

// NewConflict reports a uniqueness violation.
func NewConflict(reason string) *goerrors.Error {
	return goerrors.New(reason, goerrors.CategoryConflict).
		WithTextCode(TextCodeConflict).
		WithCode(goerrors.CodeConflict)
}

// NewInvalidArgument reports malformed or self-referential input.
func NewInvalidArgument(reason string) *goerrors.Error {
	return goerrors.New(reason, goerrors.CategoryBadInput).
		WithTextCode(TextCodeInvalidArgument).
		WithCode(goerrors.CodeBadRequest)
}

// NewInvalidState reports an operation attempted from a non-applicable
// state; the message always names the current state.
func NewInvalidState(reason string) *goerrors.Error {
	return goerrors.New(reason, goerrors.CategoryConflict).
		WithTextCode(TextCodeInvalidState).
		WithCode(goerrors.CodeConflict)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// IsUnauthenticated will check for missing-actor denials
func IsUnauthenticated(err error) bool {
	return hasTextCode(err, TextCodeUnauthenticated)
}

// IsForbidden will check for privilege denials, including inactive accounts
func IsForbidden(err error) bool {
	return hasTextCode(err, TextCodeForbidden) || hasTextCode(err, TextCodeAccountInactive)
}

// IsNotFound will check for absent-resource errors
func IsNotFound(err error) bool {
	return hasTextCode(err, TextCodeNotFound) || goerrors.IsNotFound(err)
}

// IsConflict will check for uniqueness violations
func IsConflict(err error) bool {
	return hasTextCode(err, TextCodeConflict)
}

// IsInvalidArgument will check for malformed-input errors
func IsInvalidArgument(err error) bool {
	return hasTextCode(err, TextCodeInvalidArgument)
}

// IsInvalidState will check for wrong-state transition errors
func IsInvalidState(err error) bool {
	return hasTextCode(err, TextCodeInvalidState)
}

// IsCodeInvalidOrExpired will check for one-time-code failures
func IsCodeInvalidOrExpired(err error) bool {
	return hasTextCode(err, TextCodeCodeInvalidOrExpired)
}
