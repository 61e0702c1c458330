package auth

import "errors"

// Business-rule failures surfaced by the credential service. Handlers map
// these to HTTP statuses; anything not listed here is treated as internal.
var (
	// Validation failures - the caller fixes the request.
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 25 characters")
	ErrPasswordNoLower    = errors.New("password must contain a lowercase letter")
	ErrPasswordNoUpper    = errors.New("password must contain an uppercase letter")
	ErrPasswordNoDigit    = errors.New("password must contain a digit")
	ErrPasswordNoSymbol   = errors.New("password must contain one of @$!%*?&")
	ErrPasswordBadChars   = errors.New("password may only contain letters, digits and @$!%*?&")

	// Deliberately uninformative: unknown email and wrong password are not
	// distinguishable from the response.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrUserNotFound    = errors.New("user does not exist")
	ErrEmailExists     = errors.New("email already exists")
	ErrAlreadyVerified = errors.New("account is already verified")
	ErrNotVerified     = errors.New("account must be verified first")

	// ErrInvalidCode covers missing, expired and mismatched codes alike so
	// responses leak nothing about which check failed.
	ErrInvalidCode = errors.New("invalid or expired code")

	// ErrCooldown rejects reset-code reissue inside the cool-down window.
	ErrCooldown = errors.New("please wait before requesting another code")

	// ErrDeliveryFailed means the mail sender accepted no recipients; no
	// code was persisted.
	ErrDeliveryFailed = errors.New("failed to deliver code")

	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
