package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFSecretMissing occurs when no CSRF signing secret is configured.
	ErrCSRFSecretMissing = errors.New("csrf secret must be provided")
	// ErrCSRFSecretTooShort occurs when the CSRF signing secret is undersized.
	ErrCSRFSecretTooShort = errors.New("csrf secret too short")
	// ErrCSRFMaxAgeTooShort occurs when the cookie lifetime is below one second.
	ErrCSRFMaxAgeTooShort = errors.New("csrf cookie max-age must be at least one second")
	// ErrCSRFTokenMissing occurs when either copy of the CSRF token is absent.
	ErrCSRFTokenMissing = errors.New("CSRF token missing")
	// ErrCSRFTokenInvalid occurs when the CSRF token pair fails validation.
	ErrCSRFTokenInvalid = errors.New("CSRF token invalid")
)
