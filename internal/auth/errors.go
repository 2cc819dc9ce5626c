package auth

import "errors"

// Sentinel errors for token handling.
var (
	ErrTokenInvalid  = errors.New("auth: invalid token")
	ErrSecretMissing = errors.New("auth: signing secret not configured")
)
