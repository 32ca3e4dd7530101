package auth

import (
	"errors"
)

var (
	// ErrInvalidCredentials is returned on any username/password/OTP
	// mismatch. Failures are terminal per attempt; no retries happen
	// inside the service.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for malformed, expired, or revoked
	// session tokens.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
)
