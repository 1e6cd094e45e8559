package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("user already exists")
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrChallengeFailed    = errors.New("reCAPTCHA verification failed")
	ErrDeliveryFailed     = errors.New("failed to deliver OTP")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
