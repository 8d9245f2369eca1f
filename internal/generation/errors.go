package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrInvalidConfig is returned when the remote API configuration is invalid
	ErrInvalidConfig = errors.New("invalid remote api configuration")

	// ErrTokenUnavailable is returned when a bearer token cannot be produced
	ErrTokenUnavailable = errors.New("bearer token unavailable")
)
