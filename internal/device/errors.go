package device

import "errors"

// Domain errors for the device package.
var (
	// ErrMissingDependency is returned by New when a required option is nil.
	ErrMissingDependency = errors.New("device: missing required dependency")

	// ErrServiceUnavailable is returned when no resolver, default or
	// platform implementation exists for a sub-service.
	ErrServiceUnavailable = errors.New("device: service unavailable")
)
