package deviceinfo

import "errors"

// Capability outcomes reported by platform providers.
var (
	// ErrUnsupported means the platform lacks the capability entirely.
	ErrUnsupported = errors.New("deviceinfo: capability not supported")

	// ErrAccessDenied means the capability exists but the process may not use it.
	ErrAccessDenied = errors.New("deviceinfo: access denied")

	// ErrResourceMissing means a UI resource lookup found nothing under the key.
	ErrResourceMissing = errors.New("deviceinfo: resource not found")
)

// Engine and coordinator errors.
var (
	// ErrNotResolved is returned for a value no pass has produced yet.
	ErrNotResolved = errors.New("deviceinfo: not resolved")

	// ErrPassInProgress is returned when a pass is requested while another is running.
	ErrPassInProgress = errors.New("deviceinfo: resolution pass already in progress")

	// ErrDispatcherUnavailable is returned when no UI-affine loop is bound.
	ErrDispatcherUnavailable = errors.New("deviceinfo: dispatcher unavailable")

	// ErrDispatcherBusy is returned when the dispatcher queue is full.
	ErrDispatcherBusy = errors.New("deviceinfo: dispatcher queue full")

	// ErrNoPlatform is returned by NewEngine without a platform provider.
	ErrNoPlatform = errors.New("deviceinfo: platform provider is required")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("deviceinfo: engine closed")
)
