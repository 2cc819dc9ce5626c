// Package device provides the Device facade: one object per logical
// device exposing resolved properties and lazily built sub-services.
//
// A Device is constructed explicitly by the composition root and injected
// where it is needed; there is no process-wide instance. Construction
// starts the first resolution pass on its engine.
//
// Sub-services (display, battery, sensors, network, bluetooth, microphone,
// secure storage, file manager) are looked up in an injected Resolver
// first, then in the configured Defaults, then on the platform itself.
// Whatever is found first is cached for the lifetime of the Device.
//
// Orientation is never cached; it re-queries the platform on every call.
package device
