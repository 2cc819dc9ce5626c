// Package profile implements deviceinfo.Platform from a YAML device
// profile, for emulating phones and tablets and for exercising failure
// paths on demand.
//
// Every capability can be faulted from the profile:
//
//	faults:
//	  camera: {mode: fail}
//	  identity: {mode: denied}
//	  theme: {mode: unsupported, delay: 2s}
//
// Watch reloads the file when it changes so a running service picks up
// the new answers on its next refresh pass.
package profile
