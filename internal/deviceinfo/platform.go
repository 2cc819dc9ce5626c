package deviceinfo

import "context"

// Platform is a capability provider. A provider satisfies whichever of
// the Source interfaces below its host can answer; probes type-assert
// for the capability they need and treat a missing interface exactly
// like ErrUnsupported.
//
// Every Source method may return ErrUnsupported, ErrAccessDenied or a
// transient error. Methods marked UI-affine are only called from the
// dispatcher loop.
type Platform interface {
	// Name identifies the provider in logs, e.g. "host" or "profile".
	Name() string
}

// PowerSource reports battery state.
type PowerSource interface {
	PowerStatus(ctx context.Context) (PowerStatus, error)
}

// CameraSource enumerates and opens cameras.
type CameraSource interface {
	Cameras(ctx context.Context) ([]CameraInfo, error)
	OpenCamera(ctx context.Context, id string) (CameraSession, error)
}

// CameraSession is an open camera. It must be closed before the probe that
// opened it reports completion.
type CameraSession interface {
	HasFlash() bool
	HasAutoFocus() bool
	Resolutions(kind StreamKind) ([]Size, error)
	Close() error
}

// MemorySource reports process and device memory counters.
type MemorySource interface {
	MemoryStatus(ctx context.Context) (MemoryStatus, error)
}

// DisplaySource reports display metrics. UI-affine.
type DisplaySource interface {
	DisplayMetrics(ctx context.Context) (DisplayMetrics, error)
}

// OrientationSource reports live device rotation.
type OrientationSource interface {
	Orientation(ctx context.Context) (Orientation, error)
}

// SensorSource reports whether a sensor exists.
type SensorSource interface {
	HasSensor(ctx context.Context, kind SensorKind) (bool, error)
}

// IdentitySource reports descriptive identity and the stable device id.
// DeviceID returns ErrAccessDenied when the identity capability is withheld.
type IdentitySource interface {
	DeviceInfo(ctx context.Context) (Identity, error)
	DeviceID(ctx context.Context) (string, error)
}

// StorageSource lists mounted removable storage.
type StorageSource interface {
	RemovableStorage(ctx context.Context) ([]string, error)
}

// ThemeSource reads the UI theme. UI-affine. A missing accent resource is
// reported as ErrResourceMissing alongside whatever was resolved.
type ThemeSource interface {
	Theme(ctx context.Context) (Theme, error)
}

// ProcessorSource reports the processor core count.
type ProcessorSource interface {
	ProcessorCount(ctx context.Context) (int, error)
}

// VibrationSource reports whether a vibration motor exists.
type VibrationSource interface {
	HasVibrator(ctx context.Context) (bool, error)
}

// Capabilities lists which Source interfaces p implements.
func Capabilities(p Platform) []string {
	var caps []string
	add := func(ok bool, name string) {
		if ok {
			caps = append(caps, name)
		}
	}
	_, ok := p.(PowerSource)
	add(ok, "power")
	_, ok = p.(CameraSource)
	add(ok, "camera")
	_, ok = p.(MemorySource)
	add(ok, "memory")
	_, ok = p.(DisplaySource)
	add(ok, "display")
	_, ok = p.(OrientationSource)
	add(ok, "orientation")
	_, ok = p.(SensorSource)
	add(ok, "sensors")
	_, ok = p.(IdentitySource)
	add(ok, "identity")
	_, ok = p.(StorageSource)
	add(ok, "storage")
	_, ok = p.(ThemeSource)
	add(ok, "theme")
	_, ok = p.(ProcessorSource)
	add(ok, "processor")
	_, ok = p.(VibrationSource)
	add(ok, "vibration")
	return caps
}
