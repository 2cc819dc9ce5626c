package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// Logger defines the logging interface used by the Device.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Device.
type Options struct {
	// Engine is required. Its platform backs the platform defaults.
	Engine *deviceinfo.Engine

	// Resolver supplies sub-service overrides. Optional.
	Resolver Resolver

	Defaults Defaults
	Logger   Logger
	Locale   Locale
}

// Device is the facade over one resolved device.
type Device struct {
	engine   *deviceinfo.Engine
	platform deviceinfo.Platform
	resolver Resolver
	defaults Defaults
	locale   Locale
	logger   Logger

	mu       sync.Mutex
	services map[Kind]*lazyService

	initial *deviceinfo.Pass
}

type lazyService struct {
	once sync.Once
	svc  any
	ok   bool
}

// New creates a Device and starts its first resolution pass.
func New(ctx context.Context, opts Options) (*Device, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("%w: engine", ErrMissingDependency)
	}
	if opts.Engine.Platform() == nil {
		return nil, fmt.Errorf("%w: platform", ErrMissingDependency)
	}

	d := &Device{
		engine:   opts.Engine,
		platform: opts.Engine.Platform(),
		resolver: opts.Resolver,
		defaults: opts.Defaults,
		locale:   opts.Locale,
		logger:   opts.Logger,
		services: make(map[Kind]*lazyService),
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	if d.locale.Getenv == nil || d.locale.Now == nil {
		d.locale = SystemLocale()
	}

	pass, err := d.engine.Resolve(ctx)
	if err != nil && pass == nil {
		return nil, fmt.Errorf("starting resolution: %w", err)
	}
	d.initial = pass
	return d, nil
}

// Engine returns the underlying engine.
func (d *Device) Engine() *deviceinfo.Engine {
	return d.engine
}

// InitialPass returns the pass started by New.
func (d *Device) InitialPass() *deviceinfo.Pass {
	return d.initial
}

// IsReady reports whether the latest pass completed.
func (d *Device) IsReady() bool {
	return d.engine.IsReady()
}

// State returns the engine lifecycle state.
func (d *Device) State() deviceinfo.State {
	return d.engine.State()
}

// Properties returns a copy of the resolved properties.
func (d *Device) Properties() deviceinfo.Properties {
	return d.engine.Properties()
}

// LastReport returns the report of the most recently completed pass.
func (d *Device) LastReport() (deviceinfo.PassReport, bool) {
	return d.engine.LastReport()
}

// Subscribe registers fn for readiness events.
func (d *Device) Subscribe(fn func(deviceinfo.Event)) (unsubscribe func()) {
	return d.engine.Subscribe(fn)
}

// Refresh starts a refresh pass and returns it for awaiting. While a pass
// is running it returns that pass with deviceinfo.ErrPassInProgress.
func (d *Device) Refresh(ctx context.Context) (*deviceinfo.Pass, error) {
	return d.engine.Refresh(ctx)
}

// ID returns the stable device id. It returns deviceinfo.ErrAccessDenied
// when the identity capability was withheld and deviceinfo.ErrNotResolved
// before the identity probe has run.
func (d *Device) ID() (string, error) {
	return d.engine.Snapshot().DeviceID()
}

// Name returns the device model name.
func (d *Device) Name() string {
	return d.engine.Properties().Identity.Name
}

// Manufacturer returns the device manufacturer.
func (d *Device) Manufacturer() string {
	return d.engine.Properties().Identity.Manufacturer
}

// HardwareVersion returns the hardware revision string.
func (d *Device) HardwareVersion() string {
	return d.engine.Properties().Identity.HardwareVersion
}

// FirmwareVersion returns the firmware or OS version string.
func (d *Device) FirmwareVersion() string {
	return d.engine.Properties().Identity.FirmwareVersion
}

// TotalMemory returns device memory in bytes, or zero when unknown.
func (d *Device) TotalMemory() uint64 {
	return d.engine.Properties().Memory.DeviceTotal
}

// Orientation queries the current rotation. It is never cached.
func (d *Device) Orientation(ctx context.Context) (deviceinfo.Orientation, error) {
	src, ok := d.platform.(deviceinfo.OrientationSource)
	if !ok {
		return deviceinfo.OrientationNone, deviceinfo.ErrUnsupported
	}
	o, err := src.Orientation(ctx)
	if err != nil {
		return deviceinfo.OrientationNone, err
	}
	return o, nil
}

// TimeZone returns the local time zone name.
func (d *Device) TimeZone() string {
	return d.locale.TimeZone()
}

// TimeZoneOffset returns the local offset from UTC in hours.
func (d *Device) TimeZoneOffset() float64 {
	return d.locale.TimeZoneOffset()
}

// LanguageCode returns the two-letter language of the process locale.
func (d *Device) LanguageCode() string {
	return d.locale.LanguageCode()
}

// Display returns the display service.
func (d *Device) Display() (Display, error) {
	return service(d, KindDisplay, func() (Display, bool) {
		return snapshotDisplay{engine: d.engine}, true
	})
}

// Battery returns the battery service.
func (d *Device) Battery() (Battery, error) {
	return service(d, KindBattery, func() (Battery, bool) {
		src, ok := d.platform.(deviceinfo.PowerSource)
		if !ok {
			return nil, false
		}
		return platformBattery{src: src}, true
	})
}

// Accelerometer returns the accelerometer, or ErrServiceUnavailable when
// the resolved properties report none.
func (d *Device) Accelerometer() (Sensor, error) {
	return service(d, KindAccelerometer, d.sensorDefault(deviceinfo.SensorAccelerometer))
}

// Gyroscope returns the gyroscope, or ErrServiceUnavailable when the
// resolved properties report none.
func (d *Device) Gyroscope() (Sensor, error) {
	return service(d, KindGyroscope, d.sensorDefault(deviceinfo.SensorGyroscope))
}

func (d *Device) sensorDefault(kind deviceinfo.SensorKind) func() (Sensor, bool) {
	return func() (Sensor, bool) {
		if !d.engine.Properties().Sensors.Has(kind) {
			return nil, false
		}
		return presentSensor{kind: kind}, true
	}
}

// Network returns the network service.
func (d *Device) Network() (Network, error) {
	return service(d, KindNetwork, func() (Network, bool) {
		if d.defaults.Network != nil {
			svc := d.defaults.Network()
			return svc, svc != nil
		}
		n, ok := d.platform.(Network)
		return n, ok
	})
}

// BluetoothHub returns the bluetooth service.
func (d *Device) BluetoothHub() (BluetoothHub, error) {
	return service(d, KindBluetoothHub, func() (BluetoothHub, bool) {
		if d.defaults.BluetoothHub != nil {
			svc := d.defaults.BluetoothHub()
			return svc, svc != nil
		}
		b, ok := d.platform.(BluetoothHub)
		return b, ok
	})
}

// Microphone returns the microphone service.
func (d *Device) Microphone() (Microphone, error) {
	return service(d, KindMicrophone, func() (Microphone, bool) {
		if d.defaults.Microphone != nil {
			svc := d.defaults.Microphone()
			return svc, svc != nil
		}
		m, ok := d.platform.(Microphone)
		return m, ok
	})
}

// SecureStorage returns the secure store.
func (d *Device) SecureStorage() (SecureStorage, error) {
	return service(d, KindSecureStorage, func() (SecureStorage, bool) {
		if d.defaults.SecureStorage == nil {
			return nil, false
		}
		s := d.defaults.SecureStorage(d)
		return s, s != nil
	})
}

// FileManager returns the file manager.
func (d *Device) FileManager() (FileManager, error) {
	return service(d, KindFileManager, func() (FileManager, bool) {
		if d.defaults.FileManager == nil {
			return nil, false
		}
		fm := d.defaults.FileManager()
		return fm, fm != nil
	})
}

// service resolves kind once: resolver first, then build. The outcome,
// including absence, is cached for the Device's lifetime.
func service[T any](d *Device, kind Kind, build func() (T, bool)) (T, error) {
	d.mu.Lock()
	entry, ok := d.services[kind]
	if !ok {
		entry = &lazyService{}
		d.services[kind] = entry
	}
	d.mu.Unlock()

	entry.once.Do(func() {
		if d.resolver != nil {
			if svc, found := d.resolver.Resolve(kind); found {
				if typed, ok := svc.(T); ok {
					entry.svc, entry.ok = typed, true
					return
				}
				d.logger.Warn("resolver returned wrong type for service", "kind", kind, "type", fmt.Sprintf("%T", svc))
			}
		}
		svc, found := build()
		if found {
			entry.svc, entry.ok = svc, true
		}
		if found {
			d.logger.Debug("device service built from default", "kind", kind)
		}
	})

	if !entry.ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrServiceUnavailable, kind)
	}
	return entry.svc.(T), nil
}
