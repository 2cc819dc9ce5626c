package device

import (
	"context"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// Kind names a sub-service.
type Kind string

// Sub-service kinds.
const (
	KindDisplay       Kind = "display"
	KindBattery       Kind = "battery"
	KindAccelerometer Kind = "accelerometer"
	KindGyroscope     Kind = "gyroscope"
	KindNetwork       Kind = "network"
	KindBluetoothHub  Kind = "bluetooth_hub"
	KindMicrophone    Kind = "microphone"
	KindSecureStorage Kind = "secure_storage"
	KindFileManager   Kind = "file_manager"
)

// Display exposes resolved screen properties.
type Display interface {
	Screen() deviceinfo.Screen
}

// Battery reads live battery state.
type Battery interface {
	Level(ctx context.Context) (int, error)
	Charging(ctx context.Context) (bool, error)
}

// Sensor is a motion sensor handle.
type Sensor interface {
	Kind() deviceinfo.SensorKind
}

// NetworkStatus is the best connection currently available.
type NetworkStatus string

// Network statuses.
const (
	NetworkNone     NetworkStatus = "not_reachable"
	NetworkWired    NetworkStatus = "wired"
	NetworkWiFi     NetworkStatus = "wifi"
	NetworkCellular NetworkStatus = "cellular"
)

// Network reports connectivity.
type Network interface {
	InternetConnectionStatus(ctx context.Context) (NetworkStatus, error)
}

// BluetoothHub reports bluetooth adapter state.
type BluetoothHub interface {
	Enabled(ctx context.Context) (bool, error)
}

// Microphone reports whether audio capture is possible.
type Microphone interface {
	Available(ctx context.Context) (bool, error)
}

// SecureStorage is a sealed key/value store.
type SecureStorage interface {
	Store(ctx context.Context, key string, data []byte) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Contains(ctx context.Context, key string) (bool, error)
}

// FileManager is rooted file access.
type FileManager interface {
	Exists(name string) bool
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Delete(name string) error
	List(dir string) ([]string, error)
}

// Defaults builds sub-services the resolver does not supply. A nil
// function falls through to the platform.
type Defaults struct {
	Network       func() Network
	BluetoothHub  func() BluetoothHub
	Microphone    func() Microphone
	SecureStorage func(d *Device) SecureStorage
	FileManager   func() FileManager
}

// snapshotDisplay serves screen properties from the engine snapshot.
type snapshotDisplay struct {
	engine *deviceinfo.Engine
}

func (s snapshotDisplay) Screen() deviceinfo.Screen {
	return s.engine.Properties().Screen
}

// platformBattery reads battery state from the platform on every call.
type platformBattery struct {
	src deviceinfo.PowerSource
}

func (b platformBattery) Level(ctx context.Context) (int, error) {
	st, err := b.src.PowerStatus(ctx)
	if err != nil {
		return deviceinfo.UnknownCharge, err
	}
	return st.ChargePercent, nil
}

func (b platformBattery) Charging(ctx context.Context) (bool, error) {
	st, err := b.src.PowerStatus(ctx)
	if err != nil {
		return false, err
	}
	return st.ExternalPower, nil
}

type presentSensor struct {
	kind deviceinfo.SensorKind
}

func (s presentSensor) Kind() deviceinfo.SensorKind { return s.kind }
