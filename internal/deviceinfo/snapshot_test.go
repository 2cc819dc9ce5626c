package deviceinfo

import (
	"errors"
	"sync"
	"testing"
)

func TestNewSnapshotDefaults(t *testing.T) {
	s := NewSnapshot()
	p := s.Properties()

	if p.Power.ChargePercent != UnknownCharge {
		t.Errorf("ChargePercent = %d, want %d", p.Power.ChargePercent, UnknownCharge)
	}
	if p.Power.HasBatteryInfo {
		t.Error("HasBatteryInfo should default to false")
	}
	if p.Screen.Resolution != ResolutionUnknown {
		t.Errorf("Resolution = %v, want Unknown", p.Screen.Resolution)
	}
	if p.Cameras.Back.Present || p.Cameras.Front.Present {
		t.Error("cameras should default to absent")
	}
	if _, err := s.DeviceID(); !errors.Is(err, ErrNotResolved) {
		t.Errorf("DeviceID() error = %v, want ErrNotResolved", err)
	}
}

func TestSnapshotDeviceIDStatus(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w *Writer)
		wantID  string
		wantErr error
	}{
		{"resolved", func(w *Writer) { w.SetDeviceID("abc") }, "abc", nil},
		{"denied", func(w *Writer) { w.SetDeviceIDStatus(IDDenied) }, "", ErrAccessDenied},
		{"unavailable", func(w *Writer) { w.SetDeviceIDStatus(IDUnavailable) }, "", ErrUnsupported},
		{"resolved status without value", func(w *Writer) { w.SetDeviceIDStatus(IDResolved) }, "", ErrNotResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot()
			tt.write(s.Writer())

			id, err := s.DeviceID()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeviceID() error = %v, want %v", err, tt.wantErr)
			}
			if id != tt.wantID {
				t.Errorf("DeviceID() = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestSnapshotPropertiesIsCopy(t *testing.T) {
	s := NewSnapshot()
	s.Writer().SetCameras(Cameras{Back: CameraFacing{
		Present:          true,
		PhotoResolutions: []Size{{1920, 1080}},
	}})

	p := s.Properties()
	p.Cameras.Back.PhotoResolutions[0] = Size{1, 1}

	again := s.Properties()
	if again.Cameras.Back.PhotoResolutions[0] != (Size{1920, 1080}) {
		t.Errorf("mutating a copy changed the snapshot: %v", again.Cameras.Back.PhotoResolutions)
	}
}

func TestWriterRevoke(t *testing.T) {
	s := NewSnapshot()
	w := s.newPassWriter()

	if !w.SetSDCard(true) {
		t.Fatal("SetSDCard() on live writer = false")
	}
	w.Revoke()
	if !w.Revoked() {
		t.Error("Revoked() = false after Revoke")
	}
	if w.SetSDCard(false) {
		t.Error("SetSDCard() on revoked writer = true")
	}
	if !s.Properties().HasSDCard {
		t.Error("revoked write reached the snapshot")
	}
	if !s.Writer().SetSDCard(false) {
		t.Error("permanent writer affected by pass writer revoke")
	}
}

func TestSnapshotOnChange(t *testing.T) {
	s := NewSnapshot()

	var (
		mu     sync.Mutex
		fields []Field
	)
	unsubscribe := s.OnChange(func(c Change) {
		// Reading inside a listener must not deadlock.
		_ = s.Properties()
		mu.Lock()
		fields = append(fields, c.Field)
		mu.Unlock()
	})

	s.Writer().SetPower(PowerInfo{ChargePercent: 50, HasBatteryInfo: true})
	s.Writer().SetTheme(Theme{AppTheme: ThemeLight})
	unsubscribe()
	unsubscribe()
	s.Writer().SetVibration(true)

	mu.Lock()
	defer mu.Unlock()
	if len(fields) != 2 || fields[0] != FieldPower || fields[1] != FieldTheme {
		t.Errorf("changes = %v, want [power theme]", fields)
	}
}

func TestSensorsSetAndHas(t *testing.T) {
	var sensors Sensors
	for _, kind := range AllSensors {
		sensors.set(kind, true)
	}
	for _, kind := range AllSensors {
		if !sensors.Has(kind) {
			t.Errorf("Has(%s) = false", kind)
		}
	}
	if sensors.Has(SensorKind("barometer")) {
		t.Error("Has(barometer) = true")
	}
}
