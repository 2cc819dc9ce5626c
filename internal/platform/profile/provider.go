package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// Name is the platform name reported by the provider.
const Name = "profile"

// Fault keys that are not capability names.
const faultDeviceID = "device_id"

// Provider answers capability queries from a Profile.
type Provider struct {
	mu      sync.RWMutex
	profile *Profile
}

// New creates a provider serving p.
func New(p *Profile) *Provider {
	return &Provider{profile: p}
}

// Name returns "profile".
func (p *Provider) Name() string {
	return Name
}

// Profile returns the current profile.
func (p *Provider) Profile() *Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profile
}

// SetProfile replaces the served profile.
func (p *Provider) SetProfile(profile *Profile) {
	p.mu.Lock()
	p.profile = profile
	p.mu.Unlock()
}

// fault applies the profile's injected fault for capability, if any.
func (p *Provider) fault(ctx context.Context, capability string) error {
	f, ok := p.Profile().Faults[capability]
	if !ok {
		return nil
	}
	if f.Delay > 0 {
		t := time.NewTimer(f.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	switch f.Mode {
	case FaultUnsupported:
		return deviceinfo.ErrUnsupported
	case FaultDenied:
		return deviceinfo.ErrAccessDenied
	case FaultFail:
		return fmt.Errorf("%s: %w", capability, ErrInjected)
	case FaultPanic:
		panic(fmt.Sprintf("profile: injected panic in %s", capability))
	}
	return nil
}

// PowerStatus implements deviceinfo.PowerSource.
func (p *Provider) PowerStatus(ctx context.Context) (deviceinfo.PowerStatus, error) {
	if err := p.fault(ctx, "power"); err != nil {
		return deviceinfo.PowerStatus{}, err
	}
	pw := p.Profile().Power
	if pw == nil {
		return deviceinfo.PowerStatus{}, deviceinfo.ErrUnsupported
	}
	return deviceinfo.PowerStatus{
		ChargePercent: pw.ChargePercent,
		ExternalPower: pw.ExternalPower,
		PowerSaving:   pw.PowerSaving,
	}, nil
}

// MemoryStatus implements deviceinfo.MemorySource.
func (p *Provider) MemoryStatus(ctx context.Context) (deviceinfo.MemoryStatus, error) {
	if err := p.fault(ctx, "memory"); err != nil {
		return deviceinfo.MemoryStatus{}, err
	}
	return p.Profile().Memory, nil
}

// Cameras implements deviceinfo.CameraSource.
func (p *Provider) Cameras(ctx context.Context) ([]deviceinfo.CameraInfo, error) {
	if err := p.fault(ctx, "camera"); err != nil {
		return nil, err
	}
	cams := p.Profile().Cameras
	out := make([]deviceinfo.CameraInfo, len(cams))
	for i, c := range cams {
		out[i] = deviceinfo.CameraInfo{ID: c.ID, Facing: c.Facing}
	}
	return out, nil
}

// OpenCamera implements deviceinfo.CameraSource.
func (p *Provider) OpenCamera(_ context.Context, id string) (deviceinfo.CameraSession, error) {
	for _, c := range p.Profile().Cameras {
		if c.ID != id {
			continue
		}
		switch c.OpenError {
		case "":
			return &session{cam: c}, nil
		case FaultDenied:
			return nil, deviceinfo.ErrAccessDenied
		default:
			return nil, errors.New(c.OpenError)
		}
	}
	return nil, fmt.Errorf("camera %q: %w", id, deviceinfo.ErrUnsupported)
}

type session struct {
	cam    Camera
	closed bool
}

func (s *session) HasFlash() bool     { return s.cam.Flash }
func (s *session) HasAutoFocus() bool { return s.cam.AutoFocus }

func (s *session) Resolutions(kind deviceinfo.StreamKind) ([]deviceinfo.Size, error) {
	if s.closed {
		return nil, errors.New("profile: camera session closed")
	}
	if kind == deviceinfo.StreamVideo {
		return slices.Clone(s.cam.VideoResolutions), nil
	}
	return slices.Clone(s.cam.PhotoResolutions), nil
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

// DisplayMetrics implements deviceinfo.DisplaySource.
func (p *Provider) DisplayMetrics(ctx context.Context) (deviceinfo.DisplayMetrics, error) {
	if err := p.fault(ctx, "display"); err != nil {
		return deviceinfo.DisplayMetrics{}, err
	}
	prof := p.Profile()
	d := prof.Display
	if d == nil {
		return deviceinfo.DisplayMetrics{}, deviceinfo.ErrUnsupported
	}
	current := prof.Orientation
	if current == "" {
		current = d.NativeOrientation
	}
	return deviceinfo.DisplayMetrics{
		Width:                 d.Width,
		Height:                d.Height,
		RawDPIX:               d.RawDPIX,
		RawDPIY:               d.RawDPIY,
		LogicalDPI:            d.LogicalDPI,
		RawPixelsPerViewPixel: d.RawPixelsPerViewPixel,
		ResolutionScale:       d.ResolutionScale,
		CurrentOrientation:    current,
		NativeOrientation:     d.NativeOrientation,
		StereoEnabled:         d.StereoEnabled,
	}, nil
}

// Orientation implements deviceinfo.OrientationSource.
func (p *Provider) Orientation(ctx context.Context) (deviceinfo.Orientation, error) {
	if err := p.fault(ctx, "orientation"); err != nil {
		return deviceinfo.OrientationNone, err
	}
	if o := p.Profile().Orientation; o != "" {
		return o, nil
	}
	return deviceinfo.OrientationNone, deviceinfo.ErrUnsupported
}

// HasSensor implements deviceinfo.SensorSource.
func (p *Provider) HasSensor(ctx context.Context, kind deviceinfo.SensorKind) (bool, error) {
	if err := p.fault(ctx, "sensors"); err != nil {
		return false, err
	}
	if err := p.fault(ctx, "sensor."+string(kind)); err != nil {
		return false, err
	}
	return slices.Contains(p.Profile().Sensors, kind), nil
}

// DeviceInfo implements deviceinfo.IdentitySource.
func (p *Provider) DeviceInfo(ctx context.Context) (deviceinfo.Identity, error) {
	if err := p.fault(ctx, "identity"); err != nil {
		return deviceinfo.Identity{}, err
	}
	id := p.Profile().Identity
	if id.Name == "" {
		id.Name = p.Profile().Name
	}
	return id, nil
}

// DeviceID implements deviceinfo.IdentitySource.
func (p *Provider) DeviceID(ctx context.Context) (string, error) {
	if err := p.fault(ctx, faultDeviceID); err != nil {
		return "", err
	}
	if id := p.Profile().DeviceID; id != "" {
		return id, nil
	}
	return "", deviceinfo.ErrUnsupported
}

// RemovableStorage implements deviceinfo.StorageSource.
func (p *Provider) RemovableStorage(ctx context.Context) ([]string, error) {
	if err := p.fault(ctx, "storage"); err != nil {
		return nil, err
	}
	return slices.Clone(p.Profile().RemovableStorage), nil
}

// Theme implements deviceinfo.ThemeSource. An empty accent is reported
// as deviceinfo.ErrResourceMissing.
func (p *Provider) Theme(ctx context.Context) (deviceinfo.Theme, error) {
	if err := p.fault(ctx, "theme"); err != nil {
		return deviceinfo.Theme{}, err
	}
	th := p.Profile().Theme
	if th == nil {
		return deviceinfo.Theme{}, deviceinfo.ErrUnsupported
	}
	t := deviceinfo.Theme{AppTheme: th.AppTheme}
	if th.Accent == "" {
		return t, deviceinfo.ErrResourceMissing
	}
	accent, err := deviceinfo.ParseColor(th.Accent)
	if err != nil {
		return t, errors.Join(deviceinfo.ErrResourceMissing, err)
	}
	t.Accent = accent
	return t, nil
}

// ProcessorCount implements deviceinfo.ProcessorSource.
func (p *Provider) ProcessorCount(ctx context.Context) (int, error) {
	if err := p.fault(ctx, "processor"); err != nil {
		return 0, err
	}
	if n := p.Profile().ProcessorCount; n > 0 {
		return n, nil
	}
	return 0, deviceinfo.ErrUnsupported
}

// HasVibrator implements deviceinfo.VibrationSource.
func (p *Provider) HasVibrator(ctx context.Context) (bool, error) {
	if err := p.fault(ctx, "vibration"); err != nil {
		return false, err
	}
	return p.Profile().Vibration, nil
}
