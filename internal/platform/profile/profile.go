package profile

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

// Fault modes.
const (
	FaultUnsupported = "unsupported"
	FaultDenied      = "denied"
	FaultFail        = "fail"
	FaultPanic       = "panic"
)

// ErrInjected is returned by a capability faulted with mode "fail".
var ErrInjected = errors.New("profile: injected failure")

// Profile is a device description loaded from YAML.
type Profile struct {
	Name string `yaml:"name"`

	Identity deviceinfo.Identity `yaml:"identity"`
	DeviceID string              `yaml:"device_id"`

	Power *struct {
		ChargePercent int  `yaml:"charge_percent"`
		ExternalPower bool `yaml:"external_power"`
		PowerSaving   bool `yaml:"power_saving"`
	} `yaml:"power"`

	Memory deviceinfo.MemoryStatus `yaml:"memory"`

	Cameras []Camera `yaml:"cameras"`

	Display *Display `yaml:"display"`

	Orientation deviceinfo.Orientation `yaml:"orientation"`

	Sensors []deviceinfo.SensorKind `yaml:"sensors"`

	RemovableStorage []string `yaml:"removable_storage"`

	Theme *struct {
		Accent   string              `yaml:"accent"`
		AppTheme deviceinfo.AppTheme `yaml:"app_theme"`
	} `yaml:"theme"`

	ProcessorCount int  `yaml:"processor_count"`
	Vibration      bool `yaml:"vibration"`

	// Faults maps a capability name (see deviceinfo.Capabilities, plus
	// "device_id") to an injected fault.
	Faults map[string]Fault `yaml:"faults"`
}

// Camera is one camera in a profile.
type Camera struct {
	ID               string            `yaml:"id"`
	Facing           deviceinfo.Facing `yaml:"facing"`
	Flash            bool              `yaml:"flash"`
	AutoFocus        bool              `yaml:"auto_focus"`
	PhotoResolutions SizeList          `yaml:"photo_resolutions"`
	VideoResolutions SizeList          `yaml:"video_resolutions"`
	OpenError        string            `yaml:"open_error"`
}

// Display describes the screen.
type Display struct {
	Width                 float64                `yaml:"width"`
	Height                float64                `yaml:"height"`
	RawDPIX               float64                `yaml:"raw_dpi_x"`
	RawDPIY               float64                `yaml:"raw_dpi_y"`
	LogicalDPI            float64                `yaml:"logical_dpi"`
	RawPixelsPerViewPixel float64                `yaml:"raw_pixels_per_view_pixel"`
	ResolutionScale       int                    `yaml:"resolution_scale"`
	NativeOrientation     deviceinfo.Orientation `yaml:"native_orientation"`
	StereoEnabled         bool                   `yaml:"stereo_enabled"`
}

// Fault makes a capability misbehave.
type Fault struct {
	Mode  string        `yaml:"mode"`
	Delay time.Duration `yaml:"delay"`
}

// SizeList decodes resolutions written as "WIDTHxHEIGHT".
type SizeList []deviceinfo.Size

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *SizeList) UnmarshalYAML(value *yaml.Node) error {
	var raw []string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(SizeList, 0, len(raw))
	for _, s := range raw {
		var size deviceinfo.Size
		if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &size.Width, &size.Height); err != nil {
			return fmt.Errorf("resolution %q: want WIDTHxHEIGHT", s)
		}
		out = append(out, size)
	}
	*l = out
	return nil
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates profile YAML.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks fault modes and theme colours.
func (p *Profile) Validate() error {
	var errs []string
	for name, f := range p.Faults {
		switch f.Mode {
		case FaultUnsupported, FaultDenied, FaultFail, FaultPanic, "":
		default:
			errs = append(errs, fmt.Sprintf("faults.%s.mode: unknown mode %q", name, f.Mode))
		}
		if f.Delay < 0 {
			errs = append(errs, fmt.Sprintf("faults.%s.delay: must not be negative", name))
		}
	}
	if p.Theme != nil && p.Theme.Accent != "" {
		if _, err := deviceinfo.ParseColor(p.Theme.Accent); err != nil {
			errs = append(errs, "theme.accent: "+err.Error())
		}
	}
	for i, c := range p.Cameras {
		switch c.Facing {
		case deviceinfo.FacingBack, deviceinfo.FacingFront, deviceinfo.FacingExternal:
		default:
			errs = append(errs, fmt.Sprintf("cameras[%d].facing: unknown facing %q", i, c.Facing))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid profile: %s", strings.Join(errs, "; "))
	}
	return nil
}
