package deviceinfo

import (
	"fmt"
	"strings"
)

// UnknownCharge is the battery charge recorded when no reading exists.
const UnknownCharge = -1

// Size is a pixel width and height.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Area returns Width*Height.
func (s Size) Area() int64 {
	return int64(s.Width) * int64(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Facing is the side of the device a camera points from.
type Facing string

// Camera facings.
const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
	// FacingExternal cameras are enumerated but not recorded.
	FacingExternal Facing = "external"
)

// StreamKind selects photo or video capture resolutions.
type StreamKind int

// Stream kinds.
const (
	StreamPhoto StreamKind = iota
	StreamVideo
)

// CameraInfo is one enumerated camera.
type CameraInfo struct {
	ID     string
	Facing Facing
}

// PowerStatus is a battery reading from the platform.
type PowerStatus struct {
	ChargePercent int
	ExternalPower bool
	PowerSaving   bool
}

// MemoryStatus holds memory counters in bytes. Zero means unavailable.
type MemoryStatus struct {
	CurrentUsage uint64 `json:"current_usage" yaml:"current_usage"`
	UsageLimit   uint64 `json:"usage_limit" yaml:"usage_limit"`
	PeakUsage    uint64 `json:"peak_usage" yaml:"peak_usage"`
	DeviceTotal  uint64 `json:"device_total" yaml:"device_total"`
}

// Orientation is the display rotation.
type Orientation string

// Orientations.
const (
	OrientationNone           Orientation = "none"
	OrientationPortrait       Orientation = "portrait"
	OrientationPortraitDown   Orientation = "portrait_down"
	OrientationLandscapeLeft  Orientation = "landscape_left"
	OrientationLandscapeRight Orientation = "landscape_right"
)

// IsLandscape reports whether o is either landscape rotation.
func (o Orientation) IsLandscape() bool {
	return o == OrientationLandscapeLeft || o == OrientationLandscapeRight
}

// DisplayMetrics is what a DisplaySource reports. Width and Height are raw
// pixels and may be fractional when derived from view bounds.
type DisplayMetrics struct {
	Width                 float64     `json:"width"`
	Height                float64     `json:"height"`
	RawDPIX               float64     `json:"raw_dpi_x"`
	RawDPIY               float64     `json:"raw_dpi_y"`
	LogicalDPI            float64     `json:"logical_dpi"`
	RawPixelsPerViewPixel float64     `json:"raw_pixels_per_view_pixel"`
	ResolutionScale       int         `json:"resolution_scale"`
	CurrentOrientation    Orientation `json:"current_orientation"`
	NativeOrientation     Orientation `json:"native_orientation"`
	StereoEnabled         bool        `json:"stereo_enabled"`
}

// SensorKind names a sensor class.
type SensorKind string

// Sensor kinds checked by the sensor probe.
const (
	SensorAccelerometer SensorKind = "accelerometer"
	SensorCompass       SensorKind = "compass"
	SensorGyroscope     SensorKind = "gyroscope"
	SensorInclinometer  SensorKind = "inclinometer"
	SensorOrientation   SensorKind = "orientation"
	SensorProximity     SensorKind = "proximity"
)

// AllSensors lists every kind the sensor probe checks, in check order.
var AllSensors = []SensorKind{
	SensorAccelerometer,
	SensorCompass,
	SensorGyroscope,
	SensorInclinometer,
	SensorOrientation,
	SensorProximity,
}

// Identity is the descriptive identity of the device.
type Identity struct {
	Name            string `json:"name" yaml:"name"`
	Manufacturer    string `json:"manufacturer" yaml:"manufacturer"`
	HardwareVersion string `json:"hardware_version" yaml:"hardware_version"`
	FirmwareVersion string `json:"firmware_version" yaml:"firmware_version"`
}

// AppTheme is the application colour scheme.
type AppTheme string

// App themes.
const (
	ThemeUnknown AppTheme = ""
	ThemeLight   AppTheme = "light"
	ThemeDark    AppTheme = "dark"
)

// Color is an ARGB colour.
type Color struct {
	A uint8 `json:"a"`
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex formats c as #AARRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
}

// ParseColor accepts #RRGGBB or #AARRGGBB.
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var c Color
	switch len(s) {
	case 6:
		c.A = 0xFF
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return Color{}, fmt.Errorf("parsing colour %q: %w", s, err)
		}
	case 8:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x%02x", &c.A, &c.R, &c.G, &c.B); err != nil {
			return Color{}, fmt.Errorf("parsing colour %q: %w", s, err)
		}
	default:
		return Color{}, fmt.Errorf("parsing colour %q: want #RRGGBB or #AARRGGBB", s)
	}
	return c, nil
}

// Theme is what a ThemeSource reports.
type Theme struct {
	Accent   Color    `json:"accent"`
	AppTheme AppTheme `json:"app_theme"`
}
