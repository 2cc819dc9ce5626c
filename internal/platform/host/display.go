package host

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/nerrad567/devicekit/internal/deviceinfo"
)

const drmDir = "sys/class/drm"

// cmPerInch converts EDID centimetres.
const cmPerInch = 2.54

// DisplayMetrics reads the preferred mode of the first connected DRM
// connector and derives DPI from the EDID physical size when present.
func (p *Provider) DisplayMetrics(_ context.Context) (deviceinfo.DisplayMetrics, error) {
	entries, err := fs.ReadDir(p.fsys, drmDir)
	if err != nil {
		return deviceinfo.DisplayMetrics{}, deviceinfo.ErrUnsupported
	}

	for _, e := range entries {
		// Connectors are named like card0-eDP-1.
		if !strings.HasPrefix(e.Name(), "card") || !strings.Contains(e.Name(), "-") {
			continue
		}
		dir := path.Join(drmDir, e.Name())
		if status, err := p.readString(path.Join(dir, "status")); err != nil || status != "connected" {
			continue
		}
		modes, err := p.readString(path.Join(dir, "modes"))
		if err != nil || modes == "" {
			continue
		}
		first, _, _ := strings.Cut(modes, "\n")

		var w, h int
		if _, err := fmt.Sscanf(first, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
			continue
		}

		m := deviceinfo.DisplayMetrics{
			Width:                 float64(w),
			Height:                float64(h),
			RawPixelsPerViewPixel: 1,
			ResolutionScale:       100,
			NativeOrientation:     orientationOf(w, h),
			CurrentOrientation:    orientationOf(w, h),
		}
		if edid, err := fs.ReadFile(p.fsys, path.Join(dir, "edid")); err == nil && len(edid) > 22 {
			if wcm, hcm := float64(edid[21]), float64(edid[22]); wcm > 0 && hcm > 0 {
				m.RawDPIX = float64(w) / (wcm / cmPerInch)
				m.RawDPIY = float64(h) / (hcm / cmPerInch)
				m.LogicalDPI = 96
			}
		}
		return m, nil
	}
	return deviceinfo.DisplayMetrics{}, deviceinfo.ErrUnsupported
}

// Orientation derives rotation from the connected display's mode.
func (p *Provider) Orientation(ctx context.Context) (deviceinfo.Orientation, error) {
	m, err := p.DisplayMetrics(ctx)
	if err != nil {
		return deviceinfo.OrientationNone, err
	}
	return m.CurrentOrientation, nil
}

func orientationOf(w, h int) deviceinfo.Orientation {
	if w > h {
		return deviceinfo.OrientationLandscapeLeft
	}
	return deviceinfo.OrientationPortrait
}
