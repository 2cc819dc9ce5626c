package deviceinfo

import (
	"encoding/json"
	"math"
	"slices"
)

// Resolution is a screen resolution class.
type Resolution int

// Resolution classes, smallest first.
const (
	ResolutionUnknown Resolution = iota
	ResolutionWVGA               // 480x800
	ResolutionQHD                // 540x960
	ResolutionHD720              // 720x1280
	ResolutionWXGA               // 768x1280
	ResolutionHD1080             // 1080x1920
)

var resolutionNames = map[Resolution]string{
	ResolutionUnknown: "Unknown",
	ResolutionWVGA:    "WVGA",
	ResolutionQHD:     "qHD",
	ResolutionHD720:   "HD720",
	ResolutionWXGA:    "WXGA",
	ResolutionHD1080:  "HD1080",
}

func (r Resolution) String() string {
	if name, ok := resolutionNames[r]; ok {
		return name
	}
	return "Unknown"
}

// MarshalJSON encodes the class name.
func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts a class name; anything else decodes to Unknown.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*r = ResolutionUnknown
	for k, v := range resolutionNames {
		if v == name {
			*r = k
		}
	}
	return nil
}

// ClassifyResolution maps portrait pixel dimensions to a class.
//
// Thresholds on height are checked in order: <960 WVGA, <1280 qHD,
// <1920 HD720 when width <768 else WXGA, and everything from 1920 up is
// HD1080 regardless of width. Non-positive dimensions are Unknown.
func ClassifyResolution(width, height float64) Resolution {
	switch {
	case width <= 0 || height <= 0:
		return ResolutionUnknown
	case height < 960:
		return ResolutionWVGA
	case height < 1280:
		return ResolutionQHD
	case height < 1920:
		if width < 768 {
			return ResolutionHD720
		}
		return ResolutionWXGA
	default:
		return ResolutionHD1080
	}
}

// DiagonalInches returns the physical diagonal rounded to one decimal,
// or zero when either DPI is unknown.
func DiagonalInches(size Size, dpiX, dpiY float64) float64 {
	if dpiX <= 0 || dpiY <= 0 {
		return 0
	}
	d := math.Hypot(float64(size.Width)/dpiX, float64(size.Height)/dpiY)
	return math.Round(d*10) / 10
}

// SortResolutions removes duplicates and orders sizes by descending area.
// Equal areas keep discovery order. The input is not modified.
func SortResolutions(sizes []Size) []Size {
	out := make([]Size, 0, len(sizes))
	seen := make(map[Size]bool, len(sizes))
	for _, s := range sizes {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b Size) int {
		switch {
		case a.Area() > b.Area():
			return -1
		case a.Area() < b.Area():
			return 1
		}
		return 0
	})
	return out
}
