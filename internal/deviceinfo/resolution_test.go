package deviceinfo

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestClassifyResolution(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		want          Resolution
	}{
		{"wvga", 480, 500, ResolutionWVGA},
		{"qhd", 540, 1000, ResolutionQHD},
		{"hd720 narrow", 700, 1400, ResolutionHD720},
		{"wxga wide", 900, 1400, ResolutionWXGA},
		{"1920 is hd1080", 1080, 1920, ResolutionHD1080},
		{"1920 narrow is still hd1080", 700, 1920, ResolutionHD1080},
		{"above 1920", 1440, 2560, ResolutionHD1080},
		{"boundary 960 is qhd", 540, 960, ResolutionQHD},
		{"boundary 1280 width 768 is wxga", 768, 1280, ResolutionWXGA},
		{"boundary 1280 width 767 is hd720", 767, 1280, ResolutionHD720},
		{"zero height", 480, 0, ResolutionUnknown},
		{"negative width", -1, 800, ResolutionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyResolution(tt.width, tt.height); got != tt.want {
				t.Errorf("ClassifyResolution(%v, %v) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestResolutionJSON(t *testing.T) {
	data, err := json.Marshal(ResolutionQHD)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"qHD"` {
		t.Errorf("Marshal() = %s, want \"qHD\"", data)
	}

	var r Resolution
	if err := json.Unmarshal([]byte(`"HD1080"`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r != ResolutionHD1080 {
		t.Errorf("Unmarshal() = %v, want HD1080", r)
	}
	if err := json.Unmarshal([]byte(`"bogus"`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r != ResolutionUnknown {
		t.Errorf("Unmarshal(bogus) = %v, want Unknown", r)
	}
}

func TestDiagonalInches(t *testing.T) {
	tests := []struct {
		name       string
		size       Size
		dpiX, dpiY float64
		want       float64
	}{
		{"lumia 920", Size{768, 1280}, 332, 332, 4.5},
		{"3-4-5", Size{300, 400}, 100, 100, 5},
		{"unknown x dpi", Size{768, 1280}, 0, 332, 0},
		{"unknown y dpi", Size{768, 1280}, 332, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiagonalInches(tt.size, tt.dpiX, tt.dpiY); got != tt.want {
				t.Errorf("DiagonalInches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortResolutions(t *testing.T) {
	in := []Size{{640, 480}, {1920, 1080}, {640, 480}, {1280, 720}}
	want := []Size{{1920, 1080}, {1280, 720}, {640, 480}}

	got := SortResolutions(in)
	if !slices.Equal(got, want) {
		t.Errorf("SortResolutions() = %v, want %v", got, want)
	}
	if in[0] != (Size{640, 480}) || len(in) != 4 {
		t.Errorf("SortResolutions() modified its input: %v", in)
	}
}

func TestSortResolutionsEqualAreaKeepsOrder(t *testing.T) {
	in := []Size{{100, 400}, {200, 200}, {400, 100}}
	got := SortResolutions(in)
	if !slices.Equal(got, in) {
		t.Errorf("SortResolutions() = %v, want discovery order %v", got, in)
	}
}

func TestTransformBytes(t *testing.T) {
	tests := []struct {
		name     string
		bytes    uint64
		unit     UnitPrefix
		decimals int
		want     float64
	}{
		{"one kilo", 1024, Kilo, 0, 1},
		{"mega rounded", 1572864, Mega, 1, 1.5},
		{"giga two places", 3 << 29, Giga, 2, 1.5},
		{"round down", 1100, Kilo, 0, 1},
		{"unrounded", 1536, Kilo, -1, 1.5},
		{"unknown unit", 1024, UnitPrefix(9), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransformBytes(tt.bytes, tt.unit, tt.decimals); got != tt.want {
				t.Errorf("TransformBytes(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#1BA1E2")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	if c != (Color{A: 0xFF, R: 0x1B, G: 0xA1, B: 0xE2}) {
		t.Errorf("ParseColor() = %+v", c)
	}
	if c.Hex() != "#FF1BA1E2" {
		t.Errorf("Hex() = %s, want #FF1BA1E2", c.Hex())
	}
	if _, err := ParseColor("#12"); err == nil {
		t.Error("ParseColor(#12) should fail")
	}
}
