package deviceinfo

import "math"

// UnitPrefix is a binary size prefix.
type UnitPrefix int

// Binary prefixes.
const (
	Kilo UnitPrefix = iota
	Mega
	Giga
)

// TransformBytes converts bytes to the given binary unit rounded to
// decimals places. A negative decimals leaves the value unrounded; an
// unknown unit yields zero.
func TransformBytes(bytes uint64, unit UnitPrefix, decimals int) float64 {
	var denominator float64
	switch unit {
	case Kilo:
		denominator = 1 << 10
	case Mega:
		denominator = 1 << 20
	case Giga:
		denominator = 1 << 30
	default:
		return 0
	}

	v := float64(bytes) / denominator
	if decimals < 0 {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
