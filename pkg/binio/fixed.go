package binio

import (
	"errors"
	"fmt"
	"math"
)

// ErrFixedPointRange is returned when a value does not fit its fixed-point storage.
var ErrFixedPointRange = errors.New("fixed-point value out of range")

// Fixed-point scales.
const (
	UVScale     = 4096.0
	HeightScale = 16.0
)

func toFixed(v, scale, lo, hi float64) (int64, error) {
	raw := math.Round(v * scale)
	if math.IsNaN(raw) || raw < lo || raw > hi {
		return 0, fmt.Errorf("%w: %g (scale %g)", ErrFixedPointRange, v, scale)
	}
	return int64(raw), nil
}

// EncodeUV converts a texture coordinate to its unsigned 16-bit form.
func EncodeUV(x float64) (uint16, error) {
	raw, err := toFixed(x, UVScale, 0, math.MaxUint16)
	return uint16(raw), err
}

// DecodeUV converts a stored texture coordinate back to a float.
func DecodeUV(raw uint16) float64 {
	return float64(raw) / UVScale
}

// EncodeHeight converts a tile height to its unsigned 16-bit form.
func EncodeHeight(v float64) (uint16, error) {
	raw, err := toFixed(v, HeightScale, 0, math.MaxUint16)
	return uint16(raw), err
}

// DecodeHeight converts a stored tile height back to a float.
func DecodeHeight(raw uint16) float64 {
	return float64(raw) / HeightScale
}

// EncodeSample converts a collision height to its signed 16-bit form.
func EncodeSample(v float64) (int16, error) {
	raw, err := toFixed(v, HeightScale, math.MinInt16, math.MaxInt16)
	return int16(raw), err
}

// DecodeSample converts a stored collision height back to a float.
func DecodeSample(raw int16) float64 {
	return float64(raw) / HeightScale
}
