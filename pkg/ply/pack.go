package ply

import (
	"encoding/binary"
	"math"
)

// Field packing on raw byte slices. Callers size the slice; nothing here
// performs I/O or bounds checks beyond the runtime's.

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func putUint32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

func float32At(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func uint32At(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// ColorToByte quantizes a [0,1] color channel to 8 bits.
// Out-of-range input is clamped so 1.5 stays 255 and -0.2 stays 0.
func ColorToByte(f float32) uint8 {
	if f != f || f <= 0 { // NaN or negative
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(float64(f) * 255))
}

// ColorToFloat expands an 8-bit channel back to [0,1].
func ColorToFloat(b uint8) float32 {
	return float32(b) / 255
}
