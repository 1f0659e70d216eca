package utils

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// Float32sToBytes encodes s as little-endian IEEE 754 values.
func Float32sToBytes(s []float32) []byte {
	out := make([]byte, len(s)*float32Size)
	PutFloat32s(out, s)
	return out
}

// PutFloat32s writes s into dst, which must hold at least len(s)*4 bytes.
func PutFloat32s(dst []byte, s []float32) {
	for i, v := range s {
		binary.LittleEndian.PutUint32(dst[i*float32Size:], math.Float32bits(v))
	}
}

// BytesToFloat32s decodes a little-endian float32 slice. The length of b must be a multiple of 4.
func BytesToFloat32s(b []byte) ([]float32, error) {
	if len(b)%float32Size != 0 {
		return nil, fmt.Errorf("invalid float32 payload length %d", len(b))
	}
	out := make([]float32, len(b)/float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*float32Size:]))
	}
	return out, nil
}
