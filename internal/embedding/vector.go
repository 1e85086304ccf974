package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Normalize scales v to unit length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Pack encodes vectors of equal dimension as little-endian float32s.
func Pack(vectors [][]float32) []byte {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	buf := make([]byte, 0, len(vectors)*dim*4)
	for _, v := range vectors {
		for _, x := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
		}
	}
	return buf
}

// Unpack decodes a buffer written by Pack into rows of dim values.
func Unpack(buf []byte, dim int) ([][]float32, error) {
	if dim <= 0 {
		if len(buf) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if len(buf)%(dim*4) != 0 {
		return nil, fmt.Errorf("buffer of %d bytes is not a multiple of dimension %d", len(buf), dim)
	}
	rows := len(buf) / (dim * 4)
	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		row := make([]float32, dim)
		for c := 0; c < dim; c++ {
			off := (r*dim + c) * 4
			row[c] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		}
		out[r] = row
	}
	return out, nil
}
