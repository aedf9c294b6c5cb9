package semantic

import "github.com/viant/vec/search"

// Normalize returns v scaled to unit length. A zero vector is returned as a
// copy, unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	m := search.Float32s(v).Magnitude()
	if m == 0 {
		return out
	}
	for i := range out {
		out[i] /= m
	}
	return out
}
