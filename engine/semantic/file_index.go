package semantic

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/viant/vec/search"
)

// FileIndex is an exact cosine index over recipe vectors, loaded once from
// a prebuilt file. Scores are cosine similarities, highest first.
//
// File layout (little endian): dim uint32, n uint32, then n records of
// idLen uint32, id bytes, dim float32 values.
type FileIndex struct {
	ids  []string
	vecs [][]float32
	mags []float32
	dim  int
}

// LoadFile reads a prebuilt index.
func LoadFile(path string) (*FileIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("semantic: read index %s: %w", path, err)
	}
	idx := &FileIndex{}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("semantic: decode index %s: %w", path, err)
	}
	return idx, nil
}

// Build loads ids and vectors and caches magnitudes. Ids must be unique and
// all vectors must share one dimension.
func (x *FileIndex) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("semantic: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		x.ids, x.vecs, x.mags, x.dim = nil, nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	seen := make(map[string]struct{}, len(ids))
	mags := make([]float32, len(vectors))
	for j, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, j, len(v), dim)
		}
		if _, dup := seen[ids[j]]; dup {
			return fmt.Errorf("semantic: duplicate id %q", ids[j])
		}
		seen[ids[j]] = struct{}{}
		mags[j] = search.Float32s(v).Magnitude()
	}
	x.ids = append([]string(nil), ids...)
	x.vecs = append([][]float32(nil), vectors...)
	x.mags = mags
	x.dim = dim
	return nil
}

// Len returns the number of stored vectors.
func (x *FileIndex) Len() int { return len(x.ids) }

// Dim returns the vector dimension, 0 for an empty index.
func (x *FileIndex) Dim() int { return x.dim }

// IDs returns the stored recipe ids in file order.
func (x *FileIndex) IDs() []string { return append([]string(nil), x.ids...) }

// Search returns up to k hits by descending cosine similarity. Ties keep
// file order. k <= 0 or k larger than the index returns every vector.
// Stored zero vectors never match.
func (x *FileIndex) Search(_ context.Context, query []float32, k int) ([]Hit, error) {
	if x.dim == 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	q := search.Float32s(query)
	if q.Magnitude() == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(x.vecs))
	for j, v := range x.vecs {
		if x.mags[j] == 0 {
			continue
		}
		s := 1 - q.CosineDistance(v)
		if math.IsNaN(float64(s)) {
			continue
		}
		hits = append(hits, Hit{ID: x.ids[j], Score: s})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if k <= 0 || k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// MarshalBinary encodes the index in the file layout.
func (x *FileIndex) MarshalBinary() ([]byte, error) {
	size := 8
	for _, id := range x.ids {
		size += 4 + len(id) + 4*x.dim
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(x.dim))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(x.ids)))
	for j, id := range x.ids {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(id)))
		out = append(out, id...)
		for _, f := range x.vecs[j] {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	return out, nil
}

var errTruncated = errors.New("semantic: truncated index")

// UnmarshalBinary decodes the file layout and rebuilds the index.
func (x *FileIndex) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errTruncated
	}
	off := 0
	u32 := func() (uint32, bool) {
		if off+4 > len(data) {
			return 0, false
		}
		v := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return v, true
	}
	dim32, _ := u32()
	n32, _ := u32()
	dim, n := int(dim32), int(n32)
	if n > 0 && dim == 0 {
		return fmt.Errorf("semantic: index declares %d vectors of dimension 0", n)
	}
	// Each record needs at least its length prefix and vector.
	if rec := 4 + 4*uint64(dim); n > 0 && uint64(n) > uint64(len(data)-off)/rec {
		return errTruncated
	}

	ids := make([]string, 0, min(n, len(data)/4))
	vecs := make([][]float32, 0, cap(ids))
	for j := 0; j < n; j++ {
		idLen, ok := u32()
		if !ok || off+int(idLen) > len(data) {
			return errTruncated
		}
		ids = append(ids, string(data[off:off+int(idLen)]))
		off += int(idLen)
		vec := make([]float32, dim)
		for d := range vec {
			bits, ok := u32()
			if !ok {
				return errTruncated
			}
			vec[d] = math.Float32frombits(bits)
		}
		vecs = append(vecs, vec)
	}
	if off != len(data) {
		return fmt.Errorf("semantic: %d trailing bytes in index", len(data)-off)
	}
	return x.Build(ids, vecs)
}
