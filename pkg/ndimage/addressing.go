package ndimage

import (
	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/region"
)

// computeStrides derives row-major strides from a buffer size: stride[0] = 1
// and stride[i] = stride[i-1] * size[i-1].
func computeStrides(size region.Coord) region.Coord {
	s := size.Array()
	var out [region.MaxDimension]int
	acc := 1
	for i := 0; i < size.Dim(); i++ {
		out[i] = acc
		acc *= s[i]
	}
	return region.NewCoord(out[:size.Dim()]...)
}

// ComputeOffset maps idx to a linear offset into the buffer. There is no
// bounds checking: an index outside the buffered region yields an offset
// outside the buffer.
func (img *Image[T]) ComputeOffset(idx region.Coord) int {
	i := idx.Array()
	o := img.buffered.Index.Array()
	s := img.strides.Array()
	off := 0
	for d := 0; d < img.strides.Dim(); d++ {
		off += (i[d] - o[d]) * s[d]
	}
	return off
}

// ComputeIndex is the inverse of ComputeOffset, dividing by the strides from
// the slowest axis down and adding back the buffered origin.
// It panics with a RangeError when offset is not inside the buffer, which
// includes every offset of an empty buffer.
func (img *Image[T]) ComputeIndex(offset int) region.Coord {
	if n := img.buffered.NumberOfPixels(); offset < 0 || offset >= n {
		panic(imgerr.Range("ndimage.ComputeIndex", "offset %d outside buffer of %d pixels", offset, n))
	}
	dim := img.strides.Dim()
	o := img.buffered.Index.Array()
	s := img.strides.Array()
	var out [region.MaxDimension]int
	for d := dim - 1; d > 0; d-- {
		out[d] = offset/s[d] + o[d]
		offset %= s[d]
	}
	if dim > 0 {
		out[0] = offset + o[0]
	}
	return region.NewCoord(out[:dim]...)
}

// OffsetTable is the precomputed list of linear offset deltas for every
// position of a neighborhood of a given radius, relative to its center, in
// row-major order with axis 0 fastest. It is read-only once built and is
// shared by every iterator over the same buffer geometry.
type OffsetTable struct {
	radius     region.Coord
	size       region.Coord
	offsets    []int
	generation uint64
}

// OffsetTable returns the neighborhood offset table for radius, building it
// on first use for the current allocation. Safe for concurrent use; the
// table is fully built before any caller receives it.
func (img *Image[T]) OffsetTable(radius region.Coord) (*OffsetTable, error) {
	if radius.Dim() != img.Dim() {
		return nil, imgerr.InvalidArgument("ndimage.OffsetTable", "radius dimension %d does not match image dimension %d", radius.Dim(), img.Dim())
	}
	if !radius.NonNegative() {
		return nil, imgerr.InvalidArgument("ndimage.OffsetTable", "negative radius %s", radius)
	}

	img.mu.Lock()
	defer img.mu.Unlock()

	if !img.IsAllocated() {
		return nil, imgerr.InvalidArgument("ndimage.OffsetTable", "image %s is not allocated", img.id)
	}
	if t, ok := img.tables[radius]; ok {
		return t, nil
	}
	t := newOffsetTable(radius, img.strides, img.generation)
	if img.tables == nil {
		img.tables = make(map[region.Coord]*OffsetTable)
	}
	img.tables[radius] = t
	return t, nil
}

func newOffsetTable(radius, strides region.Coord, generation uint64) *OffsetTable {
	dim := radius.Dim()
	r := radius.Array()
	st := strides.Array()

	var sz [region.MaxDimension]int
	for d := 0; d < dim; d++ {
		sz[d] = 2*r[d] + 1
	}
	size := region.NewCoord(sz[:dim]...)

	n := size.Product()
	offsets := make([]int, n)
	for k := 0; k < n; k++ {
		rem := k
		off := 0
		for d := 0; d < dim; d++ {
			rel := rem%sz[d] - r[d]
			rem /= sz[d]
			off += rel * st[d]
		}
		offsets[k] = off
	}
	return &OffsetTable{radius: radius, size: size, offsets: offsets, generation: generation}
}

// Len returns the number of neighborhood positions, prod(2r+1).
func (t *OffsetTable) Len() int { return len(t.offsets) }

// At returns the linear offset delta of neighbor n.
func (t *OffsetTable) At(n int) int { return t.offsets[n] }

// Offsets returns the table. Callers must not modify it.
func (t *OffsetTable) Offsets() []int { return t.offsets }

// Radius returns the radius the table was built for.
func (t *OffsetTable) Radius() region.Coord { return t.radius }

// Size returns the neighborhood extent per axis, 2r+1.
func (t *OffsetTable) Size() region.Coord { return t.size }

// Center returns the neighbor number of the center position.
func (t *OffsetTable) Center() int { return len(t.offsets) / 2 }

// Generation returns the buffer generation the table was built against.
func (t *OffsetTable) Generation() uint64 { return t.generation }

// Relative returns the offset of neighbor n from the center as a coordinate.
func (t *OffsetTable) Relative(n int) region.Coord {
	dim := t.size.Dim()
	sz := t.size.Array()
	r := t.radius.Array()
	var out [region.MaxDimension]int
	for d := 0; d < dim; d++ {
		out[d] = n%sz[d] - r[d]
		n /= sz[d]
	}
	return region.NewCoord(out[:dim]...)
}

// NeighborIndex is the inverse of Relative: the neighbor number of the
// given relative offset, or -1 when it lies outside the radius.
func (t *OffsetTable) NeighborIndex(rel region.Coord) int {
	if rel.Dim() != t.size.Dim() {
		return -1
	}
	sz := t.size.Array()
	r := t.radius.Array()
	v := rel.Array()
	n := 0
	stride := 1
	for d := 0; d < rel.Dim(); d++ {
		p := v[d] + r[d]
		if p < 0 || p >= sz[d] {
			return -1
		}
		n += p * stride
		stride *= sz[d]
	}
	return n
}
