// Package iterator walks image buffers of any dimension: plain region
// iteration in row-major order, random non-repeating sampling and windowed
// neighborhood access with boundary condition substitution.
//
// Iterators are cursors over a buffer they do not own. They are not safe for
// concurrent use; give each worker its own iterators over disjoint regions.
package iterator

import (
	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

type state uint8

const (
	uninitialized state = iota
	positioned
	atEnd
)

func (s state) String() string {
	switch s {
	case uninitialized:
		return "Uninitialized"
	case positioned:
		return "Positioned"
	case atEnd:
		return "AtEnd"
	}
	return "Unknown"
}

// RegionIterator visits every index of a region exactly once, in row-major
// order with axis 0 fastest.
//
// Within a run along axis 0 the iterator only bumps the linear offset; the
// carry into higher axes happens once per run.
type RegionIterator[T any] struct {
	img *ndimage.Image[T]
	pix []T

	region region.Region
	dim    int
	start  [region.MaxDimension]int
	end    [region.MaxDimension]int

	bufOrigin [region.MaxDimension]int
	strides   [region.MaxDimension]int

	pos     [region.MaxDimension]int
	offset  int
	spanEnd int
	state   state

	generation uint64
}

// NewRegionIterator returns an iterator over r, which must lie inside the
// buffered region of img. The iterator starts Uninitialized; call GoToBegin.
func NewRegionIterator[T any](img *ndimage.Image[T], r region.Region) (*RegionIterator[T], error) {
	it := &RegionIterator[T]{}
	if err := it.init(img, r); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *RegionIterator[T]) init(img *ndimage.Image[T], r region.Region) error {
	if img == nil {
		return imgerr.InvalidArgument("iterator.New", "nil image")
	}
	if !img.IsAllocated() {
		return imgerr.InvalidArgument("iterator.New", "image %s is not allocated", img.ID())
	}
	if r.Dim() != img.Dim() {
		return imgerr.InvalidArgument("iterator.New", "region dimension %d does not match image dimension %d", r.Dim(), img.Dim())
	}
	if !img.BufferedRegion().IsInsideRegion(r) {
		return imgerr.Range("iterator.New", "%s is outside buffered region %s", r, img.BufferedRegion())
	}

	it.img = img
	it.pix = img.BufferPointer()
	it.region = r
	it.dim = r.Dim()
	it.start = r.Index.Array()
	size := r.Size.Array()
	for d := 0; d < it.dim; d++ {
		it.end[d] = it.start[d] + size[d]
	}
	it.bufOrigin = img.BufferedRegion().Index.Array()
	it.strides = img.Strides().Array()
	it.generation = img.Generation()
	it.state = uninitialized
	return nil
}

// GoToBegin positions the iterator at the region origin. It may be called in
// any state, which restarts the iteration. For an empty region the iterator
// goes straight to AtEnd.
func (it *RegionIterator[T]) GoToBegin() {
	if it.img.Generation() != it.generation {
		panic(imgerr.Range("iterator.GoToBegin", "buffer of image %s was reallocated", it.img.ID()))
	}
	if it.region.IsEmpty() {
		it.state = atEnd
		return
	}
	it.pos = it.start
	it.offset = it.linearOffset()
	it.spanEnd = it.offset + it.end[0] - it.start[0]
	it.state = positioned
}

// Next advances to the following index, carrying into higher axes when axis
// 0 rolls over. At the end of the region the iterator becomes AtEnd. Calling
// Next when not positioned does nothing.
func (it *RegionIterator[T]) Next() {
	it.advance()
}

// advance reports whether a carry into a higher axis happened.
func (it *RegionIterator[T]) advance() bool {
	if it.state != positioned {
		return false
	}
	it.offset++
	it.pos[0]++
	if it.offset < it.spanEnd {
		return false
	}
	it.pos[0] = it.start[0]
	for d := 1; d < it.dim; d++ {
		it.pos[d]++
		if it.pos[d] < it.end[d] {
			it.offset = it.linearOffset()
			it.spanEnd = it.offset + it.end[0] - it.start[0]
			return true
		}
		it.pos[d] = it.start[d]
	}
	it.state = atEnd
	return true
}

func (it *RegionIterator[T]) linearOffset() int {
	off := 0
	for d := 0; d < it.dim; d++ {
		off += (it.pos[d] - it.bufOrigin[d]) * it.strides[d]
	}
	return off
}

// IsAtEnd reports whether every index has been visited.
func (it *RegionIterator[T]) IsAtEnd() bool { return it.state == atEnd }

// Index returns the current index.
func (it *RegionIterator[T]) Index() region.Coord {
	return region.NewCoord(it.pos[:it.dim]...)
}

// Offset returns the linear buffer offset of the current index.
func (it *RegionIterator[T]) Offset() int { return it.offset }

// Region returns the region being iterated.
func (it *RegionIterator[T]) Region() region.Region { return it.region }

// Image returns the image being iterated.
func (it *RegionIterator[T]) Image() *ndimage.Image[T] { return it.img }

// Get returns the value at the current index. It panics with a RangeError
// unless the iterator is positioned.
func (it *RegionIterator[T]) Get() T {
	it.mustBePositioned("iterator.Get")
	return it.pix[it.offset]
}

// Set stores v at the current index. It panics with a RangeError unless the
// iterator is positioned.
func (it *RegionIterator[T]) Set(v T) {
	it.mustBePositioned("iterator.Set")
	it.pix[it.offset] = v
}

func (it *RegionIterator[T]) mustBePositioned(op string) {
	if it.state != positioned {
		panic(imgerr.Range(op, "iterator is %s", it.state))
	}
}
