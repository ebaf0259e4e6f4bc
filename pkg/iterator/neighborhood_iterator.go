package iterator

import (
	"ndvoxel/pkg/boundary"
	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// NeighborhoodIterator is a RegionIterator that also exposes the window of
// radius r around the current center. Neighbors are numbered 0..Size()-1 in
// row-major order, axis 0 fastest; the center is Size()/2.
//
// Reads of neighbors outside the buffered region are delegated to the
// boundary condition, Constant(zero) unless overridden. When the iteration
// region padded by the radius lies inside the buffer, which is always the
// case for the interior face of faces.ComputeFaces, no containment test is
// done at all.
type NeighborhoodIterator[T any] struct {
	RegionIterator[T]

	table   *ndimage.OffsetTable
	offsets []int
	radius  [region.MaxDimension]int

	cond       boundary.Condition[T]
	overridden bool
	advanced   bool

	// needCheck is false when no neighbor of any center can leave the buffer
	needCheck bool

	bufLo [region.MaxDimension]int
	bufHi [region.MaxDimension]int

	// centers with innerLo <= pos < innerHi on an axis have every neighbor
	// inside the buffer along that axis
	innerLo [region.MaxDimension]int
	innerHi [region.MaxDimension]int

	// upperIn caches containment of axes 1..dim-1, which only changes on carry
	upperIn  bool
	inBounds bool
}

// NewNeighborhoodIterator returns an iterator with the given radius over r,
// which must lie inside the buffered region of img. A zero radius gives a
// neighborhood made of the center pixel only.
func NewNeighborhoodIterator[T any](radius region.Coord, img *ndimage.Image[T], r region.Region) (*NeighborhoodIterator[T], error) {
	it := &NeighborhoodIterator[T]{}
	if err := it.RegionIterator.init(img, r); err != nil {
		return nil, err
	}
	table, err := img.OffsetTable(radius)
	if err != nil {
		return nil, err
	}
	it.table = table
	it.offsets = table.Offsets()
	it.radius = radius.Array()
	it.cond = boundary.Default[T]()

	buf := img.BufferedRegion()
	it.bufLo = buf.Index.Array()
	bufSize := buf.Size.Array()
	for d := 0; d < it.dim; d++ {
		it.bufHi[d] = it.bufLo[d] + bufSize[d]
		it.innerLo[d] = it.bufLo[d] + it.radius[d]
		it.innerHi[d] = it.bufHi[d] - it.radius[d]
	}
	it.needCheck = !buf.IsInsideRegion(r.PadByRadius(radius)) && !r.IsEmpty()
	return it, nil
}

// OverrideBoundaryCondition replaces the boundary condition. It must be
// called before the first Next following GoToBegin.
func (it *NeighborhoodIterator[T]) OverrideBoundaryCondition(c boundary.Condition[T]) error {
	if c == nil {
		return imgerr.InvalidArgument("iterator.OverrideBoundaryCondition", "nil boundary condition")
	}
	if it.advanced {
		return imgerr.InvalidArgument("iterator.OverrideBoundaryCondition", "iteration already advanced")
	}
	it.cond = c
	it.overridden = true
	return nil
}

// ResetBoundaryCondition restores the default Constant(zero) condition.
func (it *NeighborhoodIterator[T]) ResetBoundaryCondition() {
	it.cond = boundary.Default[T]()
	it.overridden = false
}

// BoundaryCondition returns the active boundary condition.
func (it *NeighborhoodIterator[T]) BoundaryCondition() boundary.Condition[T] { return it.cond }

// NeedsBoundaryCondition reports whether any neighbor visited by this
// iterator can fall outside the buffer.
func (it *NeighborhoodIterator[T]) NeedsBoundaryCondition() bool { return it.needCheck }

// GoToBegin positions the iterator at the region origin.
func (it *NeighborhoodIterator[T]) GoToBegin() {
	it.RegionIterator.GoToBegin()
	it.advanced = false
	if it.state == positioned {
		it.updateUpper()
		it.updateInBounds()
	}
}

// Next advances the center to the following index.
func (it *NeighborhoodIterator[T]) Next() {
	if it.state != positioned {
		return
	}
	it.advanced = true
	carried := it.RegionIterator.advance()
	if it.state != positioned || !it.needCheck {
		return
	}
	if carried {
		it.updateUpper()
	}
	it.updateInBounds()
}

func (it *NeighborhoodIterator[T]) updateUpper() {
	it.upperIn = true
	for d := 1; d < it.dim; d++ {
		if it.pos[d] < it.innerLo[d] || it.pos[d] >= it.innerHi[d] {
			it.upperIn = false
			return
		}
	}
}

func (it *NeighborhoodIterator[T]) updateInBounds() {
	if !it.needCheck {
		it.inBounds = true
		return
	}
	it.inBounds = it.upperIn && it.pos[0] >= it.innerLo[0] && it.pos[0] < it.innerHi[0]
}

// InBounds reports whether the whole neighborhood of the current center lies
// inside the buffer.
func (it *NeighborhoodIterator[T]) InBounds() bool { return it.inBounds }

// Size returns the number of neighbors, prod(2r+1).
func (it *NeighborhoodIterator[T]) Size() int { return len(it.offsets) }

// CenterNeighbor returns the neighbor number of the center pixel.
func (it *NeighborhoodIterator[T]) CenterNeighbor() int { return len(it.offsets) / 2 }

// Radius returns the neighborhood radius.
func (it *NeighborhoodIterator[T]) Radius() region.Coord { return it.table.Radius() }

// NeighborOffset returns the position of neighbor n relative to the center.
func (it *NeighborhoodIterator[T]) NeighborOffset(n int) region.Coord {
	it.mustBeNeighbor("iterator.NeighborOffset", n)
	return it.table.Relative(n)
}

// NeighborIndexOf returns the neighbor number of a relative offset, or -1.
func (it *NeighborhoodIterator[T]) NeighborIndexOf(rel region.Coord) int {
	return it.table.NeighborIndex(rel)
}

// Stride returns the neighbor-number step of a unit move along axis.
func (it *NeighborhoodIterator[T]) Stride(axis int) int {
	s := 1
	for d := 0; d < axis; d++ {
		s *= 2*it.radius[d] + 1
	}
	return s
}

// GetCenterPixel returns the value at the current center.
func (it *NeighborhoodIterator[T]) GetCenterPixel() T { return it.Get() }

// SetCenterPixel stores v at the current center.
func (it *NeighborhoodIterator[T]) SetCenterPixel(v T) { it.Set(v) }

// GetPixel returns neighbor n, synthesized by the boundary condition when it
// falls outside the buffered region.
func (it *NeighborhoodIterator[T]) GetPixel(n int) T {
	it.mustBePositioned("iterator.GetPixel")
	it.mustBeNeighbor("iterator.GetPixel", n)
	if it.inBounds {
		return it.pix[it.offset+it.offsets[n]]
	}
	v, _ := it.getChecked(n)
	return v
}

// GetPixelInside is GetPixel that also reports whether the neighbor lies in
// the buffer. When it returns false the value was synthesized; callers that
// want to skip boundary pixels rather than substitute them test the flag.
func (it *NeighborhoodIterator[T]) GetPixelInside(n int) (T, bool) {
	it.mustBePositioned("iterator.GetPixelInside")
	it.mustBeNeighbor("iterator.GetPixelInside", n)
	if it.inBounds {
		return it.pix[it.offset+it.offsets[n]], true
	}
	return it.getChecked(n)
}

// mustBeNeighbor panics with a RangeError unless 0 <= n < Size().
func (it *NeighborhoodIterator[T]) mustBeNeighbor(op string, n int) {
	if n < 0 || n >= len(it.offsets) {
		panic(imgerr.Range(op, "neighbor %d out of range [0, %d)", n, len(it.offsets)))
	}
}

func (it *NeighborhoodIterator[T]) getChecked(n int) (T, bool) {
	abs, inside := it.neighborIndex(n)
	if inside {
		return it.pix[it.offset+it.offsets[n]], true
	}
	return it.cond.EvaluateAtIndex(region.NewCoord(abs[:it.dim]...), it.img), false
}

func (it *NeighborhoodIterator[T]) neighborIndex(n int) ([region.MaxDimension]int, bool) {
	abs := it.table.Relative(n).Array()
	inside := true
	for d := 0; d < it.dim; d++ {
		abs[d] += it.pos[d]
		if abs[d] < it.bufLo[d] || abs[d] >= it.bufHi[d] {
			inside = false
		}
	}
	return abs, inside
}

// SetPixel stores v at neighbor n. Writing a neighbor outside the buffered
// region fails with a RangeError since there is no pixel to write.
func (it *NeighborhoodIterator[T]) SetPixel(n int, v T) error {
	it.mustBePositioned("iterator.SetPixel")
	if n < 0 || n >= len(it.offsets) {
		return imgerr.Range("iterator.SetPixel", "neighbor %d out of range [0, %d)", n, len(it.offsets))
	}
	if !it.inBounds {
		if abs, inside := it.neighborIndex(n); !inside {
			return imgerr.Range("iterator.SetPixel", "neighbor %d at %s is outside buffered region %s",
				n, region.NewCoord(abs[:it.dim]...), it.img.BufferedRegion())
		}
	}
	it.pix[it.offset+it.offsets[n]] = v
	return nil
}

// Neighborhood copies every neighbor value into dst, growing it if needed,
// and returns it.
func (it *NeighborhoodIterator[T]) Neighborhood(dst []T) []T {
	it.mustBePositioned("iterator.Neighborhood")
	n := len(it.offsets)
	if cap(dst) < n {
		dst = make([]T, n)
	}
	dst = dst[:n]
	if it.inBounds {
		for k, o := range it.offsets {
			dst[k] = it.pix[it.offset+o]
		}
		return dst
	}
	for k := range it.offsets {
		dst[k], _ = it.getChecked(k)
	}
	return dst
}
