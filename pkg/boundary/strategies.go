package boundary

import (
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// Constant returns a fixed value for every index outside the buffer.
type Constant[T any] struct {
	Value T
}

// NewConstant returns a Constant strategy with the given value.
func NewConstant[T any](value T) Constant[T] { return Constant[T]{Value: value} }

func (c Constant[T]) Kind() Kind { return KindConstant }

func (c Constant[T]) EvaluateAtIndex(idx region.Coord, img *ndimage.Image[T]) T {
	if img.BufferedRegion().IsInside(idx) {
		return img.BufferPointer()[img.ComputeOffset(idx)]
	}
	return c.Value
}

func (c Constant[T]) EvaluateToFill(r region.Region, img *ndimage.Image[T], dst []T) error {
	return fillByIndex(r, img, dst, func(idx region.Coord) T { return c.EvaluateAtIndex(idx, img) })
}

// RequiredInputRegion crops the request to the largest region; an empty
// intersection needs no input at all.
func (c Constant[T]) RequiredInputRegion(requested, largest region.Region) region.Region {
	if cropped, ok := requested.Crop(largest); ok {
		return cropped
	}
	return region.Region{Index: largest.Index, Size: region.Filled(largest.Dim(), 0)}
}

func (c Constant[T]) String() string { return describe[T](c) }

// ZeroFluxNeumann clamps each axis to the nearest buffered index, giving a
// zero first derivative across the boundary.
type ZeroFluxNeumann[T any] struct{}

func (ZeroFluxNeumann[T]) Kind() Kind { return KindZeroFluxNeumann }

func (z ZeroFluxNeumann[T]) EvaluateAtIndex(idx region.Coord, img *ndimage.Image[T]) T {
	return img.BufferPointer()[img.ComputeOffset(mapIndex(idx, img.BufferedRegion(), clamp))]
}

func (z ZeroFluxNeumann[T]) EvaluateToFill(r region.Region, img *ndimage.Image[T], dst []T) error {
	return fillByIndex(r, img, dst, func(idx region.Coord) T { return z.EvaluateAtIndex(idx, img) })
}

func (ZeroFluxNeumann[T]) RequiredInputRegion(requested, largest region.Region) region.Region {
	return nearestInside(requested, largest)
}

func (z ZeroFluxNeumann[T]) String() string { return describe[T](z) }

// Periodic wraps each axis modulo the buffered size.
type Periodic[T any] struct{}

func (Periodic[T]) Kind() Kind { return KindPeriodic }

func (p Periodic[T]) EvaluateAtIndex(idx region.Coord, img *ndimage.Image[T]) T {
	return img.BufferPointer()[img.ComputeOffset(mapIndex(idx, img.BufferedRegion(), wrap))]
}

func (p Periodic[T]) EvaluateToFill(r region.Region, img *ndimage.Image[T], dst []T) error {
	return fillByIndex(r, img, dst, func(idx region.Coord) T { return p.EvaluateAtIndex(idx, img) })
}

// RequiredInputRegion needs the whole extent on any axis where the request
// reaches outside the largest region, since values wrap from the far side.
func (Periodic[T]) RequiredInputRegion(requested, largest region.Region) region.Region {
	return wholeAxesWhenOutside(requested, largest)
}

func (p Periodic[T]) String() string { return describe[T](p) }

// Mirror reflects each axis at the buffer edge without repeating the edge
// pixel: for a row a b c d, index -1 maps to b and index 4 maps to c.
type Mirror[T any] struct{}

func (Mirror[T]) Kind() Kind { return KindMirror }

func (m Mirror[T]) EvaluateAtIndex(idx region.Coord, img *ndimage.Image[T]) T {
	return img.BufferPointer()[img.ComputeOffset(mapIndex(idx, img.BufferedRegion(), reflect))]
}

func (m Mirror[T]) EvaluateToFill(r region.Region, img *ndimage.Image[T], dst []T) error {
	return fillByIndex(r, img, dst, func(idx region.Coord) T { return m.EvaluateAtIndex(idx, img) })
}

func (Mirror[T]) RequiredInputRegion(requested, largest region.Region) region.Region {
	return wholeAxesWhenOutside(requested, largest)
}

func (m Mirror[T]) String() string { return describe[T](m) }

func clamp(v, lo, n int) int {
	if v < lo {
		return lo
	}
	if v >= lo+n {
		return lo + n - 1
	}
	return v
}

func wrap(v, lo, n int) int {
	p := (v - lo) % n
	if p < 0 {
		p += n
	}
	return lo + p
}

func reflect(v, lo, n int) int {
	if n == 1 {
		return lo
	}
	period := 2 * (n - 1)
	p := (v - lo) % period
	if p < 0 {
		p += period
	}
	if p >= n {
		p = period - p
	}
	return lo + p
}

// nearestInside crops requested to largest. When they do not overlap, the
// result is the face of largest closest to requested on each axis.
func nearestInside(requested, largest region.Region) region.Region {
	if cropped, ok := requested.Crop(largest); ok {
		return cropped
	}
	idx := requested.Index.Array()
	size := requested.Size.Array()
	lo := largest.Index.Array()
	ln := largest.Size.Array()
	dim := requested.Dim()
	var outIdx, outSize [region.MaxDimension]int
	for d := 0; d < dim; d++ {
		a := max(idx[d], lo[d])
		b := min(idx[d]+size[d], lo[d]+ln[d])
		if a >= b {
			if idx[d] >= lo[d]+ln[d] {
				a = lo[d] + ln[d] - 1
			} else {
				a = lo[d]
			}
			b = a + 1
		}
		outIdx[d], outSize[d] = a, b-a
	}
	return region.MakeRegion(region.NewCoord(outIdx[:dim]...), region.NewCoord(outSize[:dim]...))
}

func wholeAxesWhenOutside(requested, largest region.Region) region.Region {
	idx := requested.Index.Array()
	size := requested.Size.Array()
	lo := largest.Index.Array()
	ln := largest.Size.Array()
	dim := requested.Dim()
	var outIdx, outSize [region.MaxDimension]int
	for d := 0; d < dim; d++ {
		if idx[d] < lo[d] || idx[d]+size[d] > lo[d]+ln[d] {
			outIdx[d], outSize[d] = lo[d], ln[d]
			continue
		}
		outIdx[d], outSize[d] = idx[d], size[d]
	}
	return region.MakeRegion(region.NewCoord(outIdx[:dim]...), region.NewCoord(outSize[:dim]...))
}
