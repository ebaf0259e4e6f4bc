package filters

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"ndvoxel/pkg/iterator"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/operator"
	"ndvoxel/pkg/region"
)

// Convolve applies op at every pixel of the requested region of in.
func Convolve[T ndimage.Real](ctx context.Context, in *ndimage.Image[T], op *operator.Operator, opts Options[T]) (*ndimage.Image[float64], error) {
	return apply(ctx, "convolve", in, op.Radius(), opts, func() kernel[T, float64] {
		var buf []float64
		return func(it *iterator.NeighborhoodIterator[T]) float64 {
			var v float64
			// radii match by construction, so InnerProduct cannot fail here
			v, buf, _ = operator.InnerProduct(it, op, buf)
			return v
		}
	})
}

// Mean replaces every pixel by the mean of its neighborhood.
func Mean[T ndimage.Real](ctx context.Context, in *ndimage.Image[T], radius region.Coord, opts Options[T]) (*ndimage.Image[float64], error) {
	return apply(ctx, "mean", in, radius, opts, func() kernel[T, float64] {
		var vals []T
		var buf []float64
		return func(it *iterator.NeighborhoodIterator[T]) float64 {
			vals = it.Neighborhood(vals)
			buf = ndimage.ToFloat64(vals, buf)
			return stat.Mean(buf, nil)
		}
	})
}

// StdDev replaces every pixel by the sample standard deviation of its
// neighborhood.
func StdDev[T ndimage.Real](ctx context.Context, in *ndimage.Image[T], radius region.Coord, opts Options[T]) (*ndimage.Image[float64], error) {
	return apply(ctx, "stddev", in, radius, opts, func() kernel[T, float64] {
		var vals []T
		var buf []float64
		return func(it *iterator.NeighborhoodIterator[T]) float64 {
			vals = it.Neighborhood(vals)
			buf = ndimage.ToFloat64(vals, buf)
			if len(buf) < 2 {
				return 0
			}
			return stat.StdDev(buf, nil)
		}
	})
}

// Median replaces every pixel by the median of its neighborhood. The
// neighborhood always has an odd number of pixels, so the median is exact.
func Median[T ndimage.Real](ctx context.Context, in *ndimage.Image[T], radius region.Coord, opts Options[T]) (*ndimage.Image[T], error) {
	return apply(ctx, "median", in, radius, opts, func() kernel[T, T] {
		var vals []T
		return func(it *iterator.NeighborhoodIterator[T]) T {
			vals = it.Neighborhood(vals)
			slices.Sort(vals)
			return vals[len(vals)/2]
		}
	})
}

// GradientMagnitude returns the magnitude of the central-difference gradient,
// each axis derivative divided by the pixel spacing.
func GradientMagnitude[T ndimage.Real](ctx context.Context, in *ndimage.Image[T], opts Options[T]) (*ndimage.Image[float64], error) {
	dim := in.Dim()
	spacing := in.Spacing()
	return apply(ctx, "gradient-magnitude", in, region.Filled(dim, 1), opts, func() kernel[T, float64] {
		return func(it *iterator.NeighborhoodIterator[T]) float64 {
			c := it.CenterNeighbor()
			sum := 0.0
			for d := 0; d < dim; d++ {
				s := it.Stride(d)
				g := (float64(it.GetPixel(c+s)) - float64(it.GetPixel(c-s))) / (2 * spacing[d])
				sum += g * g
			}
			return math.Sqrt(sum)
		}
	})
}

// ObjectBoundary marks the object pixels of in that touch a non-object pixel
// in their radius-1 neighborhood. Marked pixels get objectValue, all others
// zero.
//
// With useBoundaryCondition false, neighbors outside the buffer are skipped
// rather than substituted, so objects touching the image edge are not marked
// along it.
func ObjectBoundary[T ndimage.Real](ctx context.Context, in *ndimage.Image[T], objectValue T, useBoundaryCondition bool, opts Options[T]) (*ndimage.Image[T], error) {
	radius := region.Filled(in.Dim(), 1)
	return apply(ctx, "object-boundary", in, radius, opts, func() kernel[T, T] {
		return func(it *iterator.NeighborhoodIterator[T]) T {
			var zero T
			if it.GetCenterPixel() != objectValue {
				return zero
			}
			for n := 0; n < it.Size(); n++ {
				if useBoundaryCondition {
					if it.GetPixel(n) != objectValue {
						return objectValue
					}
					continue
				}
				if v, inside := it.GetPixelInside(n); inside && v != objectValue {
					return objectValue
				}
			}
			return zero
		}
	})
}
