// Package filters contains neighborhood filters built on the iteration core.
//
// Every filter follows the same pattern: pad the requested region by the
// kernel radius and crop it against the input, split the output region into
// chunks for the workers, decompose each chunk into faces, and walk each face
// with a neighborhood iterator. Only boundary faces get the boundary
// condition override; the interior face runs without any bounds test.
package filters

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ndvoxel/pkg/boundary"
	"ndvoxel/pkg/faces"
	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/iterator"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/parallel"
	"ndvoxel/pkg/region"
)

// Options configures a filter run. The zero value is usable: default
// boundary condition, one worker per CPU, no progress, no logging.
type Options[T any] struct {
	// Boundary is applied to neighbors outside the input buffer.
	// Nil means Constant(zero).
	Boundary boundary.Condition[T]

	// Executor partitions the output region across workers.
	Executor *parallel.Executor

	// Progress receives completed pixel counts, at most about 100 times.
	Progress parallel.ProgressCallback

	// Logger receives one debug entry per run. Nil disables logging.
	Logger *zap.Logger
}

func (o Options[T]) boundaryCondition() boundary.Condition[T] {
	if o.Boundary == nil {
		return boundary.Default[T]()
	}
	return o.Boundary
}

func (o Options[T]) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// InputRegion returns the part of the largest possible region of in that a
// filter of the given radius reads to produce the requested region of in,
// as cond maps the padded request onto the image. A nil cond means the
// default condition. A padded request that misses the image entirely is an
// InvalidRequestedRegion error.
func InputRegion[T any](in *ndimage.Image[T], radius region.Coord, cond boundary.Condition[T]) (region.Region, error) {
	requested := in.RequestedRegion()
	if _, err := faces.PadRequestedRegion(in, requested, radius); err != nil {
		return region.Region{}, err
	}
	if cond == nil {
		cond = boundary.Default[T]()
	}
	return cond.RequiredInputRegion(requested.PadByRadius(radius), in.LargestPossibleRegion()), nil
}

// kernel computes one output pixel from the neighborhood at the iterator.
type kernel[T, U any] func(it *iterator.NeighborhoodIterator[T]) U

// apply runs a kernel over the requested region of in. newKernel is called
// once per chunk so kernels can keep per-worker scratch space.
func apply[T, U any](ctx context.Context, name string, in *ndimage.Image[T], radius region.Coord, opts Options[T], newKernel func() kernel[T, U]) (*ndimage.Image[U], error) {
	log := opts.logger().With(zap.String("filter", name), zap.Stringer("image", in.ID()))
	start := time.Now()

	requested := in.RequestedRegion()
	if err := in.VerifyRequestedRegion(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	cond := opts.boundaryCondition()
	inputRegion, err := InputRegion(in, radius, cond)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !in.BufferedRegion().IsInsideRegion(requested) {
		return nil, fmt.Errorf("%s: %w", name, imgerr.Range("filters.apply", "requested region %s is not buffered (buffered %s)", requested, in.BufferedRegion()))
	}

	out, err := ndimage.NewLike[U](in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	progress := parallel.NewProgress(int64(requested.NumberOfPixels()), 100, opts.Progress)

	err = opts.Executor.Run(ctx, requested, func(ctx context.Context, chunk region.Region) error {
		faceList, err := faces.ComputeFaces(in, chunk, radius)
		if err != nil {
			return err
		}
		k := newKernel()
		for i, face := range faceList {
			if err := ctx.Err(); err != nil {
				return err
			}
			if face.IsEmpty() {
				continue
			}
			nit, err := iterator.NewNeighborhoodIterator(radius, in, face)
			if err != nil {
				return err
			}
			if i > 0 {
				if err := nit.OverrideBoundaryCondition(cond); err != nil {
					return err
				}
			}
			oit, err := iterator.NewRegionIterator(out, face)
			if err != nil {
				return err
			}
			walkFace(nit, oit, k, progress)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Debug("filter complete",
		zap.Stringer("requested", requested),
		zap.Stringer("input", inputRegion),
		zap.String("boundary", string(cond.Kind())),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// walkFace is the per-pixel loop. Progress is reported once per row.
func walkFace[T, U any](nit *iterator.NeighborhoodIterator[T], oit *iterator.RegionIterator[U], k kernel[T, U], progress *parallel.Progress) {
	row := int64(nit.Region().Size.At(0))
	var count int64
	nit.GoToBegin()
	oit.GoToBegin()
	for !nit.IsAtEnd() {
		oit.Set(k(nit))
		nit.Next()
		oit.Next()
		count++
		if count == row {
			progress.Add(count)
			count = 0
		}
	}
	progress.Add(count)
}
