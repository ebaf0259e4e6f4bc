// Package boundary provides boundary condition strategies: policies that
// synthesize a pixel value for an index outside an image's buffered region.
//
// Every strategy is pure. It never writes to the image and returns a value
// for any representable index, however far outside the buffer.
package boundary

import (
	"fmt"
	"strings"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// Condition is a boundary condition strategy for pixel type T.
type Condition[T any] interface {
	// EvaluateAtIndex returns the value to use for idx. For an index inside
	// the buffered region every strategy returns the buffered value.
	EvaluateAtIndex(idx region.Coord, img *ndimage.Image[T]) T

	// EvaluateToFill writes the values of every index of r into dst, in
	// row-major order. r may extend beyond the buffered region.
	EvaluateToFill(r region.Region, img *ndimage.Image[T], dst []T) error

	// RequiredInputRegion returns the part of the largest possible region
	// that must be buffered to evaluate the condition over requested.
	RequiredInputRegion(requested, largest region.Region) region.Region

	// Kind identifies the strategy.
	Kind() Kind
}

// Kind names a boundary condition strategy.
type Kind string

// Supported kinds
const (
	KindConstant        Kind = "constant"
	KindZeroFluxNeumann Kind = "zeroflux"
	KindPeriodic        Kind = "periodic"
	KindMirror          Kind = "mirror"
)

// ParseKind parses a kind name. Matching is case-insensitive and accepts a
// few common aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "constant", "zero":
		return KindConstant, nil
	case "zeroflux", "zerofluxneumann", "neumann", "clamp":
		return KindZeroFluxNeumann, nil
	case "periodic", "wrap":
		return KindPeriodic, nil
	case "mirror", "reflect":
		return KindMirror, nil
	default:
		return "", imgerr.InvalidArgument("boundary.ParseKind", "unknown boundary condition %q", s)
	}
}

// New returns the strategy of the given kind. constant is only used by
// KindConstant.
func New[T any](kind Kind, constant T) (Condition[T], error) {
	switch kind {
	case KindConstant:
		return NewConstant(constant), nil
	case KindZeroFluxNeumann:
		return ZeroFluxNeumann[T]{}, nil
	case KindPeriodic:
		return Periodic[T]{}, nil
	case KindMirror:
		return Mirror[T]{}, nil
	default:
		return nil, imgerr.InvalidArgument("boundary.New", "unknown boundary condition %q", string(kind))
	}
}

// Default returns the default strategy, Constant(zero value of T).
func Default[T any]() Condition[T] {
	var zero T
	return NewConstant(zero)
}

// fillByIndex implements EvaluateToFill in terms of a per-index mapping.
func fillByIndex[T any](r region.Region, img *ndimage.Image[T], dst []T, eval func(region.Coord) T) error {
	n := r.NumberOfPixels()
	if len(dst) < n {
		return imgerr.Range("boundary.EvaluateToFill", "destination holds %d values, region has %d pixels", len(dst), n)
	}
	if r.Dim() != img.Dim() {
		return imgerr.InvalidArgument("boundary.EvaluateToFill", "region dimension %d does not match image dimension %d", r.Dim(), img.Dim())
	}
	if n == 0 {
		return nil
	}
	dim := r.Dim()
	start := r.Index.Array()
	size := r.Size.Array()
	pos := start
	for k := 0; k < n; k++ {
		dst[k] = eval(region.NewCoord(pos[:dim]...))
		for d := 0; d < dim; d++ {
			pos[d]++
			if pos[d] < start[d]+size[d] {
				break
			}
			pos[d] = start[d]
		}
	}
	return nil
}

// mapIndex maps every component of idx through f, which receives the
// component, the buffered origin and the buffered size of that axis.
func mapIndex(idx region.Coord, buffered region.Region, f func(v, lo, n int) int) region.Coord {
	v := idx.Array()
	lo := buffered.Index.Array()
	sz := buffered.Size.Array()
	dim := idx.Dim()
	for d := 0; d < dim; d++ {
		v[d] = f(v[d], lo[d], sz[d])
	}
	return region.NewCoord(v[:dim]...)
}

func describe[T any](c Condition[T]) string {
	return fmt.Sprintf("%sBoundaryCondition", c.Kind())
}
