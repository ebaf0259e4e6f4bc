package filters

import (
	"fmt"

	"ndvoxel/pkg/boundary"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// Pad returns a new image covering bounds, filled from in where bounds
// overlaps the buffer and from cond everywhere else.
func Pad[T any](in *ndimage.Image[T], bounds region.Region, cond boundary.Condition[T]) (*ndimage.Image[T], error) {
	if cond == nil {
		cond = boundary.Default[T]()
	}
	out, err := ndimage.NewAllocated[T](bounds)
	if err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}
	if err := out.SetSpacing(in.Spacing()); err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}
	if err := cond.EvaluateToFill(bounds, in, out.BufferPointer()); err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}
	return out, nil
}

// PadByRadius pads the buffered region of in by radius on every side.
func PadByRadius[T any](in *ndimage.Image[T], radius region.Coord, cond boundary.Condition[T]) (*ndimage.Image[T], error) {
	return Pad(in, in.BufferedRegion().PadByRadius(radius), cond)
}
