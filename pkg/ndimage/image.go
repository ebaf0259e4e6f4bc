// Package ndimage provides the N-dimensional image buffer: a contiguous pixel
// slice addressed by region.Coord indices through cached row-major strides.
package ndimage

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/region"
)

// Image is an N-dimensional image with pixel type T.
//
// The image owns its pixel buffer. Iterators hold a non-owning reference and
// record the buffer generation they were built against; reallocating the
// buffer invalidates them.
type Image[T any] struct {
	id uuid.UUID

	// largest is the full extent of the image, buffered the part backed by
	// pix, requested the part a downstream consumer asked for
	largest   region.Region
	buffered  region.Region
	requested region.Region

	spacing []float64

	pix     []T
	strides region.Coord

	// generation is bumped on every Allocate
	generation uint64

	mu     sync.Mutex
	tables map[region.Coord]*OffsetTable
}

// New creates an unallocated image whose largest possible, buffered and
// requested regions are all largest. Spacing defaults to 1 on every axis.
func New[T any](largest region.Region) (*Image[T], error) {
	if _, err := region.NewRegion(largest.Index, largest.Size); err != nil {
		return nil, fmt.Errorf("invalid largest possible region: %w", err)
	}
	spacing := make([]float64, largest.Dim())
	for i := range spacing {
		spacing[i] = 1
	}
	return &Image[T]{
		id:        uuid.New(),
		largest:   largest,
		buffered:  largest,
		requested: largest,
		spacing:   spacing,
	}, nil
}

// NewAllocated is New followed by Allocate.
func NewAllocated[T any](largest region.Region) (*Image[T], error) {
	img, err := New[T](largest)
	if err != nil {
		return nil, err
	}
	img.Allocate()
	return img, nil
}

// ID returns the identity of the image, used in error reports.
func (img *Image[T]) ID() uuid.UUID { return img.id }

// Dim returns the image dimension.
func (img *Image[T]) Dim() int { return img.largest.Dim() }

// LargestPossibleRegion returns the full extent of the image.
func (img *Image[T]) LargestPossibleRegion() region.Region { return img.largest }

// BufferedRegion returns the region backed by the pixel buffer.
func (img *Image[T]) BufferedRegion() region.Region { return img.buffered }

// RequestedRegion returns the region requested by a downstream consumer.
func (img *Image[T]) RequestedRegion() region.Region { return img.requested }

// SetRequestedRegion records the region a consumer needs. Use
// VerifyRequestedRegion to check it against the largest possible region.
func (img *Image[T]) SetRequestedRegion(r region.Region) { img.requested = r }

// VerifyRequestedRegion fails with an InvalidRequestedRegionError when the
// requested region is not inside the largest possible region.
func (img *Image[T]) VerifyRequestedRegion() error {
	if img.largest.IsInsideRegion(img.requested) {
		return nil
	}
	return &InvalidRequestedRegionError{Requested: img.requested, Largest: img.largest, ImageID: img.id}
}

// SetBufferedRegion changes the region backed by memory. It must lie inside
// the largest possible region. The buffer is released; call Allocate before
// accessing pixels again.
func (img *Image[T]) SetBufferedRegion(r region.Region) error {
	if r.Dim() != img.Dim() {
		return imgerr.InvalidArgument("ndimage.SetBufferedRegion", "region dimension %d does not match image dimension %d", r.Dim(), img.Dim())
	}
	if !img.largest.IsInsideRegion(r) {
		return imgerr.InvalidArgument("ndimage.SetBufferedRegion", "%s is outside largest possible region %s", r, img.largest)
	}
	img.buffered = r
	img.pix = nil
	return nil
}

// Spacing returns a copy of the physical pixel spacing per axis.
func (img *Image[T]) Spacing() []float64 {
	out := make([]float64, len(img.spacing))
	copy(out, img.spacing)
	return out
}

// SetSpacing sets the physical pixel spacing. Every component must be positive.
func (img *Image[T]) SetSpacing(spacing []float64) error {
	if len(spacing) != img.Dim() {
		return imgerr.InvalidArgument("ndimage.SetSpacing", "got %d components for dimension %d", len(spacing), img.Dim())
	}
	for i, s := range spacing {
		if s <= 0 {
			return imgerr.InvalidArgument("ndimage.SetSpacing", "spacing[%d] = %g must be positive", i, s)
		}
	}
	img.spacing = append(img.spacing[:0], spacing...)
	return nil
}

// Allocate (re)allocates the pixel buffer for the buffered region, zeroing
// it, recomputes the strides and drops cached offset tables.
func (img *Image[T]) Allocate() {
	img.mu.Lock()
	defer img.mu.Unlock()

	img.pix = make([]T, img.buffered.NumberOfPixels())
	img.strides = computeStrides(img.buffered.Size)
	img.generation++
	img.tables = nil
}

// IsAllocated reports whether the buffer is backed by memory.
func (img *Image[T]) IsAllocated() bool {
	return img.pix != nil && len(img.pix) == img.buffered.NumberOfPixels()
}

// Generation identifies the current allocation of the buffer.
func (img *Image[T]) Generation() uint64 { return img.generation }

// BufferPointer returns the pixel buffer in row-major order, axis 0 fastest.
func (img *Image[T]) BufferPointer() []T { return img.pix }

// Strides returns the linear offset delta of a unit step along each axis.
func (img *Image[T]) Strides() region.Coord { return img.strides }

// FillBuffer sets every buffered pixel to v.
func (img *Image[T]) FillBuffer(v T) {
	for i := range img.pix {
		img.pix[i] = v
	}
}

// Pixel returns the value at idx, failing with a RangeError when idx is
// outside the buffered region.
func (img *Image[T]) Pixel(idx region.Coord) (T, error) {
	if !img.buffered.IsInside(idx) {
		var zero T
		return zero, imgerr.Range("ndimage.Pixel", "index %s outside buffered region %s", idx, img.buffered)
	}
	return img.pix[img.ComputeOffset(idx)], nil
}

// SetPixel stores v at idx, failing with a RangeError when idx is outside
// the buffered region.
func (img *Image[T]) SetPixel(idx region.Coord, v T) error {
	if !img.buffered.IsInside(idx) {
		return imgerr.Range("ndimage.SetPixel", "index %s outside buffered region %s", idx, img.buffered)
	}
	img.pix[img.ComputeOffset(idx)] = v
	return nil
}

func (img *Image[T]) String() string {
	return fmt.Sprintf("Image{ID: %s, Largest: %s, Buffered: %s}", img.id, img.largest, img.buffered)
}

// InvalidRequestedRegionError reports a requested region that does not fit
// in the largest possible region of an image, after padding and cropping.
type InvalidRequestedRegionError struct {
	// Requested is the attempted region before any cropping.
	Requested region.Region
	Largest   region.Region
	ImageID   uuid.UUID
}

func (e *InvalidRequestedRegionError) Error() string {
	return fmt.Sprintf("requested region %s is outside largest possible region %s of image %s",
		e.Requested, e.Largest, e.ImageID)
}

func (e *InvalidRequestedRegionError) Unwrap() error { return imgerr.ErrInvalidRequestedRegion }
