// Package faces decomposes regions for neighborhood processing and parallel
// execution.
//
// ComputeFaces splits an output region into an interior face, where every
// neighbor of radius r is inside the buffer, and boundary faces that need a
// boundary condition. Filters walk the interior without any per-pixel
// bounds test, which dominates the runtime for large images.
package faces

import (
	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// FaceList is the result of ComputeFaces. The first element is always the
// interior face (possibly empty); the rest are boundary faces. Faces are
// pairwise disjoint and their union is the decomposed region.
type FaceList []region.Region

// Interior returns the interior face.
func (f FaceList) Interior() region.Region { return f[0] }

// Boundary returns the boundary faces.
func (f FaceList) Boundary() []region.Region { return f[1:] }

// NumberOfPixels returns the total pixel count over all faces.
func (f FaceList) NumberOfPixels() int {
	n := 0
	for _, r := range f {
		n += r.NumberOfPixels()
	}
	return n
}

// Geometry is the part of an image ComputeFaces needs.
type Geometry interface {
	BufferedRegion() region.Region
}

var _ Geometry = (*ndimage.Image[float64])(nil)

// ComputeFaces decomposes r for neighborhood access of the given radius over
// img's buffered region. r is first cropped to the buffer; a region entirely
// outside the buffer is an error.
//
// The interior is the set of indices of r whose whole neighborhood is
// buffered. The boundary faces are produced axis by axis: for axis d, a slab
// below and a slab above the interior span on d, spanning the interior
// extent on axes < d and the full remaining extent on axes > d.
func ComputeFaces(img Geometry, r region.Region, radius region.Coord) (FaceList, error) {
	buf := img.BufferedRegion()
	if r.Dim() != buf.Dim() || radius.Dim() != buf.Dim() {
		return nil, imgerr.InvalidArgument("faces.ComputeFaces", "dimension mismatch: region %d, radius %d, image %d",
			r.Dim(), radius.Dim(), buf.Dim())
	}
	if !radius.NonNegative() {
		return nil, imgerr.InvalidArgument("faces.ComputeFaces", "negative radius %s", radius)
	}
	if r.IsEmpty() {
		return FaceList{r}, nil
	}
	cropped, ok := r.Crop(buf)
	if !ok {
		return nil, imgerr.Range("faces.ComputeFaces", "%s does not intersect buffered region %s", r, buf)
	}
	r = cropped

	dim := r.Dim()
	rad := radius.Array()
	bufLo := buf.Index.Array()
	bufSize := buf.Size.Array()
	lo := r.Index.Array()
	size := r.Size.Array()

	// interior span on each axis: [inLo, inHi)
	var inLo, inHi [region.MaxDimension]int
	empty := false
	for d := 0; d < dim; d++ {
		inLo[d] = max(lo[d], bufLo[d]+rad[d])
		inHi[d] = min(lo[d]+size[d], bufLo[d]+bufSize[d]-rad[d])
		if inHi[d] <= inLo[d] {
			empty = true
		}
	}
	if empty {
		interior := region.Region{Index: r.Index, Size: region.Filled(dim, 0)}
		return FaceList{interior, r}, nil
	}

	faces := FaceList{regionFromBounds(dim, inLo, inHi)}

	// remaining shrinks to the interior one axis at a time
	remLo, remHi := lo, lo
	for d := 0; d < dim; d++ {
		remHi[d] = lo[d] + size[d]
	}
	for d := 0; d < dim; d++ {
		if remLo[d] < inLo[d] {
			sLo, sHi := remLo, remHi
			sHi[d] = inLo[d]
			faces = append(faces, regionFromBounds(dim, sLo, sHi))
		}
		if inHi[d] < remHi[d] {
			sLo, sHi := remLo, remHi
			sLo[d] = inHi[d]
			faces = append(faces, regionFromBounds(dim, sLo, sHi))
		}
		remLo[d], remHi[d] = inLo[d], inHi[d]
	}
	return faces, nil
}

func regionFromBounds(dim int, lo, hi [region.MaxDimension]int) region.Region {
	var size [region.MaxDimension]int
	for d := 0; d < dim; d++ {
		size[d] = hi[d] - lo[d]
	}
	return region.MakeRegion(region.NewCoord(lo[:dim]...), region.NewCoord(size[:dim]...))
}

// PadRequestedRegion pads requested by radius and crops it against the
// largest possible region of img, returning the input region a neighborhood
// filter must read. When nothing is left after cropping it returns an
// *ndimage.InvalidRequestedRegionError carrying the padded, uncropped region.
func PadRequestedRegion[T any](img *ndimage.Image[T], requested region.Region, radius region.Coord) (region.Region, error) {
	if requested.Dim() != img.Dim() || radius.Dim() != img.Dim() {
		return region.Region{}, imgerr.InvalidArgument("faces.PadRequestedRegion", "dimension mismatch: region %d, radius %d, image %d",
			requested.Dim(), radius.Dim(), img.Dim())
	}
	padded := requested.PadByRadius(radius)
	if cropped, ok := padded.Crop(img.LargestPossibleRegion()); ok {
		return cropped, nil
	}
	return region.Region{}, &ndimage.InvalidRequestedRegionError{
		Requested: padded,
		Largest:   img.LargestPossibleRegion(),
		ImageID:   img.ID(),
	}
}
