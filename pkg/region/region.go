package region

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"ndvoxel/pkg/imgerr"
)

// Region is an axis-aligned rectangular index range: every index i with
// Index[d] <= i[d] < Index[d]+Size[d] on each axis d.
//
// Regions are values. Operations such as Crop and PadByRadius return new
// regions and never modify the receiver.
type Region struct {
	Index Coord
	Size  Coord
}

// NewRegion builds a region, rejecting mismatched dimensions, a zero
// dimension and negative sizes.
func NewRegion(origin, size Coord) (Region, error) {
	if origin.Dim() != size.Dim() {
		return Region{}, imgerr.InvalidArgument("region.NewRegion", "origin dimension %d does not match size dimension %d", origin.Dim(), size.Dim())
	}
	if origin.Dim() == 0 {
		return Region{}, imgerr.InvalidArgument("region.NewRegion", "zero-dimension region")
	}
	if !size.NonNegative() {
		return Region{}, imgerr.InvalidArgument("region.NewRegion", "negative size %s", size)
	}
	return Region{Index: origin, Size: size}, nil
}

// MakeRegion is NewRegion for callers that treat invalid geometry as a
// programming error. It panics with the *imgerr.Error NewRegion would return.
func MakeRegion(origin, size Coord) Region {
	r, err := NewRegion(origin, size)
	if err != nil {
		panic(err)
	}
	return r
}

// FromSize returns the region of the given size anchored at the origin.
func FromSize(size ...int) Region {
	s := NewCoord(size...)
	return MakeRegion(Filled(s.Dim(), 0), s)
}

// Dim returns the dimension of the region.
func (r Region) Dim() int { return r.Index.Dim() }

// NumberOfPixels returns the product of the size components.
func (r Region) NumberOfPixels() int { return r.Size.Product() }

// IsEmpty reports whether the region contains no index.
func (r Region) IsEmpty() bool { return r.NumberOfPixels() == 0 }

// UpperIndex returns the last index contained in the region. It is only
// meaningful for non-empty regions.
func (r Region) UpperIndex() Coord {
	up := r.Index
	for i := 0; i < r.Dim(); i++ {
		up.v[i] += r.Size.v[i] - 1
	}
	return up
}

// IsInside reports whether idx lies in the region.
func (r Region) IsInside(idx Coord) bool {
	if idx.n != r.Index.n {
		return false
	}
	for i := 0; i < idx.n; i++ {
		d := idx.v[i] - r.Index.v[i]
		if d < 0 || d >= r.Size.v[i] {
			return false
		}
	}
	return true
}

// IsInsideRegion reports whether other lies entirely within r. An empty
// region is inside every region of the same dimension.
func (r Region) IsInsideRegion(other Region) bool {
	if other.Dim() != r.Dim() {
		return false
	}
	if other.IsEmpty() {
		return true
	}
	for i := 0; i < r.Dim(); i++ {
		if other.Index.v[i] < r.Index.v[i] {
			return false
		}
		if other.Index.v[i]+other.Size.v[i] > r.Index.v[i]+r.Size.v[i] {
			return false
		}
	}
	return true
}

// Crop returns the intersection of r and other. The second result is false
// when the regions do not overlap at all. Mismatched dimensions panic.
func (r Region) Crop(other Region) (Region, bool) {
	mustMatch("region.Crop", r.Dim(), other.Dim())
	out := Region{Index: r.Index, Size: r.Size}
	for i := 0; i < r.Dim(); i++ {
		lo := max(r.Index.v[i], other.Index.v[i])
		hi := min(r.Index.v[i]+r.Size.v[i], other.Index.v[i]+other.Size.v[i])
		if lo >= hi {
			return Region{}, false
		}
		out.Index.v[i] = lo
		out.Size.v[i] = hi - lo
	}
	return out, true
}

// PadByRadius grows r symmetrically by radius on every axis. The result is
// not clamped; callers crop it against the image's largest possible region.
func (r Region) PadByRadius(radius Coord) Region {
	mustMatch("region.PadByRadius", r.Dim(), radius.Dim())
	out := r
	for i := 0; i < r.Dim(); i++ {
		out.Index.v[i] -= radius.v[i]
		out.Size.v[i] += 2 * radius.v[i]
	}
	return out
}

// ShrinkByRadius is the inverse of PadByRadius. Extents that would become
// negative are clamped to zero.
func (r Region) ShrinkByRadius(radius Coord) Region {
	mustMatch("region.ShrinkByRadius", r.Dim(), radius.Dim())
	out := r
	for i := 0; i < r.Dim(); i++ {
		out.Index.v[i] += radius.v[i]
		out.Size.v[i] = max(0, r.Size.v[i]-2*radius.v[i])
	}
	return out
}

// Equal reports whether both regions have the same index and size.
func (r Region) Equal(o Region) bool {
	return r.Index.Equal(o.Index) && r.Size.Equal(o.Size)
}

func (r Region) String() string {
	return fmt.Sprintf("Region{Index: %s, Size: %s}", r.Index, r.Size)
}

type yamlRegion struct {
	Index Coord `yaml:"index"`
	Size  Coord `yaml:"size"`
}

// MarshalYAML encodes the region as an index/size mapping.
func (r Region) MarshalYAML() (interface{}, error) {
	return yamlRegion{Index: r.Index, Size: r.Size}, nil
}

// UnmarshalYAML decodes an index/size mapping and validates it.
func (r *Region) UnmarshalYAML(value *yaml.Node) error {
	var y yamlRegion
	if err := value.Decode(&y); err != nil {
		return err
	}
	out, err := NewRegion(y.Index, y.Size)
	if err != nil {
		return err
	}
	*r = out
	return nil
}
