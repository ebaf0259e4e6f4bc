// Package region provides the N-dimensional index model: coordinates and
// axis-aligned rectangular regions.
//
// Dimension is carried at runtime. A Coord is a small fixed-capacity array
// bounded by MaxDimension, so coordinates are plain values that never
// allocate and can be copied freely between goroutines.
package region

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"ndvoxel/pkg/imgerr"
)

// MaxDimension is the largest image dimension supported by the core.
const MaxDimension = 8

// Coord is a signed integer vector of runtime length Dim(). It is used for
// indices, sizes, offsets and radii alike.
type Coord struct {
	n int
	v [MaxDimension]int
}

// NewCoord builds a coordinate from its components, axis 0 first.
// It panics with an InvalidArgument error when more than MaxDimension
// components are given.
func NewCoord(values ...int) Coord {
	if len(values) > MaxDimension {
		panic(imgerr.InvalidArgument("region.NewCoord", "dimension %d exceeds maximum %d", len(values), MaxDimension))
	}
	var c Coord
	c.n = len(values)
	copy(c.v[:], values)
	return c
}

// Filled returns a coordinate of dimension dim with every component set to value.
func Filled(dim, value int) Coord {
	if dim < 0 || dim > MaxDimension {
		panic(imgerr.InvalidArgument("region.Filled", "dimension %d out of range [0, %d]", dim, MaxDimension))
	}
	c := Coord{n: dim}
	for i := 0; i < dim; i++ {
		c.v[i] = value
	}
	return c
}

// Dim returns the number of components.
func (c Coord) Dim() int { return c.n }

// At returns component i.
func (c Coord) At(i int) int {
	if i < 0 || i >= c.n {
		panic(imgerr.Range("region.Coord.At", "axis %d out of range for dimension %d", i, c.n))
	}
	return c.v[i]
}

// With returns a copy of c with component i replaced by value.
func (c Coord) With(i, value int) Coord {
	if i < 0 || i >= c.n {
		panic(imgerr.Range("region.Coord.With", "axis %d out of range for dimension %d", i, c.n))
	}
	c.v[i] = value
	return c
}

// Values returns the components as a freshly allocated slice.
func (c Coord) Values() []int {
	out := make([]int, c.n)
	copy(out, c.v[:c.n])
	return out
}

// Array exposes the backing array. Components at or beyond Dim() are zero.
// Iterators use it to avoid per-axis bounds checks in their hot paths.
func (c Coord) Array() [MaxDimension]int { return c.v }

// Add returns c + o.
func (c Coord) Add(o Coord) Coord {
	mustMatch("region.Coord.Add", c.n, o.n)
	for i := 0; i < c.n; i++ {
		c.v[i] += o.v[i]
	}
	return c
}

// Sub returns c - o.
func (c Coord) Sub(o Coord) Coord {
	mustMatch("region.Coord.Sub", c.n, o.n)
	for i := 0; i < c.n; i++ {
		c.v[i] -= o.v[i]
	}
	return c
}

// Scale returns c with every component multiplied by k.
func (c Coord) Scale(k int) Coord {
	for i := 0; i < c.n; i++ {
		c.v[i] *= k
	}
	return c
}

// Equal reports whether c and o have the same dimension and components.
func (c Coord) Equal(o Coord) bool {
	// components past n are always zero, so comparing the arrays is enough
	return c.n == o.n && c.v == o.v
}

// Product returns the product of all components, or 0 for a zero-dimension
// coordinate.
func (c Coord) Product() int {
	if c.n == 0 {
		return 0
	}
	p := 1
	for i := 0; i < c.n; i++ {
		p *= c.v[i]
	}
	return p
}

// NonNegative reports whether every component is >= 0.
func (c Coord) NonNegative() bool {
	for i := 0; i < c.n; i++ {
		if c.v[i] < 0 {
			return false
		}
	}
	return true
}

func (c Coord) String() string {
	parts := make([]string, c.n)
	for i := 0; i < c.n; i++ {
		parts[i] = fmt.Sprint(c.v[i])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalYAML encodes the coordinate as a flow sequence of integers.
func (c Coord) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for i := 0; i < c.n; i++ {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(c.v[i])})
	}
	return node, nil
}

// UnmarshalYAML decodes a sequence of integers.
func (c *Coord) UnmarshalYAML(value *yaml.Node) error {
	var vals []int
	if err := value.Decode(&vals); err != nil {
		return fmt.Errorf("error decoding coordinate: %w", err)
	}
	if len(vals) > MaxDimension {
		return imgerr.InvalidArgument("region.Coord.UnmarshalYAML", "dimension %d exceeds maximum %d", len(vals), MaxDimension)
	}
	*c = NewCoord(vals...)
	return nil
}

func mustMatch(op string, a, b int) {
	if a != b {
		panic(imgerr.InvalidArgument(op, "dimension mismatch: %d vs %d", a, b))
	}
}
