// Package operator provides neighborhood operators: coefficient windows laid
// out in neighbor order so they can be applied to a NeighborhoodIterator with
// a single inner product.
package operator

import (
	"gonum.org/v1/gonum/floats"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/iterator"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// Operator is a set of coefficients over a neighborhood of a given radius.
// Coefficient k applies to neighbor k of an iterator with the same radius.
type Operator struct {
	radius region.Coord
	coeffs []float64
}

// New returns an operator with explicit coefficients. len(coeffs) must be
// prod(2r+1).
func New(radius region.Coord, coeffs []float64) (*Operator, error) {
	if !radius.NonNegative() {
		return nil, imgerr.InvalidArgument("operator.New", "negative radius %s", radius)
	}
	n := neighborhoodSize(radius)
	if len(coeffs) != n {
		return nil, imgerr.InvalidArgument("operator.New", "got %d coefficients for a neighborhood of %d", len(coeffs), n)
	}
	return &Operator{radius: radius, coeffs: append([]float64(nil), coeffs...)}, nil
}

func neighborhoodSize(radius region.Coord) int {
	n := 1
	for _, r := range radius.Values() {
		n *= 2*r + 1
	}
	return n
}

// stride returns the coefficient step of a unit move along axis.
func stride(radius region.Coord, axis int) int {
	s := 1
	for d := 0; d < axis; d++ {
		s *= 2*radius.At(d) + 1
	}
	return s
}

// Laplacian returns the discrete Laplacian of radius 1. scalings gives the
// derivative scaling per axis (typically 1/spacing); nil means 1 on every
// axis. The coefficient of each axial neighbor is scaling^2 and the center
// holds minus their sum.
func Laplacian(dim int, scalings []float64) (*Operator, error) {
	if scalings != nil && len(scalings) != dim {
		return nil, imgerr.InvalidArgument("operator.Laplacian", "got %d scalings for dimension %d", len(scalings), dim)
	}
	radius := region.Filled(dim, 1)
	coeffs := make([]float64, neighborhoodSize(radius))
	center := len(coeffs) / 2
	sum := 0.0
	for d := 0; d < dim; d++ {
		h := 1.0
		if scalings != nil {
			h = scalings[d]
		}
		hsq := h * h
		s := stride(radius, d)
		coeffs[center-s] = hsq
		coeffs[center+s] = hsq
		sum += 2 * hsq
	}
	coeffs[center] = -sum
	return &Operator{radius: radius, coeffs: coeffs}, nil
}

// Derivative returns the first-order central difference along axis, with
// radius 1 on that axis and 0 elsewhere.
func Derivative(dim, axis int) (*Operator, error) {
	if axis < 0 || axis >= dim {
		return nil, imgerr.InvalidArgument("operator.Derivative", "cannot set direction %d for dimension %d", axis, dim)
	}
	radius := region.Filled(dim, 0).With(axis, 1)
	return &Operator{radius: radius, coeffs: []float64{-0.5, 0, 0.5}}, nil
}

// Box returns the normalised mean operator of the given radius.
func Box(radius region.Coord) (*Operator, error) {
	if !radius.NonNegative() {
		return nil, imgerr.InvalidArgument("operator.Box", "negative radius %s", radius)
	}
	n := neighborhoodSize(radius)
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1 / float64(n)
	}
	return &Operator{radius: radius, coeffs: coeffs}, nil
}

// Radius returns the operator radius.
func (o *Operator) Radius() region.Coord { return o.radius }

// Size returns the number of coefficients.
func (o *Operator) Size() int { return len(o.coeffs) }

// Coefficients returns a copy of the coefficients in neighbor order.
func (o *Operator) Coefficients() []float64 { return append([]float64(nil), o.coeffs...) }

// Coefficient returns coefficient k.
func (o *Operator) Coefficient(k int) float64 { return o.coeffs[k] }

// ScaleCoefficients multiplies every coefficient by k.
func (o *Operator) ScaleCoefficients(k float64) { floats.Scale(k, o.coeffs) }

// FlipAxes reverses the direction of every axis, turning a correlation
// kernel into a convolution kernel and back.
func (o *Operator) FlipAxes() { floats.Reverse(o.coeffs) }

// Sum returns the sum of the coefficients.
func (o *Operator) Sum() float64 { return floats.Sum(o.coeffs) }

// InnerProduct applies op at the current position of it. buf is scratch
// space reused across calls; pass nil to allocate.
func InnerProduct[T ndimage.Real](it *iterator.NeighborhoodIterator[T], op *Operator, buf []float64) (float64, []float64, error) {
	if !it.Radius().Equal(op.radius) {
		return 0, buf, imgerr.InvalidArgument("operator.InnerProduct", "iterator radius %s does not match operator radius %s", it.Radius(), op.radius)
	}
	n := it.Size()
	if cap(buf) < n {
		buf = make([]float64, n)
	}
	buf = buf[:n]
	for k := 0; k < n; k++ {
		buf[k] = float64(it.GetPixel(k))
	}
	return floats.Dot(buf, op.coeffs), buf, nil
}
