package operator

import (
	"errors"
	"math"
	"testing"

	"ndvoxel/pkg/boundary"
	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/iterator"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// TestLaplacianCoefficients checks the 2-D five point stencil
func TestLaplacianCoefficients(t *testing.T) {
	op, err := Laplacian(2, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 0, 1, -4, 1, 0, 1, 0}
	got := op.Coefficients()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
	if op.Sum() != 0 {
		t.Errorf("Laplacian coefficients should sum to 0, got %v", op.Sum())
	}

	scaled, _ := Laplacian(2, []float64{2, 1})
	if scaled.Coefficient(3) != 4 || scaled.Coefficient(1) != 1 || scaled.Coefficient(4) != -10 {
		t.Errorf("unexpected scaled coefficients %v", scaled.Coefficients())
	}
	if _, err := Laplacian(3, []float64{1}); !errors.Is(err, imgerr.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}
}

// TestDerivativeAndBox checks the other constructors
func TestDerivativeAndBox(t *testing.T) {
	d, err := Derivative(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Radius().Equal(region.NewCoord(0, 1, 0)) || d.Size() != 3 {
		t.Errorf("unexpected derivative radius %s size %d", d.Radius(), d.Size())
	}
	if _, err := Derivative(2, 2); err == nil {
		t.Error("Expected error for axis out of range")
	}

	b, err := Box(region.NewCoord(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if b.Size() != 15 || math.Abs(b.Sum()-1) > 1e-12 {
		t.Errorf("Box should have 15 coefficients summing to 1, got %d and %v", b.Size(), b.Sum())
	}

	if _, err := New(region.NewCoord(1), []float64{1, 2}); err == nil {
		t.Error("Expected error for wrong coefficient count")
	}
}

// TestScaleAndFlip checks in-place coefficient updates
func TestScaleAndFlip(t *testing.T) {
	op, _ := New(region.NewCoord(1), []float64{1, 2, 3})
	op.ScaleCoefficients(2)
	op.FlipAxes()
	want := []float64{6, 4, 2}
	for i, w := range want {
		if op.Coefficient(i) != w {
			t.Fatalf("Expected %v, got %v", want, op.Coefficients())
		}
	}
	c := op.Coefficients()
	c[0] = 100
	if op.Coefficient(0) == 100 {
		t.Error("Coefficients must return a copy")
	}
}

// TestInnerProduct applies the Laplacian to a quadratic, whose discrete Laplacian is constant
func TestInnerProduct(t *testing.T) {
	img, err := ndimage.NewAllocated[float64](region.FromSize(6, 5))
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 6; x++ {
			_ = img.SetPixel(region.NewCoord(x, y), float64(x*x+2*y*y))
		}
	}
	op, _ := Laplacian(2, nil)
	inner := region.MakeRegion(region.NewCoord(1, 1), region.NewCoord(4, 3))
	it, err := iterator.NewNeighborhoodIterator(op.Radius(), img, inner)
	if err != nil {
		t.Fatal(err)
	}
	var buf []float64
	for it.GoToBegin(); !it.IsAtEnd(); it.Next() {
		var v float64
		v, buf, err = InnerProduct(it, op, buf)
		if err != nil {
			t.Fatal(err)
		}
		if v != 6 {
			t.Fatalf("at %s expected 6, got %v", it.Index(), v)
		}
	}

	other, _ := iterator.NewNeighborhoodIterator(region.NewCoord(2, 2), img, inner)
	other.GoToBegin()
	if _, _, err := InnerProduct(other, op, nil); !errors.Is(err, imgerr.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for radius mismatch, got %v", err)
	}
}

// TestInnerProductAtBoundary checks a derivative with zero flux at the edge
func TestInnerProductAtBoundary(t *testing.T) {
	img, _ := ndimage.NewAllocated[int](region.FromSize(4))
	copy(img.BufferPointer(), []int{1, 3, 5, 7})
	op, _ := Derivative(1, 0)
	it, _ := iterator.NewNeighborhoodIterator(op.Radius(), img, img.BufferedRegion())
	_ = it.OverrideBoundaryCondition(boundary.ZeroFluxNeumann[int]{})
	want := []float64{1, 2, 2, 1}
	i := 0
	for it.GoToBegin(); !it.IsAtEnd(); it.Next() {
		v, _, err := InnerProduct(it, op, nil)
		if err != nil {
			t.Fatal(err)
		}
		if v != want[i] {
			t.Errorf("position %d: expected %v, got %v", i, want[i], v)
		}
		i++
	}
}
