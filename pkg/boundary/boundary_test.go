package boundary

import (
	"errors"
	"testing"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// row returns a 1-D image holding values over [lo, lo+len(values))
func row(t *testing.T, lo int, values ...int) *ndimage.Image[int] {
	t.Helper()
	img, err := ndimage.NewAllocated[int](region.MakeRegion(region.NewCoord(lo), region.NewCoord(len(values))))
	if err != nil {
		t.Fatal(err)
	}
	copy(img.BufferPointer(), values)
	return img
}

// TestEvaluateAtIndex checks each strategy on a 1-D row a b c d = 10 20 30 40
func TestEvaluateAtIndex(t *testing.T) {
	img := row(t, 0, 10, 20, 30, 40)
	tests := []struct {
		name string
		cond Condition[int]
		idx  []int
		want []int
	}{
		{"constant", NewConstant(-1), []int{-2, -1, 0, 3, 4, 9}, []int{-1, -1, 10, 40, -1, -1}},
		{"zeroflux", ZeroFluxNeumann[int]{}, []int{-5, -1, 2, 4, 7}, []int{10, 10, 30, 40, 40}},
		{"periodic", Periodic[int]{}, []int{-1, -4, -5, 4, 9}, []int{40, 10, 40, 10, 20}},
		{"mirror", Mirror[int]{}, []int{-1, -2, -3, 4, 5, 6}, []int{20, 30, 40, 30, 20, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, x := range tt.idx {
				if got := tt.cond.EvaluateAtIndex(region.NewCoord(x), img); got != tt.want[i] {
					t.Errorf("index %d: expected %d, got %d", x, tt.want[i], got)
				}
			}
		})
	}
}

// TestMirrorSinglePixel verifies reflection of a one pixel axis
func TestMirrorSinglePixel(t *testing.T) {
	img := row(t, 3, 8)
	if got := (Mirror[int]{}).EvaluateAtIndex(region.NewCoord(-7), img); got != 8 {
		t.Errorf("Expected 8, got %d", got)
	}
}

// TestZeroFluxNonZeroOrigin checks clamping against a buffer that does not start at 0
func TestZeroFluxNonZeroOrigin(t *testing.T) {
	img, err := ndimage.NewAllocated[int](region.MakeRegion(region.NewCoord(2, 2), region.NewCoord(2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	copy(img.BufferPointer(), []int{1, 2, 3, 4})
	z := ZeroFluxNeumann[int]{}
	if got := z.EvaluateAtIndex(region.NewCoord(0, 0), img); got != 1 {
		t.Errorf("Expected 1, got %d", got)
	}
	if got := z.EvaluateAtIndex(region.NewCoord(9, 3), img); got != 4 {
		t.Errorf("Expected 4, got %d", got)
	}
}

// TestEvaluateToFill checks row-major fills that straddle the buffer
func TestEvaluateToFill(t *testing.T) {
	img := row(t, 0, 1, 2, 3)
	r := region.MakeRegion(region.NewCoord(-2), region.NewCoord(7))
	dst := make([]int, 7)
	if err := (Periodic[int]{}).EvaluateToFill(r, img, dst); err != nil {
		t.Fatal(err)
	}
	want := []int{2, 3, 1, 2, 3, 1, 2}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, dst)
		}
	}
	if err := (Periodic[int]{}).EvaluateToFill(r, img, dst[:3]); !errors.Is(err, imgerr.ErrRange) {
		t.Errorf("Expected RangeError for short destination, got %v", err)
	}
}

// TestRequiredInputRegion checks the input each strategy needs for an out-of-bounds request
func TestRequiredInputRegion(t *testing.T) {
	largest := region.FromSize(10, 10)
	straddle := region.MakeRegion(region.NewCoord(-2, 3), region.NewCoord(4, 2))
	outside := region.MakeRegion(region.NewCoord(12, 3), region.NewCoord(2, 2))

	if got := NewConstant(0).RequiredInputRegion(straddle, largest); !got.Equal(region.MakeRegion(region.NewCoord(0, 3), region.NewCoord(2, 2))) {
		t.Errorf("constant straddle: got %s", got)
	}
	if got := NewConstant(0).RequiredInputRegion(outside, largest); !got.IsEmpty() {
		t.Errorf("constant outside: expected empty, got %s", got)
	}
	if got := (ZeroFluxNeumann[int]{}).RequiredInputRegion(outside, largest); !got.Equal(region.MakeRegion(region.NewCoord(9, 3), region.NewCoord(1, 2))) {
		t.Errorf("zeroflux outside: got %s", got)
	}
	if got := (Periodic[int]{}).RequiredInputRegion(straddle, largest); !got.Equal(region.MakeRegion(region.NewCoord(0, 3), region.NewCoord(10, 2))) {
		t.Errorf("periodic straddle: got %s", got)
	}
}

// TestParseKindAndNew checks kind names and construction
func TestParseKindAndNew(t *testing.T) {
	tests := map[string]Kind{
		"Constant": KindConstant,
		"neumann":  KindZeroFluxNeumann,
		"wrap":     KindPeriodic,
		" mirror ": KindMirror,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
		c, err := New(got, 5.0)
		if err != nil || c.Kind() != want {
			t.Errorf("New(%q) = %v, %v", got, c, err)
		}
	}
	if _, err := ParseKind("spiral"); !errors.Is(err, imgerr.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}
	c, _ := New(KindConstant, 5.0)
	if c.(Constant[float64]).Value != 5 {
		t.Errorf("constant value not applied: %v", c)
	}
	if Default[uint8]().(Constant[uint8]).Value != 0 {
		t.Error("default condition should be Constant(0)")
	}
}
