package filters

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ndvoxel/pkg/boundary"
	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/operator"
	"ndvoxel/pkg/parallel"
	"ndvoxel/pkg/region"
)

func newImage[T any](t *testing.T, r region.Region, f func(idx region.Coord) T) *ndimage.Image[T] {
	t.Helper()
	img, err := ndimage.NewAllocated[T](r)
	if err != nil {
		t.Fatal(err)
	}
	pix := img.BufferPointer()
	for i := range pix {
		pix[i] = f(img.ComputeIndex(i))
	}
	return img
}

func ramp(idx region.Coord) float64 {
	v := 0.0
	for d := 0; d < idx.Dim(); d++ {
		v += float64((d + 1) * idx.At(d))
	}
	return v
}

// bruteMean averages the neighborhood of idx using cond for pixels outside the buffer
func bruteMean(t *testing.T, img *ndimage.Image[float64], idx, radius region.Coord, cond boundary.Condition[float64]) float64 {
	t.Helper()
	win := region.Region{Index: idx, Size: region.Filled(idx.Dim(), 1)}.PadByRadius(radius)
	vals := make([]float64, win.NumberOfPixels())
	if err := cond.EvaluateToFill(win, img, vals); err != nil {
		t.Fatalf("EvaluateToFill over %s: %v", win, err)
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// TestMeanMatchesBruteForce compares the face-based mean with a direct computation for each boundary kind
func TestMeanMatchesBruteForce(t *testing.T) {
	img := newImage(t, region.MakeRegion(region.NewCoord(-2, 1, 0), region.NewCoord(7, 6, 4)), ramp)
	radius := region.NewCoord(2, 1, 1)
	conds := []boundary.Condition[float64]{
		boundary.NewConstant(3.5),
		boundary.ZeroFluxNeumann[float64]{},
		boundary.Periodic[float64]{},
		boundary.Mirror[float64]{},
	}
	for _, cond := range conds {
		t.Run(string(cond.Kind()), func(t *testing.T) {
			out, err := Mean(context.Background(), img, radius, Options[float64]{Boundary: cond, Executor: parallel.NewExecutor(3)})
			if err != nil {
				t.Fatal(err)
			}
			for i, got := range out.BufferPointer() {
				idx := out.ComputeIndex(i)
				want := bruteMean(t, img, idx, radius, cond)
				if math.Abs(got-want) > 1e-9 {
					t.Fatalf("at %s expected %v, got %v", idx, want, got)
				}
			}
		})
	}
}

// TestConvolveBoxEqualsMean verifies Convolve with a box operator matches Mean
func TestConvolveBoxEqualsMean(t *testing.T) {
	img := newImage(t, region.FromSize(9, 7), func(idx region.Coord) uint8 { return uint8(idx.At(0) * idx.At(1)) })
	radius := region.NewCoord(1, 2)
	box, _ := operator.Box(radius)
	opts := Options[uint8]{Boundary: boundary.Mirror[uint8]{}}
	a, err := Convolve(context.Background(), img, box, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Mean(context.Background(), img, radius, opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.BufferPointer() {
		if math.Abs(a.BufferPointer()[i]-b.BufferPointer()[i]) > 1e-9 {
			t.Fatalf("pixel %d: convolve %v, mean %v", i, a.BufferPointer()[i], b.BufferPointer()[i])
		}
	}
}

// TestWorkerCountDoesNotChangeResult runs the same filter with different executors
func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	img := newImage(t, region.FromSize(13, 11, 3), ramp)
	radius := region.NewCoord(1, 1, 1)
	ref, err := StdDev(context.Background(), img, radius, Options[float64]{Executor: &parallel.Executor{NumWorkers: 1}})
	if err != nil {
		t.Fatal(err)
	}
	for _, exec := range []*parallel.Executor{nil, parallel.NewExecutor(2), {NumWorkers: 7, ChunksPerWorker: 3}} {
		out, err := StdDev(context.Background(), img, radius, Options[float64]{Executor: exec})
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range out.BufferPointer() {
			if v != ref.BufferPointer()[i] {
				t.Fatalf("pixel %d differs: %v vs %v", i, v, ref.BufferPointer()[i])
			}
		}
	}
}

// TestMedianRemovesImpulse checks a single outlier is removed
func TestMedianRemovesImpulse(t *testing.T) {
	img := newImage(t, region.FromSize(5, 5), func(region.Coord) int16 { return 10 })
	_ = img.SetPixel(region.NewCoord(2, 2), 1000)
	out, err := Median(context.Background(), img, region.NewCoord(1, 1), Options[int16]{Boundary: boundary.ZeroFluxNeumann[int16]{}})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out.BufferPointer() {
		if v != 10 {
			t.Fatalf("pixel %d: expected 10, got %d", i, v)
		}
	}
}

// TestGradientMagnitude checks a linear ramp with anisotropic spacing
func TestGradientMagnitude(t *testing.T) {
	img := newImage(t, region.FromSize(6, 6), func(idx region.Coord) float64 { return 3*float64(idx.At(0)) + 4*float64(idx.At(1)) })
	if err := img.SetSpacing([]float64{1, 2}); err != nil {
		t.Fatal(err)
	}
	img.SetRequestedRegion(region.MakeRegion(region.NewCoord(1, 1), region.NewCoord(4, 4)))
	out, err := GradientMagnitude(context.Background(), img, Options[float64]{})
	if err != nil {
		t.Fatal(err)
	}
	want := math.Sqrt(3*3 + 2*2)
	for y := 1; y < 5; y++ {
		for x := 1; x < 5; x++ {
			v, _ := out.Pixel(region.NewCoord(x, y))
			if math.Abs(v-want) > 1e-12 {
				t.Fatalf("at (%d,%d) expected %v, got %v", x, y, want, v)
			}
		}
	}
	if v, _ := out.Pixel(region.NewCoord(0, 0)); v != 0 {
		t.Errorf("pixel outside the requested region should stay 0, got %v", v)
	}
}

// TestObjectBoundary checks marking with and without the boundary condition
func TestObjectBoundary(t *testing.T) {
	// object covers columns 0..2 of every row of a 5x3 image
	img := newImage(t, region.FromSize(5, 3), func(idx region.Coord) uint8 {
		if idx.At(0) <= 2 {
			return 1
		}
		return 0
	})

	withBC, err := ObjectBoundary(context.Background(), img, 1, true, Options[uint8]{})
	if err != nil {
		t.Fatal(err)
	}
	without, err := ObjectBoundary(context.Background(), img, 1, false, Options[uint8]{})
	if err != nil {
		t.Fatal(err)
	}

	// with Constant(0) outside, every object pixel touching the edge is marked
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			a, _ := withBC.Pixel(region.NewCoord(x, y))
			b, _ := without.Pixel(region.NewCoord(x, y))
			wantA := uint8(0)
			if x <= 2 && (x == 0 || x == 2 || y == 0 || y == 2) {
				wantA = 1
			}
			wantB := uint8(0)
			if x == 2 {
				wantB = 1
			}
			if a != wantA || b != wantB {
				t.Errorf("at (%d,%d): with %d want %d, without %d want %d", x, y, a, wantA, b, wantB)
			}
		}
	}
}

// TestRequestedRegionErrors checks invalid and unbuffered requests
func TestRequestedRegionErrors(t *testing.T) {
	img := newImage(t, region.FromSize(4, 4), ramp)
	img.SetRequestedRegion(region.MakeRegion(region.NewCoord(2, 2), region.NewCoord(4, 1)))
	_, err := Mean(context.Background(), img, region.NewCoord(1, 1), Options[float64]{})
	if !errors.Is(err, imgerr.ErrInvalidRequestedRegion) {
		t.Errorf("Expected InvalidRequestedRegion, got %v", err)
	}

	partial, _ := ndimage.New[float64](region.FromSize(8, 8))
	_ = partial.SetBufferedRegion(region.FromSize(8, 4))
	partial.Allocate()
	_, err = Mean(context.Background(), partial, region.NewCoord(1, 1), Options[float64]{})
	if !errors.Is(err, imgerr.ErrRange) {
		t.Errorf("Expected RangeError for unbuffered request, got %v", err)
	}
}

// TestFilterProgressAndLogging verifies progress reaches the total and a debug entry is logged
func TestFilterProgressAndLogging(t *testing.T) {
	img := newImage(t, region.FromSize(20, 10), ramp)
	var mu sync.Mutex
	var last int64
	core, logs := observer.New(zapcore.DebugLevel)
	opts := Options[float64]{
		Executor: parallel.NewExecutor(4),
		Progress: func(completed, total int64) {
			mu.Lock()
			defer mu.Unlock()
			if total != 200 {
				t.Errorf("Expected total 200, got %d", total)
			}
			last = max(last, completed)
		},
		Logger: zap.New(core),
	}
	if _, err := Mean(context.Background(), img, region.NewCoord(1, 1), opts); err != nil {
		t.Fatal(err)
	}
	if last != 200 {
		t.Errorf("Expected final progress 200, got %d", last)
	}
	entries := logs.FilterMessage("filter complete").All()
	if len(entries) != 1 || entries[0].ContextMap()["filter"] != "mean" {
		t.Errorf("unexpected log entries %v", entries)
	}
}

// TestFilterCancelled verifies a cancelled context aborts the filter
func TestFilterCancelled(t *testing.T) {
	img := newImage(t, region.FromSize(8, 8), ramp)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Mean(ctx, img, region.NewCoord(1, 1), Options[float64]{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestPad checks padding with a boundary condition
func TestPad(t *testing.T) {
	img := newImage(t, region.FromSize(3), func(idx region.Coord) int { return idx.At(0) + 1 })
	out, err := PadByRadius(img, region.NewCoord(2), boundary.Mirror[int]{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.BufferedRegion().Equal(region.MakeRegion(region.NewCoord(-2), region.NewCoord(7))) {
		t.Fatalf("unexpected padded region %s", out.BufferedRegion())
	}
	want := []int{3, 2, 1, 2, 3, 2, 1}
	for i, w := range want {
		if out.BufferPointer()[i] != w {
			t.Fatalf("Expected %v, got %v", want, out.BufferPointer())
		}
	}
	def, err := Pad(img, region.MakeRegion(region.NewCoord(1), region.NewCoord(4)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if def.BufferPointer()[3] != 0 || def.BufferPointer()[0] != 2 {
		t.Errorf("default condition should pad with 0, got %v", def.BufferPointer())
	}
}

// TestCompare checks the metrics of identical and shifted images
func TestCompare(t *testing.T) {
	a := newImage(t, region.FromSize(16, 16), func(idx region.Coord) float64 { return float64(idx.At(0)+idx.At(1)) / 30 })
	m, err := Compare(a, a, a.BufferedRegion())
	if err != nil {
		t.Fatal(err)
	}
	if m.RMSE != 0 || !math.IsInf(m.PSNR, 1) || math.Abs(m.SSIM-1) > 1e-12 || m.EntropyDiff != 0 {
		t.Errorf("identical images: %+v", m)
	}
	if math.Abs(m.Correlation-1) > 1e-12 {
		t.Errorf("Expected correlation 1, got %v", m.Correlation)
	}

	b, _ := ndimage.Convert[float32](a)
	for i := range b.BufferPointer() {
		b.BufferPointer()[i] += 0.25
	}
	m, err = Compare(a, b, a.BufferedRegion())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.RMSE-0.25) > 1e-6 || math.Abs(m.MAE-0.25) > 1e-6 {
		t.Errorf("Expected RMSE and MAE 0.25, got %v and %v", m.RMSE, m.MAE)
	}
	if m.SSIM >= 1 {
		t.Errorf("shifted image should have SSIM below 1, got %v", m.SSIM)
	}

	if _, err := Compare(a, a, region.MakeRegion(region.NewCoord(0, 0), region.NewCoord(0, 3))); err == nil {
		t.Error("Expected error for empty region")
	}
}

// TestInputRegion checks the input a filter reads for each boundary condition
func TestInputRegion(t *testing.T) {
	img := newImage(t, region.FromSize(10, 8), ramp)
	img.SetRequestedRegion(region.MakeRegion(region.NewCoord(0, 3), region.NewCoord(4, 2)))
	radius := region.NewCoord(1, 1)

	tests := []struct {
		name string
		cond boundary.Condition[float64]
		want region.Region
	}{
		{"default", nil, region.MakeRegion(region.NewCoord(0, 2), region.NewCoord(5, 4))},
		{"zeroflux", boundary.ZeroFluxNeumann[float64]{}, region.MakeRegion(region.NewCoord(0, 2), region.NewCoord(5, 4))},
		{"periodic", boundary.Periodic[float64]{}, region.MakeRegion(region.NewCoord(0, 2), region.NewCoord(10, 4))},
		{"mirror", boundary.Mirror[float64]{}, region.MakeRegion(region.NewCoord(0, 2), region.NewCoord(10, 4))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InputRegion(img, radius, tt.cond)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	img.SetRequestedRegion(region.MakeRegion(region.NewCoord(12, 0), region.NewCoord(2, 2)))
	if _, err := InputRegion(img, radius, nil); !errors.Is(err, imgerr.ErrInvalidRequestedRegion) {
		t.Errorf("Expected InvalidRequestedRegion, got %v", err)
	}
}
