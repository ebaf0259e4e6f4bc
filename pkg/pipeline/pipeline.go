// Package pipeline runs a neighborhood filter over a slice stack:
// load the slices into a volume, filter it, write the result back out as
// slices and compare it against the input.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"ndvoxel/pkg/boundary"
	"ndvoxel/pkg/config"
	"ndvoxel/pkg/filters"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/operator"
	"ndvoxel/pkg/parallel"
	"ndvoxel/pkg/region"
	"ndvoxel/pkg/volumeio"
)

// Params holds the filter run parameters.
type Params struct {
	// InputDir is the directory containing the 2-D slices.
	InputDir string

	// OutputDir receives one subdirectory of slices per output axis.
	OutputDir string

	// Filter is one of the config.Filter* names.
	Filter string

	// Radius is the neighborhood radius on every axis.
	Radius int

	// Boundary selects the boundary condition for edge pixels.
	Boundary boundary.Kind

	// Constant is the value of the constant boundary condition.
	Constant float64

	// UseBoundaryCondition is passed to the object boundary filter.
	UseBoundaryCondition bool

	// ObjectValue is the foreground value for the object boundary filter.
	ObjectValue float64

	// Region restricts filtering to part of the volume. Nil means all of it.
	Region *region.Region

	// SliceGap is the physical distance between slices, used as z spacing.
	SliceGap float64

	// NumWorkers and ChunksPerWorker configure the executor.
	NumWorkers      int
	ChunksPerWorker int

	// Format is the output slice format extension, e.g. png.
	Format string

	// Axes lists the axes along which output slices are written.
	Axes []string

	// Metrics enables comparison of the output against the input.
	Metrics bool

	// Progress receives completed pixel counts during filtering.
	Progress parallel.ProgressCallback
}

// ParamsFromConfig builds Params from a loaded configuration.
func ParamsFromConfig(cfg *config.Config, inputDir, outputDir string) (*Params, error) {
	kind, err := boundary.ParseKind(cfg.Boundary.Kind)
	if err != nil {
		return nil, err
	}
	return &Params{
		InputDir:             inputDir,
		OutputDir:            outputDir,
		Filter:               cfg.Filter.Name,
		Radius:               cfg.Filter.Radius,
		Boundary:             kind,
		Constant:             cfg.Boundary.Constant,
		UseBoundaryCondition: cfg.Boundary.Enabled,
		ObjectValue:          cfg.Filter.ObjectValue,
		Region:               cfg.Filter.Region,
		SliceGap:             cfg.Processing.SliceGap,
		NumWorkers:           cfg.Processing.NumWorkers,
		ChunksPerWorker:      cfg.Processing.ChunksPerWorker,
		Format:               cfg.Output.Format,
		Axes:                 cfg.Output.Axes,
		Metrics:              cfg.Output.Metrics,
	}, nil
}

// Summary describes a completed run.
type Summary struct {
	Volume    region.Region
	Processed region.Region
	Input     region.Region
	Slices    int
	Elapsed   time.Duration
	Stages    map[string]time.Duration
}

// Runner executes the pipeline for one set of Params.
type Runner struct {
	params *Params
	log    *zap.Logger

	input   *ndimage.Image[float64]
	output  *ndimage.Image[float64]
	metrics filters.Metrics
	summary Summary
}

// NewRunner creates a runner. A nil logger disables logging.
func NewRunner(params *Params, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{params: params, log: log}
}

// Process runs the complete pipeline.
func (r *Runner) Process(ctx context.Context) error {
	start := time.Now()
	r.summary = Summary{Stages: make(map[string]time.Duration)}

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"load", r.load},
		{"filter", r.filter},
		{"save", r.save},
		{"metrics", r.compare},
	}
	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.log.Info("stage started", zap.Int("step", i+1), zap.String("stage", s.name))
		t := time.Now()
		if err := s.fn(ctx); err != nil {
			r.log.Error("stage failed", zap.String("stage", s.name), zap.Error(err))
			return fmt.Errorf("%s: %w", s.name, err)
		}
		r.summary.Stages[s.name] = time.Since(t)
	}
	r.summary.Elapsed = time.Since(start)
	r.log.Info("pipeline complete", zap.Duration("elapsed", r.summary.Elapsed))
	return nil
}

func (r *Runner) load(ctx context.Context) error {
	vol, err := volumeio.LoadStack(ctx, r.params.InputDir, r.params.SliceGap)
	if err != nil {
		return err
	}
	if r.params.Region != nil {
		vol.SetRequestedRegion(*r.params.Region)
	}
	r.input = vol
	r.summary.Volume = vol.LargestPossibleRegion()
	r.summary.Processed = vol.RequestedRegion()
	r.log.Info("volume loaded",
		zap.Stringer("image", vol.ID()),
		zap.Stringer("region", vol.LargestPossibleRegion()),
		zap.Float64s("spacing", vol.Spacing()))
	return nil
}

func (r *Runner) filter(ctx context.Context) error {
	cond, err := boundary.New(r.params.Boundary, r.params.Constant)
	if err != nil {
		return err
	}
	exec := parallel.NewExecutor(r.params.NumWorkers)
	if r.params.ChunksPerWorker > 0 {
		exec.ChunksPerWorker = r.params.ChunksPerWorker
	}
	opts := filters.Options[float64]{
		Boundary: cond,
		Executor: exec,
		Progress: r.params.Progress,
		Logger:   r.log,
	}
	radius := region.Filled(r.input.Dim(), r.params.Radius)
	r.summary.Input, err = filters.InputRegion(r.input, r.readRadius(), cond)
	if err != nil {
		return err
	}

	var out *ndimage.Image[float64]
	switch r.params.Filter {
	case config.FilterMean:
		out, err = filters.Mean(ctx, r.input, radius, opts)
	case config.FilterMedian:
		out, err = filters.Median(ctx, r.input, radius, opts)
	case config.FilterStdDev:
		out, err = filters.StdDev(ctx, r.input, radius, opts)
	case config.FilterLaplacian:
		scalings := r.input.Spacing()
		for i := range scalings {
			scalings[i] = 1 / scalings[i]
		}
		var op *operator.Operator
		op, err = operator.Laplacian(r.input.Dim(), scalings)
		if err == nil {
			out, err = filters.Convolve(ctx, r.input, op, opts)
		}
	case config.FilterGradientMagnitude:
		out, err = filters.GradientMagnitude(ctx, r.input, opts)
	case config.FilterObjectBoundary:
		out, err = filters.ObjectBoundary(ctx, r.input, r.params.ObjectValue, r.params.UseBoundaryCondition, opts)
	default:
		err = fmt.Errorf("unknown filter %q", r.params.Filter)
	}
	if err != nil {
		return err
	}
	r.output = out
	r.log.Info("filter applied",
		zap.String("filter", r.params.Filter),
		zap.Int("radius", r.params.Radius),
		zap.String("boundary", string(r.params.Boundary)),
		zap.Stringer("input", r.summary.Input),
		zap.Int("workers", exec.NumWorkers))
	return nil
}

// readRadius is the neighborhood radius the configured filter reads with.
func (r *Runner) readRadius() region.Coord {
	switch r.params.Filter {
	case config.FilterLaplacian, config.FilterGradientMagnitude, config.FilterObjectBoundary:
		return region.Filled(r.input.Dim(), 1)
	}
	return region.Filled(r.input.Dim(), r.params.Radius)
}

func (r *Runner) save(_ context.Context) error {
	if r.params.OutputDir == "" {
		return nil
	}
	normalize(r.output)
	for _, axis := range r.params.Axes {
		dir := filepath.Join(r.params.OutputDir, axis)
		n, err := volumeio.SaveSliceSequence(r.output, axis, dir, r.params.Format)
		if err != nil {
			return fmt.Errorf("saving %s-axis slices: %w", axis, err)
		}
		r.summary.Slices += n
		r.log.Info("slices saved", zap.String("axis", axis), zap.Int("count", n), zap.String("dir", dir))
	}
	return nil
}

func (r *Runner) compare(_ context.Context) error {
	if !r.params.Metrics {
		return nil
	}
	m, err := filters.Compare(r.input, r.output, r.input.RequestedRegion())
	if err != nil {
		return err
	}
	r.metrics = m
	r.log.Info("metrics",
		zap.Float64("rmse", m.RMSE),
		zap.Float64("mae", m.MAE),
		zap.Float64("psnr", m.PSNR),
		zap.Float64("ssim", m.SSIM),
		zap.Float64("entropyDiff", m.EntropyDiff))
	return nil
}

// normalize rescales the pixels of img to [0, 1] when any lie outside it.
func normalize(img *ndimage.Image[float64]) {
	pix := img.BufferPointer()
	if len(pix) == 0 {
		return
	}
	lo, hi := floats.Min(pix), floats.Max(pix)
	if lo >= 0 && hi <= 1 {
		return
	}
	if hi == lo {
		for i := range pix {
			pix[i] = 0
		}
		return
	}
	floats.AddConst(-lo, pix)
	floats.Scale(1/(hi-lo), pix)
}

// Input returns the loaded volume.
func (r *Runner) Input() *ndimage.Image[float64] { return r.input }

// Output returns the filtered volume.
func (r *Runner) Output() *ndimage.Image[float64] { return r.output }

// GetMetrics returns the comparison metrics of the last run.
func (r *Runner) GetMetrics() filters.Metrics { return r.metrics }

// Summary returns the summary of the last run.
func (r *Runner) Summary() Summary { return r.summary }
