package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"ndvoxel/internal/logging"
	"ndvoxel/pkg/config"
	"ndvoxel/pkg/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("ndvoxel", flag.ContinueOnError)
	configPath := fs.String("config", "ndvoxel.yaml", "Configuration file (defaults are used if it does not exist)")
	initConfig := fs.Bool("init-config", false, "Write a default configuration file to -config and exit")
	inputDir := fs.String("input", "", "Directory containing 2D slices")
	outputDir := fs.String("output", "filtered_slices", "Directory for filtered slices")
	filterName := fs.String("filter", "", "Filter to apply: mean, median, stddev, laplacian, gradient, boundary")
	radius := fs.Int("radius", -1, "Neighborhood radius (overrides config)")
	boundaryKind := fs.String("boundary", "", "Boundary condition: constant, zeroflux, periodic, mirror")
	workers := fs.Int("workers", 0, "Number of worker goroutines (overrides config)")
	sliceGap := fs.Float64("gap", 0, "Inter-slice gap in mm (overrides config)")
	axes := fs.String("axes", "", "Comma separated output axes, e.g. x,y,z")
	logLevel := fs.String("log-level", "", "Log level (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Default configuration written to %s\n", *configPath)
		return 0
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	applyFlags(cfg, fs, *filterName, *radius, *boundaryKind, *workers, *sliceGap, *axes, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	if *inputDir == "" {
		fs.Usage()
		return 2
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	params, err := pipeline.ParamsFromConfig(cfg, *inputDir, *outputDir)
	if err != nil {
		logger.Error("invalid parameters", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(params, logger)
	if err := runner.Process(ctx); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(stdout, "Filtering failed: %v\n", err)
		return 1
	}

	printSummary(stdout, params, runner)
	return 0
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, filterName string, radius int, boundaryKind string, workers int, sliceGap float64, axes, logLevel string) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["filter"] {
		cfg.Filter.Name = filterName
	}
	if set["radius"] {
		cfg.Filter.Radius = radius
	}
	if set["boundary"] {
		cfg.Boundary.Kind = boundaryKind
	}
	if set["workers"] {
		cfg.Processing.NumWorkers = workers
	}
	if set["gap"] {
		cfg.Processing.SliceGap = sliceGap
	}
	if set["axes"] {
		cfg.Output.Axes = strings.Split(axes, ",")
	}
	if set["log-level"] {
		cfg.Logging.Level = logLevel
	}
}

func printSummary(w io.Writer, params *pipeline.Params, runner *pipeline.Runner) {
	header := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgHiBlack)
	ok := color.New(color.FgGreen, color.Bold)

	sum := runner.Summary()
	header.Fprintln(w, "ndvoxel")
	fmt.Fprintln(w, "================================")
	label.Fprint(w, "Volume:     ")
	fmt.Fprintln(w, sum.Volume)
	label.Fprint(w, "Processed:  ")
	fmt.Fprintln(w, sum.Processed)
	label.Fprint(w, "Input:      ")
	fmt.Fprintln(w, sum.Input)
	label.Fprint(w, "Filter:     ")
	fmt.Fprintf(w, "%s (radius %d, %s boundary)\n", params.Filter, params.Radius, params.Boundary)
	label.Fprint(w, "Workers:    ")
	fmt.Fprintln(w, params.NumWorkers)
	for _, stage := range []string{"load", "filter", "save", "metrics"} {
		label.Fprintf(w, "%-11s ", stage+":")
		fmt.Fprintf(w, "%.3fs\n", sum.Stages[stage].Seconds())
	}

	if params.Metrics {
		m := runner.GetMetrics()
		header.Fprintln(w, "\nComparison with input")
		fmt.Fprintf(w, "RMSE:        %.6f\n", m.RMSE)
		fmt.Fprintf(w, "MAE:         %.6f\n", m.MAE)
		fmt.Fprintf(w, "PSNR:        %.2f dB\n", m.PSNR)
		fmt.Fprintf(w, "Correlation: %.3f\n", m.Correlation)
		fmt.Fprintf(w, "SSIM:        %.3f\n", m.SSIM)
		fmt.Fprintf(w, "Entropy diff: %.3f\n", m.EntropyDiff)
	}

	if sum.Slices > 0 {
		abs, err := filepath.Abs(params.OutputDir)
		if err != nil {
			abs = params.OutputDir
		}
		fmt.Fprintf(w, "\n%d slices saved to %s\n", sum.Slices, abs)
	}
	ok.Fprintf(w, "\nCompleted in %.2f seconds\n", sum.Elapsed.Seconds())
}
