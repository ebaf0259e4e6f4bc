package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ndvoxel/pkg/config"
	"ndvoxel/pkg/volumeio"
)

// TestApplyFlags verifies only explicitly set flags override the configuration
func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	filterName := fs.String("filter", "", "")
	radius := fs.Int("radius", -1, "")
	boundaryKind := fs.String("boundary", "", "")
	workers := fs.Int("workers", 0, "")
	gap := fs.Float64("gap", 0, "")
	axes := fs.String("axes", "", "")
	level := fs.String("log-level", "", "")
	if err := fs.Parse([]string{"-filter", "median", "-axes", "x,z"}); err != nil {
		t.Fatal(err)
	}
	applyFlags(cfg, fs, *filterName, *radius, *boundaryKind, *workers, *gap, *axes, *level)

	if cfg.Filter.Name != "median" {
		t.Errorf("Expected filter median, got %s", cfg.Filter.Name)
	}
	if cfg.Filter.Radius != 1 {
		t.Errorf("Expected unset radius to keep default 1, got %d", cfg.Filter.Radius)
	}
	if len(cfg.Output.Axes) != 2 || cfg.Output.Axes[1] != "z" {
		t.Errorf("Expected axes [x z], got %v", cfg.Output.Axes)
	}
}

// TestRunInitConfig verifies -init-config writes a loadable file
func TestRunInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndvoxel.yaml")
	var out bytes.Buffer
	if code := run([]string{"-config", path, "-init-config"}, &out); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if _, err := config.LoadConfig(path); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}

// TestRunEndToEnd runs the command on a small generated stack
func TestRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	for z := 0; z < 3; z++ {
		img := image.NewGray(image.Rect(0, 0, 8, 8))
		for i := range img.Pix {
			img.Pix[i] = uint8(i * (z + 1))
		}
		if err := volumeio.SaveSlice(img, filepath.Join(in, fmt.Sprintf("%d.png", z))); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	args := []string{
		"-config", filepath.Join(tmp, "missing.yaml"),
		"-input", in,
		"-output", filepath.Join(tmp, "out"),
		"-filter", "median",
		"-boundary", "mirror",
		"-workers", "2",
		"-log-level", "error",
	}
	if code := run(args, &out); code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "slices saved") {
		t.Errorf("summary missing saved slices line: %s", out.String())
	}
}

// TestRunMissingInput checks the usage exit code
func TestRunMissingInput(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"-config", filepath.Join(t.TempDir(), "none.yaml")}, &out)
	if code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
}
