package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ndvoxel/pkg/region"
)

// TestDefaultConfigValid verifies the defaults pass validation
func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

// TestLoadConfigMissingFile verifies defaults are returned when the file does not exist
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Filter.Name != FilterMean {
		t.Errorf("Expected default filter %s, got %s", FilterMean, cfg.Filter.Name)
	}
}

// TestSaveLoadRoundTrip verifies a saved configuration loads back with its region
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ndvoxel.yaml")
	cfg := DefaultConfig()
	cfg.Filter.Name = FilterMedian
	cfg.Filter.Radius = 2
	r := region.MakeRegion(region.NewCoord(1, 2, 0), region.NewCoord(8, 8, 4))
	cfg.Filter.Region = &r
	cfg.Boundary.Kind = "periodic"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Filter.Name != FilterMedian || loaded.Filter.Radius != 2 {
		t.Errorf("filter section not preserved: %+v", loaded.Filter)
	}
	if loaded.Filter.Region == nil || !loaded.Filter.Region.Equal(r) {
		t.Errorf("Expected region %s, got %v", r, loaded.Filter.Region)
	}
	if loaded.Boundary.Kind != "periodic" {
		t.Errorf("Expected periodic boundary, got %s", loaded.Boundary.Kind)
	}
}

// TestLoadConfigPartial verifies unspecified fields keep their defaults
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "filter:\n  name: laplacian\nboundary:\n  kind: mirror\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Filter.Name != FilterLaplacian {
		t.Errorf("Expected laplacian, got %s", cfg.Filter.Name)
	}
	if cfg.Output.Format != "png" {
		t.Errorf("Expected default format png, got %s", cfg.Output.Format)
	}
}

// TestValidate checks the rejected values
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"workers", func(c *Config) { c.Processing.NumWorkers = 0 }, "numWorkers"},
		{"gap", func(c *Config) { c.Processing.SliceGap = 0 }, "sliceGap"},
		{"filter", func(c *Config) { c.Filter.Name = "blur" }, "filter.name"},
		{"radius", func(c *Config) { c.Filter.Radius = -1 }, "radius"},
		{"boundary", func(c *Config) { c.Boundary.Kind = "wrap-around" }, "boundary.kind"},
		{"format", func(c *Config) { c.Output.Format = "gif" }, "output.format"},
		{"axes", func(c *Config) { c.Output.Axes = []string{"w"} }, "output.axes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

// TestLoadConfigInvalidYAML verifies parse errors are reported
func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("filter: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error")
	}
}
