// Package volumeio reads directories of 2-D slices into 3-D images and
// writes 3-D images back out as slice sequences.
//
// Volumes use axis 0 for image columns (x), axis 1 for rows (y) and axis 2
// for the slice number (z). Intensities are normalised to [0, 1].
package volumeio

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

var decoders = map[string]func(f *os.File) (image.Image, error){
	".png":  func(f *os.File) (image.Image, error) { return png.Decode(f) },
	".jpg":  func(f *os.File) (image.Image, error) { return jpeg.Decode(f) },
	".jpeg": func(f *os.File) (image.Image, error) { return jpeg.Decode(f) },
	".tif":  func(f *os.File) (image.Image, error) { return tiff.Decode(f) },
	".tiff": func(f *os.File) (image.Image, error) { return tiff.Decode(f) },
	".bmp":  func(f *os.File) (image.Image, error) { return bmp.Decode(f) },
}

// IsSliceFile reports whether name has a supported image extension.
func IsSliceFile(name string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ListSlices returns the slice files in dir in natural numeric order: by the
// last run of digits in the file name, then by name.
func ListSlices(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsSliceFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}
	slices.SortStableFunc(names, func(a, b string) int {
		if c := cmp.Compare(sliceNumber(a), sliceNumber(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return names, nil
}

// sliceNumber extracts the last run of digits in the base name, or -1.
func sliceNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	end := -1
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] >= '0' && base[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return -1
	}
	start := end - 1
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return -1
	}
	return n
}

// DecodeFile decodes a single slice image, choosing the decoder by extension.
func DecodeFile(path string) (image.Image, error) {
	dec, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// LoadStack decodes every slice in dir and stacks them along axis 2.
// sliceGap becomes the axis 2 spacing. Slices are decoded concurrently.
func LoadStack(ctx context.Context, dir string, sliceGap float64) (*ndimage.Image[float64], error) {
	names, err := ListSlices(dir)
	if err != nil {
		return nil, err
	}

	imgs := make([]image.Image, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := DecodeFile(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vol, err := FromImages(imgs)
	if err != nil {
		return nil, fmt.Errorf("stacking %s: %w", dir, err)
	}
	if err := vol.SetSpacing([]float64{1, 1, sliceGap}); err != nil {
		return nil, err
	}
	return vol, nil
}

// FromImages stacks equally sized images into a volume.
func FromImages(imgs []image.Image) (*ndimage.Image[float64], error) {
	if len(imgs) == 0 {
		return nil, imgerr.InvalidArgument("volumeio.FromImages", "no images")
	}
	b0 := imgs[0].Bounds()
	w, h := b0.Dx(), b0.Dy()
	for i, img := range imgs {
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			return nil, imgerr.InvalidArgument("volumeio.FromImages",
				"slice %d is %dx%d, expected %dx%d", i, b.Dx(), b.Dy(), w, h)
		}
	}

	vol, err := ndimage.NewAllocated[float64](region.FromSize(w, h, len(imgs)))
	if err != nil {
		return nil, err
	}
	pix := vol.BufferPointer()
	plane := w * h
	for z, img := range imgs {
		b := img.Bounds()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				pix[z*plane+y*w+x] = float64(g.Y) / 65535.0
			}
		}
	}
	return vol, nil
}
