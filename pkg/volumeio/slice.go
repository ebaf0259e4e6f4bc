package volumeio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/iterator"
	"ndvoxel/pkg/ndimage"
)

// ParseAxis maps x, y, z (either case) to axes 0, 1, 2.
func ParseAxis(s string) (int, error) {
	switch strings.ToLower(s) {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, imgerr.InvalidArgument("volumeio.ParseAxis", "invalid axis: %s (must be x, y, or z)", s)
}

// planeAxes returns the volume axes shown as image columns and rows when
// slicing across axis.
func planeAxes(axis int) (col, row int) {
	switch axis {
	case 0:
		return 2, 1
	case 1:
		return 0, 2
	default:
		return 0, 1
	}
}

// ExtractSlice extracts the plane at position along axis from the buffered
// region of a 3-D volume. Values are clamped to [0, 1] and scaled to 16 bits.
func ExtractSlice[T ndimage.Real](vol *ndimage.Image[T], axis, position int) (*image.Gray16, error) {
	if vol.Dim() != 3 {
		return nil, imgerr.InvalidArgument("volumeio.ExtractSlice", "volume must be 3-D, got %d-D", vol.Dim())
	}
	if axis < 0 || axis > 2 {
		return nil, imgerr.InvalidArgument("volumeio.ExtractSlice", "axis %d out of range", axis)
	}
	buffered := vol.BufferedRegion()
	if position < 0 || position >= buffered.Size.At(axis) {
		return nil, imgerr.Range("volumeio.ExtractSlice", "position %d outside [0, %d)", position, buffered.Size.At(axis))
	}

	plane := buffered
	plane.Index = plane.Index.With(axis, plane.Index.At(axis)+position)
	plane.Size = plane.Size.With(axis, 1)

	col, row := planeAxes(axis)
	out := image.NewGray16(image.Rect(0, 0, plane.Size.At(col), plane.Size.At(row)))
	it, err := iterator.NewRegionIterator(vol, plane)
	if err != nil {
		return nil, err
	}
	for it.GoToBegin(); !it.IsAtEnd(); it.Next() {
		idx := it.Index()
		v := math.Max(0, math.Min(1, float64(it.Get())))
		out.SetGray16(idx.At(col)-plane.Index.At(col), idx.At(row)-plane.Index.At(row),
			color.Gray16{Y: uint16(math.Round(v * 65535))})
	}
	return out, nil
}

// SaveSlice encodes img to filename. The extension selects the format:
// .png, .jpg/.jpeg, .tif/.tiff or .bmp.
func SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		err = bmp.Encode(file, img)
	default:
		err = fmt.Errorf("unsupported output format: %s", filename)
	}
	if err != nil {
		return err
	}
	return file.Close()
}

// SaveSliceSequence writes every plane along axis to outputDir as
// slice_<axis>_NNN.<format> and returns the number of files written.
func SaveSliceSequence[T ndimage.Real](vol *ndimage.Image[T], axisName, outputDir, format string) (int, error) {
	axis, err := ParseAxis(axisName)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}
	if vol.Dim() != 3 {
		return 0, imgerr.InvalidArgument("volumeio.SaveSliceSequence", "volume must be 3-D, got %d-D", vol.Dim())
	}

	n := vol.BufferedRegion().Size.At(axis)
	for pos := 0; pos < n; pos++ {
		img, err := ExtractSlice(vol, axis, pos)
		if err != nil {
			return pos, err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", strings.ToLower(axisName), pos, format))
		if err := SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}
	return n, nil
}
