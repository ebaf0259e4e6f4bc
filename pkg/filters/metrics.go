package filters

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ndvoxel/pkg/imgerr"
	"ndvoxel/pkg/iterator"
	"ndvoxel/pkg/ndimage"
	"ndvoxel/pkg/region"
)

// Metrics compares a filtered image against a reference over a region.
type Metrics struct {
	// RMSE is the root mean square difference.
	RMSE float64

	// MAE is the mean absolute difference.
	MAE float64

	// PSNR is the peak signal-to-noise ratio in dB, using the reference's
	// value range as the peak. +Inf for identical inputs.
	PSNR float64

	// Correlation is the Pearson correlation of the two images. NaN when
	// either image is constant.
	Correlation float64

	// SSIM is the global structural similarity index for a dynamic range of 1.
	SSIM float64

	// EntropyDiff is the absolute difference of the 256-bin histogram entropies.
	EntropyDiff float64
}

// Compare computes Metrics for r, which must be buffered in both images.
func Compare[T, U ndimage.Real](reference *ndimage.Image[T], result *ndimage.Image[U], r region.Region) (Metrics, error) {
	x, err := collect(reference, r)
	if err != nil {
		return Metrics{}, err
	}
	y, err := collect(result, r)
	if err != nil {
		return Metrics{}, err
	}
	if len(x) == 0 {
		return Metrics{}, imgerr.InvalidArgument("filters.Compare", "empty region")
	}

	var m Metrics
	diff := make([]float64, len(x))
	floats.SubTo(diff, x, y)
	m.RMSE = floats.Norm(diff, 2) / math.Sqrt(float64(len(diff)))
	m.MAE = floats.Norm(diff, 1) / float64(len(diff))

	peak := floats.Max(x) - floats.Min(x)
	switch {
	case m.RMSE == 0:
		m.PSNR = math.Inf(1)
	case peak == 0:
		m.PSNR = 0
	default:
		m.PSNR = 20 * math.Log10(peak/m.RMSE)
	}

	m.Correlation = stat.Correlation(x, y, nil)
	m.SSIM = ssim(x, y)
	m.EntropyDiff = math.Abs(entropy(x) - entropy(y))
	return m, nil
}

func collect[T ndimage.Real](img *ndimage.Image[T], r region.Region) ([]float64, error) {
	it, err := iterator.NewRegionIterator(img, r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, r.NumberOfPixels())
	for it.GoToBegin(); !it.IsAtEnd(); it.Next() {
		out = append(out, float64(it.Get()))
	}
	return out, nil
}

func ssim(x, y []float64) float64 {
	const (
		k1 = 0.01
		k2 = 0.03
	)
	c1 := k1 * k1
	c2 := k2 * k2

	muX := stat.Mean(x, nil)
	muY := stat.Mean(y, nil)
	if len(x) < 2 {
		return (2*muX*muY + c1) / (muX*muX + muY*muY + c1)
	}
	sigmaX := stat.Variance(x, nil)
	sigmaY := stat.Variance(y, nil)
	sigmaXY := stat.Covariance(x, y, nil)

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	return num / den
}

// entropy is the Shannon entropy in bits of a 256-bin histogram of data.
func entropy(data []float64) float64 {
	lo, hi := floats.Min(data), floats.Max(data)
	if hi <= lo {
		return 0
	}
	const numBins = 256
	hist := make([]float64, numBins)
	width := (hi - lo) / numBins
	for _, v := range data {
		b := int((v - lo) / width)
		if b >= numBins {
			b = numBins - 1
		}
		hist[b]++
	}
	floats.Scale(1/float64(len(data)), hist)
	// stat.Entropy uses natural log
	return stat.Entropy(hist) / math.Ln2
}
