// Package validation measures reconstruction quality against a noiseless
// reference image.
package validation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mrdrecon/internal/models"
)

// DefaultThreshold is the largest relative L2 error a noiseless
// reconstruction may have.
const DefaultThreshold = 2e-5

var (
	// ErrShapeMismatch is returned when an image and its reference differ in size.
	ErrShapeMismatch = errors.New("image and reference differ in size")

	// ErrNoImages is returned by Validate when there is nothing to check.
	ErrNoImages = errors.New("no images to validate")

	// ErrThresholdExceeded is returned by Validate when an image is too far
	// from the reference.
	ErrThresholdExceeded = errors.New("relative error above threshold")
)

// Metrics holds the quality metrics of one image.
type Metrics struct {
	// RelativeError is ||image - reference|| / ||reference|| in the L2 norm.
	RelativeError float64

	// RMSE is the root mean square pixel difference.
	RMSE float64

	// SSIM is the global structural similarity index, with the dynamic
	// range taken from the reference.
	SSIM float64

	// MutualInformation is the Gaussian approximation
	// 0.5*log(var(x)var(y) / (var(x)var(y) - cov(x,y)^2)). It is +Inf for
	// perfectly correlated images.
	MutualInformation float64

	// EntropyDiff is the absolute difference of the 256-bin Shannon
	// entropies, in bits.
	EntropyDiff float64
}

// Compare computes the metrics of image against reference.
func Compare(image []float32, reference []float64) (Metrics, error) {
	if len(image) != len(reference) || len(image) == 0 {
		return Metrics{}, fmt.Errorf("%w: %d vs %d pixels", ErrShapeMismatch, len(image), len(reference))
	}

	recon := make([]float64, len(image))
	for i, v := range image {
		recon[i] = float64(v)
	}

	var m Metrics
	diff := floats.Distance(recon, reference, 2)
	if norm := floats.Norm(reference, 2); norm > 0 {
		m.RelativeError = diff / norm
	} else {
		m.RelativeError = diff
	}
	m.RMSE = diff / math.Sqrt(float64(len(recon)))
	m.SSIM = ssim(reference, recon)
	m.MutualInformation = mutualInformation(reference, recon)
	m.EntropyDiff = math.Abs(entropy(reference) - entropy(recon))
	return m, nil
}

// Validate compares every image with reference and fails with
// ErrThresholdExceeded when any relative error reaches threshold.
// The metrics of all images are returned either way.
func Validate(images []*models.Image[float32], reference []float64, threshold float64) ([]Metrics, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	out := make([]Metrics, 0, len(images))
	var failed error
	for i, im := range images {
		m, err := Compare(im.Data, reference)
		if err != nil {
			return out, fmt.Errorf("image %d: %w", i, err)
		}
		out = append(out, m)
		if failed == nil && !(m.RelativeError < threshold) {
			failed = fmt.Errorf("%w: image %d has %g, limit %g", ErrThresholdExceeded, i, m.RelativeError, threshold)
		}
	}
	return out, failed
}

// ssim computes the single-window structural similarity index.
func ssim(x, y []float64) float64 {
	const k1, k2 = 0.01, 0.03

	l := floats.Max(x) - floats.Min(x)
	if l == 0 {
		l = 1
	}
	c1 := (k1 * l) * (k1 * l)
	c2 := (k2 * l) * (k2 * l)

	muX := stat.Mean(x, nil)
	muY := stat.Mean(y, nil)
	sigmaX := stat.Variance(x, nil)
	sigmaY := stat.Variance(y, nil)
	sigmaXY := stat.Covariance(x, y, nil)

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	if den > 0 {
		return num / den
	}
	return 0
}

func mutualInformation(x, y []float64) float64 {
	varX := stat.Variance(x, nil)
	varY := stat.Variance(y, nil)
	if varX <= 0 || varY <= 0 {
		return 0
	}
	cov := stat.Covariance(x, y, nil)
	det := varX*varY - cov*cov
	if det <= 1e-12*varX*varY {
		return math.Inf(1)
	}
	return 0.5 * math.Log(varX*varY/det)
}

// entropy returns the Shannon entropy in bits of a 256-bin histogram of data.
func entropy(data []float64) float64 {
	const bins = 256

	lo, hi := floats.Min(data), floats.Max(data)
	if hi <= lo {
		return 0
	}

	p := make([]float64, bins)
	width := (hi - lo) / bins
	for _, v := range data {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		p[b]++
	}
	floats.Scale(1/float64(len(data)), p)

	return stat.Entropy(p) / math.Ln2
}
