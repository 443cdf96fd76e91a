package validation

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"mrdrecon/internal/models"
	"mrdrecon/pkg/reconstruction"
	"mrdrecon/pkg/simulation"
)

func TestCompareIdentical(t *testing.T) {
	ref := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	img := []float32{0, 1, 2, 3, 4, 5, 6, 7}

	m, err := Compare(img, ref)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if m.RelativeError != 0 || m.RMSE != 0 || m.EntropyDiff != 0 {
		t.Errorf("expected zero error, got %+v", m)
	}
	if math.Abs(m.SSIM-1) > 1e-12 {
		t.Errorf("expected SSIM 1, got %g", m.SSIM)
	}
	if !math.IsInf(m.MutualInformation, 1) {
		t.Errorf("expected infinite mutual information, got %g", m.MutualInformation)
	}
}

func TestCompareKnownError(t *testing.T) {
	ref := []float64{3, 4, 0, 0}
	img := []float32{3, 4, 0, 1}

	m, err := Compare(img, ref)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	want := Metrics{RelativeError: 0.2, RMSE: 0.5}
	got := Metrics{RelativeError: m.RelativeError, RMSE: m.RMSE}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if m.SSIM >= 1 {
		t.Errorf("expected SSIM below 1, got %g", m.SSIM)
	}
}

func TestCompareShapeMismatch(t *testing.T) {
	if _, err := Compare([]float32{1, 2}, []float64{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := Compare(nil, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for empty input, got %v", err)
	}
}

func TestEntropy(t *testing.T) {
	// Two equally likely values give exactly one bit.
	if got := entropy([]float64{0, 1, 0, 1}); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected 1 bit, got %g", got)
	}
	if got := entropy([]float64{2, 2, 2}); got != 0 {
		t.Errorf("expected 0 for a constant, got %g", got)
	}
}

func TestReferenceFromCoilImages(t *testing.T) {
	// Two coils, 1 row, 4 columns cropped to the central 2.
	coils := [][]complex128{
		{9, 3, 0, 9},
		{9, 4i, 1, 9},
	}
	got, err := ReferenceFromCoilImages(coils, 1, 4, 2)
	if err != nil {
		t.Fatalf("ReferenceFromCoilImages failed: %v", err)
	}
	if diff := cmp.Diff([]float64{5, 1}, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("reference mismatch (-want +got):\n%s", diff)
	}

	if _, err := ReferenceFromCoilImages(coils, 1, 4, 5); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for oversized crop, got %v", err)
	}
	if _, err := ReferenceFromCoilImages(coils, 2, 4, 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for short coil image, got %v", err)
	}
}

func TestValidateNoImages(t *testing.T) {
	if _, err := Validate(nil, []float64{1}, DefaultThreshold); !errors.Is(err, ErrNoImages) {
		t.Errorf("expected ErrNoImages, got %v", err)
	}
}

func reconstruct(t *testing.T, p simulation.Params) ([]*models.Image[float32], []float64) {
	t.Helper()
	d, err := simulation.Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ref, err := DatasetReference(d)
	if err != nil {
		t.Fatalf("DatasetReference failed: %v", err)
	}

	r, err := reconstruction.NewReconstructor(d.Header, nil)
	if err != nil {
		t.Fatalf("NewReconstructor failed: %v", err)
	}
	records, err := reconstruction.Collect(r.Process(d.Records()))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var images []*models.Image[float32]
	for _, rec := range records {
		if rec.Kind == models.KindImageFloat {
			images = append(images, rec.ImageFloat)
		}
	}
	return images, ref
}

func TestValidateNoiselessReconstruction(t *testing.T) {
	p := simulation.DefaultParams()
	p.Matrix = 32
	p.Coils = 4
	p.Repetitions = 2
	p.NoiseLevel = 0

	images, ref := reconstruct(t, p)
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}

	metrics, err := Validate(images, ref, DefaultThreshold)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	for i, m := range metrics {
		if m.SSIM < 0.999999 {
			t.Errorf("image %d: SSIM %g", i, m.SSIM)
		}
	}
}

func TestValidateNoisyReconstructionFails(t *testing.T) {
	p := simulation.DefaultParams()
	p.Matrix = 32
	p.Coils = 4
	p.NoiseLevel = 0.05

	images, ref := reconstruct(t, p)
	metrics, err := Validate(images, ref, DefaultThreshold)
	if !errors.Is(err, ErrThresholdExceeded) {
		t.Fatalf("expected ErrThresholdExceeded, got %v", err)
	}
	if len(metrics) != 1 || metrics[0].RelativeError <= DefaultThreshold {
		t.Errorf("unexpected metrics %+v", metrics)
	}
}

func TestValidateMatrixSizes(t *testing.T) {
	for _, n := range []int{4, 5, 6, 7, 9} {
		t.Run(fmt.Sprintf("matrix %d", n), func(t *testing.T) {
			p := simulation.DefaultParams()
			p.Matrix = n
			p.Coils = 2
			p.NoiseScans = 2
			p.NoiseLevel = 0

			images, ref := reconstruct(t, p)
			if len(images) != 1 {
				t.Fatalf("expected 1 image, got %d", len(images))
			}
			if im := images[0]; im.Rows != n || im.Cols != n {
				t.Fatalf("expected %dx%d image, got %dx%d", n, n, im.Rows, im.Cols)
			}
			if _, err := Validate(images, ref, DefaultThreshold); err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}
