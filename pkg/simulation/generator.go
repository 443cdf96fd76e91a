package simulation

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"mrdrecon/internal/models"
	"mrdrecon/pkg/transform"
)

// ErrInvalidParams is returned by Generate for unusable parameters.
var ErrInvalidParams = errors.New("invalid simulation parameters")

// CoilRelativeRadius is the birdcage radius relative to the half field of view.
const CoilRelativeRadius = 1.5

// Params holds the dataset simulation parameters.
type Params struct {
	Matrix       int     // recon matrix size along x and y
	Coils        int     // receive channels
	Oversampling int     // readout oversampling factor
	Repetitions  int     // times the full k-space is sampled
	NoiseLevel   float64 // standard deviation of the complex Gaussian noise
	NoiseScans   int     // noise-only acquisitions ahead of the image data
	Seed         uint64  // noise generator seed

	FieldOfView    float32 // mm, along x and y
	SliceThickness float32 // mm

	Logger *zerolog.Logger
}

// DefaultParams returns the parameters of the standard test dataset.
func DefaultParams() Params {
	return Params{
		Matrix:         256,
		Coils:          8,
		Oversampling:   2,
		Repetitions:    1,
		NoiseLevel:     0.05,
		NoiseScans:     32,
		Seed:           1,
		FieldOfView:    300,
		SliceThickness: 5,
	}
}

// Validate checks that the parameters describe a dataset.
func (p Params) Validate() error {
	switch {
	case p.Matrix < 2:
		return fmt.Errorf("%w: matrix %d", ErrInvalidParams, p.Matrix)
	case p.Coils < 1:
		return fmt.Errorf("%w: coils %d", ErrInvalidParams, p.Coils)
	case p.Oversampling < 1:
		return fmt.Errorf("%w: oversampling %d", ErrInvalidParams, p.Oversampling)
	case p.Repetitions < 1:
		return fmt.Errorf("%w: repetitions %d", ErrInvalidParams, p.Repetitions)
	case p.NoiseLevel < 0 || math.IsNaN(p.NoiseLevel):
		return fmt.Errorf("%w: noise level %g", ErrInvalidParams, p.NoiseLevel)
	case p.NoiseScans < 0:
		return fmt.Errorf("%w: noise scans %d", ErrInvalidParams, p.NoiseScans)
	case p.FieldOfView <= 0 || p.SliceThickness <= 0:
		return fmt.Errorf("%w: field of view %gx%g", ErrInvalidParams, p.FieldOfView, p.SliceThickness)
	}
	return nil
}

// Dataset is a simulated single-slice Cartesian scan.
type Dataset struct {
	Header *models.Header

	// CoilImages holds the noiseless coil images, zero padded along x to the
	// encoded readout length and indexed [coil][y*ReadoutLength()+x].
	CoilImages [][]complex128

	kspace [][]complex128
	params Params
	logger zerolog.Logger
}

// Generate builds the header, coil images and k-space of a dataset.
// Records are produced lazily by Dataset.Records.
func Generate(p Params) (*Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if p.Logger != nil {
		logger = *p.Logger
	}

	n := p.Matrix
	nkx := p.Oversampling * n
	padding := (nkx - n) / 2

	phantom := SheppLoganPhantom(n)
	sensitivities := BirdcageSensitivities(n, p.Coils, CoilRelativeRadius)

	images := make([][]complex128, p.Coils)
	kspace := make([][]complex128, p.Coils)
	tr := transform.NewTransform()
	for c := range images {
		img := make([]complex128, n*nkx)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				img[y*nkx+padding+x] = phantom[y*n+x] * sensitivities[c][y*n+x]
			}
		}
		images[c] = img

		k := append([]complex128(nil), img...)
		if err := tr.ImageToKSpaceND(k, []int{n, nkx}, 0, 1); err != nil {
			return nil, fmt.Errorf("failed to transform coil %d: %w", c, err)
		}
		kspace[c] = k
	}

	logger.Debug().
		Int("matrix", n).
		Int("readout", nkx).
		Int("coils", p.Coils).
		Msg("generated coil k-space")

	return &Dataset{
		Header:     header(p),
		CoilImages: images,
		kspace:     kspace,
		params:     p,
		logger:     logger,
	}, nil
}

func header(p Params) *models.Header {
	n := uint32(p.Matrix)
	nkx := uint32(p.Oversampling) * n
	reps := uint32(p.Repetitions)

	return &models.Header{
		SubjectInformation: &models.SubjectInformation{
			PatientName: "John Doe",
			PatientID:   "1234BGVF",
		},
		AcquisitionSystemInformation: &models.AcquisitionSystemInformation{
			ReceiverChannels: models.Uint32(uint32(p.Coils)),
		},
		H1ResonanceFrequencyHz: 128000000,
		Encoding: []models.Encoding{{
			Trajectory: models.TrajectoryCartesian,
			EncodedSpace: models.EncodingSpace{
				MatrixSize: &models.MatrixSize{X: nkx, Y: n, Z: 1},
				FieldOfViewMm: &models.FieldOfViewMm{
					X: float32(p.Oversampling) * p.FieldOfView,
					Y: p.FieldOfView,
					Z: p.SliceThickness,
				},
			},
			ReconSpace: models.EncodingSpace{
				MatrixSize:    &models.MatrixSize{X: n, Y: n, Z: 1},
				FieldOfViewMm: &models.FieldOfViewMm{X: p.FieldOfView, Y: p.FieldOfView, Z: p.SliceThickness},
			},
			EncodingLimits: models.EncodingLimits{
				KSpaceEncodingStep1: &models.Limit{Minimum: 0, Maximum: n - 1, Center: centerLine(n)},
				Repetition:          &models.Limit{Minimum: 0, Maximum: reps - 1, Center: roundHalf(reps)},
			},
		}},
	}
}

// centerLine is the step-1 center that places line i at buffer row i: the
// reconstructor offsets lines by (n+1)/2 - center.
func centerLine(n uint32) uint32 {
	return (n + 1) / 2
}

// roundHalf rounds v/2 to the nearest integer, ties to even.
func roundHalf(v uint32) uint32 {
	return uint32(math.RoundToEven(float64(v) / 2))
}

// ReadoutLength returns the number of samples per readout.
func (d *Dataset) ReadoutLength() int {
	return d.params.Oversampling * d.params.Matrix
}

// Params returns the parameters the dataset was generated with.
func (d *Dataset) Params() Params {
	return d.params
}

// Records returns the acquisition stream: the noise scans followed by one
// readout per phase-encoding line and repetition. Noise is drawn from a
// source seeded with Params.Seed, so every iteration yields the same data.
// Each record carries a freshly allocated acquisition.
func (d *Dataset) Records() iter.Seq2[models.Record, error] {
	return func(yield func(models.Record, error) bool) {
		p := d.params
		nky := p.Matrix
		nkx := d.ReadoutLength()
		noise := distuv.Normal{Mu: 0, Sigma: p.NoiseLevel, Src: rand.NewSource(p.Seed)}

		var scan uint32
		next := func(flags models.AcquisitionFlags) *models.Acquisition {
			acq := d.newAcquisition(scan, flags)
			scan++
			return acq
		}

		for i := 0; i < p.NoiseScans; i++ {
			acq := next(models.FlagIsNoiseMeasurement)
			for c := range acq.Data {
				d.addNoise(acq.Data[c], &noise)
			}
			if !yield(models.AcquisitionRecord(acq), nil) {
				return
			}
		}

		for rep := 0; rep < p.Repetitions; rep++ {
			for line := 0; line < nky; line++ {
				var flags models.AcquisitionFlags
				if line == 0 {
					flags |= models.FlagFirstInEncodeStep1 | models.FlagFirstInSlice | models.FlagFirstInRepetition
				}
				if line == nky-1 {
					flags |= models.FlagLastInEncodeStep1 | models.FlagLastInSlice | models.FlagLastInRepetition
				}
				if rep == p.Repetitions-1 && line == nky-1 {
					flags |= models.FlagLastInMeasurement
				}

				acq := next(flags)
				acq.Head.Idx = models.EncodingCounters{
					KSpaceEncodeStep1: models.Uint32(uint32(line)),
					KSpaceEncodeStep2: models.Uint32(0),
					Slice:             models.Uint32(0),
					Repetition:        models.Uint32(uint32(rep)),
				}
				for c := range acq.Data {
					row := d.kspace[c][line*nkx : (line+1)*nkx]
					for x, v := range row {
						acq.Data[c][x] = complex64(v)
					}
					d.addNoise(acq.Data[c], &noise)
				}

				if !yield(models.AcquisitionRecord(acq), nil) {
					return
				}
			}
			d.logger.Debug().Int("repetition", rep).Msg("generated repetition")
		}
	}
}

func (d *Dataset) newAcquisition(scan uint32, flags models.AcquisitionFlags) *models.Acquisition {
	coils := d.params.Coils
	nkx := d.ReadoutLength()

	order := make([]uint32, coils)
	data := make([][]complex64, coils)
	for c := range data {
		order[c] = uint32(c)
		data[c] = make([]complex64, nkx)
	}

	return &models.Acquisition{
		Head: models.AcquisitionHeader{
			Flags:        flags,
			ScanCounter:  scan,
			ChannelOrder: order,
			CenterSample: roundHalf(uint32(nkx)),
			ReadDir:      [3]float32{1, 0, 0},
			PhaseDir:     [3]float32{0, 1, 0},
			SliceDir:     [3]float32{0, 0, 1},
		},
		Data: data,
	}
}

func (d *Dataset) addNoise(samples []complex64, noise *distuv.Normal) {
	if d.params.NoiseLevel == 0 {
		return
	}
	for i := range samples {
		samples[i] += complex64(complex(noise.Rand(), noise.Rand()))
	}
}
