package reconstruction

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"mrdrecon/internal/models"
	"mrdrecon/pkg/kspace"
	"mrdrecon/pkg/transform"
)

// Synthesizer turns a completed k-space buffer into magnitude images.
//
// For every (contrast, slice) volume of the buffer it:
//  1. transforms x and y (and z when the buffer has more than one kz
//     partition) from k-space to image space,
//  2. combines channels by root sum of squares,
//  3. center-crops each spatial axis to the recon matrix size,
//  4. builds the image header from the reference acquisition.
//
// The image index counter lives here, so it keeps increasing across every
// buffer the synthesizer is given.
type Synthesizer struct {
	recon models.MatrixSize
	fov   models.FieldOfViewMm

	imageIndex uint32

	transform *transform.Transform
	logger    zerolog.Logger
}

// NewSynthesizer reads the recon matrix size and field of view from the header.
func NewSynthesizer(h *models.Header) (*Synthesizer, error) {
	_, recon, err := matrixSizes(h)
	if err != nil {
		return nil, err
	}
	fov, err := reconFieldOfView(h)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{
		recon:     recon,
		fov:       fov,
		transform: transform.NewTransform(),
		logger:    zerolog.Nop(),
	}, nil
}

// NextImageIndex returns the index the next synthesized image will carry.
func (s *Synthesizer) NextImageIndex() uint32 {
	return s.imageIndex
}

// Synthesize reconstructs buf. Images are returned contrast-major,
// slice-minor. buf is transformed in place and must not be reused.
func (s *Synthesizer) Synthesize(buf *kspace.Buffer, ref *models.Acquisition) ([]*models.Image[float32], error) {
	d := buf.Dims()
	volumeShape := []int{d.Channels, d.Kz, d.Ky, d.Kx}
	axes := []int{3, 2}
	is3D := d.Kz > 1
	if is3D {
		axes = append(axes, 1)
	}

	xw, err := cropWindow("x", d.Kx, int(s.recon.X))
	if err != nil {
		return nil, err
	}
	yw, err := cropWindow("y", d.Ky, int(s.recon.Y))
	if err != nil {
		return nil, err
	}
	zw := window{offset: 0, length: 1}
	if is3D {
		if zw, err = cropWindow("z", d.Kz, int(s.recon.Z)); err != nil {
			return nil, err
		}
	}

	images := make([]*models.Image[float32], 0, d.Contrasts*d.Slices)
	combined := make([]float64, d.Kz*d.Ky*d.Kx)

	for contrast := 0; contrast < d.Contrasts; contrast++ {
		for slice := 0; slice < d.Slices; slice++ {
			volume := buf.Volume(contrast, slice)
			if err := s.transform.KSpaceToImageND(volume, volumeShape, axes...); err != nil {
				return nil, fmt.Errorf("failed to transform contrast %d slice %d: %w", contrast, slice, err)
			}

			sumOfSquares(combined, volume, d.Channels)

			im := models.NewImage[float32](1, zw.length, yw.length, xw.length)
			for z := 0; z < zw.length; z++ {
				for y := 0; y < yw.length; y++ {
					row := ((zw.offset+z)*d.Ky + yw.offset + y) * d.Kx
					dst := im.Data[im.Index(0, z, y, 0):]
					for x := 0; x < xw.length; x++ {
						dst[x] = float32(combined[row+xw.offset+x])
					}
				}
			}

			im.Head = s.imageHeader(ref, uint32(contrast))
			images = append(images, im)
		}
	}

	s.logger.Debug().
		Str("dims", d.String()).
		Int("images", len(images)).
		Uint32("next_index", s.imageIndex).
		Msg("synthesized images")
	return images, nil
}

// sumOfSquares writes sqrt(sum over channels of |v|^2) for each voxel of a
// [channel, z, y, x] volume into dst.
func sumOfSquares(dst []float64, volume []complex128, channels int) {
	n := len(dst)
	for i := range dst {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			v := volume[ch*n+i]
			sum += real(v)*real(v) + imag(v)*imag(v)
		}
		dst[i] = math.Sqrt(sum)
	}
}

type window struct {
	offset int
	length int
}

// cropWindow centers target samples inside current samples.
func cropWindow(axis string, current, target int) (window, error) {
	if target <= 0 || target > current {
		return window{}, fmt.Errorf("%w: recon %s size %d does not fit synthesized extent %d",
			ErrIndexOutOfRange, axis, target, current)
	}
	return window{
		offset: (current+1)/2 - (target+1)/2,
		length: target,
	}, nil
}

func (s *Synthesizer) imageHeader(ref *models.Acquisition, contrast uint32) models.ImageHeader {
	rh := &ref.Head
	reconZ := s.recon.Z
	if reconZ == 0 {
		reconZ = 1
	}

	h := models.ImageHeader{
		ImageType:      models.ImageTypeMagnitude,
		MeasurementUID: rh.MeasurementUID,
		FieldOfView:    [3]float32{s.fov.X, s.fov.Y, s.fov.Z / float32(reconZ)},

		Position:             rh.Position,
		ColDir:               rh.ReadDir,
		LineDir:              rh.PhaseDir,
		SliceDir:             rh.SliceDir,
		PatientTablePosition: rh.PatientTablePosition,

		Average:    copyIndex(rh.Idx.Average),
		Slice:      copyIndex(rh.Idx.Slice),
		Contrast:   models.Uint32(contrast),
		Phase:      copyIndex(rh.Idx.Phase),
		Repetition: copyIndex(rh.Idx.Repetition),
		Set:        copyIndex(rh.Idx.Set),

		AcquisitionTimeStampNs: rh.AcquisitionTimeStampNs,
		PhysiologyTimeStampNs:  append([]uint64(nil), rh.PhysiologyTimeStampNs...),

		ImageIndex: s.imageIndex,

		UserInt:   append([]int32(nil), rh.UserInt...),
		UserFloat: append([]float32(nil), rh.UserFloat...),
	}
	s.imageIndex++
	return h
}

func copyIndex(p *uint32) *uint32 {
	if p == nil {
		return nil
	}
	return models.Uint32(*p)
}
