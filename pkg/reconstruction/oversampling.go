package reconstruction

import (
	"iter"

	"github.com/rs/zerolog"

	"mrdrecon/internal/models"
	"mrdrecon/pkg/transform"
)

// OversamplingRemover crops readout oversampling from acquisitions.
//
// A readout whose length equals the encoded x matrix size, when that size
// differs from the recon x size, is transformed to image space along x,
// cropped symmetrically to the recon size and transformed back to k-space.
// Other acquisitions pass through unchanged.
type OversamplingRemover struct {
	encodedX int
	reconX   int

	// Removed counts the acquisitions that were cropped.
	Removed int

	transform *transform.Transform
	line      []complex128
	logger    zerolog.Logger
}

// NewOversamplingRemover reads the readout matrix sizes from the header.
func NewOversamplingRemover(h *models.Header) (*OversamplingRemover, error) {
	encoded, recon, err := matrixSizes(h)
	if err != nil {
		return nil, err
	}
	return &OversamplingRemover{
		encodedX:  int(encoded.X),
		reconX:    int(recon.X),
		transform: transform.NewTransform(),
		logger:    zerolog.Nop(),
	}, nil
}

// Applies reports whether acq would be cropped.
func (o *OversamplingRemover) Applies(acq *models.Acquisition) bool {
	if o.reconX >= o.encodedX || len(acq.Data) == 0 {
		return false
	}
	for _, samples := range acq.Data {
		if len(samples) != o.encodedX {
			return false
		}
	}
	return true
}

// Remove crops acq in place and reports whether it did anything.
// The center sample is rewritten to half the new readout length.
func (o *OversamplingRemover) Remove(acq *models.Acquisition) bool {
	if !o.Applies(acq) {
		return false
	}

	if cap(o.line) < o.encodedX {
		o.line = make([]complex128, o.encodedX)
	}
	line := o.line[:o.encodedX]
	x0 := (o.encodedX - o.reconX) / 2

	for ch, samples := range acq.Data {
		for i, v := range samples {
			line[i] = complex128(v)
		}
		o.transform.KSpaceToImage(line)

		cropped := line[x0 : x0+o.reconX]
		o.transform.ImageToKSpace(cropped)

		out := make([]complex64, o.reconX)
		for i, v := range cropped {
			out[i] = complex64(v)
		}
		acq.Data[ch] = out
	}
	acq.Head.CenterSample = uint32(o.reconX / 2)
	o.Removed++
	return true
}

// Apply returns acqs with oversampling removed.
func (o *OversamplingRemover) Apply(acqs iter.Seq2[*models.Acquisition, error]) iter.Seq2[*models.Acquisition, error] {
	return func(yield func(*models.Acquisition, error) bool) {
		for acq, err := range acqs {
			if err != nil {
				yield(nil, err)
				return
			}
			if o.Remove(acq) {
				o.logger.Debug().
					Uint32("scan", acq.Head.ScanCounter).
					Int("from", o.encodedX).
					Int("to", o.reconX).
					Msg("removed readout oversampling")
			}
			if !yield(acq, nil) {
				return
			}
		}
	}
}
