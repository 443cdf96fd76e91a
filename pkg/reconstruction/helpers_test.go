package reconstruction

import (
	"math"

	"mrdrecon/internal/models"
)

// testHeader builds a single-encoding header.
func testHeader(encoded, recon models.MatrixSize, channels uint32) *models.Header {
	return &models.Header{
		AcquisitionSystemInformation: &models.AcquisitionSystemInformation{
			ReceiverChannels: models.Uint32(channels),
		},
		Encoding: []models.Encoding{{
			EncodedSpace: models.EncodingSpace{
				MatrixSize:    &encoded,
				FieldOfViewMm: &models.FieldOfViewMm{X: 2 * 300, Y: 300, Z: 5},
			},
			ReconSpace: models.EncodingSpace{
				MatrixSize:    &recon,
				FieldOfViewMm: &models.FieldOfViewMm{X: 300, Y: 300, Z: 5},
			},
			EncodingLimits: models.EncodingLimits{
				KSpaceEncodingStep1: &models.Limit{
					Minimum: 0,
					Center:  (encoded.Y + 1) / 2,
					Maximum: encoded.Y - 1,
				},
			},
		}},
	}
}

// readout builds a readout whose samples are a deterministic function of
// every index, so misplaced writes show up in comparisons.
func readout(channels, samples int, rep, contrast, slice, kz, ky uint32) [][]complex64 {
	data := make([][]complex64, channels)
	for ch := range data {
		data[ch] = make([]complex64, samples)
		for x := range data[ch] {
			seed := float64(x+1) + 3*float64(ky) + 5*float64(kz) + 7*float64(slice) +
				11*float64(contrast) + 13*float64(rep) + 17*float64(ch)
			data[ch][x] = complex64(complex(math.Sin(seed), math.Cos(1.3*seed)))
		}
	}
	return data
}

func acquisition(rep, contrast, slice, kz, ky uint32, data [][]complex64) *models.Acquisition {
	return &models.Acquisition{
		Head: models.AcquisitionHeader{
			ScanCounter: 1000*rep + ky,
			Idx: models.EncodingCounters{
				Repetition:        models.Uint32(rep),
				Contrast:          models.Uint32(contrast),
				Slice:             models.Uint32(slice),
				KSpaceEncodeStep2: models.Uint32(kz),
				KSpaceEncodeStep1: models.Uint32(ky),
			},
		},
		Data: data,
	}
}

// fullyPopulated returns the records of a complete dataset for h, one
// readout per (rep, contrast, slice, kz, ky).
func fullyPopulated(h *models.Header, reps int) []models.Record {
	enc := h.Encoding[0]
	ms := enc.EncodedSpace.MatrixSize
	lim := enc.EncodingLimits
	channels := int(h.ReceiverChannels())

	var records []models.Record
	for rep := 0; rep < reps; rep++ {
		for c := uint32(0); c < lim.Contrast.Count(); c++ {
			for s := uint32(0); s < lim.Slice.Count(); s++ {
				for kz := uint32(0); kz < ms.Z; kz++ {
					for ky := uint32(0); ky < ms.Y; ky++ {
						data := readout(channels, int(ms.X), uint32(rep), c, s, kz, ky)
						records = append(records, models.AcquisitionRecord(
							acquisition(uint32(rep), c, s, kz, ky, data)))
					}
				}
			}
		}
	}
	return records
}

func imagesOf(records []models.Record) []*models.Image[float32] {
	var out []*models.Image[float32]
	for _, rec := range records {
		if rec.Kind == models.KindImageFloat {
			out = append(out, rec.ImageFloat)
		}
	}
	return out
}

func maxAbsDiff(a, b []float32) float64 {
	var m float64
	for i := range a {
		if d := math.Abs(float64(a[i] - b[i])); d > m {
			m = d
		}
	}
	return m
}
