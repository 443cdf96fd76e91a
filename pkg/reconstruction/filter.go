package reconstruction

import (
	"iter"

	"github.com/rs/zerolog"

	"mrdrecon/internal/models"
)

// AcquisitionFilter selects genuine signal readouts from a mixed record
// stream. Non-acquisition records and noise measurements are dropped.
type AcquisitionFilter struct {
	// Records counts every record pulled from the input.
	Records int

	// NoiseScans counts acquisitions dropped for the noise flag.
	NoiseScans int

	// OtherRecords counts non-acquisition records.
	OtherRecords int

	logger zerolog.Logger
}

// FilterAcquisitions is the counter-less form of AcquisitionFilter.Apply.
func FilterAcquisitions(records iter.Seq2[models.Record, error]) iter.Seq2[*models.Acquisition, error] {
	f := &AcquisitionFilter{logger: zerolog.Nop()}
	return f.Apply(records)
}

// Apply returns the filtered acquisition sequence. An input error is
// forwarded once and ends the sequence.
func (f *AcquisitionFilter) Apply(records iter.Seq2[models.Record, error]) iter.Seq2[*models.Acquisition, error] {
	return func(yield func(*models.Acquisition, error) bool) {
		for rec, err := range records {
			if err != nil {
				yield(nil, err)
				return
			}
			f.Records++

			acq, ok := rec.Item().(*models.Acquisition)
			if !ok {
				f.OtherRecords++
				continue
			}

			if acq.Head.Flags.Has(models.FlagIsNoiseMeasurement) {
				f.NoiseScans++
				f.logger.Debug().Uint32("scan", acq.Head.ScanCounter).Msg("skipping noise measurement")
				continue
			}

			if !yield(acq, nil) {
				return
			}
		}
	}
}
