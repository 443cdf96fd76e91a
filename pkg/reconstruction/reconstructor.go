// Package reconstruction implements single-pass streaming reconstruction of
// Cartesian MR acquisitions into magnitude images.
//
// The pipeline is a chain of pull-based sequence transforms:
//
//	records -> AcquisitionFilter -> OversamplingRemover -> Accumulator (+Synthesizer) -> Tag
//
// Memory is bounded by one k-space buffer: a repetition is reconstructed and
// its images emitted before any readout of the next repetition is stored.
package reconstruction

import (
	"iter"

	"github.com/rs/zerolog"

	"mrdrecon/internal/models"
)

// Params holds the reconstruction options.
type Params struct {
	// PassthroughAcquisitions also emits every accepted acquisition, after
	// oversampling removal, ahead of the images.
	PassthroughAcquisitions bool

	// Logger receives pipeline events. Nil disables logging.
	Logger *zerolog.Logger

	// Observer, if set, is notified of buffer writes and flushes.
	Observer Observer
}

// Stats summarizes one run of a Reconstructor.
type Stats struct {
	RecordsRead          int
	AcquisitionsAccepted int
	NoiseScansSkipped    int
	OtherRecordsSkipped  int
	OversamplingRemoved  int
	RepetitionsFlushed   int
	ImagesEmitted        int

	// PartialDiscarded is true when the consumer stopped or the stream
	// failed while a repetition was only partially accumulated.
	PartialDiscarded bool
}

// Reconstructor wires the pipeline stages for one header.
//
// All header preconditions are checked by NewReconstructor, before any
// acquisition is read. A Reconstructor processes a single stream.
type Reconstructor struct {
	params *Params
	header *models.Header

	filter      *AcquisitionFilter
	remover     *OversamplingRemover
	synthesizer *Synthesizer
	accumulator *Accumulator

	accepted int
	images   int
}

// NewReconstructor validates the header and builds the pipeline stages.
func NewReconstructor(h *models.Header, params *Params) (*Reconstructor, error) {
	if params == nil {
		params = &Params{}
	}
	logger := zerolog.Nop()
	if params.Logger != nil {
		logger = *params.Logger
	}

	if err := checkTrajectory(h); err != nil {
		return nil, err
	}
	remover, err := NewOversamplingRemover(h)
	if err != nil {
		return nil, err
	}
	synth, err := NewSynthesizer(h)
	if err != nil {
		return nil, err
	}
	acc, err := NewAccumulator(h, synth)
	if err != nil {
		return nil, err
	}

	filter := &AcquisitionFilter{logger: logger.With().Str("stage", "filter").Logger()}
	remover.logger = logger.With().Str("stage", "oversampling").Logger()
	synth.logger = logger.With().Str("stage", "synthesis").Logger()
	acc.logger = logger.With().Str("stage", "accumulate").Logger()
	acc.SetObserver(params.Observer)

	return &Reconstructor{
		params:      params,
		header:      h,
		filter:      filter,
		remover:     remover,
		synthesizer: synth,
		accumulator: acc,
	}, nil
}

// Process returns the lazily reconstructed output stream for records.
// Nothing is read until the result is iterated. The first error ends the
// stream.
func (r *Reconstructor) Process(records iter.Seq2[models.Record, error]) iter.Seq2[models.Record, error] {
	acqs := r.count(r.remover.Apply(r.filter.Apply(records)))
	items := r.accumulator.Apply(acqs, r.params.PassthroughAcquisitions)

	return func(yield func(models.Record, error) bool) {
		for rec, err := range Tag(items) {
			if err == nil && rec.Kind == models.KindImageFloat {
				r.images++
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

func (r *Reconstructor) count(acqs iter.Seq2[*models.Acquisition, error]) iter.Seq2[*models.Acquisition, error] {
	return func(yield func(*models.Acquisition, error) bool) {
		for acq, err := range acqs {
			if err == nil {
				r.accepted++
			}
			if !yield(acq, err) {
				return
			}
		}
	}
}

// GetStats returns the counters of the run so far.
func (r *Reconstructor) GetStats() Stats {
	return Stats{
		RecordsRead:          r.filter.Records,
		AcquisitionsAccepted: r.accepted,
		NoiseScansSkipped:    r.filter.NoiseScans,
		OtherRecordsSkipped:  r.filter.OtherRecords,
		OversamplingRemoved:  r.remover.Removed,
		RepetitionsFlushed:   r.accumulator.Flushes,
		ImagesEmitted:        r.images,
		PartialDiscarded:     r.accumulator.Discarded,
	}
}

// Records adapts a slice of records to a sequence.
func Records(records []models.Record) iter.Seq2[models.Record, error] {
	return func(yield func(models.Record, error) bool) {
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Collect drains seq, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
