package reconstruction

import (
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"mrdrecon/internal/models"
	"mrdrecon/pkg/kspace"
)

// State is the accumulation state of an Accumulator.
type State int

const (
	// StateEmpty means no buffer is allocated.
	StateEmpty State = iota

	// StateAccumulating means a buffer and its reference acquisition are held.
	StateAccumulating
)

func (s State) String() string {
	if s == StateAccumulating {
		return "accumulating"
	}
	return "empty"
}

// Observer receives accumulation events. It is meant for instrumentation
// and tests; implementations must not retain the images slice.
type Observer interface {
	// BufferWritten is called after a readout has been stored.
	BufferWritten(repetition uint32, acq *models.Acquisition)

	// Flushed is called after a buffer has been synthesized.
	Flushed(repetition uint32, images []*models.Image[float32])
}

// Accumulator collects acquisitions of one repetition into a k-space buffer
// and hands the buffer to a Synthesizer when the repetition changes or the
// stream ends. At most one buffer is live at a time.
type Accumulator struct {
	encoded models.MatrixSize
	recon   models.MatrixSize

	contrasts int
	slices    int
	channels  int
	kyOffset  int

	synth *Synthesizer

	state      State
	repetition uint32
	buffer     *kspace.Buffer
	reference  *models.Acquisition

	// Flushes counts the buffers handed to the synthesizer.
	Flushes int

	// Discarded is set when a partial buffer was dropped without synthesis.
	Discarded bool

	observer Observer
	logger   zerolog.Logger
}

// NewAccumulator derives the buffer geometry from the header. It fails if
// the matrix sizes or the recon field of view are missing.
func NewAccumulator(h *models.Header, synth *Synthesizer) (*Accumulator, error) {
	encoded, recon, err := matrixSizes(h)
	if err != nil {
		return nil, err
	}
	if _, err := reconFieldOfView(h); err != nil {
		return nil, err
	}
	if synth == nil {
		return nil, errors.New("accumulator requires a synthesizer")
	}

	limits := h.Encoding[0].EncodingLimits
	kyOffset := 0
	if limits.KSpaceEncodingStep1 != nil {
		kyOffset = int((encoded.Y+1)/2) - int(limits.KSpaceEncodingStep1.Center)
	}

	return &Accumulator{
		encoded:   encoded,
		recon:     recon,
		contrasts: int(limits.Contrast.Count()),
		slices:    int(limits.Slice.Count()),
		channels:  int(h.ReceiverChannels()),
		kyOffset:  kyOffset,
		synth:     synth,
		logger:    zerolog.Nop(),
	}, nil
}

// SetObserver installs o to receive accumulation events.
func (a *Accumulator) SetObserver(o Observer) {
	a.observer = o
}

// State returns the current accumulation state.
func (a *Accumulator) State() State {
	return a.state
}

// Repetition returns the repetition of the live buffer.
func (a *Accumulator) Repetition() uint32 {
	return a.repetition
}

// KyOffset returns the shift applied to kspace_encode_step_1.
func (a *Accumulator) KyOffset() int {
	return a.kyOffset
}

// NeedsFlush reports whether acq starts a new repetition while a buffer is live.
func (a *Accumulator) NeedsFlush(acq *models.Acquisition) bool {
	return a.state == StateAccumulating && acq.Head.Idx.RepetitionIndex() != a.repetition
}

// Add stores acq. If acq belongs to a different repetition than the live
// buffer, that buffer is synthesized first and its images are returned.
func (a *Accumulator) Add(acq *models.Acquisition) ([]*models.Image[float32], error) {
	var images []*models.Image[float32]
	if a.NeedsFlush(acq) {
		var err error
		if images, err = a.Flush(); err != nil {
			return nil, err
		}
	}

	if a.state == StateEmpty {
		if err := a.allocate(acq); err != nil {
			return images, err
		}
	}

	idx := acq.Head.Idx
	contrast := int(idx.ContrastIndex())
	slice := int(idx.SliceIndex())
	kz := int(idx.Step2())
	ky := int(idx.Step1()) + a.kyOffset

	if err := a.buffer.WriteReadout(contrast, slice, kz, ky, acq.Data); err != nil {
		return images, a.writeError(acq, err)
	}
	if a.observer != nil {
		a.observer.BufferWritten(a.repetition, acq)
	}
	return images, nil
}

func (a *Accumulator) allocate(acq *models.Acquisition) error {
	readout := int(a.recon.X)
	if acq.Samples() == int(a.encoded.X) {
		readout = int(a.encoded.X)
	}

	dims := kspace.Dims{
		Contrasts: a.contrasts,
		Slices:    a.slices,
		Channels:  a.channels,
		Kz:        int(a.encoded.Z),
		Ky:        int(a.encoded.Y),
		Kx:        readout,
	}
	buf, err := kspace.NewBuffer(dims)
	if err != nil {
		return fmt.Errorf("failed to allocate k-space buffer: %w", err)
	}

	a.buffer = buf
	a.reference = acq
	a.repetition = acq.Head.Idx.RepetitionIndex()
	a.state = StateAccumulating

	a.logger.Debug().
		Uint32("repetition", a.repetition).
		Str("dims", dims.String()).
		Msg("allocated k-space buffer")
	return nil
}

func (a *Accumulator) writeError(acq *models.Acquisition, err error) error {
	var be *kspace.BoundsError
	if errors.As(err, &be) {
		return &IndexError{
			Field:       be.Axis.String(),
			Index:       be.Index,
			Size:        be.Size,
			ScanCounter: acq.Head.ScanCounter,
		}
	}
	var se *kspace.ShapeError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: scan %d: %v", ErrShapeMismatch, acq.Head.ScanCounter, se)
	}
	return err
}

// Flush synthesizes the live buffer, if any, and returns to StateEmpty.
func (a *Accumulator) Flush() ([]*models.Image[float32], error) {
	if a.state == StateEmpty {
		return nil, nil
	}

	buf, ref, rep := a.buffer, a.reference, a.repetition
	a.buffer, a.reference = nil, nil
	a.state = StateEmpty

	images, err := a.synth.Synthesize(buf, ref)
	if err != nil {
		return nil, fmt.Errorf("repetition %d: %w", rep, err)
	}
	a.Flushes++

	a.logger.Info().
		Uint32("repetition", rep).
		Int("images", len(images)).
		Msg("reconstructed repetition")
	if a.observer != nil {
		a.observer.Flushed(rep, images)
	}
	return images, nil
}

// Discard drops the live buffer without synthesis and reports whether
// there was one.
func (a *Accumulator) Discard() bool {
	if a.state == StateEmpty {
		return false
	}
	a.logger.Warn().
		Uint32("repetition", a.repetition).
		Msg("discarding partially accumulated repetition")
	a.buffer, a.reference = nil, nil
	a.state = StateEmpty
	a.Discarded = true
	return true
}

// Apply runs the accumulator over acqs, yielding images and, when
// passthrough is set, every accepted acquisition as well. A repetition's
// images are yielded before the first readout of the next repetition is
// stored. If the consumer stops early the live buffer is discarded.
func (a *Accumulator) Apply(acqs iter.Seq2[*models.Acquisition, error], passthrough bool) iter.Seq2[models.StreamItem, error] {
	return func(yield func(models.StreamItem, error) bool) {
		emit := func(images []*models.Image[float32]) bool {
			for _, im := range images {
				if !yield(im, nil) {
					return false
				}
			}
			return true
		}

		for acq, err := range acqs {
			if err != nil {
				a.Discard()
				yield(nil, err)
				return
			}

			if a.NeedsFlush(acq) {
				images, err := a.Flush()
				if err != nil {
					yield(nil, err)
					return
				}
				if !emit(images) {
					return
				}
			}

			if passthrough && !yield(acq, nil) {
				a.Discard()
				return
			}

			if _, err := a.Add(acq); err != nil {
				a.Discard()
				yield(nil, err)
				return
			}
		}

		images, err := a.Flush()
		if err != nil {
			yield(nil, err)
			return
		}
		emit(images)
	}
}
