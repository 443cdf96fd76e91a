package models

import "fmt"

// StreamItem is a value that can travel through the reconstruction stream.
// The set of implementations is closed to this package.
type StreamItem interface {
	streamItem()
}

func (*Acquisition) streamItem() {}
func (*Waveform) streamItem()    {}
func (*Image[T]) streamItem()    {}

// RecordKind is the explicit discriminant of a Record.
type RecordKind int

const (
	KindAcquisition RecordKind = iota + 1
	KindWaveform
	KindImageUint16
	KindImageFloat
	KindImageComplexFloat
)

func (k RecordKind) String() string {
	switch k {
	case KindAcquisition:
		return "Acquisition"
	case KindWaveform:
		return "Waveform"
	case KindImageUint16:
		return "ImageUint16"
	case KindImageFloat:
		return "ImageFloat"
	case KindImageComplexFloat:
		return "ImageComplexFloat"
	}
	return fmt.Sprintf("RecordKind(%d)", int(k))
}

// Record is one decoded (or to-be-encoded) item of an MRD stream. Exactly
// the field selected by Kind is populated.
type Record struct {
	Kind RecordKind

	Acquisition       *Acquisition
	Waveform          *Waveform
	ImageUint16       *Image[uint16]
	ImageFloat        *Image[float32]
	ImageComplexFloat *Image[complex64]
}

// Item returns the populated payload of the record, or nil when the kind is
// unknown or its payload is missing.
func (r Record) Item() StreamItem {
	switch r.Kind {
	case KindAcquisition:
		if r.Acquisition != nil {
			return r.Acquisition
		}
	case KindWaveform:
		if r.Waveform != nil {
			return r.Waveform
		}
	case KindImageUint16:
		if r.ImageUint16 != nil {
			return r.ImageUint16
		}
	case KindImageFloat:
		if r.ImageFloat != nil {
			return r.ImageFloat
		}
	case KindImageComplexFloat:
		if r.ImageComplexFloat != nil {
			return r.ImageComplexFloat
		}
	}
	return nil
}

// AcquisitionRecord wraps an acquisition.
func AcquisitionRecord(a *Acquisition) Record {
	return Record{Kind: KindAcquisition, Acquisition: a}
}

// WaveformRecord wraps a waveform.
func WaveformRecord(w *Waveform) Record {
	return Record{Kind: KindWaveform, Waveform: w}
}

// ImageFloatRecord wraps a floating-point image.
func ImageFloatRecord(im *Image[float32]) Record {
	return Record{Kind: KindImageFloat, ImageFloat: im}
}
