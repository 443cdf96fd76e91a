package models

// Contract defaults applied when an optional header or index field is absent.
const (
	// DefaultIndex is used for any missing encoding counter.
	DefaultIndex uint32 = 0

	// DefaultReceiverChannels is used when the header carries no
	// acquisition system information.
	DefaultReceiverChannels uint32 = 1

	// DefaultLimitCount is the extent of a dimension whose encoding
	// limit is not declared.
	DefaultLimitCount uint32 = 1

	// DefaultFieldOfViewZ replaces a zero recon field of view along z.
	DefaultFieldOfViewZ float32 = 1
)

// Trajectory identifies the k-space sampling pattern of an encoding.
type Trajectory int

const (
	TrajectoryCartesian Trajectory = iota
	TrajectoryEPI
	TrajectoryRadial
	TrajectoryGoldenAngle
	TrajectorySpiral
	TrajectoryOther
)

func (t Trajectory) String() string {
	switch t {
	case TrajectoryCartesian:
		return "cartesian"
	case TrajectoryEPI:
		return "epi"
	case TrajectoryRadial:
		return "radial"
	case TrajectoryGoldenAngle:
		return "goldenangle"
	case TrajectorySpiral:
		return "spiral"
	default:
		return "other"
	}
}

// MatrixSize is the number of samples along each spatial axis.
type MatrixSize struct {
	X, Y, Z uint32
}

// FieldOfViewMm is the physical extent of an encoding space in millimetres.
type FieldOfViewMm struct {
	X, Y, Z float32
}

// EncodingSpace describes one of the encoded or reconstructed grids.
type EncodingSpace struct {
	// MatrixSize is nil when the producer did not declare it.
	MatrixSize *MatrixSize

	// FieldOfViewMm is nil when the producer did not declare it.
	FieldOfViewMm *FieldOfViewMm
}

// Limit is the declared index range of one encoding dimension.
type Limit struct {
	Minimum uint32
	Maximum uint32
	Center  uint32
}

// Count returns the number of index positions the limit spans from zero.
func (l *Limit) Count() uint32 {
	if l == nil {
		return DefaultLimitCount
	}
	return l.Maximum + 1
}

// EncodingLimits holds the optional per-dimension limits of an encoding.
type EncodingLimits struct {
	KSpaceEncodingStep1 *Limit
	KSpaceEncodingStep2 *Limit
	Average             *Limit
	Slice               *Limit
	Contrast            *Limit
	Phase               *Limit
	Repetition          *Limit
	Set                 *Limit
	Segment             *Limit
}

// Encoding describes one encoding space of the session. Only the first
// encoding of a header is reconstructed.
type Encoding struct {
	EncodedSpace   EncodingSpace
	ReconSpace     EncodingSpace
	EncodingLimits EncodingLimits
	Trajectory     Trajectory
}

// AcquisitionSystemInformation describes the receive hardware.
type AcquisitionSystemInformation struct {
	// ReceiverChannels is nil when not declared.
	ReceiverChannels *uint32

	SystemVendor string
	SystemModel  string
}

// MeasurementInformation identifies the measurement that produced the stream.
type MeasurementInformation struct {
	MeasurementID string
	ProtocolName  string
}

// SubjectInformation carries patient identification fields.
type SubjectInformation struct {
	PatientName string
	PatientID   string
}

// Header is the immutable session metadata read once at the start of a stream.
type Header struct {
	SubjectInformation           *SubjectInformation
	MeasurementInformation       *MeasurementInformation
	AcquisitionSystemInformation *AcquisitionSystemInformation

	// H1ResonanceFrequencyHz is the scanner's proton resonance frequency.
	H1ResonanceFrequencyHz int64

	Encoding []Encoding
}

// ReceiverChannels returns the declared channel count or DefaultReceiverChannels.
func (h *Header) ReceiverChannels() uint32 {
	if h.AcquisitionSystemInformation != nil && h.AcquisitionSystemInformation.ReceiverChannels != nil {
		return *h.AcquisitionSystemInformation.ReceiverChannels
	}
	return DefaultReceiverChannels
}

// Uint32 returns a pointer to v, for populating optional fields.
func Uint32(v uint32) *uint32 {
	return &v
}
