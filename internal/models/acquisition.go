package models

// AcquisitionFlags is the bit set carried in every acquisition header.
type AcquisitionFlags uint64

const (
	FlagFirstInEncodeStep1 AcquisitionFlags = 1 << iota
	FlagLastInEncodeStep1
	FlagFirstInEncodeStep2
	FlagLastInEncodeStep2
	FlagFirstInAverage
	FlagLastInAverage
	FlagFirstInSlice
	FlagLastInSlice
	FlagFirstInContrast
	FlagLastInContrast
	FlagFirstInPhase
	FlagLastInPhase
	FlagFirstInRepetition
	FlagLastInRepetition
	FlagFirstInSet
	FlagLastInSet
	FlagFirstInSegment
	FlagLastInSegment
	FlagIsNoiseMeasurement
	FlagIsParallelCalibration
	FlagIsParallelCalibrationAndImaging
	FlagIsReverse
	FlagIsNavigationData
	FlagIsPhasecorrData
	FlagLastInMeasurement
)

// Has reports whether every bit of f is set.
func (a AcquisitionFlags) Has(f AcquisitionFlags) bool {
	return a&f == f
}

// EncodingCounters are the optional encoding indices of one readout.
// A nil counter means "not set" and is read as DefaultIndex.
type EncodingCounters struct {
	KSpaceEncodeStep1 *uint32
	KSpaceEncodeStep2 *uint32
	Average           *uint32
	Slice             *uint32
	Contrast          *uint32
	Phase             *uint32
	Repetition        *uint32
	Set               *uint32
	Segment           *uint32
}

func valueOr(p *uint32) uint32 {
	if p == nil {
		return DefaultIndex
	}
	return *p
}

func (e EncodingCounters) Step1() uint32           { return valueOr(e.KSpaceEncodeStep1) }
func (e EncodingCounters) Step2() uint32           { return valueOr(e.KSpaceEncodeStep2) }
func (e EncodingCounters) SliceIndex() uint32      { return valueOr(e.Slice) }
func (e EncodingCounters) ContrastIndex() uint32   { return valueOr(e.Contrast) }
func (e EncodingCounters) RepetitionIndex() uint32 { return valueOr(e.Repetition) }

// AcquisitionHeader holds the per-readout metadata.
type AcquisitionHeader struct {
	Flags          AcquisitionFlags
	MeasurementUID uint32
	ScanCounter    uint32

	AcquisitionTimeStampNs uint64
	PhysiologyTimeStampNs  []uint64

	ChannelOrder []uint32
	CenterSample uint32

	// Geometry, passed through to images unchanged.
	Position             [3]float32
	ReadDir              [3]float32
	PhaseDir             [3]float32
	SliceDir             [3]float32
	PatientTablePosition [3]float32

	Idx EncodingCounters

	UserInt   []int32
	UserFloat []float32
}

// Acquisition is one readout: complex samples shaped [channel][sample].
type Acquisition struct {
	Head AcquisitionHeader
	Data [][]complex64
}

// Coils returns the number of channels in the readout.
func (a *Acquisition) Coils() int {
	return len(a.Data)
}

// Samples returns the number of samples per channel.
func (a *Acquisition) Samples() int {
	if len(a.Data) == 0 {
		return 0
	}
	return len(a.Data[0])
}

// Clone returns a deep copy of the acquisition.
func (a *Acquisition) Clone() *Acquisition {
	c := *a
	c.Head.PhysiologyTimeStampNs = append([]uint64(nil), a.Head.PhysiologyTimeStampNs...)
	c.Head.ChannelOrder = append([]uint32(nil), a.Head.ChannelOrder...)
	c.Head.UserInt = append([]int32(nil), a.Head.UserInt...)
	c.Head.UserFloat = append([]float32(nil), a.Head.UserFloat...)
	c.Data = make([][]complex64, len(a.Data))
	for i, line := range a.Data {
		c.Data[i] = append([]complex64(nil), line...)
	}
	return &c
}

// Waveform is a physiological or gradient waveform record. The
// reconstruction ignores it.
type Waveform struct {
	WaveformID  uint32
	TimeStampNs uint64
	Data        []uint32
}
