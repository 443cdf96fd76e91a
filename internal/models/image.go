package models

// ImageType tells what quantity the pixels of an image represent.
type ImageType int

const (
	ImageTypeMagnitude ImageType = iota + 1
	ImageTypePhase
	ImageTypeReal
	ImageTypeImag
	ImageTypeComplex
)

// ImageHeader holds the metadata of a reconstructed image.
type ImageHeader struct {
	ImageType      ImageType
	MeasurementUID uint32

	// FieldOfView is the physical size of the image in mm (x, y, z).
	FieldOfView [3]float32

	Position             [3]float32
	ColDir               [3]float32
	LineDir              [3]float32
	SliceDir             [3]float32
	PatientTablePosition [3]float32

	Average    *uint32
	Slice      *uint32
	Contrast   *uint32
	Phase      *uint32
	Repetition *uint32
	Set        *uint32

	AcquisitionTimeStampNs uint64
	PhysiologyTimeStampNs  []uint64

	ImageIndex       uint32
	ImageSeriesIndex uint32

	UserInt   []int32
	UserFloat []float32
}

// Pixel is the set of pixel types an Image can hold.
type Pixel interface {
	uint16 | float32 | complex64
}

// Image is a reconstructed image. Data is stored flat in
// [channel, slice, row, col] order.
type Image[T Pixel] struct {
	Head ImageHeader

	Channels, Slices, Rows, Cols int

	Data []T
}

// NewImage allocates a zeroed image with the given dimensions.
func NewImage[T Pixel](channels, slices, rows, cols int) *Image[T] {
	return &Image[T]{
		Channels: channels,
		Slices:   slices,
		Rows:     rows,
		Cols:     cols,
		Data:     make([]T, channels*slices*rows*cols),
	}
}

// Index returns the flat offset of a pixel.
func (im *Image[T]) Index(channel, slice, row, col int) int {
	return ((channel*im.Slices+slice)*im.Rows+row)*im.Cols + col
}

// At returns a single pixel.
func (im *Image[T]) At(channel, slice, row, col int) T {
	return im.Data[im.Index(channel, slice, row, col)]
}

// Plane returns the [row, col] plane of one channel and slice, sharing storage.
func (im *Image[T]) Plane(channel, slice int) []T {
	start := im.Index(channel, slice, 0, 0)
	return im.Data[start : start+im.Rows*im.Cols]
}
