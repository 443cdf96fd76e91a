package reconstruction

import (
	"errors"
	"fmt"

	"mrdrecon/internal/models"
)

var (
	// ErrMissingHeaderField is returned when the header lacks encoding
	// geometry needed to size buffers or crop images.
	ErrMissingHeaderField = errors.New("missing header field")

	// ErrUnsupportedTrajectory is returned for an encoding that is not
	// sampled on a Cartesian grid.
	ErrUnsupportedTrajectory = errors.New("unsupported trajectory")

	// ErrUnsupportedRecordType is returned when an item to be tagged is
	// neither an acquisition nor a floating-point image.
	ErrUnsupportedRecordType = errors.New("unsupported record type")

	// ErrIndexOutOfRange is returned when an encoding index falls outside
	// the buffer allocated from the header limits.
	ErrIndexOutOfRange = errors.New("encoding index out of range")

	// ErrShapeMismatch is returned when a readout's channel count or length
	// does not match the buffer it is written into.
	ErrShapeMismatch = errors.New("acquisition shape mismatch")
)

// IndexError describes an acquisition index that does not fit the k-space buffer.
type IndexError struct {
	Field       string
	Index       int
	Size        int
	ScanCounter uint32
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("scan %d: %s index %d outside [0, %d)", e.ScanCounter, e.Field, e.Index, e.Size)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// firstEncoding returns the encoding that is reconstructed.
func firstEncoding(h *models.Header) (*models.Encoding, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: header", ErrMissingHeaderField)
	}
	if len(h.Encoding) == 0 {
		return nil, fmt.Errorf("%w: encoding", ErrMissingHeaderField)
	}
	return &h.Encoding[0], nil
}

// checkTrajectory rejects encodings the buffer layout cannot hold.
func checkTrajectory(h *models.Header) error {
	enc, err := firstEncoding(h)
	if err != nil {
		return err
	}
	if enc.Trajectory != models.TrajectoryCartesian {
		return fmt.Errorf("%w: %v", ErrUnsupportedTrajectory, enc.Trajectory)
	}
	return nil
}

// matrixSizes returns the encoded and recon matrix sizes of the first encoding.
func matrixSizes(h *models.Header) (encoded, recon models.MatrixSize, err error) {
	enc, err := firstEncoding(h)
	if err != nil {
		return encoded, recon, err
	}
	if enc.EncodedSpace.MatrixSize == nil {
		return encoded, recon, fmt.Errorf("%w: encoding[0].encoded_space.matrix_size", ErrMissingHeaderField)
	}
	if enc.ReconSpace.MatrixSize == nil {
		return encoded, recon, fmt.Errorf("%w: encoding[0].recon_space.matrix_size", ErrMissingHeaderField)
	}
	return *enc.EncodedSpace.MatrixSize, *enc.ReconSpace.MatrixSize, nil
}

// reconFieldOfView returns the recon field of view, with a zero z extent
// replaced by models.DefaultFieldOfViewZ.
func reconFieldOfView(h *models.Header) (models.FieldOfViewMm, error) {
	enc, err := firstEncoding(h)
	if err != nil {
		return models.FieldOfViewMm{}, err
	}
	if enc.ReconSpace.FieldOfViewMm == nil {
		return models.FieldOfViewMm{}, fmt.Errorf("%w: encoding[0].recon_space.field_of_view_mm", ErrMissingHeaderField)
	}
	fov := *enc.ReconSpace.FieldOfViewMm
	if fov.Z == 0 {
		fov.Z = models.DefaultFieldOfViewZ
	}
	return fov, nil
}
