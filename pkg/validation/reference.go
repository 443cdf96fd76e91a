package validation

import (
	"fmt"
	"math"

	"mrdrecon/pkg/simulation"
)

// ReferenceFromCoilImages combines coil images shaped [coil][y*cols+x] by
// root sum of squares and crops x symmetrically to reconCols. The result is
// row-major with reconCols columns.
func ReferenceFromCoilImages(coilImages [][]complex128, rows, cols, reconCols int) ([]float64, error) {
	if len(coilImages) == 0 {
		return nil, fmt.Errorf("%w: no coil images", ErrShapeMismatch)
	}
	if reconCols <= 0 || reconCols > cols {
		return nil, fmt.Errorf("%w: cannot crop %d columns to %d", ErrShapeMismatch, cols, reconCols)
	}
	for c, img := range coilImages {
		if len(img) != rows*cols {
			return nil, fmt.Errorf("%w: coil %d has %d pixels, want %d", ErrShapeMismatch, c, len(img), rows*cols)
		}
	}

	offset := (cols - reconCols) / 2
	out := make([]float64, rows*reconCols)
	for y := 0; y < rows; y++ {
		for x := 0; x < reconCols; x++ {
			src := y*cols + offset + x
			var sum float64
			for _, img := range coilImages {
				v := img[src]
				sum += real(v)*real(v) + imag(v)*imag(v)
			}
			out[y*reconCols+x] = math.Sqrt(sum)
		}
	}
	return out, nil
}

// DatasetReference returns the reference image of a simulated dataset.
func DatasetReference(d *simulation.Dataset) ([]float64, error) {
	enc := d.Header.Encoding[0]
	rows := int(enc.EncodedSpace.MatrixSize.Y)
	reconCols := int(enc.ReconSpace.MatrixSize.X)
	return ReferenceFromCoilImages(d.CoilImages, rows, d.ReadoutLength(), reconCols)
}
