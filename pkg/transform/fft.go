package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform performs centered, energy-preserving discrete Fourier transforms
// between k-space and image space.
//
// Both directions shift the zero frequency to the middle of the axis, so
// that sample n/2 of a k-space line is DC, and scale by 1/sqrt(n) per axis.
// With that normalization the transforms are unitary: ImageToKSpace undoes
// KSpaceToImage exactly and the L2 norm of the data is preserved.
//
// A Transform caches one gonum plan per axis length. It is not safe for
// concurrent use.
type Transform struct {
	plans   map[int]*fourier.CmplxFFT
	line    []complex128
	scratch []complex128
}

// NewTransform creates a transform with an empty plan cache.
func NewTransform() *Transform {
	return &Transform{
		plans: make(map[int]*fourier.CmplxFFT),
	}
}

func (t *Transform) plan(n int) *fourier.CmplxFFT {
	p, ok := t.plans[n]
	if !ok {
		p = fourier.NewCmplxFFT(n)
		t.plans[n] = p
	}
	return p
}

func (t *Transform) buffers(n int) ([]complex128, []complex128) {
	if cap(t.line) < n {
		t.line = make([]complex128, n)
		t.scratch = make([]complex128, n)
	}
	return t.line[:n], t.scratch[:n]
}

// KSpaceToImage transforms a single centered k-space line to image space in place.
func (t *Transform) KSpaceToImage(line []complex128) {
	_, scratch := t.buffers(len(line))
	t.inverse(line, scratch)
}

// ImageToKSpace transforms a single centered image line to k-space in place.
func (t *Transform) ImageToKSpace(line []complex128) {
	_, scratch := t.buffers(len(line))
	t.forward(line, scratch)
}

func (t *Transform) inverse(line, scratch []complex128) {
	n := len(line)
	if n <= 1 {
		return
	}
	IfftShift(scratch, line)
	t.plan(n).Sequence(line, scratch)
	copy(scratch, line)
	FftShift(line, scratch)
	scale(line, 1/math.Sqrt(float64(n)))
}

func (t *Transform) forward(line, scratch []complex128) {
	n := len(line)
	if n <= 1 {
		return
	}
	IfftShift(scratch, line)
	t.plan(n).Coefficients(line, scratch)
	copy(scratch, line)
	FftShift(line, scratch)
	scale(line, 1/math.Sqrt(float64(n)))
}

// KSpaceToImageND transforms data, a dense row-major array of the given
// shape, from k-space to image space along each of the listed axes.
// Negative axes count from the end, as -1 is the last (fastest) axis.
func (t *Transform) KSpaceToImageND(data []complex128, shape []int, axes ...int) error {
	return t.applyND(data, shape, axes, t.inverse)
}

// ImageToKSpaceND is the inverse of KSpaceToImageND.
func (t *Transform) ImageToKSpaceND(data []complex128, shape []int, axes ...int) error {
	return t.applyND(data, shape, axes, t.forward)
}

func (t *Transform) applyND(data []complex128, shape []int, axes []int, fn func(line, scratch []complex128)) error {
	total := 1
	for _, n := range shape {
		total *= n
	}
	if total != len(data) {
		return fmt.Errorf("shape %v holds %d samples, data has %d", shape, total, len(data))
	}

	for _, axis := range axes {
		if axis < 0 {
			axis += len(shape)
		}
		if axis < 0 || axis >= len(shape) {
			return fmt.Errorf("axis out of range for %d-dimensional data", len(shape))
		}

		n := shape[axis]
		if n <= 1 {
			continue
		}
		stride := 1
		for _, m := range shape[axis+1:] {
			stride *= m
		}
		outer := total / (n * stride)

		line, scratch := t.buffers(n)
		for o := 0; o < outer; o++ {
			for i := 0; i < stride; i++ {
				base := o*n*stride + i
				for k := 0; k < n; k++ {
					line[k] = data[base+k*stride]
				}
				fn(line, scratch)
				for k := 0; k < n; k++ {
					data[base+k*stride] = line[k]
				}
			}
		}
	}
	return nil
}

// FftShift moves the zero-frequency sample of src to the middle of dst.
// dst and src must have the same length and must not overlap.
func FftShift(dst, src []complex128) {
	n := len(src)
	h := n / 2
	for i, v := range src {
		dst[(i+h)%n] = v
	}
}

// IfftShift is the inverse of FftShift.
func IfftShift(dst, src []complex128) {
	n := len(src)
	h := n / 2
	for i := range dst {
		dst[i] = src[(i+h)%n]
	}
}

func scale(line []complex128, f float64) {
	c := complex(f, 0)
	for i := range line {
		line[i] *= c
	}
}
