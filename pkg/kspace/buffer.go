// Package kspace provides the dense k-space buffer that a Cartesian
// acquisition stream is accumulated into.
package kspace

import (
	"fmt"
)

// Dims is the extent of a Buffer along each of its six axes.
type Dims struct {
	Contrasts int
	Slices    int
	Channels  int
	Kz        int
	Ky        int
	Kx        int
}

// Volume returns the number of samples in one (contrast, slice) volume.
func (d Dims) Volume() int {
	return d.Channels * d.Kz * d.Ky * d.Kx
}

// Shape returns the dims as a slice in storage order.
func (d Dims) Shape() []int {
	return []int{d.Contrasts, d.Slices, d.Channels, d.Kz, d.Ky, d.Kx}
}

func (d Dims) String() string {
	return fmt.Sprintf("[%d %d %d %d %d %d]", d.Contrasts, d.Slices, d.Channels, d.Kz, d.Ky, d.Kx)
}

// Axis names a Buffer dimension, used in bounds errors.
type Axis int

const (
	AxisContrast Axis = iota
	AxisSlice
	AxisChannel
	AxisKz
	AxisKy
	AxisKx
)

func (a Axis) String() string {
	switch a {
	case AxisContrast:
		return "contrast"
	case AxisSlice:
		return "slice"
	case AxisChannel:
		return "channel"
	case AxisKz:
		return "kspace_encode_step_2"
	case AxisKy:
		return "kspace_encode_step_1"
	case AxisKx:
		return "readout"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// BoundsError reports a write outside the allocated extent of a Buffer.
type BoundsError struct {
	Axis  Axis
	Index int
	Size  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s index %d outside [0, %d)", e.Axis, e.Index, e.Size)
}

// Buffer is a dense complex array with axes
// [contrast, slice, channel, kz, ky, kx], stored row-major.
// Each (contrast, slice) volume is contiguous.
type Buffer struct {
	dims Dims
	data []complex128
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(dims Dims) (*Buffer, error) {
	for axis, n := range dims.Shape() {
		if n <= 0 {
			return nil, fmt.Errorf("buffer %s extent must be positive, got %d", Axis(axis), n)
		}
	}
	return &Buffer{
		dims: dims,
		data: make([]complex128, dims.Contrasts*dims.Slices*dims.Volume()),
	}, nil
}

// Dims returns the extent of the buffer.
func (b *Buffer) Dims() Dims {
	return b.dims
}

func (b *Buffer) offset(contrast, slice, channel, kz, ky, kx int) int {
	d := b.dims
	return ((((contrast*d.Slices+slice)*d.Channels+channel)*d.Kz+kz)*d.Ky+ky)*d.Kx + kx
}

// At returns one sample. It panics on out-of-range indices.
func (b *Buffer) At(contrast, slice, channel, kz, ky, kx int) complex128 {
	return b.data[b.offset(contrast, slice, channel, kz, ky, kx)]
}

func check(axis Axis, index, size int) error {
	if index < 0 || index >= size {
		return &BoundsError{Axis: axis, Index: index, Size: size}
	}
	return nil
}

// WriteReadout stores one readout, shaped [channel][sample], at
// [contrast, slice, :, kz, ky, :]. Every index is checked against the
// buffer extent and the readout must match the channel and kx extents.
func (b *Buffer) WriteReadout(contrast, slice, kz, ky int, readout [][]complex64) error {
	d := b.dims
	if err := check(AxisContrast, contrast, d.Contrasts); err != nil {
		return err
	}
	if err := check(AxisSlice, slice, d.Slices); err != nil {
		return err
	}
	if err := check(AxisKz, kz, d.Kz); err != nil {
		return err
	}
	if err := check(AxisKy, ky, d.Ky); err != nil {
		return err
	}
	if len(readout) != d.Channels {
		return &ShapeError{Axis: AxisChannel, Got: len(readout), Want: d.Channels}
	}

	for ch, line := range readout {
		if len(line) != d.Kx {
			return &ShapeError{Axis: AxisKx, Got: len(line), Want: d.Kx}
		}
		start := b.offset(contrast, slice, ch, kz, ky, 0)
		dst := b.data[start : start+d.Kx]
		for i, v := range line {
			dst[i] = complex128(v)
		}
	}
	return nil
}

// ShapeError reports a readout whose extent does not match the buffer.
type ShapeError struct {
	Axis Axis
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s extent %d does not match buffer extent %d", e.Axis, e.Got, e.Want)
}

// Volume returns the [channel, kz, ky, kx] samples of one (contrast, slice)
// pair. The returned slice shares storage with the buffer.
func (b *Buffer) Volume(contrast, slice int) []complex128 {
	n := b.dims.Volume()
	start := (contrast*b.dims.Slices + slice) * n
	return b.data[start : start+n]
}
