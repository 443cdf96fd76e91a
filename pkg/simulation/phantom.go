// Package simulation generates synthetic Cartesian MR datasets: a
// Shepp-Logan phantom weighted by birdcage coil sensitivities, sampled in
// k-space one readout at a time.
package simulation

import (
	"math"
	"math/cmplx"
)

// Ellipse is one additive component of a phantom. Coordinates are given
// relative to the [-1, 1] x [-1, 1] image box.
type Ellipse struct {
	Amplitude float64 // additive intensity
	A         float64 // semi-axis along x before rotation
	B         float64 // semi-axis along y before rotation
	X0        float64
	Y0        float64
	Phi       float64 // counterclockwise rotation in degrees
}

// IsInside reports whether (x, y) lies inside or on the ellipse.
func (e Ellipse) IsInside(x, y float64) bool {
	phi := e.Phi * math.Pi / 180
	cosp, sinp := math.Cos(phi), math.Sin(phi)
	dx, dy := x-e.X0, y-e.Y0

	u := dx*cosp + dy*sinp
	v := dy*cosp - dx*sinp
	return u*u/(e.A*e.A)+v*v/(e.B*e.B) <= 1
}

// SheppLoganEllipses returns the standard head phantom of Shepp and Logan.
func SheppLoganEllipses() []Ellipse {
	return []Ellipse{
		{1.0, 0.6900, 0.9200, 0.00, 0.0000, 0},
		{-0.98, 0.6624, 0.8740, 0.00, -0.0184, 0},
		{-0.02, 0.1100, 0.3100, 0.22, 0.0000, -18},
		{-0.02, 0.1600, 0.4100, -0.22, 0.0000, 18},
		{0.01, 0.2100, 0.2500, 0.00, 0.3500, 0},
		{0.01, 0.0460, 0.0460, 0.00, 0.1000, 0},
		{0.01, 0.0460, 0.0460, 0.00, -0.1000, 0},
		{0.01, 0.0460, 0.0230, -0.08, -0.6050, 0},
		{0.01, 0.0230, 0.0230, 0.00, -0.6060, 0},
		{0.01, 0.0230, 0.0460, 0.06, -0.6050, 0},
	}
}

// ModifiedSheppLoganEllipses returns the contrast-enhanced variant of the
// Shepp-Logan phantom given by Toft.
func ModifiedSheppLoganEllipses() []Ellipse {
	return []Ellipse{
		{1.0, 0.6900, 0.9200, 0.00, 0.0000, 0},
		{-0.8, 0.6624, 0.8740, 0.00, -0.0184, 0},
		{-0.2, 0.1100, 0.3100, 0.22, 0.0000, -18},
		{-0.2, 0.1600, 0.4100, -0.22, 0.0000, 18},
		{0.1, 0.2100, 0.2500, 0.00, 0.3500, 0},
		{0.1, 0.0460, 0.0460, 0.00, 0.1000, 0},
		{0.1, 0.0460, 0.0460, 0.00, -0.1000, 0},
		{0.1, 0.0460, 0.0230, -0.08, -0.6050, 0},
		{0.1, 0.0230, 0.0230, 0.00, -0.6060, 0},
		{0.1, 0.0230, 0.0460, 0.06, -0.6050, 0},
	}
}

// gridCoordinate maps pixel i of an n-pixel axis onto [-1, 1).
func gridCoordinate(i, n int) float64 {
	half := n >> 1
	return float64(i-half) / float64(half)
}

// GeneratePhantom rasterizes ellipses onto an n x n grid, row-major
// (index y*n+x).
func GeneratePhantom(n int, ellipses []Ellipse) []complex128 {
	out := make([]complex128, n*n)
	if n < 2 {
		return out
	}
	for _, e := range ellipses {
		for y := 0; y < n; y++ {
			yc := gridCoordinate(y, n)
			for x := 0; x < n; x++ {
				if e.IsInside(gridCoordinate(x, n), yc) {
					out[y*n+x] += complex(e.Amplitude, 0)
				}
			}
		}
	}
	return out
}

// SheppLoganPhantom is GeneratePhantom with the modified Shepp-Logan set.
func SheppLoganPhantom(n int) []complex128 {
	return GeneratePhantom(n, ModifiedSheppLoganEllipses())
}

// BirdcageSensitivities simulates ncoils receive coils evenly spaced on a
// circle of radius relativeRadius around an n x n grid. The result is
// indexed [coil][y*n+x].
//
// Adapted from mri_birdcage.m in Jeff Fessler's IRT package.
func BirdcageSensitivities(n, ncoils int, relativeRadius float64) [][]complex128 {
	out := make([][]complex128, ncoils)
	for c := range out {
		out[c] = make([]complex128, n*n)
		if n < 2 {
			continue
		}

		angle := float64(c) * 2 * math.Pi / float64(ncoils)
		coilX := relativeRadius * math.Cos(angle)
		coilY := relativeRadius * math.Sin(angle)

		for y := 0; y < n; y++ {
			yc := gridCoordinate(y, n) - coilY
			for x := 0; x < n; x++ {
				xc := gridCoordinate(x, n) - coilX
				rr := math.Hypot(xc, yc)
				phi := math.Atan2(xc, -yc) - angle
				out[c][y*n+x] = cmplx.Rect(1/rr, phi)
			}
		}
	}
	return out
}
