package transform

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// centeredDFT is a direct O(n^2) reference for the centered, unitary transform.
func centeredDFT(in []complex128, sign float64) []complex128 {
	n := len(in)
	h := n / 2
	out := make([]complex128, n)
	for j := 0; j < n; j++ {
		var sum complex128
		for k := 0; k < n; k++ {
			angle := sign * 2 * math.Pi * float64((j-h)*(k-h)) / float64(n)
			sum += in[k] * cmplx.Exp(complex(0, angle))
		}
		out[j] = sum / complex(math.Sqrt(float64(n)), 0)
	}
	return out
}

var approx = cmp.Comparer(func(x, y complex128) bool {
	return cmplx.Abs(x-y) <= 1e-9
})

func TestKSpaceToImageMatchesDirectDFT(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 12} {
		in := make([]complex128, n)
		for i := range in {
			in[i] = complex(float64(i+1), float64(n-i)/3)
		}

		want := centeredDFT(in, 1)
		got := append([]complex128(nil), in...)
		NewTransform().KSpaceToImage(got)

		if diff := cmp.Diff(want, got, approx); diff != "" {
			t.Errorf("n=%d: KSpaceToImage mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestImageToKSpaceMatchesDirectDFT(t *testing.T) {
	in := []complex128{1, 2i, -3, 4 + 1i, 0.5, -2i}
	want := centeredDFT(in, -1)
	got := append([]complex128(nil), in...)
	NewTransform().ImageToKSpace(got)

	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("ImageToKSpace mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripAndEnergy(t *testing.T) {
	tr := NewTransform()
	in := []complex128{3, 1 - 1i, 0, 2i, -1, 5, 0.25, 7 - 2i}

	line := append([]complex128(nil), in...)
	tr.KSpaceToImage(line)

	var eIn, eOut float64
	for i := range in {
		eIn += real(in[i] * cmplx.Conj(in[i]))
		eOut += real(line[i] * cmplx.Conj(line[i]))
	}
	if math.Abs(eIn-eOut) > 1e-9 {
		t.Errorf("energy not preserved: %f vs %f", eIn, eOut)
	}

	tr.ImageToKSpace(line)
	if diff := cmp.Diff(in, line, approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestCenteredImpulse verifies that a DC-only k-space gives a flat image.
func TestCenteredImpulse(t *testing.T) {
	n := 8
	line := make([]complex128, n)
	line[n/2] = complex(math.Sqrt(float64(n)), 0)

	NewTransform().KSpaceToImage(line)
	for i, v := range line {
		if cmplx.Abs(v-1) > 1e-12 {
			t.Errorf("sample %d: expected 1, got %v", i, v)
		}
	}
}

func TestKSpaceToImageNDTwoByTwo(t *testing.T) {
	// 2x2 k-space [[a, b], [c, d]]
	a, b, c, d := complex128(1+1i), complex128(2), complex128(-1i), complex128(3-2i)
	data := []complex128{a, b, c, d}

	if err := NewTransform().KSpaceToImageND(data, []int{2, 2}, -1, -2); err != nil {
		t.Fatalf("KSpaceToImageND failed: %v", err)
	}

	// Along each axis of length two the centered transform maps
	// [p, q] to [q-p, p+q]/sqrt(2).
	want := []complex128{
		(d - c - b + a) / 2,
		(c + d - a - b) / 2,
		(b - a + d - c) / 2,
		(a + b + c + d) / 2,
	}
	if diff := cmp.Diff(want, data, approx); diff != "" {
		t.Errorf("2x2 transform mismatch (-want +got):\n%s", diff)
	}
}

func TestNDTransformIsSeparable(t *testing.T) {
	shape := []int{3, 4, 6}
	data := make([]complex128, 3*4*6)
	for i := range data {
		data[i] = complex(math.Sin(float64(i)), math.Cos(float64(2*i)))
	}
	orig := append([]complex128(nil), data...)

	tr := NewTransform()
	if err := tr.KSpaceToImageND(data, shape, 1, 2); err != nil {
		t.Fatalf("KSpaceToImageND failed: %v", err)
	}

	// Compare the middle axis of one line against the direct transform.
	for x := 0; x < 6; x++ {
		want := make([]complex128, 4)
		for y := 0; y < 4; y++ {
			row := make([]complex128, 6)
			copy(row, orig[(1*4+y)*6:(1*4+y)*6+6])
			rowImg := centeredDFT(row, 1)
			want[y] = rowImg[x]
		}
		want = centeredDFT(want, 1)
		for y := 0; y < 4; y++ {
			got := data[(1*4+y)*6+x]
			if cmplx.Abs(got-want[y]) > 1e-9 {
				t.Errorf("(1,%d,%d): expected %v, got %v", y, x, want[y], got)
			}
		}
	}

	if err := tr.ImageToKSpaceND(data, shape, 1, 2); err != nil {
		t.Fatalf("ImageToKSpaceND failed: %v", err)
	}
	if diff := cmp.Diff(orig, data, approx); diff != "" {
		t.Errorf("ND round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNDErrors(t *testing.T) {
	tr := NewTransform()
	if err := tr.KSpaceToImageND(make([]complex128, 5), []int{2, 2}, 0); err == nil {
		t.Error("expected error for mismatched shape")
	}
	if err := tr.KSpaceToImageND(make([]complex128, 4), []int{2, 2}, 2); err == nil {
		t.Error("expected error for out of range axis")
	}
}

func TestShiftsAreInverse(t *testing.T) {
	for _, n := range []int{1, 4, 7} {
		src := make([]complex128, n)
		for i := range src {
			src[i] = complex(float64(i), 0)
		}
		shifted := make([]complex128, n)
		back := make([]complex128, n)
		FftShift(shifted, src)
		IfftShift(back, shifted)
		if diff := cmp.Diff(src, back); diff != "" {
			t.Errorf("n=%d: shift round trip mismatch (-want +got):\n%s", n, diff)
		}
	}
}
