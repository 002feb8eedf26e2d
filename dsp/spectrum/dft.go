package spectrum

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// HalfSize returns the number of non-redundant bins (DC..Nyquist) of an
// n-point real DFT.
func HalfSize(n int) int {
	return n/2 + 1
}

// Forward returns the full n-point DFT of a real frame. The frame length is
// used as-is; pitch-synchronous frames are generally not powers of two.
func Forward(frame []float64) []complex128 {
	if len(frame) == 0 {
		return nil
	}

	return fft.FFTReal(frame)
}

// Inverse returns the real part of the normalized inverse DFT of spec.
func Inverse(spec []complex128) []float64 {
	if len(spec) == 0 {
		return nil
	}

	tmp := fft.IFFT(spec)
	out := make([]float64, len(tmp))
	for i, v := range tmp {
		out[i] = real(v)
	}

	return out
}

// Hermitian expands the half spectrum half (bins 0..n/2) into a full n-point
// spectrum of a real signal. The DC bin, and for even n the Nyquist bin, are
// forced real; bins above Nyquist are conjugate mirrors of the lower half.
func Hermitian(half []complex128, n int) []complex128 {
	if n <= 0 {
		return nil
	}

	full := make([]complex128, n)
	hs := HalfSize(n)
	copy(full, half[:min(len(half), hs)])

	full[0] = complex(real(full[0]), 0)
	if n%2 == 0 {
		full[n/2] = complex(real(full[n/2]), 0)
	}

	for k := 1; k < hs; k++ {
		if n-k > k {
			full[n-k] = cmplx.Conj(full[k])
		}
	}

	return full
}
