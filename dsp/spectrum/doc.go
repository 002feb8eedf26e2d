// Package spectrum provides the frame-level spectral primitives of the
// converter: DFT and inverse DFT at arbitrary (pitch-synchronous) sizes,
// Hermitian completion of half spectra, magnitudes, and linear resampling
// of magnitude curves.
package spectrum
