// Package lpc implements linear-predictive spectral envelope analysis:
// pre-emphasis, autocorrelation, Levinson-Durbin recursion, conversion
// between LPC coefficients and line spectral frequencies, and evaluation of
// the all-pole vocal-tract magnitude response on an arbitrary DFT grid.
//
// Coefficients use the convention A(z) = 1 + a[1]z^-1 + ... + a[p]z^-p with
// a[0] == 1.
package lpc
