package lpc

import "math"

const (
	lsfGridPerOrder    = 128
	lsfBisectionRounds = 48
)

// ToLSF converts predictor coefficients (a[0] == 1, even order) into line
// spectral frequencies in radians, sorted ascending in (0, pi).
//
// The second return value reports whether the root search found all roots.
// When it did not, evenly spaced frequencies are returned, which correspond
// to a flat spectrum.
func ToLSF(a []float64) ([]float64, bool) {
	p := len(a) - 1
	if p <= 0 {
		return nil, false
	}

	sumPoly, diffPoly := symmetricFactors(a)

	roots := make([]float64, 0, p)
	roots = append(roots, cosineRoots(sumPoly)...)
	roots = append(roots, cosineRoots(diffPoly)...)

	if len(roots) != p || p%2 != 0 {
		return uniformLSF(p), false
	}

	sortFloats(roots)

	return roots, true
}

// FromLSF rebuilds predictor coefficients from sorted LSFs in radians.
// Even-indexed frequencies belong to the sum polynomial, odd-indexed ones to
// the difference polynomial.
func FromLSF(lsf []float64) []float64 {
	p := len(lsf)

	sumPoly := []float64{1, 1}
	diffPoly := []float64{1, -1}

	for i, w := range lsf {
		section := []float64{1, -2 * math.Cos(w), 1}
		if i%2 == 0 {
			sumPoly = polyMul(sumPoly, section)
		} else {
			diffPoly = polyMul(diffPoly, section)
		}
	}

	a := make([]float64, p+1)
	for i := range a {
		var s, d float64
		if i < len(sumPoly) {
			s = sumPoly[i]
		}

		if i < len(diffPoly) {
			d = diffPoly[i]
		}

		a[i] = 0.5 * (s + d)
	}

	a[0] = 1

	return a
}

// symmetricFactors returns the deflated sum and difference polynomials
// P(z)/(1+z^-1) and Q(z)/(1-z^-1), both palindromic of degree p.
func symmetricFactors(a []float64) ([]float64, []float64) {
	p := len(a) - 1
	at := func(i int) float64 {
		if i < 0 || i > p {
			return 0
		}

		return a[i]
	}

	sumPoly := make([]float64, p+1)
	diffPoly := make([]float64, p+1)

	for k := 0; k <= p; k++ {
		sk := at(k) + at(p+1-k)
		dk := at(k) - at(p+1-k)

		if k == 0 {
			sumPoly[k] = sk
			diffPoly[k] = dk

			continue
		}

		sumPoly[k] = sk - sumPoly[k-1]
		diffPoly[k] = dk + diffPoly[k-1]
	}

	return sumPoly, diffPoly
}

// cosineRoots finds the zeros in (0, pi) of the real-valued response of a
// palindromic polynomial c of even degree on the unit circle.
func cosineRoots(c []float64) []float64 {
	deg := len(c) - 1
	half := deg / 2

	eval := func(w float64) float64 {
		sum := c[half]
		for k := 0; k < half; k++ {
			sum += 2 * c[k] * math.Cos(float64(half-k)*w)
		}

		return sum
	}

	steps := lsfGridPerOrder * max(deg, 1)
	dw := math.Pi / float64(steps)

	var roots []float64

	lo := 0.0
	fLo := eval(lo)

	for i := 1; i <= steps; i++ {
		hi := float64(i) * dw
		fHi := eval(hi)

		if fLo == 0 && lo > 0 {
			roots = append(roots, lo)
		} else if fLo*fHi < 0 {
			roots = append(roots, bisect(eval, lo, hi, fLo))
		}

		lo, fLo = hi, fHi
	}

	return roots
}

func bisect(f func(float64) float64, lo, hi, fLo float64) float64 {
	for range lsfBisectionRounds {
		mid := 0.5 * (lo + hi)

		fMid := f(mid)
		if fMid == 0 {
			return mid
		}

		if fMid*fLo > 0 {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}

	return 0.5 * (lo + hi)
}

func uniformLSF(p int) []float64 {
	out := make([]float64, p)
	for i := range out {
		out[i] = math.Pi * float64(i+1) / float64(p+1)
	}

	return out
}

func polyMul(x, y []float64) []float64 {
	out := make([]float64, len(x)+len(y)-1)
	for i, xv := range x {
		for j, yv := range y {
			out[i+j] += xv * yv
		}
	}

	return out
}

func sortFloats(x []float64) {
	for i := 1; i < len(x); i++ {
		v := x[i]
		j := i - 1

		for j >= 0 && x[j] > v {
			x[j+1] = x[j]
			j--
		}

		x[j+1] = v
	}
}
