// Package level measures the loudness and headroom of audio buffers, either
// in one call or streamed block by block.
package level

import "math"

// Stats holds level statistics of a signal. Levels in dB are relative to
// full scale (1.0); silence reports -Inf.
type Stats struct {
	Length  int
	DC      float64
	RMS     float64
	RMSdB   float64
	Peak    float64 // max |x|
	PeakdB  float64
	PeakPos int
	// Clipped counts samples with |x| >= 1, which do not survive PCM output.
	Clipped       int
	CrestFactor   float64 // peak / RMS
	ZeroCrossings int
}

// Headroom returns how far the peak stays below full scale, in dB.
func (s Stats) Headroom() float64 {
	return -s.PeakdB
}

func todB(v float64) float64 {
	if v == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(math.Abs(v))
}

// Measure computes the statistics of x.
func Measure(x []float64) Stats {
	var m Meter
	m.Update(x)

	return m.Result()
}

// Meter accumulates statistics across blocks. The zero value is ready to
// use.
type Meter struct {
	n             int
	sum           float64
	sumSq         float64
	peak          float64
	peakPos       int
	clipped       int
	zeroCrossings int
	last          float64
}

// Update adds a block of samples.
func (m *Meter) Update(samples []float64) {
	for _, x := range samples {
		if m.n > 0 && m.last*x < 0 {
			m.zeroCrossings++
		}

		if a := math.Abs(x); a > m.peak {
			m.peak = a
			m.peakPos = m.n
		}

		if math.Abs(x) >= 1 {
			m.clipped++
		}

		m.sum += x
		m.sumSq += x * x
		m.last = x
		m.n++
	}
}

// Result returns the statistics of everything seen so far.
func (m *Meter) Result() Stats {
	if m.n == 0 {
		return Stats{RMSdB: math.Inf(-1), PeakdB: math.Inf(-1)}
	}

	n := float64(m.n)
	rms := math.Sqrt(m.sumSq / n)

	s := Stats{
		Length:        m.n,
		DC:            m.sum / n,
		RMS:           rms,
		RMSdB:         todB(rms),
		Peak:          m.peak,
		PeakdB:        todB(m.peak),
		PeakPos:       m.peakPos,
		Clipped:       m.clipped,
		ZeroCrossings: m.zeroCrossings,
	}

	if rms > 0 {
		s.CrestFactor = m.peak / rms
	}

	return s
}

// Reset clears the meter.
func (m *Meter) Reset() {
	*m = Meter{}
}
