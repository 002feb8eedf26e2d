package ola

// Sink receives completed output samples in order.
type Sink interface {
	Write(samples []float64) error
}

// Fitter is implemented by sinks that can trim or zero-pad their content
// to an exact length after the stream ended.
type Fitter interface {
	Fit(n int) error
}

// MemorySink collects samples in memory.
type MemorySink struct {
	Samples []float64
}

// Write implements Sink.
func (m *MemorySink) Write(samples []float64) error {
	m.Samples = append(m.Samples, samples...)
	return nil
}

// Fit implements Fitter.
func (m *MemorySink) Fit(n int) error {
	if n <= len(m.Samples) {
		m.Samples = m.Samples[:n]
		return nil
	}

	m.Samples = append(m.Samples, make([]float64, n-len(m.Samples))...)

	return nil
}
