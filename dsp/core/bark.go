package core

import "math"

// HzToBark converts a frequency in Hz to the Bark scale (Traunmueller).
func HzToBark(hz float64) float64 {
	return 26.81*hz/(1960+hz) - 0.53
}

// BarkToHz is the inverse of HzToBark.
func BarkToHz(bark float64) float64 {
	return 1960 * (bark + 0.53) / (26.28 - bark)
}

// RadiansToHz maps a normalized angular frequency to Hz.
func RadiansToHz(w, sampleRate float64) float64 {
	return w * sampleRate / (2 * math.Pi)
}

// HzToRadians maps a frequency in Hz to a normalized angular frequency.
func HzToRadians(hz, sampleRate float64) float64 {
	return 2 * math.Pi * hz / sampleRate
}
