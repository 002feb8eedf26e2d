// Package buffer provides the fixed-capacity overlap-add ring used by the
// pitch-synchronous synthesizer.
//
// An OverlapRing keeps an accumulation buffer and a parallel weight buffer.
// Frames are folded in at offsets relative to the read cursor and completed
// samples are drained in order, normalized by their accumulated weight. The
// wrap-around arithmetic stays inside this package.
package buffer
