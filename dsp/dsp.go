// Package dsp holds the small sample-by-sample filters used to shape
// synthetic impulse responses.
package dsp

import "math"

// Biquad implements a second-order IIR filter (no heap allocations in Process)
type Biquad struct {
	// Coefficients
	b0, b1, b2 float32
	a1, a2     float32

	// State (previous samples)
	x1, x2 float32 // input history
	y1, y2 float32 // output history
}

// NewBiquad creates a new biquad filter with the given coefficients
// (already normalized by a0).
func NewBiquad(b0, b1, b2, a1, a2 float32) *Biquad {
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

// Process processes one sample through the biquad filter
func (b *Biquad) Process(input float32) float32 {
	// Direct Form I implementation
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2

	// Update state
	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// ProcessBlock filters buf in place.
func (b *Biquad) ProcessBlock(buf []float32) {
	for i, v := range buf {
		buf[i] = b.Process(v)
	}
}

// Reset clears the filter state
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// NewLowpass creates a simple lowpass biquad filter. cutoff is clamped below
// Nyquist.
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	if nyq := 0.49 * sampleRate; cutoff > nyq {
		cutoff = nyq
	}
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	alpha := math.Sin(w0) / (2.0 * float64(q))
	cosw0 := math.Cos(w0)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	// Normalize by a0
	return NewBiquad(
		float32(b0/a0),
		float32(b1/a0),
		float32(b2/a0),
		float32(a1/a0),
		float32(a2/a0),
	)
}

// DCBlocker is the one-pole, one-zero highpass y[n] = x[n] - x[n-1] + r*y[n-1].
type DCBlocker struct {
	r       float32
	prevIn  float32
	prevOut float32
}

// NewDCBlocker returns a DC blocker with pole radius r (typically 0.995).
func NewDCBlocker(r float32) *DCBlocker {
	return &DCBlocker{r: r}
}

func (d *DCBlocker) Process(x float32) float32 {
	y := x - d.prevIn + d.r*d.prevOut
	d.prevIn = x
	d.prevOut = y
	return y
}

// ProcessBlock filters buf in place.
func (d *DCBlocker) ProcessBlock(buf []float32) {
	for i, v := range buf {
		buf[i] = d.Process(v)
	}
}

func (d *DCBlocker) Reset() {
	d.prevIn, d.prevOut = 0, 0
}
