package conv

import (
	"math"
	"testing"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
)

// directConvolve returns the full linear convolution of x and h computed in
// float64 by the time-domain reference implementation.
func directConvolve(t *testing.T, x []float32, h []float32) []float32 {
	t.Helper()
	x64 := make([]float64, len(x))
	for i, v := range x {
		x64[i] = float64(v)
	}
	h64 := make([]float64, len(h))
	for i, v := range h {
		h64[i] = float64(v)
	}
	y64, err := dspconv.Direct(x64, h64)
	if err != nil {
		t.Fatalf("reference convolution: %v", err)
	}
	y := make([]float32, len(y64))
	for i, v := range y64 {
		y[i] = float32(v)
	}
	return y
}

// stream pushes input through e in blockSize chunks, zero-padding the last
// block, and returns len(input) output samples.
func stream(t *testing.T, e *Engine, input []float32, blockSize int) []float32 {
	t.Helper()
	out := make([]float32, 0, len(input)+blockSize)
	in := make([]float32, blockSize)
	block := make([]float32, blockSize)
	for pos := 0; pos < len(input); pos += blockSize {
		clear(in)
		copy(in, input[pos:min(pos+blockSize, len(input))])
		if err := e.Process(in, block); err != nil {
			t.Fatalf("Process at %d: %v", pos, err)
		}
		out = append(out, block...)
	}
	return out[:len(input)]
}

func maxAbsDiff(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	max := 0.0
	for i := 0; i < n; i++ {
		d := math.Abs(float64(a[i] - b[i]))
		if d > max {
			max = d
		}
	}
	return max
}

// testKernel is a decaying, sign-alternating IR with bounded gain.
func testKernel(n int) []float32 {
	h := make([]float32, n)
	for i := range h {
		h[i] = float32(0.5 * math.Exp(-float64(i)/40.0) * math.Cos(float64(i)*0.3))
	}
	return h
}

func testSignal(n int) []float32 {
	x := make([]float32, n)
	for i := range x {
		x[i] = float32(0.6*math.Sin(float64(i)*0.07) + 0.3*math.Sin(float64(i)*1.31+0.4))
	}
	return x
}
