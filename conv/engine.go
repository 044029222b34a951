package conv

import (
	"fmt"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	// AddedLatency is the input-to-output delay in samples introduced by the
	// partition scheme on top of the host block.
	AddedLatency = 0

	// MaxBlockSize bounds the block size accepted by Init.
	MaxBlockSize = 1 << 16

	minFFTSize = 32
)

// State is the lifecycle state of an Engine.
type State int

const (
	Uninitialized State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Engine is a streaming convolver for one channel. The zero value is an
// uninitialized engine.
//
// An Engine is not safe for concurrent use. Init and Process must be
// serialized by the caller; the audio host guarantees this for its
// process and buffer-size callbacks.
type Engine struct {
	state State
	part  *partitions
}

// partitions holds everything derived from (block size, impulse response).
// It is rebuilt from scratch on every Init and never resized in place.
type partitions struct {
	blockSize int
	fftSize   int
	kernelLen int

	plan *algofft.PlanRealT[float32, complex64]

	// kernel[p] is the spectrum of ir[p*blockSize:(p+1)*blockSize] zero-padded to fftSize.
	kernel [][]complex64

	// fdl is a ring of input window spectra; fdl[head] is the newest.
	fdl  [][]complex64
	head int

	window []float32 // last fftSize input samples
	acc    []complex64
	out    []float32
}

// Init prepares the engine for blocks of blockSize samples, discarding any
// previous state. On failure the engine is left Failed.
func (e *Engine) Init(blockSize int, ir []float32) error {
	part, err := newPartitions(blockSize, ir)
	if err != nil {
		e.part = nil
		e.state = Failed
		return err
	}
	e.part = part
	e.state = Ready
	return nil
}

func newPartitions(blockSize int, ir []float32) (*partitions, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", ErrInit, blockSize)
	}
	if blockSize > MaxBlockSize {
		return nil, fmt.Errorf("%w: block size %d exceeds %d", ErrInit, blockSize, MaxBlockSize)
	}
	if len(ir) == 0 {
		return nil, fmt.Errorf("%w: empty impulse response", ErrInit)
	}

	fftSize := max(nextPowerOf2(2*blockSize), minFFTSize)
	bins := fftSize/2 + 1
	count := (len(ir) + blockSize - 1) / blockSize

	plan, err := algofft.NewPlanReal32(fftSize)
	if err != nil {
		return nil, fmt.Errorf("%w: FFT plan (size=%d): %w", ErrInit, fftSize, err)
	}

	p := &partitions{
		blockSize: blockSize,
		fftSize:   fftSize,
		kernelLen: len(ir),
		plan:      plan,
		kernel:    make([][]complex64, count),
		fdl:       make([][]complex64, count),
		window:    make([]float32, fftSize),
		acc:       make([]complex64, bins),
		out:       make([]float32, fftSize),
	}

	// Kernel blocks sit at the start of the padded buffer; the valid
	// overlap-save output is then the last blockSize samples of each inverse.
	padded := make([]float32, fftSize)
	for i := range p.kernel {
		clear(padded)
		start := i * blockSize
		end := min(start+blockSize, len(ir))
		copy(padded, ir[start:end])

		p.kernel[i] = make([]complex64, bins)
		if err := plan.Forward(p.kernel[i], padded); err != nil {
			return nil, fmt.Errorf("%w: kernel partition %d spectrum: %w", ErrInit, i, err)
		}
		p.fdl[i] = make([]complex64, bins)
	}

	return p, nil
}

// Process convolves one block. len(in) and len(out) must both equal
// BlockSize(). On error out is left untouched.
func (e *Engine) Process(in, out []float32) error {
	if e.state != Ready {
		return ErrNotReady
	}
	p := e.part
	if len(in) != p.blockSize || len(out) != p.blockSize {
		return ErrBlockSize
	}

	b := p.blockSize
	n := p.fftSize

	copy(p.window, p.window[b:])
	copy(p.window[n-b:], in)

	p.head++
	if p.head == len(p.fdl) {
		p.head = 0
	}
	if err := p.plan.Forward(p.fdl[p.head], p.window); err != nil {
		return ErrTransform
	}

	clear(p.acc)
	idx := p.head
	for _, h := range p.kernel {
		x := p.fdl[idx]
		for k := range p.acc {
			p.acc[k] += x[k] * h[k]
		}
		idx--
		if idx < 0 {
			idx = len(p.fdl) - 1
		}
	}

	if err := p.plan.Inverse(p.out, p.acc); err != nil {
		return ErrTransform
	}
	copy(out, p.out[n-b:])
	return nil
}

// Reset clears the input history, keeping the partitioned impulse response.
func (e *Engine) Reset() {
	if e.part == nil {
		return
	}
	clear(e.part.window)
	for _, s := range e.part.fdl {
		clear(s)
	}
	e.part.head = 0
}

// State reports the engine's lifecycle state.
func (e *Engine) State() State { return e.state }

// BlockSize returns the block size set by the last successful Init, or 0.
func (e *Engine) BlockSize() int {
	if e.part == nil {
		return 0
	}
	return e.part.blockSize
}

// KernelLen returns the impulse response length in samples.
func (e *Engine) KernelLen() int {
	if e.part == nil {
		return 0
	}
	return e.part.kernelLen
}

// Partitions returns the number of impulse response partitions.
func (e *Engine) Partitions() int {
	if e.part == nil {
		return 0
	}
	return len(e.part.kernel)
}

// FFTSize returns the transform size used per block.
func (e *Engine) FFTSize() int {
	if e.part == nil {
		return 0
	}
	return e.part.fftSize
}

// Latency returns the added input-to-output delay in samples.
func (e *Engine) Latency() int { return AddedLatency }

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
