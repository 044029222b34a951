// Package impulse loads and validates the impulse response applied by the
// convolution pipeline.
package impulse

import (
	"errors"
	"fmt"
)

var (
	ErrLoad   = errors.New("impulse: load failed")
	ErrFormat = errors.New("impulse: unsupported format")
)

// SampleFormat is the on-disk sample encoding of a decoded file.
type SampleFormat int

const (
	Int SampleFormat = iota
	Float
)

func (f SampleFormat) String() string {
	if f == Float {
		return "float"
	}
	return "int"
}

// Format describes a decoded audio file.
type Format struct {
	Channels      int
	SampleRate    int
	SampleFormat  SampleFormat
	BitsPerSample int
}

// Decoded is the raw output of Decode: interleaved samples normalized to
// [-1, 1].
type Decoded struct {
	Format  Format
	Samples []float32
}

// Frames returns the number of sample frames.
func (d *Decoded) Frames() int {
	if d.Format.Channels < 1 {
		return 0
	}
	return len(d.Samples) / d.Format.Channels
}

// Response is a validated single-channel impulse response. It is immutable
// after construction and may be shared by any number of channels.
type Response struct {
	samples    []float32
	sampleRate int
}

// New builds a Response from decoded audio. The source must have exactly one
// channel and at least one sample.
func New(d *Decoded) (*Response, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil decoded audio", ErrFormat)
	}
	if d.Format.Channels != 1 {
		return nil, fmt.Errorf("%w: impulse response must have only 1 channel, got %d", ErrFormat, d.Format.Channels)
	}
	if len(d.Samples) == 0 {
		return nil, fmt.Errorf("%w: impulse response has no samples", ErrFormat)
	}
	if d.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrFormat, d.Format.SampleRate)
	}

	samples := make([]float32, len(d.Samples))
	copy(samples, d.Samples)
	return &Response{samples: samples, sampleRate: d.Format.SampleRate}, nil
}

// FromSamples builds a Response directly from mono samples.
func FromSamples(samples []float32, sampleRate int) (*Response, error) {
	return New(&Decoded{
		Format:  Format{Channels: 1, SampleRate: sampleRate, SampleFormat: Float, BitsPerSample: 32},
		Samples: samples,
	})
}

// Samples returns the impulse response. Callers must not modify the slice.
func (r *Response) Samples() []float32 { return r.samples }

// Len returns the impulse response length in samples.
func (r *Response) Len() int { return len(r.samples) }

// SampleRate returns the sample rate the impulse response was recorded at.
func (r *Response) SampleRate() int { return r.sampleRate }

// CheckSampleRate reports an error unless the impulse response was recorded
// at the host's rate. No resampling is done.
func (r *Response) CheckSampleRate(hostRate int) error {
	if r.sampleRate != hostRate {
		return fmt.Errorf("%w: sample rate of the impulse response (%d Hz) must match the audio server (%d Hz)",
			ErrFormat, r.sampleRate, hostRate)
	}
	return nil
}
