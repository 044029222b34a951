package impulse

import (
	"fmt"
	"os"

	"github.com/cwbudde/wav"
)

const wavFormatFloat = 3

// Decode reads a WAV file. Integer PCM is normalized by 2^(bits-1) by the
// decoder; float data is passed through.
func Decode(path string) (*Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid wav file: %s", ErrLoad, path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: invalid wav buffer: %s", ErrLoad, path)
	}

	format := Format{
		Channels:      buf.Format.NumChannels,
		SampleRate:    buf.Format.SampleRate,
		SampleFormat:  Int,
		BitsPerSample: int(dec.BitDepth),
	}
	// The decoder reports the effective tag, resolving WAVE_FORMAT_EXTENSIBLE
	// to its sub-format.
	if dec.WavAudioFormat == wavFormatFloat {
		format.SampleFormat = Float
	}

	return &Decoded{Format: format, Samples: buf.Data}, nil
}

// Load decodes path and validates it as a mono impulse response.
func Load(path string) (*Response, error) {
	d, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return New(d)
}
