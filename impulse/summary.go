package impulse

import (
	"fmt"
	"math"

	irmeasure "github.com/cwbudde/algo-dsp/measure/ir"
	dspstats "github.com/cwbudde/algo-dsp/stats/time"
)

// Summary is a human-readable description of a decoded file.
type Summary struct {
	Format   Format
	Frames   int
	Duration float64 // seconds
	PeakDB   float64 // dBFS of the first channel
	RMSDB    float64
	RT60     float64 // seconds; 0 when the decay is too short to estimate
}

// Summarize computes level and decay statistics over the first channel.
func Summarize(d *Decoded) Summary {
	s := Summary{Format: d.Format, Frames: d.Frames()}
	if d.Format.SampleRate > 0 {
		s.Duration = float64(s.Frames) / float64(d.Format.SampleRate)
	}
	if s.Frames == 0 {
		s.PeakDB = math.Inf(-1)
		s.RMSDB = math.Inf(-1)
		return s
	}

	first := make([]float64, s.Frames)
	for i := range first {
		first[i] = float64(d.Samples[i*d.Format.Channels])
	}

	st := dspstats.Calculate(first)
	s.PeakDB = st.Peak_dB
	s.RMSDB = st.RMS_dB

	if d.Format.SampleRate > 0 {
		if m, err := irmeasure.NewAnalyzer(float64(d.Format.SampleRate)).Analyze(first); err == nil && m.RT60 > 0 {
			s.RT60 = m.RT60
		}
	}
	return s
}

func (s Summary) String() string {
	out := fmt.Sprintf("channels=%d sample_rate=%d format=%s bits=%d frames=%d duration=%.3fs peak=%.1fdBFS rms=%.1fdBFS",
		s.Format.Channels, s.Format.SampleRate, s.Format.SampleFormat, s.Format.BitsPerSample,
		s.Frames, s.Duration, s.PeakDB, s.RMSDB)
	if s.RT60 > 0 {
		out += fmt.Sprintf(" rt60=%.2fs", s.RT60)
	}
	return out
}
