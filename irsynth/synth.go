// Package irsynth generates synthetic mono room impulse responses for trying
// the convolution effect without a recorded IR.
package irsynth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-approx"

	"github.com/cwbudde/sjconv/dsp"
	"github.com/cwbudde/sjconv/impulse"
)

// ln1000 converts an RT60 into an amplitude time constant: a 60 dB drop is a
// factor of 1000.
const ln1000 = 6.907755278982137

// Config controls synthetic IR generation.
type Config struct {
	SampleRate int
	DurationS  float64
	Seed       int64

	RT60S       float64 // decay time of the tail and body modes
	PreDelayS   float64 // gap between the direct sound and the first reflection
	DirectLevel float64
	EarlyCount  int
	EarlySpanS  float64 // early reflections land in [PreDelayS, PreDelayS+EarlySpanS)
	LateLevel   float64
	DampingHz   float64 // lowpass cutoff applied to the diffuse tail

	Modes      int // damped resonances adding coloration; 0 disables
	Brightness float64

	FadeOutS      float64
	NormalizePeak float64
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    48000,
		DurationS:     1.5,
		Seed:          1,
		RT60S:         0.8,
		PreDelayS:     0.004,
		DirectLevel:   0.6,
		EarlyCount:    16,
		EarlySpanS:    0.035,
		LateLevel:     0.35,
		DampingHz:     6000,
		Modes:         24,
		Brightness:    1.0,
		FadeOutS:      0.01,
		NormalizePeak: 0.9,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.RT60S <= 0 {
		return fmt.Errorf("rt60 must be > 0")
	}
	if c.PreDelayS < 0 || c.EarlySpanS < 0 {
		return fmt.Errorf("pre-delay and early span must be >= 0")
	}
	if c.DirectLevel < 0 {
		return fmt.Errorf("direct level must be >= 0")
	}
	if c.EarlyCount < 0 {
		return fmt.Errorf("early count must be >= 0")
	}
	if c.LateLevel < 0 {
		return fmt.Errorf("late level must be >= 0")
	}
	if c.DampingHz <= 0 {
		return fmt.Errorf("damping cutoff must be > 0")
	}
	if c.Modes < 0 {
		return fmt.Errorf("modes must be >= 0")
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("brightness must be > 0")
	}
	if c.FadeOutS < 0 {
		return fmt.Errorf("fade-out must be >= 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// Generate synthesizes a mono IR: direct impulse, early reflections, damped
// body modes and a lowpassed noise tail, DC-blocked and peak-normalized.
func Generate(cfg Config) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := max(int(math.Round(cfg.DurationS*float64(cfg.SampleRate))), 1)
	sr := float64(cfg.SampleRate)
	buf := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	buf[0] += cfg.DirectLevel

	// Decay per second in the log domain, fed to FastExp per sample.
	rate := ln1000 / cfg.RT60S

	for i := 0; i < cfg.EarlyCount; i++ {
		t := cfg.PreDelayS + cfg.EarlySpanS*rng.Float64()
		idx := int(t * sr)
		if idx <= 0 || idx >= n {
			continue
		}
		amp := (0.15 + 0.35*rng.Float64()) * float64(approx.FastExp(float32(-t*rate)))
		if rng.Intn(2) == 0 {
			amp = -amp
		}
		buf[idx] += amp
	}

	if cfg.Modes > 0 {
		maxF := math.Max(0.45*sr, 500)
		minF := 40.0
		brightnessExp := 0.7 + 0.9*cfg.Brightness
		decay := math.Exp(-rate / sr)
		for m := 0; m < cfg.Modes; m++ {
			f := minF * math.Pow(maxF/minF, (float64(m)+0.5)/float64(cfg.Modes))
			amp := 0.08 / math.Pow(1.0+f/200.0, brightnessExp)
			amp *= 0.7 + 0.6*rng.Float64()
			addModeRec(buf, amp, f, rng.Float64()*2.0*math.Pi, decay, sr)
		}
	}

	if cfg.LateLevel > 0 {
		tail := make([]float32, n)
		for i := range tail {
			tail[i] = float32(rng.NormFloat64())
		}
		dsp.NewLowpass(float32(cfg.DampingHz), float32(sr), 0.707).ProcessBlock(tail)
		onset := int(cfg.PreDelayS * sr)
		for i := onset; i < n; i++ {
			t := float64(i) / sr
			env := float64(approx.FastExp(float32(-t * rate)))
			buf[i] += cfg.LateLevel * env * float64(tail[i])
		}
	}

	out := make([]float32, n)
	for i, v := range buf {
		out[i] = float32(v)
	}
	dsp.NewDCBlocker(0.995).ProcessBlock(out)
	applyFadeOut(out, cfg.FadeOutS, cfg.SampleRate)
	normalize(out, cfg.NormalizePeak)
	return out, nil
}

// Response generates an IR and wraps it for the convolution pipeline.
func Response(cfg Config) (*impulse.Response, error) {
	samples, err := Generate(cfg)
	if err != nil {
		return nil, err
	}
	return impulse.FromSamples(samples, cfg.SampleRate)
}

// addModeRec adds an exponentially decaying sinusoid using the Chebyshev
// recurrence x[n] = 2cos(w)x[n-1] - x[n-2].
func addModeRec(out []float64, amp, freq, phase, decay, sampleRate float64) {
	if len(out) == 0 {
		return
	}
	w := 2.0 * math.Pi * freq / sampleRate
	cw := math.Cos(w)
	x0 := math.Cos(phase)
	x1 := math.Cos(phase + w)
	env := 1.0

	out[0] += amp * env * x0
	env *= decay
	if len(out) == 1 {
		return
	}
	out[1] += amp * env * x1
	env *= decay
	for i := 2; i < len(out); i++ {
		x2 := 2.0*cw*x1 - x0
		x0 = x1
		x1 = x2
		out[i] += amp * env * x2
		env *= decay
	}
}

// applyFadeOut applies a cosine fade-out to the last fadeS seconds of buf.
func applyFadeOut(buf []float32, fadeS float64, sampleRate int) {
	if fadeS <= 0 || len(buf) == 0 {
		return
	}
	fadeSamples := min(int(math.Round(fadeS*float64(sampleRate))), len(buf))
	start := len(buf) - fadeSamples
	for i := 0; i < fadeSamples; i++ {
		t := float64(i) / float64(fadeSamples)
		buf[start+i] *= float32(0.5 * (1.0 + math.Cos(t*math.Pi)))
	}
}

func normalize(buf []float32, target float64) {
	peak := 0.0
	for _, v := range buf {
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak < 1e-12 {
		return
	}
	s := float32(target / peak)
	for i := range buf {
		buf[i] *= s
	}
}
