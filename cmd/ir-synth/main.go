package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/sjconv/impulse"
	"github.com/cwbudde/sjconv/irsynth"
)

func main() {
	cfg := irsynth.DefaultConfig()

	output := flag.String("output", "synth_ir.wav", "Output WAV path (mono)")
	bits := flag.Int("bits", 24, "Output bit depth (16 or 24)")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate; must match the JACK server")
	flag.Float64Var(&cfg.DurationS, "duration", cfg.DurationS, "IR length in seconds")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.Float64Var(&cfg.RT60S, "rt60", cfg.RT60S, "Decay time to -60 dB in seconds")
	flag.Float64Var(&cfg.PreDelayS, "pre-delay", cfg.PreDelayS, "Delay before the first reflection in seconds")
	flag.Float64Var(&cfg.DirectLevel, "direct", cfg.DirectLevel, "Direct impulse level")
	flag.IntVar(&cfg.EarlyCount, "early", cfg.EarlyCount, "Number of early reflections")
	flag.Float64Var(&cfg.LateLevel, "late", cfg.LateLevel, "Diffuse late-tail level")
	flag.Float64Var(&cfg.DampingHz, "damping", cfg.DampingHz, "Late-tail lowpass cutoff in Hz")
	flag.IntVar(&cfg.Modes, "modes", cfg.Modes, "Number of damped resonances")
	flag.Float64Var(&cfg.Brightness, "brightness", cfg.Brightness, "Spectral brightness of the resonances (>0)")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target")
	flag.Parse()

	if *bits != 16 && *bits != 24 {
		fmt.Fprintf(os.Stderr, "ir-synth error: unsupported bit depth %d\n", *bits)
		os.Exit(1)
	}

	ir, err := irsynth.Generate(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ir-synth error: %v\n", err)
		os.Exit(1)
	}

	if err := writeMonoWAV(*output, ir, cfg.SampleRate, *bits); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}

	// Read back through the same loader sjconv uses.
	r, err := impulse.Load(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read-back error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s: %d samples at %d Hz\n", *output, r.Len(), r.SampleRate())
}

func writeMonoWAV(path string, samples []float32, sampleRate, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
