// Package app wires the effect together: configuration, impulse response,
// host client, channel pipelines and the shutdown latch.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cwbudde/sjconv/config"
	"github.com/cwbudde/sjconv/host"
	"github.com/cwbudde/sjconv/impulse"
	"github.com/cwbudde/sjconv/pipeline"
	"github.com/cwbudde/sjconv/shutdown"
)

// Options are the process-level inputs to Run.
type Options struct {
	Name      string
	Version   string
	Args      []string
	Stdout    io.Writer
	Stderr    io.Writer
	Connector host.Connector
}

// Run starts the effect and blocks until it stops. It returns the process
// exit code: 0 after an orderly stop, 1 on any failure.
func Run(ctx context.Context, opts Options) int {
	name := opts.Name
	if name == "" {
		name = "sjconv"
	}

	cfg, err := config.Parse(name, opts.Args, opts.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(opts.Stderr, "%s: %v\n", name, err)
		return 1
	}
	if cfg.Version {
		fmt.Fprintf(opts.Stdout, "%s %s\n", name, opts.Version)
		return 0
	}

	logger := slog.New(slog.NewTextHandler(opts.Stderr, &slog.HandlerOptions{Level: cfg.Level()})).
		With("run", uuid.NewString())

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("sjconv stopped", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) error {
	decoded, err := impulse.Decode(cfg.File)
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.Stdout, "File loaded: %s\n", impulse.Summarize(decoded))

	ir, err := impulse.New(decoded)
	if err != nil {
		return err
	}

	client, err := opts.Connector.Connect(cfg.ClientName)
	if err != nil {
		return err
	}
	activated := false
	defer func() {
		if !activated {
			_ = client.Close()
		}
	}()
	logger = logger.With("client", client.Name())

	if err := ir.CheckSampleRate(client.SampleRate()); err != nil {
		return err
	}

	proc, err := pipeline.New(client, ir, cfg.Ports)
	if err != nil {
		return err
	}

	latch := shutdown.New()
	active, err := client.Activate(proc.Handlers(func(reason string) {
		logger.Info("audio server shut down", "reason", reason)
		latch.Signal(nil)
	}))
	if err != nil {
		return err
	}
	activated = true

	fmt.Fprintln(opts.Stdout, "Started")
	logger.Info("convolution running",
		"channels", cfg.Ports,
		"block_size", client.BufferSize(),
		"sample_rate", client.SampleRate(),
		"ir_samples", ir.Len())

	watchCtx, stopWatch := context.WithCancel(context.Background())
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		pipeline.Watch(watchCtx, proc, cfg.StatsInterval, logger, func(err error) {
			latch.Signal(err)
		})
	}()

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("interrupted", "cause", context.Cause(ctx))
			latch.Signal(nil)
		case <-stopped:
		}
	}()

	cause := latch.Wait()
	close(stopped)
	stopWatch()
	<-watchDone

	if err := active.Close(); err != nil {
		logger.Warn("closing client", "error", err)
	}
	if cause == nil {
		cause = proc.InitErr()
	}
	if cause != nil {
		return cause
	}

	snap := proc.Snapshot()
	var failures uint64
	for _, n := range snap.Failures {
		failures += n
	}
	logger.Info("shut down", "reinits", snap.Reinits, "process_errors", failures)
	fmt.Fprintln(opts.Stdout, "Shut down cleanly")
	return nil
}
