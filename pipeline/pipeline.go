// Package pipeline binds convolution engines to host ports and implements the
// host's real-time callbacks.
//
// Process and BufferSizeChanged run on the host's real-time thread. They take
// no locks, do no I/O and leave every observable side effect in atomics that
// the non-real-time Watch goroutine samples.
package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/sjconv/conv"
	"github.com/cwbudde/sjconv/host"
	"github.com/cwbudde/sjconv/impulse"
)

// Channel is one independent mono signal path: input port, engine, output
// port. Channels share only the immutable impulse response.
type Channel struct {
	index  int
	in     host.Port
	out    host.Port
	engine conv.Engine

	failures atomic.Uint64
}

// Index is the 1-based channel number used in port names.
func (c *Channel) Index() int { return c.index }

// Engine exposes the channel's engine for inspection. It must not be used
// while the host is running callbacks.
func (c *Channel) Engine() *conv.Engine { return &c.engine }

// Failures returns the number of process calls that failed on this channel.
func (c *Channel) Failures() uint64 { return c.failures.Load() }

// Processor owns every channel and the state shared by the real-time
// callbacks.
type Processor struct {
	ir       *impulse.Response
	channels []Channel

	blockSize atomic.Int64
	reinits   atomic.Uint64
	initErr   atomic.Pointer[error]
}

// InputName and OutputName are the port names registered for channel i.
func InputName(i int) string  { return fmt.Sprintf("Input.%d", i) }
func OutputName(i int) string { return fmt.Sprintf("Output.%d", i) }

// New registers an input and output port per channel on client and
// initializes each channel's engine at the client's current block size.
func New(client host.Client, ir *impulse.Response, channels int) (*Processor, error) {
	if channels < 1 {
		return nil, fmt.Errorf("pipeline: need at least one channel, got %d", channels)
	}
	p := &Processor{
		ir:       ir,
		channels: make([]Channel, channels),
	}
	blockSize := client.BufferSize()

	for i := range p.channels {
		ch := &p.channels[i]
		ch.index = i + 1

		in, err := client.RegisterPort(InputName(ch.index), host.Input)
		if err != nil {
			return nil, fmt.Errorf("pipeline: channel %d: %w", ch.index, err)
		}
		out, err := client.RegisterPort(OutputName(ch.index), host.Output)
		if err != nil {
			return nil, fmt.Errorf("pipeline: channel %d: %w", ch.index, err)
		}
		ch.in, ch.out = in, out

		if err := ch.engine.Init(blockSize, ir.Samples()); err != nil {
			return nil, fmt.Errorf("pipeline: channel %d: %w", ch.index, err)
		}
	}
	p.blockSize.Store(int64(blockSize))
	return p, nil
}

// Process is the host's per-block callback. A failing channel is silenced for
// this block and counted; the stream always continues.
func (p *Processor) Process(nframes int) host.Control {
	for i := range p.channels {
		ch := &p.channels[i]
		out := ch.out.Buffer(nframes)
		if err := ch.engine.Process(ch.in.Buffer(nframes), out); err != nil {
			clear(out)
			ch.failures.Add(1)
		}
	}
	return host.Continue
}

// BufferSizeChanged reinitializes every channel for the new block size,
// discarding convolution history. If any channel fails, the first failure is
// recorded and the stream is stopped.
func (p *Processor) BufferSizeChanged(nframes int) host.Control {
	var first error
	for i := range p.channels {
		ch := &p.channels[i]
		if err := ch.engine.Init(nframes, p.ir.Samples()); err != nil && first == nil {
			first = fmt.Errorf("pipeline: channel %d: block size %d: %w", ch.index, nframes, err)
		}
	}
	p.blockSize.Store(int64(nframes))
	p.reinits.Add(1)

	if first != nil {
		p.initErr.CompareAndSwap(nil, &first)
		return host.Quit
	}
	return host.Continue
}

// Handlers returns host callbacks wired to p. onShutdown runs in the host's
// notification context.
func (p *Processor) Handlers(onShutdown func(reason string)) host.Handlers {
	return host.Handlers{
		Process:    p.Process,
		BufferSize: p.BufferSizeChanged,
		Shutdown:   onShutdown,
	}
}

// Channels returns the channels in index order.
func (p *Processor) Channels() []*Channel {
	out := make([]*Channel, len(p.channels))
	for i := range p.channels {
		out[i] = &p.channels[i]
	}
	return out
}

// InitErr returns the first buffer-size reinitialization failure, if any.
func (p *Processor) InitErr() error {
	if e := p.initErr.Load(); e != nil {
		return *e
	}
	return nil
}

// Snapshot is a point-in-time copy of the processor's counters.
type Snapshot struct {
	BlockSize int
	Reinits   uint64
	Failures  []uint64
	InitErr   error
}

// Snapshot reads the counters without synchronizing with the callbacks.
func (p *Processor) Snapshot() Snapshot {
	s := Snapshot{
		BlockSize: int(p.blockSize.Load()),
		Reinits:   p.reinits.Load(),
		Failures:  make([]uint64, len(p.channels)),
		InitErr:   p.InitErr(),
	}
	for i := range p.channels {
		s.Failures[i] = p.channels[i].failures.Load()
	}
	return s
}
