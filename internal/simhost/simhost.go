// Package simhost is an in-process stand-in for the audio server. Tests drive
// process cycles and block-size changes explicitly; callbacks are serialized
// the way a real server serializes them on its real-time thread.
package simhost

import (
	"fmt"
	"sync"

	"github.com/cwbudde/sjconv/host"
)

// Host is a simulated server with a single client.
type Host struct {
	// Failure injection, set before Connect.
	ConnectErr  error
	RegisterErr error
	// RegisterFailAt makes the n-th RegisterPort call (1-based) fail with
	// RegisterErr. Zero fails every call when RegisterErr is set.
	RegisterFailAt int
	ActivateErr    error

	mu         sync.Mutex
	name       string
	sampleRate int
	bufferSize int
	ports      []*Port
	registered int
	handlers   host.Handlers
	running    bool
	closed     bool
	cycles     int

	activated    chan struct{}
	shutdownOnce sync.Once
	shutdownDone chan struct{}
}

// New returns a host running at the given rate and block size.
func New(sampleRate, bufferSize int) *Host {
	return &Host{
		sampleRate:   sampleRate,
		bufferSize:   bufferSize,
		activated:    make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

// Connect implements host.Connector.
func (h *Host) Connect(name string) (host.Client, error) {
	if h.ConnectErr != nil {
		return nil, fmt.Errorf("%w: %w", host.ErrConnect, h.ConnectErr)
	}
	h.mu.Lock()
	h.name = name
	h.mu.Unlock()
	return &client{h: h}, nil
}

// Activated is closed once the client has been activated.
func (h *Host) Activated() <-chan struct{} { return h.activated }

// ShutdownDelivered is closed after the shutdown handler has returned.
func (h *Host) ShutdownDelivered() <-chan struct{} { return h.shutdownDone }

// ClientName is the name the client connected with.
func (h *Host) ClientName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

// Port returns the registered port with the given name, or nil.
func (h *Host) Port(name string) *Port {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.ports {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Ports returns the names of all registered ports in registration order.
func (h *Host) Ports() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.ports))
	for i, p := range h.ports {
		names[i] = p.name
	}
	return names
}

// Running reports whether the client is active and has not been stopped.
func (h *Host) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Closed reports whether the client has been released.
func (h *Host) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Cycles returns the number of process callbacks delivered.
func (h *Host) Cycles() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cycles
}

// BufferSize returns the current block size.
func (h *Host) BufferSize() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bufferSize
}

// Cycle runs one process callback at the current block size. A stopped host
// returns Quit without calling the handler.
func (h *Host) Cycle() host.Control {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return host.Quit
	}
	h.cycles++
	ctl := h.handlers.Process(h.bufferSize)
	if ctl == host.Quit {
		h.stopLocked("process callback returned quit")
	}
	return ctl
}

// SetBufferSize changes the block size and delivers the buffer-size callback.
// Port buffers grow as needed before the callback runs.
func (h *Host) SetBufferSize(n int) host.Control {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bufferSize = n
	for _, p := range h.ports {
		p.ensure(n)
	}
	if !h.running {
		return host.Continue
	}
	ctl := h.handlers.BufferSize(n)
	if ctl == host.Quit {
		h.stopLocked("buffer size callback returned quit")
	}
	return ctl
}

// Shutdown simulates the server going away. The handler runs asynchronously,
// as it does on a real server's notification thread.
func (h *Host) Shutdown(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked(reason)
}

func (h *Host) stopLocked(reason string) {
	if !h.running {
		return
	}
	h.running = false
	handler := h.handlers.Shutdown
	h.shutdownOnce.Do(func() {
		go func() {
			defer close(h.shutdownDone)
			if handler != nil {
				handler(reason)
			}
		}()
	})
}

type client struct {
	h *Host
}

func (c *client) Name() string { return c.h.ClientName() }

func (c *client) SampleRate() int {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	return c.h.sampleRate
}

func (c *client) BufferSize() int { return c.h.BufferSize() }

func (c *client) RegisterPort(name string, dir host.Direction) (host.Port, error) {
	h := c.h
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("%w: client closed", host.ErrPort)
	}
	h.registered++
	if h.RegisterErr != nil && (h.RegisterFailAt == 0 || h.RegisterFailAt == h.registered) {
		return nil, fmt.Errorf("%w: %s port %q: %w", host.ErrPort, dir, name, h.RegisterErr)
	}
	for _, p := range h.ports {
		if p.name == name {
			return nil, fmt.Errorf("%w: duplicate port %q", host.ErrPort, name)
		}
	}
	p := &Port{name: name, dir: dir}
	p.ensure(h.bufferSize)
	h.ports = append(h.ports, p)
	return p, nil
}

func (c *client) Activate(handlers host.Handlers) (host.Active, error) {
	h := c.h
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ActivateErr != nil {
		return nil, fmt.Errorf("%w: %w", host.ErrActivate, h.ActivateErr)
	}
	if h.running || h.closed {
		return nil, fmt.Errorf("%w: client already activated", host.ErrActivate)
	}
	h.handlers = handlers
	h.running = true
	close(h.activated)
	return &active{h: h}, nil
}

func (c *client) Close() error {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	c.h.closed = true
	return nil
}

type active struct {
	h *Host
}

// Close deactivates the client. Holding the host lock guarantees no callback
// is in flight when it returns.
func (a *active) Close() error {
	a.h.mu.Lock()
	defer a.h.mu.Unlock()
	a.h.running = false
	a.h.closed = true
	return nil
}

// Port is a simulated audio port backed by a plain slice.
type Port struct {
	name string
	dir  host.Direction
	buf  []float32
}

func (p *Port) Name() string              { return p.name }
func (p *Port) Direction() host.Direction { return p.dir }

// Buffer implements host.Port.
func (p *Port) Buffer(nframes int) []float32 {
	return p.buf[:nframes]
}

// Write copies samples into the port buffer for the next cycle. Callers use
// it on input ports between cycles.
func (p *Port) Write(samples []float32) {
	clear(p.buf)
	copy(p.buf, samples)
}

// Read returns a copy of the first n samples of the port buffer.
func (p *Port) Read(n int) []float32 {
	out := make([]float32, n)
	copy(out, p.buf)
	return out
}

func (p *Port) ensure(n int) {
	if cap(p.buf) < n {
		grown := make([]float32, n)
		copy(grown, p.buf)
		p.buf = grown
		return
	}
	p.buf = p.buf[:max(len(p.buf), n)]
}
