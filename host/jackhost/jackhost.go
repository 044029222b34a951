// Package jackhost implements host.Client on top of the JACK audio server.
package jackhost

import (
	"fmt"
	"unsafe"

	"github.com/xthexder/go-jack"

	"github.com/cwbudde/sjconv/host"
)

// Connector opens JACK clients without auto-starting a server.
type Connector struct{}

func (Connector) Connect(name string) (host.Client, error) {
	c, status := jack.ClientOpen(name, jack.NoStartServer)
	if err := openError(c != nil, status); err != nil {
		return nil, err
	}
	return &client{c: c}, nil
}

// openError maps the result of jack_client_open to an error. The status word
// is a bit mask that may carry informational bits (a renamed client, a
// freshly started server) even when a client was returned, so only a missing
// client counts as failure.
func openError(opened bool, status int) error {
	if opened {
		return nil
	}
	if status == 0 {
		return fmt.Errorf("%w: no client returned", host.ErrConnect)
	}
	return fmt.Errorf("%w: %v (status 0x%x)", host.ErrConnect, jack.StrError(status), status)
}

type client struct {
	c *jack.Client
}

func (c *client) Name() string    { return c.c.GetName() }
func (c *client) SampleRate() int { return int(c.c.GetSampleRate()) }
func (c *client) BufferSize() int { return int(c.c.GetBufferSize()) }

func (c *client) RegisterPort(name string, dir host.Direction) (host.Port, error) {
	flags := uint64(jack.PortIsInput)
	if dir == host.Output {
		flags = uint64(jack.PortIsOutput)
	}
	p := c.c.PortRegister(name, jack.DEFAULT_AUDIO_TYPE, flags, 0)
	if p == nil {
		return nil, fmt.Errorf("%w: %s port %q", host.ErrPort, dir, name)
	}
	return &port{p: p}, nil
}

func (c *client) Activate(h host.Handlers) (host.Active, error) {
	if code := c.c.SetProcessCallback(func(nframes uint32) int {
		return status(h.Process(int(nframes)))
	}); code != 0 {
		return nil, fmt.Errorf("%w: process callback: %s", host.ErrActivate, jack.StrError(code))
	}
	if code := c.c.SetBufferSizeCallback(func(nframes uint32) int {
		return status(h.BufferSize(int(nframes)))
	}); code != 0 {
		return nil, fmt.Errorf("%w: buffer size callback: %s", host.ErrActivate, jack.StrError(code))
	}
	c.c.OnShutdown(func() {
		h.Shutdown("JACK server shut down")
	})

	if code := c.c.Activate(); code != 0 {
		return nil, fmt.Errorf("%w: %s", host.ErrActivate, jack.StrError(code))
	}
	return &active{c: c.c}, nil
}

func (c *client) Close() error {
	if code := c.c.Close(); code != 0 {
		return fmt.Errorf("jackhost: close: %s", jack.StrError(code))
	}
	return nil
}

type active struct {
	c *jack.Client
}

func (a *active) Close() error {
	if code := a.c.Deactivate(); code != 0 {
		_ = a.c.Close()
		return fmt.Errorf("jackhost: deactivate: %s", jack.StrError(code))
	}
	if code := a.c.Close(); code != 0 {
		return fmt.Errorf("jackhost: close: %s", jack.StrError(code))
	}
	return nil
}

type port struct {
	p *jack.Port
}

func (p *port) Name() string { return p.p.GetName() }

// Buffer reinterprets the JACK sample buffer in place; jack.AudioSample is a
// float32.
func (p *port) Buffer(nframes int) []float32 {
	buf := p.p.GetBuffer(uint32(nframes))
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), len(buf))
}

func status(c host.Control) int {
	if c == host.Quit {
		return 1
	}
	return 0
}
