// Package host describes the pull-based audio server the effect runs inside.
//
// The server owns the real-time thread. It calls Handlers.Process once per
// block and Handlers.BufferSize whenever the block size changes; the two are
// never run concurrently for the same client. Handlers.Shutdown is called from
// a separate notification context when the server goes away.
package host

import "errors"

var (
	ErrConnect  = errors.New("host: couldn't create client")
	ErrPort     = errors.New("host: port registration failed")
	ErrActivate = errors.New("host: couldn't activate client")
)

// Direction is the data direction of a port, seen from the client.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Control is returned by real-time callbacks to tell the server whether the
// stream may continue.
type Control int

const (
	Continue Control = iota
	Quit
)

// Port is a registered audio port.
type Port interface {
	Name() string
	// Buffer returns the port's samples for the current cycle. It is only
	// valid inside a process callback and must not be retained.
	Buffer(nframes int) []float32
}

// Handlers are the callbacks passed to Client.Activate.
type Handlers struct {
	Process    func(nframes int) Control
	BufferSize func(nframes int) Control
	Shutdown   func(reason string)
}

// Client is an open, not yet activated connection to the server.
type Client interface {
	Name() string
	SampleRate() int
	BufferSize() int
	RegisterPort(name string, dir Direction) (Port, error)
	Activate(h Handlers) (Active, error)
	// Close releases a client that was never activated.
	Close() error
}

// Active is an activated client. Close deactivates and releases it; no
// callback runs after Close returns.
type Active interface {
	Close() error
}

// Connector opens clients.
type Connector interface {
	Connect(name string) (Client, error)
}
