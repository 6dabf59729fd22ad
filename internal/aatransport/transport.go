// Package aatransport implements the byte-oriented, connection-oriented
// duplex channel the Android Auto session is built on: a real TCP socket
// (with the keepalive tuning a wireless projection link needs) and an
// in-memory replay implementation for tests.
package aatransport

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by Write when called before Connect or after
// Disconnect.
var ErrNotConnected = errors.New("aatransport: not connected")

// ErrAlreadyConnected is returned by Connect when called on a transport
// that is already connected.
var ErrAlreadyConnected = errors.New("aatransport: already connected")

// Handler receives transport lifecycle and data events. Implementations
// must not block for long inside these callbacks — they are invoked from
// the transport's read goroutine.
type Handler interface {
	// OnConnected fires once the connection is established and ready for
	// traffic.
	OnConnected()
	// OnDisconnected fires exactly once per connection, whether the
	// disconnect was graceful (err == nil) or a fault.
	OnDisconnected(err error)
	// OnBytesReceived delivers a chunk of the inbound byte stream, in
	// order, with no framing applied.
	OnBytesReceived(b []byte)
	// OnError reports a non-fatal transport fault, distinct from the
	// terminal OnDisconnected.
	OnError(err error)
}

// Transport is a byte-oriented, connection-oriented duplex channel.
// Connection identity is stable between OnConnected and the next
// OnDisconnected.
type Transport interface {
	// Connect starts the transport: for TCPTransport this begins the read
	// loop over an already-accepted socket; for ReplayTransport it marks the
	// transport connected, and scripted bytes arrive through Feed.
	Connect(ctx context.Context) error
	// Disconnect tears down the connection. Safe to call more than once.
	Disconnect() error
	// IsConnected reports whether the transport is currently connected.
	IsConnected() bool
	// Write buffers b for sending. Completion is not observable directly,
	// only through a later OnError/OnDisconnected.
	Write(b []byte) error
	// SetHandler installs the event recipient. The handler and the
	// transport are constructed from opposite ends of the same
	// dependency — the handler (a Messenger) is built around an
	// already-existing Transport — so the transport is built first with
	// no handler and this backfills it before Connect is called.
	SetHandler(handler Handler)
}
