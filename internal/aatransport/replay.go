package aatransport

import (
	"context"
	"sync"
)

// ReplayTransport is an in-memory Transport for tests: writes are captured
// into Sent and Feed delivers scripted bytes to the handler as if they
// arrived from the peer. This lets session and messenger tests script an
// entire handshake without a real socket.
type ReplayTransport struct {
	handler Handler

	mu        sync.Mutex
	connected bool
	// Sent records every byte slice passed to Write, in order.
	Sent [][]byte
}

// NewReplayTransport builds a ReplayTransport with no handler installed.
// Call SetHandler before Connect/Feed.
func NewReplayTransport() *ReplayTransport {
	return &ReplayTransport{}
}

// SetHandler installs the event recipient. Must be called before Connect.
func (r *ReplayTransport) SetHandler(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

// Connect marks the transport connected and fires OnConnected.
func (r *ReplayTransport) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.connected {
		r.mu.Unlock()
		return ErrAlreadyConnected
	}
	r.connected = true
	r.mu.Unlock()

	r.handler.OnConnected()
	return nil
}

// Disconnect marks the transport disconnected and fires OnDisconnected(nil).
func (r *ReplayTransport) Disconnect() error {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return nil
	}
	r.connected = false
	r.mu.Unlock()

	r.handler.OnDisconnected(nil)
	return nil
}

// IsConnected reports whether Connect has been called without a matching
// Disconnect/Fault.
func (r *ReplayTransport) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// Write records b in Sent.
func (r *ReplayTransport) Write(b []byte) error {
	if !r.IsConnected() {
		return ErrNotConnected
	}
	cp := make([]byte, len(b))
	copy(cp, b)

	r.mu.Lock()
	r.Sent = append(r.Sent, cp)
	r.mu.Unlock()
	return nil
}

// Feed delivers scripted inbound bytes to the handler, as if received from
// the peer.
func (r *ReplayTransport) Feed(b []byte) {
	r.handler.OnBytesReceived(b)
}

// Fault simulates a transport-level failure, firing OnDisconnected(err).
func (r *ReplayTransport) Fault(err error) {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return
	}
	r.connected = false
	r.mu.Unlock()

	r.handler.OnDisconnected(err)
}
