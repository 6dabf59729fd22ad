package aatransport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	keepAliveIdle     = 5
	keepAliveInterval = 3
	keepAliveCount    = 3
	readBufferSize    = 64 * 1024
)

// TCPTransport is the production Transport: an already-accepted TCP socket
// from the phone (the Bluetooth rendezvous that hands the phone the HU's
// IP/port is out of this package's scope; by the time a TCPTransport
// exists, the kernel has already completed the three-way handshake).
type TCPTransport struct {
	conn    *net.TCPConn
	handler Handler

	mu        sync.Mutex
	connected bool
}

// NewTCPTransport wraps an accepted connection. Call SetHandler before
// Connect to install the event recipient, then Connect to apply socket
// tuning and start delivering events.
func NewTCPTransport(conn *net.TCPConn) *TCPTransport {
	return &TCPTransport{conn: conn}
}

// SetHandler installs the event recipient. Must be called before Connect.
func (t *TCPTransport) SetHandler(handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect applies TCP_NODELAY and the keepalive tuning required for a
// wireless projection link, then starts the read loop.
func (t *TCPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return ErrAlreadyConnected
	}
	t.connected = true
	t.mu.Unlock()

	if err := t.conn.SetNoDelay(true); err != nil {
		return err
	}
	if err := tuneKeepAlive(t.conn); err != nil {
		return err
	}

	t.handler.OnConnected()
	go t.readLoop()
	return nil
}

func (t *TCPTransport) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.handler.OnBytesReceived(chunk)
		}
		if err != nil {
			t.finish(err)
			return
		}
	}
}

func (t *TCPTransport) finish(err error) {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return
	}
	t.connected = false
	t.mu.Unlock()

	_ = t.conn.Close()
	if errors.Is(err, io.EOF) {
		err = nil
	}
	t.handler.OnDisconnected(err)
}

// Disconnect closes the socket. Safe to call more than once.
func (t *TCPTransport) Disconnect() error {
	t.finish(nil)
	return nil
}

// IsConnected reports whether the transport is currently connected.
func (t *TCPTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Write buffers b for sending over the socket.
func (t *TCPTransport) Write(b []byte) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}
	_, err := t.conn.Write(b)
	if err != nil {
		t.finish(err)
	}
	return err
}

// RawConn exposes the underlying *net.TCPConn for the watchdog, which
// needs raw socket access TCPTransport does not otherwise expose.
func (t *TCPTransport) RawConn() *net.TCPConn {
	return t.conn
}

// tuneKeepAlive sets TCP_KEEPIDLE/TCP_KEEPINTVL/TCP_KEEPCNT via a raw
// socket control block — net.TCPConn exposes only a single keepalive
// period, not the three separate knobs a silent wireless drop needs to be
// caught within ~15s, so golang.org/x/sys/unix is the only portable way to
// reach them.
func tuneKeepAlive(conn *net.TCPConn) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}

	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	ctrlErr := rawConn.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepAliveIdle); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepAliveInterval); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveCount); e != nil {
			sockErr = e
			return
		}
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
