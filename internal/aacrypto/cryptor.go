// Package aacrypto adapts crypto/tls to the Android Auto handshake, which
// is tunneled inside SSL_HANDSHAKE control-channel frames rather than run
// directly over the socket. crypto/tls has no API for feeding a
// handshake ciphertext by hand, so Cryptor drives a real tls.Conn over a
// net.Pipe: one side is handed to tls.Client/tls.Server, the other is
// where this package injects bytes received from the peer and drains
// bytes the engine wants sent.
package aacrypto

import (
	"crypto/tls"
	"errors"
	"net"
)

// ErrNotStarted is returned by operations that require BeginHandshake to
// have been called first.
var ErrNotStarted = errors.New("aacrypto: handshake not started")

const drainBufferSize = 32 * 1024

// Cryptor is a thin adapter over a TLS engine, matching the contract the
// session drives: beginHandshake, feed/drain handshake ciphertext, a
// handshake-done predicate, and post-handshake encrypt/decrypt. One
// Cryptor is built fresh per connection and dropped with its session —
// TLS state is never reused across reconnects.
type Cryptor struct {
	tlsConn  *tls.Conn
	pipeConn net.Conn // held by tlsConn
	peerConn net.Conn // this package's side

	outboundCh    chan []byte
	handshakeDone chan struct{}
	handshakeErr  error
}

// NewCryptor returns an unstarted Cryptor.
func NewCryptor() *Cryptor {
	return &Cryptor{}
}

// BeginHandshake seeds the client or server role and starts the handshake
// in the background. Call WriteHandshakeBuffer/ReadHandshakeBuffer/
// DoHandshake to drive it forward as SSL_HANDSHAKE frames arrive.
func (c *Cryptor) BeginHandshake(isServer bool, cfg *tls.Config) error {
	pipeConn, peerConn := net.Pipe()
	c.pipeConn = pipeConn
	c.peerConn = peerConn
	c.outboundCh = make(chan []byte, 64)
	c.handshakeDone = make(chan struct{})

	if isServer {
		c.tlsConn = tls.Server(pipeConn, cfg)
	} else {
		c.tlsConn = tls.Client(pipeConn, cfg)
	}

	go c.drainLoop()
	go func() {
		err := c.tlsConn.Handshake()
		c.handshakeErr = err
		close(c.handshakeDone)
	}()
	return nil
}

// drainLoop continuously reads ciphertext the tls.Conn writes to its side
// of the pipe and queues it for ReadHandshakeBuffer/Encrypt to collect.
// It runs for the Cryptor's whole lifetime, not just during the handshake,
// since post-handshake Encrypt also produces ciphertext through the same
// pipe.
func (c *Cryptor) drainLoop() {
	buf := make([]byte, drainBufferSize)
	for {
		n, err := c.peerConn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.outboundCh <- chunk
		}
		if err != nil {
			return
		}
	}
}

// WriteHandshakeBuffer feeds ciphertext received from the peer (the body
// of an inbound SSL_HANDSHAKE message) into the TLS engine.
func (c *Cryptor) WriteHandshakeBuffer(ciphertext []byte) error {
	if c.peerConn == nil {
		return ErrNotStarted
	}
	_, err := c.peerConn.Write(ciphertext)
	return err
}

// ReadHandshakeBuffer drains whatever ciphertext the engine currently
// wants sent to the peer. It never blocks; an empty result means there is
// nothing to send right now.
func (c *Cryptor) ReadHandshakeBuffer() []byte {
	var out []byte
	for {
		select {
		case chunk := <-c.outboundCh:
			out = append(out, chunk...)
		default:
			return out
		}
	}
}

// DoHandshake reports whether the handshake has finished. It must be
// called after every WriteHandshakeBuffer to check whether the exchange
// completed or needs another round trip.
func (c *Cryptor) DoHandshake() (done bool, err error) {
	select {
	case <-c.handshakeDone:
		return true, c.handshakeErr
	default:
		return false, nil
	}
}

// HandshakeDone reports whether the handshake has finished, like
// DoHandshake but without the handshake error; a non-blocking status check
// for use outside the handshake drive loop.
func (c *Cryptor) HandshakeDone() bool {
	select {
	case <-c.handshakeDone:
		return true
	default:
		return false
	}
}

// ConnectionState returns the negotiated TLS connection state. Only
// meaningful once DoHandshake reports done.
func (c *Cryptor) ConnectionState() tls.ConnectionState {
	return c.tlsConn.ConnectionState()
}

// Encrypt seals plaintext into a single TLS record. plaintext must fit
// within one record payload (16384 bytes) — the messenger guarantees this
// by encrypting each fragment independently.
func (c *Cryptor) Encrypt(plaintext []byte) ([]byte, error) {
	errCh := make(chan error, 1)
	go func() {
		_, err := c.tlsConn.Write(plaintext)
		errCh <- err
	}()

	select {
	case chunk := <-c.outboundCh:
		if err := <-errCh; err != nil {
			return nil, err
		}
		return chunk, nil
	case err := <-errCh:
		return nil, err
	}
}

// Decrypt opens a single TLS record's worth of ciphertext back to
// plaintext.
func (c *Cryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	errCh := make(chan error, 1)
	go func() {
		_, err := c.peerConn.Write(ciphertext)
		errCh <- err
	}()

	buf := make([]byte, drainBufferSize)
	n, readErr := c.tlsConn.Read(buf)
	writeErr := <-errCh
	if readErr != nil {
		return nil, readErr
	}
	if writeErr != nil {
		return nil, writeErr
	}
	return buf[:n], nil
}

// Close tears down the TLS engine and its backing pipe. Safe to call once
// per Cryptor, typically when the owning session is destroyed.
func (c *Cryptor) Close() error {
	if c.tlsConn != nil {
		_ = c.tlsConn.Close()
	}
	if c.peerConn != nil {
		_ = c.peerConn.Close()
	}
	return nil
}
