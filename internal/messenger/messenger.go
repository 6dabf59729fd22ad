// Package messenger implements the byte-stream <-> message pipeline that
// sits between Transport and the rest of the session: fragmentation on
// send, reassembly on receive, the encryption bracket, handshake byte
// routing, and the per-channel reassembly buffers.
package messenger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openauto-hu/aahu/internal/aacrypto"
	"github.com/openauto-hu/aahu/internal/aatransport"
	"github.com/openauto-hu/aahu/internal/aawire"
	"github.com/openauto-hu/aahu/pkg/protolog"
)

// sslHandshakeMessageID is channel 0's reserved message ID for TLS record
// bytes tunneled inside the AA frame stream, ahead of the real handshake.
const sslHandshakeMessageID = uint16(aawire.SSLHandshake)

// ErrProtocolError wraps every framing violation Messenger reports through
// Observer.OnProtocolError: a malformed header, a Middle/Last frame with no
// active reassembly, reassembled bytes overshooting the total the First
// frame announced, and a message shorter than its messageId prefix.
var ErrProtocolError = errors.New("messenger: reassembly length mismatch")

// Observer receives every event Messenger produces: completed messages,
// handshake bytes pulled off channel 0, protocol violations, and the
// transport lifecycle signals Messenger forwards on Session's behalf
// (Messenger implements aatransport.Handler directly so the session never
// has to wire raw bytes through by hand).
type Observer interface {
	// OnMessageReceived delivers a fully reassembled message. payload
	// includes the 2-byte messageId prefix at offset 0; dataOffset (always
	// 2) marks where the body begins, letting handlers slice without a
	// copy.
	OnMessageReceived(channelID uint8, messageID uint16, payload []byte, dataOffset int)
	// OnSSLHandshakeData delivers the body of an inbound plain SSL_HANDSHAKE
	// message on channel 0, already routed into the Cryptor.
	OnSSLHandshakeData(body []byte)
	// OnProtocolError reports a framing violation, including a reassembly
	// length mismatch. The offending frame or message is discarded and
	// Messenger keeps parsing the stream.
	OnProtocolError(err error)
	// OnTransportConnected/OnTransportDisconnected/OnTransportError mirror
	// aatransport.Handler, forwarded verbatim.
	OnTransportConnected()
	OnTransportDisconnected(err error)
	OnTransportError(err error)
}

type reassemblyBuffer struct {
	expectedTotal uint32
	accumulated   []byte
	plain         bool // Encryption flag observed on the First frame
}

// Messenger composes a Transport, a Cryptor, and the frame codec. It
// exclusively owns the Cryptor and the per-channel reassembly buffers;
// Transport is merely borrowed for the session's lifetime.
type Messenger struct {
	transport aatransport.Transport
	cryptor   *aacrypto.Cryptor
	observer  Observer

	encrypted atomic.Bool

	// rxBuf and buffers are touched only from the transport's read
	// goroutine (via OnBytesReceived), matching the "no locks needed"
	// single-owner invariant: Messenger is the only thing that ever
	// mutates them.
	rxBuf   []byte
	buffers map[uint8]*reassemblyBuffer

	// logger is the one genuinely shared resource: SetLogger can race
	// with an in-flight Log call from the send or receive path, so it is
	// guarded by its own mutex exactly as the protocol-logger ownership
	// note specifies.
	loggerMu sync.Mutex
	logger   protolog.Logger

	connectionID string
}

// New builds a Messenger over transport and cryptor, delivering events to
// observer.
func New(transport aatransport.Transport, cryptor *aacrypto.Cryptor, observer Observer) *Messenger {
	m := &Messenger{
		transport: transport,
		cryptor:   cryptor,
		observer:  observer,
		buffers:   make(map[uint8]*reassemblyBuffer),
		logger:    protolog.NoopLogger{},
	}
	return m
}

// SetLogger attaches (or detaches, with nil) a protocol-log tap. Safe to
// call at any time, including mid-burst.
func (m *Messenger) SetLogger(l protolog.Logger) {
	if l == nil {
		l = protolog.NoopLogger{}
	}
	m.loggerMu.Lock()
	m.logger = l
	m.loggerMu.Unlock()
}

func (m *Messenger) log(e protolog.Event) {
	m.loggerMu.Lock()
	l := m.logger
	m.loggerMu.Unlock()
	l.Log(e)
}

// SetConnectionID tags every subsequent protocol-log event with id, so log
// lines from concurrent phone connections can be told apart.
func (m *Messenger) SetConnectionID(id string) {
	m.connectionID = id
}

// SetEncrypted flips whether outgoing frames are marked (and encrypted)
// as Encrypted. Session calls this once the TLS handshake completes.
func (m *Messenger) SetEncrypted(v bool) {
	m.encrypted.Store(v)
}

// Reset clears per-channel reassembly state and the receive buffer.
// Session does not call it: every Session builds its own Messenger, so
// buffers are not carried across reconnects.
func (m *Messenger) Reset() {
	m.rxBuf = nil
	m.buffers = make(map[uint8]*reassemblyBuffer)
}

// --- send path ---

// SendMessage fragments and writes (channelId, messageId, body) to the
// transport, encrypting each fragment independently once the handshake
// has completed.
func (m *Messenger) SendMessage(channelID uint8, messageID uint16, body []byte) error {
	fullPayload := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(fullPayload[0:2], messageID)
	copy(fullPayload[2:], body)

	encType := aawire.EncryptionPlain
	if m.encrypted.Load() {
		encType = aawire.EncryptionEncrypted
	}
	msgType := aawire.MessageTypeForChannel(channelID)

	var err error
	if len(fullPayload) <= aawire.MaxFramePayload {
		err = m.writeFrame(channelID, aawire.FrameTypeBulk, msgType, encType, fullPayload, 0)
	} else {
		err = m.sendFragmented(channelID, msgType, encType, fullPayload)
	}
	if err != nil {
		return err
	}

	m.log(protolog.NewEvent(m.connectionID, protolog.DirectionSend, channelID, messageID, body, time.Now()))
	return nil
}

func (m *Messenger) sendFragmented(channelID uint8, msgType aawire.MessageType, encType aawire.EncryptionType, fullPayload []byte) error {
	total := uint32(len(fullPayload))
	offset := 0
	first := true
	for offset < len(fullPayload) {
		end := offset + aawire.MaxFramePayload
		if end > len(fullPayload) {
			end = len(fullPayload)
		}
		chunk := fullPayload[offset:end]

		var ft aawire.FrameType
		var totalLen uint32
		switch {
		case first:
			ft = aawire.FrameTypeFirst
			totalLen = total
		case end == len(fullPayload):
			ft = aawire.FrameTypeLast
		default:
			ft = aawire.FrameTypeMiddle
		}

		if err := m.writeFrame(channelID, ft, msgType, encType, chunk, totalLen); err != nil {
			return err
		}
		first = false
		offset = end
	}
	return nil
}

func (m *Messenger) writeFrame(channelID uint8, ft aawire.FrameType, mt aawire.MessageType, enc aawire.EncryptionType, payload []byte, totalLen uint32) error {
	outPayload := payload
	if enc == aawire.EncryptionEncrypted {
		ct, err := m.cryptor.Encrypt(payload)
		if err != nil {
			return err
		}
		outPayload = ct
	}
	wire := aawire.SerialiseFrame(channelID, ft, mt, enc, outPayload, totalLen)
	return m.transport.Write(wire)
}

// --- receive path (aatransport.Handler) ---

func (m *Messenger) OnConnected()            { m.observer.OnTransportConnected() }
func (m *Messenger) OnDisconnected(err error) { m.observer.OnTransportDisconnected(err) }
func (m *Messenger) OnError(err error)        { m.observer.OnTransportError(err) }

// OnBytesReceived appends b to the internal growable buffer and parses as
// many complete frames as are available.
func (m *Messenger) OnBytesReceived(b []byte) {
	m.rxBuf = append(m.rxBuf, b...)

	for {
		frame, n, err := aawire.ParseFrame(m.rxBuf)
		if errors.Is(err, aawire.ErrNeedMore) {
			return
		}
		if errors.Is(err, aawire.ErrMalformed) {
			m.observer.OnProtocolError(fmt.Errorf("%w: %v", ErrProtocolError, err))
			// Drop the one bad byte and resynchronize rather than stall
			// forever on an unparseable header.
			m.rxBuf = m.rxBuf[1:]
			continue
		}
		m.rxBuf = m.rxBuf[n:]
		if handleErr := m.handleFrame(frame); handleErr != nil {
			m.observer.OnProtocolError(handleErr)
		}
	}
}

func (m *Messenger) handleFrame(f *aawire.Frame) error {
	payload := f.Payload
	if f.Encryption == aawire.EncryptionEncrypted {
		plain, err := m.cryptor.Decrypt(payload)
		if err != nil {
			return fmt.Errorf("messenger: decrypt failed: %w", err)
		}
		payload = plain
	}

	switch f.FrameType {
	case aawire.FrameTypeBulk:
		return m.deliverComplete(f.ChannelID, f.Encryption == aawire.EncryptionPlain, payload)

	case aawire.FrameTypeFirst:
		m.buffers[f.ChannelID] = &reassemblyBuffer{
			expectedTotal: f.TotalLen,
			accumulated:   append([]byte(nil), payload...),
			plain:         f.Encryption == aawire.EncryptionPlain,
		}
		return nil

	case aawire.FrameTypeMiddle:
		buf, ok := m.buffers[f.ChannelID]
		if !ok {
			// Middle without an active First: a protocol violation, but
			// not fatal — log and drop per the resolved unknown-frame
			// policy.
			return fmt.Errorf("%w: middle frame on channel %d with no active reassembly", ErrProtocolError, f.ChannelID)
		}
		buf.accumulated = append(buf.accumulated, payload...)
		if uint32(len(buf.accumulated)) > buf.expectedTotal {
			delete(m.buffers, f.ChannelID)
			return fmt.Errorf("%w: channel %d reassembled %d bytes, First frame announced %d", ErrProtocolError, f.ChannelID, len(buf.accumulated), buf.expectedTotal)
		}

		// A frame's wire bits cannot distinguish Middle from Last (see
		// aawire.FrameTypeLast); treat reaching expectedTotal as
		// completion regardless of which name this frame would have
		// carried.
		if uint32(len(buf.accumulated)) == buf.expectedTotal {
			delete(m.buffers, f.ChannelID)
			return m.deliverComplete(f.ChannelID, buf.plain, buf.accumulated)
		}
		return nil

	default:
		return fmt.Errorf("%w: unexpected frame type %v", ErrProtocolError, f.FrameType)
	}
}

// deliverComplete handles a fully reassembled (or Bulk) message: it is
// either plain SSL_HANDSHAKE traffic on channel 0 routed into the Cryptor,
// or a regular message delivered to the observer.
func (m *Messenger) deliverComplete(channelID uint8, wasPlain bool, complete []byte) error {
	if len(complete) < 2 {
		return fmt.Errorf("%w: message shorter than messageId prefix on channel %d", ErrProtocolError, channelID)
	}
	messageID := binary.BigEndian.Uint16(complete[0:2])
	body := complete[2:]

	if wasPlain && channelID == 0 && messageID == sslHandshakeMessageID {
		if err := m.cryptor.WriteHandshakeBuffer(body); err != nil {
			return fmt.Errorf("messenger: handshake routing failed: %w", err)
		}
		m.observer.OnSSLHandshakeData(body)
		return nil
	}

	m.log(protolog.NewEvent(m.connectionID, protolog.DirectionReceive, channelID, messageID, body, time.Now()))
	m.observer.OnMessageReceived(channelID, messageID, complete, 2)
	return nil
}

var _ aatransport.Handler = (*Messenger)(nil)
