package messenger

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openauto-hu/aahu/internal/aacrypto"
	"github.com/openauto-hu/aahu/internal/aatransport"
	"github.com/openauto-hu/aahu/internal/aawire"
)

type recordedMessage struct {
	channelID uint8
	messageID uint16
	body      []byte
}

type fakeObserver struct {
	messages  []recordedMessage
	protoErrs []error
}

func (f *fakeObserver) OnMessageReceived(channelID uint8, messageID uint16, payload []byte, dataOffset int) {
	f.messages = append(f.messages, recordedMessage{channelID, messageID, append([]byte(nil), payload[dataOffset:]...)})
}
func (f *fakeObserver) OnSSLHandshakeData(body []byte)     {}
func (f *fakeObserver) OnProtocolError(err error)          { f.protoErrs = append(f.protoErrs, err) }
func (f *fakeObserver) OnTransportConnected()              {}
func (f *fakeObserver) OnTransportDisconnected(err error)  {}
func (f *fakeObserver) OnTransportError(err error)         {}

func newMessenger() (*Messenger, *fakeObserver, *aatransport.ReplayTransport) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	m := New(transport, aacrypto.NewCryptor(), obs)
	transport.SetHandler(m)
	return m, obs, transport
}

// buildMessage mirrors what SendMessage encodes for a single Bulk frame:
// a 2-byte messageId prefix followed by body.
func buildMessage(messageID uint16, body []byte) []byte {
	payload := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(payload[0:2], messageID)
	copy(payload[2:], body)
	return payload
}

// Property 2/Scenario S3: a message larger than MaxFramePayload is split
// into First + Middle fragments on send and reassembled whole on receive.
func TestSendMessageFragmentsLargePayload(t *testing.T) {
	m, _, transport := newMessenger()

	body := make([]byte, aawire.MaxFramePayload*2+100)
	for i := range body {
		body[i] = byte(i)
	}

	require.NoError(t, m.SendMessage(5, 0x1234, body))
	require.GreaterOrEqual(t, len(transport.Sent), 3, "expected at least First + two Middle/Last fragments")

	var reassembled []byte
	for i, wire := range transport.Sent {
		frame, n, err := aawire.ParseFrame(wire)
		require.NoError(t, err)
		assert.Equal(t, len(wire), n)
		assert.Equal(t, uint8(5), frame.ChannelID)
		if i == 0 {
			assert.Equal(t, aawire.FrameTypeFirst, frame.FrameType)
			assert.Equal(t, uint32(2+len(body)), frame.TotalLen)
		} else {
			assert.Equal(t, aawire.FrameTypeMiddle, frame.FrameType)
		}
		reassembled = append(reassembled, frame.Payload...)
	}

	assert.Equal(t, buildMessage(0x1234, body), reassembled)
}

// Property 3/Scenario S3: fragments fed back in through OnBytesReceived
// reassemble into a single delivered message.
func TestReassemblesFragmentedMessageOnReceive(t *testing.T) {
	m, obs, _ := newMessenger()

	body := make([]byte, aawire.MaxFramePayload+50)
	for i := range body {
		body[i] = byte(i * 3)
	}
	full := buildMessage(0xABCD, body)

	first := full[:aawire.MaxFramePayload]
	rest := full[aawire.MaxFramePayload:]

	wire := aawire.SerialiseFrame(9, aawire.FrameTypeFirst, aawire.MessageTypeForChannel(9), aawire.EncryptionPlain, first, uint32(len(full)))
	wire = append(wire, aawire.SerialiseFrame(9, aawire.FrameTypeLast, aawire.MessageTypeForChannel(9), aawire.EncryptionPlain, rest, 0)...)

	m.OnBytesReceived(wire)

	require.Len(t, obs.messages, 1)
	assert.Equal(t, uint8(9), obs.messages[0].channelID)
	assert.Equal(t, uint16(0xABCD), obs.messages[0].messageID)
	assert.Equal(t, body, obs.messages[0].body)
	assert.Empty(t, obs.protoErrs)
}

// Property 4/Scenario S4: two channels fragmenting concurrently must not
// corrupt each other's reassembly buffer — each channel's First frame owns
// its own accumulator, keyed independently.
func TestInterleavedChannelReassemblyIsolation(t *testing.T) {
	m, obs, _ := newMessenger()

	bodyA := []byte("channel-A-first-half|channel-A-second-half")
	bodyB := []byte("channel-B-entire-message-in-one-go-but-split-too")
	fullA := buildMessage(0x0001, bodyA)
	fullB := buildMessage(0x0002, bodyB)

	splitA := len(fullA) / 2
	splitB := len(fullB) / 2

	var wire []byte
	// Interleave: First(A), First(B), Last(B), Last(A).
	wire = append(wire, aawire.SerialiseFrame(1, aawire.FrameTypeFirst, aawire.MessageTypeForChannel(1), aawire.EncryptionPlain, fullA[:splitA], uint32(len(fullA)))...)
	wire = append(wire, aawire.SerialiseFrame(2, aawire.FrameTypeFirst, aawire.MessageTypeForChannel(2), aawire.EncryptionPlain, fullB[:splitB], uint32(len(fullB)))...)
	wire = append(wire, aawire.SerialiseFrame(2, aawire.FrameTypeLast, aawire.MessageTypeForChannel(2), aawire.EncryptionPlain, fullB[splitB:], 0)...)
	wire = append(wire, aawire.SerialiseFrame(1, aawire.FrameTypeLast, aawire.MessageTypeForChannel(1), aawire.EncryptionPlain, fullA[splitA:], 0)...)

	m.OnBytesReceived(wire)

	require.Len(t, obs.messages, 2)
	byChannel := map[uint8]recordedMessage{}
	for _, msg := range obs.messages {
		byChannel[msg.channelID] = msg
	}
	require.Contains(t, byChannel, uint8(1))
	require.Contains(t, byChannel, uint8(2))
	assert.Equal(t, bodyA, byChannel[1].body)
	assert.Equal(t, bodyB, byChannel[2].body)
	assert.Empty(t, obs.protoErrs)
}

// A Middle frame with no preceding First on that channel is a protocol
// error, reported through OnProtocolError rather than delivered or panicked.
func TestMiddleFrameWithoutFirstReportsProtocolError(t *testing.T) {
	m, obs, _ := newMessenger()

	wire := aawire.SerialiseFrame(3, aawire.FrameTypeMiddle, aawire.MessageTypeForChannel(3), aawire.EncryptionPlain, []byte("orphaned-middle"), 0)

	m.OnBytesReceived(wire)

	require.Len(t, obs.protoErrs, 1)
	assert.ErrorIs(t, obs.protoErrs[0], ErrProtocolError)
	assert.Empty(t, obs.messages)
}

// A First frame that announces a total larger than the bytes that follow
// leaves the reassembly open: nothing is delivered as a truncated message,
// no protocol error is reported, and nothing panics.
func TestReassemblyNeverCompletesIfTotalMismatches(t *testing.T) {
	m, obs, _ := newMessenger()

	full := buildMessage(0x0009, []byte("short-body"))
	wire := aawire.SerialiseFrame(4, aawire.FrameTypeFirst, aawire.MessageTypeForChannel(4), aawire.EncryptionPlain, full, uint32(len(full)+100))

	m.OnBytesReceived(wire)

	assert.Empty(t, obs.messages)
	assert.Empty(t, obs.protoErrs)
}
