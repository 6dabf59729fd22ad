// Package aawire implements the Android Auto wire format: frame headers,
// fragmentation flags, and the CBOR encoding used for structured message
// bodies.
package aawire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxFramePayload is the largest payload a single frame may carry. Messages
// larger than this are split across First/Middle/Last frames by the
// messenger layer.
const MaxFramePayload = 16384

// FrameType identifies a frame's position within a fragmented message.
type FrameType uint8

const (
	FrameTypeFirst  FrameType = 0x01
	FrameTypeMiddle FrameType = 0x02
	// FrameTypeLast is a caller-facing alias for FrameTypeMiddle. The wire
	// does not distinguish Last from Middle; a receiver only learns a
	// message is complete when accumulated bytes reach the total length
	// announced by the First frame. See ParseFrame.
	FrameTypeLast FrameType = FrameTypeMiddle
	FrameTypeBulk FrameType = 0x03
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeFirst:
		return "First"
	case FrameTypeMiddle:
		return "Middle"
	case FrameTypeBulk:
		return "Bulk"
	default:
		return fmt.Sprintf("FrameType(%#x)", uint8(t))
	}
}

// MessageType selects the framing flavor: channel 0 traffic is Specific,
// every other channel is Control (an Android Auto wire naming quirk — it
// has nothing to do with ControlChannel).
type MessageType uint8

const (
	MessageTypeSpecific MessageType = 0x00
	MessageTypeControl  MessageType = 0x04
)

func (t MessageType) String() string {
	if t == MessageTypeControl {
		return "Control"
	}
	return "Specific"
}

// EncryptionType marks whether a frame's payload is TLS-encrypted.
type EncryptionType uint8

const (
	EncryptionPlain     EncryptionType = 0x00
	EncryptionEncrypted EncryptionType = 0x08
)

func (e EncryptionType) String() string {
	if e == EncryptionEncrypted {
		return "Encrypted"
	}
	return "Plain"
}

const (
	flagFrameTypeMask uint8 = 0x03
	flagMessageType   uint8 = 0x04
	flagEncryption    uint8 = 0x08
)

// ErrNeedMore indicates the buffer does not yet hold a complete frame.
// Callers should wait for more bytes and retry.
var ErrNeedMore = errors.New("aawire: need more bytes")

// ErrMalformed indicates the frame-type bits in the header are invalid.
// No other part of a frame is validated by ParseFrame.
var ErrMalformed = errors.New("aawire: malformed frame header")

// Frame is a single on-wire unit, as described in the frame header layout:
//
//	byte 0     channelId
//	byte 1     flags = frameType | messageType | encryption
//	byte 2..3  payloadLen (big-endian u16)
//	byte 4..7  totalLen (big-endian u32) — only if frameType == First
//	byte N..   payload (length = payloadLen)
type Frame struct {
	ChannelID   uint8
	FrameType   FrameType
	MessageType MessageType
	Encryption  EncryptionType
	// TotalLen is the total reassembled message length; only meaningful
	// when FrameType == FrameTypeFirst.
	TotalLen uint32
	Payload  []byte
}

// ParseFrame parses one frame from the front of buf. It returns the parsed
// frame and the number of bytes consumed. If buf does not yet contain a
// complete frame it returns ErrNeedMore; the caller should not advance its
// cursor and should retry once more bytes arrive. ErrMalformed is returned
// only when the frame-type bits are invalid — payload content is never
// validated here.
func ParseFrame(buf []byte) (*Frame, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrNeedMore
	}
	flags := buf[1]
	ft := FrameType(flags & flagFrameTypeMask)
	switch ft {
	case FrameTypeFirst, FrameTypeMiddle, FrameTypeBulk:
	default:
		return nil, 0, ErrMalformed
	}

	headerLen := 4
	if ft == FrameTypeFirst {
		headerLen = 8
	}
	if len(buf) < headerLen {
		return nil, 0, ErrNeedMore
	}

	payloadLen := int(binary.BigEndian.Uint16(buf[2:4]))
	var totalLen uint32
	if ft == FrameTypeFirst {
		totalLen = binary.BigEndian.Uint32(buf[4:8])
	}

	total := headerLen + payloadLen
	if len(buf) < total {
		return nil, 0, ErrNeedMore
	}

	payload := make([]byte, payloadLen)
	copy(payload, buf[headerLen:total])

	return &Frame{
		ChannelID:   buf[0],
		FrameType:   ft,
		MessageType: MessageType(flags & flagMessageType),
		Encryption:  EncryptionType(flags & flagEncryption),
		TotalLen:    totalLen,
		Payload:     payload,
	}, total, nil
}

// SerialiseFrame encodes a frame. totalLen is only written when ft is
// FrameTypeFirst; it is ignored otherwise. FrameTypeLast is accepted for
// caller readability and serialises to the identical bits as
// FrameTypeMiddle — see the FrameTypeLast doc comment.
func SerialiseFrame(channelID uint8, ft FrameType, mt MessageType, enc EncryptionType, payload []byte, totalLen uint32) []byte {
	headerLen := 4
	if ft == FrameTypeFirst {
		headerLen = 8
	}

	buf := make([]byte, headerLen+len(payload))
	buf[0] = channelID
	buf[1] = uint8(ft) | uint8(mt) | uint8(enc)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(payload)))
	if ft == FrameTypeFirst {
		binary.BigEndian.PutUint32(buf[4:8], totalLen)
	}
	copy(buf[headerLen:], payload)
	return buf
}

// MessageTypeForChannel returns the wire MessageType for a given channel,
// per the convention that channel 0 is Specific and every other channel is
// Control.
func MessageTypeForChannel(channelID uint8) MessageType {
	if channelID == 0 {
		return MessageTypeSpecific
	}
	return MessageTypeControl
}
