package aawire

import "encoding/binary"

// MessageID identifies a message body within its channel. Control-channel
// (channel 0) message IDs are listed below; per-handler channels define
// their own ID spaces in package channels.
type MessageID uint16

// Control-channel message kinds (channel 0).
const (
	VersionRequest           MessageID = 0x0001
	VersionResponse          MessageID = 0x0002
	SSLHandshake             MessageID = 0x0003
	AuthComplete             MessageID = 0x0004
	ServiceDiscoveryRequest  MessageID = 0x0005
	ServiceDiscoveryResp     MessageID = 0x0006
	ChannelOpenRequest       MessageID = 0x0007
	ChannelOpenResponse      MessageID = 0x0008
	ChannelClose             MessageID = 0x0009
	PingRequest              MessageID = 0x000b
	PingResponse             MessageID = 0x000c
	NavFocusRequest          MessageID = 0x000d
	NavFocusResponse         MessageID = 0x000e
	ShutdownRequest          MessageID = 0x000f
	ShutdownResponse         MessageID = 0x0010
	VoiceSessionRequest      MessageID = 0x0011
	AudioFocusRequest        MessageID = 0x0012
	AudioFocusResponse       MessageID = 0x0013
	CallAvailability         MessageID = 0x0018
	ServiceDiscoveryUpdate   MessageID = 0x001a
)

// AV media routing IDs, shared by every AV-capable channel.
const (
	AVMediaWithTimestamp MessageID = 0x0000
	AVMediaIndication    MessageID = 0x0001
)

// VersionStatus is the third field of the raw-binary version handshake
// payload.
type VersionStatus uint16

const (
	VersionStatusMatch    VersionStatus = 0x0000
	VersionStatusMismatch VersionStatus = 0xffff
)

// VersionPayload is the 6-byte raw-binary body carried by VERSION_REQUEST
// and VERSION_RESPONSE: three big-endian u16 fields. It is never
// CBOR-encoded, unlike every other control-channel body.
type VersionPayload struct {
	Major  uint16
	Minor  uint16
	Status VersionStatus
}

// EncodeVersionPayload serialises a VersionPayload to its 6-byte wire form.
func EncodeVersionPayload(p VersionPayload) []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint16(buf[0:2], p.Major)
	binary.BigEndian.PutUint16(buf[2:4], p.Minor)
	binary.BigEndian.PutUint16(buf[4:6], uint16(p.Status))
	return buf
}

// DecodeVersionPayload parses a version handshake body. A payload shorter
// than 6 bytes is treated as a mismatch rather than an error, matching the
// spec's explicit no-error-on-short-payload rule.
func DecodeVersionPayload(body []byte) VersionPayload {
	if len(body) < 6 {
		return VersionPayload{Status: VersionStatusMismatch}
	}
	return VersionPayload{
		Major:  binary.BigEndian.Uint16(body[0:2]),
		Minor:  binary.BigEndian.Uint16(body[2:4]),
		Status: VersionStatus(binary.BigEndian.Uint16(body[4:6])),
	}
}

// ChannelOpenStatus is the status code carried by CHANNEL_OPEN_RESPONSE.
type ChannelOpenStatus int32

const (
	ChannelOpenStatusOK             ChannelOpenStatus = 0
	ChannelOpenStatusInvalidChannel ChannelOpenStatus = 1
)

// ChannelOpenRequestBody requests that the HU open the named channel.
type ChannelOpenRequestBody struct {
	Priority  int32 `cbor:"1,keyasint"`
	ChannelID int32 `cbor:"2,keyasint"`
}

// ChannelOpenResponseBody answers a ChannelOpenRequestBody.
type ChannelOpenResponseBody struct {
	Status ChannelOpenStatus `cbor:"1,keyasint"`
}

// PingPayload carries a peer timestamp for RTT/liveness measurement.
type PingPayload struct {
	Timestamp int64 `cbor:"1,keyasint"`
	// Bugreport requests that the peer attach diagnostic data; unused by
	// this head-unit but round-tripped for protocol fidelity.
	Bugreport bool `cbor:"2,keyasint,omitempty"`
}

// NavFocusType is the focus level requested or granted for navigation.
type NavFocusType int32

const (
	NavFocusProjected NavFocusType = 1
	NavFocusNative    NavFocusType = 2
)

// NavFocusBody is shared by NAV_FOCUS_REQUEST and NAV_FOCUS_RESPONSE.
type NavFocusBody struct {
	Focus NavFocusType `cbor:"1,keyasint"`
}

// ShutdownReason explains why a session is ending.
type ShutdownReason int32

const (
	ShutdownReasonQuit ShutdownReason = 1
)

// ShutdownRequestBody is the SHUTDOWN_REQUEST payload.
type ShutdownRequestBody struct {
	Reason ShutdownReason `cbor:"1,keyasint"`
}

// AuthCompleteBody is the AUTH_COMPLETE payload the HU sends once the TLS
// handshake finishes.
type AuthCompleteBody struct {
	Status int32 `cbor:"1,keyasint"`
}

// AudioFocusType enumerates the focus levels a phone may request or be
// granted over an audio stream.
type AudioFocusType int32

const (
	AudioFocusNone                    AudioFocusType = 0
	AudioFocusGain                    AudioFocusType = 1
	AudioFocusGainTransient           AudioFocusType = 2
	AudioFocusGainTransientGuidance   AudioFocusType = 3
	AudioFocusLoss                    AudioFocusType = 4
	AudioFocusLossTransient           AudioFocusType = 5
	AudioFocusLossTransientCanDuck    AudioFocusType = 6
)

// AudioFocusRequestType is the request-side enumeration; values overlap
// with AudioFocusType except for RELEASE, which has no granted-focus
// equivalent.
type AudioFocusRequestType int32

const (
	AudioFocusRequestGain           AudioFocusRequestType = 1
	AudioFocusRequestGainTransient  AudioFocusRequestType = 2
	AudioFocusRequestGainNavi       AudioFocusRequestType = 3
	AudioFocusRequestRelease        AudioFocusRequestType = 4
)

// AudioFocusRequestBody is the AUDIO_FOCUS_REQUEST payload.
type AudioFocusRequestBody struct {
	Request AudioFocusRequestType `cbor:"1,keyasint"`
}

// AudioFocusResponseBody is the AUDIO_FOCUS_RESPONSE payload.
type AudioFocusResponseBody struct {
	Granted AudioFocusType `cbor:"1,keyasint"`
}

// ResolveAudioFocus maps an AUDIO_FOCUS_REQUEST type to the granted focus
// type the HU auto-responds with, per the session state machine's fixed
// mapping.
func ResolveAudioFocus(req AudioFocusRequestType) AudioFocusType {
	switch req {
	case AudioFocusRequestGain:
		return AudioFocusGain
	case AudioFocusRequestGainTransient:
		return AudioFocusGainTransient
	case AudioFocusRequestGainNavi:
		return AudioFocusGainTransientGuidance
	case AudioFocusRequestRelease:
		return AudioFocusLoss
	default:
		return AudioFocusNone
	}
}

// VoiceSessionBody carries the VOICE_SESSION_REQUEST body. The HU only
// logs this message; the mic channel already streams regardless.
type VoiceSessionBody struct {
	Status int32 `cbor:"1,keyasint"`
}

// CallAvailabilityBody announces whether the phone can currently place
// calls.
type CallAvailabilityBody struct {
	Available bool `cbor:"1,keyasint"`
}
