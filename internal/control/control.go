// Package control encodes and decodes channel 0, the Android Auto
// control plane: version handshake, service discovery, channel
// open/close, ping/pong keepalive, focus negotiation, and shutdown.
package control

import (
	"github.com/openauto-hu/aahu/internal/aawire"
)

// ChannelID is the fixed control-channel identifier.
const ChannelID uint8 = 0

// Sender is the subset of Messenger the control channel needs to emit
// messages.
type Sender interface {
	SendMessage(channelID uint8, messageID uint16, body []byte) error
}

// Observer receives every control-plane event Session needs to react to.
// ControlChannel handles ping auto-response itself; everything else is
// signalled upward for Session to sequence.
type Observer interface {
	OnVersionResponse(aawire.VersionPayload)
	OnServiceDiscoveryRequest()
	OnChannelOpenRequest(arrivalChannel uint8, req aawire.ChannelOpenRequestBody)
	OnChannelClose()
	OnAuthComplete()
	OnPing(timestampMs int64)
	OnPong()
	OnNavFocusRequest(aawire.NavFocusBody)
	OnShutdownRequest(aawire.ShutdownRequestBody)
	OnShutdownResponse()
	OnVoiceSessionRequest(aawire.VoiceSessionBody)
	OnAudioFocusRequest(aawire.AudioFocusRequestBody)
	OnCallAvailability(aawire.CallAvailabilityBody)
	OnServiceDiscoveryUpdate(aawire.ServiceDiscoveryUpdateBody)
}

// Channel owns encoding/decoding for channel 0.
type Channel struct {
	sender   Sender
	observer Observer
}

// New builds a control Channel that sends through sender and signals
// events to observer.
func New(sender Sender, observer Observer) *Channel {
	return &Channel{sender: sender, observer: observer}
}

func (c *Channel) SendVersionRequest(major, minor uint16) error {
	payload := aawire.EncodeVersionPayload(aawire.VersionPayload{Major: major, Minor: minor})
	return c.sender.SendMessage(ChannelID, uint16(aawire.VersionRequest), payload)
}

// SendSSLHandshake forwards one TLS record from the Cryptor to the peer.
func (c *Channel) SendSSLHandshake(record []byte) error {
	return c.sender.SendMessage(ChannelID, uint16(aawire.SSLHandshake), record)
}

func (c *Channel) SendAuthComplete(status int32) error {
	body, err := aawire.Marshal(aawire.AuthCompleteBody{Status: status})
	if err != nil {
		return err
	}
	return c.sender.SendMessage(ChannelID, uint16(aawire.AuthComplete), body)
}

func (c *Channel) SendServiceDiscoveryResponse(resp aawire.ServiceDiscoveryResponseBody) error {
	body, err := aawire.Marshal(resp)
	if err != nil {
		return err
	}
	return c.sender.SendMessage(ChannelID, uint16(aawire.ServiceDiscoveryResp), body)
}

// SendChannelOpenResponse replies on arrivalChannel — the channel the
// request arrived on, which may be channel 0 or the target channel
// itself.
func (c *Channel) SendChannelOpenResponse(arrivalChannel uint8, status aawire.ChannelOpenStatus) error {
	body, err := aawire.Marshal(aawire.ChannelOpenResponseBody{Status: status})
	if err != nil {
		return err
	}
	return c.sender.SendMessage(arrivalChannel, uint16(aawire.ChannelOpenResponse), body)
}

func (c *Channel) SendPingRequest(timestampMs int64) error {
	body, err := aawire.Marshal(aawire.PingPayload{Timestamp: timestampMs})
	if err != nil {
		return err
	}
	return c.sender.SendMessage(ChannelID, uint16(aawire.PingRequest), body)
}

func (c *Channel) sendPingResponse(timestampMs int64) error {
	body, err := aawire.Marshal(aawire.PingPayload{Timestamp: timestampMs})
	if err != nil {
		return err
	}
	return c.sender.SendMessage(ChannelID, uint16(aawire.PingResponse), body)
}

func (c *Channel) SendShutdownRequest(reason aawire.ShutdownReason) error {
	body, err := aawire.Marshal(aawire.ShutdownRequestBody{Reason: reason})
	if err != nil {
		return err
	}
	return c.sender.SendMessage(ChannelID, uint16(aawire.ShutdownRequest), body)
}

func (c *Channel) SendShutdownResponse() error {
	return c.sender.SendMessage(ChannelID, uint16(aawire.ShutdownResponse), nil)
}

func (c *Channel) SendNavFocusResponse(focus aawire.NavFocusType) error {
	body, err := aawire.Marshal(aawire.NavFocusBody{Focus: focus})
	if err != nil {
		return err
	}
	return c.sender.SendMessage(ChannelID, uint16(aawire.NavFocusResponse), body)
}

func (c *Channel) SendAudioFocusResponse(granted aawire.AudioFocusType) error {
	body, err := aawire.Marshal(aawire.AudioFocusResponseBody{Granted: granted})
	if err != nil {
		return err
	}
	return c.sender.SendMessage(ChannelID, uint16(aawire.AudioFocusResponse), body)
}

// Dispatch handles one message addressed to the control plane. arrivalChannel
// is the channel the frame physically arrived on — equal to messageID's
// home channel (0) for every kind except CHANNEL_OPEN_REQUEST, which a
// phone may send either on channel 0 or directly on the target channel.
func (c *Channel) Dispatch(arrivalChannel uint8, messageID uint16, body []byte) error {
	switch aawire.MessageID(messageID) {
	case aawire.VersionResponse:
		c.observer.OnVersionResponse(aawire.DecodeVersionPayload(body))

	case aawire.ServiceDiscoveryRequest:
		c.observer.OnServiceDiscoveryRequest()

	case aawire.ChannelOpenRequest:
		var req aawire.ChannelOpenRequestBody
		if err := aawire.Unmarshal(body, &req); err != nil {
			return err
		}
		c.observer.OnChannelOpenRequest(arrivalChannel, req)

	case aawire.ChannelClose:
		c.observer.OnChannelClose()

	case aawire.AuthComplete:
		c.observer.OnAuthComplete()

	case aawire.PingRequest:
		var p aawire.PingPayload
		if err := aawire.Unmarshal(body, &p); err != nil {
			return err
		}
		// Auto-respond within the same dispatch, then signal upward.
		if err := c.sendPingResponse(p.Timestamp); err != nil {
			return err
		}
		c.observer.OnPing(p.Timestamp)

	case aawire.PingResponse:
		c.observer.OnPong()

	case aawire.NavFocusRequest:
		var f aawire.NavFocusBody
		if err := aawire.Unmarshal(body, &f); err != nil {
			return err
		}
		c.observer.OnNavFocusRequest(f)

	case aawire.ShutdownRequest:
		var s aawire.ShutdownRequestBody
		if err := aawire.Unmarshal(body, &s); err != nil {
			return err
		}
		c.observer.OnShutdownRequest(s)

	case aawire.ShutdownResponse:
		c.observer.OnShutdownResponse()

	case aawire.VoiceSessionRequest:
		var v aawire.VoiceSessionBody
		if err := aawire.Unmarshal(body, &v); err != nil {
			return err
		}
		c.observer.OnVoiceSessionRequest(v)

	case aawire.AudioFocusRequest:
		var a aawire.AudioFocusRequestBody
		if err := aawire.Unmarshal(body, &a); err != nil {
			return err
		}
		c.observer.OnAudioFocusRequest(a)

	case aawire.CallAvailability:
		var ca aawire.CallAvailabilityBody
		if err := aawire.Unmarshal(body, &ca); err != nil {
			return err
		}
		c.observer.OnCallAvailability(ca)

	case aawire.ServiceDiscoveryUpdate:
		var su aawire.ServiceDiscoveryUpdateBody
		if err := aawire.Unmarshal(body, &su); err != nil {
			return err
		}
		c.observer.OnServiceDiscoveryUpdate(su)

	default:
		// Unknown control message kind: log-only, never fatal.
	}
	return nil
}
