package channels

import (
	"github.com/openauto-hu/aahu/internal/aawire"
)

// baseHandler is the shared plumbing for channels whose protocol is just
// "accept setup, decode one indication kind, notify upward" — Bluetooth,
// Wifi, AVInput, Navigation, MediaStatus and PhoneStatus all embed it and
// add only their own indication type and callback.
type baseHandler struct {
	channelID uint8
	sender    Sender
	opened    bool
}

func (b *baseHandler) SetChannelID(id uint8) { b.channelID = id }
func (b *baseHandler) ChannelID() uint8      { return b.channelID }
func (b *baseHandler) OnChannelOpened()      { b.opened = true }
func (b *baseHandler) OnChannelClosed()      { b.opened = false }

func (b *baseHandler) sendGenericSetupResponse(status SetupStatus) error {
	body, err := aawire.Marshal(KeyBindingResponseBody{Status: status})
	if err != nil {
		return err
	}
	return b.sender.SendMessage(b.channelID, GenericSetupResponse, body)
}

// BluetoothPairingBody is the (one-shot) Bluetooth pairing request from the
// phone, carrying the HU adapter address it should pair with.
type BluetoothPairingBody struct {
	AdapterAddress string `cbor:"1,keyasint"`
}

type BluetoothPairingResponseBody struct {
	AlreadyPaired bool `cbor:"1,keyasint"`
}

// BluetoothHandler answers the one-shot Bluetooth pairing handshake.
type BluetoothHandler struct {
	baseHandler
	adapterAddress string
	onPairingReq   func(remoteAddress string)
}

func NewBluetoothHandler(sender Sender, adapterAddress string, onPairingReq func(string)) *BluetoothHandler {
	return &BluetoothHandler{baseHandler: baseHandler{sender: sender}, adapterAddress: adapterAddress, onPairingReq: onPairingReq}
}

func (h *BluetoothHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	if messageID != GenericIndication {
		return
	}
	var req BluetoothPairingBody
	if err := aawire.Unmarshal(body, &req); err != nil {
		return
	}
	if h.onPairingReq != nil {
		h.onPairingReq(req.AdapterAddress)
	}
	resp, err := aawire.Marshal(BluetoothPairingResponseBody{AlreadyPaired: false})
	if err != nil {
		return
	}
	_ = h.sender.SendMessage(h.channelID, GenericSetupResponse, resp)
}

// WifiHandler answers wifi projection setup; no ongoing indications.
type WifiHandler struct {
	baseHandler
	ssid string
}

func NewWifiHandler(sender Sender, ssid string) *WifiHandler {
	return &WifiHandler{baseHandler: baseHandler{sender: sender}, ssid: ssid}
}

func (h *WifiHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	if messageID == GenericSetupRequest {
		_ = h.sendGenericSetupResponse(SetupStatusOK)
	}
}

// AVInputHandler is the microphone capture channel: it is an AVHandler in
// reverse — the HU produces audio frames sent to the phone rather than
// consuming them, so OnMediaData (inbound from the phone) is unused and
// SendAudioFrame pushes outbound capture data instead.
type AVInputHandler struct {
	avState
	recording bool
}

func NewAVInputHandler(sender Sender) *AVInputHandler {
	return &AVInputHandler{avState: avState{sender: sender}}
}

func (h *AVInputHandler) SetChannelID(id uint8) { h.channelID = id }

func (h *AVInputHandler) CanAcceptMedia() bool { return false }
func (h *AVInputHandler) OnMediaData(body []byte, timestamp uint64) {}

func (h *AVInputHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	switch messageID {
	case SetupRequest:
		_ = h.sendSetupResponse(SetupStatusOK, nil)
	case StartIndication:
		h.recording = true
	case StopIndication:
		h.recording = false
	}
}

func (h *AVInputHandler) IsRecording() bool { return h.recording }

// SendAudioFrame forwards one microphone capture frame to the phone.
func (h *AVInputHandler) SendAudioFrame(pcm []byte) error {
	if !h.recording {
		return nil
	}
	return h.sender.SendMessage(h.channelID, 0, pcm)
}

// NavigationTurnEvent is one turn-by-turn guidance update from the phone.
type NavigationTurnEvent struct {
	Instruction string `cbor:"1,keyasint"`
	DistanceM   int32  `cbor:"2,keyasint,omitempty"`
}

// NavigationHandler decodes turn-by-turn guidance indications.
type NavigationHandler struct {
	baseHandler
	onTurnEvent func(NavigationTurnEvent)
}

func NewNavigationHandler(sender Sender, onTurnEvent func(NavigationTurnEvent)) *NavigationHandler {
	return &NavigationHandler{baseHandler: baseHandler{sender: sender}, onTurnEvent: onTurnEvent}
}

func (h *NavigationHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	switch messageID {
	case GenericSetupRequest:
		_ = h.sendGenericSetupResponse(SetupStatusOK)
	case GenericIndication:
		var ev NavigationTurnEvent
		if err := aawire.Unmarshal(body, &ev); err != nil {
			return
		}
		if h.onTurnEvent != nil {
			h.onTurnEvent(ev)
		}
	}
}

// MediaMetadata is one now-playing update.
type MediaMetadata struct {
	Title  string `cbor:"1,keyasint,omitempty"`
	Artist string `cbor:"2,keyasint,omitempty"`
	Album  string `cbor:"3,keyasint,omitempty"`
}

// MediaStatusHandler decodes now-playing metadata indications.
type MediaStatusHandler struct {
	baseHandler
	onMetadata func(MediaMetadata)
}

func NewMediaStatusHandler(sender Sender, onMetadata func(MediaMetadata)) *MediaStatusHandler {
	return &MediaStatusHandler{baseHandler: baseHandler{sender: sender}, onMetadata: onMetadata}
}

func (h *MediaStatusHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	switch messageID {
	case GenericSetupRequest:
		_ = h.sendGenericSetupResponse(SetupStatusOK)
	case GenericIndication:
		var m MediaMetadata
		if err := aawire.Unmarshal(body, &m); err != nil {
			return
		}
		if h.onMetadata != nil {
			h.onMetadata(m)
		}
	}
}

// PhoneStatusHandler decodes call-state indications (ringing, in-call,
// idle); CallAvailability itself travels over the control channel, this
// channel carries the richer per-call state the dialer UI needs.
type PhoneStatusBody struct {
	InCall  bool   `cbor:"1,keyasint"`
	Number  string `cbor:"2,keyasint,omitempty"`
}

type PhoneStatusHandler struct {
	baseHandler
	onStatus func(PhoneStatusBody)
}

func NewPhoneStatusHandler(sender Sender, onStatus func(PhoneStatusBody)) *PhoneStatusHandler {
	return &PhoneStatusHandler{baseHandler: baseHandler{sender: sender}, onStatus: onStatus}
}

func (h *PhoneStatusHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	switch messageID {
	case GenericSetupRequest:
		_ = h.sendGenericSetupResponse(SetupStatusOK)
	case GenericIndication:
		var s PhoneStatusBody
		if err := aawire.Unmarshal(body, &s); err != nil {
			return
		}
		if h.onStatus != nil {
			h.onStatus(s)
		}
	}
}
