package channels

import (
	"sync/atomic"

	"github.com/openauto-hu/aahu/internal/aawire"
)

// VideoCallbacks are the upward notifications a video handler raises.
// Session wires these to whatever actually decodes and displays frames;
// this package only owns the protocol state machine.
type VideoCallbacks struct {
	OnMediaData     func(body []byte, timestamp uint64)
	OnStreamStarted func(session int32, configIndex int32)
	OnStreamStopped func()
	OnFocusRequest  func(mode VideoFocusMode) VideoFocusMode
}

// VideoHandler drives the video channel: setup/start/stop, per-frame ACKs,
// and video focus negotiation. It implements both Handler and AVHandler.
type VideoHandler struct {
	avState

	configIndices []int32
	callbacks     VideoCallbacks

	ackCounter atomic.Uint32
}

// NewVideoHandler builds a VideoHandler. configIndices are the indices (into
// the service discovery video config list) this handler is prepared to
// stream, advertised verbatim in SETUP_RESPONSE.
func NewVideoHandler(sender Sender, configIndices []int32, callbacks VideoCallbacks) *VideoHandler {
	return &VideoHandler{
		avState:       avState{sender: sender, channelID: 0}, // channelID set by the caller via SetChannelID
		configIndices: configIndices,
		callbacks:     callbacks,
	}
}

// SetChannelID binds the logical channel this handler was opened on; the
// code that builds the handler set calls this once, before the handler is
// registered with Session.
func (v *VideoHandler) SetChannelID(id uint8) { v.channelID = id }

func (v *VideoHandler) CanAcceptMedia() bool { return v.isStreaming() }

func (v *VideoHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	switch messageID {
	case SetupRequest:
		v.handleSetupRequest(body)
	case StartIndication:
		v.handleStartIndication(body)
	case StopIndication:
		v.handleStopIndication()
	case VideoFocusRequest:
		v.handleVideoFocusRequest(body)
	}
}

func (v *VideoHandler) handleSetupRequest(body []byte) {
	if _, err := decodeSetupRequest(body); err != nil {
		return
	}
	if err := v.sendSetupResponse(SetupStatusOK, v.configIndices); err != nil {
		return
	}
	// The HU always claims projected video focus unsolicited, right after
	// accepting setup — the phone has no need to ask for it first.
	v.sendFocusIndication(VideoFocusModeProjected, true)
}

func (v *VideoHandler) handleStartIndication(body []byte) {
	start, err := decodeStartIndication(body)
	if err != nil {
		return
	}
	v.latchStart(start.Session)
	v.ackCounter.Store(0)
	if v.callbacks.OnStreamStarted != nil {
		v.callbacks.OnStreamStarted(start.Session, start.ConfigIndex)
	}
}

func (v *VideoHandler) handleStopIndication() {
	v.clearStreaming()
	if v.callbacks.OnStreamStopped != nil {
		v.callbacks.OnStreamStopped()
	}
}

func (v *VideoHandler) handleVideoFocusRequest(body []byte) {
	var req VideoFocusRequestBody
	if err := aawire.Unmarshal(body, &req); err != nil {
		return
	}
	mode := req.Mode
	if v.callbacks.OnFocusRequest != nil {
		mode = v.callbacks.OnFocusRequest(req.Mode)
	}
	v.sendFocusIndication(mode, false)
}

// RequestVideoFocus is the HU-initiated path: grab or release projected
// video focus unprompted (e.g. a native nav app coming to the foreground).
func (v *VideoHandler) RequestVideoFocus(focused bool) error {
	mode := VideoFocusModeNone
	if focused {
		mode = VideoFocusModeProjected
	}
	return v.sendFocusIndication(mode, true)
}

func (v *VideoHandler) sendFocusIndication(mode VideoFocusMode, unrequested bool) error {
	body, err := aawire.Marshal(VideoFocusIndicationBody{Mode: mode, Unrequested: unrequested})
	if err != nil {
		return err
	}
	return v.sender.SendMessage(v.channelID, VideoFocusIndication, body)
}

// OnMediaData handles one AV_MEDIA_WITH_TIMESTAMP / AV_MEDIA_INDICATION
// frame. Video flow control is ACK-every-frame, using a per-session
// monotonically increasing counter (resolved open question: the counter
// does not reset to a fixed cadence the way audio's threshold-ACK does).
func (v *VideoHandler) OnMediaData(body []byte, timestamp uint64) {
	if v.callbacks.OnMediaData != nil {
		v.callbacks.OnMediaData(body, timestamp)
	}
	value := v.ackCounter.Add(1)
	_ = v.sendAck(value)
}
