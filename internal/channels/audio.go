package channels

// AudioClass distinguishes the three audio channel kinds; they share every
// protocol behaviour and differ only in which logical channel and config
// list they're bound to.
type AudioClass int

const (
	AudioClassMedia AudioClass = iota
	AudioClassSpeech
	AudioClassSystem
)

// AudioCallbacks are the upward notifications an audio handler raises.
type AudioCallbacks struct {
	OnMediaData     func(body []byte, timestamp uint64)
	OnStreamStarted func(session int32)
	OnStreamStopped func()
}

// AudioHandler drives one audio channel: setup/start/stop and
// threshold-based ACK flow control (Property 7: every MaxUnacked frames
// received produces exactly one ACK carrying that count, and a partial
// trailing run is left un-acked until it too reaches the threshold).
type AudioHandler struct {
	avState

	class         AudioClass
	configIndices []int32
	callbacks     AudioCallbacks

	unackedCount uint32
}

func NewAudioHandler(sender Sender, class AudioClass, configIndices []int32, callbacks AudioCallbacks) *AudioHandler {
	return &AudioHandler{
		avState:       avState{sender: sender},
		class:         class,
		configIndices: configIndices,
		callbacks:     callbacks,
	}
}

func (a *AudioHandler) SetChannelID(id uint8) { a.channelID = id }

func (a *AudioHandler) Class() AudioClass { return a.class }

func (a *AudioHandler) CanAcceptMedia() bool { return a.isStreaming() }

func (a *AudioHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	switch messageID {
	case SetupRequest:
		a.handleSetupRequest(body)
	case StartIndication:
		a.handleStartIndication(body)
	case StopIndication:
		a.handleStopIndication()
	}
}

func (a *AudioHandler) handleSetupRequest(body []byte) {
	if _, err := decodeSetupRequest(body); err != nil {
		return
	}
	_ = a.sendSetupResponse(SetupStatusOK, a.configIndices)
}

func (a *AudioHandler) handleStartIndication(body []byte) {
	start, err := decodeStartIndication(body)
	if err != nil {
		return
	}
	a.latchStart(start.Session)
	a.unackedCount = 0
	if a.callbacks.OnStreamStarted != nil {
		a.callbacks.OnStreamStarted(start.Session)
	}
}

func (a *AudioHandler) handleStopIndication() {
	a.clearStreaming()
	a.unackedCount = 0
	if a.callbacks.OnStreamStopped != nil {
		a.callbacks.OnStreamStopped()
	}
}

// OnMediaData handles one AV_MEDIA_WITH_TIMESTAMP or AV_MEDIA_INDICATION
// message (the latter with timestamp 0). Every MaxUnacked
// frames, a single ACK(value=MaxUnacked) is sent and the counter resets;
// frames below the threshold accumulate silently.
func (a *AudioHandler) OnMediaData(body []byte, timestamp uint64) {
	if a.callbacks.OnMediaData != nil {
		a.callbacks.OnMediaData(body, timestamp)
	}
	a.unackedCount++
	if a.unackedCount >= MaxUnacked {
		_ = a.sendAck(a.unackedCount)
		a.unackedCount = 0
	}
}
