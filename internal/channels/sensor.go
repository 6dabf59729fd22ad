package channels

import (
	"sync"

	"github.com/openauto-hu/aahu/internal/aawire"
)

// SensorStartRequestBody asks the HU to start streaming one sensor type at
// the given interval.
type SensorStartRequestBody struct {
	SensorType       aawire.SensorType `cbor:"1,keyasint"`
	RefreshIntervalMs int32            `cbor:"2,keyasint,omitempty"`
}

type SensorStartResponseBody struct {
	Status SetupStatus `cbor:"1,keyasint"`
}

// NightDataEvent is the NIGHT_DATA sensor payload.
type NightDataEvent struct {
	IsNight bool `cbor:"1,keyasint"`
}

// SensorEventIndicationBody wraps exactly one sensor reading; only the
// field matching the active SensorType is meaningful per message.
type SensorEventIndicationBody struct {
	NightData *NightDataEvent `cbor:"4,keyasint,omitempty"`
}

// SensorHandler tracks which sensors the phone has requested and lets the
// HU push readings for them. This module only implements NIGHT_DATA, wired
// to internal/nightmode; the other sensor kinds are requested the same way
// but have no HU-side producer in this build.
type SensorHandler struct {
	channelID uint8
	sender    Sender

	mu        sync.Mutex
	requested map[aawire.SensorType]bool
}

func NewSensorHandler(sender Sender) *SensorHandler {
	return &SensorHandler{sender: sender, requested: make(map[aawire.SensorType]bool)}
}

func (s *SensorHandler) SetChannelID(id uint8) { s.channelID = id }
func (s *SensorHandler) ChannelID() uint8      { return s.channelID }

func (s *SensorHandler) OnChannelOpened() {}
func (s *SensorHandler) OnChannelClosed() {
	s.mu.Lock()
	s.requested = make(map[aawire.SensorType]bool)
	s.mu.Unlock()
}

func (s *SensorHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	if messageID != SensorStartRequest {
		return
	}
	var req SensorStartRequestBody
	if err := aawire.Unmarshal(body, &req); err != nil {
		return
	}
	s.mu.Lock()
	s.requested[req.SensorType] = true
	s.mu.Unlock()

	resp, err := aawire.Marshal(SensorStartResponseBody{Status: SetupStatusOK})
	if err != nil {
		return
	}
	_ = s.sender.SendMessage(s.channelID, SensorStartResponse, resp)
}

func (s *SensorHandler) isRequested(t aawire.SensorType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested[t]
}

// PushNightMode emits a NIGHT_DATA SENSOR_EVENT_INDICATION if the phone has
// asked for that sensor. Callers (internal/nightmode) only invoke this on
// a day/night transition, never on every poll tick.
func (s *SensorHandler) PushNightMode(isNight bool) error {
	if !s.isRequested(aawire.SensorTypeNightData) {
		return nil
	}
	body, err := aawire.Marshal(SensorEventIndicationBody{NightData: &NightDataEvent{IsNight: isNight}})
	if err != nil {
		return err
	}
	return s.sender.SendMessage(s.channelID, SensorEventIndication, body)
}
