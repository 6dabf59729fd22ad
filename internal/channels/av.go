package channels

import (
	"sync"

	"github.com/openauto-hu/aahu/internal/aawire"
)

// avState is the setup/start/stop/ack bookkeeping shared by Video and the
// three Audio classes. It is embedded, not inherited from, matching the
// two-level handler/AVHandler split: avState supplies the mechanics, each
// concrete handler supplies its own flow-control policy and callbacks.
type avState struct {
	sender    Sender
	channelID uint8

	mu        sync.Mutex
	opened    bool
	streaming bool
	session   int32
}

func (s *avState) ChannelID() uint8 { return s.channelID }

func (s *avState) OnChannelOpened() {
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
}

func (s *avState) OnChannelClosed() {
	s.mu.Lock()
	s.opened = false
	s.streaming = false
	s.mu.Unlock()
}

func (s *avState) isStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *avState) latchStart(session int32) {
	s.mu.Lock()
	s.session = session
	s.streaming = true
	s.mu.Unlock()
}

func (s *avState) currentSession() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *avState) clearStreaming() {
	s.mu.Lock()
	s.streaming = false
	s.mu.Unlock()
}

func (s *avState) sendSetupResponse(status SetupStatus, configIndices []int32) error {
	body, err := aawire.Marshal(SetupResponseBody{
		Status:        status,
		MaxUnacked:    MaxUnacked,
		ConfigIndices: configIndices,
	})
	if err != nil {
		return err
	}
	return s.sender.SendMessage(s.channelID, SetupResponse, body)
}

func (s *avState) sendAck(value uint32) error {
	body, err := aawire.Marshal(AckIndicationBody{Value: value})
	if err != nil {
		return err
	}
	return s.sender.SendMessage(s.channelID, AckIndication, body)
}

func decodeSetupRequest(body []byte) (SetupRequestBody, error) {
	var req SetupRequestBody
	if len(body) == 0 {
		return req, nil
	}
	err := aawire.Unmarshal(body, &req)
	return req, err
}

func decodeStartIndication(body []byte) (StartIndicationBody, error) {
	var start StartIndicationBody
	err := aawire.Unmarshal(body, &start)
	return start, err
}
