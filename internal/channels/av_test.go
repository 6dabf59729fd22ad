package channels

import (
	"testing"

	"github.com/openauto-hu/aahu/internal/aawire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSend struct {
	channelID uint8
	messageID uint16
	body      []byte
}

type fakeSender struct {
	sent []recordedSend
}

func (s *fakeSender) SendMessage(channelID uint8, messageID uint16, body []byte) error {
	s.sent = append(s.sent, recordedSend{channelID, messageID, body})
	return nil
}

func (s *fakeSender) messagesOf(id uint16) []recordedSend {
	var out []recordedSend
	for _, m := range s.sent {
		if m.messageID == id {
			out = append(out, m)
		}
	}
	return out
}

func TestVideoSetupSendsResponseAndUnsolicitedFocus(t *testing.T) {
	sender := &fakeSender{}
	v := NewVideoHandler(sender, []int32{0, 1}, VideoCallbacks{})
	v.SetChannelID(aawire.ChannelVideo)
	v.OnChannelOpened()

	body, err := aawire.Marshal(SetupRequestBody{})
	require.NoError(t, err)
	v.OnMessage(SetupRequest, body, 0)

	responses := sender.messagesOf(SetupResponse)
	require.Len(t, responses, 1)
	var resp SetupResponseBody
	require.NoError(t, aawire.Unmarshal(responses[0].body, &resp))
	assert.Equal(t, SetupStatusOK, resp.Status)
	assert.Equal(t, int32(MaxUnacked), resp.MaxUnacked)

	focus := sender.messagesOf(VideoFocusIndication)
	require.Len(t, focus, 1)
	var fi VideoFocusIndicationBody
	require.NoError(t, aawire.Unmarshal(focus[0].body, &fi))
	assert.Equal(t, VideoFocusModeProjected, fi.Mode)
	assert.True(t, fi.Unrequested)
}

func TestVideoAcksEveryFrameWithIncreasingCounter(t *testing.T) {
	sender := &fakeSender{}
	v := NewVideoHandler(sender, []int32{0}, VideoCallbacks{})
	v.SetChannelID(aawire.ChannelVideo)
	v.OnChannelOpened()

	start, err := aawire.Marshal(StartIndicationBody{Session: 1})
	require.NoError(t, err)
	v.OnMessage(StartIndication, start, 0)

	for i := 0; i < 3; i++ {
		v.OnMediaData([]byte{0x00}, uint64(i))
	}

	acks := sender.messagesOf(AckIndication)
	require.Len(t, acks, 3)
	for i, a := range acks {
		var body AckIndicationBody
		require.NoError(t, aawire.Unmarshal(a.body, &body))
		assert.Equal(t, uint32(i+1), body.Value)
	}
}

func TestVideoFocusRequestIsEchoedBack(t *testing.T) {
	sender := &fakeSender{}
	v := NewVideoHandler(sender, []int32{0}, VideoCallbacks{})
	v.SetChannelID(aawire.ChannelVideo)
	v.OnChannelOpened()

	req, err := aawire.Marshal(VideoFocusRequestBody{Mode: VideoFocusModeNative})
	require.NoError(t, err)
	v.OnMessage(VideoFocusRequest, req, 0)

	focus := sender.messagesOf(VideoFocusIndication)
	require.Len(t, focus, 1)
	var fi VideoFocusIndicationBody
	require.NoError(t, aawire.Unmarshal(focus[0].body, &fi))
	assert.Equal(t, VideoFocusModeNative, fi.Mode)
	assert.False(t, fi.Unrequested)
}

// Property 7: 10 frames -> exactly one ACK(value=10); 25 frames -> two
// ACKs (10, 10), leaving 5 un-acked.
func TestAudioThresholdAck(t *testing.T) {
	sender := &fakeSender{}
	a := NewAudioHandler(sender, AudioClassMedia, []int32{0}, AudioCallbacks{})
	a.SetChannelID(aawire.ChannelMediaAudio)
	a.OnChannelOpened()

	start, err := aawire.Marshal(StartIndicationBody{Session: 1})
	require.NoError(t, err)
	a.OnMessage(StartIndication, start, 0)

	for i := 0; i < 10; i++ {
		a.OnMediaData([]byte{0x00}, uint64(i))
	}
	acks := sender.messagesOf(AckIndication)
	require.Len(t, acks, 1)
	var body AckIndicationBody
	require.NoError(t, aawire.Unmarshal(acks[0].body, &body))
	assert.Equal(t, uint32(10), body.Value)
}

func TestAudioThresholdAckTwentyFiveFrames(t *testing.T) {
	sender := &fakeSender{}
	a := NewAudioHandler(sender, AudioClassSpeech, []int32{0}, AudioCallbacks{})
	a.SetChannelID(aawire.ChannelSpeechAudio)
	a.OnChannelOpened()

	start, err := aawire.Marshal(StartIndicationBody{Session: 1})
	require.NoError(t, err)
	a.OnMessage(StartIndication, start, 0)

	for i := 0; i < 25; i++ {
		a.OnMediaData([]byte{0x00}, uint64(i))
	}

	acks := sender.messagesOf(AckIndication)
	require.Len(t, acks, 2)
	for _, ackMsg := range acks {
		var body AckIndicationBody
		require.NoError(t, aawire.Unmarshal(ackMsg.body, &body))
		assert.Equal(t, uint32(10), body.Value)
	}
	assert.Equal(t, uint32(5), a.unackedCount)
}

func TestAudioStopResetsUnackedCount(t *testing.T) {
	sender := &fakeSender{}
	a := NewAudioHandler(sender, AudioClassSystem, []int32{0}, AudioCallbacks{})
	a.SetChannelID(aawire.ChannelSystemAudio)
	a.OnChannelOpened()

	start, err := aawire.Marshal(StartIndicationBody{Session: 1})
	require.NoError(t, err)
	a.OnMessage(StartIndication, start, 0)

	a.OnMediaData([]byte{0x00}, 0)
	a.OnMediaData([]byte{0x00}, 1)
	assert.Equal(t, uint32(2), a.unackedCount)

	a.OnMessage(StopIndication, nil, 0)
	assert.Equal(t, uint32(0), a.unackedCount)
	assert.False(t, a.CanAcceptMedia())
}
