package control

import (
	"testing"

	"github.com/openauto-hu/aahu/internal/aawire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	channelID uint8
	messageID uint16
	body      []byte
}

type fakeSender struct {
	sent []sentMessage
}

func (s *fakeSender) SendMessage(channelID uint8, messageID uint16, body []byte) error {
	s.sent = append(s.sent, sentMessage{channelID, messageID, body})
	return nil
}

type fakeObserver struct {
	pings           []int64
	pongs           int
	versionResponse *aawire.VersionPayload
	discoveryReqs   int
	channelOpens    []aawire.ChannelOpenRequestBody
	shutdownReqs    []aawire.ShutdownRequestBody
	shutdownResps   int
	audioFocusReqs  []aawire.AudioFocusRequestBody
}

func (f *fakeObserver) OnVersionResponse(p aawire.VersionPayload)   { f.versionResponse = &p }
func (f *fakeObserver) OnServiceDiscoveryRequest()                  { f.discoveryReqs++ }
func (f *fakeObserver) OnChannelOpenRequest(arrival uint8, req aawire.ChannelOpenRequestBody) {
	f.channelOpens = append(f.channelOpens, req)
}
func (f *fakeObserver) OnChannelClose()       {}
func (f *fakeObserver) OnAuthComplete()       {}
func (f *fakeObserver) OnPing(ts int64)       { f.pings = append(f.pings, ts) }
func (f *fakeObserver) OnPong()               { f.pongs++ }
func (f *fakeObserver) OnNavFocusRequest(aawire.NavFocusBody) {}
func (f *fakeObserver) OnShutdownRequest(s aawire.ShutdownRequestBody) {
	f.shutdownReqs = append(f.shutdownReqs, s)
}
func (f *fakeObserver) OnShutdownResponse() { f.shutdownResps++ }
func (f *fakeObserver) OnVoiceSessionRequest(aawire.VoiceSessionBody)             {}
func (f *fakeObserver) OnAudioFocusRequest(a aawire.AudioFocusRequestBody)        { f.audioFocusReqs = append(f.audioFocusReqs, a) }
func (f *fakeObserver) OnCallAvailability(aawire.CallAvailabilityBody)            {}
func (f *fakeObserver) OnServiceDiscoveryUpdate(aawire.ServiceDiscoveryUpdateBody) {}

// Property 6: ping auto-response.
func TestPingAutoResponse(t *testing.T) {
	sender := &fakeSender{}
	obs := &fakeObserver{}
	ch := New(sender, obs)

	body, err := aawire.Marshal(aawire.PingPayload{Timestamp: 12345})
	require.NoError(t, err)

	require.NoError(t, ch.Dispatch(ChannelID, uint16(aawire.PingRequest), body))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, ChannelID, sender.sent[0].channelID)
	assert.Equal(t, uint16(aawire.PingResponse), sender.sent[0].messageID)

	var resp aawire.PingPayload
	require.NoError(t, aawire.Unmarshal(sender.sent[0].body, &resp))
	assert.Equal(t, int64(12345), resp.Timestamp)

	assert.Equal(t, []int64{12345}, obs.pings)
}

func TestVersionResponseDispatch(t *testing.T) {
	sender := &fakeSender{}
	obs := &fakeObserver{}
	ch := New(sender, obs)

	payload := aawire.EncodeVersionPayload(aawire.VersionPayload{Major: 1, Minor: 7, Status: aawire.VersionStatusMatch})
	require.NoError(t, ch.Dispatch(ChannelID, uint16(aawire.VersionResponse), payload))

	require.NotNil(t, obs.versionResponse)
	assert.Equal(t, aawire.VersionStatusMatch, obs.versionResponse.Status)
}

func TestChannelOpenRequestDispatchReportsArrivalChannel(t *testing.T) {
	sender := &fakeSender{}
	obs := &fakeObserver{}
	ch := New(sender, obs)

	req := aawire.ChannelOpenRequestBody{ChannelID: 3}
	body, err := aawire.Marshal(req)
	require.NoError(t, err)

	require.NoError(t, ch.Dispatch(3, uint16(aawire.ChannelOpenRequest), body))
	require.Len(t, obs.channelOpens, 1)
	assert.Equal(t, int32(3), obs.channelOpens[0].ChannelID)

	require.NoError(t, ch.SendChannelOpenResponse(3, aawire.ChannelOpenStatusOK))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, uint8(3), sender.sent[0].channelID)
}

func TestShutdownRequestDispatch(t *testing.T) {
	sender := &fakeSender{}
	obs := &fakeObserver{}
	ch := New(sender, obs)

	body, err := aawire.Marshal(aawire.ShutdownRequestBody{Reason: aawire.ShutdownReasonQuit})
	require.NoError(t, err)
	require.NoError(t, ch.Dispatch(ChannelID, uint16(aawire.ShutdownRequest), body))

	require.Len(t, obs.shutdownReqs, 1)
	assert.Equal(t, aawire.ShutdownReasonQuit, obs.shutdownReqs[0].Reason)
}

func TestShutdownResponseDispatch(t *testing.T) {
	sender := &fakeSender{}
	obs := &fakeObserver{}
	ch := New(sender, obs)

	require.NoError(t, ch.Dispatch(ChannelID, uint16(aawire.ShutdownResponse), nil))
	assert.Equal(t, 1, obs.shutdownResps)
}

func TestAudioFocusRequestDispatch(t *testing.T) {
	sender := &fakeSender{}
	obs := &fakeObserver{}
	ch := New(sender, obs)

	body, err := aawire.Marshal(aawire.AudioFocusRequestBody{Request: aawire.AudioFocusRequestGainNavi})
	require.NoError(t, err)
	require.NoError(t, ch.Dispatch(ChannelID, uint16(aawire.AudioFocusRequest), body))

	require.Len(t, obs.audioFocusReqs, 1)
	assert.Equal(t, aawire.AudioFocusRequestGainNavi, obs.audioFocusReqs[0].Request)
}

func TestUnknownMessageIDIsIgnoredNotFatal(t *testing.T) {
	sender := &fakeSender{}
	obs := &fakeObserver{}
	ch := New(sender, obs)

	err := ch.Dispatch(ChannelID, 0xBEEF, []byte{0x01})
	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}
