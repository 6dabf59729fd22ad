package aawire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPayloadRoundTrip(t *testing.T) {
	p := VersionPayload{Major: 1, Minor: 7, Status: VersionStatusMatch}
	wire := EncodeVersionPayload(p)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x07, 0x00, 0x00}, wire)
	assert.Equal(t, p, DecodeVersionPayload(wire))
}

func TestVersionPayloadShortIsMismatch(t *testing.T) {
	got := DecodeVersionPayload([]byte{0x00, 0x01})
	assert.Equal(t, VersionStatusMismatch, got.Status)
}

func TestResolveAudioFocus(t *testing.T) {
	cases := []struct {
		req  AudioFocusRequestType
		want AudioFocusType
	}{
		{AudioFocusRequestGain, AudioFocusGain},
		{AudioFocusRequestGainTransient, AudioFocusGainTransient},
		{AudioFocusRequestGainNavi, AudioFocusGainTransientGuidance},
		{AudioFocusRequestRelease, AudioFocusLoss},
		{AudioFocusRequestType(99), AudioFocusNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ResolveAudioFocus(c.req))
	}
}

func TestControlMessageCBORRoundTrip(t *testing.T) {
	open := ChannelOpenRequestBody{Priority: 1, ChannelID: 3}
	wire, err := Marshal(open)
	require.NoError(t, err)

	var got ChannelOpenRequestBody
	require.NoError(t, Unmarshal(wire, &got))
	assert.Equal(t, open, got)
}

func TestServiceDiscoveryResponseCBORRoundTrip(t *testing.T) {
	body := ServiceDiscoveryResponseBody{
		Identity: Identity{HeadUnitName: "test-hu", CarModel: "Universal"},
		Channels: []ChannelDescriptor{
			{
				ChannelID: 3,
				AVChannel: &AVChannelDescriptor{
					StreamType: AVStreamVideo,
					VideoConfigs: []VideoConfig{
						{Codec: VideoCodecH264, Resolution: VideoResolution720p, FPS: 60, DPI: 160},
					},
				},
			},
			{
				ChannelID:        8,
				BluetoothChannel: &BluetoothChannelDescriptor{AdapterAddress: "00:11:22:33:44:55"},
			},
		},
	}

	wire, err := Marshal(body)
	require.NoError(t, err)

	var got ServiceDiscoveryResponseBody
	require.NoError(t, Unmarshal(wire, &got))
	assert.Equal(t, body, got)
}
