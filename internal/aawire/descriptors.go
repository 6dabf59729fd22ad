package aawire

// VideoCodec enumerates the codecs a video channel may advertise.
type VideoCodec int32

const (
	VideoCodecH264 VideoCodec = iota
	VideoCodecH265
	VideoCodecVP9
	VideoCodecAV1
)

// VideoResolution enumerates the resolutions a video channel may advertise.
type VideoResolution int32

const (
	VideoResolution480p VideoResolution = iota
	VideoResolution720p
	VideoResolution1080p
)

// VideoConfig is one (resolution, fps, dpi, margin, codec) tuple offered
// for the video channel. ServiceDiscoveryBuilder emits one per enabled
// codec.
type VideoConfig struct {
	Codec        VideoCodec      `cbor:"1,keyasint"`
	Resolution   VideoResolution `cbor:"2,keyasint"`
	FPS          int32           `cbor:"3,keyasint"`
	DPI          int32           `cbor:"4,keyasint"`
	MarginWidth  int32           `cbor:"5,keyasint"`
	MarginHeight int32           `cbor:"6,keyasint"`
}

// AudioConfig describes a PCM stream's sample format.
type AudioConfig struct {
	SampleRate int32 `cbor:"1,keyasint"`
	BitDepth   int32 `cbor:"2,keyasint"`
	Channels   int32 `cbor:"3,keyasint"`
}

// AVStreamType distinguishes the four AV-capable channel kinds. A
// ChannelDescriptor's AVChannel field is shared by all of them; only one of
// VideoConfigs/AudioConfigs is populated depending on StreamType.
type AVStreamType int32

const (
	AVStreamVideo AVStreamType = iota
	AVStreamMediaAudio
	AVStreamSpeechAudio
	AVStreamSystemAudio
)

// AVChannelDescriptor configures a Video or Audio channel.
type AVChannelDescriptor struct {
	StreamType   AVStreamType  `cbor:"1,keyasint"`
	VideoConfigs []VideoConfig `cbor:"2,keyasint,omitempty"`
	AudioConfigs []AudioConfig `cbor:"3,keyasint,omitempty"`
}

// InputChannelDescriptor advertises the HU's touch surface and key
// bindings.
type InputChannelDescriptor struct {
	TouchScreenWidth  int32   `cbor:"1,keyasint"`
	TouchScreenHeight int32   `cbor:"2,keyasint"`
	SupportedKeycodes []int32 `cbor:"3,keyasint,omitempty"`
}

// SensorType enumerates the sensor streams the HU can feed to the phone.
type SensorType int32

const (
	SensorTypeLocation SensorType = iota
	SensorTypeCompass
	SensorTypeSpeed
	SensorTypeRPM
	SensorTypeNightData
	SensorTypeGear
	SensorTypeParkingBrake
	SensorTypeFuel
)

// SensorChannelDescriptor advertises the set of sensor types the HU is
// prepared to feed.
type SensorChannelDescriptor struct {
	Sensors []SensorType `cbor:"1,keyasint,omitempty"`
}

// BluetoothChannelDescriptor advertises the HU's paired Bluetooth adapter.
type BluetoothChannelDescriptor struct {
	AdapterAddress string `cbor:"1,keyasint"`
}

// WifiChannelDescriptor advertises the HU's AP credentials for a
// Wi-Fi-projection handoff.
type WifiChannelDescriptor struct {
	SSID string `cbor:"1,keyasint"`
}

// AVInputChannelDescriptor configures the reverse AV-input channel
// (microphone audio from the HU to the phone).
type AVInputChannelDescriptor struct {
	AudioConfig AudioConfig `cbor:"1,keyasint"`
}

// NavigationImageOptions describes the still-image navigation overlay the
// phone may push.
type NavigationImageOptions struct {
	Width         int32 `cbor:"1,keyasint"`
	Height        int32 `cbor:"2,keyasint"`
	DPI           int32 `cbor:"3,keyasint"`
	ColorDepthBits int32 `cbor:"4,keyasint"`
}

// NavigationChannelDescriptor advertises the HU's navigation overlay
// capability.
type NavigationChannelDescriptor struct {
	ImageOptions NavigationImageOptions `cbor:"1,keyasint"`
}

// MediaInfoChannelDescriptor advertises the media-status channel
// (now-playing metadata).
type MediaInfoChannelDescriptor struct{}

// PhoneStatusChannelDescriptor advertises the phone-status channel (call
// state, battery, signal).
type PhoneStatusChannelDescriptor struct{}

// ChannelDescriptor is a tagged variant carrying the channel-specific
// configuration for exactly one logical channel. Exactly one of the
// pointer fields below is populated, matching the kind implied by
// ChannelID; the rest is nil and omitted on the wire.
type ChannelDescriptor struct {
	ChannelID int32 `cbor:"1,keyasint"`

	AVChannel          *AVChannelDescriptor          `cbor:"2,keyasint,omitempty"`
	InputChannel       *InputChannelDescriptor       `cbor:"3,keyasint,omitempty"`
	SensorChannel      *SensorChannelDescriptor      `cbor:"4,keyasint,omitempty"`
	BluetoothChannel   *BluetoothChannelDescriptor   `cbor:"5,keyasint,omitempty"`
	WifiChannel        *WifiChannelDescriptor        `cbor:"6,keyasint,omitempty"`
	AVInputChannel     *AVInputChannelDescriptor     `cbor:"7,keyasint,omitempty"`
	NavigationChannel  *NavigationChannelDescriptor  `cbor:"8,keyasint,omitempty"`
	MediaInfoChannel   *MediaInfoChannelDescriptor   `cbor:"9,keyasint,omitempty"`
	PhoneStatusChannel *PhoneStatusChannelDescriptor `cbor:"10,keyasint,omitempty"`
}

// Identity carries the head-unit identity block advertised during service
// discovery.
type Identity struct {
	HeadUnitName       string `cbor:"1,keyasint"`
	Manufacturer       string `cbor:"2,keyasint"`
	Model              string `cbor:"3,keyasint"`
	SwVersion          string `cbor:"4,keyasint"`
	SwBuild            string `cbor:"5,keyasint"`
	CarModel           string `cbor:"6,keyasint"`
	CarYear            string `cbor:"7,keyasint"`
	CarSerial          string `cbor:"8,keyasint"`
	LeftHandDrive      bool   `cbor:"9,keyasint"`
	NativeMediaDuringVR bool  `cbor:"10,keyasint"`
}

// ServiceDiscoveryResponseBody is the SERVICE_DISCOVERY_RESPONSE payload:
// the identity block plus the full list of channel descriptors the HU
// offers.
type ServiceDiscoveryResponseBody struct {
	Identity Identity            `cbor:"1,keyasint"`
	Channels []ChannelDescriptor `cbor:"2,keyasint"`
}

// ServiceDiscoveryRequestBody is the (empty) SERVICE_DISCOVERY_REQUEST
// payload.
type ServiceDiscoveryRequestBody struct{}

// ServiceDiscoveryUpdateBody lets a phone push an updated channel
// descriptor after discovery has already completed.
type ServiceDiscoveryUpdateBody struct {
	Channel ChannelDescriptor `cbor:"1,keyasint"`
}
