package channels

// Message IDs shared by every AV-capable channel (Video and the three
// Audio classes). The spec enumerates these kinds without fixing hex
// values the way it does for the control channel; this package assigns
// a small sequential ID space. IDs start at
// 0x0003 to leave 0x0000/0x0001 free for aawire.AVMediaWithTimestamp /
// aawire.AVMediaIndication, which share the same per-channel ID space.
const (
	SetupRequest    uint16 = 0x0003
	SetupResponse   uint16 = 0x0004
	StartIndication uint16 = 0x0005
	StopIndication  uint16 = 0x0006
	AckIndication   uint16 = 0x0007

	VideoFocusRequest    uint16 = 0x0008
	VideoFocusIndication uint16 = 0x0009
)

// Message IDs for the non-AV handlers in 4.6.2.
const (
	TouchIndication uint16 = 0x0001

	SensorStartRequest    uint16 = 0x0001
	SensorStartResponse   uint16 = 0x0002
	SensorEventIndication uint16 = 0x0003

	GenericSetupRequest  uint16 = 0x0001
	GenericSetupResponse uint16 = 0x0002
	GenericIndication    uint16 = 0x0003
)

// MaxUnacked is the number of media frames a phone may send before
// blocking on an ACK from the HU. The source carries a stale duplicate
// path using 1; this is the intended value (resolved open question #3).
const MaxUnacked = 10

// SetupStatus is the SETUP_RESPONSE status code.
type SetupStatus int32

const (
	SetupStatusOK   SetupStatus = 0
	SetupStatusFail SetupStatus = 1
)

// SetupRequestBody is the (effectively empty) SETUP_REQUEST payload.
type SetupRequestBody struct{}

// SetupResponseBody answers a SETUP_REQUEST: the max_unacked flow-control
// limit and the configuration indices this handler is prepared to use.
type SetupResponseBody struct {
	Status        SetupStatus `cbor:"1,keyasint"`
	MaxUnacked    int32       `cbor:"2,keyasint"`
	ConfigIndices []int32     `cbor:"3,keyasint,omitempty"`
}

// StartIndicationBody latches the streaming session id. ConfigIndex is
// only meaningful for video; audio always uses configuration index 0.
type StartIndicationBody struct {
	Session     int32 `cbor:"1,keyasint"`
	ConfigIndex int32 `cbor:"2,keyasint,omitempty"`
}

// StopIndicationBody is the (empty) STOP_INDICATION payload.
type StopIndicationBody struct{}

// AckIndicationBody acknowledges received media frames. For audio, Value
// is the count of frames being acknowledged (not cumulative); for video,
// Value is a monotonically increasing per-session counter.
type AckIndicationBody struct {
	Value uint32 `cbor:"1,keyasint"`
}

// VideoFocusMode is the projection focus level for the video channel.
type VideoFocusMode int32

const (
	VideoFocusModeNone      VideoFocusMode = 0
	VideoFocusModeProjected VideoFocusMode = 1
	VideoFocusModeNative    VideoFocusMode = 2
)

// VideoFocusRequestBody is the VIDEO_FOCUS_REQUEST payload.
type VideoFocusRequestBody struct {
	Mode VideoFocusMode `cbor:"1,keyasint"`
}

// VideoFocusIndicationBody is the VIDEO_FOCUS_INDICATION payload, sent
// both unsolicited (Unrequested=true) and in answer to a request
// (Unrequested=false).
type VideoFocusIndicationBody struct {
	Mode        VideoFocusMode `cbor:"1,keyasint"`
	Unrequested bool           `cbor:"2,keyasint"`
}
