package aawire

// Fixed logical channel IDs, as enumerated in the service discovery table.
const (
	ChannelControl     uint8 = 0
	ChannelInput       uint8 = 1
	ChannelSensor      uint8 = 2
	ChannelVideo       uint8 = 3
	ChannelMediaAudio  uint8 = 4
	ChannelSpeechAudio uint8 = 5
	ChannelSystemAudio uint8 = 6
	ChannelAVInput     uint8 = 7
	ChannelBluetooth   uint8 = 8
	ChannelNavigation  uint8 = 9
	ChannelMediaStatus uint8 = 10
	ChannelPhoneStatus uint8 = 11
	ChannelWifi        uint8 = 14
)
