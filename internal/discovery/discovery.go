// Package discovery assembles the SERVICE_DISCOVERY_RESPONSE body
// advertising the head unit's identity and every configured channel.
package discovery

import (
	"math"
	"strings"

	"github.com/openauto-hu/aahu/internal/aawire"
	"github.com/openauto-hu/aahu/pkg/config"
)

var codecNames = map[string]aawire.VideoCodec{
	"h264": aawire.VideoCodecH264,
	"h265": aawire.VideoCodecH265,
	"vp9":  aawire.VideoCodecVP9,
	"av1":  aawire.VideoCodecAV1,
}

var resolutionDims = map[string]struct {
	res  aawire.VideoResolution
	w, h int
}{
	"480p":  {aawire.VideoResolution480p, 800, 480},
	"720p":  {aawire.VideoResolution720p, 1280, 720},
	"1080p": {aawire.VideoResolution1080p, 1920, 1080},
}

// Builder assembles ServiceDiscoveryResponseBody from configuration.
type Builder struct {
	cfg config.Config
}

func NewBuilder(cfg config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// calcMargins letterboxes a remoteW x remoteH video stream into the
// viewport remaining after the configured sidebar is carved out.
func (b *Builder) calcMargins(remoteW, remoteH int) (marginW, marginH int) {
	d := b.cfg.Display
	if !d.SidebarEnabled || d.SidebarWidth <= 0 {
		return 0, 0
	}
	horizontal := d.SidebarPosition == "top" || d.SidebarPosition == "bottom"

	viewportW, viewportH := d.Width, d.Height
	if horizontal {
		viewportH -= d.SidebarWidth
	} else {
		viewportW -= d.SidebarWidth
	}
	if viewportW <= 0 || viewportH <= 0 {
		return 0, 0
	}

	screenRatio := float64(viewportW) / float64(viewportH)
	remoteRatio := float64(remoteW) / float64(remoteH)
	if screenRatio < remoteRatio {
		marginW = int(math.Round(float64(remoteW) - float64(remoteH)*screenRatio))
	} else {
		marginH = int(math.Round(float64(remoteH) - float64(remoteW)/screenRatio))
	}
	return marginW, marginH
}

func (b *Builder) resolveDims() (aawire.VideoResolution, int, int) {
	d, ok := resolutionDims[b.cfg.Video.Resolution]
	if !ok {
		d = resolutionDims["720p"]
	}
	return d.res, d.w, d.h
}

func (b *Builder) buildVideoChannel() aawire.AVChannelDescriptor {
	res, remoteW, remoteH := b.resolveDims()
	marginW, marginH := b.calcMargins(remoteW, remoteH)

	configs := make([]aawire.VideoConfig, 0, len(b.cfg.Video.Codecs))
	for _, name := range b.cfg.Video.Codecs {
		codec, ok := codecNames[strings.ToLower(name)]
		if !ok {
			continue
		}
		configs = append(configs, aawire.VideoConfig{
			Codec:        codec,
			Resolution:   res,
			FPS:          int32(b.cfg.Video.FPS),
			DPI:          int32(b.cfg.Video.DPI),
			MarginWidth:  int32(marginW),
			MarginHeight: int32(marginH),
		})
	}
	if len(configs) == 0 {
		// No codec in config resolved: fall back to H.264 at 720p so the
		// channel is never advertised with zero usable configurations.
		fbMarginW, fbMarginH := b.calcMargins(1280, 720)
		configs = append(configs, aawire.VideoConfig{
			Codec:        aawire.VideoCodecH264,
			Resolution:   aawire.VideoResolution720p,
			FPS:          30,
			DPI:          int32(b.cfg.Video.DPI),
			MarginWidth:  int32(fbMarginW),
			MarginHeight: int32(fbMarginH),
		})
	}

	return aawire.AVChannelDescriptor{
		StreamType:   aawire.AVStreamVideo,
		VideoConfigs: configs,
	}
}

func (b *Builder) buildAudioChannel(streamType aawire.AVStreamType, sampleRate int32, channelCount int32) aawire.AVChannelDescriptor {
	return aawire.AVChannelDescriptor{
		StreamType: streamType,
		AudioConfigs: []aawire.AudioConfig{{
			SampleRate: sampleRate,
			BitDepth:   16,
			Channels:   channelCount,
		}},
	}
}

func (b *Builder) buildInputChannel() aawire.InputChannelDescriptor {
	_, touchW, touchH := b.resolveDims()
	marginW, marginH := b.calcMargins(touchW, touchH)
	touchW -= marginW
	touchH -= marginH

	return aawire.InputChannelDescriptor{
		TouchScreenWidth:  int32(touchW),
		TouchScreenHeight: int32(touchH),
		// KEYCODE_HOME, KEYCODE_BACK, KEYCODE_MICROPHONE_1
		SupportedKeycodes: []int32{3, 4, 84},
	}
}

func (b *Builder) buildSensorChannel() aawire.SensorChannelDescriptor {
	sensors := []aawire.SensorType{aawire.SensorTypeParkingBrake}
	if b.cfg.Sensors.NightMode.Provider != "none" {
		sensors = append(sensors, aawire.SensorTypeNightData)
	}
	return aawire.SensorChannelDescriptor{Sensors: sensors}
}

// Build assembles the full ServiceDiscoveryResponseBody from the loaded
// configuration, one ChannelDescriptor per supported channel.
func (b *Builder) Build() aawire.ServiceDiscoveryResponseBody {
	video := b.buildVideoChannel()
	mediaAudio := b.buildAudioChannel(aawire.AVStreamMediaAudio, 48000, 2)
	speechAudio := b.buildAudioChannel(aawire.AVStreamSpeechAudio, 48000, 1)
	systemAudio := b.buildAudioChannel(aawire.AVStreamSystemAudio, 16000, 1)
	input := b.buildInputChannel()
	sensor := b.buildSensorChannel()

	channels := []aawire.ChannelDescriptor{
		{ChannelID: int32(aawire.ChannelVideo), AVChannel: &video},
		{ChannelID: int32(aawire.ChannelMediaAudio), AVChannel: &mediaAudio},
		{ChannelID: int32(aawire.ChannelSpeechAudio), AVChannel: &speechAudio},
		{ChannelID: int32(aawire.ChannelSystemAudio), AVChannel: &systemAudio},
		{ChannelID: int32(aawire.ChannelInput), InputChannel: &input},
		{ChannelID: int32(aawire.ChannelSensor), SensorChannel: &sensor},
		{ChannelID: int32(aawire.ChannelBluetooth), BluetoothChannel: &aawire.BluetoothChannelDescriptor{
			AdapterAddress: b.cfg.Bluetooth.AdapterAddress,
		}},
		{ChannelID: int32(aawire.ChannelWifi), WifiChannel: &aawire.WifiChannelDescriptor{
			SSID: b.cfg.Wifi.SSID,
		}},
		{ChannelID: int32(aawire.ChannelAVInput), AVInputChannel: &aawire.AVInputChannelDescriptor{
			AudioConfig: aawire.AudioConfig{SampleRate: 16000, BitDepth: 16, Channels: 1},
		}},
		{ChannelID: int32(aawire.ChannelNavigation), NavigationChannel: &aawire.NavigationChannelDescriptor{
			ImageOptions: aawire.NavigationImageOptions{Width: 64, Height: 64, DPI: 0, ColorDepthBits: 32},
		}},
		{ChannelID: int32(aawire.ChannelMediaStatus), MediaInfoChannel: &aawire.MediaInfoChannelDescriptor{}},
		{ChannelID: int32(aawire.ChannelPhoneStatus), PhoneStatusChannel: &aawire.PhoneStatusChannelDescriptor{}},
	}

	return aawire.ServiceDiscoveryResponseBody{
		Identity: aawire.Identity{
			HeadUnitName:        b.cfg.Identity.HeadUnitName,
			Manufacturer:        b.cfg.Identity.Manufacturer,
			Model:               b.cfg.Identity.Model,
			SwVersion:           b.cfg.Identity.SwVersion,
			SwBuild:             b.cfg.Identity.SwBuild,
			CarModel:            b.cfg.Identity.CarModel,
			CarYear:             b.cfg.Identity.CarYear,
			CarSerial:           b.cfg.Identity.CarSerial,
			LeftHandDrive:       b.cfg.Identity.LeftHandDrive,
			NativeMediaDuringVR: b.cfg.Identity.NativeMediaDuringVR,
		},
		Channels: channels,
	}
}
