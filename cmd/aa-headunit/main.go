// Command aa-headunit is a reference Android Auto head unit implementation.
//
// This command demonstrates a complete AA-protocol head unit with:
//   - CLI argument parsing and YAML configuration
//   - A TCP listener accepting the phone's projection connection
//   - TLS-in-band handshake, service discovery, and the full channel
//     registry (video, three audio classes, input, sensors, bluetooth,
//     wifi, mic capture, navigation, media status, phone status)
//   - Optional protocol event logging (JSONL/TSV)
//
// Usage:
//
//	aa-headunit [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-port int             Listen port (default from config, 5277)
//	-protocol-log string  File path for protocol event logging
//	-protocol-log-format  Protocol log format: jsonl, tsv (default "jsonl")
//	-log-level string     Log level: debug, info, warn, error (default "info")
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/openauto-hu/aahu/internal/aatransport"
	"github.com/openauto-hu/aahu/internal/aawire"
	"github.com/openauto-hu/aahu/internal/channels"
	"github.com/openauto-hu/aahu/internal/netdiscovery"
	"github.com/openauto-hu/aahu/internal/nightmode"
	"github.com/openauto-hu/aahu/internal/session"
	"github.com/openauto-hu/aahu/pkg/config"
	"github.com/openauto-hu/aahu/pkg/protolog"
)

var (
	configFile     string
	port           int
	logLevel       string
	protocolLog    string
	protocolFormat string
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.IntVar(&port, "port", 0, "Listen port (overrides config when set)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&protocolLog, "protocol-log", "", "File path for protocol event logging")
	flag.StringVar(&protocolFormat, "protocol-log-format", "jsonl", "Protocol log format: jsonl, tsv")
}

func main() {
	flag.Parse()
	setupLogging(logLevel)

	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if port != 0 {
		cfg.Protocol.ListenPort = port
	}
	if protocolLog != "" {
		cfg.Protocol.ProtocolLogFile = protocolLog
	}
	if protocolFormat != "" {
		cfg.Protocol.ProtocolLogFormat = protocolFormat
	}

	log.Println("Android Auto Reference Head Unit")
	log.Println("=================================")
	log.Printf("Head unit name: %s", cfg.Identity.HeadUnitName)
	log.Printf("Listen port: %d", cfg.Protocol.ListenPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: cfg.Protocol.ListenPort})
	if err != nil {
		log.Fatalf("Failed to listen on port %d: %v", cfg.Protocol.ListenPort, err)
	}
	defer ln.Close()

	if cfg.Wifi.MDNSEnabled {
		advertiser, err := netdiscovery.Start(cfg)
		if err != nil {
			log.Printf("mDNS advertisement disabled: %v", err)
		} else {
			log.Printf("Advertising %s.%s on port %d", cfg.Identity.HeadUnitName, netdiscovery.ServiceType, cfg.Protocol.ListenPort)
			defer advertiser.Stop()
		}
	}

	var protoLogger protolog.Logger = protolog.NoopLogger{}
	var fileLogger *protolog.FileLogger
	if cfg.Protocol.ProtocolLogFile != "" {
		format := protolog.FormatJSONL
		if cfg.Protocol.ProtocolLogFormat == "tsv" {
			format = protolog.FormatTSV
		}
		fileLogger, err = protolog.NewFileLogger(cfg.Protocol.ProtocolLogFile, format)
		if err != nil {
			log.Fatalf("Failed to create protocol logger: %v", err)
		}
		protoLogger = fileLogger
		log.Printf("Protocol logging to: %s", cfg.Protocol.ProtocolLogFile)
		defer fileLogger.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	log.Printf("Waiting for connections...")
	for {
		conn, err := acceptOne(ctx, ln)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		go handleConnection(ctx, conn, cfg, protoLogger)
	}
	log.Println("Goodbye!")
}

func acceptOne(ctx context.Context, ln *net.TCPListener) (*net.TCPConn, error) {
	type result struct {
		conn *net.TCPConn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := ln.AcceptTCP()
		ch <- result{c, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.conn, r.err
	}
}

// sessionObserver adapts session lifecycle events to plain logging; a more
// elaborate head unit would surface these to a UI instead.
type sessionObserver struct {
	remote string
}

func (o *sessionObserver) OnStateChanged(from, to session.State) {
	log.Printf("[%s] session state: %s -> %s", o.remote, from, to)
}

func (o *sessionObserver) OnPingTimeout() {
	log.Printf("[%s] ping timeout", o.remote)
}

func (o *sessionObserver) OnError(err error) {
	log.Printf("[%s] session error: %v", o.remote, err)
}

func handleConnection(ctx context.Context, conn *net.TCPConn, cfg config.Config, protoLogger protolog.Logger) {
	remote := conn.RemoteAddr().String()
	log.Printf("[%s] accepted connection", remote)

	transport := aatransport.NewTCPTransport(conn)
	obs := &sessionObserver{remote: remote}

	s, err := session.New(transport, cfg, obs)
	if err != nil {
		log.Printf("[%s] failed to build session: %v", remote, err)
		conn.Close()
		return
	}
	log.Printf("[%s] connection id: %s", remote, s.ConnectionID())
	s.SetProtocolLogger(protoLogger)
	s.SetHandlers(buildHandlers(s, cfg))

	watchdog := aatransport.NewWatchdog(conn, func(reason string) {
		log.Printf("[%s] watchdog: %s", remote, reason)
		transport.Disconnect()
	})
	watchdog.Start(ctx)
	defer watchdog.Stop()

	if err := s.Run(ctx); err != nil {
		log.Printf("[%s] session ended: %v", remote, err)
	} else {
		log.Printf("[%s] session ended", remote)
	}
}

// buildHandlers constructs the full channel registry around the Session's
// Messenger, wires the configured night-mode provider to the sensor
// channel, and keys every handler by its fixed logical channel ID.
func buildHandlers(s *session.Session, cfg config.Config) map[uint8]channels.Handler {
	sender := s.Sender()
	handlers := make(map[uint8]channels.Handler)

	videoConfigIndices := make([]int32, 0, len(cfg.Video.Codecs))
	for i := range cfg.Video.Codecs {
		videoConfigIndices = append(videoConfigIndices, int32(i))
	}
	if len(videoConfigIndices) == 0 {
		videoConfigIndices = []int32{0}
	}

	video := channels.NewVideoHandler(sender, videoConfigIndices, channels.VideoCallbacks{
		OnStreamStarted: func(sessionID int32, configIndex int32) {
			log.Printf("video stream started (session=%d config=%d)", sessionID, configIndex)
		},
		OnStreamStopped: func() { log.Printf("video stream stopped") },
	})
	video.SetChannelID(aawire.ChannelVideo)
	handlers[aawire.ChannelVideo] = video

	mediaAudio := channels.NewAudioHandler(sender, channels.AudioClassMedia, []int32{0}, channels.AudioCallbacks{})
	mediaAudio.SetChannelID(aawire.ChannelMediaAudio)
	handlers[aawire.ChannelMediaAudio] = mediaAudio

	speechAudio := channels.NewAudioHandler(sender, channels.AudioClassSpeech, []int32{0}, channels.AudioCallbacks{})
	speechAudio.SetChannelID(aawire.ChannelSpeechAudio)
	handlers[aawire.ChannelSpeechAudio] = speechAudio

	systemAudio := channels.NewAudioHandler(sender, channels.AudioClassSystem, []int32{0}, channels.AudioCallbacks{})
	systemAudio.SetChannelID(aawire.ChannelSystemAudio)
	handlers[aawire.ChannelSystemAudio] = systemAudio

	input := channels.NewInputHandler(sender, []int32{3, 4, 84}, func(keycode int32, down bool) {
		log.Printf("key event: code=%d down=%v", keycode, down)
	})
	input.SetChannelID(aawire.ChannelInput)
	handlers[aawire.ChannelInput] = input

	sensor := channels.NewSensorHandler(sender)
	sensor.SetChannelID(aawire.ChannelSensor)
	handlers[aawire.ChannelSensor] = sensor

	bluetooth := channels.NewBluetoothHandler(sender, cfg.Bluetooth.AdapterAddress, func(remoteAddr string) {
		log.Printf("bluetooth pairing request from %s", remoteAddr)
	})
	bluetooth.SetChannelID(aawire.ChannelBluetooth)
	handlers[aawire.ChannelBluetooth] = bluetooth

	wifi := channels.NewWifiHandler(sender, cfg.Wifi.SSID)
	wifi.SetChannelID(aawire.ChannelWifi)
	handlers[aawire.ChannelWifi] = wifi

	avInput := channels.NewAVInputHandler(sender)
	avInput.SetChannelID(aawire.ChannelAVInput)
	handlers[aawire.ChannelAVInput] = avInput

	navigation := channels.NewNavigationHandler(sender, func(ev channels.NavigationTurnEvent) {
		log.Printf("navigation: %s (%dm)", ev.Instruction, ev.DistanceM)
	})
	navigation.SetChannelID(aawire.ChannelNavigation)
	handlers[aawire.ChannelNavigation] = navigation

	mediaStatus := channels.NewMediaStatusHandler(sender, func(m channels.MediaMetadata) {
		log.Printf("now playing: %s - %s (%s)", m.Artist, m.Title, m.Album)
	})
	mediaStatus.SetChannelID(aawire.ChannelMediaStatus)
	handlers[aawire.ChannelMediaStatus] = mediaStatus

	phoneStatus := channels.NewPhoneStatusHandler(sender, func(p channels.PhoneStatusBody) {
		log.Printf("phone status: in_call=%v number=%s", p.InCall, p.Number)
	})
	phoneStatus.SetChannelID(aawire.ChannelPhoneStatus)
	handlers[aawire.ChannelPhoneStatus] = phoneStatus

	if provider := nightmode.New(cfg.Sensors.NightMode, func(isNight bool) {
		if err := sensor.PushNightMode(isNight); err != nil {
			log.Printf("failed to push night mode: %v", err)
		}
	}); provider != nil {
		provider.Start()
	}

	return handlers
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}
