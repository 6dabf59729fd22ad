// Package session implements the head-unit connection state machine:
// version handshake, TLS, service discovery, then steady-state message
// routing, keepalive, and shutdown, over one Transport/Messenger pair.
package session

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openauto-hu/aahu/internal/aacrypto"
	"github.com/openauto-hu/aahu/internal/aatransport"
	"github.com/openauto-hu/aahu/internal/aawire"
	"github.com/openauto-hu/aahu/internal/channels"
	"github.com/openauto-hu/aahu/internal/control"
	"github.com/openauto-hu/aahu/internal/discovery"
	"github.com/openauto-hu/aahu/internal/messenger"
	"github.com/openauto-hu/aahu/pkg/config"
	"github.com/openauto-hu/aahu/pkg/protolog"
)

// State is a point in the session lifecycle. States only move forward
// (Property 9): nothing ever transitions back to an earlier state except
// via a fresh Session after Disconnected.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateVersionExchange
	StateTLSHandshake
	StateServiceDiscovery
	StateActive
	StateShuttingDown
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateVersionExchange:
		return "VersionExchange"
	case StateTLSHandshake:
		return "TLSHandshake"
	case StateServiceDiscovery:
		return "ServiceDiscovery"
	case StateActive:
		return "Active"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

const protocolMajor, protocolMinor uint16 = 1, 7

// Observer receives session lifecycle events the application layer cares
// about; channel-level events go through the registered channels.Handler
// instances instead.
type Observer interface {
	OnStateChanged(from, to State)
	OnPingTimeout()
	OnError(err error)
}

// Session drives one head-unit <-> phone connection end to end.
type Session struct {
	cfg      config.Config
	observer Observer

	transport aatransport.Transport
	cryptor   *aacrypto.Cryptor
	msgr      *messenger.Messenger
	control   *control.Channel

	handlers map[uint8]channels.Handler

	state atomic.Int32

	events chan func()
	done   chan struct{}

	missedPings atomic.Int32
	lastPingAt  time.Time
	runErr      error

	connectionID string

	// stateTimer enforces the per-state deadlines (versionTimeout,
	// handshakeTimeout, discoveryTimeout, the ShuttingDown grace period).
	// It is armed/cancelled only from within the event loop, so it needs
	// no lock; stateTimerGen guards against a timer that fired just as the
	// state moved on, since the fire callback runs on its own goroutine.
	stateTimer    *time.Timer
	stateTimerGen int
}

// New builds a Session around transport. The channel handler registry is
// not known yet at this point — building a real channels.Handler (e.g.
// channels.NewVideoHandler) requires a channels.Sender, which only the
// Messenger this call constructs can provide — so callers build handlers
// against Sender() and install them with SetHandlers before calling Run.
func New(transport aatransport.Transport, cfg config.Config, observer Observer) (*Session, error) {
	tlsConfig, err := aacrypto.GenerateSelfSignedServerConfig(cfg.Identity.HeadUnitName)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		cfg:          cfg,
		observer:     observer,
		transport:    transport,
		cryptor:      aacrypto.NewCryptor(),
		handlers:     map[uint8]channels.Handler{},
		events:       make(chan func(), 64),
		done:         make(chan struct{}),
		connectionID: uuid.NewString(),
	}
	s.state.Store(int32(StateIdle))
	s.msgr = messenger.New(transport, s.cryptor, s)
	s.msgr.SetConnectionID(s.connectionID)
	transport.SetHandler(s.msgr)
	s.control = control.New(s.msgr, s)

	if err := s.cryptor.BeginHandshake(true, tlsConfig); err != nil {
		return nil, fmt.Errorf("session: begin handshake: %w", err)
	}
	return s, nil
}

// Sender exposes the Messenger as a channels.Sender, so channel handlers
// can be built before the handler registry is installed.
func (s *Session) Sender() channels.Sender { return s.msgr }

// SetHandlers installs the channel handler registry. Must be called before
// Run; Run itself never mutates s.handlers, so no further synchronization
// is needed once it has been called.
func (s *Session) SetHandlers(handlers map[uint8]channels.Handler) {
	s.handlers = handlers
}

func (s *Session) State() State { return State(s.state.Load()) }

// ConnectionID is the random identifier assigned to this session at
// construction, used to correlate protocol-log lines from concurrent
// phone connections.
func (s *Session) ConnectionID() string { return s.connectionID }

func (s *Session) setState(to State) {
	from := State(s.state.Swap(int32(to)))
	if from != to && s.observer != nil {
		s.observer.OnStateChanged(from, to)
	}
}

// SetProtocolLogger attaches a protocol event sink to the underlying
// Messenger.
func (s *Session) SetProtocolLogger(l protolog.Logger) {
	s.msgr.SetLogger(l)
}

// Channel looks up a registered handler, for callers that need the
// concrete type (e.g. to call VideoHandler.RequestVideoFocus).
func (s *Session) Channel(id uint8) (channels.Handler, bool) {
	h, ok := s.handlers[id]
	return h, ok
}

// Run drives the connection until ctx is cancelled or the transport
// disconnects terminally. It owns the single event-loop goroutine: every
// Messenger/control callback below only enqueues a closure here rather
// than touching Session state directly, so state, handler dispatch, and
// the ping/watchdog timers never race each other.
func (s *Session) Run(ctx context.Context) error {
	s.setState(StateConnecting)
	if err := s.transport.Connect(ctx); err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("session: connect: %w", err)
	}

	pingInterval := s.cfg.Protocol.PingInterval()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.transport.Disconnect()
			s.finish(ctx.Err())
			return s.runErr
		case <-s.done:
			return s.runErr
		case fn := <-s.events:
			fn()
		case <-ticker.C:
			s.onPingTick()
		}
	}
}

func (s *Session) enqueue(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

func (s *Session) finish(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	s.cancelStateTimer()
	s.runErr = err
	s.setState(StateDisconnected)
	close(s.done)
	if err != nil && s.observer != nil {
		s.observer.OnError(err)
	}
}

// armStateTimer starts (replacing any previous) the per-state deadline
// timer. The timer fires on its own goroutine, so it only ever enqueues a
// closure back onto the event loop rather than touching Session state
// directly, matching every other external callback.
func (s *Session) armStateTimer(d time.Duration) {
	s.cancelStateTimer()
	s.stateTimerGen++
	gen := s.stateTimerGen
	s.stateTimer = time.AfterFunc(d, func() {
		s.enqueue(func() { s.onStateTimeout(gen) })
	})
}

// cancelStateTimer disarms the current per-state deadline, if any. Called
// whenever a state transitions away from a state that armed one, and from
// finish so no timer outlives the session.
func (s *Session) cancelStateTimer() {
	if s.stateTimer != nil {
		s.stateTimer.Stop()
		s.stateTimer = nil
	}
	s.stateTimerGen++
}

func (s *Session) onStateTimeout(gen int) {
	if gen != s.stateTimerGen {
		// Stale fire: the state already moved on and cancelled/rearmed
		// the timer before this closure ran.
		return
	}
	s.finish(fmt.Errorf("session: %s timed out", s.State()))
}

// --- messenger.Observer ---

func (s *Session) OnTransportConnected() {
	s.enqueue(func() {
		s.setState(StateVersionExchange)
		if err := s.control.SendVersionRequest(protocolMajor, protocolMinor); err != nil {
			s.observer.OnError(err)
			return
		}
		s.armStateTimer(s.cfg.Protocol.VersionTimeout())
	})
}

func (s *Session) OnTransportDisconnected(err error) {
	s.enqueue(func() { s.finish(err) })
}

func (s *Session) OnTransportError(err error) {
	s.enqueue(func() {
		if s.observer != nil {
			s.observer.OnError(err)
		}
	})
}

func (s *Session) OnProtocolError(err error) {
	s.enqueue(func() {
		log.Printf("session: protocol error: %v", err)
		if s.observer != nil {
			s.observer.OnError(err)
		}
	})
}

func (s *Session) OnSSLHandshakeData(body []byte) {
	s.enqueue(func() { s.pumpHandshake() })
}

func (s *Session) OnMessageReceived(channelID uint8, messageID uint16, payload []byte, dataOffset int) {
	s.enqueue(func() { s.route(channelID, messageID, payload, dataOffset) })
}

func (s *Session) pumpHandshake() {
	done, err := s.cryptor.DoHandshake()
	if err != nil {
		s.finish(fmt.Errorf("session: tls handshake: %w", err))
		return
	}
	if out := s.cryptor.ReadHandshakeBuffer(); len(out) > 0 {
		if err := s.control.SendSSLHandshake(out); err != nil {
			s.finish(err)
			return
		}
	}
	if done && s.State() == StateTLSHandshake {
		s.msgr.SetEncrypted(true)
		if err := s.control.SendAuthComplete(0); err != nil {
			s.finish(err)
			return
		}
		s.setState(StateServiceDiscovery)
		s.armStateTimer(s.cfg.Protocol.DiscoveryTimeout())
	}
}

func (s *Session) route(channelID uint8, messageID uint16, payload []byte, dataOffset int) {
	if channelID == control.ChannelID {
		if err := s.control.Dispatch(channelID, messageID, payload[dataOffset:]); err != nil {
			log.Printf("session: control dispatch error: %v", err)
		}
		return
	}

	handler, ok := s.handlers[channelID]
	if !ok {
		return
	}

	// CHANNEL_OPEN_REQUEST may also arrive directly on its target channel
	// rather than on channel 0.
	if aawire.MessageID(messageID) == aawire.ChannelOpenRequest {
		if err := s.control.Dispatch(channelID, messageID, payload[dataOffset:]); err != nil {
			log.Printf("session: control dispatch error: %v", err)
		}
		return
	}

	if av, isAV := handler.(channels.AVHandler); isAV {
		switch aawire.MessageID(messageID) {
		case aawire.AVMediaWithTimestamp:
			if av.CanAcceptMedia() {
				body := payload[dataOffset:]
				if len(body) >= 8 {
					av.OnMediaData(body[8:], decodeTimestamp(body))
				} else {
					av.OnMediaData(body, 0)
				}
			}
			return
		case aawire.AVMediaIndication:
			if av.CanAcceptMedia() {
				av.OnMediaData(payload[dataOffset:], 0)
			}
			return
		}
	}

	handler.OnMessage(messageID, payload[dataOffset:], 0)
}

func decodeTimestamp(body []byte) uint64 {
	if len(body) < 8 {
		return 0
	}
	var ts uint64
	for i := 0; i < 8; i++ {
		ts = ts<<8 | uint64(body[i])
	}
	return ts
}

// --- control.Observer ---

func (s *Session) OnVersionResponse(p aawire.VersionPayload) {
	if s.State() != StateVersionExchange {
		return
	}
	if p.Status != aawire.VersionStatusMatch {
		s.finish(fmt.Errorf("session: version mismatch (phone reported %d.%d, status %d)", p.Major, p.Minor, p.Status))
		return
	}
	s.setState(StateTLSHandshake)
	s.armStateTimer(s.cfg.Protocol.HandshakeTimeout())
	s.pumpHandshake()
}

func (s *Session) OnServiceDiscoveryRequest() {
	builder := discovery.NewBuilder(s.cfg)
	if err := s.control.SendServiceDiscoveryResponse(builder.Build()); err != nil {
		s.finish(err)
		return
	}
	s.cancelStateTimer()
	s.setState(StateActive)
	for _, h := range s.handlers {
		h.OnChannelOpened()
	}
}

func (s *Session) OnChannelOpenRequest(arrivalChannel uint8, req aawire.ChannelOpenRequestBody) {
	status := aawire.ChannelOpenStatusOK
	handler, ok := s.handlers[uint8(req.ChannelID)]
	if !ok {
		status = aawire.ChannelOpenStatusInvalidChannel
	}
	if err := s.control.SendChannelOpenResponse(arrivalChannel, status); err != nil {
		log.Printf("session: channel open response failed: %v", err)
	}
	if status == aawire.ChannelOpenStatusOK {
		handler.OnChannelOpened()
	}
}

func (s *Session) OnChannelClose() {
	for _, h := range s.handlers {
		h.OnChannelClosed()
	}
}

func (s *Session) OnAuthComplete() {}

func (s *Session) OnPing(timestampMs int64) {
	s.missedPings.Store(0)
}

func (s *Session) OnPong() {
	s.missedPings.Store(0)
}

func (s *Session) OnNavFocusRequest(f aawire.NavFocusBody) {
	if err := s.control.SendNavFocusResponse(f.Focus); err != nil {
		log.Printf("session: nav focus response failed: %v", err)
	}
}

func (s *Session) OnShutdownRequest(req aawire.ShutdownRequestBody) {
	s.setState(StateShuttingDown)
	if err := s.control.SendShutdownResponse(); err != nil {
		log.Printf("session: shutdown response failed: %v", err)
	}
	s.finish(nil)
}

// OnShutdownResponse completes the head-unit-initiated shutdown round trip
// (Session.Shutdown sent SHUTDOWN_REQUEST and is waiting in ShuttingDown):
// the phone's SHUTDOWN_RESPONSE ends the session normally, ahead of the
// grace-period timer armed by Shutdown.
func (s *Session) OnShutdownResponse() {
	if s.State() != StateShuttingDown {
		return
	}
	s.finish(nil)
}

func (s *Session) OnVoiceSessionRequest(v aawire.VoiceSessionBody) {
	log.Printf("session: voice session request status=%d", v.Status)
}

func (s *Session) OnAudioFocusRequest(req aawire.AudioFocusRequestBody) {
	granted := aawire.ResolveAudioFocus(req.Request)
	if err := s.control.SendAudioFocusResponse(granted); err != nil {
		log.Printf("session: audio focus response failed: %v", err)
	}
}

func (s *Session) OnCallAvailability(c aawire.CallAvailabilityBody) {
	log.Printf("session: call availability=%v", c.Available)
}

func (s *Session) OnServiceDiscoveryUpdate(u aawire.ServiceDiscoveryUpdateBody) {
	log.Printf("session: service discovery update for channel %d", u.Channel.ChannelID)
}

// --- keepalive ---

func (s *Session) onPingTick() {
	if s.State() != StateActive {
		return
	}
	missed := s.missedPings.Add(1)
	if int(missed) > s.cfg.Protocol.MissedPingLimit {
		if s.observer != nil {
			s.observer.OnPingTimeout()
		}
		s.finish(fmt.Errorf("session: ping timeout after %d missed pings", missed))
		return
	}
	s.lastPingAt = time.Now()
	if err := s.control.SendPingRequest(s.lastPingAt.UnixMilli()); err != nil {
		log.Printf("session: ping request failed: %v", err)
	}
}

// Shutdown requests a graceful end of session (Scenario S6): send
// SHUTDOWN_REQUEST and wait for the phone's SHUTDOWN_RESPONSE round trip,
// force-tearing the connection if the grace period elapses first. Safe to
// call from any goroutine; the actual send happens on the event loop.
func (s *Session) Shutdown(reason aawire.ShutdownReason) {
	s.enqueue(func() {
		s.setState(StateShuttingDown)
		if err := s.control.SendShutdownRequest(reason); err != nil {
			log.Printf("session: shutdown request failed: %v", err)
			s.finish(err)
			return
		}
		s.armStateTimer(s.cfg.Protocol.ShutdownGrace())
	})
}

var _ messenger.Observer = (*Session)(nil)
var _ control.Observer = (*Session)(nil)
