package session

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/openauto-hu/aahu/internal/aatransport"
	"github.com/openauto-hu/aahu/internal/aawire"
	"github.com/openauto-hu/aahu/internal/channels"
	"github.com/openauto-hu/aahu/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	transitions  []State
	pingTimeouts int
	errs         []error
}

func (f *fakeObserver) OnStateChanged(from, to State) { f.transitions = append(f.transitions, to) }
func (f *fakeObserver) OnPingTimeout()                { f.pingTimeouts++ }
func (f *fakeObserver) OnError(err error)             { f.errs = append(f.errs, err) }

func buildMessage(channelID uint8, messageID uint16, body []byte) []byte {
	payload := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(payload[0:2], messageID)
	copy(payload[2:], body)
	return aawire.SerialiseFrame(channelID, aawire.FrameTypeBulk, aawire.MessageTypeForChannel(channelID), aawire.EncryptionPlain, payload, 0)
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Protocol.PingIntervalMs = 50
	cfg.Protocol.MissedPingLimit = 2
	return cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestVersionMismatchEndsSession(t *testing.T) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	s, err := New(transport, fastConfig(), obs)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	waitFor(t, func() bool { return s.State() == StateVersionExchange })

	mismatch := aawire.EncodeVersionPayload(aawire.VersionPayload{Major: 99, Minor: 0, Status: aawire.VersionStatusMismatch})
	transport.Feed(buildMessage(0, uint16(aawire.VersionResponse), mismatch))

	waitFor(t, func() bool { return s.State() == StateDisconnected })
	require.NotEmpty(t, obs.errs)
}

func TestPingTimeoutDisconnects(t *testing.T) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	s, err := New(transport, fastConfig(), obs)
	require.NoError(t, err)

	// Force state to Active without running the full handshake, to
	// exercise the keepalive watchdog in isolation.
	s.setState(StateActive)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	waitFor(t, func() bool { return obs.pingTimeouts > 0 })
	waitFor(t, func() bool { return s.State() == StateDisconnected })
}

type stubHandler struct {
	channelID uint8
	opened    int
}

func (s *stubHandler) ChannelID() uint8 { return s.channelID }
func (s *stubHandler) OnChannelOpened() { s.opened++ }
func (s *stubHandler) OnChannelClosed() {}
func (s *stubHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {}

func TestChannelOpenRequestRespondsOK(t *testing.T) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	s, err := New(transport, fastConfig(), obs)
	require.NoError(t, err)
	handler := &stubHandler{channelID: aawire.ChannelVideo}
	s.SetHandlers(map[uint8]channels.Handler{aawire.ChannelVideo: handler})
	s.setState(StateActive)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	body, err := aawire.Marshal(aawire.ChannelOpenRequestBody{ChannelID: int32(aawire.ChannelVideo)})
	require.NoError(t, err)
	transport.Feed(buildMessage(0, uint16(aawire.ChannelOpenRequest), body))

	waitFor(t, func() bool { return len(transport.Sent) > 0 })
	assert.NotEmpty(t, transport.Sent)
	waitFor(t, func() bool { return handler.opened > 0 })
	assert.Equal(t, 1, handler.opened)
}

// Property 5: any non-zero, non-VersionStatusMismatch status is still a
// mismatch, not just the 0xffff sentinel.
func TestVersionResponseArbitraryNonZeroStatusIsMismatch(t *testing.T) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	s, err := New(transport, fastConfig(), obs)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	waitFor(t, func() bool { return s.State() == StateVersionExchange })

	resp := aawire.EncodeVersionPayload(aawire.VersionPayload{Major: 1, Minor: 7, Status: aawire.VersionStatus(0x0001)})
	transport.Feed(buildMessage(0, uint16(aawire.VersionResponse), resp))

	waitFor(t, func() bool { return s.State() == StateDisconnected })
	require.NotEmpty(t, obs.errs)
}

func TestVersionTimeoutDisconnects(t *testing.T) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	cfg := fastConfig()
	cfg.Protocol.VersionTimeoutMs = 50
	s, err := New(transport, cfg, obs)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	waitFor(t, func() bool { return s.State() == StateDisconnected })
	require.NotEmpty(t, obs.errs)
}

func TestShutdownRoundTripEndsSessionNormally(t *testing.T) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	s, err := New(transport, fastConfig(), obs)
	require.NoError(t, err)
	s.setState(StateActive)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Shutdown(aawire.ShutdownReasonQuit)
	waitFor(t, func() bool { return s.State() == StateShuttingDown })

	transport.Feed(buildMessage(0, uint16(aawire.ShutdownResponse), nil))

	waitFor(t, func() bool { return s.State() == StateDisconnected })
	assert.Empty(t, obs.errs)
}

func TestShutdownGracePeriodForceTearsWithoutResponse(t *testing.T) {
	transport := aatransport.NewReplayTransport()
	obs := &fakeObserver{}
	cfg := fastConfig()
	cfg.Protocol.ShutdownGraceMs = 50
	s, err := New(transport, cfg, obs)
	require.NoError(t, err)
	s.setState(StateActive)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Shutdown(aawire.ShutdownReasonQuit)
	waitFor(t, func() bool { return s.State() == StateShuttingDown })

	// No SHUTDOWN_RESPONSE is ever fed: the grace timer must force-tear.
	waitFor(t, func() bool { return s.State() == StateDisconnected })
	require.NotEmpty(t, obs.errs)
}
