// Package channels implements the per-logical-channel handlers: one per
// channel kind, each encapsulating setup/start/stop, media ACK flow
// control, focus negotiation, and sensor updates.
package channels

// Sender is the subset of Messenger handlers need to emit messages.
type Sender interface {
	SendMessage(channelID uint8, messageID uint16, body []byte) error
}

// Handler is the common contract every channel handler satisfies.
// OnChannelOpened always precedes any OnMessage delivery; OnChannelClosed
// terminates it.
type Handler interface {
	ChannelID() uint8
	OnChannelOpened()
	OnChannelClosed()
	OnMessage(messageID uint16, body []byte, dataOffset int)
}

// AVHandler narrows Handler for the four media-carrying channels (Video
// and the three Audio classes). Session routes AV_MEDIA_WITH_TIMESTAMP
// and AV_MEDIA_INDICATION here instead of through OnMessage.
type AVHandler interface {
	Handler
	OnMediaData(body []byte, timestamp uint64)
	CanAcceptMedia() bool
}
