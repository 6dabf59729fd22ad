package protolog

import "log/slog"

// SlogAdapter bridges protocol Events into the application's structured
// operational logger, for development use where a separate log file is
// unnecessary.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps l. A nil l uses slog.Default().
func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &SlogAdapter{logger: l}
}

func (a *SlogAdapter) Log(e Event) {
	a.logger.Debug("frame",
		slog.String("dir", e.Direction.String()),
		slog.Int("channel", int(e.ChannelID)),
		slog.Int("message_id", int(e.MessageID)),
		slog.Int("size", e.Size),
		slog.String("preview", e.HexPreview),
	)
}

var _ Logger = (*SlogAdapter)(nil)
