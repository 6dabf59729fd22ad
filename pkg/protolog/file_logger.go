package protolog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Format selects the on-disk encoding FileLogger uses.
type Format int

const (
	// FormatJSONL writes one JSON object per line.
	FormatJSONL Format = iota
	// FormatTSV writes one tab-separated line per event.
	FormatTSV
)

// FileLogger writes protocol events to a file, one line per event. It is
// safe for concurrent use from multiple goroutines.
type FileLogger struct {
	file   *os.File
	format Format

	mu     sync.Mutex
	closed bool
}

// NewFileLogger creates a FileLogger writing to path. If the file exists,
// events are appended. The file is created with permissions 0644 if it
// doesn't exist.
func NewFileLogger(path string, format Format) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f, format: format}, nil
}

// Log writes one line for event. Encoding errors are swallowed — protocol
// logging should never disrupt the session it is observing.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	var line string
	switch l.format {
	case FormatTSV:
		line = fmt.Sprintf("%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			event.ConnectionID, event.Direction, event.ChannelID, event.MessageID, event.Size, event.HexPreview)
	default:
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		line = string(b) + "\n"
	}

	_, _ = l.file.WriteString(line)
}

// Close closes the underlying file. Safe to call more than once; calls to
// Log after Close are silently ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
