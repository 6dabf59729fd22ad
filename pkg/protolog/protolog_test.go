package protolog

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventTruncatesPreview(t *testing.T) {
	body := make([]byte, 64)
	for i := range body {
		body[i] = byte(i)
	}
	e := NewEvent("conn-1", DirectionSend, 3, 0x0008, body, time.Unix(0, 0))
	assert.Equal(t, 64, e.Size)
	assert.Len(t, e.HexPreview, hexPreviewLen*2)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", e.HexPreview)
}

func TestFileLoggerJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, err := NewFileLogger(path, FormatJSONL)
	require.NoError(t, err)

	l.Log(NewEvent("conn-1", DirectionReceive, 0, 0x0001, []byte{0x00, 0x01}, time.Now()))
	l.Log(NewEvent("conn-1", DirectionSend, 3, 0x0008, []byte{0x00, 0x00}, time.Now()))
	require.NoError(t, l.Close())

	// Log after Close is ignored, not an error.
	l.Log(NewEvent("conn-1", DirectionSend, 1, 1, nil, time.Now()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines int
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	l, err := NewFileLogger(path, FormatJSONL)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

type recordingLogger struct{ events []Event }

func (r *recordingLogger) Log(e Event) { r.events = append(r.events, e) }

func TestMultiLoggerFansOut(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	m := NewMultiLogger(a, b)

	ev := NewEvent("conn-1", DirectionSend, 0, 1, nil, time.Now())
	m.Log(ev)

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, ev, a.events[0])
}
