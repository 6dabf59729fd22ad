package aatransport

import (
	"context"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

const (
	watchdogInterval    = 2 * time.Second
	watchdogBackoffMax  = 3
	watchdogRetransMax  = 4
)

// Watchdog polls TCP_INFO on the underlying socket every 2s from Start
// until Stop or ctx cancellation, whatever the session's state. A phone roaming off Wi-Fi can leave a TCP socket in a
// half-open state for tens of seconds before either a read times out or
// the protocol-level ping notices; TCP_INFO surfaces kernel-level distress
// (retransmission backoff, a socket that silently left ESTABLISHED) well
// before that.
type Watchdog struct {
	conn  *net.TCPConn
	onBad func(reason string)

	cancel context.CancelFunc
}

// NewWatchdog builds a watchdog for conn. onBad is invoked at most once,
// from the watchdog's own goroutine, the first time a check fails.
func NewWatchdog(conn *net.TCPConn, onBad func(reason string)) *Watchdog {
	return &Watchdog{conn: conn, onBad: onBad}
}

// Start begins polling. Cancelling ctx or calling Stop ends the loop.
func (w *Watchdog) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(ctx)
}

// Stop ends the polling loop. Safe to call even if Start was never called.
func (w *Watchdog) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watchdog) loop(ctx context.Context) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reason, bad := w.check(); bad {
				w.onBad(reason)
				return
			}
		}
	}
}

func (w *Watchdog) check() (string, bool) {
	rawConn, err := w.conn.SyscallConn()
	if err != nil {
		return "", false
	}

	var info *unix.TCPInfo
	var sockErr error
	ctrlErr := rawConn.Control(func(fd uintptr) {
		info, sockErr = unix.GetsockoptTCPInfo(int(fd), unix.IPPROTO_TCP, unix.TCP_INFO)
	})
	if ctrlErr != nil || sockErr != nil || info == nil {
		return "", false
	}

	if info.State != unix.TCP_ESTABLISHED {
		return "socket left ESTABLISHED", true
	}
	if info.Backoff >= watchdogBackoffMax {
		return "retransmission backoff exceeded threshold", true
	}
	if info.Retransmits > watchdogRetransMax {
		return "retransmit count exceeded threshold", true
	}
	return "", false
}
