package nightmode

import (
	"context"
	"log"
	"sync"
	"time"
)

// Timed detects night mode from a wall-clock day/night schedule, polling
// once a minute. Handles both the normal case (day starts before night,
// e.g. day=07:00/night=19:00) and the inverted case (night starts before
// day, e.g. night=02:00/day=10:00 for a very late dayStart).
type Timed struct {
	dayStart   time.Duration // minutes-since-midnight, as a duration
	nightStart time.Duration

	onChange func(isNight bool)
	now      func() time.Time

	mu      sync.Mutex
	current bool
	started bool
	cancel  context.CancelFunc
}

const timedPollInterval = 60 * time.Second

// NewTimed builds a Timed provider from "HH:mm" schedule strings. Invalid
// strings fall back to 07:00/19:00, matching the reference implementation.
func NewTimed(dayStart, nightStart string, onChange func(isNight bool)) *Timed {
	day, err := parseHHMM(dayStart)
	if err != nil {
		log.Printf("nightmode: invalid day_start %q, defaulting to 07:00", dayStart)
		day = 7 * time.Hour
	}
	night, err := parseHHMM(nightStart)
	if err != nil {
		log.Printf("nightmode: invalid night_start %q, defaulting to 19:00", nightStart)
		night = 19 * time.Hour
	}
	return &Timed{dayStart: day, nightStart: night, onChange: onChange, now: time.Now}
}

func parseHHMM(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (t *Timed) IsNight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Timed) Start() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	log.Printf("nightmode: timed provider starting (day=%s night=%s)", t.dayStart, t.nightStart)
	t.evaluate()
	go t.loop(ctx)
}

func (t *Timed) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.started = false
}

func (t *Timed) loop(ctx context.Context) {
	ticker := time.NewTicker(timedPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.evaluate()
		}
	}
}

func (t *Timed) evaluate() {
	n := t.now()
	tod := time.Duration(n.Hour())*time.Hour + time.Duration(n.Minute())*time.Minute

	var night bool
	if t.nightStart > t.dayStart {
		// Normal case: daytime is [dayStart, nightStart).
		night = !(tod >= t.dayStart && tod < t.nightStart)
	} else {
		// Inverted case: night is [nightStart, dayStart).
		night = tod >= t.nightStart && tod < t.dayStart
	}

	t.mu.Lock()
	changed := night != t.current
	t.current = night
	t.mu.Unlock()

	if changed {
		log.Printf("nightmode: mode changed to %s", modeLabel(night))
		if t.onChange != nil {
			t.onChange(night)
		}
	}
}

func modeLabel(night bool) string {
	if night {
		return "NIGHT"
	}
	return "DAY"
}
