package nightmode

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const gpioPollInterval = 1 * time.Second

// GPIO detects night mode from a sysfs GPIO line's value file. This reads
// the file with plain os.ReadFile rather than a GPIO library: the sysfs
// gpio interface is just a text file read, and none of the example repos'
// dependency set offers a Linux GPIO character-device binding, so stdlib
// is the only grounded option here (documented in DESIGN.md).
type GPIO struct {
	pin        int
	activeHigh bool
	onChange   func(isNight bool)
	basePath   string // overridden in tests; defaults to /sys/class/gpio

	mu      sync.Mutex
	current bool
	started bool
	cancel  context.CancelFunc
}

func NewGPIO(pin int, activeHigh bool, onChange func(isNight bool)) *GPIO {
	return &GPIO{pin: pin, activeHigh: activeHigh, onChange: onChange, basePath: "/sys/class/gpio"}
}

func (g *GPIO) IsNight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *GPIO) Start() {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.mu.Unlock()

	log.Printf("nightmode: gpio provider starting (pin=%d activeHigh=%v)", g.pin, g.activeHigh)
	if err := g.export(); err != nil {
		log.Printf("nightmode: failed to export gpio %d: %v — night mode stays %s", g.pin, err, modeLabel(g.IsNight()))
		return
	}
	g.poll()
	go g.loop(ctx)
}

func (g *GPIO) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	g.started = false
	g.unexport()
}

func (g *GPIO) loop(ctx context.Context) {
	ticker := time.NewTicker(gpioPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.poll()
		}
	}
}

func (g *GPIO) valuePath() string {
	return fmt.Sprintf("%s/gpio%d/value", g.basePath, g.pin)
}

func (g *GPIO) export() error {
	if _, err := os.Stat(g.valuePath()); err == nil {
		return nil
	}
	exportPath := g.basePath + "/export"
	return os.WriteFile(exportPath, []byte(fmt.Sprintf("%d", g.pin)), 0o200)
}

func (g *GPIO) unexport() {
	_ = os.WriteFile(g.basePath+"/unexport", []byte(fmt.Sprintf("%d", g.pin)), 0o200)
}

func (g *GPIO) poll() {
	raw, err := os.ReadFile(g.valuePath())
	if err != nil {
		log.Printf("nightmode: cannot read %s: %v", g.valuePath(), err)
		return
	}
	pinHigh := strings.TrimSpace(string(raw)) == "1"
	night := pinHigh
	if !g.activeHigh {
		night = !pinHigh
	}

	g.mu.Lock()
	changed := night != g.current
	g.current = night
	g.mu.Unlock()

	if changed {
		log.Printf("nightmode: pin %d -> %s", g.pin, modeLabel(night))
		if g.onChange != nil {
			g.onChange(night)
		}
	}
}
