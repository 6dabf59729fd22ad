package nightmode

import "github.com/openauto-hu/aahu/pkg/config"

// New builds the configured Provider, or nil if night mode is disabled.
func New(cfg config.NightModeConfig, onChange func(isNight bool)) Provider {
	switch cfg.Provider {
	case "timed":
		return NewTimed(cfg.DayStart, cfg.NightStart, onChange)
	case "gpio":
		return NewGPIO(cfg.GPIOPin, cfg.ActiveHigh, onChange)
	default:
		return nil
	}
}
