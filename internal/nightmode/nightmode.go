// Package nightmode provides day/night detection for the NIGHT_DATA
// sensor, either from a wall-clock schedule or a GPIO dimmer line.
package nightmode

// Provider detects day/night transitions and reports them, once per
// transition, to a callback — never on every poll tick.
type Provider interface {
	Start()
	Stop()
	IsNight() bool
}
