// Package relay drives the mains relay that switches the fan.
package relay

import (
	"fmt"
	"log/slog"

	"zigbee-fanswitch/internal/gpio"
)

// State is the logical actuator state.
type State bool

const (
	Off State = false
	On  State = true
)

func (s State) String() string {
	if s == On {
		return "ON"
	}
	return "OFF"
}

// Polarity fixes how State maps to the physical line level.
type Polarity uint8

const (
	ActiveHigh Polarity = iota // high level energizes the relay
	ActiveLow                  // low level energizes the relay
)

func (p Polarity) String() string {
	if p == ActiveLow {
		return "active-low"
	}
	return "active-high"
}

// Relay is the typed on/off actuator port. It caches the last commanded
// state; the physical level is assumed to match the last Set call.
type Relay struct {
	line     gpio.Line
	polarity Polarity
	state    State
	logger   *slog.Logger
}

// New creates a relay on the given line. Call Init before use.
func New(line gpio.Line, polarity Polarity, logger *slog.Logger) *Relay {
	return &Relay{
		line:     line,
		polarity: polarity,
		logger:   logger.With("component", "relay"),
	}
}

// Init configures the output line and forces the relay off, regardless of
// whatever level the line held before. The fan must never resume running
// after a reset on its own.
func (r *Relay) Init() error {
	if err := r.line.ConfigureOutput(); err != nil {
		return fmt.Errorf("configure relay line: %w", err)
	}
	r.state = Off
	if err := r.line.Set(r.level(Off)); err != nil {
		return fmt.Errorf("drive relay off: %w", err)
	}
	r.logger.Info("relay initialized", "polarity", r.polarity, "state", Off)
	return nil
}

// Set applies the state to the line. The level is always re-asserted,
// even when the state is unchanged.
func (r *Relay) Set(s State) {
	level := r.level(s)
	if err := r.line.Set(level); err != nil {
		// The line already passed Init; a failure here is logged, the
		// cached state keeps tracking the command.
		r.logger.Error("set relay line", "state", s, "err", err)
	}
	r.state = s
	r.logger.Info("relay set", "state", s, "level", level)
}

// Toggle inverts the cached state.
func (r *Relay) Toggle() {
	r.Set(!r.state)
}

// Get returns the last commanded state.
func (r *Relay) Get() State {
	return r.state
}

// level computes the physical line level for a state under the configured
// polarity: on XOR active-low.
func (r *Relay) level(s State) bool {
	return bool(s) != (r.polarity == ActiveLow)
}
