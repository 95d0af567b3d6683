//go:build !no_mqtt

package mqtt

import (
	"strings"

	"zigbee-fanswitch/internal/relay"
)

// ParseCommand maps a set-topic payload to a target state. TOGGLE resolves
// against the current state. Unknown payloads are rejected.
func ParseCommand(payload []byte, current relay.State) (relay.State, bool) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case "ON", "1", "TRUE":
		return relay.On, true
	case "OFF", "0", "FALSE":
		return relay.Off, true
	case "TOGGLE":
		return !current, true
	default:
		return relay.Off, false
	}
}
