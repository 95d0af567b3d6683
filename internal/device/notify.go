package device

import "zigbee-fanswitch/internal/relay"

// StateHandler is notified with the new actuator state whenever a
// remote-origin attribute write is accepted. One slot exists; registering a
// new handler replaces the previous one.
type StateHandler interface {
	HandleState(s relay.State)
}

// StateHandlerFunc adapts a plain function to StateHandler.
type StateHandlerFunc func(relay.State)

func (f StateHandlerFunc) HandleState(s relay.State) {
	f(s)
}
