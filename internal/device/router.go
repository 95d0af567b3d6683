package device

import (
	"errors"
	"fmt"

	"zigbee-fanswitch/internal/relay"
	"zigbee-fanswitch/internal/stack"
	"zigbee-fanswitch/internal/zcl"
)

// ErrUpstreamStatus is returned when an attribute-write indication carries
// an error status: the stack already failed the transaction, nothing is
// applied or retried here.
var ErrUpstreamStatus = errors.New("attribute write carried error status")

// HandleAttributeWrite validates one inbound attribute write and, for an
// accepted On/Off write, applies it to the relay and notifies the
// registered handler. Exactly one hardware transition and at most one
// handler invocation per accepted write; delivery reliability is the
// stack's problem.
func (d *Device) HandleAttributeWrite(w stack.AttributeWrite) error {
	if w.Status != zcl.StatusSuccess {
		d.logger.Warn("attribute write rejected upstream", "status", zcl.StatusName(w.Status))
		return fmt.Errorf("%w: %s", ErrUpstreamStatus, zcl.StatusName(w.Status))
	}

	d.logger.Info("attribute write",
		"endpoint", w.Endpoint,
		"cluster", fmt.Sprintf("0x%04X", w.ClusterID),
		"attribute", fmt.Sprintf("0x%04X", w.AttrID),
		"size", len(w.Value))

	// Other endpoints are reserved but unused.
	if w.Endpoint != d.endpointID {
		return nil
	}
	// Clusters and attributes we don't handle yet are ignored.
	if w.ClusterID != zcl.ClusterOnOff || w.AttrID != zcl.AttrOnOffOnOff || w.DataType != zcl.TypeBool {
		return nil
	}

	state := relay.State(zcl.DecodeBool(w.Value))
	d.logger.Info("On/Off command received", "state", state)

	d.relay.Set(state)
	if d.handler != nil {
		d.handler.HandleState(state)
	}

	d.events.Emit(Event{Type: EventStateChanged, Data: map[string]interface{}{
		"state":  state.String(),
		"origin": "remote",
	}})
	return nil
}
