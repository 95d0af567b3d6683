// Package device is the application core of the fan switch: it routes
// inbound attribute writes to the relay, drives the commissioning state
// machine and keeps the protocol attribute store in sync with local state
// changes.
package device

import (
	"errors"
	"fmt"
	"log/slog"

	"zigbee-fanswitch/internal/relay"
	"zigbee-fanswitch/internal/stack"
	"zigbee-fanswitch/internal/store"
	"zigbee-fanswitch/internal/zcl"
)

// ErrSyncFailed is returned when a local state change could not be written
// into the protocol attribute store. The physical state is not rolled back;
// the attribute stays stale until the next successful write.
var ErrSyncFailed = errors.New("attribute sync failed")

// Device ties the relay to the mesh stack.
type Device struct {
	stack      stack.Stack
	relay      *relay.Relay
	events     *EventBus
	logger     *slog.Logger
	endpointID uint8
	ctrl       *Controller

	// Single notification slot; registered during init, before mesh
	// traffic begins.
	handler StateHandler
}

// New creates the device core and registers its handlers with the stack.
func New(st stack.Stack, r *relay.Relay, db store.Store, events *EventBus, endpointID uint8, logger *slog.Logger) *Device {
	d := &Device{
		stack:      st,
		relay:      r,
		events:     events,
		logger:     logger.With("component", "device"),
		endpointID: endpointID,
	}
	d.ctrl = NewController(st, db, events, logger)

	st.OnSignal(d.ctrl.HandleSignal)
	st.OnAttributeWrite(func(w stack.AttributeWrite) {
		// Errors are logged in the router; an indication has no reply path.
		_ = d.HandleAttributeWrite(w)
	})
	return d
}

// Relay returns the actuator port.
func (d *Device) Relay() *relay.Relay {
	return d.relay
}

// Events returns the event bus.
func (d *Device) Events() *EventBus {
	return d.events
}

// Commissioning returns the commissioning controller.
func (d *Device) Commissioning() *Controller {
	return d.ctrl
}

// SetStateHandler registers the remote-change notification handler,
// replacing any previous one.
func (d *Device) SetStateHandler(h StateHandler) {
	d.handler = h
}

// PushLocalState writes the actuator state into the protocol attribute
// store. Called when the actuator changed for a reason other than a remote
// write.
func (d *Device) PushLocalState(s relay.State) error {
	val, err := zcl.EncodeValue(zcl.TypeBool, bool(s))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	d.logger.Info("setting On/Off attribute", "state", s)
	status, err := d.stack.SetAttribute(d.endpointID, zcl.ClusterOnOff, zcl.AttrOnOffOnOff, zcl.TypeBool, val)
	if err != nil {
		d.logger.Error("push local state", "state", s, "err", err)
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	if status != zcl.StatusSuccess {
		d.logger.Error("push local state", "state", s, "status", zcl.StatusName(status))
		return fmt.Errorf("%w: status %s", ErrSyncFailed, zcl.StatusName(status))
	}

	d.events.Emit(Event{Type: EventStateChanged, Data: map[string]interface{}{
		"state":  s.String(),
		"origin": "local",
	}})
	return nil
}

// ApplyLocal sets the relay for a local-origin reason (button, API, rule)
// and pushes the new state into the attribute store.
func (d *Device) ApplyLocal(s relay.State) error {
	d.relay.Set(s)
	return d.PushLocalState(s)
}
