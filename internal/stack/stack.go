// Package stack defines the interface to the Zigbee mesh stack running on
// the NCP radio module, and its serial-line implementation. The stack owns
// routing, security and the MAC layer; this process only receives signals
// and attribute-write indications from it and issues commissioning and
// attribute primitives.
package stack

import (
	"context"
	"fmt"
	"time"

	"zigbee-fanswitch/internal/endpoint"
)

// SignalType identifies an asynchronous stack signal.
type SignalType uint8

const (
	SignalStackReady       SignalType = 0x01
	SignalDeviceFirstStart SignalType = 0x02
	SignalDeviceReboot     SignalType = 0x03
	SignalSteeringResult   SignalType = 0x04
)

func (t SignalType) String() string {
	switch t {
	case SignalStackReady:
		return "stack_ready"
	case SignalDeviceFirstStart:
		return "device_first_start"
	case SignalDeviceReboot:
		return "device_reboot"
	case SignalSteeringResult:
		return "steering_result"
	default:
		return fmt.Sprintf("signal_0x%02X", uint8(t))
	}
}

// NetworkInfo is the identity of the joined network, carried by a
// successful steering result.
type NetworkInfo struct {
	PanID     uint16
	ExtPanID  [8]byte
	Channel   uint8
	ShortAddr uint16
}

// Signal is a network event delivered by the stack. Signals arrive
// serially; there is no concurrent signal delivery.
type Signal struct {
	Type       SignalType
	Status     uint8 // 0 = success
	FactoryNew bool
	Network    *NetworkInfo // set on successful steering results
}

// OK reports whether the signal carries a success status.
func (s Signal) OK() bool {
	return s.Status == 0
}

// AttributeWrite is an inbound attribute-write indication.
type AttributeWrite struct {
	Endpoint  uint8
	ClusterID uint16
	AttrID    uint16
	Status    uint8 // ZCL status the stack assigned the transaction
	DataType  uint8
	Value     []byte
}

// Stack is the mesh stack collaborator.
type Stack interface {
	// Start brings the stack up. The stack answers with a StackReady
	// signal once its main loop runs.
	Start(ctx context.Context) error

	// RegisterDevice hands the endpoint descriptor to the stack. Must be
	// called before Start; the descriptor is not mutated afterward.
	RegisterDevice(d *endpoint.Descriptor) error

	// StartSteering requests top-level network commissioning. The outcome
	// arrives later as a SteeringResult signal.
	StartSteering() error

	// ScheduleRetry runs fn once after delay. Fire-and-forget: there is no
	// handle to abort a scheduled retry.
	ScheduleRetry(delay time.Duration, fn func())

	// SetAttribute writes a value into the stack's attribute store,
	// bypassing access checks (the device owns its own attributes).
	// Returns the ZCL status the stack reported.
	SetAttribute(ep uint8, cluster, attr uint16, dataType uint8, value []byte) (uint8, error)

	// OnSignal registers the signal-delivery callback.
	OnSignal(handler func(Signal))

	// OnAttributeWrite registers the attribute-write notification callback.
	OnAttributeWrite(handler func(AttributeWrite))

	Close() error
}
