package device

import (
	"errors"
	"testing"

	"zigbee-fanswitch/internal/gpio"
	"zigbee-fanswitch/internal/relay"
	"zigbee-fanswitch/internal/stack"
	"zigbee-fanswitch/internal/zcl"
)

const testEndpoint = 10

func newTestDevice(fs *fakeStack) (*Device, *gpio.MemLine) {
	line := gpio.NewMemLine()
	r := relay.New(line, relay.ActiveHigh, testLogger())
	if err := r.Init(); err != nil {
		panic(err)
	}
	events := NewEventBus(testLogger())
	return New(fs, r, &memStore{}, events, testEndpoint, testLogger()), line
}

func onOffWrite(value []byte) stack.AttributeWrite {
	return stack.AttributeWrite{
		Endpoint:  testEndpoint,
		ClusterID: zcl.ClusterOnOff,
		AttrID:    zcl.AttrOnOffOnOff,
		Status:    zcl.StatusSuccess,
		DataType:  zcl.TypeBool,
		Value:     value,
	}
}

func TestWriteTurnsRelayOnAndNotifies(t *testing.T) {
	fs := newFakeStack()
	d, line := newTestDevice(fs)

	var notified []relay.State
	d.SetStateHandler(StateHandlerFunc(func(s relay.State) {
		notified = append(notified, s)
	}))

	if err := d.HandleAttributeWrite(onOffWrite([]byte{0x01})); err != nil {
		t.Fatalf("HandleAttributeWrite: %v", err)
	}
	if d.Relay().Get() != relay.On {
		t.Fatalf("relay state = %v, want on", d.Relay().Get())
	}
	if !line.Level() {
		t.Fatalf("line level = low, want high for active-high on")
	}
	if len(notified) != 1 || notified[0] != relay.On {
		t.Fatalf("notifications = %v, want [ON]", notified)
	}
}

func TestWriteWithErrorStatusChangesNothing(t *testing.T) {
	fs := newFakeStack()
	d, line := newTestDevice(fs)

	var notified int
	d.SetStateHandler(StateHandlerFunc(func(relay.State) { notified++ }))
	transitionsBefore := len(line.History())

	w := onOffWrite([]byte{0x01})
	w.Status = zcl.StatusInvalidValue
	err := d.HandleAttributeWrite(w)
	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatalf("err = %v, want ErrUpstreamStatus", err)
	}
	if d.Relay().Get() != relay.Off {
		t.Fatalf("relay changed on rejected write")
	}
	if len(line.History()) != transitionsBefore {
		t.Fatalf("hardware transitioned on rejected write")
	}
	if notified != 0 {
		t.Fatalf("handler invoked on rejected write")
	}
}

func TestWriteEmptyValueMeansOff(t *testing.T) {
	fs := newFakeStack()
	d, _ := newTestDevice(fs)

	if err := d.HandleAttributeWrite(onOffWrite([]byte{0x01})); err != nil {
		t.Fatalf("turn on: %v", err)
	}
	if err := d.HandleAttributeWrite(onOffWrite(nil)); err != nil {
		t.Fatalf("empty value: %v", err)
	}
	if d.Relay().Get() != relay.Off {
		t.Fatalf("relay state = %v, want off for empty value", d.Relay().Get())
	}
}

func TestWriteIgnoresOtherTargets(t *testing.T) {
	fs := newFakeStack()
	d, line := newTestDevice(fs)
	transitionsBefore := len(line.History())

	cases := []struct {
		name string
		mod  func(*stack.AttributeWrite)
	}{
		{"other endpoint", func(w *stack.AttributeWrite) { w.Endpoint = 2 }},
		{"other cluster", func(w *stack.AttributeWrite) { w.ClusterID = zcl.ClusterIdentify }},
		{"other attribute", func(w *stack.AttributeWrite) { w.AttrID = 0x4000 }},
		{"wrong data type", func(w *stack.AttributeWrite) { w.DataType = zcl.TypeUint8 }},
	}
	for _, tc := range cases {
		w := onOffWrite([]byte{0x01})
		tc.mod(&w)
		if err := d.HandleAttributeWrite(w); err != nil {
			t.Fatalf("%s: err = %v, want nil", tc.name, err)
		}
	}
	if len(line.History()) != transitionsBefore {
		t.Fatalf("ignored writes drove the hardware")
	}
}

func TestPushLocalStateSetsAttribute(t *testing.T) {
	fs := newFakeStack()
	d, _ := newTestDevice(fs)

	if err := d.PushLocalState(relay.On); err != nil {
		t.Fatalf("PushLocalState: %v", err)
	}
	calls := fs.attrCalls()
	if len(calls) != 1 {
		t.Fatalf("attribute sets = %d, want 1", len(calls))
	}
	c := calls[0]
	if c.endpoint != testEndpoint || c.cluster != zcl.ClusterOnOff || c.attr != zcl.AttrOnOffOnOff {
		t.Fatalf("wrong target: %+v", c)
	}
	if c.dataType != zcl.TypeBool || len(c.value) != 1 || c.value[0] != 0x01 {
		t.Fatalf("wrong payload: type 0x%02X value %v", c.dataType, c.value)
	}
}

func TestPushLocalStateRepeatsArePushedAgain(t *testing.T) {
	fs := newFakeStack()
	d, _ := newTestDevice(fs)

	if err := d.PushLocalState(relay.Off); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := d.PushLocalState(relay.Off); err != nil {
		t.Fatalf("second push: %v", err)
	}
	if len(fs.attrCalls()) != 2 {
		t.Fatalf("attribute sets = %d, want 2", len(fs.attrCalls()))
	}
}

func TestPushLocalStateFailureKeepsRelayState(t *testing.T) {
	fs := newFakeStack()
	fs.setAttrStatus = zcl.StatusFailure
	d, _ := newTestDevice(fs)

	if err := d.ApplyLocal(relay.On); !errors.Is(err, ErrSyncFailed) {
		t.Fatalf("err = %v, want ErrSyncFailed", err)
	}
	// No rollback: the physical state keeps the local intent.
	if d.Relay().Get() != relay.On {
		t.Fatalf("relay rolled back after sync failure")
	}
}

func TestApplyLocalDrivesRelayAndAttribute(t *testing.T) {
	fs := newFakeStack()
	d, line := newTestDevice(fs)

	if err := d.ApplyLocal(relay.On); err != nil {
		t.Fatalf("ApplyLocal: %v", err)
	}
	if !line.Level() {
		t.Fatalf("line not driven high")
	}
	if len(fs.attrCalls()) != 1 {
		t.Fatalf("attribute sets = %d, want 1", len(fs.attrCalls()))
	}
}

func TestBootJoinAndRemoteWrite(t *testing.T) {
	fs := newFakeStack()
	d, line := newTestDevice(fs)

	var notified []relay.State
	d.SetStateHandler(StateHandlerFunc(func(s relay.State) {
		notified = append(notified, s)
	}))

	// Boot: stack comes up, steering is requested and succeeds.
	fs.onSignal(stack.Signal{Type: stack.SignalStackReady})
	if fs.steering() != 1 {
		t.Fatalf("steering calls = %d, want 1", fs.steering())
	}
	fs.onSignal(stack.Signal{
		Type:    stack.SignalSteeringResult,
		Network: &stack.NetworkInfo{PanID: 0x1A62, Channel: 15, ShortAddr: 0x4F21},
	})
	if d.Commissioning().State() != StateJoined {
		t.Fatalf("state = %v, want joined", d.Commissioning().State())
	}

	// A coordinator write turns the fan on.
	fs.onWrite(onOffWrite([]byte{0x01}))
	if d.Relay().Get() != relay.On || !line.Level() {
		t.Fatalf("relay = %v level %v, want on/high", d.Relay().Get(), line.Level())
	}
	if len(notified) != 1 || notified[0] != relay.On {
		t.Fatalf("notifications = %v, want [ON]", notified)
	}
}

func TestIndicationsAreWiredThroughStack(t *testing.T) {
	fs := newFakeStack()
	d, _ := newTestDevice(fs)

	if fs.onSignal == nil || fs.onWrite == nil {
		t.Fatalf("handlers not registered with the stack")
	}

	fs.onSignal(stack.Signal{Type: stack.SignalDeviceFirstStart, FactoryNew: true})
	if d.Commissioning().State() != StateJoining {
		t.Fatalf("signal not routed to commissioning controller")
	}

	fs.onWrite(onOffWrite([]byte{0x01}))
	if d.Relay().Get() != relay.On {
		t.Fatalf("attribute write not routed to relay")
	}
}
