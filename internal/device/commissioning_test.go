package device

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"zigbee-fanswitch/internal/stack"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(fs *fakeStack) (*Controller, *memStore) {
	db := &memStore{}
	events := NewEventBus(testLogger())
	return NewController(fs, db, events, testLogger()), db
}

func TestCommissioningBootToJoined(t *testing.T) {
	fs := newFakeStack()
	c, db := newTestController(fs)

	if c.State() != StateUninitialized {
		t.Fatalf("initial state = %v", c.State())
	}

	c.HandleSignal(stack.Signal{Type: stack.SignalDeviceFirstStart, FactoryNew: true})
	if c.State() != StateJoining {
		t.Fatalf("after first start: state = %v", c.State())
	}
	if fs.steering() != 1 {
		t.Fatalf("steering calls = %d, want 1", fs.steering())
	}

	c.HandleSignal(stack.Signal{
		Type: stack.SignalSteeringResult,
		Network: &stack.NetworkInfo{
			PanID:     0x1A62,
			ExtPanID:  [8]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33},
			Channel:   15,
			ShortAddr: 0x4F21,
		},
	})
	if c.State() != StateJoined {
		t.Fatalf("after steering success: state = %v", c.State())
	}
	if c.Retries() != 0 {
		t.Fatalf("retries = %d, want 0", c.Retries())
	}

	ns, err := db.GetNetworkState()
	if err != nil {
		t.Fatalf("network state not persisted: %v", err)
	}
	if ns.PanID != 0x1A62 || ns.Channel != 15 || ns.ShortAddr != 0x4F21 || !ns.Joined {
		t.Fatalf("persisted state = %+v", ns)
	}
}

func TestCommissioningRebootAlreadyCommissioned(t *testing.T) {
	fs := newFakeStack()
	c, _ := newTestController(fs)

	c.HandleSignal(stack.Signal{Type: stack.SignalDeviceReboot, FactoryNew: false})
	if c.State() != StateJoined {
		t.Fatalf("state = %v, want joined", c.State())
	}
	if fs.steering() != 0 {
		t.Fatalf("steering calls = %d, want 0 (rejoin is handled by the stack)", fs.steering())
	}
}

func TestCommissioningStartupFailureRetries(t *testing.T) {
	fs := newFakeStack()
	c, _ := newTestController(fs)

	c.HandleSignal(stack.Signal{Type: stack.SignalDeviceFirstStart, Status: 0x01})
	if c.State() != StateJoinFailed {
		t.Fatalf("state = %v, want join_failed", c.State())
	}
	if c.Retries() != 1 {
		t.Fatalf("retries = %d, want 1", c.Retries())
	}
	delays := fs.delays()
	if len(delays) != 1 || delays[0] != 1000*time.Millisecond {
		t.Fatalf("retry delays = %v, want [1s]", delays)
	}

	// The retry fires and steering is requested.
	fs.fireRetry(0)
	if c.State() != StateJoining {
		t.Fatalf("after retry: state = %v", c.State())
	}
	if fs.steering() != 1 {
		t.Fatalf("steering calls = %d, want 1", fs.steering())
	}

	// That attempt fails too; the count keeps growing and the steering
	// delay applies.
	c.HandleSignal(stack.Signal{Type: stack.SignalSteeringResult, Status: 0x01})
	if c.Retries() != 2 {
		t.Fatalf("retries = %d, want 2", c.Retries())
	}
	delays = fs.delays()
	if len(delays) != 2 || delays[1] != 2000*time.Millisecond {
		t.Fatalf("retry delays = %v, want second of 2s", delays)
	}
}

func TestCommissioningRetryAfterJoinedIsNoop(t *testing.T) {
	fs := newFakeStack()
	c, _ := newTestController(fs)

	c.HandleSignal(stack.Signal{Type: stack.SignalDeviceFirstStart, FactoryNew: true})
	c.HandleSignal(stack.Signal{Type: stack.SignalSteeringResult, Status: 0x01})
	steerBefore := fs.steering()

	// The device joins before the scheduled retry fires.
	c.HandleSignal(stack.Signal{Type: stack.SignalSteeringResult})
	if c.State() != StateJoined {
		t.Fatalf("state = %v, want joined", c.State())
	}

	fs.fireRetry(0)
	if c.State() != StateJoined {
		t.Fatalf("late retry changed state to %v", c.State())
	}
	if fs.steering() != steerBefore {
		t.Fatalf("late retry requested steering again")
	}
}

func TestCommissioningSteeringRequestErrorCountsAsFailure(t *testing.T) {
	fs := newFakeStack()
	fs.steerErr = io.ErrClosedPipe
	c, _ := newTestController(fs)

	c.HandleSignal(stack.Signal{Type: stack.SignalStackReady})
	if c.State() != StateJoinFailed {
		t.Fatalf("state = %v, want join_failed", c.State())
	}
	if c.Retries() != 1 {
		t.Fatalf("retries = %d, want 1", c.Retries())
	}
	delays := fs.delays()
	if len(delays) != 1 || delays[0] != 2000*time.Millisecond {
		t.Fatalf("retry delays = %v, want [2s]", delays)
	}
}

func TestCommissioningUnhandledSignalIgnored(t *testing.T) {
	fs := newFakeStack()
	c, _ := newTestController(fs)

	c.HandleSignal(stack.Signal{Type: stack.SignalType(0x7F)})
	if c.State() != StateUninitialized {
		t.Fatalf("state = %v, want uninitialized", c.State())
	}
	if fs.steering() != 0 || len(fs.delays()) != 0 {
		t.Fatalf("unhandled signal triggered actions")
	}
}

func TestCommissioningEmitsStateEvents(t *testing.T) {
	fs := newFakeStack()
	db := &memStore{}
	events := NewEventBus(testLogger())

	var seen []string
	events.On(EventCommissioning, func(e Event) {
		data := e.Data.(map[string]interface{})
		seen = append(seen, data["state"].(string))
	})

	c := NewController(fs, db, events, testLogger())
	c.HandleSignal(stack.Signal{Type: stack.SignalDeviceFirstStart, FactoryNew: true})
	c.HandleSignal(stack.Signal{Type: stack.SignalSteeringResult})

	want := []string{"joining", "joined"}
	if len(seen) != len(want) {
		t.Fatalf("events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events = %v, want %v", seen, want)
		}
	}
}
