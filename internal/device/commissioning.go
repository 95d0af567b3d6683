package device

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zigbee-fanswitch/internal/stack"
	"zigbee-fanswitch/internal/store"
)

// State is the commissioning state of the device.
type State uint8

const (
	StateUninitialized State = iota
	StateJoining
	StateJoined
	StateJoinFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateJoinFailed:
		return "join_failed"
	default:
		return "unknown"
	}
}

// Retry delays. Fixed rather than exponential: the NCP's MAC layer already
// backs off its channel scans, this controller only avoids busy-looping the
// top-level commissioning request.
const (
	startupRetryDelay  = 1000 * time.Millisecond
	steeringRetryDelay = 2000 * time.Millisecond
)

// Controller owns the join/retry policy. Signals are processed one at a
// time; the mutex exists because diagnostics surfaces read the state from
// other goroutines and because a scheduled retry fires on a timer
// goroutine.
type Controller struct {
	stack  stack.Stack
	store  store.Store
	events *EventBus
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	retries int
}

// NewController creates a controller in the Uninitialized state.
func NewController(st stack.Stack, db store.Store, events *EventBus, logger *slog.Logger) *Controller {
	return &Controller{
		stack:  st,
		store:  db,
		events: events,
		logger: logger.With("component", "commissioning"),
	}
}

// State returns the current commissioning state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NetworkState returns the persisted network record, or store.ErrNotFound
// when the device never joined.
func (c *Controller) NetworkState() (*store.NetworkState, error) {
	return c.store.GetNetworkState()
}

// Retries returns the number of failed join attempts so far.
func (c *Controller) Retries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retries
}

// HandleSignal processes one stack signal and performs the resulting
// transition.
func (c *Controller) HandleSignal(sig stack.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch sig.Type {
	case stack.SignalStackReady:
		if c.state != StateUninitialized {
			c.logger.Debug("stack ready in state", "state", c.state)
			return
		}
		c.logger.Info("stack initialized, starting network steering")
		c.steerLocked()

	case stack.SignalDeviceFirstStart, stack.SignalDeviceReboot:
		if !sig.OK() {
			c.logger.Warn("device startup failed, retrying",
				"status", fmt.Sprintf("0x%02X", sig.Status), "delay", startupRetryDelay)
			c.failLocked(startupRetryDelay)
			return
		}
		mode := "non factory-reset"
		if sig.Type == stack.SignalDeviceFirstStart {
			mode = "factory-reset"
		}
		c.logger.Info("device started", "mode", mode)
		if sig.FactoryNew {
			c.logger.Info("start network steering (searching for coordinator)")
			c.steerLocked()
		} else {
			// Rejoin of the stored network is handled by the stack itself.
			c.logger.Info("device already commissioned, rejoining network")
			c.joinedLocked(sig.Network)
		}

	case stack.SignalSteeringResult:
		if sig.OK() {
			c.logger.Info("joined network successfully")
			c.joinedLocked(sig.Network)
		} else {
			c.logger.Warn("network steering failed, retrying",
				"status", fmt.Sprintf("0x%02X", sig.Status), "delay", steeringRetryDelay)
			c.failLocked(steeringRetryDelay)
		}

	default:
		c.logger.Debug("unhandled signal", "type", sig.Type,
			"status", fmt.Sprintf("0x%02X", sig.Status))
	}
}

// steerLocked requests network steering and moves to Joining.
func (c *Controller) steerLocked() {
	c.setStateLocked(StateJoining)
	if err := c.stack.StartSteering(); err != nil {
		c.logger.Error("steering request failed", "err", err)
		c.failLocked(steeringRetryDelay)
	}
}

// failLocked records a failed attempt and schedules the next one.
func (c *Controller) failLocked(delay time.Duration) {
	c.retries++
	c.setStateLocked(StateJoinFailed)
	c.stack.ScheduleRetry(delay, c.retrySteering)
}

// retrySteering fires from the retry timer. A retry that lands after the
// device already joined must be harmless.
func (c *Controller) retrySteering() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateJoined {
		c.logger.Debug("steering retry after join, ignoring")
		return
	}
	c.steerLocked()
}

// joinedLocked enters Joined, logs the network identity and persists it.
func (c *Controller) joinedLocked(ni *stack.NetworkInfo) {
	c.retries = 0
	c.setStateLocked(StateJoined)

	if ni == nil {
		return
	}
	extPan := fmt.Sprintf("%X", ni.ExtPanID)
	c.logger.Info("network identity",
		"pan_id", fmt.Sprintf("0x%04X", ni.PanID),
		"ext_pan_id", extPan,
		"channel", ni.Channel,
		"short_addr", fmt.Sprintf("0x%04X", ni.ShortAddr))

	if err := c.store.SaveNetworkState(&store.NetworkState{
		PanID:     ni.PanID,
		ExtPanID:  extPan,
		Channel:   ni.Channel,
		ShortAddr: ni.ShortAddr,
		Joined:    true,
		JoinedAt:  time.Now().UTC(),
	}); err != nil {
		c.logger.Error("save network state", "err", err)
	}

	c.events.Emit(Event{Type: EventNetworkJoined, Data: map[string]interface{}{
		"pan_id":     fmt.Sprintf("0x%04X", ni.PanID),
		"ext_pan_id": extPan,
		"channel":    ni.Channel,
		"short_addr": fmt.Sprintf("0x%04X", ni.ShortAddr),
	}})
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.events.Emit(Event{Type: EventCommissioning, Data: map[string]interface{}{
		"state":   s.String(),
		"retries": c.retries,
	}})
}
