package device

import (
	"context"
	"sync"
	"time"

	"zigbee-fanswitch/internal/endpoint"
	"zigbee-fanswitch/internal/stack"
	"zigbee-fanswitch/internal/store"
)

// fakeStack records requests and lets tests fire scheduled retries and
// indications by hand.
type fakeStack struct {
	mu            sync.Mutex
	steerCalls    int
	steerErr      error
	retryDelays   []time.Duration
	retryFns      []func()
	setAttrCalls  []setAttrCall
	setAttrStatus uint8
	setAttrErr    error

	onSignal func(stack.Signal)
	onWrite  func(stack.AttributeWrite)
}

type setAttrCall struct {
	endpoint uint8
	cluster  uint16
	attr     uint16
	dataType uint8
	value    []byte
}

func newFakeStack() *fakeStack {
	return &fakeStack{}
}

func (f *fakeStack) Start(ctx context.Context) error { return nil }

func (f *fakeStack) RegisterDevice(d *endpoint.Descriptor) error { return nil }

func (f *fakeStack) StartSteering() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steerCalls++
	return f.steerErr
}

func (f *fakeStack) ScheduleRetry(delay time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retryDelays = append(f.retryDelays, delay)
	f.retryFns = append(f.retryFns, fn)
}

func (f *fakeStack) SetAttribute(ep uint8, cluster, attr uint16, dataType uint8, value []byte) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setAttrCalls = append(f.setAttrCalls, setAttrCall{
		endpoint: ep,
		cluster:  cluster,
		attr:     attr,
		dataType: dataType,
		value:    append([]byte(nil), value...),
	})
	return f.setAttrStatus, f.setAttrErr
}

func (f *fakeStack) OnSignal(fn func(stack.Signal)) { f.onSignal = fn }

func (f *fakeStack) OnAttributeWrite(fn func(stack.AttributeWrite)) { f.onWrite = fn }

func (f *fakeStack) Close() error { return nil }

// fireRetry runs the i-th scheduled retry callback, simulating the timer.
func (f *fakeStack) fireRetry(i int) {
	f.mu.Lock()
	fn := f.retryFns[i]
	f.mu.Unlock()
	fn()
}

func (f *fakeStack) steering() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steerCalls
}

func (f *fakeStack) delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.retryDelays...)
}

func (f *fakeStack) attrCalls() []setAttrCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]setAttrCall(nil), f.setAttrCalls...)
}

// memStore is an in-memory Store for tests.
type memStore struct {
	mu    sync.Mutex
	state *store.NetworkState
}

func (m *memStore) SaveNetworkState(s *store.NetworkState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}

func (m *memStore) GetNetworkState() (*store.NetworkState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, store.ErrNotFound
	}
	return m.state, nil
}

func (m *memStore) ClearNetworkState() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}

func (m *memStore) Close() error { return nil }
