package stack

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"

	"zigbee-fanswitch/internal/endpoint"
)

const respTimeout = 3 * time.Second

var errBadFrame = errors.New("bad frame")

// SerialStack talks to the Zigbee NCP module over a serial line. Requests
// are synchronous with a single outstanding command; indications are
// dispatched serially from the reader goroutine.
type SerialStack struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
	logger *slog.Logger

	writeMu sync.Mutex // serializes request/response pairs
	respCh  chan frame

	handlerMu sync.RWMutex
	onSignal  func(Signal)
	onWrite   func(AttributeWrite)

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSerial opens the NCP serial port and starts the reader.
func NewSerial(portName string, baud int, logger *slog.Logger) (*SerialStack, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("stack: open %s: %w", portName, err)
	}

	// USB CDC ACM: assert DTR/RTS for the NCP firmware.
	_ = port.SetDTR(true)
	_ = port.SetRTS(true)

	return newSerialStack(port, logger), nil
}

// newSerialStack wires a stack onto an already-open transport. Split from
// NewSerial so tests can drive it over an in-memory pipe.
func newSerialStack(port io.ReadWriteCloser, logger *slog.Logger) *SerialStack {
	s := &SerialStack{
		port:   port,
		reader: bufio.NewReader(port),
		logger: logger.With("component", "stack"),
		respCh: make(chan frame, 1),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.readLoop()
	return s
}

func (s *SerialStack) OnSignal(handler func(Signal)) {
	s.handlerMu.Lock()
	s.onSignal = handler
	s.handlerMu.Unlock()
}

func (s *SerialStack) OnAttributeWrite(handler func(AttributeWrite)) {
	s.handlerMu.Lock()
	s.onWrite = handler
	s.handlerMu.Unlock()
}

// Start asks the NCP to start the stack main loop. The NCP answers with a
// StackReady signal once commissioning can begin.
func (s *SerialStack) Start(ctx context.Context) error {
	if _, err := s.request(ctx, cmdStartStack, nil); err != nil {
		return fmt.Errorf("start stack: %w", err)
	}
	s.logger.Info("stack started")
	return nil
}

// RegisterDevice sends the encoded endpoint descriptor to the NCP.
func (s *SerialStack) RegisterDevice(d *endpoint.Descriptor) error {
	payload, err := d.Encode()
	if err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	if _, err := s.request(context.Background(), cmdRegisterEndpoint, payload); err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	s.logger.Info("endpoint registered", "endpoint", d.Endpoint)
	return nil
}

// StartSteering requests top-level network commissioning. The result
// arrives asynchronously as a SteeringResult signal.
func (s *SerialStack) StartSteering() error {
	if _, err := s.request(context.Background(), cmdStartSteering, nil); err != nil {
		return fmt.Errorf("start steering: %w", err)
	}
	return nil
}

// ScheduleRetry fires fn once after delay on a timer goroutine.
func (s *SerialStack) ScheduleRetry(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}

// SetAttribute writes into the NCP attribute store, bypassing access
// checks, and returns the ZCL status the NCP reported.
func (s *SerialStack) SetAttribute(ep uint8, cluster, attr uint16, dataType uint8, value []byte) (uint8, error) {
	payload := make([]byte, 0, len(value)+7)
	payload = append(payload, ep)
	payload = binary.LittleEndian.AppendUint16(payload, cluster)
	payload = binary.LittleEndian.AppendUint16(payload, attr)
	payload = append(payload, dataType, byte(len(value)))
	payload = append(payload, value...)

	resp, err := s.request(context.Background(), cmdSetAttribute, payload)
	if err != nil {
		return 0, fmt.Errorf("set attribute: %w", err)
	}
	return resp[1], nil
}

func (s *SerialStack) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.port.Close()
		s.wg.Wait()
	})
	return err
}

// request sends one frame and waits for its status response. The response
// payload is [request cmd, status]; a non-matching echo is rejected.
func (s *SerialStack) request(ctx context.Context, cmd uint8, payload []byte) ([]byte, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Drain a stale response from a timed-out predecessor.
	select {
	case <-s.respCh:
	default:
	}

	if err := writeFrame(s.port, frame{cmd: cmd, payload: payload}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(respTimeout)
	defer timer.Stop()
	select {
	case resp := <-s.respCh:
		if len(resp.payload) < 2 {
			return nil, fmt.Errorf("cmd 0x%02X: short response", cmd)
		}
		if resp.payload[0] != cmd {
			return nil, fmt.Errorf("cmd 0x%02X: response for 0x%02X", cmd, resp.payload[0])
		}
		if resp.payload[1] != 0 && cmd != cmdSetAttribute {
			return nil, fmt.Errorf("cmd 0x%02X: NCP status 0x%02X", cmd, resp.payload[1])
		}
		return resp.payload, nil
	case <-timer.C:
		return nil, fmt.Errorf("cmd 0x%02X: response timeout", cmd)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, errors.New("stack closed")
	}
}

func (s *SerialStack) readLoop() {
	defer s.wg.Done()
	for {
		f, err := readFrame(s.reader)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, errBadFrame) {
				s.logger.Warn("dropping corrupt frame", "err", err)
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Warn("NCP stream closed")
				return
			}
			s.logger.Error("read frame", "err", err)
			return
		}
		s.dispatch(f)
	}
}

func (s *SerialStack) dispatch(f frame) {
	switch f.cmd {
	case cmdStatus:
		select {
		case s.respCh <- f:
		default:
			s.logger.Warn("unexpected status response dropped")
		}

	case cmdSignalInd:
		sig, err := parseSignal(f.payload)
		if err != nil {
			s.logger.Warn("malformed signal indication", "err", err)
			return
		}
		s.handlerMu.RLock()
		handler := s.onSignal
		s.handlerMu.RUnlock()
		if handler != nil {
			handler(sig)
		}

	case cmdAttrWriteInd:
		w, err := parseAttrWrite(f.payload)
		if err != nil {
			s.logger.Warn("malformed attribute write indication", "err", err)
			return
		}
		s.handlerMu.RLock()
		handler := s.onWrite
		s.handlerMu.RUnlock()
		if handler != nil {
			handler(w)
		}

	default:
		s.logger.Debug("unhandled frame", "cmd", fmt.Sprintf("0x%02X", f.cmd))
	}
}

// parseSignal decodes a signal indication:
// type, status, flags, then optionally PAN id (LE), extended PAN id,
// channel and short address for successful steering results.
func parseSignal(p []byte) (Signal, error) {
	if len(p) < 3 {
		return Signal{}, fmt.Errorf("signal payload %d bytes", len(p))
	}
	sig := Signal{
		Type:       SignalType(p[0]),
		Status:     p[1],
		FactoryNew: p[2]&0x01 != 0,
	}
	if len(p) >= 16 {
		ni := &NetworkInfo{
			PanID: binary.LittleEndian.Uint16(p[3:5]),
		}
		copy(ni.ExtPanID[:], p[5:13])
		ni.Channel = p[13]
		ni.ShortAddr = binary.LittleEndian.Uint16(p[14:16])
		sig.Network = ni
	}
	return sig, nil
}

// parseAttrWrite decodes an attribute-write indication:
// endpoint, cluster (LE), attribute (LE), status, data type, value length,
// value bytes.
func parseAttrWrite(p []byte) (AttributeWrite, error) {
	if len(p) < 8 {
		return AttributeWrite{}, fmt.Errorf("attribute write payload %d bytes", len(p))
	}
	n := int(p[7])
	if len(p) < 8+n {
		return AttributeWrite{}, fmt.Errorf("attribute write value truncated: want %d bytes", n)
	}
	return AttributeWrite{
		Endpoint:  p[0],
		ClusterID: binary.LittleEndian.Uint16(p[1:3]),
		AttrID:    binary.LittleEndian.Uint16(p[3:5]),
		Status:    p[5],
		DataType:  p[6],
		Value:     p[8 : 8+n],
	}, nil
}
