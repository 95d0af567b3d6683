package stack

import (
	"bufio"
	"fmt"
	"io"
)

// Host <-> NCP frames: SOF | length | cmd | payload | FCS. Length covers the
// payload only; FCS is XOR over length, cmd and payload.
const (
	frameSOF        = 0xFE
	frameMaxPayload = 255
)

// Command bytes.
const (
	cmdRegisterEndpoint = 0x10
	cmdStartStack       = 0x11
	cmdStartSteering    = 0x12
	cmdSetAttribute     = 0x13

	cmdStatus       = 0x60 // response: [request cmd, status]
	cmdSignalInd    = 0x80
	cmdAttrWriteInd = 0x81
)

type frame struct {
	cmd     uint8
	payload []byte
}

func frameFCS(length, cmd uint8, payload []byte) uint8 {
	fcs := length ^ cmd
	for _, b := range payload {
		fcs ^= b
	}
	return fcs
}

// writeFrame serializes one frame to w.
func writeFrame(w io.Writer, f frame) error {
	if len(f.payload) > frameMaxPayload {
		return fmt.Errorf("frame payload %d bytes exceeds %d", len(f.payload), frameMaxPayload)
	}
	buf := make([]byte, 0, len(f.payload)+4)
	buf = append(buf, frameSOF, byte(len(f.payload)), f.cmd)
	buf = append(buf, f.payload...)
	buf = append(buf, frameFCS(byte(len(f.payload)), f.cmd, f.payload))
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readFrame scans r for the next SOF and decodes one frame. Bytes before
// the SOF are discarded (resynchronization after line noise).
func readFrame(r *bufio.Reader) (frame, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return frame{}, err
		}
		if b != frameSOF {
			continue
		}

		header := make([]byte, 2)
		if _, err := io.ReadFull(r, header); err != nil {
			return frame{}, err
		}
		length, cmd := header[0], header[1]

		payload := make([]byte, int(length))
		if _, err := io.ReadFull(r, payload); err != nil {
			return frame{}, err
		}

		fcs, err := r.ReadByte()
		if err != nil {
			return frame{}, err
		}
		if fcs != frameFCS(length, cmd, payload) {
			return frame{}, fmt.Errorf("%w: cmd 0x%02X bad FCS", errBadFrame, cmd)
		}
		return frame{cmd: cmd, payload: payload}, nil
	}
}
