package store

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists the device's commissioning record across restarts of this
// process. The Zigbee network credentials themselves live in the NCP's
// non-volatile memory; this record is the host-side view of them.
type Store interface {
	SaveNetworkState(state *NetworkState) error
	GetNetworkState() (*NetworkState, error)
	ClearNetworkState() error

	Close() error
}
