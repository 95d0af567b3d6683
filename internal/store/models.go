package store

import "time"

// NetworkState is the identity of the network this device last joined.
type NetworkState struct {
	PanID     uint16    `json:"pan_id"`
	ExtPanID  string    `json:"ext_pan_id"`
	Channel   uint8     `json:"channel"`
	ShortAddr uint16    `json:"short_addr"`
	Joined    bool      `json:"joined"`
	JoinedAt  time.Time `json:"joined_at"`
}
