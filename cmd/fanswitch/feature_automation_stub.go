//go:build no_automation

package main

import (
	"log/slog"

	"zigbee-fanswitch/internal/device"
)

type autoStopper struct{}

func (a *autoStopper) Stop() {}

func initAutomation(_ *device.Device, _ *Config, _ *slog.Logger) *autoStopper {
	return &autoStopper{}
}
