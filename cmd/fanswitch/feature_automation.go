//go:build !no_automation

package main

import (
	"log/slog"

	"zigbee-fanswitch/internal/automation"
	"zigbee-fanswitch/internal/device"
)

type autoStopper struct {
	engine *automation.Engine
}

func (a *autoStopper) Stop() {
	if a.engine != nil {
		a.engine.Stop()
	}
}

func initAutomation(dev *device.Device, cfg *Config, logger *slog.Logger) *autoStopper {
	scriptMgr, err := automation.NewManager(cfg.ScriptsDir)
	if err != nil {
		logger.Error("create script manager", "err", err)
		return &autoStopper{}
	}

	engine := automation.NewEngine(dev, scriptMgr, logger)
	engine.Start()
	return &autoStopper{engine: engine}
}
