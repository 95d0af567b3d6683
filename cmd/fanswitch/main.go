package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"zigbee-fanswitch/internal/device"
	"zigbee-fanswitch/internal/endpoint"
	"zigbee-fanswitch/internal/gpio"
	"zigbee-fanswitch/internal/relay"
	"zigbee-fanswitch/internal/stack"
	"zigbee-fanswitch/internal/store"
	"zigbee-fanswitch/internal/web"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// Device identity and wiring. Fixed at build time, not configuration: a
// flashed unit always reports the same model and drives the same pin.
const (
	deviceEndpoint   = 10
	manufacturerName = "HEIZUNG"
	modelIdentifier  = "FAN_SWITCH_V1"

	relayGPIOPin   = 4
	relayActiveLow = false
)

type Config struct {
	NCP struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"ncp"`
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	ScriptsDir string `yaml:"scripts_dir"`
}

func (c *Config) validate() error {
	if c.NCP.Port == "" {
		return fmt.Errorf("ncp.port is required")
	}
	return nil
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zigbee-fanswitch starting", "version", version)

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// The relay goes to a safe off state before any network activity.
	polarity := relay.ActiveHigh
	if relayActiveLow {
		polarity = relay.ActiveLow
	}
	fanRelay := relay.New(gpio.NewSysfsLine(relayGPIOPin), polarity, logger)
	if err := fanRelay.Init(); err != nil {
		logger.Error("init relay", "err", err)
		os.Exit(1)
	}

	zb, err := stack.NewSerial(cfg.NCP.Port, cfg.NCP.Baud, logger)
	if err != nil {
		logger.Error("open ncp", "err", err)
		os.Exit(1)
	}
	defer zb.Close()

	desc, err := endpoint.Build(endpoint.Config{
		Endpoint:         deviceEndpoint,
		ManufacturerName: manufacturerName,
		ModelIdentifier:  modelIdentifier,
		InitialOnOff:     bool(fanRelay.Get()),
	})
	if err != nil {
		logger.Error("build endpoint", "err", err)
		os.Exit(1)
	}

	events := device.NewEventBus(logger)
	dev := device.New(zb, fanRelay, db, events, deviceEndpoint, logger)

	// Keep the mesh attribute in sync when a rule or timer flips the relay
	// from inside a remote-write notification.
	dev.SetStateHandler(device.StateHandlerFunc(func(s relay.State) {
		logger.Info("fan state changed by remote write", "state", s)
	}))

	if err := zb.RegisterDevice(desc); err != nil {
		logger.Error("register endpoint", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := zb.Start(ctx); err != nil {
		logger.Error("start stack", "err", err)
		cancel()
		os.Exit(1)
	}
	cancel()

	// Start automation engine (no-op when built with no_automation tag).
	auto := initAutomation(dev, cfg, logger)

	var webOpts []web.ServerOption
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, web.WithVersion(version))

	webServer := web.NewServer(dev, logger, webOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	// Start MQTT bridge (no-op when built with no_mqtt tag).
	mqtt := initMQTT(dev, cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	signal.Stop(sigCh)
	logger.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	auto.Stop()
	mqtt.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()

	// The relay keeps its last state over a process restart; only a reboot
	// of the board forces it off again through Init.
	logger.Info("goodbye")
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "fanswitch.db"
	}
	if cfg.NCP.Baud == 0 {
		cfg.NCP.Baud = 115200
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zigbee2mqtt/fanswitch"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
