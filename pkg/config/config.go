// Package config loads the hub's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urmzd/vanhub/pkg/device"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor HUB_CONFIG is set.
const DefaultPath = "configs/hub.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration. Durations are integer milliseconds.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Inquiry  InquiryConfig  `yaml:"inquiry"`
	BLE      BLEConfig      `yaml:"ble"`
	Control  ControlConfig  `yaml:"control"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Devices  []DeviceConfig `yaml:"devices"`
}

// LoggingConfig selects zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console or json
	Output string `yaml:"output"` // stdout or stderr
}

// DatabaseConfig locates the SQLite file. An empty path disables persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// APIConfig contains HTTP front-end settings.
type APIConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	LegacyErrors bool     `yaml:"legacy_errors"`
	CORSOrigins  []string `yaml:"cors_origins"`
}

// DispatchConfig tunes the dispatch loop.
type DispatchConfig struct {
	TickMS          int  `yaml:"tick_ms"`
	Dedup           bool `yaml:"dedup"`
	DeviceTimeoutMS int  `yaml:"device_timeout_ms"`
}

// InquiryConfig bounds front-end waits.
type InquiryConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
}

// BLEConfig contains the wireless front-end settings.
type BLEConfig struct {
	Enabled          bool   `yaml:"enabled"`
	LocalName        string `yaml:"local_name"`
	NotifyIntervalMS int    `yaml:"notify_interval_ms"`
}

// ControlConfig locates the loopback control channel.
type ControlConfig struct {
	Address string `yaml:"address"`
}

// MQTTConfig contains the optional level publisher settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// DeviceConfig declares one dimmer.
type DeviceConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Abbrev  string `yaml:"abbrev"`
	Address string `yaml:"address"`
}

// Load reads path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a Config with every default applied and no devices.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			Path: "~/.config/vanhub/hub.db",
		},
		API: APIConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Dispatch: DispatchConfig{
			TickMS:          10,
			Dedup:           true,
			DeviceTimeoutMS: 1500,
		},
		Inquiry: InquiryConfig{
			TimeoutMS: 2000,
		},
		BLE: BLEConfig{
			Enabled:          true,
			LocalName:        "VanColleague",
			NotifyIntervalMS: 5000,
		},
		Control: ControlConfig{
			Address: "127.0.0.1:4000",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "vanhub",
			TopicPrefix: "vanhub",
			QoS:         1,
		},
	}
}

// ResolvePath picks the config file: flag value, then HUB_CONFIG, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("HUB_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HUB_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("HUB_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HUB_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, "logging.format must be console or json")
	}
	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr":
	default:
		errs = append(errs, "logging.output must be stdout or stderr")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Dispatch.TickMS < 1 {
		errs = append(errs, "dispatch.tick_ms must be positive")
	}
	if c.Dispatch.DeviceTimeoutMS < 1 {
		errs = append(errs, "dispatch.device_timeout_ms must be positive")
	}
	if c.Inquiry.TimeoutMS < 1 || c.Inquiry.TimeoutMS >= 30000 {
		errs = append(errs, "inquiry.timeout_ms must be between 1 and 29999")
	}
	if c.BLE.NotifyIntervalMS < 1 {
		errs = append(errs, "ble.notify_interval_ms must be positive")
	}
	if host, _, err := net.SplitHostPort(c.Control.Address); err != nil {
		errs = append(errs, fmt.Sprintf("control.address: %v", err))
	} else if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		errs = append(errs, "control.address must be a loopback address")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device is required")
	}
	if _, err := c.DeviceList(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// DeviceList converts the devices section and checks it the way the registry will.
func (c *Config) DeviceList() ([]device.Device, error) {
	out := make([]device.Device, 0, len(c.Devices))
	for i, dc := range c.Devices {
		id, err := uuid.Parse(dc.ID)
		if err != nil {
			return nil, fmt.Errorf("devices[%d].id: %v", i, err)
		}
		d, err := device.Device{ID: id, Name: dc.Name, Abbrev: dc.Abbrev, Address: dc.Address}.Normalize()
		if err != nil {
			return nil, fmt.Errorf("devices[%d]: %v", i, err)
		}
		out = append(out, d)
	}
	if _, err := device.NewRegistry(out); err != nil {
		return nil, fmt.Errorf("devices: %v", err)
	}
	return out, nil
}

// APIAddress returns the HTTP listen address.
func (c *Config) APIAddress() string {
	return net.JoinHostPort(c.API.Host, strconv.Itoa(c.API.Port))
}

// Tick returns the dispatch tick period.
func (c *Config) Tick() time.Duration { return ms(c.Dispatch.TickMS) }

// DeviceTimeout returns the per-call device timeout.
func (c *Config) DeviceTimeout() time.Duration { return ms(c.Dispatch.DeviceTimeoutMS) }

// InquiryTimeout returns the front-end inquiry timeout.
func (c *Config) InquiryTimeout() time.Duration { return ms(c.Inquiry.TimeoutMS) }

// NotifyInterval returns the BLE notification period.
func (c *Config) NotifyInterval() time.Duration { return ms(c.BLE.NotifyIntervalMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
