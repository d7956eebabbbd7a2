package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
api:
  port: 9090
dispatch:
  tick_ms: 5
devices:
  - id: 0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11
    name: Living Room
    abbrev: LR
    address: 192.168.4.21
  - id: 5d0c9e3b-17a4-4f0e-8d7b-3c2b1a9f8e22
    name: bed
    abbrev: bd
    address: 192.168.4.22:80
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hub.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Tick() != 5*time.Millisecond {
		t.Errorf("Tick() = %v, want 5ms", cfg.Tick())
	}
	// untouched sections keep their defaults
	if cfg.InquiryTimeout() != 2*time.Second {
		t.Errorf("InquiryTimeout() = %v, want 2s", cfg.InquiryTimeout())
	}
	if !cfg.Dispatch.Dedup {
		t.Error("Dispatch.Dedup should default to true")
	}
	if cfg.Control.Address != "127.0.0.1:4000" {
		t.Errorf("Control.Address = %q", cfg.Control.Address)
	}

	devs, err := cfg.DeviceList()
	if err != nil {
		t.Fatalf("DeviceList() error = %v", err)
	}
	if len(devs) != 2 || devs[0].Name != "living room" || devs[0].Abbrev != "lr" {
		t.Errorf("DeviceList() = %+v", devs)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	if _, err := Load(filepath.Join("..", "..", "configs", "hub.yaml")); err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/hub.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HUB_API_PORT", "7070")
	t.Setenv("HUB_LOG_LEVEL", "debug")
	t.Setenv("HUB_DB_PATH", "/tmp/override.db")
	t.Setenv("HUB_MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 7070 {
		t.Errorf("API.Port = %d, want 7070", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT = %+v, want enabled with overridden broker", cfg.MQTT)
	}
}

func TestValidate_DuplicateAbbrev(t *testing.T) {
	content := strings.Replace(validYAML, "abbrev: bd", "abbrev: lr", 1)

	_, err := Load(writeConfig(t, content))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load() error = %v, want ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), "abbreviation") {
		t.Errorf("error %q does not mention the abbreviation", err)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.API.Port = 0
	cfg.Inquiry.TimeoutMS = 30000
	cfg.Control.Address = "0.0.0.0:4000"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"api.port", "inquiry.timeout_ms", "control.address", "at least one device"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidate_BadDeviceID(t *testing.T) {
	content := strings.Replace(validYAML, "0b4f7a52-6a39-4bd6-9c52-2f1c4d9e0a11", "not-a-uuid", 1)
	if _, err := Load(writeConfig(t, content)); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv("HUB_CONFIG", "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Errorf("ResolvePath(\"\") = %q, want %q", got, DefaultPath)
	}

	t.Setenv("HUB_CONFIG", "/etc/vanhub.yaml")
	if got := ResolvePath(""); got != "/etc/vanhub.yaml" {
		t.Errorf("ResolvePath(\"\") = %q, want env value", got)
	}
	if got := ResolvePath("flag.yaml"); got != "flag.yaml" {
		t.Errorf("ResolvePath(flag) = %q, want flag value", got)
	}
}

func TestAPIAddress(t *testing.T) {
	cfg := Default()
	if got := cfg.APIAddress(); got != "0.0.0.0:8080" {
		t.Errorf("APIAddress() = %q", got)
	}
}
