package mcp

import (
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/dispatch"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status"`
	Devices   int    `json:"devices" jsonschema:"description=Number of configured devices"`
	Mailbox   string `json:"mailbox" jsonschema:"description=State of the request mailbox"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- Device Tools ---

// DeviceInfo represents a device in tool outputs
type DeviceInfo struct {
	ID      string `json:"id" jsonschema:"description=Device uuid"`
	Name    string `json:"name" jsonschema:"description=Device name"`
	Abbrev  string `json:"abbrev" jsonschema:"description=Two-letter abbreviation used over Bluetooth"`
	Address string `json:"address" jsonschema:"description=Network address of the dimmer"`
	Level   int    `json:"level" jsonschema:"description=Last-known level (0-7)"`
	Known   bool   `json:"known" jsonschema:"description=False until the device has reported a level"`
}

// ListDevicesOutput is the output for the list_devices tool
type ListDevicesOutput struct {
	Devices []DeviceInfo `json:"devices" jsonschema:"description=Configured devices"`
	Count   int          `json:"count" jsonschema:"description=Total number of devices"`
}

// GetDeviceOutput is the output for the get_device tool
type GetDeviceOutput struct {
	Device DeviceInfo `json:"device" jsonschema:"description=Device information"`
}

// --- Level Tool ---

// GetLevelOutput is the output for the get_level tool
type GetLevelOutput struct {
	DeviceID string `json:"device_id" jsonschema:"description=Device uuid"`
	Device   string `json:"device" jsonschema:"description=Device name"`
	Level    int    `json:"level" jsonschema:"description=Level (0-7)"`
	Known    bool   `json:"known" jsonschema:"description=False when the device has never reported"`
	Stale    bool   `json:"stale" jsonschema:"description=True when the last-known level is returned"`
	Warning  string `json:"warning,omitempty" jsonschema:"description=Why a stale level was returned"`
}

// --- Command Tools ---

// CommandOutput is the output for turn_on, turn_off, set_level and send_instruction
type CommandOutput struct {
	ID       uint64 `json:"id" jsonschema:"description=Request id"`
	DeviceID string `json:"device_id" jsonschema:"description=Device uuid"`
	Device   string `json:"device" jsonschema:"description=Device name"`
	Action   string `json:"action" jsonschema:"description=Accepted action"`
	Message  string `json:"message" jsonschema:"description=Human readable summary"`
}

// StatusToInfo converts a registry snapshot to its tool representation
func StatusToInfo(s device.Status) DeviceInfo {
	return DeviceInfo{
		ID:      s.ID.String(),
		Name:    s.Name,
		Abbrev:  s.Abbrev,
		Address: s.Address,
		Level:   s.Level,
		Known:   s.Known,
	}
}

func receiptToOutput(r dispatch.Receipt) CommandOutput {
	return CommandOutput{
		ID:       r.ID,
		DeviceID: r.DeviceID.String(),
		Device:   r.Device,
		Action:   r.Action.String(),
		Message:  "Command queued for " + r.Device,
	}
}
