package types

import (
	"time"
)

// --- Request DTOs ---

// CommandRequest is the request body for POST /devices/:id/command
type CommandRequest struct {
	Action string `json:"action" example:"set"`
	Target *int   `json:"target,omitempty" example:"3"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Devices   int       `json:"devices"`
	Mailbox   string    `json:"mailbox"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceWithLevel combines device info with its last-known level
type DeviceWithLevel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Abbrev  string `json:"abbrev"`
	Address string `json:"address"`
	Level   int    `json:"level"`
	Known   bool   `json:"known"`
}

// ListDevicesResponse is returned from GET /devices
type ListDevicesResponse struct {
	Devices []DeviceWithLevel `json:"devices"`
	Count   int               `json:"count"`
}

// DeviceResponse is returned from GET /devices/:id
type DeviceResponse struct {
	Device DeviceWithLevel `json:"device"`
}

// LevelResponse is returned from GET /devices/:id/level. Stale marks a
// last-known value served because the device did not answer in time.
type LevelResponse struct {
	DeviceID  string    `json:"device_id"`
	Device    string    `json:"device"`
	Level     int       `json:"level"`
	Known     bool      `json:"known"`
	Stale     bool      `json:"stale"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CommandResponse acknowledges an accepted command
type CommandResponse struct {
	ID         uint64    `json:"id"`
	DeviceID   string    `json:"device_id"`
	Device     string    `json:"device"`
	Action     string    `json:"action"`
	Target     *int      `json:"target,omitempty"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// MailboxResponse is returned from GET /mailbox
type MailboxResponse struct {
	State    string     `json:"state"`
	ID       uint64     `json:"id,omitempty"`
	DeviceID string     `json:"device_id,omitempty"`
	Action   string     `json:"action,omitempty"`
	Level    *int       `json:"level,omitempty"`
	Error    string     `json:"error,omitempty"`
	Posted   *time.Time `json:"posted,omitempty"`
}
