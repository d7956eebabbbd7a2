package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AbbrevLen is the fixed width of a device abbreviation in the wireless payload.
const AbbrevLen = 2

// Device is a network-addressed dimmer.
type Device struct {
	ID      uuid.UUID `json:"id"`      // Identifier sent to the firmware as ?uuid=
	Name    string    `json:"name"`    // Lower-case, may contain spaces ("living room")
	Abbrev  string    `json:"abbrev"`  // Two characters, unique
	Address string    `json:"address"` // host[:port] of the firmware HTTP server
}

// Status is a registry snapshot of a device and its last-known level.
type Status struct {
	Device
	Level int  `json:"level"`
	Known bool `json:"known"`
}

// NormalizeName lower-cases a device name and collapses runs of whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Normalize returns d with canonical name and abbreviation, or an error when a
// required field is missing or malformed.
func (d Device) Normalize() (Device, error) {
	d.Name = NormalizeName(d.Name)
	d.Abbrev = strings.ToLower(d.Abbrev)
	d.Address = strings.TrimSpace(d.Address)

	switch {
	case d.ID == uuid.Nil:
		return d, fmt.Errorf("device %q: missing id", d.Name)
	case d.Name == "":
		return d, fmt.Errorf("device %s: missing name", d.ID)
	case len(d.Abbrev) != AbbrevLen:
		return d, fmt.Errorf("device %q: abbreviation %q must be %d characters", d.Name, d.Abbrev, AbbrevLen)
	case d.Address == "":
		return d, fmt.Errorf("device %q: missing address", d.Name)
	}
	return d, nil
}
