package device

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/urmzd/vanhub/pkg/action"
)

const unknownLevel = -1

type entry struct {
	dev   Device
	level atomic.Int32
}

// Registry is the set of configured devices. Membership is fixed once built;
// only the per-device last-known level changes afterwards.
type Registry struct {
	entries  []*entry
	byID     map[uuid.UUID]*entry
	byName   map[string]*entry
	byAbbrev map[string]*entry
}

// NewRegistry builds a registry, preserving the order of devices.
// Ids, names and abbreviations must be unique.
func NewRegistry(devices []Device) (*Registry, error) {
	r := &Registry{
		byID:     make(map[uuid.UUID]*entry, len(devices)),
		byName:   make(map[string]*entry, len(devices)),
		byAbbrev: make(map[string]*entry, len(devices)),
	}

	for _, d := range devices {
		d, err := d.Normalize()
		if err != nil {
			return nil, err
		}
		if _, ok := r.byID[d.ID]; ok {
			return nil, fmt.Errorf("%w: id %s", ErrDuplicate, d.ID)
		}
		if _, ok := r.byName[d.Name]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicate, d.Name)
		}
		if _, ok := r.byAbbrev[d.Abbrev]; ok {
			return nil, fmt.Errorf("%w: abbreviation %q", ErrDuplicate, d.Abbrev)
		}

		e := &entry{dev: d}
		e.level.Store(unknownLevel)
		r.entries = append(r.entries, e)
		r.byID[d.ID] = e
		r.byName[d.Name] = e
		r.byAbbrev[d.Abbrev] = e
	}

	return r, nil
}

// Len returns the number of devices.
func (r *Registry) Len() int { return len(r.entries) }

// Devices returns all devices in configuration order.
func (r *Registry) Devices() []Device {
	out := make([]Device, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.dev
	}
	return out
}

// Statuses returns a snapshot of every device with its last-known level.
func (r *Registry) Statuses() []Status {
	out := make([]Status, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.status()
	}
	return out
}

// Get returns the device with the given id.
func (r *Registry) Get(id uuid.UUID) (Device, error) {
	e, ok := r.byID[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.dev, nil
}

// Status returns the device with the given id and its last-known level.
func (r *Registry) Status(id uuid.UUID) (Status, error) {
	e, ok := r.byID[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.status(), nil
}

// ByName looks a device up by name, case-insensitively.
func (r *Registry) ByName(name string) (Device, error) {
	e, ok := r.byName[NormalizeName(name)]
	if !ok {
		return Device{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e.dev, nil
}

// ByAbbrev looks a device up by its two-character abbreviation, case-insensitively.
func (r *Registry) ByAbbrev(abbrev string) (Device, error) {
	e, ok := r.byAbbrev[strings.ToLower(abbrev)]
	if !ok {
		return Device{}, fmt.Errorf("%w: abbreviation %q", ErrNotFound, abbrev)
	}
	return e.dev, nil
}

// Resolve accepts a uuid, a name or an abbreviation, tried in that order.
func (r *Registry) Resolve(ref string) (Device, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return r.Get(id)
	}
	if d, err := r.ByName(ref); err == nil {
		return d, nil
	}
	if d, err := r.ByAbbrev(ref); err == nil {
		return d, nil
	}
	return Device{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// Level returns the last-known level of a device; ok is false when the
// device is unknown or has never reported.
func (r *Registry) Level(id uuid.UUID) (level int, ok bool) {
	e, found := r.byID[id]
	if !found {
		return 0, false
	}
	v := e.level.Load()
	if v == unknownLevel {
		return 0, false
	}
	return int(v), true
}

// SetLevel records a reported level.
func (r *Registry) SetLevel(id uuid.UUID, level int) error {
	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if level < 0 || level >= action.MaxLevel {
		return fmt.Errorf("%w: level %d for %q", action.ErrOutOfRange, level, e.dev.Name)
	}
	e.level.Store(int32(level))
	return nil
}

func (e *entry) status() Status {
	v := e.level.Load()
	if v == unknownLevel {
		return Status{Device: e.dev}
	}
	return Status{Device: e.dev, Level: int(v), Known: true}
}
